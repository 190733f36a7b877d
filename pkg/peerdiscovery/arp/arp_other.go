//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package arp

import (
	"context"
	"fmt"
	"net/netip"
	"os/exec"
	"runtime"
	"time"

	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
	osutils "github.com/projectdiscovery/utils/os"
)

// readLocalARPTable reads the local ARP table on Windows using 'arp -a' command
func readLocalARPTable() ([]common.Neighbor, error) {
	if !osutils.IsWindows() {
		return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	output, err := exec.Command("arp", "-a").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute arp -a: %w", err)
	}
	return parseWindowsArp(string(output)), nil
}

// newRequester lets the kernel resolve the address, raw ARP is not available here
func newRequester(time.Duration) func(ctx context.Context, addr netip.Addr) bool {
	return func(ctx context.Context, addr netip.Addr) bool {
		common.TriggerResolution(ctx, addr)
		return false
	}
}
