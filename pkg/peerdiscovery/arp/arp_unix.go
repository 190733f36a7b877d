//go:build linux || darwin || freebsd || netbsd || openbsd

package arp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/j-keck/arping"
	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
	osutils "github.com/projectdiscovery/utils/os"
)

// arping keeps its socket and timeout in package state
var arpingMu sync.Mutex

// readLocalARPTable reads /proc/net/arp on Linux and "arp -an" elsewhere
func readLocalARPTable() ([]common.Neighbor, error) {
	if osutils.IsLinux() {
		data, err := os.ReadFile("/proc/net/arp")
		if err != nil {
			return nil, err
		}
		return parseProcNetARP(string(data)), nil
	}
	output, err := exec.Command("arp", "-an").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute arp -an: %w", err)
	}
	return parseBSDArp(string(output)), nil
}

type arpingResponse struct {
	mac net.HardwareAddr
	dur time.Duration
	err error
}

// newRequester sends ARP requests with arping. When raw sockets are not available
// it falls back to letting the kernel resolve the address.
func newRequester(timeout time.Duration) func(ctx context.Context, addr netip.Addr) bool {
	return func(ctx context.Context, addr netip.Addr) bool {
		responses := make(chan arpingResponse, 1)
		go func() {
			arpingMu.Lock()
			defer arpingMu.Unlock()
			arping.SetTimeout(timeout)
			mac, dur, err := arping.Ping(addr.AsSlice())
			responses <- arpingResponse{mac: mac, dur: dur, err: err}
		}()

		var resp arpingResponse
		select {
		case <-ctx.Done():
			return false
		case resp = <-responses:
		}

		switch {
		case resp.err == nil:
			gologger.Debug().Msgf("arp: %s is at %s (%s)", addr, resp.mac, resp.dur)
			return true
		case errors.Is(resp.err, arping.ErrTimeout):
			return false
		default:
			gologger.Debug().Msgf("arp: arping %s: %s, falling back to kernel resolution", addr, resp.err)
			common.TriggerResolution(ctx, addr)
			return false
		}
	}
}
