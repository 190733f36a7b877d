//go:build windows

package ndp

import (
	"fmt"
	"os/exec"

	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
)

// readLocalNDPTable reads the local NDP table on Windows using 'netsh interface ipv6 show neighbors' command
func readLocalNDPTable() ([]common.Neighbor, error) {
	output, err := exec.Command("netsh", "interface", "ipv6", "show", "neighbors").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute netsh interface ipv6 show neighbors: %w", err)
	}
	return parseNetshNeighbors(string(output)), nil
}
