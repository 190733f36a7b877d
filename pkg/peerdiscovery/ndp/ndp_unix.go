//go:build !windows

package ndp

import (
	"fmt"
	"os/exec"

	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
	osutils "github.com/projectdiscovery/utils/os"
)

// readLocalNDPTable uses "ip -6 neigh show" on Linux and "ndp -an" elsewhere
func readLocalNDPTable() ([]common.Neighbor, error) {
	if osutils.IsLinux() {
		output, err := exec.Command("ip", "-6", "neigh", "show").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to execute ip -6 neigh show: %w", err)
		}
		return parseIPNeigh(string(output)), nil
	}
	output, err := exec.Command("ndp", "-an").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to execute ndp -an: %w", err)
	}
	return parseNDPAn(string(output)), nil
}
