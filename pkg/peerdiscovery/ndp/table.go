package ndp

import (
	"bufio"
	"net"
	"net/netip"
	"strings"

	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
)

// parseIPNeigh reads "ip -6 neigh show" output:
// fe80::1 dev eth0 lladdr aa:bb:cc:dd:ee:ff REACHABLE
func parseIPNeigh(output string) []common.Neighbor {
	var neighbors []common.Neighbor
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		if len(fields) < 5 || strings.Contains(line, "FAILED") {
			continue
		}

		var macStr string
		for i, field := range fields {
			if field == "lladdr" && i+1 < len(fields) {
				macStr = fields[i+1]
				break
			}
		}
		if neighbor, ok := newNeighbor(fields[0], macStr); ok {
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}

// parseNDPAn reads "ndp -an" output of macOS and the BSDs:
// fe80::1%en0 aa:bb:cc:dd:ee:ff en0 23h59m58s S R
func parseNDPAn(output string) []common.Neighbor {
	var neighbors []common.Neighbor
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[0] == "Neighbor" {
			continue
		}
		if neighbor, ok := newNeighbor(fields[0], fields[1]); ok {
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}

// parseNetshNeighbors reads "netsh interface ipv6 show neighbors" output of Windows:
//
//	Interface 12: Ethernet
//	Internet Address                              Physical Address   Type
//	fe80::1                                       aa-bb-cc-dd-ee-ff  Reachable
func parseNetshNeighbors(output string) []common.Neighbor {
	var neighbors []common.Neighbor
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "Interface") || strings.HasPrefix(line, "Internet Address") || strings.HasPrefix(line, "---") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 || strings.EqualFold(fields[1], "ff-ff-ff-ff-ff-ff") || strings.Contains(strings.ToLower(line), "unreachable") {
			continue
		}
		if neighbor, ok := newNeighbor(fields[0], strings.ReplaceAll(fields[1], "-", ":")); ok {
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}

// newNeighbor drops incomplete entries and anything that is not IPv6
func newNeighbor(ipStr, macStr string) (common.Neighbor, bool) {
	if macStr == "" || macStr == "00:00:00:00:00:00" || strings.Contains(macStr, "incomplete") {
		return common.Neighbor{}, false
	}
	addr, err := netip.ParseAddr(ipStr)
	if err != nil || !addr.Is6() || addr.Is4In6() {
		return common.Neighbor{}, false
	}
	mac, err := net.ParseMAC(macStr)
	if err != nil {
		return common.Neighbor{}, false
	}
	return common.Neighbor{Addr: addr, MAC: mac}, true
}
