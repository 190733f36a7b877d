package arp

import (
	"bufio"
	"net"
	"net/netip"
	"strings"

	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
)

// parseProcNetARP reads the Linux /proc/net/arp format:
// IP address HW type Flags HW address Mask Device
func parseProcNetARP(data string) []common.Neighbor {
	var neighbors []common.Neighbor
	scanner := bufio.NewScanner(strings.NewReader(data))

	// header
	if !scanner.Scan() {
		return nil
	}
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}
		if neighbor, ok := newNeighbor(fields[0], fields[3]); ok {
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}

// parseBSDArp reads "arp -a" output of macOS and the BSDs:
// ? (192.168.1.1) at aa:bb:cc:dd:ee:ff on en0 ifscope [ethernet]
func parseBSDArp(output string) []common.Neighbor {
	var neighbors []common.Neighbor
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		ipStart := strings.Index(line, "(")
		ipEnd := strings.Index(line, ")")
		if ipStart == -1 || ipEnd == -1 || ipStart >= ipEnd {
			continue
		}
		_, rest, ok := strings.Cut(line[ipEnd:], " at ")
		if !ok {
			continue
		}
		fields := strings.Fields(rest)
		if len(fields) == 0 {
			continue
		}
		if neighbor, ok := newNeighbor(line[ipStart+1:ipEnd], fields[0]); ok {
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}

// parseWindowsArp reads "arp -a" output of Windows:
//
//	Interface: 192.168.1.100 --- 0xa
//	  Internet Address      Physical Address      Type
//	  192.168.1.1           aa-bb-cc-dd-ee-ff     dynamic
func parseWindowsArp(output string) []common.Neighbor {
	var neighbors []common.Neighbor
	scanner := bufio.NewScanner(strings.NewReader(output))

	inTable := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, "Interface:"):
			inTable = false
			continue
		case strings.Contains(line, "Internet Address") && strings.Contains(line, "Physical Address"):
			inTable = true
			continue
		case !inTable:
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || strings.EqualFold(fields[1], "ff-ff-ff-ff-ff-ff") {
			continue
		}
		if neighbor, ok := newNeighbor(fields[0], strings.ReplaceAll(fields[1], "-", ":")); ok {
			neighbors = append(neighbors, neighbor)
		}
	}
	return neighbors
}

// newNeighbor drops incomplete entries and anything that is not IPv4
func newNeighbor(ipStr, macStr string) (common.Neighbor, bool) {
	if macStr == "00:00:00:00:00:00" || strings.Contains(macStr, "incomplete") {
		return common.Neighbor{}, false
	}
	addr, err := netip.ParseAddr(ipStr)
	if err != nil {
		return common.Neighbor{}, false
	}
	addr = addr.Unmap()
	if !addr.Is4() {
		return common.Neighbor{}, false
	}
	mac, err := net.ParseMAC(padMAC(macStr))
	if err != nil {
		return common.Neighbor{}, false
	}
	return common.Neighbor{Addr: addr, MAC: mac}, true
}

// padMAC turns the "a:b:c:d:e:f" form printed by BSD tools into "0a:0b:..."
func padMAC(mac string) string {
	groups := strings.Split(mac, ":")
	for i, group := range groups {
		if len(group) == 1 {
			groups[i] = "0" + group
		}
	}
	return strings.Join(groups, ":")
}
