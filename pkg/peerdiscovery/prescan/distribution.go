package prescan

import (
	"net/netip"

	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
)

// DistributionPattern maps a last-octet span to a priority tier
type DistributionPattern struct {
	RangeStart  int
	RangeEnd    int
	Priority    int
	Description string
}

const (
	PriorityTier1 = 100
	PriorityTier2 = 90
	PriorityTier3 = 80
	PriorityTier4 = 70
	PriorityTier5 = 50
	PriorityTier6 = 20
	PriorityTier7 = 0
)

var distributionPatterns = []DistributionPattern{
	{RangeStart: 1, RangeEnd: 1, Priority: PriorityTier1, Description: "router"},
	{RangeStart: 254, RangeEnd: 254, Priority: PriorityTier1, Description: "gateway"},
	{RangeStart: 2, RangeEnd: 5, Priority: PriorityTier2, Description: "infrastructure"},
	{RangeStart: 250, RangeEnd: 253, Priority: PriorityTier2, Description: "high reserved"},
	{RangeStart: 6, RangeEnd: 10, Priority: PriorityTier3, Description: "early lease"},
	{RangeStart: 50, RangeEnd: 50, Priority: PriorityTier4, Description: "pool start"},
	{RangeStart: 100, RangeEnd: 100, Priority: PriorityTier4, Description: "pool start"},
	{RangeStart: 150, RangeEnd: 150, Priority: PriorityTier4, Description: "pool start"},
	{RangeStart: 51, RangeEnd: 99, Priority: PriorityTier5, Description: "pool"},
	{RangeStart: 101, RangeEnd: 149, Priority: PriorityTier5, Description: "pool"},
	{RangeStart: 151, RangeEnd: 200, Priority: PriorityTier5, Description: "pool"},
	{RangeStart: 11, RangeEnd: 49, Priority: PriorityTier6, Description: "long tail"},
	{RangeStart: 201, RangeEnd: 249, Priority: PriorityTier6, Description: "long tail"},
	{RangeStart: 0, RangeEnd: 0, Priority: PriorityTier7, Description: "network"},
	{RangeStart: 255, RangeEnd: 255, Priority: PriorityTier7, Description: "broadcast"},
}

// lastOctetPriority scores an IPv4 address on its last octet.
// Blocks larger than a /24 reuse the /24 table for every inner /24.
func lastOctetPriority(addr netip.Addr, prefix netip.Prefix) int {
	if common.IsNetworkOrBroadcast(addr, prefix) {
		return PriorityTier7
	}

	lastOctet := int(addr.As4()[3])
	for _, pattern := range distributionPatterns {
		if lastOctet >= pattern.RangeStart && lastOctet <= pattern.RangeEnd {
			return pattern.Priority
		}
	}
	return PriorityTier6
}
