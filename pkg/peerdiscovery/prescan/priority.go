package prescan

import "net/netip"

// PrioritizedIP holds an address and its score (0-100)
type PrioritizedIP struct {
	Addr     netip.Addr
	Priority int
}

// CalculatePriority returns the score of addr within prefix.
// Higher scores mean more likely to be online. IPv6 gets the long-tail score.
func CalculatePriority(addr netip.Addr, prefix netip.Prefix) int {
	if !prefix.IsValid() {
		return PriorityTier6
	}
	addr = addr.Unmap()
	if !addr.Is4() || !prefix.Addr().Is4() {
		return PriorityTier6
	}
	return lastOctetPriority(addr, prefix.Masked())
}
