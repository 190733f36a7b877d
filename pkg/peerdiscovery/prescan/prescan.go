package prescan

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"net/netip"
	"slices"

	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
	"github.com/projectdiscovery/mapcidr"
)

// MinPrefixBits bounds the blocks prescan expands in memory
const MinPrefixBits = 16

// ErrUnsupportedPrefix is returned for IPv6 blocks and blocks larger than a /16
var ErrUnsupportedPrefix = errors.New("prefix not supported by prescan")

// SelectIPs returns the top ratio (0.0-1.0) of the usable addresses of prefix,
// highest priority first and ascending addresses within a tier.
func SelectIPs(prefix netip.Prefix, ratio float64) ([]netip.Addr, error) {
	ratio = max(0, min(1, ratio))

	prioritized, err := prioritize(prefix)
	if err != nil {
		return nil, err
	}

	targetCount := int(math.Ceil(float64(len(prioritized)) * ratio))
	if ratio > 0 && targetCount == 0 && len(prioritized) > 0 {
		targetCount = 1
	}
	return firstN(prioritized, targetCount), nil
}

// SelectIPsWithCount returns the count highest-priority addresses of prefix
func SelectIPsWithCount(prefix netip.Prefix, count int) ([]netip.Addr, error) {
	if count <= 0 {
		return []netip.Addr{}, nil
	}
	prioritized, err := prioritize(prefix)
	if err != nil {
		return nil, err
	}
	return firstN(prioritized, count), nil
}

func prioritize(prefix netip.Prefix) ([]PrioritizedIP, error) {
	if !prefix.IsValid() || !prefix.Addr().Is4() || prefix.Bits() < MinPrefixBits {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPrefix, prefix)
	}
	prefix = prefix.Masked()

	expanded, err := mapcidr.IPAddresses(prefix.String())
	if err != nil {
		return nil, fmt.Errorf("failed to expand %s: %w", prefix, err)
	}

	prioritized := make([]PrioritizedIP, 0, len(expanded))
	for _, value := range expanded {
		addr, err := netip.ParseAddr(value)
		if err != nil {
			continue
		}
		if common.IsNetworkOrBroadcast(addr, prefix) {
			continue
		}
		prioritized = append(prioritized, PrioritizedIP{Addr: addr, Priority: CalculatePriority(addr, prefix)})
	}

	slices.SortFunc(prioritized, func(a, b PrioritizedIP) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return a.Addr.Compare(b.Addr)
	})
	return prioritized, nil
}

func firstN(prioritized []PrioritizedIP, n int) []netip.Addr {
	n = min(n, len(prioritized))
	result := make([]netip.Addr, 0, n)
	for _, p := range prioritized[:n] {
		result = append(result, p.Addr)
	}
	return result
}
