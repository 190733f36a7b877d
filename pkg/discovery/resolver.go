package discovery

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/pkg/netrange"
	"github.com/projectdiscovery/hostsweep/pkg/types"
	"go4.org/netipx"
)

// ResolveOptions tunes range resolution
type ResolveOptions struct {
	// Parser builds ranges from specs; nil means netrange.DefaultParser
	Parser *netrange.Parser
}

// Resolve builds the ordered list of ranges to scan.
//
// The list is the explicit subnet scan list, followed by one range per interface
// prefix when local network scanning is enabled, followed by the other members of
// every inaccessible subnet group whose first local match is found. Later stages
// append, duplicates are kept.
func Resolve(ctx context.Context, cfg *types.ScanConfiguration, localAddrs []netip.Addr, interfacePrefixes []netip.Prefix, opts ResolveOptions) ([]netrange.Range, error) {
	if len(localAddrs) == 0 {
		return nil, ErrInitialization
	}
	if cfg == nil {
		cfg = &types.ScanConfiguration{}
	}
	parser := opts.Parser
	if parser == nil {
		parser = netrange.DefaultParser
	}
	policy := cfg.Policy()

	var ranges []netrange.Range
	for _, spec := range cfg.SubnetScanList {
		r, err := parseWithPolicy(ctx, parser, spec, policy)
		if err != nil {
			return nil, err
		}
		if r != nil {
			ranges = append(ranges, r)
		}
	}

	if cfg.LocalNetworkScan {
		for _, prefix := range interfacePrefixes {
			ranges = append(ranges, netrange.NewCIDR(prefix))
		}
	}

	for _, group := range cfg.InaccessibleSubnetGroups {
		extra, err := resolveGroup(ctx, parser, group, localAddrs, policy)
		if err != nil {
			return nil, err
		}
		ranges = append(ranges, extra...)
	}

	return ranges, nil
}

// resolveGroup returns the members of group other than the first one holding a
// local address, or nothing when no member does.
func resolveGroup(ctx context.Context, parser *netrange.Parser, group types.InaccessibleSubnetGroup, localAddrs []netip.Addr, policy types.InvalidRangePolicy) ([]netrange.Range, error) {
	if len(group) < 2 {
		return nil, nil
	}

	members := make([]netrange.Range, len(group))
	for i, spec := range group {
		r, err := parseWithPolicy(ctx, parser, spec, policy)
		if err != nil {
			return nil, err
		}
		members[i] = r
	}

	for i, member := range members {
		if member == nil || !containsAny(member, localAddrs) {
			continue
		}
		gologger.Debug().Msgf("Local address found in %s, adding the rest of its inaccessible group", member)

		matched := strings.TrimSpace(group[i])
		var others []netrange.Range
		for j, other := range members {
			if other == nil || strings.TrimSpace(group[j]) == matched {
				continue
			}
			others = append(others, other)
		}
		return others, nil
	}
	return nil, nil
}

// parseWithPolicy returns a nil range and no error for a malformed spec under the skip policy
func parseWithPolicy(ctx context.Context, parser *netrange.Parser, spec string, policy types.InvalidRangePolicy) (netrange.Range, error) {
	r, err := parser.Parse(ctx, spec)
	if err == nil {
		return r, nil
	}
	if policy == types.InvalidRangeSkip {
		gologger.Warning().Msgf("Skipping range %q: %s", spec, err)
		return nil, nil
	}
	return nil, err
}

func containsAny(r netrange.Range, addrs []netip.Addr) bool {
	for _, addr := range addrs {
		if r.Contains(addr) {
			return true
		}
	}
	return false
}

// BuildAddressSet builds a set from single addresses, CIDR blocks and intervals
func BuildAddressSet(specs []string, policy types.InvalidRangePolicy) (*netipx.IPSet, error) {
	var builder netipx.IPSetBuilder
	for _, spec := range specs {
		s := strings.TrimSpace(spec)
		if err := addSpec(&builder, s); err != nil {
			if policy == types.InvalidRangeSkip {
				gologger.Warning().Msgf("Skipping blocked entry %q: %s", spec, err)
				continue
			}
			return nil, err
		}
	}
	set, err := builder.IPSet()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", netrange.ErrInvalidRangeSpec, err)
	}
	return set, nil
}

func addSpec(builder *netipx.IPSetBuilder, s string) error {
	switch {
	case strings.Contains(s, "/"):
		prefix, err := netrange.ParsePrefix(s)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", netrange.ErrInvalidRangeSpec, s, err)
		}
		builder.AddPrefix(prefix)
	case strings.Contains(s, "-"):
		r, err := netipx.ParseIPRange(s)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", netrange.ErrInvalidRangeSpec, s, err)
		}
		builder.AddRange(r)
	default:
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return fmt.Errorf("%w: %q: %v", netrange.ErrInvalidRangeSpec, s, err)
		}
		builder.Add(addr.Unmap())
	}
	return nil
}

func addressSet(addrs []netip.Addr) (*netipx.IPSet, error) {
	var builder netipx.IPSetBuilder
	for _, addr := range addrs {
		builder.Add(addr.Unmap())
	}
	return builder.IPSet()
}
