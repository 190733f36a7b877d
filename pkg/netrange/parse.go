package netrange

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"go4.org/netipx"
)

// ErrInvalidRangeSpec is returned when a specification cannot be turned into a Range
var ErrInvalidRangeSpec = errors.New("invalid range spec")

// Resolver turns a hostname into addresses
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]netip.Addr, error)
}

// Parser builds ranges from specifications. A nil Resolver rejects hostnames.
type Parser struct {
	Resolver Resolver
}

// DefaultParser resolves hostnames through the system nameservers
var DefaultParser = &Parser{Resolver: NewDNSResolver()}

// Parse builds a Range from spec with the DefaultParser
func Parse(spec string) (Range, error) {
	return DefaultParser.Parse(context.Background(), spec)
}

// Parse builds a Range from spec
func (p *Parser) Parse(ctx context.Context, spec string) (Range, error) {
	s := strings.TrimSpace(spec)
	if s == "" {
		return nil, fmt.Errorf("%w: empty specification", ErrInvalidRangeSpec)
	}

	if strings.Contains(s, "/") {
		prefix, err := ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRangeSpec, spec, err)
		}
		return NewCIDR(prefix), nil
	}

	if strings.Contains(s, "*") {
		prefix, err := parseWildcard(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRangeSpec, spec, err)
		}
		return NewCIDR(prefix), nil
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return NewSingle(addr), nil
	}

	if from, to, ok := strings.Cut(s, "-"); ok {
		if _, err := netip.ParseAddr(strings.TrimSpace(from)); err == nil {
			r, err := netipx.ParseIPRange(strings.TrimSpace(from) + "-" + strings.TrimSpace(to))
			if err != nil {
				return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRangeSpec, spec, err)
			}
			return NewInterval(r), nil
		}
	}

	if !isHostname(s) {
		return nil, fmt.Errorf("%w: %q is neither an address, a range nor a hostname", ErrInvalidRangeSpec, spec)
	}
	if p.Resolver == nil {
		return nil, fmt.Errorf("%w: %q: hostname specs need a resolver", ErrInvalidRangeSpec, spec)
	}

	addrs, err := p.Resolver.LookupHost(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidRangeSpec, spec, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %q: no addresses found", ErrInvalidRangeSpec, spec)
	}
	return NewHost(s, addrs[0]), nil
}

// ParsePrefix parses a CIDR block. IPv4-mapped IPv6 blocks become the IPv4 block
// they cover, so they must be at least /96.
func ParsePrefix(s string) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(strings.TrimSpace(s))
	if err != nil {
		return netip.Prefix{}, err
	}
	if !prefix.Addr().Is4In6() {
		return prefix.Masked(), nil
	}
	if prefix.Bits() < 96 {
		return netip.Prefix{}, fmt.Errorf("IPv4-mapped prefix %s is shorter than /96", prefix)
	}
	return netip.PrefixFrom(prefix.Addr().Unmap(), prefix.Bits()-96).Masked(), nil
}

// parseWildcard converts "a.b.*.*" style specs into the matching IPv4 prefix.
// Wildcards must be trailing octets.
func parseWildcard(s string) (netip.Prefix, error) {
	octets := strings.Split(s, ".")
	if len(octets) != 4 {
		return netip.Prefix{}, fmt.Errorf("wildcard spec needs 4 octets")
	}

	var bytes [4]byte
	fixed := 0
	for i, octet := range octets {
		if octet == "*" {
			continue
		}
		if fixed != i {
			return netip.Prefix{}, fmt.Errorf("wildcards must be trailing octets")
		}
		value, err := strconv.ParseUint(octet, 10, 8)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("bad octet %q", octet)
		}
		bytes[i] = byte(value)
		fixed++
	}
	if fixed == 0 {
		return netip.Prefix{}, fmt.Errorf("at least one octet must be fixed")
	}
	return netip.PrefixFrom(netip.AddrFrom4(bytes), fixed*8), nil
}

func isHostname(s string) bool {
	if len(s) > 253 {
		return false
	}
	labels := strings.Split(strings.TrimSuffix(s, "."), ".")
	// a numeric top label means a mistyped address, not a name
	if _, err := strconv.Atoi(labels[len(labels)-1]); err == nil {
		return false
	}
	for _, label := range labels {
		if label == "" || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, r := range label {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			default:
				return false
			}
		}
	}
	return true
}
