package common

import (
	"context"
	"net/netip"

	sliceutil "github.com/projectdiscovery/utils/slice"
	psnet "github.com/shirou/gopsutil/v3/net"
)

// DefaultMinPrefixBits bounds local-network scans to /24 blocks at most
const DefaultMinPrefixBits = 24

// Topology reads the addresses and subnets of the machine's network interfaces
type Topology struct {
	// MinPrefixBits clamps interface subnets wider than this prefix length
	MinPrefixBits int

	// interfaces is swapped in tests
	interfaces func(ctx context.Context) (psnet.InterfaceStatList, error)
}

// NewTopology returns a topology source backed by the operating system
func NewTopology() *Topology {
	return &Topology{
		MinPrefixBits: DefaultMinPrefixBits,
		interfaces:    psnet.InterfacesWithContext,
	}
}

// LocalAddresses returns the addresses of every up, non-loopback interface
func (t *Topology) LocalAddresses(ctx context.Context) ([]netip.Addr, error) {
	ifaces, err := t.interfaces(ctx)
	if err != nil {
		return nil, err
	}

	var addrs []netip.Addr
	for _, iface := range usableInterfaces(ifaces) {
		for _, prefix := range interfacePrefixes(iface) {
			addrs = append(addrs, prefix.Addr())
		}
	}
	return sliceutil.Dedupe(addrs), nil
}

// InterfacePrefixes returns one IPv4 subnet per interface address, masked and
// clamped to MinPrefixBits
func (t *Topology) InterfacePrefixes(ctx context.Context) ([]netip.Prefix, error) {
	ifaces, err := t.interfaces(ctx)
	if err != nil {
		return nil, err
	}

	minBits := t.MinPrefixBits
	if minBits <= 0 || minBits > 32 {
		minBits = DefaultMinPrefixBits
	}

	var networks []netip.Prefix
	seen := make(map[netip.Prefix]struct{})

	for _, iface := range usableInterfaces(ifaces) {
		for _, prefix := range interfacePrefixes(iface) {
			// Only process IPv4 addresses
			if !prefix.Addr().Is4() {
				continue
			}
			if prefix.Addr().IsLinkLocalUnicast() {
				continue
			}

			bits := prefix.Bits()
			if bits < minBits {
				bits = minBits
			}
			network := netip.PrefixFrom(prefix.Addr(), bits).Masked()

			// Avoid duplicates
			if _, exists := seen[network]; exists {
				continue
			}
			seen[network] = struct{}{}

			networks = append(networks, network)
		}
	}

	return networks, nil
}

// usableInterfaces skips loopback and down interfaces
func usableInterfaces(ifaces psnet.InterfaceStatList) []psnet.InterfaceStat {
	var usable []psnet.InterfaceStat
	for _, iface := range ifaces {
		if sliceutil.Contains(iface.Flags, "loopback") {
			continue
		}
		if !sliceutil.Contains(iface.Flags, "up") {
			continue
		}
		usable = append(usable, iface)
	}
	return usable
}

// interfacePrefixes parses the addresses of an interface, which are reported in CIDR form
func interfacePrefixes(iface psnet.InterfaceStat) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, addr := range iface.Addrs {
		prefix, err := netip.ParsePrefix(addr.Addr)
		if err != nil {
			ip, err := netip.ParseAddr(addr.Addr)
			if err != nil {
				continue
			}
			prefix = netip.PrefixFrom(ip, ip.BitLen())
		}
		ip := prefix.Addr().Unmap()
		if ip.IsLoopback() || ip.IsMulticast() || ip.IsUnspecified() {
			continue
		}
		normalized := netip.PrefixFrom(ip, prefix.Bits())
		if !normalized.IsValid() {
			continue
		}
		prefixes = append(prefixes, normalized)
	}
	return prefixes
}
