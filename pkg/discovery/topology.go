package discovery

import (
	"context"
	"net/netip"
)

// Topology describes the machine the scan runs from
type Topology interface {
	// LocalAddresses returns the machine's own addresses
	LocalAddresses(ctx context.Context) ([]netip.Addr, error)
	// InterfacePrefixes returns one subnet per local network interface address
	InterfacePrefixes(ctx context.Context) ([]netip.Prefix, error)
}
