package ndp

import (
	"context"
	"net/netip"
	"time"

	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
)

// Options tunes NDP probing
type Options struct {
	// Settle is the wait for the neighbor table after a solicitation
	Settle time.Duration
}

// DefaultOptions gives the kernel one second to resolve a neighbor
var DefaultOptions = Options{Settle: time.Second}

// NewProber returns a prober for IPv6 hosts on the local segment
func NewProber(options Options) *common.NeighborProber {
	return &common.NeighborProber{
		Name:      "ndp",
		ReadTable: readLocalNDPTable,
		Request: func(ctx context.Context, addr netip.Addr) bool {
			common.TriggerResolution(ctx, addr)
			return false
		},
		Settle: options.Settle,
		Accept: func(addr netip.Addr) bool {
			return addr.Is6() && !addr.Is4In6() && !addr.IsLoopback() && !addr.IsMulticast()
		},
	}
}
