package arp

import (
	"net/netip"
	"time"

	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/common"
)

// Options tunes ARP probing
type Options struct {
	// Timeout is the wait for an ARP reply
	Timeout time.Duration
	// Settle is the wait for the ARP table after a request went unanswered
	Settle time.Duration
}

// DefaultOptions waits one second for replies and half a second for the table
var DefaultOptions = Options{Timeout: time.Second, Settle: 500 * time.Millisecond}

// NewProber returns a prober for IPv4 hosts on the local segment
func NewProber(options Options) *common.NeighborProber {
	if options.Timeout <= 0 {
		options.Timeout = DefaultOptions.Timeout
	}
	return &common.NeighborProber{
		Name:      "arp",
		ReadTable: readLocalARPTable,
		Request:   newRequester(options.Timeout),
		Settle:    options.Settle,
		Accept: func(addr netip.Addr) bool {
			return addr.Is4() && !addr.IsLoopback() && !addr.IsMulticast()
		},
	}
}
