package common

import (
	"context"
	"net"
	"net/netip"
	"time"

	"github.com/projectdiscovery/gologger"
)

// TriggerPort is the UDP port datagrams are sent to when only the address resolution
// they cause matters
const TriggerPort = 12345

// Neighbor is an entry of the operating system neighbor table (ARP or NDP)
type Neighbor struct {
	Addr netip.Addr
	MAC  net.HardwareAddr
}

// NeighborProber reports a host alive when it shows up, with a hardware address, in
// the neighbor table. Hosts missing from the table get a resolution request first.
type NeighborProber struct {
	// Name prefixes log lines
	Name string
	// ReadTable returns the current neighbor table
	ReadTable func() ([]Neighbor, error)
	// Request asks the host for its hardware address. It returns true when the
	// answer proves the host alive, false to fall back to the table.
	Request func(ctx context.Context, addr netip.Addr) bool
	// Settle is the wait for the table to update after a request
	Settle time.Duration
	// Accept filters the addresses the prober handles
	Accept func(addr netip.Addr) bool
}

func (p *NeighborProber) IsAlive(ctx context.Context, addr netip.Addr) bool {
	addr = addr.Unmap()
	if p.Accept != nil && !p.Accept(addr) {
		return false
	}
	if p.inTable(addr) {
		return true
	}
	if p.Request != nil && p.Request(ctx, addr) {
		return true
	}
	if !Sleep(ctx, p.Settle) {
		return false
	}
	return p.inTable(addr)
}

func (p *NeighborProber) inTable(addr netip.Addr) bool {
	neighbors, err := p.ReadTable()
	if err != nil {
		gologger.Debug().Msgf("%s: could not read neighbor table: %s", p.Name, err)
		return false
	}
	_, ok := LookupNeighbor(neighbors, addr)
	return ok
}

// LookupNeighbor returns the entry of addr, ignoring zones
func LookupNeighbor(neighbors []Neighbor, addr netip.Addr) (Neighbor, bool) {
	addr = addr.Unmap().WithZone("")
	for _, neighbor := range neighbors {
		if neighbor.Addr.WithZone("") == addr && len(neighbor.MAC) > 0 {
			return neighbor, true
		}
	}
	return Neighbor{}, false
}

// TriggerResolution sends one UDP datagram to addr so the kernel resolves its
// hardware address. Delivery failures are expected and ignored.
func TriggerResolution(ctx context.Context, addr netip.Addr) {
	dialer := net.Dialer{Timeout: 50 * time.Millisecond}
	conn, err := dialer.DialContext(ctx, "udp", netip.AddrPortFrom(addr, TriggerPort).String())
	if err != nil {
		return
	}
	_, _ = conn.Write([]byte{0})
	_ = conn.Close()
}

// Sleep waits for d and reports false when ctx ends first
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
