package discovery

import (
	"net/netip"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/pkg/netrange"
	"github.com/projectdiscovery/hostsweep/pkg/types"
	"go4.org/netipx"
)

// walker flattens a list of ranges into a single stream of candidates
type walker struct {
	ranges  []netrange.Range
	idx     int
	current netrange.Range
	it      netrange.Iterator
	events  eventSink
}

func newWalker(ranges []netrange.Range, events eventSink) *walker {
	return &walker{ranges: ranges, events: events}
}

// next returns the following candidate and the range it belongs to
func (w *walker) next() (netip.Addr, netrange.Range, bool) {
	for {
		if w.it == nil {
			if w.idx >= len(w.ranges) {
				return netip.Addr{}, nil, false
			}
			w.current = w.ranges[w.idx]
			w.idx++
			w.it = w.current.Iterator()
			gologger.Debug().Msgf("Scanning for live hosts in %s", w.current)
			w.events.emit(types.EventRangeStart, netip.Addr{}, w.current, 0)
		}
		if addr, ok := w.it.Next(); ok {
			return addr, w.current, true
		}
		w.it = nil
	}
}

// exclusions holds the addresses that are never probed
type exclusions struct {
	self    *netipx.IPSet
	blocked *netipx.IPSet
	events  eventSink
}

// skip reports whether addr must not be probed, and logs why
func (e exclusions) skip(addr netip.Addr, r netrange.Range) bool {
	if e.self != nil && e.self.Contains(addr) {
		gologger.Debug().Msgf("Skipping %s: local address", addr)
		e.events.emit(types.EventSkipSelf, addr, r, 0)
		return true
	}
	if e.blocked != nil && e.blocked.Contains(addr) {
		gologger.Verbose().Msgf("Skipping %s due to blocklist", addr)
		e.events.emit(types.EventSkipBlocked, addr, r, 0)
		return true
	}
	return false
}

// eventSink forwards walk events to an optional observer
type eventSink func(types.ScanEvent)

func (s eventSink) emit(kind types.EventKind, addr netip.Addr, r netrange.Range, discovered int) {
	if s == nil {
		return
	}
	event := types.ScanEvent{Kind: kind, Address: addr, Discovered: discovered, Time: time.Now()}
	if r != nil {
		event.Range = r.String()
	}
	s(event)
}
