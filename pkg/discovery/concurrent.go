package discovery

import (
	"context"
	"net/netip"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/pkg/netrange"
	"github.com/projectdiscovery/hostsweep/pkg/types"
	syncutil "github.com/projectdiscovery/utils/sync"
)

// discoverConcurrent runs the walk with up to opts.Concurrency probes in flight.
// The consuming goroutine owns the live host count, so the cap stays exact. Probes
// still running when the walk ends are abandoned rather than awaited.
func discoverConcurrent(parent context.Context, walk *walker, ex exclusions, prober Prober, opts Options, yield func(netip.Addr) bool) {
	events := walk.events

	awg, err := syncutil.New(syncutil.WithSize(opts.Concurrency))
	if err != nil {
		gologger.Error().Msgf("Error creating syncutil: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	candidates := make(chan candidate)
	results := make(chan candidate, opts.Concurrency)

	go func() {
		defer close(candidates)
		for ctx.Err() == nil {
			addr, r, ok := walk.next()
			if !ok {
				return
			}
			if ex.skip(addr, r) {
				continue
			}
			select {
			case candidates <- candidate{addr: addr, rng: r}:
			case <-ctx.Done():
				return
			}
			if !wait(ctx, opts.Delay) {
				return
			}
		}
	}()

	go func() {
		defer close(results)
		for c := range candidates {
			awg.Add()
			go func(c candidate) {
				defer awg.Done()
				gologger.Verbose().Msgf("Probing %s", c.addr)
				events.emit(types.EventProbe, c.addr, c.rng, 0)
				if !prober.IsAlive(ctx, c.addr) {
					return
				}
				select {
				case results <- c:
				case <-ctx.Done():
				}
			}(c)
		}
		awg.Wait()
	}()

	found := 0
	for {
		select {
		case <-parent.Done():
			events.emit(types.EventCancelled, netip.Addr{}, nil, found)
			return
		case c, ok := <-results:
			if !ok {
				if parent.Err() != nil {
					events.emit(types.EventCancelled, netip.Addr{}, nil, found)
				} else {
					events.emit(types.EventCompleted, netip.Addr{}, nil, found)
				}
				return
			}
			if parent.Err() != nil {
				events.emit(types.EventCancelled, netip.Addr{}, nil, found)
				return
			}

			found++
			gologger.Debug().Msgf("Found live host: %s", c.addr)
			events.emit(types.EventAlive, c.addr, c.rng, found)
			if !yield(c.addr) {
				return
			}
			if found >= opts.MaxResults {
				gologger.Debug().Msgf("Found max needed hosts (%d), stopping scan", found)
				events.emit(types.EventCapReached, netip.Addr{}, nil, found)
				return
			}
		}
	}
}

type candidate struct {
	addr netip.Addr
	rng  netrange.Range
}
