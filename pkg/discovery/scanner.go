package discovery

import (
	"context"
	"fmt"
	"iter"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/pkg/netrange"
	"github.com/projectdiscovery/hostsweep/pkg/peerdiscovery/prescan"
	"github.com/projectdiscovery/hostsweep/pkg/types"
	"go4.org/netipx"
)

// Prober decides whether a host is alive. Failures of any kind mean not alive.
type Prober interface {
	IsAlive(ctx context.Context, addr netip.Addr) bool
}

// ProberFunc adapts a function to the Prober interface
type ProberFunc func(ctx context.Context, addr netip.Addr) bool

func (f ProberFunc) IsAlive(ctx context.Context, addr netip.Addr) bool {
	return f(ctx, addr)
}

// Options tunes a single discovery walk
type Options struct {
	// MaxResults caps the number of live addresses yielded; zero or less yields nothing
	MaxResults int
	// Delay is waited after every probe attempt
	Delay time.Duration
	// Concurrency above one probes that many addresses at a time
	Concurrency int
	// PrescanRatio, when positive, replaces every IPv4 block between /16 and /30
	// with its most likely online addresses, best first
	PrescanRatio float64
	// OnEvent observes the walk. It is called from several goroutines when
	// Concurrency is above one.
	OnEvent func(types.ScanEvent)
}

// NetworkScanner resolves the ranges to scan once and runs discovery walks over them
type NetworkScanner struct {
	topology Topology
	parser   *netrange.Parser

	mu         sync.RWMutex
	ready      bool
	localAddrs []netip.Addr
	ranges     []netrange.Range
	self       *netipx.IPSet
	blocked    *netipx.IPSet
}

// NewNetworkScanner returns a scanner reading the local machine through topology.
// A nil parser means netrange.DefaultParser.
func NewNetworkScanner(topology Topology, parser *netrange.Parser) *NetworkScanner {
	return &NetworkScanner{topology: topology, parser: parser}
}

// Initialize computes the local addresses and the ranges to scan from cfg.
// Calling it again recomputes both from scratch; on error the previous state is kept.
func (s *NetworkScanner) Initialize(ctx context.Context, cfg *types.ScanConfiguration) error {
	if cfg == nil {
		cfg = &types.ScanConfiguration{}
	}

	localAddrs, err := s.topology.LocalAddresses(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	if len(localAddrs) == 0 {
		return ErrInitialization
	}
	gologger.Debug().Msgf("Found local IP addresses: %v", localAddrs)

	var prefixes []netip.Prefix
	if cfg.LocalNetworkScan {
		prefixes, err = s.topology.InterfacePrefixes(ctx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInitialization, err)
		}
	}

	ranges, err := Resolve(ctx, cfg, localAddrs, prefixes, ResolveOptions{Parser: s.parser})
	if err != nil {
		return err
	}
	self, err := addressSet(localAddrs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInitialization, err)
	}
	blocked, err := BuildAddressSet(cfg.BlockedIPs, cfg.Policy())
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.localAddrs = localAddrs
	s.ranges = ranges
	s.self = self
	s.blocked = blocked
	s.ready = true
	return nil
}

// Ranges returns the resolved ranges in scan order
func (s *NetworkScanner) Ranges() []netrange.Range {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ranges)
}

// LocalAddresses returns the addresses of the scanning machine
func (s *NetworkScanner) LocalAddresses() []netip.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.localAddrs)
}

// Discover walks the resolved ranges with prober and yields live addresses
func (s *NetworkScanner) Discover(ctx context.Context, prober Prober, opts Options) (iter.Seq[netip.Addr], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, ErrNotInitialized
	}
	return Discover(ctx, s.ranges, prober, s.self, s.blocked, opts), nil
}

// Discover walks ranges in order and yields the addresses prober finds alive.
//
// Addresses in self or blocked are never probed. The walk stops right after the
// MaxResults-th live address, when the consumer stops ranging, or as soon as ctx
// is cancelled. Nothing happens until the sequence is ranged over.
func Discover(ctx context.Context, ranges []netrange.Range, prober Prober, self, blocked *netipx.IPSet, opts Options) iter.Seq[netip.Addr] {
	return func(yield func(netip.Addr) bool) {
		if opts.MaxResults <= 0 {
			return
		}

		events := eventSink(opts.OnEvent)
		walk := newWalker(prioritize(ranges, opts.PrescanRatio), events)
		ex := exclusions{self: self, blocked: blocked, events: events}

		if opts.Concurrency > 1 {
			discoverConcurrent(ctx, walk, ex, prober, opts, yield)
			return
		}

		found := 0
		for {
			if ctx.Err() != nil {
				gologger.Debug().Msgf("Discovery cancelled after %d live hosts", found)
				events.emit(types.EventCancelled, netip.Addr{}, nil, found)
				return
			}

			addr, r, ok := walk.next()
			if !ok {
				events.emit(types.EventCompleted, netip.Addr{}, nil, found)
				return
			}
			if ex.skip(addr, r) {
				continue
			}

			gologger.Verbose().Msgf("Probing %s", addr)
			events.emit(types.EventProbe, addr, r, found)
			alive := prober.IsAlive(ctx, addr)
			if ctx.Err() != nil {
				events.emit(types.EventCancelled, netip.Addr{}, nil, found)
				return
			}

			if alive {
				found++
				gologger.Debug().Msgf("Found live host: %s", addr)
				events.emit(types.EventAlive, addr, r, found)
				if !yield(addr) {
					return
				}
				if found >= opts.MaxResults {
					gologger.Debug().Msgf("Found max needed hosts (%d), stopping scan", found)
					events.emit(types.EventCapReached, netip.Addr{}, nil, found)
					return
				}
			}

			if !wait(ctx, opts.Delay) {
				events.emit(types.EventCancelled, netip.Addr{}, nil, found)
				return
			}
		}
	}
}

// wait sleeps for d and reports false when ctx ends first
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
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

func prioritize(ranges []netrange.Range, ratio float64) []netrange.Range {
	if ratio <= 0 {
		return ranges
	}

	out := make([]netrange.Range, 0, len(ranges))
	for _, r := range ranges {
		block, ok := r.(*netrange.CIDR)
		if !ok || block.Prefix().Bits() > 30 {
			out = append(out, r)
			continue
		}
		addrs, err := prescan.SelectIPs(block.Prefix(), ratio)
		if err != nil {
			gologger.Debug().Msgf("Walking %s in natural order: %s", block, err)
			out = append(out, r)
			continue
		}
		out = append(out, netrange.NewList(fmt.Sprintf("%s (prescan %.0f%%)", block, ratio*100), addrs))
	}
	return out
}
