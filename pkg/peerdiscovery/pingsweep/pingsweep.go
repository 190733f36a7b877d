package pingsweep

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/projectdiscovery/gologger"
	mapsutil "github.com/projectdiscovery/utils/maps"
	"golang.org/x/net/icmp"
)

// Options tunes echo probing
type Options struct {
	// Timeout is the wait for a reply to one request
	Timeout time.Duration
	// Retries is the number of extra requests sent after a timeout
	Retries int
}

// DefaultOptions matches the usual ping command timing
var DefaultOptions = Options{Timeout: 2 * time.Second, Retries: 1}

// ErrClosed is returned when probing through a closed Prober
var ErrClosed = errors.New("prober closed")

// Prober checks liveness with ICMP echo requests
type Prober struct {
	options Options
	id      int
	seq     atomic.Uint32
	pending *mapsutil.SyncLockMap[int, *pendingPing]

	mu     sync.Mutex
	conns  map[bool]net.PacketConn
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// pendingPing tracks a sent request waiting for its reply
type pendingPing struct {
	Addr  netip.Addr
	Start time.Time
	Seq   int
	reply chan struct{}
}

// NewProber opens the IPv4 socket right away, so missing privileges surface here.
// The IPv6 socket is opened on the first IPv6 target.
func NewProber(options Options) (*Prober, error) {
	if options.Timeout <= 0 {
		options.Timeout = DefaultOptions.Timeout
	}
	p := &Prober{
		options: options,
		id:      os.Getpid() & 0xffff,
		pending: mapsutil.NewSyncLockMap[int, *pendingPing](),
		conns:   make(map[bool]net.PacketConn),
		done:    make(chan struct{}),
	}
	if _, err := p.conn(false); err != nil {
		return nil, err
	}
	return p, nil
}

// IsAlive sends echo requests to addr until one is answered or all attempts time out
func (p *Prober) IsAlive(ctx context.Context, addr netip.Addr) bool {
	addr = addr.Unmap()
	conn, err := p.conn(addr.Is6())
	if err != nil {
		gologger.Debug().Msgf("icmp: %s", err)
		return false
	}

	for attempt := 0; attempt <= p.options.Retries; attempt++ {
		if ctx.Err() != nil {
			return false
		}

		pending := &pendingPing{Addr: addr, Start: time.Now(), Seq: p.nextSeq(), reply: make(chan struct{}, 1)}
		_ = p.pending.Set(pending.Seq, pending)

		if err := sendPing(conn, addr, p.id, pending.Seq); err != nil {
			p.pending.Delete(pending.Seq)
			gologger.Debug().Msgf("icmp: could not ping %s: %s", addr, err)
			return false
		}

		alive, stop := p.await(ctx, pending)
		p.pending.Delete(pending.Seq)
		if alive {
			gologger.Debug().Msgf("icmp: %s replied in %s", addr, time.Since(pending.Start))
			return true
		}
		if stop {
			return false
		}
	}
	return false
}

// await reports whether the reply arrived, and whether probing must stop
func (p *Prober) await(ctx context.Context, pending *pendingPing) (alive, stop bool) {
	timer := time.NewTimer(p.options.Timeout)
	defer timer.Stop()

	select {
	case <-pending.reply:
		return true, false
	case <-timer.C:
		return false, false
	case <-ctx.Done():
		return false, true
	case <-p.done:
		return false, true
	}
}

func (p *Prober) nextSeq() int {
	return int(p.seq.Add(1) & 0xffff)
}

// conn returns the socket of the family, opening it and its receiver on first use
func (p *Prober) conn(isIPv6 bool) (net.PacketConn, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	if conn, ok := p.conns[isIPv6]; ok {
		return conn, nil
	}

	conn, err := createSharedICMPConnection(isIPv6)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared ICMP connection: %w", err)
	}
	p.conns[isIPv6] = conn

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.receiveReplies(conn, isIPv6)
	}()
	return conn, nil
}

// deliver wakes the request matching an echo reply from addr
func (p *Prober) deliver(from netip.Addr, id, seq int) bool {
	if id != p.id {
		return false
	}
	pending, ok := p.pending.Get(seq)
	if !ok || pending.Addr.WithZone("") != from.Unmap().WithZone("") {
		return false
	}
	select {
	case pending.reply <- struct{}{}:
	default:
	}
	return true
}

// Close stops the receivers and releases the sockets
func (p *Prober) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.done)
	var errs []error
	for _, conn := range p.conns {
		errs = append(errs, conn.Close())
	}
	p.mu.Unlock()

	p.wg.Wait()
	return errors.Join(errs...)
}

func createSharedICMPConnection(isIPv6 bool) (net.PacketConn, error) {
	if isIPv6 {
		return icmp.ListenPacket("ip6:ipv6-icmp", "::")
	}
	return icmp.ListenPacket("ip4:icmp", "0.0.0.0")
}
