// Package tcpconnect decides whether hosts are alive by connecting to a list of TCP
// ports. A completed handshake or a refused connection both prove a host answers.
//
// No privileges are needed, so this prober works everywhere ICMP raw sockets are
// not available. Filtered ports look the same as a missing host.
package tcpconnect

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/projectdiscovery/gologger"
	sliceutil "github.com/projectdiscovery/utils/slice"
)

// DefaultPorts are services commonly exposed by hosts worth acting on
var DefaultPorts = []int{22, 2222, 445, 135, 3389, 80, 8080, 443, 8008, 3306, 9200}

// DefaultTimeout bounds every connection attempt
const DefaultTimeout = 500 * time.Millisecond

// ErrInvalidPort is returned by ParsePorts for entries outside 1-65535
var ErrInvalidPort = errors.New("invalid port")

// Prober connects to Ports in order and stops at the first answer
type Prober struct {
	Ports   []int
	Timeout time.Duration
	// RefusedIsAlive counts a reset as an answer
	RefusedIsAlive bool

	dial func(ctx context.Context, network, address string) (net.Conn, error)
}

// NewProber returns a prober for ports, DefaultPorts when empty
func NewProber(ports []int, timeout time.Duration) *Prober {
	if len(ports) == 0 {
		ports = DefaultPorts
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	dialer := &net.Dialer{Timeout: timeout}
	return &Prober{
		Ports:          ports,
		Timeout:        timeout,
		RefusedIsAlive: true,
		dial:           dialer.DialContext,
	}
}

func (p *Prober) IsAlive(ctx context.Context, addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, port := range p.Ports {
		if ctx.Err() != nil {
			return false
		}

		target := netip.AddrPortFrom(addr, uint16(port)).String()
		conn, err := p.dial(ctx, "tcp", target)
		if err == nil {
			_ = conn.Close()
			gologger.Debug().Msgf("tcp: %s is open", target)
			return true
		}
		if p.RefusedIsAlive && errors.Is(err, syscall.ECONNREFUSED) {
			gologger.Debug().Msgf("tcp: %s refused the connection", target)
			return true
		}
	}
	return false
}

// ParsePorts turns entries like "22", "8000-8010" into a de-duplicated port list
func ParsePorts(entries []string) ([]int, error) {
	var ports []int
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		from, to, isRange := strings.Cut(entry, "-")
		if !isRange {
			to = from
		}
		low, err := parsePort(from)
		if err != nil {
			return nil, err
		}
		high, err := parsePort(to)
		if err != nil {
			return nil, err
		}
		if low > high {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPort, entry)
		}
		for port := low; port <= high; port++ {
			ports = append(ports, port)
		}
	}
	return sliceutil.Dedupe(ports), nil
}

func parsePort(value string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPort, value)
	}
	return port, nil
}
