// Package netrange describes sets of addresses to scan.
//
// A Range is built from a single textual specification:
//   - CIDR block: "192.168.1.0/24" (IPv4 blocks up to /30 exclude network and broadcast)
//   - single address: "10.0.0.1"
//   - inclusive interval: "10.0.0.5-10.0.0.20"
//   - IPv4 wildcard: "10.0.*.*"
//   - hostname: "fileserver.corp" (resolved once, at parse time)
//
// Ranges are walked lazily through a pull-style Iterator, so large blocks never
// get expanded in memory.
package netrange

import (
	"fmt"
	"net/netip"

	"github.com/projectdiscovery/mapcidr"
	"go4.org/netipx"
)

// Range is a set of addresses described by a single specification
type Range interface {
	// String returns the specification the range was built from
	String() string
	// Contains reports whether addr belongs to the range
	Contains(addr netip.Addr) bool
	// Iterator returns a fresh iterator positioned before the first address
	Iterator() Iterator
}

// Iterator yields the addresses of a range in natural order.
// Next returns false once the range is exhausted.
type Iterator interface {
	Next() (netip.Addr, bool)
}

// CIDR is a block of addresses sharing a prefix
type CIDR struct {
	prefix netip.Prefix
	first  netip.Addr
	last   netip.Addr
}

// NewCIDR returns the range covering prefix. For IPv4 prefixes up to /30 the
// network and broadcast addresses are not part of the walk.
func NewCIDR(prefix netip.Prefix) *CIDR {
	prefix = prefix.Masked()
	first := prefix.Addr()
	last := netipx.PrefixLastIP(prefix)
	if first.Is4() && prefix.Bits() <= 30 {
		first = first.Next()
		last = last.Prev()
	}
	return &CIDR{prefix: prefix, first: first, last: last}
}

func (c *CIDR) String() string {
	return c.prefix.String()
}

// Prefix returns the masked prefix of the block
func (c *CIDR) Prefix() netip.Prefix {
	return c.prefix
}

// Contains reports membership in the whole block, network and broadcast included
func (c *CIDR) Contains(addr netip.Addr) bool {
	return c.prefix.Contains(addr.Unmap())
}

// Size returns the number of addresses in the block, saturated at the uint64 maximum
func (c *CIDR) Size() uint64 {
	return mapcidr.AddressCountIpnet(netipx.PrefixIPNet(c.prefix))
}

func (c *CIDR) Iterator() Iterator {
	return newSpanIterator(c.first, c.last)
}

// Interval is an inclusive span of addresses
type Interval struct {
	r netipx.IPRange
}

// NewInterval returns the range covering r
func NewInterval(r netipx.IPRange) *Interval {
	return &Interval{r: r}
}

func (i *Interval) String() string {
	return i.r.String()
}

func (i *Interval) Contains(addr netip.Addr) bool {
	return i.r.Contains(addr.Unmap())
}

func (i *Interval) Iterator() Iterator {
	return newSpanIterator(i.r.From(), i.r.To())
}

// Single is a range holding exactly one address, optionally named by a hostname
type Single struct {
	addr netip.Addr
	host string
}

// NewSingle returns a range with the sole address addr
func NewSingle(addr netip.Addr) *Single {
	return &Single{addr: addr.Unmap()}
}

// NewHost returns a range for a resolved hostname
func NewHost(host string, addr netip.Addr) *Single {
	return &Single{addr: addr.Unmap(), host: host}
}

func (s *Single) String() string {
	if s.host != "" {
		return fmt.Sprintf("%s (%s)", s.host, s.addr)
	}
	return s.addr.String()
}

func (s *Single) Contains(addr netip.Addr) bool {
	return s.addr == addr.Unmap()
}

func (s *Single) Iterator() Iterator {
	return newSpanIterator(s.addr, s.addr)
}

// List is an explicit, ordered list of addresses
type List struct {
	name  string
	addrs []netip.Addr
	set   map[netip.Addr]struct{}
}

// NewList returns a range walking addrs in the given order
func NewList(name string, addrs []netip.Addr) *List {
	set := make(map[netip.Addr]struct{}, len(addrs))
	for _, addr := range addrs {
		set[addr.Unmap()] = struct{}{}
	}
	return &List{name: name, addrs: addrs, set: set}
}

func (l *List) String() string {
	return l.name
}

func (l *List) Contains(addr netip.Addr) bool {
	_, ok := l.set[addr.Unmap()]
	return ok
}

func (l *List) Iterator() Iterator {
	return &listIterator{addrs: l.addrs}
}

type listIterator struct {
	addrs []netip.Addr
	pos   int
}

func (it *listIterator) Next() (netip.Addr, bool) {
	if it.pos >= len(it.addrs) {
		return netip.Addr{}, false
	}
	addr := it.addrs[it.pos]
	it.pos++
	return addr.Unmap(), true
}

// spanIterator walks every address between first and last, both inclusive
type spanIterator struct {
	next netip.Addr
	last netip.Addr
	done bool
}

func newSpanIterator(first, last netip.Addr) *spanIterator {
	it := &spanIterator{next: first, last: last}
	if !first.IsValid() || !last.IsValid() || first.Compare(last) > 0 {
		it.done = true
	}
	return it
}

func (it *spanIterator) Next() (netip.Addr, bool) {
	if it.done {
		return netip.Addr{}, false
	}
	addr := it.next
	if addr == it.last {
		it.done = true
	} else {
		it.next = addr.Next()
	}
	return addr, true
}
