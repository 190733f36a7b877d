package discovery

import (
	"context"
	"net/netip"
	"time"

	"github.com/projectdiscovery/gcache"
)

// DefaultReportedSize is the number of reported hosts a ReportedSet remembers
const DefaultReportedSize = 65536

// ReportedSet remembers the hosts already reported, so later discovery passes
// neither probe them again nor count them toward their result cap.
type ReportedSet struct {
	reported gcache.Cache[netip.Addr, struct{}]
}

// NewReportedSet returns an LRU set of hosts whose entries expire after ttl.
// A ttl of zero keeps entries until they are evicted.
func NewReportedSet(size int, ttl time.Duration) *ReportedSet {
	if size <= 0 {
		size = DefaultReportedSize
	}
	builder := gcache.New[netip.Addr, struct{}](size).LRU()
	if ttl > 0 {
		builder = builder.Expiration(ttl)
	}
	return &ReportedSet{reported: builder.Build()}
}

// Add records addr and reports whether it was not already known
func (s *ReportedSet) Add(addr netip.Addr) bool {
	if s.reported.Has(addr) {
		return false
	}
	_ = s.reported.Set(addr, struct{}{})
	return true
}

// Has reports whether addr was reported and has not expired yet
func (s *ReportedSet) Has(addr netip.Addr) bool {
	return s.reported.Has(addr)
}

// Filter wraps prober so known hosts are treated as down without being probed
func (s *ReportedSet) Filter(prober Prober) Prober {
	return ProberFunc(func(ctx context.Context, addr netip.Addr) bool {
		if s.reported.Has(addr) {
			return false
		}
		return prober.IsAlive(ctx, addr)
	})
}
