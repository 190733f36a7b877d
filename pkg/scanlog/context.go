package scanlog

import (
	"time"

	"github.com/rs/xid"
)

// ScanContext identifies the discovery session events belong to
type ScanContext struct {
	SessionID string
	Prober    string
	StartTime time.Time
}

// NewScanContext creates a context with a fresh session id
func NewScanContext(prober string) *ScanContext {
	return &ScanContext{
		SessionID: xid.New().String(),
		Prober:    prober,
		StartTime: time.Now(),
	}
}

// WithProber returns a copy of the context for another prober of the same session
func (c *ScanContext) WithProber(prober string) *ScanContext {
	clone := *c
	clone.Prober = prober
	return &clone
}
