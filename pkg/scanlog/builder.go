package scanlog

import (
	"github.com/projectdiscovery/hostsweep/pkg/types"
)

// BuildLogEntry converts a discovery event to a log entry
func BuildLogEntry(event types.ScanEvent, scanContext *ScanContext) *types.ScanLogEntry {
	entry := &types.ScanLogEntry{
		SessionID:  scanContext.SessionID,
		Prober:     scanContext.Prober,
		Event:      string(event.Kind),
		Range:      event.Range,
		Discovered: event.Discovered,
	}
	if event.Address.IsValid() {
		entry.Target = event.Address.String()
	}
	entry.SetTimestamp(event.Time)
	entry.SetLogSeverity(logSeverity(event.Kind))
	return entry
}

// logSeverity mirrors the level the walk logs the event at
func logSeverity(kind types.EventKind) string {
	switch kind {
	case types.EventSkipBlocked, types.EventProbe:
		return "verbose"
	case types.EventSkipSelf:
		return "debug"
	case types.EventCancelled:
		return "warning"
	default:
		return "info"
	}
}
