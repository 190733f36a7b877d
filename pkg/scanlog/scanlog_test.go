package scanlog

import (
	"bytes"
	"net/netip"
	"strings"
	"testing"
	"time"

	"github.com/projectdiscovery/hostsweep/pkg/types"
	"github.com/tidwall/gjson"
)

func TestBuildLogEntry(t *testing.T) {
	sc := &ScanContext{SessionID: "session", Prober: "icmp"}
	at := time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name         string
		event        types.ScanEvent
		wantTarget   string
		wantSeverity string
	}{
		{
			name:         "alive",
			event:        types.ScanEvent{Kind: types.EventAlive, Address: netip.MustParseAddr("10.0.0.2"), Range: "10.0.0.0/30", Discovered: 1, Time: at},
			wantTarget:   "10.0.0.2",
			wantSeverity: "info",
		},
		{
			name:         "blocked skip is quieter",
			event:        types.ScanEvent{Kind: types.EventSkipBlocked, Address: netip.MustParseAddr("10.0.0.1"), Time: at},
			wantTarget:   "10.0.0.1",
			wantSeverity: "verbose",
		},
		{
			name:         "self skip",
			event:        types.ScanEvent{Kind: types.EventSkipSelf, Address: netip.MustParseAddr("10.0.0.3"), Time: at},
			wantTarget:   "10.0.0.3",
			wantSeverity: "debug",
		},
		{
			name:         "terminal events have no target",
			event:        types.ScanEvent{Kind: types.EventCapReached, Discovered: 5, Time: at},
			wantSeverity: "info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := BuildLogEntry(tt.event, sc)
			if err := entry.Validate(); err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if entry.Target != tt.wantTarget {
				t.Errorf("Target = %q, want %q", entry.Target, tt.wantTarget)
			}
			if entry.LogSeverity != tt.wantSeverity {
				t.Errorf("LogSeverity = %q, want %q", entry.LogSeverity, tt.wantSeverity)
			}
			if entry.Timestamp != "2026-05-04T10:30:00Z" || entry.Event != string(tt.event.Kind) {
				t.Errorf("unexpected entry %+v", entry)
			}
		})
	}
}

func TestRecorder(t *testing.T) {
	t.Setenv("HOSTSWEEP_LOG_BATCH_SIZE", "2")

	var out bytes.Buffer
	sc := NewScanContext("icmp")
	recorder := NewRecorder(&out, sc)

	recorder.Record(types.ScanEvent{Kind: types.EventRangeStart, Range: "10.0.0.0/30", Time: time.Now()})
	recorder.Record(types.ScanEvent{Kind: types.EventAlive, Address: netip.MustParseAddr("10.0.0.2"), Discovered: 1, Time: time.Now()})
	recorder.Observer("tcp")(types.ScanEvent{Kind: types.EventCompleted, Discovered: 1, Time: time.Now()})
	recorder.Close()
	recorder.Close()
	recorder.Record(types.ScanEvent{Kind: types.EventProbe, Address: netip.MustParseAddr("10.0.0.3"), Time: time.Now()})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), out.String())
	}
	for _, line := range lines {
		if !gjson.Valid(line) {
			t.Fatalf("invalid JSON line %q", line)
		}
		if gjson.Get(line, "session_id").String() != sc.SessionID {
			t.Errorf("session id missing from %s", line)
		}
	}
	if got := gjson.Get(lines[1], "target").String(); got != "10.0.0.2" {
		t.Errorf("target = %q", got)
	}
	if got := gjson.Get(lines[2], "prober").String(); got != "tcp" {
		t.Errorf("prober = %q, want tcp", got)
	}
}

func TestGetBatchSize(t *testing.T) {
	t.Setenv("HOSTSWEEP_LOG_BATCH_SIZE", "not-a-number")
	if got := GetBatchSize(); got != DefaultBatchSize {
		t.Errorf("GetBatchSize() = %d, want default", got)
	}
	t.Setenv("HOSTSWEEP_LOG_FLUSH_INTERVAL", "2")
	if got := GetFlushInterval(); got != 2*time.Second {
		t.Errorf("GetFlushInterval() = %s, want 2s", got)
	}
}
