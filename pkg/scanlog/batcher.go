package scanlog

import (
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/projectdiscovery/gologger"
	"github.com/projectdiscovery/hostsweep/pkg/types"
	"github.com/projectdiscovery/utils/batcher"
	envutil "github.com/projectdiscovery/utils/env"
)

var (
	// Default number of entries written at once
	DefaultBatchSize = 100
	// Default interval between writes
	DefaultFlushInterval = 5 * time.Second
)

// GetBatchSize returns the batch size from environment or default
func GetBatchSize() int {
	envVal := envutil.GetEnvOrDefault("HOSTSWEEP_LOG_BATCH_SIZE", "")
	if envVal != "" {
		if size, err := strconv.Atoi(envVal); err == nil && size > 0 {
			return size
		}
	}
	return DefaultBatchSize
}

// GetFlushInterval returns the flush interval from environment or default
func GetFlushInterval() time.Duration {
	envVal := envutil.GetEnvOrDefault("HOSTSWEEP_LOG_FLUSH_INTERVAL", "")
	if envVal != "" {
		if interval, err := strconv.Atoi(envVal); err == nil && interval > 0 {
			return time.Duration(interval) * time.Second
		}
	}
	return DefaultFlushInterval
}

// Recorder writes discovery events as JSON lines, in batches
type Recorder struct {
	scanContext *ScanContext
	batcher     *batcher.Batcher[types.ScanLogEntry]

	mu      sync.Mutex
	encoder *json.Encoder

	// state guards closed; events arriving after Close are dropped
	state  sync.RWMutex
	closed bool
}

// NewRecorder starts a recorder writing to w
func NewRecorder(w io.Writer, scanContext *ScanContext) *Recorder {
	r := &Recorder{scanContext: scanContext, encoder: json.NewEncoder(w)}
	r.batcher = batcher.New(
		batcher.WithMaxCapacity[types.ScanLogEntry](GetBatchSize()),
		batcher.WithFlushInterval[types.ScanLogEntry](GetFlushInterval()),
		batcher.WithFlushCallback[types.ScanLogEntry](r.write),
	)

	go r.batcher.Run()
	return r
}

// Record queues event; it is safe for concurrent use and can be passed as an event observer
func (r *Recorder) Record(event types.ScanEvent) {
	r.RecordFor(r.scanContext, event)
}

// RecordFor queues event under another context of the session
func (r *Recorder) RecordFor(scanContext *ScanContext, event types.ScanEvent) {
	entry := BuildLogEntry(event, scanContext)
	if err := entry.Validate(); err != nil {
		gologger.Debug().Msgf("Dropping scan event: %s", err)
		return
	}

	r.state.RLock()
	defer r.state.RUnlock()
	if r.closed {
		return
	}
	r.batcher.Append(*entry)
}

// Observer returns an event observer recording under the given prober name
func (r *Recorder) Observer(prober string) func(types.ScanEvent) {
	scanContext := r.scanContext.WithProber(prober)
	return func(event types.ScanEvent) {
		r.RecordFor(scanContext, event)
	}
}

func (r *Recorder) write(entries []types.ScanLogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range entries {
		if err := r.encoder.Encode(entry); err != nil {
			gologger.Error().Msgf("Failed to write scan event: %s", err)
			return
		}
	}
}

// Close flushes pending entries and stops the recorder
func (r *Recorder) Close() {
	r.state.Lock()
	if r.closed {
		r.state.Unlock()
		return
	}
	r.closed = true
	r.state.Unlock()

	r.batcher.Stop()
	r.batcher.WaitDone()
}
