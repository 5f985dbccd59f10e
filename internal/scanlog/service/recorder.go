package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"provenant/internal/scanlog/device"
	"provenant/internal/scanlog/metrics"
	"provenant/internal/scanlog/models"
	id "provenant/pkg/domain"
	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/circuit"
	"provenant/pkg/platform/ringbuffer"
	"provenant/pkg/platform/sentinel"
	"provenant/pkg/requestcontext"
)

// Appender is the write side of the scan log store.
type Appender interface {
	Append(ctx context.Context, scan *models.ScanLog) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Recorder appends scan logs without ever failing the caller. A failed write
// is queued and retried by Run; a run of failures opens the breaker so
// requests stop waiting on a store that is down.
type Recorder struct {
	store          Appender
	breaker        *circuit.Breaker
	buffer         *ringbuffer.RingBuffer[*models.ScanLog]
	attempts       int
	writeTimeout   time.Duration
	retryInterval  time.Duration
	batchSize      int
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	newID          func() id.ScanID
}

type RecorderOption func(*Recorder)

func WithRecorderLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithRecorderAuditPublisher(publisher AuditPublisher) RecorderOption {
	return func(r *Recorder) {
		r.auditPublisher = publisher
	}
}

func WithRecorderMetrics(m *metrics.Metrics) RecorderOption {
	return func(r *Recorder) {
		r.metrics = m
	}
}

func WithBreaker(b *circuit.Breaker) RecorderOption {
	return func(r *Recorder) {
		r.breaker = b
	}
}

// WithRetryBuffer sets how many failed writes are held for retry.
func WithRetryBuffer(capacity int) RecorderOption {
	return func(r *Recorder) {
		r.buffer = ringbuffer.New[*models.ScanLog](capacity)
	}
}

// WithAttempts bounds synchronous write attempts per scan.
func WithAttempts(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.attempts = n
		}
	}
}

func WithRetryInterval(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.retryInterval = d
		}
	}
}

func WithWriteTimeout(d time.Duration) RecorderOption {
	return func(r *Recorder) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

func WithScanIDGenerator(fn func() id.ScanID) RecorderOption {
	return func(r *Recorder) {
		r.newID = fn
	}
}

func NewRecorder(store Appender, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:         store,
		breaker:       circuit.New("scan_log", circuit.WithFailureThreshold(5), circuit.WithCooldown(10*time.Second)),
		buffer:        ringbuffer.New[*models.ScanLog](10000),
		attempts:      2,
		writeTimeout:  2 * time.Second,
		retryInterval: 5 * time.Second,
		batchSize:     100,
		newID:         func() id.ScanID { return id.ScanID(uuid.New()) },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record persists one scan and returns its id. Write failures are reported on
// the operational channel and queued; they never reach the caller.
func (r *Recorder) Record(ctx context.Context, entry models.Entry) id.ScanID {
	scanID := r.newID()
	scan, err := models.NewScanLog(scanID, entry, device.Parse(entry.UserAgent))
	if err != nil {
		r.reportFailure(ctx, scanID, entry.Outcome, err, "invalid scan entry")
		return scanID
	}

	// The verification response may finish before the write does.
	writeCtx := context.WithoutCancel(ctx)

	if r.breaker.Allow() {
		for range r.attempts {
			if err = r.write(writeCtx, scan); err == nil {
				r.recordSuccess()
				r.metrics.IncrementRecorded(string(scan.Outcome))
				return scanID
			}
		}
		r.recordFailure()
	} else {
		err = errors.New("scan log store circuit open")
	}

	r.reportFailure(ctx, scanID, scan.Outcome, err, "scan log write failed, queued for retry")
	r.enqueue(ctx, scan)
	return scanID
}

func (r *Recorder) write(ctx context.Context, scan *models.ScanLog) error {
	ctx, cancel := context.WithTimeout(ctx, r.writeTimeout)
	defer cancel()
	err := r.store.Append(ctx, scan)
	if errors.Is(err, sentinel.ErrConflict) {
		// An earlier attempt landed before its acknowledgement was lost.
		return nil
	}
	return err
}

func (r *Recorder) enqueue(ctx context.Context, scan *models.ScanLog) {
	if dropped := r.buffer.Enqueue(scan); dropped {
		r.metrics.IncrementDropped()
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "scan log retry buffer full, oldest entry dropped")
		}
	}
	r.metrics.SetPending(r.buffer.Len())
}

// Run drains the retry buffer until ctx is cancelled, then makes a final attempt.
func (r *Recorder) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.retryInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Flush(context.WithoutCancel(ctx))
			return nil
		case <-ticker.C:
			r.Flush(ctx)
		}
	}
}

// Flush retries queued scans until the buffer is empty or a write fails.
func (r *Recorder) Flush(ctx context.Context) int {
	written := 0
	defer func() { r.metrics.SetPending(r.buffer.Len()) }()
	for r.breaker.Allow() {
		batch := r.buffer.DequeueBatch(r.batchSize)
		if len(batch) == 0 {
			return written
		}
		for i, scan := range batch {
			if err := r.write(ctx, scan); err != nil {
				r.recordFailure()
				for _, pending := range batch[i:] {
					r.enqueue(ctx, pending)
				}
				if r.logger != nil {
					r.logger.WarnContext(ctx, "scan log retry failed, requeued",
						"pending", len(batch)-i,
						"error", err,
					)
				}
				return written
			}
			r.recordSuccess()
			r.metrics.IncrementRetried()
			r.metrics.IncrementRecorded(string(scan.Outcome))
			written++
		}
	}
	return written
}

// Pending returns the number of queued scans.
func (r *Recorder) Pending() int {
	return r.buffer.Len()
}

func (r *Recorder) recordSuccess() {
	if _, change := r.breaker.RecordSuccess(); change.Closed {
		r.metrics.SetBreakerOpen(false)
		if r.logger != nil {
			r.logger.Info("scan log store recovered, circuit closed")
		}
	}
}

func (r *Recorder) recordFailure() {
	if _, change := r.breaker.RecordFailure(); change.Opened {
		r.metrics.SetBreakerOpen(true)
		if r.logger != nil {
			r.logger.Error("scan log store failing, circuit opened")
		}
	}
}

func (r *Recorder) reportFailure(ctx context.Context, scanID id.ScanID, outcome models.Outcome, err error, msg string) {
	r.metrics.IncrementWriteFailure()
	if r.logger != nil {
		r.logger.ErrorContext(ctx, msg,
			"scan_id", scanID.String(),
			"outcome", string(outcome),
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	if r.auditPublisher == nil {
		return
	}
	// Ops events are best-effort.
	_ = r.auditPublisher.Emit(ctx, audit.Event{
		Subject:   scanID.String(),
		Action:    string(audit.EventScanLogWriteFailed),
		Reason:    err.Error(),
		IP:        requestcontext.ClientIP(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: requestcontext.Now(ctx),
		Severity:  audit.SeverityWarning,
	})
}
