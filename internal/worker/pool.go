// Package worker implements the buffered worker pool that writes the ingest
// audit trail. This decouples report handling from ClickHouse writes, providing:
// - Load shedding when the queue is full, so ingestion never blocks
// - Batch inserts for efficient ClickHouse writes
// - Graceful shutdown with flush guarantees
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/dowstats/ladder-api/internal/models"
)

// Prometheus metrics
var (
	auditEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dowstats_audit_enqueued_total",
		Help: "Total number of audit rows accepted by the queue",
	})

	auditWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dowstats_audit_written_total",
		Help: "Total number of audit rows written to ClickHouse",
	})

	auditFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dowstats_audit_failed_total",
		Help: "Total number of audit rows lost to failed batches",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dowstats_audit_queue_depth",
		Help: "Current depth of the audit queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dowstats_batch_insert_duration_seconds",
		Help:    "Duration of batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})

	auditLoadShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dowstats_audit_load_shed_total",
		Help: "Total number of audit rows dropped due to load shedding",
	})
)

const insertAudit = `
	INSERT INTO dowstats.ingest_reports (
		request_id, received_at, endpoint, sender_sid, map, type, mod,
		game_time, win_by, outcome, game_id, degraded
	)
`

// BatchConn is the part of the ClickHouse connection used by the pool
type BatchConn interface {
	PrepareBatch(ctx context.Context, query string, opts ...driver.PrepareBatchOption) (driver.Batch, error)
}

// Job represents a unit of work for the worker pool
type Job struct {
	Audit     *models.IngestAudit
	Timestamp time.Time
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	ClickHouse    BatchConn
	Logger        *zap.Logger
}

// Pool manages a pool of workers writing audit rows in batches
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
	stopOnce sync.Once
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	// Start queue depth reporter
	go p.reportQueueDepth()

	p.logger.Infow("Worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop closes the queue, waits for the workers to flush what is left and
// then stops the depth reporter.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool...")
		close(p.jobQueue)
		p.wg.Wait()
		if p.cancel != nil {
			p.cancel()
		}
		p.logger.Info("Worker pool stopped")
	})
}

// Enqueue adds an audit row to the queue. It never blocks: when the queue is
// full the row is dropped and false is returned.
func (p *Pool) Enqueue(audit *models.IngestAudit) (ok bool) {
	job := Job{
		Audit:     audit,
		Timestamp: time.Now(),
	}

	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue audit row (pool stopped)", "error", r)
			ok = false
		}
	}()

	select {
	case p.jobQueue <- job:
		auditEnqueued.Inc()
		return true
	default:
		auditLoadShed.Inc()
		return false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

// worker processes jobs from the queue in batches
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]Job, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		if err := p.processBatch(batch); err != nil {
			p.logger.Errorw("Batch processing failed",
				"worker", id,
				"batchSize", len(batch),
				"error", err,
			)
			auditFailed.Add(float64(len(batch)))
		} else {
			auditWritten.Add(float64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())

		batch = batch[:0]
	}

	for {
		select {
		case job, ok := <-p.jobQueue:
			if !ok {
				// Channel closed, flush remaining
				flush()
				return
			}

			batch = append(batch, job)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-p.ctx.Done():
			p.logger.Infow("Context done, flushing final batch", "worker", id)
			flush()
			return
		}
	}
}

// processBatch writes a batch of audit rows in a single insert
func (p *Pool) processBatch(batch []Job) error {
	if len(batch) == 0 {
		return nil
	}

	// The pool context may already be canceled during shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	chBatch, err := p.config.ClickHouse.PrepareBatch(ctx, insertAudit)
	if err != nil {
		return err
	}

	for _, job := range batch {
		a := job.Audit
		receivedAt := a.ReceivedAt
		if receivedAt.IsZero() {
			receivedAt = job.Timestamp
		}
		degraded := a.Degraded
		if degraded == nil {
			degraded = []string{}
		}

		err := chBatch.Append(
			parseOrGenerateUUID(a.RequestID),
			receivedAt,
			a.Endpoint,
			a.SenderSID,
			a.Map,
			clampUint8(a.Type),
			a.Mod,
			clampUint32(a.GameTime),
			a.WinBy,
			a.Outcome,
			a.GameID,
			degraded,
		)
		if err != nil {
			p.logger.Warnw("Failed to append audit row to batch", "error", err, "request_id", a.RequestID)
			continue
		}
	}

	if err := chBatch.Send(); err != nil {
		p.logger.Errorw("Failed to send batch to ClickHouse", "error", err, "batchSize", len(batch))
		return err
	}
	return nil
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}

// Helper functions

// parseOrGenerateUUID keeps uuid request ids and maps any other id
// (chi's "host/prefix-000001" format, or none) to a uuid.
func parseOrGenerateUUID(s string) uuid.UUID {
	if s == "" {
		return uuid.New()
	}
	if id, err := uuid.Parse(s); err == nil {
		return id
	}
	// Generate deterministic UUID from string
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(s))
}

func clampUint8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func clampUint32(v int) uint32 {
	if v < 0 {
		return 0
	}
	return uint32(v)
}
