// Package historian drains the game action queue into Postgres in batches.
package historian

import (
	"context"
	"sync"
	"time"

	"github.com/jason-s-yu/eights/internal/cache"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records. A nil record means nothing arrived in time.
type Source interface {
	PopGameAction(ctx context.Context, timeout time.Duration) (*cache.GameActionRecord, error)
}

// Sink persists a batch of records.
type Sink interface {
	InsertActions(ctx context.Context, records []cache.GameActionRecord) error
}

// Service accumulates records from Source and flushes them to Sink when the
// batch is full or FlushDelay has passed. While MaxPending records are
// unflushed it stops popping, leaving the rest queued in Redis.
type Service struct {
	Source      Source
	Sink        Sink
	BatchSize   int
	MaxPending  int
	FlushDelay  time.Duration
	PollTimeout time.Duration
	Logger      logrus.FieldLogger

	batchMu  sync.Mutex
	batch    []cache.GameActionRecord
	inflight int // records taken by a Flush that has not finished
}

// NewService builds a historian with sane defaults for zero values.
func NewService(src Source, sink Sink, batchSize int, flushDelay time.Duration, logger logrus.FieldLogger) *Service {
	if batchSize <= 0 {
		batchSize = 20
	}
	if flushDelay <= 0 {
		flushDelay = 500 * time.Millisecond
	}
	return &Service{
		Source:      src,
		Sink:        sink,
		BatchSize:   batchSize,
		MaxPending:  10 * batchSize,
		FlushDelay:  flushDelay,
		PollTimeout: time.Second,
		Logger:      logger,
		batch:       make([]cache.GameActionRecord, 0, batchSize),
	}
}

// Run reads until ctx is cancelled, then flushes what is left.
func (hs *Service) Run(ctx context.Context) {
	hs.Logger.Info("historian started")
	done := make(chan struct{})
	go func() {
		defer close(done)
		hs.flushLoop(ctx)
	}()

	for ctx.Err() == nil {
		if hs.MaxPending > 0 && hs.Pending() >= hs.MaxPending {
			select {
			case <-ctx.Done():
			case <-time.After(hs.FlushDelay):
			}
			continue
		}
		rec, err := hs.Source.PopGameAction(ctx, hs.PollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			hs.Logger.WithError(err).Warn("pop failed")
			select {
			case <-ctx.Done():
			case <-time.After(hs.PollTimeout):
			}
			continue
		}
		if rec != nil {
			hs.add(*rec)
		}
	}

	<-done
	// ctx is already cancelled; give the final flush its own deadline.
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hs.Flush(flushCtx)
	hs.Logger.Info("historian stopped")
}

func (hs *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.FlushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.Flush(ctx)
		}
	}
}

// add appends a record and flushes when the batch is full.
func (hs *Service) add(rec cache.GameActionRecord) {
	hs.batchMu.Lock()
	hs.batch = append(hs.batch, rec)
	full := len(hs.batch) >= hs.BatchSize
	hs.batchMu.Unlock()
	if full {
		hs.Flush(context.Background())
	}
}

// Flush writes the pending batch. On failure the records are put back for the next attempt.
func (hs *Service) Flush(ctx context.Context) {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return
	}
	pending := hs.batch
	hs.batch = make([]cache.GameActionRecord, 0, hs.BatchSize)
	hs.inflight += len(pending)
	hs.batchMu.Unlock()

	err := hs.Sink.InsertActions(ctx, pending)

	hs.batchMu.Lock()
	hs.inflight -= len(pending)
	if err != nil {
		hs.batch = append(pending, hs.batch...)
	}
	hs.batchMu.Unlock()

	if err != nil {
		hs.Logger.WithError(err).WithField("records", len(pending)).Error("flush failed")
		return
	}
	hs.Logger.WithField("records", len(pending)).Debug("flushed actions")
}

// Pending reports how many popped records are not yet stored, including any
// being written right now.
func (hs *Service) Pending() int {
	hs.batchMu.Lock()
	defer hs.batchMu.Unlock()
	return len(hs.batch) + hs.inflight
}
