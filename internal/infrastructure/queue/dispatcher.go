package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamdb/yamdb-api/internal/api/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// RatingRefresher recomputes the stored rating of one title.
type RatingRefresher interface {
	RecalculateRating(ctx context.Context, titleID int64) error
}

// Dispatcher routes rating refreshes to a fixed set of workers using
// consistent hashing on the title id, so refreshes of one title never run
// concurrently and apply in enqueue order.
type Dispatcher struct {
	workers []chan int64
	ratings RatingRefresher
	log     zerolog.Logger

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, ratings RatingRefresher, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan int64, numWorkers),
		ratings: ratings,
		log:     log,
		done:    make(chan struct{}),
	}
	for i := range d.workers {
		d.workers[i] = make(chan int64, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
	go func() {
		<-ctx.Done()
		d.stopOnce.Do(func() { close(d.done) })
	}()
}

// Wait blocks until every worker has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue schedules a refresh of titleID on the worker that owns it. It
// blocks while that worker's buffer is full and drops the refresh once the
// dispatcher has stopped.
func (d *Dispatcher) Enqueue(titleID int64) {
	idx := d.shardIndex(titleID)
	select {
	case d.workers[idx] <- titleID:
		metrics.RatingQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
	case <-d.done:
		d.log.Warn().Int64("title_id", titleID).Msg("rating dispatcher stopped, refresh dropped")
	}
}

// shardIndex maps a title id deterministically to a worker index.
func (d *Dispatcher) shardIndex(titleID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(titleID, 10)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan int64) {
	defer d.wg.Done()
	depth := metrics.RatingQueueDepth.WithLabelValues(strconv.Itoa(id))

	for {
		select {
		case <-ctx.Done():
			return
		case titleID := <-ch:
			depth.Dec()

			start := time.Now()
			result := "ok"
			if err := d.ratings.RecalculateRating(ctx, titleID); err != nil {
				result = "error"
				d.log.Error().Err(err).
					Int64("title_id", titleID).
					Int("worker_id", id).
					Msg("rating refresh failed")
			}
			metrics.RatingRefreshDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
		}
	}
}
