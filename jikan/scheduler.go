package jikan

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"anidex/config"
	"anidex/models"
)

// Thunk performs one upstream HTTP call when invoked.
type Thunk func() (*models.Page, error)

type settled struct {
	page *models.Page
	err  error
}

// pending is one queued unit of work: the request thunk paired with the
// channel that settles it.
type pending struct {
	run  Thunk
	done chan settled
}

// Scheduler serializes all outbound upstream calls so dispatches never
// exceed the configured rate, and transparently retries calls the
// upstream rejects with a throttling signal. It is the single
// serialization point for upstream traffic: at most one request is in
// flight at a time, regardless of how many callers schedule
// concurrently.
type Scheduler struct {
	interval    time.Duration
	backoffBase time.Duration
	backoffMax  time.Duration
	clock       Clock
	jitter      func() float64
	metrics     *Metrics
	logger      *slog.Logger

	mu       sync.Mutex
	queue    []*pending
	draining bool
	last     time.Time
}

// NewScheduler builds a scheduler configured from cfg.
func NewScheduler(cfg *config.Config, metrics *Metrics, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		interval:    cfg.MinInterval(),
		backoffBase: cfg.BackoffBase,
		backoffMax:  cfg.BackoffMax,
		clock:       systemClock{},
		jitter:      rand.Float64,
		metrics:     metrics,
		logger:      logger,
	}
}

// WithClock substitutes the wall clock. Intended for tests.
func (s *Scheduler) WithClock(clock Clock) *Scheduler {
	s.clock = clock
	return s
}

// Schedule appends the request to the queue and blocks until it
// settles. Requests are dispatched in FIFO order; a request rejected
// with a throttling signal is reinserted at the queue front and retried
// after a backoff delay, indefinitely, so it always runs before work
// that arrived later. Any other failure settles the request with that
// error.
func (s *Scheduler) Schedule(run Thunk) (*models.Page, error) {
	p := &pending{run: run, done: make(chan settled, 1)}

	s.mu.Lock()
	s.queue = append(s.queue, p)
	s.metrics.SetQueueDepth(len(s.queue))
	start := !s.draining
	if start {
		s.draining = true
	}
	s.mu.Unlock()

	if start {
		go s.drain()
	}

	res := <-p.done
	return res.page, res.err
}

// drain is the single active loop dispatching queued work. It exits
// when the queue empties; the next Schedule call starts a fresh one.
func (s *Scheduler) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		p := s.queue[0]
		s.queue = s.queue[1:]
		s.metrics.SetQueueDepth(len(s.queue))
		elapsed := s.clock.Now().Sub(s.last)
		s.mu.Unlock()

		if wait := s.interval - elapsed; wait > 0 {
			s.clock.Sleep(wait)
		}

		s.mu.Lock()
		s.last = s.clock.Now()
		s.mu.Unlock()

		page, err := p.run()
		if err != nil {
			if IsRateLimited(err) {
				delay := s.backoff()
				s.logger.Warn("upstream throttled, backing off",
					slog.Duration("delay", delay),
				)
				s.metrics.IncThrottled()
				s.clock.Sleep(delay)

				s.mu.Lock()
				s.queue = append([]*pending{p}, s.queue...)
				s.metrics.SetQueueDepth(len(s.queue))
				s.mu.Unlock()
				s.metrics.IncRetries()
				continue
			}
			p.done <- settled{err: err}
			continue
		}
		p.done <- settled{page: page}
	}
}

// backoff returns a randomized delay in [base, 2*base), capped. The
// sub-linear jitter deliberately does not grow with consecutive
// rejections; it matches the spacing the upstream is known to tolerate.
func (s *Scheduler) backoff() time.Duration {
	delay := time.Duration(float64(s.backoffBase) * math.Pow(2, s.jitter()))
	if delay > s.backoffMax {
		delay = s.backoffMax
	}
	return delay
}
