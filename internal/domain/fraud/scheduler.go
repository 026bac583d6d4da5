package fraud

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/gurugsv7/frauddetection/internal/domain/claims"
)

// Lifecycle is the slice of the claims service the scheduler needs: load a
// claim and feed the analysis result back through the serialized apply path.
type Lifecycle interface {
	GetClaim(ctx context.Context, id string) (*claims.Claim, error)
	ApplyAnalysis(ctx context.Context, id string, result claims.AnalysisResult) error
}

// Scheduler runs fraud analysis in the background: a bounded queue of claim
// ids drained by a fixed pool of workers. Enqueue never blocks the caller;
// when the queue is full the claim is dropped (it stays visible to reviewers
// unscored and can be rescored later). In-flight analysis is never cancelled
// by Stop, only by the context given to Start.
type Scheduler struct {
	analyzer  Analyzer
	lifecycle Lifecycle
	logger    zerolog.Logger

	queue   chan string
	workers int

	mu      sync.Mutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func NewScheduler(analyzer Analyzer, lifecycle Lifecycle, workers, queueSize int, logger zerolog.Logger) *Scheduler {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	return &Scheduler{
		analyzer:  analyzer,
		lifecycle: lifecycle,
		logger:    logger,
		queue:     make(chan string, queueSize),
		workers:   workers,
	}
}

// Start launches the worker pool. The context bounds all analysis work.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	s.logger.Info().Int("workers", s.workers).Int("queue_size", cap(s.queue)).
		Msg("fraud analysis scheduler started")
}

// Stop closes the queue and waits for the workers to drain it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped || !s.started {
		s.stopped = true
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.queue)
	s.mu.Unlock()

	s.wg.Wait()
	s.logger.Info().Msg("fraud analysis scheduler stopped")
}

// Enqueue implements claims.AnalysisQueue. It reports false when the queue
// is full or the scheduler has stopped.
func (s *Scheduler) Enqueue(claimID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	select {
	case s.queue <- claimID:
		return true
	default:
		return false
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id, ok := <-s.queue:
			if !ok {
				return
			}
			s.analyze(ctx, id)
		}
	}
}

func (s *Scheduler) analyze(ctx context.Context, id string) {
	c, err := s.lifecycle.GetClaim(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("claim_id", id).Msg("loading claim for analysis")
		return
	}
	if c.Status.IsTerminal() {
		return
	}

	result := s.analyzer.Analyze(ctx, c)
	if err := s.lifecycle.ApplyAnalysis(ctx, id, result); err != nil {
		s.logger.Error().Err(err).Str("claim_id", id).Msg("applying analysis result")
		return
	}
	s.logger.Info().Str("claim_id", id).Int("score", result.Score).
		Str("risk_level", string(result.RiskLevel)).Msg("claim analyzed")
}
