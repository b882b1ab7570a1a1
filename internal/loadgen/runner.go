package loadgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/stagepay/internal/domain/competition"
	"github.com/okian/stagepay/internal/domain/types"
	"github.com/okian/stagepay/pkg/logger"
)

// Backpressure retry schedule.
const (
	maxSubmitAttempts = 5
	retryBackoff      = 20 * time.Millisecond
)

// Option configures a Runner.
type Option func(*Runner)

// WithHTTPClient overrides the HTTP client; its timeout is left as given.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Runner) {
		if hc != nil {
			r.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.log = l
		}
	}
}

// WithOutput sets where tables are rendered.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}

// Runner executes load runs against one service.
type Runner struct {
	cfg        Config
	httpClient *http.Client
	client     *Client
	log        logger.Logger
	out        io.Writer
	now        func() time.Time
}

// NewRunner validates cfg and builds a runner.
func NewRunner(cfg Config, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &Runner{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		out:        os.Stdout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get().Named("loadgen")
	}
	r.client = NewClient(cfg.BaseURL, r.httpClient)
	return r, nil
}

// Report is the outcome of a run.
type Report struct {
	CompetitionID string
	Participants  []string
	Stats         Stats
	Standings     types.Standings
	Expected      competition.Ranking
	Mismatches    []string
	Finalized     *FinalizeResult
}

// Verified reports whether the served standings matched.
func (r *Report) Verified() bool { return len(r.Mismatches) == 0 }

// Run executes one load run and renders its report. It returns ErrMismatch
// when the standings disagree with the local ranking; the report is
// returned either way once standings were fetched.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	cfg := r.cfg

	if err := r.client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check: %w", err)
	}

	name := cfg.Name
	if name == "" {
		name = "loadgen-" + uuid.NewString()[:8]
	}
	roster := Participants(cfg.Participants)
	id, err := r.client.CreateCompetition(ctx, name, cfg.PrizePool, roster)
	if err != nil {
		return nil, fmt.Errorf("create competition: %w", err)
	}
	r.log.Info(ctx, "competition created",
		logger.String("competition_id", id),
		logger.Int("participants", len(roster)))

	rep := &Report{CompetitionID: id, Participants: roster}

	seed := cfg.Seed
	if seed == 0 {
		seed = uint64(r.now().UnixNano())
	}
	events := Generate(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), roster, cfg.Events, cfg.Duplicates, r.now())
	rep.Stats.Generated = len(events)

	start := time.Now()
	accepted, err := r.submit(ctx, id, events, &rep.Stats)
	rep.Stats.Submit = time.Since(start)
	if err != nil {
		return rep, fmt.Errorf("submit events: %w", err)
	}
	r.log.Info(ctx, "events submitted",
		logger.Int("accepted", rep.Stats.Accepted),
		logger.Int("duplicate", rep.Stats.Duplicate),
		logger.Int("rejected", rep.Stats.Rejected),
		logger.Int("failed", rep.Stats.Failed),
		logger.Duration("took", rep.Stats.Submit))

	start = time.Now()
	st, err := r.waitForIngestion(ctx, id, len(accepted))
	rep.Stats.Settle = time.Since(start)
	if err != nil {
		return rep, err
	}
	rep.Standings = st

	rep.Expected, err = competition.ComputeScores(roster, toModel(accepted), cfg.Weights)
	if err != nil {
		return rep, fmt.Errorf("compute expected ranking: %w", err)
	}
	rep.Mismatches = Verify(rep.Expected, st.Entries)

	if cfg.Finalize && rep.Verified() {
		res, err := r.client.Finalize(ctx, id)
		if err != nil {
			return rep, fmt.Errorf("finalize: %w", err)
		}
		rep.Finalized = &res
	}

	if err := Render(r.out, rep, cfg.Top); err != nil {
		r.log.Warn(ctx, "failed to render report", logger.Error(err))
	}

	if !rep.Verified() {
		r.log.Error(ctx, "standings mismatch",
			logger.String("competition_id", id),
			logger.Int("mismatches", len(rep.Mismatches)))
		return rep, fmt.Errorf("%w: %d differing rows", ErrMismatch, len(rep.Mismatches))
	}
	r.log.Info(ctx, "standings verified", logger.String("competition_id", id))
	return rep, nil
}

// submit posts events with at most cfg.Workers requests in flight and
// returns the events the service accepted. Transport and 4xx failures are
// counted, not fatal; only context cancellation aborts the run.
func (r *Runner) submit(ctx context.Context, id string, events []Event, stats *Stats) ([]Event, error) {
	var (
		mu       sync.Mutex
		accepted = make([]Event, 0, len(events))

		duplicate, rejected, failed, backpressure atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, e := range events {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			for attempt := 1; ; attempt++ {
				outcome, err := r.client.Submit(gctx, id, e)
				switch {
				case err != nil:
					if gctx.Err() != nil {
						return gctx.Err()
					}
					var apiErr *APIError
					if errors.As(err, &apiErr) {
						rejected.Add(1)
					} else {
						failed.Add(1)
					}
					r.log.Debug(gctx, "event not accepted", logger.String("event_id", e.EventID), logger.Error(err))
					return nil
				case outcome == OutcomeAccepted:
					mu.Lock()
					accepted = append(accepted, e)
					mu.Unlock()
					return nil
				case outcome == OutcomeDuplicate:
					duplicate.Add(1)
					return nil
				}

				backpressure.Add(1)
				if attempt == maxSubmitAttempts {
					rejected.Add(1)
					return nil
				}
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(time.Duration(attempt) * retryBackoff):
				}
			}
		})
	}
	err := g.Wait()

	stats.Accepted = len(accepted)
	stats.Duplicate = int(duplicate.Load())
	stats.Rejected = int(rejected.Load())
	stats.Failed = int(failed.Load())
	stats.Backpressure = int(backpressure.Load())
	if err == nil {
		err = ctx.Err()
	}
	return accepted, err
}

// waitForIngestion polls standings until the log holds want events.
func (r *Runner) waitForIngestion(ctx context.Context, id string, want int) (types.Standings, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Settle)
	defer cancel()

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		st, err := r.client.Standings(ctx, id)
		switch {
		case err == nil && st.Events >= want:
			return st, nil
		case err != nil && ctx.Err() == nil:
			return st, fmt.Errorf("fetch standings: %w", err)
		}

		select {
		case <-ctx.Done():
			return st, fmt.Errorf("%w: %d of %d events logged", ErrNotSettled, st.Events, want)
		case <-ticker.C:
		}
	}
}
