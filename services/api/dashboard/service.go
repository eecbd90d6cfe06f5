package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"
)

// Source is the data access layer the service reads from.
type Source interface {
	// AvailableRange returns the min/max dates with data; ok is false when
	// the station has none.
	AvailableRange(ctx context.Context, stationID string) (r DateRange, ok bool, err error)
	FetchSnapshot(ctx context.Context, stationID string, r DateRange) (Snapshot, error)
	FetchStationConfig(ctx context.Context, stationID string) (StationConfig, error)
}

// Options configures a Service.
type Options struct {
	// ScratchDir is the parent of every per-request workspace.
	ScratchDir string
	// MaxConcurrent bounds simultaneous engine processes.
	MaxConcurrent    int
	StationsEndpoint string
	DashboardBase    string
	Logger           *slog.Logger
	Metrics          *Metrics
	Now              func() time.Time
}

// Service runs fetch, write, synthesize, run and harvest for one request.
type Service struct {
	source Source
	synth  Synthesizer
	exec   Executor
	opts   Options
	sem    *semaphore.Weighted
	log    *slog.Logger
}

func NewService(source Source, synth Synthesizer, exec Executor, opts Options) *Service {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		source: source,
		synth:  synth,
		exec:   exec,
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		log:    log.With("component", "dashboard"),
	}
}

// Generate returns the rendered dashboard, or the no-data page when the
// station has nothing in the resolved range. No workspace outlives the call.
func (s *Service) Generate(ctx context.Context, req Request) (res Result, err error) {
	started := time.Now()
	defer func() {
		outcome := Outcome(res, err)
		s.opts.Metrics.observe(outcome, time.Since(started))
		attrs := []any{"station", req.StationID, "flexible", req.Flexible, "outcome", outcome, "duration", time.Since(started)}
		if err != nil {
			s.log.Warn("dashboard generation failed", append(attrs, "error", err)...)
			return
		}
		s.log.Info("dashboard generated", attrs...)
	}()

	if !ValidStationID(req.StationID) {
		return Result{}, fmt.Errorf("%w: invalid station id %q", ErrInvalidRequest, req.StationID)
	}

	period, err := s.resolveRange(ctx, req)
	if err != nil {
		return Result{}, err
	}

	snap, err := s.source.FetchSnapshot(ctx, req.StationID, period)
	if err != nil {
		return Result{}, err
	}
	if !snap.HasData() {
		html, err := RenderNoData(req.StationID, period)
		return Result{HTML: html, NoData: true, Period: period}, err
	}

	cfg, err := s.source.FetchStationConfig(ctx, req.StationID)
	if err != nil {
		return Result{}, err
	}

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	defer s.sem.Release(1)

	html, err := s.render(ctx, req, snap, cfg)
	if err != nil {
		return Result{}, err
	}
	return Result{HTML: html, Period: snap.Period}, nil
}

func (s *Service) resolveRange(ctx context.Context, req Request) (DateRange, error) {
	if req.Range != nil {
		return *req.Range, nil
	}
	r, ok, err := s.source.AvailableRange(ctx, req.StationID)
	if err != nil {
		return DateRange{}, err
	}
	if !ok {
		return TrailingWeek(s.opts.Now()), nil
	}
	return r, nil
}

func (s *Service) render(ctx context.Context, req Request, snap Snapshot, cfg StationConfig) (string, error) {
	ws, err := NewWorkspace(s.opts.ScratchDir)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			s.log.Error("scratch workspace leaked", "dir", ws.Dir(), "error", err)
		}
	}()

	if err := WriteSnapshot(ws, snap, cfg); err != nil {
		return "", err
	}
	job := NewJob(req, cfg)
	if err := WriteJob(ws, job); err != nil {
		return "", err
	}

	script, err := s.synth.Script(job)
	if err != nil {
		return "", err
	}

	s.opts.Metrics.engineStarted()
	_, err = s.exec.Run(ctx, ws, script)
	s.opts.Metrics.engineStopped()
	if err != nil {
		return "", err
	}

	html, err := Harvest(ws)
	if err != nil {
		return "", err
	}

	if req.Flexible {
		selected := snap.Period
		if req.Range != nil {
			selected = *req.Range
		}
		html, err = InjectRangeSelector(html, SelectorOptions{
			StationID:        req.StationID,
			Range:            selected,
			StationsEndpoint: s.opts.StationsEndpoint,
			DashboardBase:    s.opts.DashboardBase,
		})
		if err != nil {
			return "", err
		}
	}
	return html, nil
}
