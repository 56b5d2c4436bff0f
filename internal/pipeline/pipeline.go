package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/couchcryptid/ocean-sample-etl/internal/observability"
)

// FrameSource reads model output one timestep at a time.
type FrameSource interface {
	Grid() domain.Grid
	Timesteps() int
	Climatology(ctx context.Context) (domain.Field3D, error)
	ReadFrame(ctx context.Context, t int, req domain.FrameRequest) (domain.Frame, error)
}

// Loader consumes the result of a completed run.
type Loader interface {
	Load(ctx context.Context, res *Result) error
}

// Options fixes everything about a run except its data source.
type Options struct {
	// Name tags artefacts, e.g. "alpha.001_2dPolyDeg1_Step1_PredictDelT".
	Name string
	Run  domain.RunConfig
	// Layout overrides the default regions derived from the grid and Wrap.
	Layout     *domain.Layout
	Wrap       domain.WrapLimits
	Total      int
	Stride     int
	TrainRatio float64
	ValRatio   float64
	Seed       int64
	// Strict turns zero-variance training columns into a run failure.
	Strict bool
}

// Pipeline orchestrates the extract-assemble-normalise-load run.
type Pipeline struct {
	source  FrameSource
	loaders []Loader
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
	prog    progress
}

// New creates a Pipeline over src. Loaders run in order after a successful run.
func New(src FrameSource, opts Options, logger *slog.Logger, metrics *observability.Metrics, loaders ...Loader) *Pipeline {
	return &Pipeline{
		source:  src,
		loaders: loaders,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the results are not available yet.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("extraction run has not completed yet")
	}
	return nil
}

// Status reports the progress of the current or last run.
func (p *Pipeline) Status() Status {
	return p.prog.snapshot()
}

// Run performs one extraction. Cancellation is checked between timesteps and
// regions; any error aborts the run.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := clock.Now()
	p.logger.Info("extraction started",
		"name", p.opts.Name,
		"dimension", p.opts.Run.Dimension,
		"features", p.opts.Run.FeatureCount(),
		"step", p.opts.Run.StepSize,
	)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)
	p.prog.update(func(s *Status) { *s = Status{State: StateRunning} })

	res, err := p.run(ctx)
	if err == nil {
		err = p.load(ctx, res, start)
	}

	finished := clock.Now()
	p.metrics.RunDuration.Set(finished.Sub(start).Seconds())
	p.metrics.LastRunTimestamp.Set(float64(finished.Unix()))
	if err != nil {
		p.metrics.LastRunSuccess.Set(0)
		p.prog.update(func(s *Status) { s.State, s.Error = StateFailed, err.Error() })
		p.logger.Error("extraction failed", "error", err, "elapsed", finished.Sub(start))
		return nil, err
	}

	p.metrics.LastRunSuccess.Set(1)
	p.ready.Store(true)
	p.prog.update(func(s *Status) { s.State = StateDone })
	p.logger.Info("extraction finished",
		"train", res.Train.Rows(),
		"val", res.Val.Rows(),
		"test", res.Test.Rows(),
		"elapsed", finished.Sub(start),
	)
	return res, nil
}

// load hands res to every loader in order. Timestamps are set first so
// loaders can record them.
func (p *Pipeline) load(ctx context.Context, res *Result, start time.Time) error {
	res.StartedAt, res.FinishedAt = start, clock.Now()
	for _, l := range p.loaders {
		if err := l.Load(ctx, res); err != nil {
			p.metrics.LoadErrors.WithLabelValues(fmt.Sprintf("%T", l)).Inc()
			return fmt.Errorf("load results: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context) (*Result, error) {
	cfg := p.opts.Run
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grid := p.source.Grid()
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("source grid: %w", err)
	}

	layout := domain.DefaultLayout(grid, p.opts.Wrap)
	if p.opts.Layout != nil {
		layout = *p.opts.Layout
	}
	if err := layout.Validate(grid, cfg.Dimension); err != nil {
		return nil, fmt.Errorf("region layout: %w", err)
	}

	plan, err := domain.PlanSplits(domain.SplitOptions{
		Total:      p.opts.Total,
		Stride:     p.opts.Stride,
		TrainRatio: p.opts.TrainRatio,
		ValRatio:   p.opts.ValRatio,
		Step:       cfg.StepSize,
		Available:  p.source.Timesteps(),
	})
	if err != nil {
		return nil, err
	}
	p.prog.update(func(s *Status) { s.TimestepsTotal = plan.Len() })
	p.logger.Info("time split planned",
		"train", len(plan.Train), "val", len(plan.Val), "test", len(plan.Test),
		"available", p.source.Timesteps(),
	)

	clim, err := p.source.Climatology(ctx)
	if err != nil {
		return nil, fmt.Errorf("read climatology: %w", err)
	}
	asm, err := domain.NewAssembler(cfg, grid, clim)
	if err != nil {
		return nil, err
	}
	tf := NewTransformer(asm, layout, p.logger, p.metrics)

	pools := make([]*domain.Pool, len(domain.Splits))
	for i, split := range domain.Splits {
		pools[i], err = p.extractSplit(ctx, tf, plan, split)
		if err != nil {
			return nil, err
		}
	}
	train, val, test := pools[0], pools[1], pools[2]

	// One generator drawn in split order keeps the shuffle reproducible.
	rng := rand.New(rand.NewSource(p.opts.Seed))
	for _, pool := range pools {
		pool.Shuffle(rng)
	}

	summary := domain.Summarize(train, val, test)
	p.logSummary(summary)

	return p.normalize(train, val, test, summary)
}

// extractSplit folds every timestep of split into one pool.
func (p *Pipeline) extractSplit(ctx context.Context, tf *RegionTransformer, plan domain.SplitPlan, split domain.Split) (*domain.Pool, error) {
	acc := domain.NewAccumulator(split, p.opts.Run.FeatureCount())
	for _, pair := range plan.Pairs(split) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blocks, err := p.extractTimestep(ctx, tf, split, pair)
		if err != nil {
			return nil, err
		}
		for _, b := range blocks {
			if err := acc.Add(b); err != nil {
				return nil, err
			}
		}
		p.metrics.TimestepsProcessed.WithLabelValues(string(split)).Inc()
		p.prog.update(func(s *Status) { s.TimestepsDone++ })
	}
	p.logger.Info("split extracted", "split", split, "timesteps", len(plan.Times(split)), "samples", acc.Rows())
	return acc.Pool(), nil
}

// extractTimestep reads the frames of one time pair and assembles every
// region. The frames are released when it returns.
func (p *Pipeline) extractTimestep(ctx context.Context, tf *RegionTransformer, split domain.Split, pair domain.TimePair) ([]domain.SampleBlock, error) {
	start := clock.Now()
	frame, err := p.source.ReadFrame(ctx, pair.T, domain.FrameRequest{
		Fields: p.opts.Run.StencilFields(),
		Eta:    p.opts.Run.Eta,
	})
	if err != nil {
		return nil, fmt.Errorf("read t=%d: %w", pair.T, err)
	}
	target, err := p.source.ReadFrame(ctx, pair.Target, domain.FrameRequest{
		Fields: []domain.FieldName{domain.FieldTemp},
	})
	if err != nil {
		return nil, fmt.Errorf("read t=%d: %w", pair.Target, err)
	}
	p.metrics.FrameReadDuration.Observe(clock.Since(start).Seconds())

	next, err := target.Field(domain.FieldTemp)
	if err != nil {
		return nil, err
	}
	return tf.Transform(ctx, split, frame, next)
}

func (p *Pipeline) normalize(train, val, test *domain.Pool, summary domain.Summary) (*Result, error) {
	if train.Rows() == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmptySplit, domain.SplitTrain)
	}

	inputs, inputStats, err := domain.NormalizeColumns(train.Inputs, val.Inputs, test.Inputs)
	if err != nil {
		return nil, err
	}
	deltaT, deltaStats := domain.Normalize(train.DeltaT, val.DeltaT, test.DeltaT)
	temp, tempStats := domain.Normalize(train.Temp, val.Temp, test.Temp)

	stats := domain.Statistics{Inputs: inputStats, DeltaT: deltaStats, Temp: tempStats}
	p.metrics.DegenerateColumns.Set(float64(len(stats.DegenerateColumns())))
	if cols, targets := stats.ZeroVarianceColumns(), stats.ZeroVarianceTargets(); len(cols) > 0 || len(targets) > 0 {
		p.logger.Warn("zero variance in training data, normalised values are not finite",
			"columns", cols, "targets", targets, "strict", p.opts.Strict)
	}
	if cols, targets := stats.NonFiniteColumns(), stats.NonFiniteTargets(); len(cols) > 0 || len(targets) > 0 {
		p.logger.Warn("NaN or Inf in training data, statistics are not finite",
			"columns", cols, "targets", targets, "strict", p.opts.Strict)
	}
	if p.opts.Strict {
		if err := stats.CheckVariance(); err != nil {
			return nil, err
		}
	}

	return &Result{
		Name: p.opts.Name,
		Run:  p.opts.Run,
		Train: SplitArrays{
			Inputs: inputs.Train, DeltaT: deltaT.Train, Temp: temp.Train,
			Orig: train.Orig, Clim: train.Clim,
		},
		Val: SplitArrays{
			Inputs: inputs.Val, DeltaT: deltaT.Val, Temp: temp.Val,
			Orig: val.Orig, Clim: val.Clim,
		},
		Test: SplitArrays{
			Inputs: inputs.Test, DeltaT: deltaT.Test, Temp: temp.Test,
		},
		Statistics: stats,
		Summary:    summary,
	}, nil
}

func (p *Pipeline) logSummary(s domain.Summary) {
	for _, th := range s.Thresholds {
		p.logger.Info("samples beyond threshold", "threshold", th.Threshold, "train", th.Train, "val", th.Val)
	}
	p.logger.Info("target summary",
		"max", s.Max, "min", s.Min,
		"train_mean", s.Train.Mean, "val_mean", s.Val.Mean,
		"train_std", s.Train.Std, "val_std", s.Val.Std,
		"train_skew", s.Train.Skew, "val_skew", s.Val.Skew,
		"train_kurtosis", s.Train.Kurtosis, "val_kurtosis", s.Val.Kurtosis,
	)
}
