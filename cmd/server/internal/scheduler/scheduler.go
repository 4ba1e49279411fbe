package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sanadzhioua/tunisia-stock-dashboard/cmd/server/internal/store"
	"github.com/sanadzhioua/tunisia-stock-dashboard/pkg/models"
)

const maxChartPoints = 60

// Source fetches a snapshot from the external market site. Implementations
// must contain their own failures and return a structurally complete snapshot,
// possibly with zero instruments.
type Source interface {
	FetchSnapshot(ctx context.Context) *models.Snapshot
}

// Fallback produces a full synthetic snapshot, seeded with the previous one
// for index continuity.
type Fallback interface {
	Generate(prev *models.Snapshot) *models.Snapshot
}

// Publisher fans a snapshot out to subscribers.
type Publisher interface {
	Publish(snap *models.Snapshot)
}

// Mirror persists snapshots to a shared cache for warm starts and sibling
// instances. Optional.
type Mirror interface {
	Save(ctx context.Context, snap *models.Snapshot) error
}

// Exporter ships refreshed instruments to downstream consumers. Optional.
type Exporter interface {
	Export(ctx context.Context, snap *models.Snapshot) error
}

// for deterministic testing
type Clock interface {
	Now() time.Time
}

type Rand interface {
	Intn(n int) int
	Float64() float64
}

// Scheduler drives the two update cadences: the major refresh that resyncs
// against the external source (falling back to synthetic data), and the minor
// jitter that keeps the feed visibly live between refreshes. It is the only
// writer to the store.
type Scheduler struct {
	store    *store.SnapshotStore
	source   Source
	fallback Fallback
	pub      Publisher
	mirror   Mirror
	exporter Exporter

	majorInterval  time.Duration
	jitterInterval time.Duration
	startupDelay   time.Duration

	rand   Rand
	clock  Clock
	logger *zap.Logger
}

type Options struct {
	MajorInterval  time.Duration
	JitterInterval time.Duration
	StartupDelay   time.Duration // delay before the first real fetch
	Mirror         Mirror        // nil disables mirroring
	Exporter       Exporter      // nil disables the export feed
}

func New(
	st *store.SnapshotStore,
	source Source,
	fallback Fallback,
	pub Publisher,
	rnd Rand,
	clock Clock,
	logger *zap.Logger,
	opts Options,
) *Scheduler {
	if opts.StartupDelay <= 0 {
		opts.StartupDelay = 3 * time.Second
	}
	return &Scheduler{
		store:          st,
		source:         source,
		fallback:       fallback,
		pub:            pub,
		mirror:         opts.Mirror,
		exporter:       opts.Exporter,
		majorInterval:  opts.MajorInterval,
		jitterInterval: opts.JitterInterval,
		startupDelay:   opts.StartupDelay,
		rand:           rnd,
		clock:          clock,
		logger:         logger,
	}
}

// Run starts both periodic tasks and the one-shot startup refresh. Each tick
// body is panic-contained so one bad cycle never stops subsequent ticks. Run
// returns immediately; cancel ctx to stop.
func (s *Scheduler) Run(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.startupDelay):
			s.safeTick("startup-refresh", func() { s.RefreshOnce(ctx) })
		}
	}()

	go s.runLoop(ctx, "refresh", s.majorInterval, func() { s.RefreshOnce(ctx) })
	go s.runLoop(ctx, "jitter", s.jitterInterval, s.JitterOnce)
}

func (s *Scheduler) runLoop(ctx context.Context, name string, interval time.Duration, tick func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping task", zap.String("task", name))
			return
		case <-ticker.C:
			s.safeTick(name, tick)
		}
	}
}

func (s *Scheduler) safeTick(name string, tick func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Tick panicked", zap.String("task", name), zap.Any("panic", r))
		}
	}()
	tick()
}

// RefreshOnce runs one major refresh cycle. It always ends by writing a valid
// snapshot: scraped data when at least one instrument came back, synthetic
// data otherwise.
func (s *Scheduler) RefreshOnce(ctx context.Context) {
	s.logger.Info("Refreshing market data")

	snap := s.source.FetchSnapshot(ctx)
	if len(snap.Stocks) > 0 {
		s.logger.Info("Scrape succeeded", zap.Int("stocks", len(snap.Stocks)))
	} else {
		s.logger.Warn("No data scraped, falling back to synthetic data")
		snap = s.fallback.Generate(s.store.Read())
	}

	s.store.Replace(snap)
	s.afterWrite(ctx, true)
}

// JitterOnce applies a small cosmetic perturbation to the current snapshot:
// prices move at most 0.1%, volumes creep up, and one chart point is appended
// under the 60-point cap. Instrument identity, sector membership, and roster
// size are untouched.
func (s *Scheduler) JitterOnce() {
	current := s.store.Read()
	if len(current.Stocks) == 0 {
		return
	}

	snap := current.Clone()

	for i := range snap.Stocks {
		st := &snap.Stocks[i]
		st.Price = models.Round2(st.Price * (1 + (s.rand.Float64()-0.5)*0.002))
		st.Volume += int64(s.rand.Intn(100))
	}

	for name, idx := range snap.Indices {
		idx.Value = models.Round2(idx.Value * (1 + (s.rand.Float64()-0.5)*0.0005))
		snap.Indices[name] = idx
	}

	snap.ChartHistory = append(snap.ChartHistory, models.ChartPoint{
		Time:  s.clock.Now(),
		Value: snap.Indices[models.IndexTunindex].Value,
	})
	if n := len(snap.ChartHistory); n > maxChartPoints {
		snap.ChartHistory = snap.ChartHistory[n-maxChartPoints:]
	}

	s.store.Replace(snap)
	s.afterWrite(context.Background(), false)
}

// afterWrite publishes the stored snapshot and feeds the optional side
// channels. Mirror and export failures are logged, never propagated.
func (s *Scheduler) afterWrite(ctx context.Context, export bool) {
	snap := s.store.Read()
	s.pub.Publish(snap)

	if s.mirror != nil {
		if err := s.mirror.Save(ctx, snap); err != nil {
			s.logger.Warn("Snapshot mirror failed", zap.Error(err))
		}
	}
	if export && s.exporter != nil {
		if err := s.exporter.Export(ctx, snap); err != nil {
			s.logger.Warn("Feed export failed", zap.Error(err))
		}
	}
}
