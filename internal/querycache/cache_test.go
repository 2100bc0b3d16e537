package querycache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/engine"
	"github.com/dom/puckquery/internal/ingest"
	"github.com/dom/puckquery/internal/querycache"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	finUSA = domain.GameIdentity{GameDate: "2023-01-01", HomeTeam: "Finland", AwayTeam: "USA"}
	canSWE = domain.GameIdentity{GameDate: "2023-01-03", HomeTeam: "Canada", AwayTeam: "Sweden"}
)

func sampleTable() *ingest.Table {
	return ingest.NewTable([]domain.RawEvent{
		{GameDate: "2023-01-01", HomeTeam: "Finland", AwayTeam: "USA", Player: "A", Event: "Shot"},
		{GameDate: "2023-01-01", HomeTeam: "Finland", AwayTeam: "USA", Player: "B", Event: "Goal"},
		{GameDate: "2023-01-03", HomeTeam: "Canada", AwayTeam: "Sweden", Player: "C", Event: "Shot"},
	})
}

// fakeEngine counts Prepare calls and answers with the question and row count.
type fakeEngine struct {
	prepares   atomic.Int32
	delay      time.Duration
	prepareErr error
	askErr     error
	answer     string

	mu     sync.Mutex
	scoped map[string]int
}

func (f *fakeEngine) Prepare(ctx context.Context, table *ingest.Table) (engine.Session, error) {
	f.prepares.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}

	f.mu.Lock()
	if f.scoped == nil {
		f.scoped = make(map[string]int)
	}
	for _, row := range table.Rows() {
		f.scoped[row.Identity().Key()]++
	}
	f.mu.Unlock()

	return engine.SessionFunc(func(ctx context.Context, question string) (string, error) {
		if f.askErr != nil {
			return "", f.askErr
		}
		if f.answer != "" || question == "" {
			return f.answer, nil
		}
		return question, nil
	}), nil
}

func newCache(t *testing.T, eng engine.Engine, opts querycache.Options) (*querycache.Cache, *querycache.Metrics) {
	t.Helper()
	log, _ := test.NewNullLogger()
	metrics := querycache.NewMetrics(prometheus.NewRegistry())
	cache, err := querycache.New(eng, sampleTable(), opts, log, metrics)
	require.NoError(t, err)
	return cache, metrics
}

func TestCache_BuildsOncePerGame(t *testing.T) {
	eng := &fakeEngine{}
	cache, metrics := newCache(t, eng, querycache.Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		reply := cache.Answer(ctx, "How many shots?", finUSA)
		assert.Equal(t, "How many shots?", reply.Text)
		assert.Equal(t, domain.OutcomeAnswered, reply.Outcome)
	}
	assert.Equal(t, int32(1), eng.prepares.Load())

	cache.Answer(ctx, "Who won?", canSWE)
	assert.Equal(t, int32(2), eng.prepares.Load())

	// each session only saw its own game's rows
	assert.Equal(t, map[string]int{finUSA.Key(): 2, canSWE.Key(): 1}, eng.scoped)

	assert.Equal(t, float64(2), promtest.ToFloat64(metrics.LookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, float64(2), promtest.ToFloat64(metrics.LookupsTotal.WithLabelValues("miss")))
	assert.Equal(t, float64(2), promtest.ToFloat64(metrics.Entries))
}

func TestCache_ConcurrentCallersShareOneBuild(t *testing.T) {
	eng := &fakeEngine{delay: 50 * time.Millisecond}
	cache, _ := newCache(t, eng, querycache.Options{})

	var wg sync.WaitGroup
	replies := make([]querycache.Reply, 20)
	for i := range replies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			replies[i] = cache.Answer(context.Background(), "q", finUSA)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), eng.prepares.Load())
	for _, r := range replies {
		assert.Equal(t, domain.OutcomeAnswered, r.Outcome)
	}
}

func TestCache_Outcomes(t *testing.T) {
	tests := []struct {
		name        string
		eng         *fakeEngine
		opts        querycache.Options
		game        domain.GameIdentity
		wantText    string
		wantOutcome domain.QueryOutcome
	}{
		{
			name:        "unknown game has no data",
			eng:         &fakeEngine{},
			game:        domain.GameIdentity{GameDate: "2023-01-02", HomeTeam: "Finland", AwayTeam: "USA"},
			wantText:    querycache.NoDataText,
			wantOutcome: domain.OutcomeNoData,
		},
		{
			name:        "date strings are not coerced",
			eng:         &fakeEngine{},
			game:        domain.GameIdentity{GameDate: "2023-01-01 00:00:00", HomeTeam: "Finland", AwayTeam: "USA"},
			wantText:    querycache.NoDataText,
			wantOutcome: domain.OutcomeNoData,
		},
		{
			name:        "prepare failure",
			eng:         &fakeEngine{prepareErr: errors.New("boom")},
			game:        finUSA,
			wantText:    querycache.UnavailableText,
			wantOutcome: domain.OutcomeUnavailable,
		},
		{
			name:        "prepare timeout",
			eng:         &fakeEngine{delay: time.Second},
			opts:        querycache.Options{BuildTimeout: 20 * time.Millisecond},
			game:        finUSA,
			wantText:    querycache.UnavailableText,
			wantOutcome: domain.OutcomeUnavailable,
		},
		{
			name:        "engine error",
			eng:         &fakeEngine{askErr: errors.New("rate limited")},
			game:        finUSA,
			wantText:    querycache.EngineErrorText,
			wantOutcome: domain.OutcomeEngineError,
		},
		{
			name:        "answer timeout",
			eng:         &fakeEngine{askErr: context.DeadlineExceeded},
			game:        finUSA,
			wantText:    querycache.TimeoutText,
			wantOutcome: domain.OutcomeTimeout,
		},
		{
			name:        "blank answer",
			eng:         &fakeEngine{answer: "   "},
			game:        finUSA,
			wantText:    querycache.NoAnswerText,
			wantOutcome: domain.OutcomeAnswered,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, _ := newCache(t, tt.eng, tt.opts)
			reply := cache.Answer(context.Background(), "Who scored?", tt.game)
			assert.Equal(t, tt.wantText, reply.Text)
			assert.Equal(t, tt.wantOutcome, reply.Outcome)
		})
	}
}

func TestCache_FailuresAreRemembered(t *testing.T) {
	eng := &fakeEngine{prepareErr: errors.New("boom")}
	cache, _ := newCache(t, eng, querycache.Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		reply := cache.Answer(ctx, "q", finUSA)
		assert.Equal(t, querycache.UnavailableText, reply.Text)
	}
	assert.Equal(t, int32(1), eng.prepares.Load())

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Failed)
	require.Len(t, stats.Games, 1)
	assert.Equal(t, "boom", stats.Games[0].Reason)
}

func TestCache_EmptyGamesAreRemembered(t *testing.T) {
	eng := &fakeEngine{}
	cache, _ := newCache(t, eng, querycache.Options{})
	missing := domain.GameIdentity{GameDate: "2023-01-02", HomeTeam: "Finland", AwayTeam: "USA"}

	cache.Answer(context.Background(), "q", missing)
	cache.Answer(context.Background(), "q", missing)

	assert.Equal(t, int32(0), eng.prepares.Load())
	assert.Equal(t, 1, cache.Stats().Empty)
}

func TestCache_AskErrorsAreNotCached(t *testing.T) {
	eng := &fakeEngine{askErr: errors.New("flaky")}
	cache, _ := newCache(t, eng, querycache.Options{})

	reply := cache.Answer(context.Background(), "q", finUSA)
	assert.Equal(t, domain.OutcomeEngineError, reply.Outcome)

	eng.askErr = nil
	reply = cache.Answer(context.Background(), "second", finUSA)
	assert.Equal(t, "second", reply.Text)
	assert.Equal(t, int32(1), eng.prepares.Load())
}

func TestCache_CancelledCallerDoesNotPoisonBuild(t *testing.T) {
	eng := &fakeEngine{delay: 30 * time.Millisecond}
	cache, _ := newCache(t, eng, querycache.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cache.Answer(ctx, "q", finUSA)

	stats := cache.Stats()
	require.Len(t, stats.Games, 1)
	assert.Equal(t, querycache.StateReady, stats.Games[0].State)
}

func TestCache_Invalidate(t *testing.T) {
	eng := &fakeEngine{}
	cache, _ := newCache(t, eng, querycache.Options{})
	ctx := context.Background()

	cache.Answer(ctx, "q", finUSA)
	cache.Answer(ctx, "q", canSWE)
	require.Equal(t, int32(2), eng.prepares.Load())

	assert.True(t, cache.Invalidate(finUSA))
	assert.False(t, cache.Invalidate(finUSA))
	cache.Answer(ctx, "q", finUSA)
	cache.Answer(ctx, "q", canSWE)
	assert.Equal(t, int32(3), eng.prepares.Load())

	assert.Equal(t, 2, cache.InvalidateAll())
	assert.Equal(t, 0, cache.Stats().Entries)
	cache.Answer(ctx, "q", canSWE)
	assert.Equal(t, int32(4), eng.prepares.Load())
}

func TestCache_SetTableDropsEntries(t *testing.T) {
	eng := &fakeEngine{}
	cache, _ := newCache(t, eng, querycache.Options{})
	ctx := context.Background()

	cache.Answer(ctx, "q", finUSA)
	cache.SetTable(ingest.NewTable(nil))

	reply := cache.Answer(ctx, "q", finUSA)
	assert.Equal(t, domain.OutcomeNoData, reply.Outcome)
}

func TestCache_Eviction(t *testing.T) {
	eng := &fakeEngine{}
	cache, metrics := newCache(t, eng, querycache.Options{Size: 1})
	ctx := context.Background()

	cache.Answer(ctx, "q", finUSA)
	cache.Answer(ctx, "q", canSWE)
	cache.Answer(ctx, "q", finUSA)

	assert.Equal(t, int32(3), eng.prepares.Load())
	assert.Equal(t, 1, cache.Stats().Entries)
	assert.Equal(t, float64(2), promtest.ToFloat64(metrics.EvictionsTotal))
}

func TestCache_EnginePanicsAreContained(t *testing.T) {
	tests := []struct {
		name        string
		eng         engine.Engine
		wantText    string
		wantOutcome domain.QueryOutcome
		wantState   querycache.State
	}{
		{
			name: "prepare panics",
			eng: engine.Func(func(ctx context.Context, table *ingest.Table) (engine.Session, error) {
				panic("engine blew up")
			}),
			wantText:    querycache.UnavailableText,
			wantOutcome: domain.OutcomeUnavailable,
			wantState:   querycache.StateFailed,
		},
		{
			name: "ask panics",
			eng: engine.Func(func(ctx context.Context, table *ingest.Table) (engine.Session, error) {
				return engine.SessionFunc(func(ctx context.Context, question string) (string, error) {
					panic("session blew up")
				}), nil
			}),
			wantText:    querycache.EngineErrorText,
			wantOutcome: domain.OutcomeEngineError,
			wantState:   querycache.StateReady,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache, _ := newCache(t, tt.eng, querycache.Options{})

			var reply querycache.Reply
			require.NotPanics(t, func() {
				reply = cache.Answer(context.Background(), "q", finUSA)
			})
			assert.Equal(t, tt.wantText, reply.Text)
			assert.Equal(t, tt.wantOutcome, reply.Outcome)

			stats := cache.Stats()
			require.Len(t, stats.Games, 1)
			assert.Equal(t, tt.wantState, stats.Games[0].State)
		})
	}

	t.Run("failed build is remembered", func(t *testing.T) {
		var prepares atomic.Int32
		cache, _ := newCache(t, engine.Func(func(ctx context.Context, table *ingest.Table) (engine.Session, error) {
			prepares.Add(1)
			panic("engine blew up")
		}), querycache.Options{})

		cache.Answer(context.Background(), "q", finUSA)
		cache.Answer(context.Background(), "q", finUSA)
		assert.Equal(t, int32(1), prepares.Load())
		assert.Contains(t, cache.Stats().Games[0].Reason, "engine blew up")
	})
}

func TestCache_InvalidatingOtherGameKeepsInflightBuild(t *testing.T) {
	var prepares sync.Map
	started := make(chan struct{})
	release := make(chan struct{})

	eng := engine.Func(func(ctx context.Context, table *ingest.Table) (engine.Session, error) {
		key := table.Rows()[0].Identity().Key()
		n, _ := prepares.LoadOrStore(key, new(atomic.Int32))
		if n.(*atomic.Int32).Add(1) == 1 && key == finUSA.Key() {
			close(started)
			<-release
		}
		return engine.SessionFunc(func(ctx context.Context, question string) (string, error) {
			return question, nil
		}), nil
	})
	cache, _ := newCache(t, eng, querycache.Options{})

	done := make(chan querycache.Reply)
	go func() { done <- cache.Answer(context.Background(), "first", finUSA) }()
	<-started

	cache.Invalidate(canSWE)
	close(release)
	assert.Equal(t, domain.OutcomeAnswered, (<-done).Outcome)

	reply := cache.Answer(context.Background(), "second", finUSA)
	assert.Equal(t, "second", reply.Text)

	n, ok := prepares.Load(finUSA.Key())
	require.True(t, ok)
	assert.Equal(t, int32(1), n.(*atomic.Int32).Load())
}

func TestCache_InvalidatingSameGameDropsInflightBuild(t *testing.T) {
	var prepares atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	eng := engine.Func(func(ctx context.Context, table *ingest.Table) (engine.Session, error) {
		if prepares.Add(1) == 1 {
			close(started)
			<-release
		}
		return engine.SessionFunc(func(ctx context.Context, question string) (string, error) {
			return question, nil
		}), nil
	})
	cache, _ := newCache(t, eng, querycache.Options{})

	done := make(chan querycache.Reply)
	go func() { done <- cache.Answer(context.Background(), "first", finUSA) }()
	<-started

	cache.Invalidate(finUSA)
	close(release)
	// the waiting caller is still answered
	assert.Equal(t, "first", (<-done).Text)
	assert.Equal(t, 0, cache.Stats().Entries)

	cache.Answer(context.Background(), "second", finUSA)
	assert.Equal(t, int32(2), prepares.Load())
}
