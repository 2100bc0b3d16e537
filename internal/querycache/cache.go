// Package querycache maps a game identity to a prepared query engine session.
// Sessions are built lazily on first use, at most once per game, and reused
// until invalidated or evicted. Failed builds are remembered so a broken game
// does not hit the engine on every request.
package querycache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dom/puckquery/internal/domain"
	"github.com/dom/puckquery/internal/engine"
	"github.com/dom/puckquery/internal/ingest"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Canned replies returned instead of an engine answer.
const (
	NoDataText      = "No data is available for the selected game."
	UnavailableText = "The query engine could not be initialized for the selected game."
	EngineErrorText = "An error occurred while processing your query."
	TimeoutText     = "The query engine timed out while answering your question."
	NoAnswerText    = "I could not find an answer."
)

const (
	DefaultSize          = 512
	DefaultBuildTimeout  = 30 * time.Second
	DefaultAnswerTimeout = 60 * time.Second
)

// State is the lifecycle state of a cached entry.
type State string

const (
	StateReady  State = "ready"
	StateEmpty  State = "empty"
	StateFailed State = "failed"
)

// Options configures a Cache. Zero values fall back to the defaults.
type Options struct {
	Size          int
	BuildTimeout  time.Duration
	AnswerTimeout time.Duration
}

// Reply is the text shown to the user and how it was produced.
type Reply struct {
	Text    string
	Outcome domain.QueryOutcome
}

type entry struct {
	game    domain.GameIdentity
	state   State
	session engine.Session
	reason  string
	rows    int
	builtAt time.Time
}

type Cache struct {
	engine  engine.Engine
	opts    Options
	log     logrus.FieldLogger
	metrics *Metrics

	// mu guards table and the generation counters. A build only stores its
	// entry when neither its key's generation nor the epoch moved meanwhile.
	mu      sync.RWMutex
	table   *ingest.Table
	epoch   uint64
	keyGens map[string]uint64

	entries *lru.Cache[string, *entry]
	group   singleflight.Group
}

type generation struct {
	epoch uint64
	key   uint64
}

// New creates a cache over table. metrics may be nil, in which case the
// collectors are registered with a private registry.
func New(eng engine.Engine, table *ingest.Table, opts Options, log logrus.FieldLogger, metrics *Metrics) (*Cache, error) {
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.BuildTimeout <= 0 {
		opts.BuildTimeout = DefaultBuildTimeout
	}
	if opts.AnswerTimeout <= 0 {
		opts.AnswerTimeout = DefaultAnswerTimeout
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}

	entries, err := lru.New[string, *entry](opts.Size)
	if err != nil {
		return nil, err
	}

	return &Cache{
		engine:  eng,
		opts:    opts,
		log:     log,
		metrics: metrics,
		table:   table,
		keyGens: make(map[string]uint64),
		entries: entries,
	}, nil
}

// SetTable swaps the source table and drops every cached entry.
func (c *Cache) SetTable(table *ingest.Table) {
	c.mu.Lock()
	c.table = table
	c.mu.Unlock()
	c.InvalidateAll()
}

func (c *Cache) generationOf(key string) generation {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return generation{epoch: c.epoch, key: c.keyGens[key]}
}

// store adds e unless key was invalidated since gen was taken.
func (c *Cache) store(key string, gen generation, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != gen.epoch || c.keyGens[key] != gen.key {
		return
	}
	if evicted := c.entries.Add(key, e); evicted {
		c.metrics.EvictionsTotal.Inc()
	}
	c.metrics.Entries.Set(float64(c.entries.Len()))
}

func (c *Cache) currentTable() *ingest.Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// Answer forwards question to the session for game, building it first if
// needed. Failures never surface as errors; they become canned replies.
func (c *Cache) Answer(ctx context.Context, question string, game domain.GameIdentity) Reply {
	log := c.log.WithFields(logrus.Fields{
		"game_date": game.GameDate,
		"home_team": game.HomeTeam,
		"away_team": game.AwayTeam,
	})

	e := c.lookup(ctx, game)

	var reply Reply
	switch e.state {
	case StateEmpty:
		reply = Reply{Text: NoDataText, Outcome: domain.OutcomeNoData}
	case StateFailed:
		reply = Reply{Text: UnavailableText, Outcome: domain.OutcomeUnavailable}
	default:
		reply = c.ask(ctx, e.session, question, log)
	}

	c.metrics.AnswersTotal.WithLabelValues(string(reply.Outcome)).Inc()
	log.WithField("outcome", reply.Outcome).Info("query answered")
	return reply
}

func (c *Cache) lookup(ctx context.Context, game domain.GameIdentity) *entry {
	key := game.Key()
	if e, ok := c.entries.Get(key); ok {
		c.metrics.LookupsTotal.WithLabelValues("hit").Inc()
		return e
	}
	c.metrics.LookupsTotal.WithLabelValues("miss").Inc()

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		// A build for this key may have finished between Get and Do.
		if e, ok := c.entries.Get(key); ok {
			return e, nil
		}
		gen := c.generationOf(key)
		e := c.build(ctx, game)
		c.store(key, gen, e)
		return e, nil
	})
	return v.(*entry)
}

// build scopes the table and prepares a session. It is detached from the
// caller's cancellation because other callers may be waiting on the result.
func (c *Cache) build(ctx context.Context, game domain.GameIdentity) *entry {
	log := c.log.WithFields(logrus.Fields{
		"game_date": game.GameDate,
		"home_team": game.HomeTeam,
		"away_team": game.AwayTeam,
	})

	scoped := c.currentTable().Scope(game)
	e := &entry{game: game, rows: scoped.Len(), builtAt: time.Now()}

	if scoped.Len() == 0 {
		log.Warn("no events for game, caching empty context")
		e.state = StateEmpty
		c.metrics.BuildsTotal.WithLabelValues(string(StateEmpty)).Inc()
		return e
	}

	buildCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.BuildTimeout)
	defer cancel()

	type result struct {
		session engine.Session
		err     error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		session, err := c.engine.Prepare(buildCtx, scoped)
		done <- result{session: session, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-buildCtx.Done():
		res = result{err: buildCtx.Err()}
	}
	c.metrics.EngineSeconds.WithLabelValues("prepare").Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(res.err, context.DeadlineExceeded):
		e.state, e.reason = StateFailed, "timeout"
	case res.err != nil:
		e.state, e.reason = StateFailed, res.err.Error()
	case res.session == nil:
		e.state, e.reason = StateFailed, "engine returned no session"
	default:
		e.state, e.session = StateReady, res.session
	}

	if e.state == StateFailed {
		log.WithFields(logrus.Fields{"rows": e.rows, "reason": e.reason}).Error("query engine initialization failed")
		c.metrics.BuildsTotal.WithLabelValues(string(StateFailed)).Inc()
	} else {
		log.WithField("rows", e.rows).Info("query context built")
		c.metrics.BuildsTotal.WithLabelValues(string(StateReady)).Inc()
	}
	return e
}

func (c *Cache) ask(ctx context.Context, session engine.Session, question string, log logrus.FieldLogger) Reply {
	askCtx, cancel := context.WithTimeout(ctx, c.opts.AnswerTimeout)
	defer cancel()

	start := time.Now()
	text, err := safeAsk(askCtx, session, question)
	c.metrics.EngineSeconds.WithLabelValues("ask").Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		log.WithError(err).Warn("query engine timed out")
		return Reply{Text: TimeoutText, Outcome: domain.OutcomeTimeout}
	case err != nil:
		log.WithError(err).Error("query engine failed")
		return Reply{Text: EngineErrorText, Outcome: domain.OutcomeEngineError}
	}

	if strings.TrimSpace(text) == "" {
		return Reply{Text: NoAnswerText, Outcome: domain.OutcomeAnswered}
	}
	return Reply{Text: text, Outcome: domain.OutcomeAnswered}
}

func safeAsk(ctx context.Context, session engine.Session, question string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return session.Ask(ctx, question)
}

// Invalidate drops the entry for game so the next question rebuilds it.
// Builds in flight for other games are unaffected.
func (c *Cache) Invalidate(game domain.GameIdentity) bool {
	key := game.Key()
	c.mu.Lock()
	c.keyGens[key]++
	removed := c.entries.Remove(key)
	c.metrics.Entries.Set(float64(c.entries.Len()))
	c.mu.Unlock()
	c.group.Forget(key)
	return removed
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	c.epoch++
	clear(c.keyGens)
	n := c.entries.Len()
	keys := c.entries.Keys()
	c.entries.Purge()
	c.metrics.Entries.Set(0)
	c.mu.Unlock()
	for _, key := range keys {
		c.group.Forget(key)
	}
	return n
}

// EntryInfo describes one cached entry.
type EntryInfo struct {
	Game    domain.GameIdentity `json:"game"`
	State   State               `json:"state"`
	Reason  string              `json:"reason,omitempty"`
	Rows    int                 `json:"rows"`
	BuiltAt time.Time           `json:"built_at"`
}

// Stats is a point-in-time summary of the cache.
type Stats struct {
	Capacity int         `json:"capacity"`
	Entries  int         `json:"entries"`
	Ready    int         `json:"ready"`
	Empty    int         `json:"empty"`
	Failed   int         `json:"failed"`
	Games    []EntryInfo `json:"games"`
}

// Stats lists the cached entries from least to most recently used.
func (c *Cache) Stats() Stats {
	stats := Stats{Capacity: c.opts.Size, Games: []EntryInfo{}}
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if !ok {
			continue
		}
		stats.Entries++
		switch e.state {
		case StateReady:
			stats.Ready++
		case StateEmpty:
			stats.Empty++
		case StateFailed:
			stats.Failed++
		}
		stats.Games = append(stats.Games, EntryInfo{
			Game:    e.game,
			State:   e.state,
			Reason:  e.reason,
			Rows:    e.rows,
			BuiltAt: e.builtAt,
		})
	}
	return stats
}
