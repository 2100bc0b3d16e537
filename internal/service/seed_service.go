package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dom/puckquery/internal/config"
	"github.com/dom/puckquery/internal/ingest"
	"github.com/dom/puckquery/internal/repository"
	"github.com/dom/puckquery/internal/resolver"
	"github.com/sirupsen/logrus"
)

// TableSink receives the table after every successful load.
type TableSink interface {
	SetTable(table *ingest.Table)
}

type SeedResult struct {
	Teams    int           `json:"teams"`
	Players  int           `json:"players"`
	Games    int           `json:"games"`
	Events   int           `json:"events"`
	Duration time.Duration `json:"duration"`
}

type SeedService struct {
	seedRepo repository.SeedRepository
	sink     TableSink
	cfg      *config.Config
	log      logrus.FieldLogger

	mu sync.Mutex

	once         sync.Once
	bootstrapErr error
}

// NewSeedService creates the seeding pipeline. sink may be nil.
func NewSeedService(seedRepo repository.SeedRepository, sink TableSink, cfg *config.Config, log logrus.FieldLogger) *SeedService {
	return &SeedService{
		seedRepo: seedRepo,
		sink:     sink,
		cfg:      cfg,
		log:      log,
	}
}

// LoadSources reads the event export and the optional jersey lookup named
// in the configuration. A missing export is an error; a missing or broken
// jersey file only disables declared numbers.
func (s *SeedService) LoadSources() (*ingest.Table, ingest.JerseyNumbers, error) {
	table, err := ingest.LoadCSV(s.cfg.DataPath, s.log)
	if err != nil {
		return nil, nil, err
	}

	declared, err := ingest.LoadJerseyNumbers(s.cfg.JerseyPath, s.log)
	if err != nil {
		s.log.WithError(err).WithField("path", s.cfg.JerseyPath).
			Warn("jersey numbers unavailable, assigning all numbers automatically")
		declared = nil
	}

	return table, declared, nil
}

// ResetAndSeed rebuilds the event model from table. Calls are serialized.
func (s *SeedService) ResetAndSeed(ctx context.Context, table *ingest.Table, declared ingest.JerseyNumbers) (*SeedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	entities, err := resolver.Resolve(table, declared, s.cfg.JerseySeed)
	if err != nil {
		return nil, fmt.Errorf("resolve entities: %w", err)
	}

	if err := s.seedRepo.ReplaceAll(ctx, entities.Teams, entities.Players, entities.Games, entities.Events); err != nil {
		return nil, fmt.Errorf("persist entities: %w", err)
	}

	if s.sink != nil {
		s.sink.SetTable(table)
	}

	result := &SeedResult{
		Teams:    len(entities.Teams),
		Players:  len(entities.Players),
		Games:    len(entities.Games),
		Events:   len(entities.Events),
		Duration: time.Since(start),
	}
	s.log.WithFields(logrus.Fields{
		"teams":    result.Teams,
		"players":  result.Players,
		"games":    result.Games,
		"events":   result.Events,
		"duration": result.Duration,
	}).Info("database seeded")
	return result, nil
}

// Bootstrap loads the configured sources and, when SeedOnStart is set,
// reseeds the store. It runs once per process; later calls return the
// first call's error.
func (s *SeedService) Bootstrap(ctx context.Context) error {
	s.once.Do(func() {
		table, declared, err := s.LoadSources()
		if err != nil {
			s.bootstrapErr = err
			return
		}

		if !s.cfg.SeedOnStart {
			s.log.WithField("rows", table.Len()).Info("seeding skipped, serving existing store")
			if s.sink != nil {
				s.sink.SetTable(table)
			}
			return
		}

		_, s.bootstrapErr = s.ResetAndSeed(ctx, table, declared)
	})
	return s.bootstrapErr
}
