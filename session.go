package raster

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Session carries the metadata cache, configuration, logger and metrics
// shared by index builds, writes and reads. Its cache lives as long as the
// session; Close drops it.
type Session struct {
	cfg     Config
	cache   *MetaCache
	log     logrus.FieldLogger
	metrics *Metrics

	rngMu sync.Mutex
	rng   *rand.Rand
}

type Option func(*Session)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		s.log = l
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithCache shares an existing cache between sessions.
func WithCache(c *MetaCache) Option {
	return func(s *Session) {
		s.cache = c
	}
}

func NewSession(cfg Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Session{cfg: cfg, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = NewMetaCache(cfg.CacheCapacity, s.metrics)
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s.rng = rand.New(rand.NewSource(seed))
	return s, nil
}

func (s *Session) Config() Config { return s.cfg }

func (s *Session) Cache() *MetaCache { return s.cache }

// Close releases every cached table.
func (s *Session) Close() {
	s.cache.Purge()
}

func (s *Session) intn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}
