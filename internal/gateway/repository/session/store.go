package session

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"luxespace/internal/wizard"
)

const (
	DefaultMaxSessions = 10000
	DefaultTTL         = 2 * time.Hour
)

// Store keeps one wizard per anonymous visitor in memory. Entries expire
// after ttl and the least recently used one is evicted when full.
type Store struct {
	cache   *expirable.LRU[string, *wizard.Machine]
	factory func() *wizard.Machine
}

func NewStore(maxSessions int, ttl time.Duration, factory func() *wizard.Machine) *Store {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		cache:   expirable.NewLRU[string, *wizard.Machine](maxSessions, nil, ttl),
		factory: factory,
	}
}

func (s *Store) Create() (string, *wizard.Machine) {
	id := uuid.NewString()
	m := s.factory()
	s.cache.Add(id, m)
	return id, m
}

func (s *Store) Get(id string) (*wizard.Machine, bool) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	return s.cache.Get(id)
}

func (s *Store) Delete(id string) {
	s.cache.Remove(strings.TrimSpace(id))
}

func (s *Store) Len() int { return s.cache.Len() }
