package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/markdave123-py/contexta-sources/internal/logger"
	"github.com/markdave123-py/contexta-sources/internal/metrics"
	"github.com/markdave123-py/contexta-sources/internal/models"
)

var ErrSessionNotFound = errors.New("scan session not found")

const (
	KindDocuments = "documents"
	KindSources   = "sources"
)

// ScanPage is the consumer-facing page of either scan kind.
type ScanPage struct {
	SessionID string                  `json:"session_id"`
	Kind      string                  `json:"kind"`
	Items     []models.Entry[any]     `json:"items"`
	Errors    []models.ItemError      `json:"errors,omitempty"`
	HasMore   bool                    `json:"has_more"`
	Inventory *models.SourceInventory `json:"inventory,omitempty"`
}

// ScanSession pins one iterator or cursor to one consumer. Calls are serialised
// because the underlying paging state is not safe for concurrent use.
type ScanSession struct {
	ID        string
	Kind      string
	CreatedAt time.Time

	mu        sync.Mutex
	documents *DocumentPager
	sources   *SourcePager
}

func (s *ScanSession) NextPage(ctx context.Context) (*ScanPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &ScanPage{SessionID: s.ID, Kind: s.Kind, Items: []models.Entry[any]{}}
	switch s.Kind {
	case KindDocuments:
		page, err := s.documents.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range page.Entries {
			out.Items = append(out.Items, models.Entry[any]{Item: e.Item, Attributes: e.Attributes})
		}
		out.Errors = page.Errors
		out.HasMore = page.HasMore()
	case KindSources:
		page, err := s.sources.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range page.Entries {
			out.Items = append(out.Items, models.Entry[any]{Item: e.Item, Attributes: e.Attributes})
		}
		out.HasMore = page.HasMore()
		if !out.HasMore {
			out.Inventory = s.sources.inventory
		}
	default:
		return nil, fmt.Errorf("unknown session kind %q", s.Kind)
	}
	return out, nil
}

// Inventory is only defined for source sessions.
func (s *ScanSession) Inventory(ctx context.Context) (*models.SourceInventory, error) {
	if s.Kind != KindSources {
		return nil, fmt.Errorf("session %s is a %s scan", s.ID, s.Kind)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sources.Inventory(ctx)
}

func (s *ScanSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.documents != nil {
		return s.documents.Close()
	}
	if s.sources != nil {
		return s.sources.Close()
	}
	return nil
}

// SessionStore keeps sticky scan sessions, bounded by count and idle TTL.
// Evicted and removed sessions are closed.
type SessionStore struct {
	cache   *expirable.LRU[string, *ScanSession]
	metrics *metrics.Metrics
}

func NewSessionStore(capacity int, ttl time.Duration, m *metrics.Metrics) *SessionStore {
	s := &SessionStore{metrics: m}
	s.cache = expirable.NewLRU[string, *ScanSession](capacity, func(id string, sess *ScanSession) {
		if err := sess.Close(); err != nil {
			logger.GetDefault().Warn("closing evicted session failed", "session_id", id, "error", err)
		}
		s.metrics.SessionClosed()
	}, ttl)
	return s
}

func (s *SessionStore) add(kind string, docs *DocumentPager, sources *SourcePager) *ScanSession {
	sess := &ScanSession{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
		documents: docs,
		sources:   sources,
	}
	s.cache.Add(sess.ID, sess)
	s.metrics.SessionOpened()
	return sess
}

// Get marks the session as used. Re-adding an existing key renews its expiry,
// so the TTL counts idle time rather than age.
func (s *SessionStore) Get(id string) (*ScanSession, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.cache.Add(id, sess)
	return sess, nil
}

func (s *SessionStore) Remove(id string) error {
	if !s.cache.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) Len() int {
	return s.cache.Len()
}

// Purge closes every session.
func (s *SessionStore) Purge() {
	s.cache.Purge()
}
