package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jstittsworth/league-analytics/internal/models"
)

// Store hands out named mutable documents. Callers mutate the returned
// document in place; nothing is persisted until SaveAll. The store is
// single-writer: the updater is the only component that mutates documents,
// and it never runs two weeks concurrently. Readers that need committed
// data read the persisted rows, not the store.
type Store interface {
	// Get returns the named document, loading or creating it on first use.
	Get(name string) (any, error)
	// SaveAll persists every loaded document.
	SaveAll(ctx context.Context) error
	// Reset discards unsaved in-memory state so an aborted run cannot leak
	// half-applied mutations into the next one.
	Reset()
}

// DBStore keeps documents as JSONB rows in the cache_documents table and
// writes them back in a single transaction.
type DBStore struct {
	db   *gorm.DB
	log  *logrus.Logger
	docs map[string]any
}

// NewDBStore creates a database-backed document store.
func NewDBStore(db *gorm.DB, log *logrus.Logger) *DBStore {
	return &DBStore{
		db:   db,
		log:  log,
		docs: make(map[string]any),
	}
}

func (s *DBStore) Get(name string) (any, error) {
	if doc, ok := s.docs[name]; ok {
		return doc, nil
	}
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown cache document %q", name)
	}
	doc := build()

	var row models.CacheDocument
	err := s.db.Where("name = ?", name).First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.log.WithField("document", name).Info("Cache document not found, starting empty")
	case err != nil:
		return nil, fmt.Errorf("failed to load cache document %s: %w", name, err)
	default:
		if err := json.Unmarshal(row.Data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode cache document %s: %w", name, err)
		}
	}

	s.docs[name] = doc
	return doc, nil
}

func (s *DBStore) SaveAll(ctx context.Context) error {
	if len(s.docs) == 0 {
		return nil
	}
	start := time.Now()

	rows := make([]models.CacheDocument, 0, len(s.docs))
	for name, doc := range s.docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode cache document %s: %w", name, err)
		}
		rows = append(rows, models.CacheDocument{Name: name, Data: data, UpdatedAt: time.Now().UTC()})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
		}).Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("failed to save cache documents: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"documents": len(rows),
		"duration":  time.Since(start).String(),
	}).Debug("Saved cache documents")
	return nil
}

func (s *DBStore) Reset() {
	s.docs = make(map[string]any)
}

// Memory is an in-process store for tests and local development. SaveAll
// snapshots the documents; Reset restores the last snapshot, mirroring how
// the database store forgets unsaved work.
type Memory struct {
	docs  map[string]any
	saved map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:  make(map[string]any),
		saved: make(map[string][]byte),
	}
}

func (m *Memory) Get(name string) (any, error) {
	if doc, ok := m.docs[name]; ok {
		return doc, nil
	}
	build, ok := builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown cache document %q", name)
	}
	doc := build()
	if data, ok := m.saved[name]; ok {
		if err := json.Unmarshal(data, doc); err != nil {
			return nil, fmt.Errorf("failed to decode cache document %s: %w", name, err)
		}
	}
	m.docs[name] = doc
	return doc, nil
}

func (m *Memory) SaveAll(ctx context.Context) error {
	for name, doc := range m.docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode cache document %s: %w", name, err)
		}
		m.saved[name] = data
	}
	return nil
}

func (m *Memory) Reset() {
	m.docs = make(map[string]any)
}

// Managers returns the managers document from a store.
func Managers(s Store) (*ManagersDoc, error) {
	doc, err := s.Get(DocManagers)
	if err != nil {
		return nil, err
	}
	d, ok := doc.(*ManagersDoc)
	if !ok {
		return nil, fmt.Errorf("cache document %s has unexpected type %T", DocManagers, doc)
	}
	return d, nil
}

// Transactions returns the transactions document from a store.
func Transactions(s Store) (*TransactionsDoc, error) {
	doc, err := s.Get(DocTransactions)
	if err != nil {
		return nil, err
	}
	d, ok := doc.(*TransactionsDoc)
	if !ok {
		return nil, fmt.Errorf("cache document %s has unexpected type %T", DocTransactions, doc)
	}
	return d, nil
}

// Replacement returns the replacement-scores document from a store.
func Replacement(s Store) (*ReplacementDoc, error) {
	doc, err := s.Get(DocReplacement)
	if err != nil {
		return nil, err
	}
	d, ok := doc.(*ReplacementDoc)
	if !ok {
		return nil, fmt.Errorf("cache document %s has unexpected type %T", DocReplacement, doc)
	}
	return d, nil
}

// Players returns the player-analytics document from a store.
func Players(s Store) (*PlayersDoc, error) {
	doc, err := s.Get(DocPlayers)
	if err != nil {
		return nil, err
	}
	d, ok := doc.(*PlayersDoc)
	if !ok {
		return nil, fmt.Errorf("cache document %s has unexpected type %T", DocPlayers, doc)
	}
	return d, nil
}

// Progress returns the progress document from a store.
func Progress(s Store) (*ProgressDoc, error) {
	doc, err := s.Get(DocProgress)
	if err != nil {
		return nil, err
	}
	d, ok := doc.(*ProgressDoc)
	if !ok {
		return nil, fmt.Errorf("cache document %s has unexpected type %T", DocProgress, doc)
	}
	return d, nil
}
