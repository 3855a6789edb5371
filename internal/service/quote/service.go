// Package quote keeps the quote documents that extraction results are merged into.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/feichai0017/quote-extractor/internal/models"
	"github.com/feichai0017/quote-extractor/pkg/docstore"
	"github.com/feichai0017/quote-extractor/pkg/logger"
)

var (
	// ErrNotFound is returned for quotes that were never saved.
	ErrNotFound = errors.New("quote not found")
	// ErrMalformed is returned when an imported document is not a quote.
	ErrMalformed = errors.New("malformed quote document")
	// ErrInvalidID is returned for empty or unsafe quote ids.
	ErrInvalidID = errors.New("invalid quote id")
)

// Service loads, merges and saves quote documents.
type Service struct {
	store  docstore.Store
	logger logger.Logger
	now    func() time.Time

	// serializes read-modify-write per quote within this process
	locks sync.Map
}

func NewService(store docstore.Store, log logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: log.Named("quote"),
		now:    time.Now,
	}
}

func key(id string) string { return "quote:" + id }

func validID(id string) error {
	if id == "" || len(id) > 128 || strings.ContainsAny(id, "/\\ \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (s *Service) lock(id string) func() {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

// Default returns a fresh quote with the given id.
func (s *Service) Default(id string) *models.Quote {
	q := models.DefaultQuote(s.now())
	q.QuoteID = id
	return &q
}

// Get returns the stored quote with defaults filled in for fields it never set.
func (s *Service) Get(ctx context.Context, id string) (*models.Quote, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *Service) load(ctx context.Context, id string) (*models.Quote, error) {
	data, err := s.store.Load(ctx, key(id))
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load quote: %w", err)
	}

	q := s.Default(id)
	if err := json.Unmarshal(data, q); err != nil {
		return nil, fmt.Errorf("failed to decode quote %s: %w", id, err)
	}
	q.QuoteID = id
	return q, nil
}

// Save replaces the stored quote.
func (s *Service) Save(ctx context.Context, id string, q *models.Quote) error {
	if err := validID(id); err != nil {
		return err
	}
	unlock := s.lock(id)
	defer unlock()
	return s.save(ctx, id, q)
}

func (s *Service) save(ctx context.Context, id string, q *models.Quote) error {
	q.QuoteID = id
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to encode quote: %w", err)
	}
	if err := s.store.Save(ctx, key(id), data); err != nil {
		return fmt.Errorf("failed to save quote: %w", err)
	}
	return nil
}

// ApplyUpdates merges extracted fields into the quote, creating it from
// defaults when missing. Fields absent from updates are left untouched. It
// returns the number of fields applied.
func (s *Service) ApplyUpdates(ctx context.Context, id string, updates models.FieldUpdateMap) (int, error) {
	if err := validID(id); err != nil {
		return 0, err
	}
	unlock := s.lock(id)
	defer unlock()

	q, err := s.load(ctx, id)
	if errors.Is(err, ErrNotFound) {
		q, err = s.Default(id), nil
	}
	if err != nil {
		return 0, err
	}

	applied := q.Apply(updates)
	if applied == 0 {
		return 0, nil
	}
	if err := s.save(ctx, id, q); err != nil {
		return 0, err
	}

	s.logger.Info("Applied extracted fields",
		logger.String("quoteId", id),
		logger.Int("fieldCount", applied),
	)
	return applied, nil
}

// Reset stores a fresh default quote under id.
func (s *Service) Reset(ctx context.Context, id string) (*models.Quote, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	unlock := s.lock(id)
	defer unlock()

	q := s.Default(id)
	if err := s.save(ctx, id, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Delete removes the stored quote.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := validID(id); err != nil {
		return err
	}
	unlock := s.lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, key(id)); err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	return nil
}

// ExportFilename is the download name of an exported quote.
func ExportFilename(q *models.Quote) string {
	return fmt.Sprintf("Cotizacion-%s.json", q.QuoteID)
}

// Export returns the quote as indented JSON with its download name.
func (s *Service) Export(ctx context.Context, id string) (string, []byte, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	data, err := json.MarshalIndent(q, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode quote: %w", err)
	}
	return ExportFilename(q), data, nil
}

// Import replaces the quote with an exported document. Fields the document
// omits take their default values.
func (s *Service) Import(ctx context.Context, id string, data []byte) (*models.Quote, error) {
	if err := validID(id); err != nil {
		return nil, err
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	q := s.Default(id)
	if err := json.Unmarshal(data, q); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	unlock := s.lock(id)
	defer unlock()
	if err := s.save(ctx, id, q); err != nil {
		return nil, err
	}

	s.logger.Info("Quote imported",
		logger.String("quoteId", id),
		logger.Int("keys", len(probe)),
	)
	return q, nil
}
