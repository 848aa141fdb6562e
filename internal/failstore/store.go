// Package failstore persists failed receipt-creation attempts to a JSON file
// so they can be reprocessed manually. The file is an ever-growing array;
// records are appended, never mutated or removed by this service.
package failstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vzubenko/npd-receipt-backend/internal/receipt"
)

// Record is one failed receipt-creation attempt, captured verbatim so the
// request can be replayed later.
type Record struct {
	Email        string             `json:"email"`
	Items        []receipt.LineItem `json:"items"`
	Amount       decimal.Decimal    `json:"amount"`
	Error        string             `json:"error"`
	APIPass      string             `json:"api_pass"`
	Timestamp    time.Time          `json:"timestamp"`
	RetryAttempt int                `json:"retryAttempt"`
}

// Store appends records to a single JSON file with a full read-modify-write
// on every failure. Writers are serialized through mu; without it two
// concurrent failures could each read the same base array and one append
// would be lost.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.Mutex

	// now is swapped out in tests for deterministic timestamps.
	now func() time.Time
}

// New returns a Store writing to path. The file is created on first failure.
func New(path string, logger *slog.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

// Record appends one failure to the file. The timestamp and retryAttempt
// fields are set here, not by the caller. A missing or corrupt existing file
// is treated as an empty history, never as an error.
func (s *Store) Record(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r.Timestamp = s.now()
	r.RetryAttempt = 0

	records := s.load()
	records = append(records, r)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failstore: marshal records: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failstore: write %s: %w", s.path, err)
	}

	s.logger.Info("failstore: recorded failed receipt",
		"email", r.Email,
		"amount", r.Amount,
		"total_records", len(records),
	)
	return nil
}

// load reads the existing array. Any read or parse problem yields an empty
// slice — the file may simply not exist yet, and a corrupt file must not
// block recording the failure at hand.
func (s *Store) load() []Record {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.Warn("failstore: existing file unreadable, starting fresh",
			"path", s.path,
			"error", err,
		)
		return nil
	}
	return records
}
