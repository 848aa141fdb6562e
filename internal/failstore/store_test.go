package failstore

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vzubenko/npd-receipt-backend/internal/receipt"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "errors.json")
	st := New(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	st.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return st, path
}

func readRecords(t *testing.T, path string) []Record {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("parse %s: %v", path, err)
	}
	return records
}

func sampleRecord() Record {
	return Record{
		Email: "buyer@example.com",
		Items: []receipt.LineItem{
			{ID: "1", Name: "A", Price: decimal.RequireFromString("10.50"), Quantity: 2},
		},
		Amount:  decimal.RequireFromString("21.00"),
		Error:   "service unavailable",
		APIPass: "secret",
	}
}

func TestRecord_CreatesFileWithOneRecord(t *testing.T) {
	st, path := newTestStore(t)

	if err := st.Record(sampleRecord()); err != nil {
		t.Fatalf("record: %v", err)
	}

	records := readRecords(t, path)
	if len(records) != 1 {
		t.Fatalf("records: got %d, want 1", len(records))
	}
	r := records[0]
	if r.Email != "buyer@example.com" {
		t.Errorf("email: got %q", r.Email)
	}
	if !r.Amount.Equal(decimal.RequireFromString("21.00")) {
		t.Errorf("amount: got %s", r.Amount)
	}
	if r.Error != "service unavailable" {
		t.Errorf("error: got %q", r.Error)
	}
	if r.RetryAttempt != 0 {
		t.Errorf("retryAttempt: got %d, want 0", r.RetryAttempt)
	}
	if r.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
	if len(r.Items) != 1 || r.Items[0].Name != "A" {
		t.Errorf("items not preserved verbatim: %+v", r.Items)
	}
}

func TestRecord_AppendsToExistingFile(t *testing.T) {
	st, path := newTestStore(t)

	for i := 0; i < 3; i++ {
		if err := st.Record(sampleRecord()); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	if got := len(readRecords(t, path)); got != 3 {
		t.Errorf("records: got %d, want 3", got)
	}
}

func TestRecord_CorruptFileTreatedAsEmpty(t *testing.T) {
	st, path := newTestStore(t)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := st.Record(sampleRecord()); err != nil {
		t.Fatalf("record over corrupt file: %v", err)
	}

	if got := len(readRecords(t, path)); got != 1 {
		t.Errorf("records: got %d, want 1 (corrupt history discarded)", got)
	}
}

func TestRecord_ConcurrentWritersLoseNothing(t *testing.T) {
	st, path := newTestStore(t)

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := st.Record(sampleRecord()); err != nil {
				t.Errorf("record: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(readRecords(t, path)); got != writers {
		t.Errorf("records: got %d, want %d", got, writers)
	}
}

func TestRecord_FilePrettyPrinted(t *testing.T) {
	st, path := newTestStore(t)
	if err := st.Record(sampleRecord()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data[:2]) != "[\n" {
		t.Errorf("file should be an indented array, starts with %q", data[:2])
	}
}
