package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// Entry is one journal line describing a completed delivery.
type Entry struct {
	Time         time.Time `json:"time"`
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Priority     string    `json:"priority"`
	Type         string    `json:"type"`
	ContextGroup string    `json:"context_group"`
	BatchSize    int       `json:"batch_size"`
	ElapsedMS    int64     `json:"elapsed_ms"`
	Error        string    `json:"error,omitempty"`
}

// Journal is an append-only gzip JSONL file of delivery entries. Each Append
// writes one line; Close flushes the compressor. Safe for concurrent use.
//
// Gzip members concatenate, so appending to an existing journal from a prior
// run produces a file any gzip reader decodes as one stream.
type Journal struct {
	mu   sync.Mutex
	file *os.File
	gz   *gzip.Writer
	enc  *json.Encoder
}

// OpenJournal opens or creates the journal file at path.
func OpenJournal(path string) (*Journal, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}
	gz := gzip.NewWriter(f)
	return &Journal{
		file: f,
		gz:   gz,
		enc:  json.NewEncoder(gz),
	}, nil
}

// Append writes one entry and flushes it to the OS, so a crash loses at most
// the entry being written.
func (j *Journal) Append(e Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.gz == nil {
		return fmt.Errorf("journal is closed")
	}
	if err := j.enc.Encode(e); err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}
	if err := j.gz.Flush(); err != nil {
		return fmt.Errorf("flushing journal: %w", err)
	}
	return nil
}

// Close finalizes the gzip stream and closes the file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.gz == nil {
		return nil
	}
	gzErr := j.gz.Close()
	fileErr := j.file.Close()
	j.gz = nil

	if gzErr != nil {
		return fmt.Errorf("closing journal compressor: %w", gzErr)
	}
	if fileErr != nil {
		return fmt.Errorf("closing journal file: %w", fileErr)
	}
	return nil
}
