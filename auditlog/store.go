// Package auditlog provides an append-only JSONL action log.
//
// Every session-affecting action gets one line: {ts, action,
// session_id, fields}. The log is the operator-facing audit trail; it
// is not a durability mechanism and is read only via bounded tail
// queries.
package auditlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Entry is one audit log line.
type Entry struct {
	Ts        string         `json:"ts"`
	Action    string         `json:"action"`
	SessionID string         `json:"session_id,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Store appends entries to a JSONL file. Safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
}

// NewStore creates a store writing to the given path. The parent
// directory is created on first append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Append writes one entry with the current timestamp.
func (s *Store) Append(action, sessionID string, fields map[string]any) error {
	entry := Entry{
		Ts:        time.Now().UTC().Format(time.RFC3339Nano),
		Action:    action,
		SessionID: sessionID,
		Fields:    fields,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("auditlog: marshal entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("auditlog: create dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("auditlog: open %s: %w", s.path, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("auditlog: write: %w", err)
	}
	return nil
}

// Tail returns up to limit most recent entries, oldest first.
// Malformed lines are skipped. A missing file yields an empty slice.
func (s *Store) Tail(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("auditlog: open %s: %w", s.path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("auditlog: read %s: %w", s.path, err)
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}
