// Package session implements two-tag manual programming session
// bookkeeping.
//
// A session tracks both spool tags from PENDING through their terminal
// status. Tag programming runs in a background goroutine per request;
// the manager gives no ordering guarantee between concurrently
// requested tag-1/tag-2 units against the single shared hardware
// channel. Callers must not invoke both simultaneously.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/filaform/filatag/auditlog"
	"github.com/filaform/filatag/catalog"
	"github.com/filaform/filatag/log"
	"github.com/filaform/filatag/metrics"
	"github.com/filaform/filatag/mifare"
	"github.com/filaform/filatag/types"
)

// Sentinel errors for session operations.
var (
	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidTagNumber indicates a tag ordinal outside {1, 2}.
	ErrInvalidTagNumber = errors.New("tag number must be 1 or 2")
)

// Manager owns the active sessions for the process lifetime. Sessions
// are never evicted.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*types.Session

	catalog    *catalog.Catalog
	programmer *mifare.Programmer
	logger     *log.Logger
	audit      *auditlog.Store
	collector  *metrics.Collector

	strictVerify bool
}

// NewManager creates a session manager. audit and collector may be nil.
func NewManager(cat *catalog.Catalog, programmer *mifare.Programmer, logger *log.Logger, strictVerify bool) *Manager {
	if logger == nil {
		logger = log.NewLogger()
	}
	return &Manager{
		sessions:     make(map[string]*types.Session),
		catalog:      cat,
		programmer:   programmer,
		logger:       logger,
		strictVerify: strictVerify,
	}
}

// WithAudit attaches an audit log store.
func (m *Manager) WithAudit(audit *auditlog.Store) *Manager {
	m.audit = audit
	return m
}

// WithCollector attaches a metrics collector.
func (m *Manager) WithCollector(c *metrics.Collector) *Manager {
	m.collector = c
	return m
}

// StartSession resolves the SKU and creates a session with both tags
// PENDING. Fails with catalog.ErrNotFound when the SKU is unknown or
// its image file is absent.
func (m *Manager) StartSession(ctx context.Context, sku, spoolID, operator string) (*types.Session, error) {
	// Resolving the image up front surfaces missing SKUs and missing
	// binaries before any hardware work starts.
	if _, _, err := m.catalog.ResolveImage(ctx, sku); err != nil {
		return nil, err
	}

	s := &types.Session{
		ID:         uuid.NewString(),
		SKU:        sku,
		SpoolID:    spoolID,
		Operator:   operator,
		Tag1Status: types.TagPending,
		Tag2Status: types.TagPending,
		StartedAt:  time.Now().UTC(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.logAction("session_started", s.ID, map[string]any{
		"sku":      sku,
		"spool_id": spoolID,
		"operator": operator,
	})

	snapshot := *s
	return &snapshot, nil
}

// GetSession returns a snapshot of the session.
func (m *Manager) GetSession(id string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, ErrSessionNotFound)
	}
	snapshot := *s
	return &snapshot, nil
}

// ProgramTag marks the tag WRITING and schedules the programming unit
// without waiting for it. Fails with ErrInvalidTagNumber outside
// {1, 2} and ErrSessionNotFound for unknown sessions.
func (m *Manager) ProgramTag(ctx context.Context, sessionID string, tagNumber int) error {
	if tagNumber != 1 && tagNumber != 2 {
		return fmt.Errorf("tag %d: %w", tagNumber, ErrInvalidTagNumber)
	}

	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("session %q: %w", sessionID, ErrSessionNotFound)
	}
	sku := s.SKU
	m.setStatus(s, tagNumber, types.TagWriting)
	m.mu.Unlock()

	filament, image, err := m.catalog.ResolveImage(ctx, sku)
	if err != nil {
		m.updateStatus(sessionID, tagNumber, types.TagError, "")
		return err
	}

	// The unit outlives the caller's request context.
	unitCtx := context.WithoutCancel(ctx)
	go m.programUnit(unitCtx, sessionID, tagNumber, image, filament.Keys)

	return nil
}

// programUnit programs and verifies one tag. Every fault inside the
// unit is contained and mapped to a terminal status; nothing
// propagates to the host process.
func (m *Manager) programUnit(ctx context.Context, sessionID string, tagNumber int, image []byte, keys []string) {
	logger := m.logger.WithSession(sessionID, "")

	defer func() {
		if r := recover(); r != nil {
			logger.Error("programming unit panicked", map[string]any{
				"tag_number": tagNumber,
				"panic":      fmt.Sprint(r),
			})
			m.updateStatus(sessionID, tagNumber, types.TagError, "")
			m.collector.IncTagErrored()
			m.logAction("tag_error", sessionID, map[string]any{
				"tag_number": tagNumber,
				"error":      fmt.Sprint(r),
			})
		}
	}()

	fingerprint, err := m.programmer.ProgramTag(ctx, image, keys)
	if err != nil {
		logger.Error("programming failed", map[string]any{
			"tag_number": tagNumber,
			"error":      err.Error(),
		})
		m.updateStatus(sessionID, tagNumber, types.TagFail, "")
		m.collector.IncTagFailed()
		m.logAction("tag_failed", sessionID, map[string]any{
			"tag_number": tagNumber,
			"error":      err.Error(),
		})
		return
	}

	m.updateStatus(sessionID, tagNumber, types.TagVerifying, fingerprint)

	final := types.TagPass
	if m.strictVerify {
		verified, err := m.programmer.VerifyTag(ctx, fingerprint, keys)
		if err != nil {
			logger.Error("verification failed", map[string]any{
				"tag_number": tagNumber,
				"error":      err.Error(),
			})
			final = types.TagFail
		} else if !verified {
			final = types.TagFail
		}
	}

	m.updateStatus(sessionID, tagNumber, final, fingerprint)
	if final == types.TagPass {
		m.collector.IncTagPassed()
	} else {
		m.collector.IncTagFailed()
	}

	m.logAction("tag_programmed", sessionID, map[string]any{
		"tag_number":  tagNumber,
		"status":      string(final),
		"fingerprint": fingerprint,
	})
}

// updateStatus sets the tag status (and fingerprint, when non-empty)
// and stamps CompletedAt once both tags are terminal.
func (m *Manager) updateStatus(sessionID string, tagNumber int, status types.TagStatus, fingerprint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return
	}
	m.setStatus(s, tagNumber, status)
	if fingerprint != "" {
		if tagNumber == 1 {
			s.Tag1Fingerprint = fingerprint
		} else {
			s.Tag2Fingerprint = fingerprint
		}
	}
	if s.Complete() && s.CompletedAt == nil {
		now := time.Now().UTC()
		s.CompletedAt = &now
	}
}

// setStatus mutates the session under the caller's lock.
func (m *Manager) setStatus(s *types.Session, tagNumber int, status types.TagStatus) {
	if tagNumber == 1 {
		s.Tag1Status = status
	} else {
		s.Tag2Status = status
	}
}

// logAction appends to the audit log, best effort.
func (m *Manager) logAction(action, sessionID string, fields map[string]any) {
	if m.audit == nil {
		return
	}
	if err := m.audit.Append(action, sessionID, fields); err != nil {
		m.logger.Warn("audit append failed", map[string]any{"error": err.Error()})
	}
}
