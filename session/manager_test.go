package session

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/filaform/filatag/auditlog"
	"github.com/filaform/filatag/catalog"
	"github.com/filaform/filatag/mifare"
	"github.com/filaform/filatag/proxmark"
	"github.com/filaform/filatag/types"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	dir := t.TempDir()
	if err := catalog.SeedSampleImages(dir); err != nil {
		t.Fatalf("SeedSampleImages failed: %v", err)
	}
	return catalog.New(filepath.Join(dir, "mapping.json"), catalog.NewFSStore(dir))
}

func newTestManager(t *testing.T, runner proxmark.Runner, strict bool) *Manager {
	t.Helper()
	programmer := mifare.NewProgrammer(runner, nil, nil).
		WithCommandTimeout(time.Second).
		WithSimulatedVerifyDelay(time.Millisecond)
	return NewManager(newTestCatalog(t), programmer, nil, strict)
}

// waitTerminal polls the session until the tag reaches a terminal
// status or the deadline expires.
func waitTerminal(t *testing.T, mgr *Manager, sessionID string, tagNumber int) *types.Session {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		sess, err := mgr.GetSession(sessionID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if sess.TagStatusFor(tagNumber).IsTerminal() {
			return sess
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("tag %d never reached a terminal status", tagNumber)
	return nil
}

func TestManager_StartSession(t *testing.T) {
	runner := proxmark.NewMockRunner(proxmark.NewMockStore()).WithDelay(0)
	mgr := newTestManager(t, runner, false)

	sess, err := mgr.StartSession(context.Background(), "PLA001", "spool-7", "alex")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if sess.ID == "" {
		t.Error("session ID is empty")
	}
	if sess.Tag1Status != types.TagPending || sess.Tag2Status != types.TagPending {
		t.Errorf("initial statuses = %q, %q, want pending", sess.Tag1Status, sess.Tag2Status)
	}
	if sess.SpoolID != "spool-7" || sess.Operator != "alex" {
		t.Errorf("SpoolID, Operator = %q, %q", sess.SpoolID, sess.Operator)
	}
}

func TestManager_StartSession_UnknownSKU(t *testing.T) {
	runner := proxmark.NewMockRunner(proxmark.NewMockStore()).WithDelay(0)
	mgr := newTestManager(t, runner, false)

	_, err := mgr.StartSession(context.Background(), "UNKNOWN99", "", "")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("StartSession(UNKNOWN99) = %v, want catalog.ErrNotFound", err)
	}
}

func TestManager_ProgramTag_InvalidOrdinal(t *testing.T) {
	runner := proxmark.NewMockRunner(proxmark.NewMockStore()).WithDelay(0)
	mgr := newTestManager(t, runner, false)

	sess, err := mgr.StartSession(context.Background(), "PLA001", "", "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	for _, n := range []int{0, 3, -1} {
		err := mgr.ProgramTag(context.Background(), sess.ID, n)
		if !errors.Is(err, ErrInvalidTagNumber) {
			t.Errorf("ProgramTag(%d) = %v, want ErrInvalidTagNumber", n, err)
		}
	}
}

func TestManager_ProgramTag_UnknownSession(t *testing.T) {
	runner := proxmark.NewMockRunner(proxmark.NewMockStore()).WithDelay(0)
	mgr := newTestManager(t, runner, false)

	err := mgr.ProgramTag(context.Background(), "no-such-session", 1)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("ProgramTag = %v, want ErrSessionNotFound", err)
	}

	_, err = mgr.GetSession("no-such-session")
	if !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession = %v, want ErrSessionNotFound", err)
	}
}

func TestManager_FullSession(t *testing.T) {
	runner := proxmark.NewMockRunner(proxmark.NewMockStore()).WithDelay(0)
	mgr := newTestManager(t, runner, true)
	ctx := context.Background()

	sess, err := mgr.StartSession(ctx, "PLA001", "spool-1", "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}

	if err := mgr.ProgramTag(ctx, sess.ID, 1); err != nil {
		t.Fatalf("ProgramTag(1) failed: %v", err)
	}
	got := waitTerminal(t, mgr, sess.ID, 1)
	if got.Tag1Status != types.TagPass {
		t.Fatalf("Tag1Status = %q, want pass", got.Tag1Status)
	}
	if len(got.Tag1Fingerprint) != 64 {
		t.Errorf("Tag1Fingerprint = %q, want 64 hex chars", got.Tag1Fingerprint)
	}
	if got.CompletedAt != nil {
		t.Error("CompletedAt set before both tags finished")
	}

	if err := mgr.ProgramTag(ctx, sess.ID, 2); err != nil {
		t.Fatalf("ProgramTag(2) failed: %v", err)
	}
	got = waitTerminal(t, mgr, sess.ID, 2)
	if got.Tag2Status != types.TagPass {
		t.Fatalf("Tag2Status = %q, want pass", got.Tag2Status)
	}
	if got.Tag1Fingerprint != got.Tag2Fingerprint {
		t.Error("both tags should carry the same image fingerprint")
	}
	if !got.Complete() {
		t.Error("session not complete after both tags passed")
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not stamped")
	}
}

// failingRunner answers probes but rejects every write.
type failingRunner struct{}

func (failingRunner) Execute(_ context.Context, command string, _ time.Duration, _ string) *proxmark.CommandResult {
	if strings.Contains(command, proxmark.CmdCardInfo) {
		return &proxmark.CommandResult{
			Success: true,
			Output:  "UID: 12 34 56 78\nType: MIFARE Classic 1K",
		}
	}
	return &proxmark.CommandResult{Success: false, ErrorText: "auth failed", ReturnCode: 1}
}

func (failingRunner) Simulated() bool { return true }

func TestManager_ProgramTag_WriteFailure(t *testing.T) {
	mgr := newTestManager(t, failingRunner{}, false)
	ctx := context.Background()

	sess, err := mgr.StartSession(ctx, "PLA001", "", "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := mgr.ProgramTag(ctx, sess.ID, 1); err != nil {
		t.Fatalf("ProgramTag failed: %v", err)
	}

	got := waitTerminal(t, mgr, sess.ID, 1)
	if got.Tag1Status != types.TagFail {
		t.Errorf("Tag1Status = %q, want fail", got.Tag1Status)
	}
	if got.Tag1Fingerprint != "" {
		t.Errorf("Tag1Fingerprint = %q, want empty on failure", got.Tag1Fingerprint)
	}
}

func TestManager_AuditTrail(t *testing.T) {
	runner := proxmark.NewMockRunner(proxmark.NewMockStore()).WithDelay(0)
	audit := auditlog.NewStore(filepath.Join(t.TempDir(), "actions.log"))

	programmer := mifare.NewProgrammer(runner, nil, nil).
		WithCommandTimeout(time.Second).
		WithSimulatedVerifyDelay(time.Millisecond)
	mgr := NewManager(newTestCatalog(t), programmer, nil, false).WithAudit(audit)
	ctx := context.Background()

	sess, err := mgr.StartSession(ctx, "PETG003", "", "")
	if err != nil {
		t.Fatalf("StartSession failed: %v", err)
	}
	if err := mgr.ProgramTag(ctx, sess.ID, 1); err != nil {
		t.Fatalf("ProgramTag failed: %v", err)
	}
	waitTerminal(t, mgr, sess.ID, 1)

	entries, err := audit.Tail(10)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("len(entries) = %d, want at least 2", len(entries))
	}
	if entries[0].Action != "session_started" {
		t.Errorf("first action = %q, want session_started", entries[0].Action)
	}
	last := entries[len(entries)-1]
	if last.Action != "tag_programmed" {
		t.Errorf("last action = %q, want tag_programmed", last.Action)
	}
	if last.SessionID != sess.ID {
		t.Errorf("SessionID = %q, want %q", last.SessionID, sess.ID)
	}
}
