package proxmark

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestMockRunner_WriteReadRoundTrip(t *testing.T) {
	store := NewMockStore()
	runner := NewMockRunner(store).WithDelay(0)
	ctx := context.Background()

	payload := "00112233445566778899AABBCCDDEEFF"
	result := runner.Execute(ctx, WriteBlockCommand(4, "FFFFFFFFFFFF", payload), time.Second, "")
	if !result.Success {
		t.Fatalf("write failed: %s", result.ErrorText)
	}

	result = runner.Execute(ctx, ReadBlockCommand(4, "FFFFFFFFFFFF"), time.Second, "")
	if !result.Success {
		t.Fatalf("read failed: %s", result.ErrorText)
	}

	got, valid := ParseBlockData(result.Output)
	if !valid {
		t.Fatalf("read output unparseable: %q", result.Output)
	}
	if got != payload {
		t.Errorf("read back %q, want %q", got, payload)
	}
}

func TestMockStore_FillerPattern(t *testing.T) {
	store := NewMockStore()

	if got := store.Read(0); got != strings.Repeat("00", 16) {
		t.Errorf("Read(0) = %q, want zero filler", got)
	}
	if got := store.Read(63); got != strings.Repeat("3F", 16) {
		t.Errorf("Read(63) = %q, want %q", got, strings.Repeat("3F", 16))
	}

	// A read of an unwritten block must be stable, not random.
	if store.Read(17) != store.Read(17) {
		t.Error("filler pattern is not deterministic")
	}
}

func TestMockStore_Reset(t *testing.T) {
	store := NewMockStore()
	store.Write(4, "aa112233445566778899aabbccddeeff")

	if got := store.Read(4); got != "AA112233445566778899AABBCCDDEEFF" {
		t.Errorf("Read(4) = %q, want uppercased stored payload", got)
	}

	store.Reset()
	if got := store.Read(4); got != FillerPattern(4) {
		t.Errorf("Read(4) after Reset = %q, want filler", got)
	}
}

func TestMockRunner_Timeout(t *testing.T) {
	runner := NewMockRunner(NewMockStore()).WithDelay(100 * time.Millisecond)

	result := runner.Execute(context.Background(), CmdStatus, 50*time.Millisecond, "")
	if result.Success {
		t.Fatal("expected timeout failure")
	}
	if result.ReturnCode != -1 {
		t.Errorf("ReturnCode = %d, want -1", result.ReturnCode)
	}
	if !strings.Contains(result.ErrorText, "timed out") {
		t.Errorf("ErrorText = %q, want timeout description", result.ErrorText)
	}
}

func TestMockRunner_StatusAndPresence(t *testing.T) {
	runner := NewMockRunner(NewMockStore()).WithDelay(0)
	ctx := context.Background()

	result := runner.Execute(ctx, CmdStatus, time.Second, "")
	if !result.Success || !HasBanner(result.Output) {
		t.Errorf("status response missing banner: %q", result.Output)
	}

	result = runner.Execute(ctx, CmdCardInfo, time.Second, "")
	if !result.Success || !IndicatesPresence(result.Output) {
		t.Errorf("card info response does not indicate presence: %q", result.Output)
	}
	if !IsMifareClassic1K(result.Output) {
		t.Errorf("card info response is not Classic 1K: %q", result.Output)
	}
}

func TestDiscover_Simulated(t *testing.T) {
	runner := NewMockRunner(NewMockStore()).WithDelay(0)

	path, ok := Discover(context.Background(), runner, nil)
	if !ok {
		t.Fatal("Discover failed in simulated mode")
	}
	if path != DefaultCandidatePaths[0] {
		t.Errorf("path = %q, want %q", path, DefaultCandidatePaths[0])
	}

	path, ok = Discover(context.Background(), runner, []string{"/dev/ttyTEST"})
	if !ok || path != "/dev/ttyTEST" {
		t.Errorf("Discover = %q, %t, want /dev/ttyTEST, true", path, ok)
	}
}

func TestCLIRunner_SpawnFault(t *testing.T) {
	runner := &CLIRunner{Binary: "definitely-not-a-real-binary-7f3a"}

	result := runner.Execute(context.Background(), CmdStatus, time.Second, "")
	if result.Success {
		t.Fatal("expected spawn failure")
	}
	if result.ReturnCode != -1 {
		t.Errorf("ReturnCode = %d, want -1", result.ReturnCode)
	}
	if result.ErrorText == "" {
		t.Error("ErrorText empty for spawn fault")
	}
}
