package threads

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"threadmem/internal/crypto"
	"threadmem/internal/kvstore"
	"threadmem/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(kvstore.NewMemoryStore(time.Minute), time.Hour, nil)
}

func newTestEncryption(t *testing.T) *crypto.EncryptionService {
	t.Helper()
	enc, err := crypto.NewEncryptionService("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")
	if err != nil {
		t.Fatalf("NewEncryptionService failed: %v", err)
	}
	return enc
}

func TestStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	created, err := store.Create(ctx, "chat", "", map[string]any{"prompt": "hello"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if created.ID == "" {
		t.Fatal("created thread has no ID")
	}
	if created.SchemaVersion != models.CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", created.SchemaVersion, models.CurrentSchemaVersion)
	}

	loaded, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.ToolName != "chat" {
		t.Errorf("ToolName = %q, want chat", loaded.ToolName)
	}
	if len(loaded.Turns) != 0 {
		t.Errorf("new thread should have no turns, got %d", len(loaded.Turns))
	}
	if loaded.InitialContext["prompt"] != "hello" {
		t.Errorf("InitialContext not preserved: %v", loaded.InitialContext)
	}
}

func TestStore_GetUnknownThread(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-thread")
	if err == nil {
		t.Fatal("expected error for unknown thread")
	}
	if !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("expected thread_not_found kind, got %v", err)
	}

	var te *ThreadError
	if !errors.As(err, &te) || te.ThreadID != "no-such-thread" {
		t.Errorf("error should carry the failing thread ID, got %v", err)
	}
}

func TestStore_AppendTurnMonotonicTotals(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	thread, err := store.Create(ctx, "review", "", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	turns := []models.Turn{
		{Role: models.RoleUser, Content: "q1", Tool: "review", Usage: &models.TokenUsage{InputTokens: 100, OutputTokens: 0}},
		{Role: models.RoleAssistant, Content: "a1", Tool: "review", Model: "gpt-5", Usage: &models.TokenUsage{InputTokens: 0, OutputTokens: 250}},
		{Role: models.RoleUser, Content: "q2", Tool: "consensus", Usage: &models.TokenUsage{InputTokens: 40, OutputTokens: 0}},
	}

	var updated *models.Thread
	for _, turn := range turns {
		updated, err = store.AppendTurn(ctx, thread.ID, turn)
		if err != nil {
			t.Fatalf("AppendTurn failed: %v", err)
		}
	}

	if updated.Metadata.TotalInputTokens != 140 {
		t.Errorf("TotalInputTokens = %d, want 140", updated.Metadata.TotalInputTokens)
	}
	if updated.Metadata.TotalOutputTokens != 250 {
		t.Errorf("TotalOutputTokens = %d, want 250", updated.Metadata.TotalOutputTokens)
	}

	// Running totals must equal a from-scratch recomputation.
	input, output := updated.RecomputeTokenTotals()
	if input != updated.Metadata.TotalInputTokens || output != updated.Metadata.TotalOutputTokens {
		t.Errorf("recomputed totals (%d, %d) disagree with running totals (%d, %d)",
			input, output, updated.Metadata.TotalInputTokens, updated.Metadata.TotalOutputTokens)
	}

	wantTools := []string{"review", "consensus"}
	if !reflect.DeepEqual(updated.Metadata.ToolsUsed, wantTools) {
		t.Errorf("ToolsUsed = %v, want %v", updated.Metadata.ToolsUsed, wantTools)
	}
}

func TestStore_AppendTurnRefreshesLastUpdated(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	thread, _ := store.Create(ctx, "chat", "", nil)
	before := thread.LastUpdatedAt

	time.Sleep(5 * time.Millisecond)
	updated, err := store.AppendTurn(ctx, thread.ID, models.Turn{Role: models.RoleUser, Content: "hi"})
	if err != nil {
		t.Fatalf("AppendTurn failed: %v", err)
	}
	if !updated.LastUpdatedAt.After(before) {
		t.Errorf("LastUpdatedAt not refreshed: %v -> %v", before, updated.LastUpdatedAt)
	}
}

func TestStore_DuplicateAppendIgnored(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	thread, _ := store.Create(ctx, "chat", "", nil)

	turn := models.Turn{Role: models.RoleUser, Content: "same turn", Tool: "chat"}
	first, err := store.AppendTurn(ctx, thread.ID, turn)
	if err != nil {
		t.Fatalf("first append failed: %v", err)
	}

	// Caller retries after an append whose outcome was unknown.
	second, err := store.AppendTurn(ctx, thread.ID, turn)
	if err != nil {
		t.Fatalf("retried append failed: %v", err)
	}

	if len(first.Turns) != 1 || len(second.Turns) != 1 {
		t.Errorf("duplicate append should not grow the log: first=%d second=%d",
			len(first.Turns), len(second.Turns))
	}
}

func TestStore_ValidateSequence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	thread, _ := store.Create(ctx, "chat", "", nil)
	store.AppendTurn(ctx, thread.ID, models.Turn{Role: models.RoleUser, Content: "one"})
	loaded, _ := store.Get(ctx, thread.ID)

	if err := store.ValidateSequence(loaded, 2); err != nil {
		t.Errorf("sequence 2 after one turn should be valid: %v", err)
	}

	err := store.ValidateSequence(loaded, 4)
	if err == nil {
		t.Fatal("skipping a step should fail")
	}
	if !errors.Is(err, ErrInvalidSequence) {
		t.Errorf("expected invalid_sequence kind, got %v", err)
	}
}

func TestStore_FinalizeAndResumeSeed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	thread, _ := store.Create(ctx, "planner", "", nil)
	store.AppendTurn(ctx, thread.ID, models.Turn{Role: models.RoleUser, Content: "plan the migration"})

	if err := store.Finalize(ctx, thread.ID, "migration plan complete: 4 phases"); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}

	// Finalize must not delete the thread.
	loaded, err := store.Get(ctx, thread.ID)
	if err != nil {
		t.Fatalf("Get after finalize failed: %v", err)
	}
	if loaded.Summary != "migration plan complete: 4 phases" {
		t.Errorf("Summary = %q", loaded.Summary)
	}

	_, seed, err := store.ResumeSeed(ctx, thread.ID)
	if err != nil {
		t.Fatalf("ResumeSeed failed: %v", err)
	}
	if seed != "migration plan complete: 4 phases" {
		t.Errorf("seed = %q", seed)
	}
}

func TestStore_ResumeSeedWalksParentChain(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	parent, _ := store.Create(ctx, "planner", "", nil)
	store.Finalize(ctx, parent.ID, "ancestor summary")

	child, err := store.Create(ctx, "planner", parent.ID, nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	_, seed, err := store.ResumeSeed(ctx, child.ID)
	if err != nil {
		t.Fatalf("ResumeSeed failed: %v", err)
	}
	if seed != "ancestor summary" {
		t.Errorf("seed = %q, want ancestor summary", seed)
	}
}

func TestStore_ResumeSeedWithNoFinalizedAncestor(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	thread, _ := store.Create(ctx, "chat", "", nil)
	_, seed, err := store.ResumeSeed(ctx, thread.ID)
	if err != nil {
		t.Fatalf("ResumeSeed failed: %v", err)
	}
	if seed != "" {
		t.Errorf("expected empty seed, got %q", seed)
	}
}

func TestStore_EncryptedRoundTrip(t *testing.T) {
	ctx := context.Background()

	enc := newTestEncryption(t)
	store := NewStore(kvstore.NewMemoryStore(time.Minute), time.Hour, enc)

	thread, err := store.Create(ctx, "chat", "", map[string]any{"secret": "value"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	loaded, err := store.Get(ctx, thread.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if loaded.InitialContext["secret"] != "value" {
		t.Errorf("encrypted round trip lost data: %v", loaded.InitialContext)
	}
}
