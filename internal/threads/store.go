package threads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"threadmem/internal/crypto"
	"threadmem/internal/kvstore"
	"threadmem/internal/models"

	"github.com/google/uuid"
)

// DefaultThreadTTL bounds how long an inactive thread stays reachable.
// Refreshed on every append; eviction itself is the store's responsibility.
const DefaultThreadTTL = 3 * time.Hour

// maxResumeDepth bounds the parent-chain walk during RESUME so a cyclic or
// very deep chain of ParentThreadID links cannot stall a request.
const maxResumeDepth = 10

const keyPrefix = "thread:"

// Store persists threads in an external KV store. The store is the sole
// source of truth: no thread state is cached in-process, so a restarted
// process sees exactly what the backing store holds. Within one thread,
// AppendTurn calls must be serialized by the caller; this layer provides no
// distributed locking.
type Store struct {
	kv         kvstore.Store
	ttl        time.Duration
	encryption *crypto.EncryptionService
}

// NewStore creates a thread store over the given KV backend. encryption may
// be nil, in which case records are persisted as plain JSON.
func NewStore(kv kvstore.Store, ttl time.Duration, encryption *crypto.EncryptionService) *Store {
	if ttl <= 0 {
		ttl = DefaultThreadTTL
	}
	return &Store{kv: kv, ttl: ttl, encryption: encryption}
}

// Create generates a new thread with a fresh ID and persists it with the
// configured TTL. parentThreadID is optional and weak: it seeds RESUME
// lookups but is never validated against the store here.
func (s *Store) Create(ctx context.Context, toolName, parentThreadID string, initialContext map[string]any) (*models.Thread, error) {
	now := time.Now().UTC()
	thread := &models.Thread{
		ID:             uuid.New().String(),
		ToolName:       toolName,
		ParentThreadID: parentThreadID,
		CreatedAt:      now,
		LastUpdatedAt:  now,
		Turns:          []models.Turn{},
		InitialContext: initialContext,
		SchemaVersion:  models.CurrentSchemaVersion,
	}

	if err := s.persist(ctx, thread); err != nil {
		return nil, err
	}

	log.Printf("🧵 [THREADS] Created thread %s (tool: %s)", thread.ID, toolName)
	return thread, nil
}

// Get loads and deserializes a thread. Absent or expired IDs fail with the
// thread-not-found kind.
func (s *Store) Get(ctx context.Context, id string) (*models.Thread, error) {
	data, err := s.kv.Get(ctx, keyPrefix+id)
	if err != nil {
		if errors.Is(err, kvstore.ErrKeyNotFound) {
			return nil, notFoundErr(id)
		}
		return nil, storeErr(id, err)
	}

	if s.encryption != nil {
		data, err = s.encryption.Decrypt(id, data)
		if err != nil {
			return nil, storeErr(id, fmt.Errorf("failed to decrypt thread record: %w", err))
		}
	}

	var thread models.Thread
	if err := json.Unmarshal(data, &thread); err != nil {
		return nil, storeErr(id, fmt.Errorf("failed to deserialize thread record: %w", err))
	}
	return &thread, nil
}

// AppendTurn appends one turn via read-modify-write: load, append, refresh
// LastUpdatedAt and running totals, re-persist with the TTL restarted.
// A retried append whose previous outcome was unknown is detected by
// comparing against the last stored turn and returns the thread unchanged.
func (s *Store) AppendTurn(ctx context.Context, id string, turn models.Turn) (*models.Thread, error) {
	thread, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if n := len(thread.Turns); n > 0 && sameTurn(thread.Turns[n-1], turn) {
		log.Printf("🧵 [THREADS] Duplicate append detected on thread %s, ignoring retry", id)
		return thread, nil
	}

	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	thread.Turns = append(thread.Turns, turn)
	thread.LastUpdatedAt = time.Now().UTC()

	if turn.Tool != "" && !thread.HasTool(turn.Tool) {
		thread.Metadata.ToolsUsed = append(thread.Metadata.ToolsUsed, turn.Tool)
	}
	if turn.Usage != nil {
		thread.Metadata.TotalInputTokens += turn.Usage.InputTokens
		thread.Metadata.TotalOutputTokens += turn.Usage.OutputTokens
	}

	if err := s.persist(ctx, thread); err != nil {
		return nil, err
	}
	return thread, nil
}

// ValidateSequence enforces sequential turn numbering against the loaded
// thread: the Nth appended turn must carry sequence N. Skipping a step is a
// hard error rather than a silent reorder.
func (s *Store) ValidateSequence(thread *models.Thread, turnSequence int) error {
	expected := len(thread.Turns) + 1
	if turnSequence != expected {
		return &ThreadError{
			Kind:     KindInvalidSequence,
			ThreadID: thread.ID,
			Err:      fmt.Errorf("expected turn sequence %d, got %d", expected, turnSequence),
		}
	}
	return nil
}

// Finalize stores the terminal summary on the thread record. The thread
// stays readable until its TTL lapses; RESUME lookups surface the summary.
func (s *Store) Finalize(ctx context.Context, id string, summary string) error {
	thread, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	thread.Summary = summary
	thread.LastUpdatedAt = time.Now().UTC()

	if err := s.persist(ctx, thread); err != nil {
		return err
	}

	log.Printf("🧵 [THREADS] Finalized thread %s (%d turns)", id, len(thread.Turns))
	return nil
}

// ResumeSeed resolves RESUME semantics: load the referenced thread and, if
// it has no terminal summary of its own, walk ParentThreadID links to the
// most recent finalized ancestor. Returns the thread plus the seed summary
// (empty when no ancestor was ever finalized). Pure read, no writes.
func (s *Store) ResumeSeed(ctx context.Context, id string) (*models.Thread, string, error) {
	thread, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}

	current := thread
	for depth := 0; depth < maxResumeDepth; depth++ {
		if current.Summary != "" {
			return thread, current.Summary, nil
		}
		if current.ParentThreadID == "" {
			break
		}
		parent, err := s.Get(ctx, current.ParentThreadID)
		if err != nil {
			// Parent links are weak references: an evicted ancestor just
			// ends the walk.
			if errors.Is(err, ErrThreadNotFound) {
				break
			}
			return nil, "", err
		}
		current = parent
	}
	return thread, "", nil
}

func (s *Store) persist(ctx context.Context, thread *models.Thread) error {
	data, err := json.Marshal(thread)
	if err != nil {
		return storeErr(thread.ID, fmt.Errorf("failed to serialize thread record: %w", err))
	}

	if s.encryption != nil {
		data, err = s.encryption.Encrypt(thread.ID, data)
		if err != nil {
			return storeErr(thread.ID, fmt.Errorf("failed to encrypt thread record: %w", err))
		}
	}

	if err := s.kv.Set(ctx, keyPrefix+thread.ID, data, s.ttl); err != nil {
		return storeErr(thread.ID, err)
	}
	return nil
}

// sameTurn reports whether an incoming turn is a retry of the last stored
// one. Timestamps are excluded: a retried request re-renders the same
// logical turn but cannot reproduce the original clock reading.
func sameTurn(stored, incoming models.Turn) bool {
	return stored.Role == incoming.Role &&
		stored.Content == incoming.Content &&
		stored.Tool == incoming.Tool
}
