package threads

import "fmt"

// Rule is the continuation decision for an incoming tool call.
type Rule string

const (
	// RuleNew creates a fresh thread with no historical context.
	RuleNew Rule = "new"

	// RuleResume loads the referenced thread (or its most recent finalized
	// ancestor) and seeds a new logical session from its terminal summary.
	RuleResume Rule = "resume"

	// RuleContinue appends to the existing thread; history is already in
	// the turn log, so no summary is reloaded.
	RuleContinue Rule = "continue"

	// RuleFinalize appends the current turn, then computes and persists a
	// terminal summary. No further turns are expected on the ID.
	RuleFinalize Rule = "finalize"
)

// ResolveContinuation deterministically maps caller intent to exactly one
// rule. Pure: no store access, no side effects. The terminal flag always
// wins: a single-turn session with no continuation ID may finalize
// immediately without RESUME semantics.
func ResolveContinuation(continuationID string, turnSequence int, terminal bool) (Rule, error) {
	if turnSequence <= 0 {
		return "", &ThreadError{
			Kind:     KindInvalidSequence,
			ThreadID: continuationID,
			Err:      fmt.Errorf("turn sequence must be positive, got %d", turnSequence),
		}
	}

	if terminal {
		return RuleFinalize, nil
	}

	if continuationID == "" {
		if turnSequence > 1 {
			return "", &ThreadError{
				Kind: KindInvalidSequence,
				Err:  fmt.Errorf("turn sequence %d requires a continuation ID", turnSequence),
			}
		}
		return RuleNew, nil
	}

	if turnSequence == 1 {
		return RuleResume, nil
	}
	return RuleContinue, nil
}
