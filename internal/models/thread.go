package models

import (
	"time"
)

// CurrentSchemaVersion is stamped on every persisted thread record.
// Schema evolution is additive-only: new optional fields may be appended,
// existing fields are never renamed or repurposed.
const CurrentSchemaVersion = 1

// TurnRole identifies which side of the exchange produced a turn.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
)

// TokenUsage holds the token counts a provider reported for a single turn.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Turn is one exchange unit within a thread.
// Files lists exactly the content references this specific turn attached;
// references are never inherited from prior turns; cross-turn deduplication
// is a derived view computed by the reference collector.
type Turn struct {
	Role      TurnRole    `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Files     []string    `json:"files,omitempty"`
	Tool      string      `json:"tool,omitempty"`
	Model     string      `json:"model,omitempty"`
	Usage     *TokenUsage `json:"usage,omitempty"`
}

// ThreadMetadata carries aggregate bookkeeping refreshed on every append.
type ThreadMetadata struct {
	ToolsUsed         []string `json:"tools_used,omitempty"`
	TotalInputTokens  int      `json:"total_input_tokens"`
	TotalOutputTokens int      `json:"total_output_tokens"`
}

// Thread is a persistent, append-only ordered sequence of turns identified
// by an opaque unique ID. Turn order defines recency and is never mutated.
type Thread struct {
	ID             string         `json:"id"`
	ToolName       string         `json:"tool_name"`
	ParentThreadID string         `json:"parent_thread_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	LastUpdatedAt  time.Time      `json:"last_updated_at"`
	Turns          []Turn         `json:"turns"`
	InitialContext map[string]any `json:"initial_context,omitempty"`
	Metadata       ThreadMetadata `json:"metadata"`
	Summary        string         `json:"summary,omitempty"`
	SchemaVersion  int            `json:"schema_version"`
}

// HasTool reports whether the given tool has already contributed a turn.
func (t *Thread) HasTool(tool string) bool {
	for _, name := range t.Metadata.ToolsUsed {
		if name == tool {
			return true
		}
	}
	return false
}

// RecomputeTokenTotals sums per-turn usage from scratch. Used as a
// consistency check: the result must always equal the running totals
// maintained on append.
func (t *Thread) RecomputeTokenTotals() (input, output int) {
	for _, turn := range t.Turns {
		if turn.Usage != nil {
			input += turn.Usage.InputTokens
			output += turn.Usage.OutputTokens
		}
	}
	return input, output
}

// InclusionPlan is the planner's decision about which content references fit
// into the token budget for the next model call.
type InclusionPlan struct {
	Include              []string `json:"include"`
	Skip                 []string `json:"skip"`
	EstimatedTotalTokens int      `json:"estimated_total_tokens"`
}

// ThreadStats summarizes a thread snapshot for the calling tool.
type ThreadStats struct {
	TurnCount         int      `json:"turn_count"`
	TotalInputTokens  int      `json:"total_input_tokens"`
	TotalOutputTokens int      `json:"total_output_tokens"`
	ModelsUsed        []string `json:"models_used,omitempty"`
}

// ContinuationOffer is returned to a caller after a turn is appended so the
// tool can surface "continue this conversation" options to the user.
type ContinuationOffer struct {
	ThreadID    string      `json:"thread_id"`
	Stats       ThreadStats `json:"stats"`
	Suggestions []string    `json:"suggestions,omitempty"`
}
