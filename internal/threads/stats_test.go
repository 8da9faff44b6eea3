package threads

import (
	"reflect"
	"testing"

	"threadmem/internal/models"
)

func TestBuildStats_CountsAndModels(t *testing.T) {
	thread := &models.Thread{
		ID: "stats-1",
		Turns: []models.Turn{
			{Role: models.RoleUser, Content: "q1"},
			{Role: models.RoleAssistant, Content: "a1", Model: "gpt-4o"},
			{Role: models.RoleUser, Content: "q2"},
			{Role: models.RoleAssistant, Content: "a2", Model: "claude-3-5-sonnet"},
			{Role: models.RoleAssistant, Content: "a3", Model: "gpt-4o"},
		},
		Metadata: models.ThreadMetadata{
			TotalInputTokens:  120,
			TotalOutputTokens: 340,
		},
	}

	stats := BuildStats(thread)
	if stats.TurnCount != 5 {
		t.Errorf("TurnCount = %d, want 5", stats.TurnCount)
	}
	if stats.TotalInputTokens != 120 || stats.TotalOutputTokens != 340 {
		t.Errorf("token totals = %d/%d, want 120/340", stats.TotalInputTokens, stats.TotalOutputTokens)
	}
	// Distinct models, first-seen order, user turns without a model skipped.
	want := []string{"gpt-4o", "claude-3-5-sonnet"}
	if !reflect.DeepEqual(stats.ModelsUsed, want) {
		t.Errorf("ModelsUsed = %v, want %v", stats.ModelsUsed, want)
	}
}

func TestBuildStats_NilThread(t *testing.T) {
	stats := BuildStats(nil)
	if stats.TurnCount != 0 || len(stats.ModelsUsed) != 0 {
		t.Errorf("expected zero stats for nil thread, got %+v", stats)
	}
}

func TestBuildContinuationOffer_CapsSuggestions(t *testing.T) {
	thread := &models.Thread{
		ID:    "offer-1",
		Turns: []models.Turn{{Role: models.RoleUser, Content: "hi"}},
	}

	suggestions := []string{"s1", "s2", "s3", "s4", "s5", "s6", "s7"}
	offer := BuildContinuationOffer(thread, suggestions)

	if offer.ThreadID != "offer-1" {
		t.Errorf("ThreadID = %q", offer.ThreadID)
	}
	if len(offer.Suggestions) != MaxOfferSuggestions {
		t.Fatalf("got %d suggestions, want %d", len(offer.Suggestions), MaxOfferSuggestions)
	}
	if !reflect.DeepEqual(offer.Suggestions, suggestions[:MaxOfferSuggestions]) {
		t.Errorf("Suggestions = %v", offer.Suggestions)
	}
	if offer.Stats.TurnCount != 1 {
		t.Errorf("Stats.TurnCount = %d, want 1", offer.Stats.TurnCount)
	}
}

func TestBuildContinuationOffer_FewSuggestionsUntouched(t *testing.T) {
	offer := BuildContinuationOffer(&models.Thread{ID: "offer-2"}, []string{"only"})
	if len(offer.Suggestions) != 1 || offer.Suggestions[0] != "only" {
		t.Errorf("Suggestions = %v", offer.Suggestions)
	}
}
