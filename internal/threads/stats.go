package threads

import (
	"threadmem/internal/models"
)

// MaxOfferSuggestions caps how many suggested next actions a continuation
// offer carries back to the caller.
const MaxOfferSuggestions = 5

// BuildStats aggregates a thread snapshot: turn count, token totals, and
// the distinct models that produced turns. Pure, no side effects; the
// snapshot may be stale if the thread was appended to concurrently.
func BuildStats(t *models.Thread) models.ThreadStats {
	stats := models.ThreadStats{}
	if t == nil {
		return stats
	}

	stats.TurnCount = len(t.Turns)
	stats.TotalInputTokens = t.Metadata.TotalInputTokens
	stats.TotalOutputTokens = t.Metadata.TotalOutputTokens

	seen := make(map[string]struct{})
	for _, turn := range t.Turns {
		if turn.Model == "" {
			continue
		}
		if _, ok := seen[turn.Model]; ok {
			continue
		}
		seen[turn.Model] = struct{}{}
		stats.ModelsUsed = append(stats.ModelsUsed, turn.Model)
	}
	return stats
}

// BuildContinuationOffer packages thread stats with a capped sample of the
// calling tool's suggested next actions. Suggestions are supplied by the
// tool, never generated here.
func BuildContinuationOffer(t *models.Thread, suggestions []string) models.ContinuationOffer {
	offer := models.ContinuationOffer{
		Stats: BuildStats(t),
	}
	if t != nil {
		offer.ThreadID = t.ID
	}
	if len(suggestions) > MaxOfferSuggestions {
		suggestions = suggestions[:MaxOfferSuggestions]
	}
	offer.Suggestions = suggestions
	return offer
}
