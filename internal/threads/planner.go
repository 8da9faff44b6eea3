package threads

import (
	"fmt"
	"log"

	"threadmem/internal/models"
)

// DefaultContentCeilingTokens is the absolute protocol-level ceiling on the
// unconditional total of all candidate references, distinct from the
// per-request soft budget. Exceeding it fails fast rather than silently
// dropping content the caller considers critical.
const DefaultContentCeilingTokens = 1_000_000

// EstimateFunc returns the estimated token cost of embedding one content
// reference. Supplied by an external collaborator (byte-size heuristic or a
// model-specific tokenizer). An error marks the reference unreadable.
type EstimateFunc func(ref string) (int, error)

// Planner decides which references fit under a token budget.
type Planner struct {
	estimate EstimateFunc
	ceiling  int
}

// NewPlanner creates a planner with the injected cost estimator. A
// non-positive ceiling falls back to the default.
func NewPlanner(estimate EstimateFunc, ceiling int) *Planner {
	if ceiling <= 0 {
		ceiling = DefaultContentCeilingTokens
	}
	return &Planner{estimate: estimate, ceiling: ceiling}
}

// Plan walks references in priority order and greedily packs them under
// maxTokens. A reference that would overflow is skipped, but planning
// continues since a smaller later reference may still fit. References are
// atomic: one whose cost alone exceeds the budget is skipped, never
// truncated. An unreadable reference is skipped with a warning and the rest
// of the list is still planned.
//
// Before packing, the unconditional total of all readable references is
// checked against the protocol ceiling; exceeding it fails the whole
// operation with the content-too-large kind.
func (p *Planner) Plan(references []string, maxTokens int) (*models.InclusionPlan, error) {
	plan := &models.InclusionPlan{
		Include: []string{},
		Skip:    []string{},
	}

	if len(references) == 0 {
		return plan, nil
	}

	costs := make(map[string]int, len(references))
	unreadable := make(map[string]bool)
	unconditionalTotal := 0

	for _, ref := range references {
		cost, err := p.estimate(ref)
		if err != nil {
			log.Printf("⚠️  [PLANNER] Reference %q unreadable, skipping: %v", ref, err)
			unreadable[ref] = true
			continue
		}
		costs[ref] = cost
		unconditionalTotal += cost
	}

	if unconditionalTotal > p.ceiling {
		return nil, &ThreadError{
			Kind: KindContentTooLarge,
			Err: fmt.Errorf("referenced content totals %d tokens, exceeding the %d token ceiling; reduce the number or size of referenced files",
				unconditionalTotal, p.ceiling),
		}
	}

	for _, ref := range references {
		if unreadable[ref] {
			plan.Skip = append(plan.Skip, ref)
			continue
		}
		cost := costs[ref]
		if maxTokens > 0 && plan.EstimatedTotalTokens+cost <= maxTokens {
			plan.Include = append(plan.Include, ref)
			plan.EstimatedTotalTokens += cost
		} else {
			plan.Skip = append(plan.Skip, ref)
		}
	}

	return plan, nil
}
