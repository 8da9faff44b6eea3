package threads

import (
	"threadmem/internal/models"
)

// CollectReferences derives the deduplicated, priority-ordered list of
// content references from a thread's turn history, newest-reference-wins:
// turns are walked most recent first, and within a turn references keep
// their original order. Each reference appears exactly once, positioned by
// the most recent turn that mentioned it. The resulting order is the
// priority order for inclusion under a token budget.
//
// Pure and idempotent: two calls on the same thread return identical output.
func CollectReferences(t *models.Thread) []string {
	if t == nil || len(t.Turns) == 0 {
		return []string{}
	}

	seen := make(map[string]struct{})
	refs := []string{}

	for i := len(t.Turns) - 1; i >= 0; i-- {
		for _, ref := range t.Turns[i].Files {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}
	return refs
}
