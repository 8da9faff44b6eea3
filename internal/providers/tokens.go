package providers

import (
	"fmt"
	"os"
)

// EstimateTokens returns an approximate token count using the ~4 chars/token
// heuristic.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// EstimateTurnTokens estimates one rendered turn including role/separator
// overhead (~4 tokens per message).
func EstimateTurnTokens(content string) int {
	return EstimateTokens(content) + 4
}

// FileEstimator returns a planner cost function that estimates a file
// reference's embedding cost from its on-disk size. A reference that cannot
// be stat'ed is unreadable; the planner skips it and keeps going.
func FileEstimator() func(ref string) (int, error) {
	return func(ref string) (int, error) {
		info, err := os.Stat(ref)
		if err != nil {
			return 0, fmt.Errorf("cannot stat reference: %w", err)
		}
		if info.IsDir() {
			return 0, fmt.Errorf("reference is a directory, not a file")
		}
		return EstimateTokens4Bytes(info.Size()), nil
	}
}

// EstimateTokens4Bytes applies the 4 bytes/token heuristic to a byte count.
func EstimateTokens4Bytes(size int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + 3) / 4)
}
