package threads

import (
	"reflect"
	"testing"
	"time"

	"threadmem/internal/models"
)

func threadWithFiles(fileSets ...[]string) *models.Thread {
	t := &models.Thread{ID: "t", Turns: []models.Turn{}}
	base := time.Now().Add(-time.Hour)
	for i, files := range fileSets {
		t.Turns = append(t.Turns, models.Turn{
			Role:      models.RoleUser,
			Content:   "turn",
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Files:     files,
		})
	}
	return t
}

func TestCollectReferences_NewestWins(t *testing.T) {
	// oldest→newest: [A,B], [B,C], [A]
	thread := threadWithFiles(
		[]string{"A", "B"},
		[]string{"B", "C"},
		[]string{"A"},
	)

	got := CollectReferences(thread)
	want := []string{"A", "B", "C"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectReferences = %v, want %v", got, want)
	}
}

func TestCollectReferences_MostRecentMentionFirst(t *testing.T) {
	thread := threadWithFiles(
		[]string{"A"},
		[]string{"B"},
		[]string{"C"},
	)

	got := CollectReferences(thread)
	want := []string{"C", "B", "A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectReferences = %v, want %v", got, want)
	}
}

func TestCollectReferences_WithinTurnOrderPreserved(t *testing.T) {
	thread := threadWithFiles([]string{"x.go", "y.go", "z.go"})

	got := CollectReferences(thread)
	want := []string{"x.go", "y.go", "z.go"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectReferences = %v, want %v", got, want)
	}
}

func TestCollectReferences_Idempotent(t *testing.T) {
	thread := threadWithFiles(
		[]string{"a", "b"},
		nil,
		[]string{"b", "c", "a"},
	)

	first := CollectReferences(thread)
	second := CollectReferences(thread)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two collections differ: %v vs %v", first, second)
	}
}

func TestCollectReferences_EmptyThread(t *testing.T) {
	got := CollectReferences(&models.Thread{ID: "empty"})
	if len(got) != 0 {
		t.Errorf("expected empty list, got %v", got)
	}

	if got := CollectReferences(nil); len(got) != 0 {
		t.Errorf("expected empty list for nil thread, got %v", got)
	}
}

func TestCollectReferences_TurnsWithoutFilesContributeNothing(t *testing.T) {
	thread := threadWithFiles(
		[]string{"a.txt"},
		nil,
		[]string{},
		[]string{"b.txt"},
	)

	got := CollectReferences(thread)
	want := []string{"b.txt", "a.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CollectReferences = %v, want %v", got, want)
	}
}
