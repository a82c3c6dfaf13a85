package types

import (
	"encoding/json"
	"testing"
)

func TestFlattenOutline_PreservesModuleOrder(t *testing.T) {
	modules := []OutlineModule{
		{Title: "Module 1", Lessons: []OutlineLesson{{Title: "a", Path: "1.1"}, {Title: "b", Path: "1.2"}}},
		{Title: "Module 2", Lessons: []OutlineLesson{{Title: "c", Path: "2.1"}}},
	}
	got := FlattenOutline(modules)
	if len(got) != 3 {
		t.Fatalf("expected 3 lessons, got %d", len(got))
	}
	wantPaths := []string{"1.1", "1.2", "2.1"}
	for i, p := range wantPaths {
		if got[i].Path != p {
			t.Fatalf("position %d: got %q, want %q", i, got[i].Path, p)
		}
	}
}

func TestFlattenOutline_EmptyAndNilModules(t *testing.T) {
	if got := FlattenOutline(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	got := FlattenOutline([]OutlineModule{{Title: "empty"}})
	if len(got) != 0 {
		t.Fatalf("expected no lessons, got %#v", got)
	}
}

func TestOutlineJSONContract(t *testing.T) {
	raw := `[{"title":"Module 1","lessons":[{"title":"Intro","path":"1.1"}]}]`
	var modules []OutlineModule
	if err := json.Unmarshal([]byte(raw), &modules); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(modules) != 1 || modules[0].Lessons[0].Path != "1.1" {
		t.Fatalf("unexpected modules: %#v", modules)
	}
}
