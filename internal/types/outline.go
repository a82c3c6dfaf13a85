package types

// JSON contract for the generated course outline. Not a DB model; the course
// row stores the raw serialized form and it is parsed on demand.

type OutlineLesson struct {
	Title string `json:"title"`
	Path  string `json:"path"`
}

type OutlineModule struct {
	Title   string          `json:"title"`
	Lessons []OutlineLesson `json:"lessons"`
}

// FlattenOutline returns the lesson stubs of all modules in outline order.
func FlattenOutline(modules []OutlineModule) []OutlineLesson {
	out := []OutlineLesson{}
	for _, m := range modules {
		out = append(out, m.Lessons...)
	}
	return out
}
