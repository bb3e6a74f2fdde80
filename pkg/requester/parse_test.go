package requester

import "testing"

type widget struct {
	Name string `json:"name"`
}

func TestParseSingleObject(t *testing.T) {
	out := Parse(map[string]any{"name": "dial"}, JSONConstructor[widget]())
	if out.Collection {
		t.Fatalf("expected single item form")
	}
	if out.Item == nil || out.Item.Name != "dial" {
		t.Fatalf("unexpected item: %+v", out.Item)
	}
}

func TestParseScalarFragment(t *testing.T) {
	out := Parse(any(float64(7)), JSONConstructor[float64]())
	if out.Item == nil || *out.Item != 7 {
		t.Fatalf("expected scalar item, got %+v", out)
	}
}

func TestParseArrayDropsRejectedElements(t *testing.T) {
	doc := []any{
		map[string]any{"name": "a"},
		float64(3),
		map[string]any{"name": "b"},
	}
	out := Parse(doc, JSONConstructor[widget]())
	if !out.Collection {
		t.Fatalf("expected collection form")
	}
	if len(out.Items) != 2 || out.Items[0].Name != "a" || out.Items[1].Name != "b" {
		t.Fatalf("unexpected items: %+v", out.Items)
	}
}

func TestParseEmptyArray(t *testing.T) {
	out := Parse([]any{}, JSONConstructor[widget]())
	if !out.Collection || len(out.Items) != 0 {
		t.Fatalf("expected empty collection, got %+v", out)
	}
}

func TestParseRejectedSingleValueYieldsNilItem(t *testing.T) {
	out := Parse(any("not a widget"), JSONConstructor[widget]())
	if out.Collection || out.Item != nil {
		t.Fatalf("expected empty single form, got %+v", out)
	}
}

func TestConstructorCustom(t *testing.T) {
	ctor := Constructor[string](func(v any) (string, bool) {
		s, ok := v.(string)
		return s, ok && s != ""
	})
	out := Parse([]any{"x", "", float64(1), "y"}, ctor)
	if len(out.Items) != 2 || out.Items[0] != "x" || out.Items[1] != "y" {
		t.Fatalf("unexpected items: %+v", out.Items)
	}
}
