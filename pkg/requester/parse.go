package requester

import "encoding/json"

// Constructor builds a T from one decoded JSON value, reporting whether the
// value was usable. It is the per-type capability that lets Execute turn
// raw response documents into domain objects.
type Constructor[T any] func(v any) (T, bool)

// ParsedResponse holds the parsed form of a response document: either an
// ordered collection (top-level JSON array, unusable elements dropped) or
// an optional single item.
type ParsedResponse[T any] struct {
	Collection bool
	Item       *T  // single-value form; nil when construction failed
	Items      []T // collection form
}

// Parse feeds a decoded JSON document through the constructor. Arrays map
// element-wise and silently drop elements the constructor rejects;
// everything else maps to a single optional item.
func Parse[T any](v any, ctor Constructor[T]) ParsedResponse[T] {
	if arr, ok := v.([]any); ok {
		items := make([]T, 0, len(arr))
		for _, el := range arr {
			if item, ok := ctor(el); ok {
				items = append(items, item)
			}
		}
		return ParsedResponse[T]{Collection: true, Items: items}
	}

	if item, ok := ctor(v); ok {
		return ParsedResponse[T]{Item: &item}
	}
	return ParsedResponse[T]{}
}

// JSONConstructor derives a Constructor from encoding/json by re-encoding
// the decoded value into T. Values that do not fit T's shape are rejected.
func JSONConstructor[T any]() Constructor[T] {
	return func(v any) (T, bool) {
		var out T
		raw, err := json.Marshal(v)
		if err != nil {
			return out, false
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, false
		}
		return out, true
	}
}
