package query

// Filter returns the items matching q, keeping their order. record adapts
// an item to the Record interface.
func Filter[T any](items []T, q Query, record func(T) Record) []T {
	pred := q.Predicate()
	out := make([]T, 0, len(items))
	for _, item := range items {
		if Match(pred, record(item)) {
			out = append(out, item)
		}
	}
	return out
}

// Page applies q's offset and limit to items that are already filtered
// and ordered most recent first.
func Page[T any](items []T, q Query) []T {
	if q.Offset >= len(items) {
		return []T{}
	}
	items = items[q.Offset:]
	if limit := q.EffectiveLimit(); limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}

// Newest returns items in reverse, turning insertion order into recency
// order.
func Newest[T any](items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return out
}

// List runs the whole listing pipeline over items held in insertion order:
// reverse to recency order, filter, then paginate.
func List[T any](items []T, q Query, record func(T) Record) []T {
	return Page(Filter(Newest(items), q, record), q)
}
