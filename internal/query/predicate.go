package query

// Predicate represents a filter condition.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Equals: field = literal value
//   - And: all predicates must be true
//
// OR predicates and ranges are outside the listing engine.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// Equals matches records whose field has the given index text. A
// multi-valued field matches when any of its values does.
type Equals struct {
	Field string
	Value string
}

func (Equals) predicateNode() {}

// And matches when every predicate matches. An empty And always matches.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Record exposes the index terms of a listed record. Terms returns the
// values of field as index text and false when the record lacks it.
type Record interface {
	Terms(field string) ([]string, bool)
}

// Match evaluates p against r.
func Match(p Predicate, r Record) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		terms, ok := r.Terms(pred.Field)
		if !ok {
			return false
		}
		for _, t := range terms {
			if t == pred.Value {
				return true
			}
		}
		return false
	case And:
		for _, sub := range pred.Predicates {
			if !Match(sub, r) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// TermsFunc adapts a function to the Record interface.
type TermsFunc func(field string) ([]string, bool)

// Terms calls f.
func (f TermsFunc) Terms(field string) ([]string, bool) {
	return f(field)
}
