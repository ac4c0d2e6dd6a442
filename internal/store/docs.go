package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roach88/infobase/internal/query"
)

// CheckDoc validates a document payload. Any JSON value is accepted;
// objects are indexed for listing, everything else is stored verbatim.
func CheckDoc(key string, doc []byte) error {
	if key == "" {
		return fmt.Errorf("%w: empty document key", ErrValidation)
	}
	if !json.Valid(doc) {
		return fmt.Errorf("%w: document %q is not valid JSON", ErrValidation, key)
	}
	return nil
}

// DocIndex returns the listing index of a document: for every top-level
// field of an object, the text of its value. A {"key": k} reference indexes
// as k and a {"type": t, "value": v} literal as v. Non-object documents
// have an empty index.
func DocIndex(doc []byte) map[string][]string {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return map[string][]string{}
	}

	index := make(map[string][]string, len(obj))
	for name, v := range obj {
		var terms []string
		if list, ok := v.([]any); ok {
			for _, item := range list {
				if term, ok := docTerm(item); ok {
					terms = append(terms, term)
				}
			}
		} else if term, ok := docTerm(v); ok {
			terms = []string{term}
		}
		if len(terms) > 0 {
			index[name] = terms
		}
	}
	return index
}

func docTerm(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case json.Number:
		return numberTerm(val), true
	case bool:
		return strconv.FormatBool(val), true
	case map[string]any:
		if k, ok := val["key"].(string); ok {
			return k, true
		}
		if _, ok := val["type"]; ok {
			return docTerm(val["value"])
		}
	}
	return "", false
}

// numberTerm renders n the way Thing values index: integers as written,
// other numbers in shortest 'g' form.
func numberTerm(n json.Number) string {
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10)
	}
	if f, err := n.Float64(); err == nil {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return n.String()
}

// DocRecord adapts a stored document to the listing engine.
func DocRecord(d Document) query.Record {
	return IndexRecord{Key: d.Key, Index: DocIndex(d.Value)}
}
