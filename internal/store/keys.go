package store

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxSlugAttempts bounds the -2, -3, ... suffix search before falling back
// to a random key.
const maxSlugAttempts = 1000

// KeyPrefix returns the key prefix for Things of typeKey:
// "/type/book" gives "/book/". An empty type gives "/".
func KeyPrefix(typeKey string) string {
	name := strings.Trim(typeKey, "/")
	if name == "" {
		return "/"
	}
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return "/" + name + "/"
}

// Slugify turns a display name into a key segment: accents stripped,
// lower case, runs of anything else collapsed to single dashes.
func Slugify(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}
	return b.String()
}

// RandomKey returns prefix followed by a time-ordered UUID.
func RandomKey(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + id.String()
}

// GenerateKey picks a key for a new Thing of typeKey. With a "name" hint
// it tries the slug, then slug-2, slug-3, ...; without one it uses a
// random key. taken reports whether a candidate is already in use or was
// issued before.
func GenerateKey(ctx context.Context, typeKey string, hints map[string]string, taken func(ctx context.Context, key string) (bool, error)) (string, error) {
	prefix := KeyPrefix(typeKey)
	slug := Slugify(hints["name"])
	if slug == "" {
		return RandomKey(prefix), nil
	}

	for i := 1; i <= maxSlugAttempts; i++ {
		candidate := prefix + slug
		if i > 1 {
			candidate = fmt.Sprintf("%s%s-%d", prefix, slug, i)
		}
		used, err := taken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("new key: %w", err)
		}
		if !used {
			return candidate, nil
		}
	}
	return RandomKey(prefix), nil
}
