package normalize

import (
	"fmt"
	"strings"

	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

// extrasBuilder collects extras in insertion order and rejects key
// collisions, which would silently drop source data.
type extrasBuilder struct {
	extras []Extra
	index  map[string]int
}

func newExtrasBuilder() *extrasBuilder {
	return &extrasBuilder{index: make(map[string]int)}
}

func (b *extrasBuilder) add(key, value string) error {
	if _, exists := b.index[key]; exists {
		return fmt.Errorf("duplicate extras key %q", key)
	}
	b.index[key] = len(b.extras)
	b.extras = append(b.extras, Extra{Key: key, Value: value})
	return nil
}

func (b *extrasBuilder) addIndexed(field string, idx int, value string) error {
	return b.add(fmt.Sprintf("%s_%d", field, idx), value)
}

func (b *extrasBuilder) get(key string) (string, bool) {
	i, ok := b.index[key]
	if !ok {
		return "", false
	}
	return b.extras[i].Value, true
}

// FindAttr matches an attribute by the trailing substring of its fully
// qualified key. Namespace-qualified keys such as
// "{http://www.w3.org/1999/02/22-rdf-syntax-ns#}about" are compared by
// key suffix, not exact match. Returns the first match in key order.
func FindAttr(attrs []oaipmh.Attr, keyEnd string) (string, bool) {
	for _, a := range attrs {
		if strings.HasSuffix(a.Key, keyEnd) {
			return a.Value, true
		}
	}
	return "", false
}

// truncateTag limits a tag to max characters.
func truncateTag(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// collapseSpaces turns newlines into spaces and collapses runs of spaces
// into one.
func collapseSpaces(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return s
}
