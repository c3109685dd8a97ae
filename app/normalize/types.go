package normalize

import (
	"github.com/lysyi3m/oai-harvest/app/vocab"
)

// Extra is one entry of the draft's ordered extras map: generic overflow
// for fields without a first-class slot. Keys follow the <field>_<index>
// scheme and are unique within one draft.
type Extra struct {
	Key   string
	Value string
}

// Resource describes one downloadable representation of a dataset.
type Resource struct {
	URL    string
	Name   string
	Format string
	Size   string
	Hash   string
	Extra  string // checksum algorithm when present
}

// Draft is the normalized, storage-ready form of one harvested record.
// It is a transient value owned by the caller until handed to the
// persistence layer.
type Draft struct {
	ID              string // guid with "/" replaced by "-"
	Title           string
	Language        string
	LicenseID       string
	MaintainerEmail string
	Notes           string
	Version         string
	Resources       []Resource
	Tags            []string
	Extras          []Extra
}

// Extra returns the value stored under key, if any.
func (d *Draft) Extra(key string) (string, bool) {
	for _, e := range d.Extras {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// ResolverInterface resolves controlled-vocabulary term URIs to labels.
// Injected so tests can substitute a deterministic fake; implementations
// must degrade to an empty result on failure.
type ResolverInterface interface {
	Handles(uri string) bool
	Labels(uri string) []string
}

var _ ResolverInterface = (*vocab.Resolver)(nil)
