package vocab

import (
	"encoding/xml"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethgrid/pester"
)

// rdfSuffix requests machine-readable output from the vocabulary server.
const rdfSuffix = "?rdf=xml"

// Resolver resolves controlled-vocabulary term URIs to human-readable
// labels. Resolution is best-effort: network or parse failures yield an
// empty label list, never an error. Resolved terms are cached for the
// lifetime of the process.
type Resolver struct {
	domain    string
	userAgent string
	timeout   time.Duration
	maxRetry  int

	mu    sync.RWMutex
	cache map[string][]string
}

func NewResolver(domain, userAgent string, timeout time.Duration, maxRetry int) *Resolver {
	return &Resolver{
		domain:    domain,
		userAgent: userAgent,
		timeout:   timeout,
		maxRetry:  maxRetry,
		cache:     make(map[string][]string),
	}
}

// Handles reports whether the URI belongs to the resolver's vocabulary
// domain.
func (r *Resolver) Handles(uri string) bool {
	return r.domain != "" && strings.HasPrefix(uri, r.domain)
}

// Labels fetches the labels linked to a term URI: preferred labels first,
// then generic labels, then alternate labels. Duplicates are not removed
// here. Returns nil on any failure.
func (r *Resolver) Labels(termURL string) []string {
	r.mu.RLock()
	labels, ok := r.cache[termURL]
	r.mu.RUnlock()
	if ok {
		return labels
	}

	labels = r.fetch(termURL)

	r.mu.Lock()
	r.cache[termURL] = labels
	r.mu.Unlock()

	return labels
}

// rdfDescription matches element names without namespace qualification so
// the parser stays tolerant of vocabulary servers with differing prefixes.
type rdfDescription struct {
	PrefLabels []string `xml:"prefLabel"`
	Labels     []string `xml:"label"`
	AltLabels  []string `xml:"altLabel"`
}

type rdfDoc struct {
	Descriptions []rdfDescription `xml:"Description"`
}

func (r *Resolver) fetch(termURL string) []string {
	if !strings.HasSuffix(termURL, rdfSuffix) {
		termURL += rdfSuffix
	}

	client := pester.New()
	client.Timeout = r.timeout
	client.MaxRetries = r.maxRetry
	client.Backoff = pester.ExponentialBackoff

	req, err := http.NewRequest("GET", termURL, nil)
	if err != nil {
		slog.Debug("Invalid vocabulary term URL", "url", termURL, "error", err)
		return nil
	}
	req.Header.Set("Accept", "application/rdf+xml")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := client.Do(req)
	if err != nil {
		slog.Debug("Failed to fetch vocabulary term", "url", termURL, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Debug("Vocabulary server returned error", "url", termURL, "status", resp.StatusCode)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("Failed to read vocabulary response", "url", termURL, "error", err)
		return nil
	}

	var doc rdfDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		slog.Debug("Failed to parse vocabulary RDF", "url", termURL, "error", err)
		return nil
	}

	var labels []string
	for _, descr := range doc.Descriptions {
		for _, group := range [][]string{descr.PrefLabels, descr.Labels, descr.AltLabels} {
			for _, label := range group {
				if trimmed := strings.TrimSpace(label); trimmed != "" {
					labels = append(labels, trimmed)
				}
			}
		}
	}
	return labels
}
