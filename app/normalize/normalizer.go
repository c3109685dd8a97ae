package normalize

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/text/language"

	"github.com/lysyi3m/oai-harvest/app/licenses"
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

// maxTagLength is the storage limit for a single tag.
const maxTagLength = 100

// Fields with a first-class slot on the draft; everything else passes
// through to extras verbatim.
var handledFields = map[string]bool{
	"title":       true,
	"subject":     true,
	"type":        true,
	"rights":      true,
	"publisher":   true,
	"creator":     true,
	"contributor": true,
	"description": true,
	"identifier":  true,
	"language":    true,
	"format":      true,
}

// Normalizer converts a parsed Dublin-Core-plus-extensions record into a
// Dataset Draft.
type Normalizer struct {
	registry            *licenses.Registry
	resolver            ResolverInterface
	attachFileResources bool
}

func NewNormalizer(registry *licenses.Registry, resolver ResolverInterface, attachFileResources bool) *Normalizer {
	return &Normalizer{
		registry:            registry,
		resolver:            resolver,
		attachFileResources: attachFileResources,
	}
}

// Run produces a Dataset Draft for one harvested record. No partial draft
// is returned on failure.
func (n *Normalizer) Run(guid string, rec *oaipmh.Record) (draft *Draft, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Normalization panicked", "guid", guid, "panic", r)
			draft = nil
			err = fmt.Errorf("normalization of %s failed: %v", guid, r)
		}
	}()

	d := &Draft{ID: strings.ReplaceAll(guid, "/", "-")}
	b := newExtrasBuilder()

	if err := n.handleTitles(rec, d, b); err != nil {
		return nil, err
	}
	if err := n.handleTags(rec, d, b); err != nil {
		return nil, err
	}
	if err := n.handleCreators(rec, b); err != nil {
		return nil, err
	}
	if err := n.handleContributors(rec, b); err != nil {
		return nil, err
	}
	if err := n.handlePublishers(rec, d, b); err != nil {
		return nil, err
	}
	if err := n.handleRights(rec, d, b); err != nil {
		return nil, err
	}
	if err := n.handleIdentifiers(rec, d, b); err != nil {
		return nil, err
	}
	n.handleLanguage(rec, d)
	if err := n.handleRemaining(rec, d, b); err != nil {
		return nil, err
	}
	n.handleDescription(rec, d)

	if n.attachFileResources {
		d.Resources = append(d.Resources, ExtractFileResources(rec.Get("format"))...)
	}

	d.Extras = b.extras
	return d, nil
}

func (n *Normalizer) handleTitles(rec *oaipmh.Record, d *Draft, b *extrasBuilder) error {
	for i, node := range rec.Get("title") {
		if node.Text != "" {
			if err := b.addIndexed("title", i, node.Text); err != nil {
				return err
			}
		}
		if lang, ok := FindAttr(node.Attrs, "lang"); ok && lang != "" {
			if err := b.addIndexed("lang_title", i, lang); err != nil {
				return err
			}
		}
	}

	// The first title becomes the primary one; the stable id is the
	// fallback so the record stays addressable either way.
	if title, ok := b.get("title_0"); ok {
		d.Title = title
	} else {
		d.Title = d.ID
	}
	return nil
}

func (n *Normalizer) handleTags(rec *oaipmh.Record, d *Draft, b *extrasBuilder) error {
	seen := make(map[string]bool)
	idx := 0
	for _, field := range []string{"subject", "type"} {
		for _, node := range rec.Get(field) {
			value := strings.TrimSpace(node.Text)

			var tags []string
			switch {
			case n.resolver != nil && n.resolver.Handles(value):
				tags = n.resolver.Labels(value)
				if err := b.addIndexed("tag_source", idx, value); err != nil {
					return err
				}
				idx++
			case strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://"):
				// Bare URLs break link rendering downstream, so they
				// contribute no tags but their provenance is kept.
				if err := b.addIndexed("tag_source", idx, value); err != nil {
					return err
				}
				idx++
			case value != "":
				tags = []string{value}
			}

			for _, tag := range tags {
				tag = truncateTag(tag, maxTagLength)
				if tag == "" || seen[tag] {
					continue
				}
				seen[tag] = true
				d.Tags = append(d.Tags, tag)
			}
		}
	}
	return nil
}

func (n *Normalizer) handleCreators(rec *oaipmh.Record, b *extrasBuilder) error {
	for i, author := range rec.Values("creator") {
		// organization_<i> is a placeholder reserved for future use.
		if err := b.addIndexed("organization", i, ""); err != nil {
			return err
		}
		if err := b.addIndexed("author", i, author); err != nil {
			return err
		}
	}
	return nil
}

func (n *Normalizer) handleContributors(rec *oaipmh.Record, b *extrasBuilder) error {
	contrIdx := 0
	projIdx := 0
	for _, node := range rec.Get("contributor") {
		projects := node.Child("Project")
		if len(projects) > 0 {
			for _, project := range projects {
				name, _ := FindAttr(project.Attrs, "about")
				if name == "" {
					names := project.Child("name")
					if len(names) == 0 {
						continue
					}
					name = names[0].Text
				}
				if err := b.addIndexed("project", projIdx, name); err != nil {
					return err
				}
				projIdx++
			}
		} else if node.Text != "" {
			if err := b.addIndexed("contributor", contrIdx, node.Text); err != nil {
				return err
			}
			contrIdx++
		}
	}
	return nil
}

func (n *Normalizer) handlePublishers(rec *oaipmh.Record, d *Draft, b *extrasBuilder) error {
	personIdx := 0
	for _, node := range rec.Get("publisher") {
		for _, person := range node.Child("person") {
			contactURL, _ := FindAttr(person.Attrs, "about")

			var email, phone string
			if mboxes := person.Child("mbox"); len(mboxes) > 0 {
				email, _ = FindAttr(mboxes[0].Attrs, "resource")
			}
			if phones := person.Child("phone"); len(phones) > 0 {
				phone, _ = FindAttr(phones[0].Attrs, "resource")
			}

			if contactURL != "" {
				if err := b.addIndexed("contactURL", personIdx, contactURL); err != nil {
					return err
				}
			}
			// Filter out '-' and similar placeholder values.
			if len(phone) > 5 {
				if err := b.addIndexed("phone", personIdx, phone); err != nil {
					return err
				}
			}
			// Only the first person's email is kept.
			if email != "" && personIdx == 0 {
				d.MaintainerEmail = email
			}
			personIdx++
		}
	}
	return nil
}

func (n *Normalizer) handleRights(rec *oaipmh.Record, d *Draft, b *extrasBuilder) error {
	licURLIdx := 0
	licTextIdx := 0
	for _, node := range rec.Get("rights") {
		var category, text string

		declarations := node.Child("RightsDeclaration")
		if len(declarations) > 0 {
			if len(declarations) > 1 {
				// Repeatable in the schema but the draft's license field
				// holds a single value.
				slog.Warn("Multiple RightsDeclarations in one record")
			}
			category, _ = FindAttr(declarations[0].Attrs, "RIGHTSCATEGORY")
			text = declarations[0].Text
		} else {
			// Probably just old-fashioned text.
			text = node.Text
			category = "LICENSED"
		}

		switch {
		case category == "LICENSED" && text != "":
			if id, ok := n.registry.Match(text); ok {
				d.LicenseID = id
			} else if strings.HasPrefix(text, "http://") || strings.HasPrefix(text, "https://") {
				if err := b.addIndexed("licenseURL", licURLIdx, text); err != nil {
					return err
				}
				licURLIdx++
			} else {
				if err := b.addIndexed("licenseText", licTextIdx, text); err != nil {
					return err
				}
				licTextIdx++
			}
		case category == "PUBLIC DOMAIN":
			d.LicenseID = licenses.IDOtherPublicDomain
		case category == "CONTRACTUAL", category == "OTHER":
			d.LicenseID = licenses.IDOtherClosed
		case category == "COPYRIGHTED":
			d.LicenseID = licenses.IDNotSpecified
		}
	}
	return nil
}

func (n *Normalizer) handleIdentifiers(rec *oaipmh.Record, d *Draft, b *extrasBuilder) error {
	for i, ident := range rec.Values("identifier") {
		if err := b.addIndexed("identifier", i, ident); err != nil {
			return err
		}
		// Link identifiers double as browsable resources.
		if strings.HasPrefix(ident, "http://") || strings.HasPrefix(ident, "https://") {
			d.Resources = append(d.Resources, Resource{
				URL:    ident,
				Name:   d.Title,
				Format: "html",
			})
		}
	}
	return nil
}

func (n *Normalizer) handleLanguage(rec *oaipmh.Record, d *Draft) {
	langs := rec.Values("language")
	if len(langs) == 0 || len(langs[0]) <= 1 {
		return
	}
	if _, err := language.Parse(langs[0]); err != nil {
		slog.Debug("Unrecognized language code", "language", langs[0])
	}
	d.Language = langs[0]
}

func (n *Normalizer) handleRemaining(rec *oaipmh.Record, d *Draft, b *extrasBuilder) error {
	for _, name := range rec.Order {
		if handledFields[name] {
			continue
		}
		values := rec.Values(name)
		if len(values) == 0 {
			continue
		}
		joined := strings.Join(values, " ")
		if name == "date" {
			d.Version = joined
			continue
		}
		if err := b.add(name, joined); err != nil {
			return err
		}
	}
	return nil
}

func (n *Normalizer) handleDescription(rec *oaipmh.Record, d *Draft) {
	d.Notes = collapseSpaces(strings.Join(rec.Values("description"), " "))
}
