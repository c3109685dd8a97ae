package normalize

import (
	"strings"
	"testing"

	"github.com/lysyi3m/oai-harvest/app/licenses"
	"github.com/lysyi3m/oai-harvest/app/oaipmh"
)

type fakeResolver struct {
	domain string
	labels map[string][]string
	calls  int
}

func (f *fakeResolver) Handles(uri string) bool {
	return f.domain != "" && strings.HasPrefix(uri, f.domain)
}

func (f *fakeResolver) Labels(uri string) []string {
	f.calls++
	return f.labels[uri]
}

func testNormalizer(t *testing.T, resolver ResolverInterface) *Normalizer {
	t.Helper()
	reg, err := licenses.NewRegistry()
	if err != nil {
		t.Fatalf("Failed to load license registry: %v", err)
	}
	return NewNormalizer(reg, resolver, false)
}

func parseDC(t *testing.T, fields string) *oaipmh.Record {
	t.Helper()
	doc := `<oai_dc:dc xmlns:oai_dc="http://www.openarchives.org/OAI/2.0/oai_dc/"
    xmlns:dc="http://purl.org/dc/elements/1.1/"
    xmlns:xml="http://www.w3.org/XML/1998/namespace"
    xmlns:foaf="http://xmlns.com/foaf/0.1/"
    xmlns:md="http://example.org/rights/"
    xmlns:fp="http://example.org/fileprops/"
    xmlns:wn="http://xmlns.com/wordnet/1.6/"
    xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#">` + fields + `</oai_dc:dc>`
	rec, err := oaipmh.ParseMetadata([]byte(doc))
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	return rec
}

func TestTitles(t *testing.T) {
	rec := parseDC(t, `
  <dc:title>Hello</dc:title>
  <dc:title xml:lang="fr">Bonjour</dc:title>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if d.Title != "Hello" {
		t.Errorf("Expected primary title 'Hello', got: %s", d.Title)
	}
	if v, _ := d.Extra("title_0"); v != "Hello" {
		t.Errorf("Expected title_0 'Hello', got: %s", v)
	}
	if v, _ := d.Extra("title_1"); v != "Bonjour" {
		t.Errorf("Expected title_1 'Bonjour', got: %s", v)
	}
	if v, _ := d.Extra("lang_title_1"); v != "fr" {
		t.Errorf("Expected lang_title_1 'fr', got: %s", v)
	}
	if _, ok := d.Extra("lang_title_0"); ok {
		t.Error("Expected no lang_title_0 for untagged title")
	}
}

func TestTitleFallbackToID(t *testing.T) {
	rec := parseDC(t, `<dc:creator>Doe, Jane</dc:creator>`)

	d, err := testNormalizer(t, nil).Run("oai:example.org/set/42", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if d.ID != "oai:example.org-set-42" {
		t.Errorf("Expected slashes replaced in id, got: %s", d.ID)
	}
	if d.Title != d.ID {
		t.Errorf("Expected id as fallback title, got: %s", d.Title)
	}
}

func TestTags(t *testing.T) {
	resolver := &fakeResolver{
		domain: "http://www.yso.fi",
		labels: map[string][]string{
			"http://www.yso.fi/onto/yso/p1234": {"cats", "felines"},
		},
	}
	rec := parseDC(t, `
  <dc:subject>cats</dc:subject>
  <dc:subject>http://www.yso.fi/onto/yso/p1234</dc:subject>
  <dc:subject>http://example.org/other</dc:subject>`)

	d, err := testNormalizer(t, resolver).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// "cats" appears once: the plain subject and the resolved label dedupe
	want := []string{"cats", "felines"}
	if len(d.Tags) != len(want) {
		t.Fatalf("Expected tags %v, got: %v", want, d.Tags)
	}
	for i := range want {
		if d.Tags[i] != want[i] {
			t.Errorf("Expected tag %d to be '%s', got: '%s'", i, want[i], d.Tags[i])
		}
	}

	if v, _ := d.Extra("tag_source_0"); v != "http://www.yso.fi/onto/yso/p1234" {
		t.Errorf("Unexpected tag_source_0: %s", v)
	}
	if v, _ := d.Extra("tag_source_1"); v != "http://example.org/other" {
		t.Errorf("Unexpected tag_source_1: %s", v)
	}
	if _, ok := d.Extra("tag_source_2"); ok {
		t.Error("Expected only two tag sources")
	}
}

func TestTagsFromTypeFollowSubjects(t *testing.T) {
	rec := parseDC(t, `
  <dc:type>dataset</dc:type>
  <dc:subject>  cats  </dc:subject>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Subjects are processed before types regardless of document order
	want := []string{"cats", "dataset"}
	if len(d.Tags) != 2 || d.Tags[0] != want[0] || d.Tags[1] != want[1] {
		t.Errorf("Expected tags %v, got: %v", want, d.Tags)
	}
}

func TestTagTruncation(t *testing.T) {
	long := strings.Repeat("x", 150)
	rec := parseDC(t, `<dc:subject>`+long+`</dc:subject>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(d.Tags) != 1 {
		t.Fatalf("Expected 1 tag, got: %d", len(d.Tags))
	}
	if len(d.Tags[0]) != 100 {
		t.Errorf("Expected tag truncated to 100 characters, got: %d", len(d.Tags[0]))
	}
}

func TestTagDeduplication(t *testing.T) {
	rec := parseDC(t, `
  <dc:subject>cats</dc:subject>
  <dc:subject>cats</dc:subject>
  <dc:subject>Cats</dc:subject>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	// Deduplication is case-sensitive
	if len(d.Tags) != 2 {
		t.Errorf("Expected tags [cats Cats], got: %v", d.Tags)
	}
}

func TestCreators(t *testing.T) {
	rec := parseDC(t, `
  <dc:creator>Doe, Jane</dc:creator>
  <dc:creator>Smith, John</dc:creator>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if v, _ := d.Extra("author_0"); v != "Doe, Jane" {
		t.Errorf("Unexpected author_0: %s", v)
	}
	if v, _ := d.Extra("author_1"); v != "Smith, John" {
		t.Errorf("Unexpected author_1: %s", v)
	}
	if v, ok := d.Extra("organization_0"); !ok || v != "" {
		t.Errorf("Expected empty organization_0 placeholder, got: %s (%v)", v, ok)
	}
	if _, ok := d.Extra("organization_1"); !ok {
		t.Error("Expected organization_1 placeholder")
	}
}

func TestContributors(t *testing.T) {
	rec := parseDC(t, `
  <dc:contributor>
    <foaf:Project rdf:about="http://example.org/project/alpha"/>
  </dc:contributor>
  <dc:contributor>
    <foaf:Project><foaf:name>Beta Project</foaf:name></foaf:Project>
  </dc:contributor>
  <dc:contributor>
    <foaf:Project/>
  </dc:contributor>
  <dc:contributor>Plain Contributor</dc:contributor>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if v, _ := d.Extra("project_0"); v != "http://example.org/project/alpha" {
		t.Errorf("Unexpected project_0: %s", v)
	}
	if v, _ := d.Extra("project_1"); v != "Beta Project" {
		t.Errorf("Unexpected project_1: %s", v)
	}
	if _, ok := d.Extra("project_2"); ok {
		t.Error("Expected project without name or about to be skipped")
	}
	if v, _ := d.Extra("contributor_0"); v != "Plain Contributor" {
		t.Errorf("Unexpected contributor_0: %s", v)
	}
}

func TestPublishers(t *testing.T) {
	rec := parseDC(t, `
  <dc:publisher>
    <foaf:person rdf:about="http://example.org/person/1">
      <foaf:mbox rdf:resource="mailto:first@example.org"/>
      <foaf:phone rdf:resource="tel:+358401234567"/>
    </foaf:person>
    <foaf:person rdf:about="http://example.org/person/2">
      <foaf:mbox rdf:resource="mailto:second@example.org"/>
      <foaf:phone rdf:resource="-"/>
    </foaf:person>
  </dc:publisher>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if v, _ := d.Extra("contactURL_0"); v != "http://example.org/person/1" {
		t.Errorf("Unexpected contactURL_0: %s", v)
	}
	if v, _ := d.Extra("contactURL_1"); v != "http://example.org/person/2" {
		t.Errorf("Unexpected contactURL_1: %s", v)
	}
	if v, _ := d.Extra("phone_0"); v != "tel:+358401234567" {
		t.Errorf("Unexpected phone_0: %s", v)
	}
	if _, ok := d.Extra("phone_1"); ok {
		t.Error("Expected placeholder phone to be filtered")
	}
	// Only the first person's email survives
	if d.MaintainerEmail != "mailto:first@example.org" {
		t.Errorf("Unexpected maintainer email: %s", d.MaintainerEmail)
	}
}

func TestRightsMatchedLicense(t *testing.T) {
	rec := parseDC(t, `<dc:rights>http://www.opendefinition.org/licenses/cc-by</dc:rights>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if d.LicenseID != "cc-by" {
		t.Errorf("Expected license 'cc-by', got: %s", d.LicenseID)
	}
	if _, ok := d.Extra("licenseURL_0"); ok {
		t.Error("Expected no licenseURL extra for matched license")
	}
}

func TestRightsUnmatched(t *testing.T) {
	rec := parseDC(t, `
  <dc:rights>http://example.org/my-own-license</dc:rights>
  <dc:rights>All rights reserved by the author</dc:rights>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if d.LicenseID != "" {
		t.Errorf("Expected no license, got: %s", d.LicenseID)
	}
	if v, _ := d.Extra("licenseURL_0"); v != "http://example.org/my-own-license" {
		t.Errorf("Unexpected licenseURL_0: %s", v)
	}
	if v, _ := d.Extra("licenseText_0"); v != "All rights reserved by the author" {
		t.Errorf("Unexpected licenseText_0: %s", v)
	}
}

func TestRightsCategories(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"PUBLIC DOMAIN", licenses.IDOtherPublicDomain},
		{"CONTRACTUAL", licenses.IDOtherClosed},
		{"OTHER", licenses.IDOtherClosed},
		{"COPYRIGHTED", licenses.IDNotSpecified},
	}

	for _, test := range tests {
		rec := parseDC(t, `<dc:rights><md:RightsDeclaration RIGHTSCATEGORY="`+
			test.category+`">Some accompanying text</md:RightsDeclaration></dc:rights>`)

		d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
		if err != nil {
			t.Fatalf("Expected no error for %s, got: %v", test.category, err)
		}
		if d.LicenseID != test.want {
			t.Errorf("Category %s: expected license %s, got: %s", test.category, test.want, d.LicenseID)
		}
	}
}

func TestRightsDeclarationLicensed(t *testing.T) {
	rec := parseDC(t, `<dc:rights><md:RightsDeclaration RIGHTSCATEGORY="LICENSED">http://www.opendefinition.org/licenses/cc-zero</md:RightsDeclaration></dc:rights>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if d.LicenseID != "cc-zero" {
		t.Errorf("Expected license 'cc-zero', got: %s", d.LicenseID)
	}
}

func TestRightsLastDecisionWins(t *testing.T) {
	rec := parseDC(t, `
  <dc:rights><md:RightsDeclaration RIGHTSCATEGORY="PUBLIC DOMAIN"/></dc:rights>
  <dc:rights><md:RightsDeclaration RIGHTSCATEGORY="COPYRIGHTED"/></dc:rights>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if d.LicenseID != licenses.IDNotSpecified {
		t.Errorf("Expected last rights decision to win, got: %s", d.LicenseID)
	}
}

func TestIdentifiers(t *testing.T) {
	rec := parseDC(t, `
  <dc:title>Hello</dc:title>
  <dc:identifier>urn:isbn:978-0-00-000000-0</dc:identifier>
  <dc:identifier>http://example.org/record/1</dc:identifier>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if v, _ := d.Extra("identifier_0"); v != "urn:isbn:978-0-00-000000-0" {
		t.Errorf("Unexpected identifier_0: %s", v)
	}
	if v, _ := d.Extra("identifier_1"); v != "http://example.org/record/1" {
		t.Errorf("Unexpected identifier_1: %s", v)
	}

	if len(d.Resources) != 1 {
		t.Fatalf("Expected 1 resource, got: %d", len(d.Resources))
	}
	res := d.Resources[0]
	if res.URL != "http://example.org/record/1" {
		t.Errorf("Unexpected resource URL: %s", res.URL)
	}
	if res.Name != "Hello" {
		t.Errorf("Expected resource named after title, got: %s", res.Name)
	}
	if res.Format != "html" {
		t.Errorf("Expected resource format 'html', got: %s", res.Format)
	}
}

func TestLanguage(t *testing.T) {
	rec := parseDC(t, `<dc:language>fi</dc:language>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if d.Language != "fi" {
		t.Errorf("Expected language 'fi', got: %s", d.Language)
	}

	short := parseDC(t, `<dc:language>f</dc:language>`)
	d, err = testNormalizer(t, nil).Run("oai:example:1", short)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if d.Language != "" {
		t.Errorf("Expected single-character language to be ignored, got: %s", d.Language)
	}
}

func TestRemainingFieldsPassThrough(t *testing.T) {
	rec := parseDC(t, `
  <dc:coverage>Finland</dc:coverage>
  <dc:coverage>Sweden</dc:coverage>
  <dc:relation>urn:nbn:fi-12345</dc:relation>
  <dc:date>2023-05-01</dc:date>`)

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if v, _ := d.Extra("coverage"); v != "Finland Sweden" {
		t.Errorf("Expected coverage values space-joined, got: %s", v)
	}
	if v, _ := d.Extra("relation"); v != "urn:nbn:fi-12345" {
		t.Errorf("Unexpected relation: %s", v)
	}
	// date moves to the draft's version field
	if d.Version != "2023-05-01" {
		t.Errorf("Expected version '2023-05-01', got: %s", d.Version)
	}
	if _, ok := d.Extra("date"); ok {
		t.Error("Expected date to be removed from extras")
	}
}

func TestDescription(t *testing.T) {
	rec := parseDC(t, "<dc:description>Line one\n</dc:description>\n  <dc:description>  Line two</dc:description>")

	d, err := testNormalizer(t, nil).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if d.Notes != "Line one Line two" {
		t.Errorf("Expected 'Line one Line two', got: %q", d.Notes)
	}
	if strings.Contains(d.Notes, "\n") || strings.Contains(d.Notes, "  ") {
		t.Errorf("Expected no newlines or double spaces, got: %q", d.Notes)
	}
}

func TestFileResourcesGated(t *testing.T) {
	fields := `
  <dc:format>
    <fp:File rdf:about="http://example.org/files/data.csv">
      <fp:size>1024</fp:size>
    </fp:File>
  </dc:format>`

	reg, err := licenses.NewRegistry()
	if err != nil {
		t.Fatalf("Failed to load license registry: %v", err)
	}

	rec := parseDC(t, fields)
	d, err := NewNormalizer(reg, nil, false).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(d.Resources) != 0 {
		t.Errorf("Expected file resources to be gated off, got: %v", d.Resources)
	}

	rec = parseDC(t, fields)
	d, err = NewNormalizer(reg, nil, true).Run("oai:example:1", rec)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(d.Resources) != 1 {
		t.Fatalf("Expected 1 file resource when enabled, got: %d", len(d.Resources))
	}
	if d.Resources[0].URL != "http://example.org/files/data.csv" || d.Resources[0].Size != "1024" {
		t.Errorf("Unexpected file resource: %+v", d.Resources[0])
	}
}
