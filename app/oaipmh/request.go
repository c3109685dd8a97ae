package oaipmh

import (
	"encoding/xml"
	"errors"
	"fmt"
	"net/url"
)

var (
	ErrNoEndpoint = errors.New("request: an endpoint is required")
	ErrNoVerb     = errors.New("request: a verb is required")
	ErrBadVerb    = errors.New("request: verb not part of the protocol")
)

// Verbs defined by the protocol (4. Protocol Requests and Responses).
var Verbs = map[string]bool{
	"Identify":            true,
	"ListIdentifiers":     true,
	"ListSets":            true,
	"ListMetadataFormats": true,
	"ListRecords":         true,
	"GetRecord":           true,
}

// OAIError wraps OAI error codes and messages returned by a repository.
type OAIError struct {
	Code    string
	Message string
}

func (e OAIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Request holds any parameter that can be sent to an OAI-PMH endpoint.
type Request struct {
	Endpoint        string
	Verb            string
	From            string
	Until           string
	Set             string
	Prefix          string
	Identifier      string
	ResumptionToken string
}

// URL returns the absolute URL for a given request. Catches basic errors
// like a missing endpoint or a bad verb.
func (r Request) URL() (string, error) {
	if r.Endpoint == "" {
		return "", ErrNoEndpoint
	}
	if r.Verb == "" {
		return "", ErrNoVerb
	}
	if _, found := Verbs[r.Verb]; !found {
		return "", ErrBadVerb
	}

	values := url.Values{}
	values.Add("verb", r.Verb)

	// A resumptionToken is an exclusive argument (3.5).
	if r.ResumptionToken != "" {
		values.Add("resumptionToken", r.ResumptionToken)
		return fmt.Sprintf("%s?%s", r.Endpoint, values.Encode()), nil
	}

	maybeAdd := func(k, v string) {
		if v != "" {
			values.Add(k, v)
		}
	}

	maybeAdd("from", r.From)
	maybeAdd("until", r.Until)
	maybeAdd("set", r.Set)
	maybeAdd("metadataPrefix", r.Prefix)
	maybeAdd("identifier", r.Identifier)
	return fmt.Sprintf("%s?%s", r.Endpoint, values.Encode()), nil
}

// resumptionToken is part of OAI flow control (3.5).
type resumptionToken struct {
	Value            string `xml:",chardata"`
	ExpirationDate   string `xml:"expirationDate,attr"`
	Cursor           string `xml:"cursor,attr"`
	CompleteListSize string `xml:"completeListSize,attr"`
}

// Header is the part of a record common to ListIdentifiers and GetRecord
// responses.
type Header struct {
	Identifier string   `xml:"identifier"`
	Datestamp  string   `xml:"datestamp"`
	SetSpec    []string `xml:"setSpec"`
	Status     string   `xml:"status,attr"`
}

// Deleted reports whether the repository marked the record as deleted.
func (h Header) Deleted() bool {
	return h.Status == "deleted"
}

// MetadataFormat describes one format supported by a repository.
type MetadataFormat struct {
	Prefix    string `xml:"metadataPrefix"`
	Schema    string `xml:"schema"`
	Namespace string `xml:"metadataNamespace"`
}

// Set describes one set offered by a repository.
type Set struct {
	Spec string `xml:"setSpec"`
	Name string `xml:"setName"`
}

// Identify carries the self-description of a repository.
type Identify struct {
	Name              string `xml:"repositoryName"`
	URL               string `xml:"baseURL"`
	Version           string `xml:"protocolVersion"`
	AdminEmail        string `xml:"adminEmail"`
	EarliestDatestamp string `xml:"earliestDatestamp"`
	DeletePolicy      string `xml:"deletedRecord"`
	Granularity       string `xml:"granularity"`
}

// RawRecord is a single record as returned by GetRecord: the header plus
// the verbatim metadata payload.
type RawRecord struct {
	Header   Header
	Metadata string
}

// Response can hold any answer from an OAI-PMH endpoint.
type Response struct {
	XMLName xml.Name `xml:"OAI-PMH"`
	Date    string   `xml:"responseDate"`
	Request struct {
		Verb string `xml:"verb,attr"`
	} `xml:"request"`
	ListIdentifiers struct {
		Headers []Header        `xml:"header"`
		Token   resumptionToken `xml:"resumptionToken"`
	} `xml:"ListIdentifiers"`
	ListMetadataFormats struct {
		Formats []MetadataFormat `xml:"metadataFormat"`
	} `xml:"ListMetadataFormats"`
	ListSets struct {
		Sets  []Set           `xml:"set"`
		Token resumptionToken `xml:"resumptionToken"`
	} `xml:"ListSets"`
	GetRecord struct {
		Record struct {
			Header   Header `xml:"header"`
			Metadata struct {
				Raw string `xml:",innerxml"`
			} `xml:"metadata"`
		} `xml:"record"`
	} `xml:"GetRecord"`
	Identify Identify `xml:"Identify"`
	Error    struct {
		Code    string `xml:"code,attr"`
		Message string `xml:",chardata"`
	} `xml:"error"`
}
