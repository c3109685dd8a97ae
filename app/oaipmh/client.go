package oaipmh

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/sethgrid/pester"
)

// Client turns OAI requests into OAI responses. Supports retries with
// exponential backoff.
type Client struct {
	UserAgent string
	Timeout   time.Duration
	MaxRetry  int
}

func NewClient(userAgent string, timeout time.Duration, maxRetry int) *Client {
	return &Client{
		UserAgent: userAgent,
		Timeout:   timeout,
		MaxRetry:  maxRetry,
	}
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	link, err := req.URL()
	if err != nil {
		return nil, err
	}

	client := pester.New()
	client.Timeout = c.Timeout
	client.MaxRetries = c.MaxRetry
	client.Backoff = pester.ExponentialBackoff

	hreq, err := http.NewRequestWithContext(ctx, "GET", link, nil)
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("User-Agent", c.UserAgent)

	resp, err := client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("request failed for %s: %w", link, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error for %s: %d %s", link, resp.StatusCode, resp.Status)
	}

	var response Response
	decoder := xml.NewDecoder(resp.Body)
	if err := decoder.Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", link, err)
	}
	if response.Error.Code != "" {
		return &response, OAIError{Code: response.Error.Code, Message: response.Error.Message}
	}

	return &response, nil
}

// Identify requests the self-description of the repository.
func (c *Client) Identify(ctx context.Context, endpoint string) (*Identify, error) {
	resp, err := c.do(ctx, Request{Endpoint: endpoint, Verb: "Identify"})
	if err != nil {
		return nil, err
	}
	return &resp.Identify, nil
}

// ListMetadataFormats returns the metadata formats the repository supports.
func (c *Client) ListMetadataFormats(ctx context.Context, endpoint string) ([]MetadataFormat, error) {
	resp, err := c.do(ctx, Request{Endpoint: endpoint, Verb: "ListMetadataFormats"})
	if err != nil {
		return nil, err
	}
	return resp.ListMetadataFormats.Formats, nil
}

// ListSets returns the sets the repository offers. Follows resumption
// tokens until the list is complete.
func (c *Client) ListSets(ctx context.Context, endpoint string) ([]Set, error) {
	req := Request{Endpoint: endpoint, Verb: "ListSets"}

	var sets []Set
	for {
		resp, err := c.do(ctx, req)
		if err != nil {
			// noSetHierarchy is a valid answer, not a failure.
			if oaiErr, ok := err.(OAIError); ok && oaiErr.Code == "noSetHierarchy" {
				return nil, nil
			}
			return nil, err
		}
		sets = append(sets, resp.ListSets.Sets...)

		token := resp.ListSets.Token.Value
		if token == "" {
			return sets, nil
		}
		req = Request{Endpoint: endpoint, Verb: "ListSets", ResumptionToken: token}
	}
}

// ListIdentifiers returns the headers of all records available for the
// given metadata prefix. Follows resumption tokens until the list is
// complete. An empty from is a full listing.
func (c *Client) ListIdentifiers(ctx context.Context, endpoint, prefix, from string) ([]Header, error) {
	req := Request{Endpoint: endpoint, Verb: "ListIdentifiers", Prefix: prefix, From: from}

	var headers []Header
	for {
		resp, err := c.do(ctx, req)
		if err != nil {
			if oaiErr, ok := err.(OAIError); ok && oaiErr.Code == "noRecordsMatch" {
				return nil, nil
			}
			return nil, err
		}
		headers = append(headers, resp.ListIdentifiers.Headers...)

		token := resp.ListIdentifiers.Token.Value
		if token == "" {
			return headers, nil
		}
		req = Request{Endpoint: endpoint, Verb: "ListIdentifiers", ResumptionToken: token}
	}
}

// GetRecord retrieves a single record with its metadata payload.
func (c *Client) GetRecord(ctx context.Context, endpoint, identifier, prefix string) (*RawRecord, error) {
	resp, err := c.do(ctx, Request{
		Endpoint:   endpoint,
		Verb:       "GetRecord",
		Identifier: identifier,
		Prefix:     prefix,
	})
	if err != nil {
		return nil, err
	}

	rec := resp.GetRecord.Record
	return &RawRecord{Header: rec.Header, Metadata: rec.Metadata.Raw}, nil
}
