package oaipmh

import (
	"context"
)

// ClientInterface is the endpoint surface the harvest pipeline consumes.
// The pipeline only sees identifiers, headers and metadata payloads; the
// wire protocol stays behind this interface so tests can substitute a
// deterministic fake.
type ClientInterface interface {
	Identify(ctx context.Context, endpoint string) (*Identify, error)
	ListMetadataFormats(ctx context.Context, endpoint string) ([]MetadataFormat, error)
	ListSets(ctx context.Context, endpoint string) ([]Set, error)
	ListIdentifiers(ctx context.Context, endpoint, prefix, from string) ([]Header, error)
	GetRecord(ctx context.Context, endpoint, identifier, prefix string) (*RawRecord, error)
}

var _ ClientInterface = (*Client)(nil)
