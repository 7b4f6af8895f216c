package elvis

import (
	"fmt"
	"net/url"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// Metadata holds asset field values. It is sent JSON-encoded under the single
// query key "metadata", never flattened into the query.
type Metadata map[string]any

const (
	metadataKey       = "metadata"
	facetSelectionKey = "facetSelection"
	servicesSegment   = "services/"
)

// json encodes with sorted map keys, so metadata encoding is deterministic.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Encode returns the JSON form sent on the wire.
func (m Metadata) Encode() (string, error) {
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return "", ErrInvalidArgument.Msg("unable to encode metadata").Err(err)
	}
	return string(b), nil
}

// URIBuilder maps an endpoint, its parameters and optional metadata to a
// request URI under a fixed base URL. It has no state beyond the base URL and
// is safe for concurrent use.
type URIBuilder struct {
	baseURL string
}

// NewURIBuilder returns a builder for baseURL, the services root of the API
// such as https://dam.example.com/services/.
func NewURIBuilder(baseURL string) *URIBuilder {
	return &URIBuilder{baseURL: baseURL}
}

// BaseURL returns the configured base URL.
func (b *URIBuilder) BaseURL() string {
	return b.baseURL
}

// BuildURI returns the request URI for endpoint. params is not modified.
//
// The zip endpoint takes its filename parameter as a path segment below the
// host root, with the services segment removed from the base URL. checkout
// and undocheckout take the assetId parameter as a path segment and send no
// query. A facetSelection parameter is rewritten into one
// facet.<name>.selection parameter per facet. Metadata is appended last.
// The query string is left out entirely when nothing remains to send.
func (b *URIBuilder) BuildURI(endpoint Endpoint, params *Params, metadata Metadata) (string, error) {
	d, err := endpoint.descriptor()
	if err != nil {
		return "", err
	}
	query := params.Clone()

	var uri strings.Builder
	switch d.shape {
	case shapeZip:
		filename, err := takePathParam(query, d.pathParam, endpoint)
		if err != nil {
			return "", err
		}
		uri.WriteString(strings.ReplaceAll(b.baseURL, servicesSegment, ""))
		uri.WriteString(string(endpoint))
		uri.WriteByte('/')
		uri.WriteString(url.PathEscape(filename))
	case shapeAssetPath:
		assetID, err := takePathParam(query, d.pathParam, endpoint)
		if err != nil {
			return "", err
		}
		uri.WriteString(b.baseURL)
		uri.WriteString(string(endpoint))
		uri.WriteByte('/')
		uri.WriteString(url.PathEscape(assetID))
		return uri.String(), nil
	default:
		uri.WriteString(b.baseURL)
		uri.WriteString(string(endpoint))
	}

	if selection, ok := query.Get(facetSelectionKey); ok {
		facets, err := facetKeys(selection)
		if err != nil {
			return "", err
		}
		query.Delete(facetSelectionKey)
		query.Merge(facets)
	}

	if len(metadata) > 0 {
		encoded, err := metadata.Encode()
		if err != nil {
			return "", err
		}
		query.Set(metadataKey, encoded)
	}

	qs, err := query.Encode()
	if err != nil {
		return "", err
	}
	if qs != "" {
		uri.WriteByte('?')
		uri.WriteString(qs)
	}
	return uri.String(), nil
}

// takePathParam removes key from query and returns its value as a string.
func takePathParam(query *Params, key string, endpoint Endpoint) (string, error) {
	v, ok := query.Get(key)
	if !ok {
		return "", ErrInvalidArgument.Msg(fmt.Sprintf("%s requires the %s parameter", endpoint, key))
	}
	s, err := formatValue(v)
	if err != nil || s == "" {
		return "", ErrInvalidArgument.Msg(fmt.Sprintf("%s requires a non-empty %s parameter", endpoint, key))
	}
	query.Delete(key)
	return s, nil
}
