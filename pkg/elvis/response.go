package elvis

import (
	"github.com/tidwall/gjson"
)

// Response is the successful answer to one call. Raw holds the JSON body as
// received; for zip downloads it holds the synthesized envelope
// {"fileName","statusCode","reasonPhrase"}.
type Response struct {
	Endpoint   Endpoint
	StatusCode int
	Raw        []byte

	notModified bool
}

// NotModified reports a "nothing new" answer, as the messages endpoint gives
// when the bundle has not changed. Such a response has no payload.
func (r *Response) NotModified() bool {
	return r != nil && r.notModified
}

// Get returns the value at path, in gjson path syntax. A missing path yields
// a result whose Exists method is false.
func (r *Response) Get(path string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Raw, path)
}

// Decode unmarshals the payload into v. An empty or not modified response
// leaves v untouched.
func (r *Response) Decode(v any) error {
	if r == nil || r.notModified || len(r.Raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return ErrInvalidResponse.Msg("unable to decode " + string(r.Endpoint) + " response").Err(err)
	}
	return nil
}

// Value returns the payload decoded into generic Go values: map[string]any,
// []any, string, float64, bool or nil.
func (r *Response) Value() (any, error) {
	var v any
	if err := r.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// String returns the raw payload.
func (r *Response) String() string {
	if r == nil {
		return ""
	}
	return string(r.Raw)
}

// ZipResult describes a finished zip download.
type ZipResult struct {
	FileName     string `json:"fileName"` // local path of the saved archive
	StatusCode   int    `json:"statusCode"`
	ReasonPhrase string `json:"reasonPhrase"`
}

// SearchResult is the typed form of a search response.
type SearchResult struct {
	FirstResult   int         `json:"firstResult"`
	MaxResultHits int         `json:"maxResultHits"`
	TotalHits     int         `json:"totalHits"`
	Hits          []Hit       `json:"hits"`
	Facets        FacetCounts `json:"facets,omitempty"`
}

// FacetCounts maps facet name to its value counts.
type FacetCounts map[string][]FacetValue

// FacetValue is one counted value of a facet.
type FacetValue struct {
	Value    string `json:"value"`
	Hits     int    `json:"hits"`
	Selected bool   `json:"selected,omitempty"`
}

// Hit is one search result.
type Hit struct {
	ID           string         `json:"id"`
	Permissions  string         `json:"permissions,omitempty"`
	Metadata     map[string]any `json:"metadata"`
	OriginalURL  string         `json:"originalUrl,omitempty"`
	PreviewURL   string         `json:"previewUrl,omitempty"`
	ThumbnailURL string         `json:"thumbnailUrl,omitempty"`
	Relation     *Relation      `json:"relation,omitempty"`
}

// Relation is the relation block of a hit returned by a relation search.
type Relation struct {
	RelationID       string         `json:"relationId"`
	RelationType     string         `json:"relationType"`
	Target1ID        string         `json:"target1Id"`
	Target2ID        string         `json:"target2Id"`
	RelationMetadata map[string]any `json:"relationMetadata,omitempty"`
}

// Asset is the answer to create and update.
type Asset struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata"`
}

// ProcessedResult is the answer to bulk operations such as move, copy,
// remove and updatebulk.
type ProcessedResult struct {
	ProcessedCount int `json:"processedCount"`
	ErrorCount     int `json:"errorCount"`
}

// Profile is the answer to profile.
type Profile struct {
	Username    string   `json:"username"`
	FullName    string   `json:"fullName,omitempty"`
	Email       string   `json:"email,omitempty"`
	UserZone    string   `json:"userZone,omitempty"`
	Authorities []string `json:"authorities"`
	Groups      []string `json:"groups"`
}

// BrowseEntry is one element of a browse answer.
type BrowseEntry struct {
	Name          string `json:"name"`
	AssetPath     string `json:"assetPath"`
	Directory     bool   `json:"directory"`
	IsCollection  bool   `json:"isCollection,omitempty"`
	PermissionSet string `json:"permissions,omitempty"`
}
