package elvis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://dam.example.com/services/"

func TestBuildURI(t *testing.T) {
	b := NewURIBuilder(testBase)

	tests := []struct {
		name     string
		endpoint Endpoint
		params   *Params
		metadata Metadata
		want     string
	}{
		{
			name:     "no parameters has no query",
			endpoint: EndpointLogout,
			want:     testBase + "logout",
		},
		{
			name:     "empty parameters has no query",
			endpoint: EndpointProfile,
			params:   NewParams(),
			metadata: Metadata{},
			want:     testBase + "profile",
		},
		{
			name:     "query keeps insertion order",
			endpoint: EndpointSearch,
			params:   NewParams().Set("q", "*:*").Set("num", 10).Set("start", 0),
			want:     testBase + "search?q=%2A%3A%2A&num=10&start=0",
		},
		{
			name:     "booleans are true or false",
			endpoint: EndpointUpdateBulk,
			params:   NewParams().Set("q", "a:b").Set("async", true).Set("flatten", false),
			want:     testBase + "updatebulk?q=a%3Ab&async=true&flatten=false",
		},
		{
			name:     "lists are comma joined",
			endpoint: EndpointRemove,
			params:   NewParams().Set("ids", []string{"a", "b"}),
			want:     testBase + "remove?ids=a%2Cb",
		},
		{
			name:     "zip is served from the host root",
			endpoint: EndpointZip,
			params: NewParams().
				Set("filename", "f.zip").
				Set("downloadKind", "original").
				Set("assetIds", []string{"a", "b"}),
			want: "https://dam.example.com/zip/f.zip?downloadKind=original&assetIds=a%2Cb",
		},
		{
			name:     "zip filename is path escaped",
			endpoint: EndpointZip,
			params:   NewParams().Set("filename", "my photos.zip").Set("assetIds", []string{"x"}),
			want:     "https://dam.example.com/zip/my%20photos.zip?assetIds=x",
		},
		{
			name:     "checkout takes the asset id as a path segment",
			endpoint: EndpointCheckout,
			params:   NewParams().Set("assetId", "abc"),
			want:     testBase + "checkout/abc",
		},
		{
			name:     "undocheckout drops other parameters",
			endpoint: EndpointUndoCheckout,
			params:   NewParams().Set("assetId", "abc").Set("extra", "1"),
			want:     testBase + "undocheckout/abc",
		},
		{
			name:     "metadata is json encoded",
			endpoint: EndpointCreate,
			metadata: Metadata{"gtin": "123"},
			want:     testBase + "create?metadata=%7B%22gtin%22%3A%22123%22%7D",
		},
		{
			name:     "metadata comes last with sorted keys",
			endpoint: EndpointUpdate,
			params:   NewParams().Set("id", "A1"),
			metadata: Metadata{"status": "ok", "gtin": 7},
			want:     testBase + "update?id=A1&metadata=%7B%22gtin%22%3A7%2C%22status%22%3A%22ok%22%7D",
		},
		{
			name:     "ordered facet selection",
			endpoint: EndpointSearch,
			params: NewParams().
				Set("q", "x").
				Set("facetSelection", NewParams().Set("tags", "a,b").Set("extension", "jpg")).
				Set("num", 5),
			want: testBase + "search?q=x&num=5&facet.tags.selection=a%2Cb&facet.extension.selection=jpg",
		},
		{
			name:     "map facet selection is sorted",
			endpoint: EndpointSearch,
			params: NewParams().
				Set("q", "x").
				Set("facetSelection", map[string][]string{"tags": {"a", "b"}, "extension": {"jpg"}}),
			want: testBase + "search?q=x&facet.extension.selection=jpg&facet.tags.selection=a%2Cb",
		},
		{
			name:     "empty facet selection is dropped",
			endpoint: EndpointSearch,
			params:   NewParams().Set("q", "x").Set("facetSelection", map[string]string{}),
			want:     testBase + "search?q=x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := b.BuildURI(tt.endpoint, tt.params, tt.metadata)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.False(t, strings.HasSuffix(got, "?"))
		})
	}
}

func TestBuildURIIsPure(t *testing.T) {
	b := NewURIBuilder(testBase)
	params := NewParams().
		Set("filename", "f.zip").
		Set("facetSelection", NewParams().Set("tags", "a")).
		Set("assetIds", []string{"a"})
	md := Metadata{"gtin": "123"}

	first, err := b.BuildURI(EndpointZip, params, md)
	require.NoError(t, err)
	second, err := b.BuildURI(EndpointZip, params, md)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []string{"filename", "facetSelection", "assetIds"}, params.Keys())
	assert.Equal(t, testBase, b.BaseURL())
}

func TestBuildURIErrors(t *testing.T) {
	b := NewURIBuilder(testBase)

	_, err := b.BuildURI(Endpoint("nosuch"), nil, nil)
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
	assert.ErrorIs(t, err, ErrElvis)

	_, err = b.BuildURI(EndpointZip, NewParams().Set("assetIds", []string{"a"}), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = b.BuildURI(EndpointCheckout, NewParams().Set("assetId", ""), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = b.BuildURI(EndpointSearch, NewParams().Set("facetSelection", 3), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = b.BuildURI(EndpointSearch, NewParams().Set("q", struct{}{}), nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = b.BuildURI(EndpointCreate, nil, Metadata{"bad": make(chan int)})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEndpoints(t *testing.T) {
	all := Endpoints()
	assert.Len(t, all, 23)
	for _, e := range all {
		assert.True(t, e.Valid(), e)
	}
	assert.False(t, Endpoint("nosuch").Valid())
	assert.False(t, EndpointLogin.RequiresSession())
	assert.True(t, EndpointSearch.RequiresSession())
	assert.True(t, EndpointZip.RequiresSession())
	assert.Equal(t, "createFolder", EndpointCreateFolder.String())
}
