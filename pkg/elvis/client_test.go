package elvis_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lasselehtinen/elvis/internal/common/httpclient"
	"github.com/lasselehtinen/elvis/internal/elvistest"
	"github.com/lasselehtinen/elvis/pkg/elvis"
	"github.com/lasselehtinen/elvis/pkg/types"
)

const (
	testUser = "alice"
	testPass = "secret"
	testBase = "http://elvis.test/services/"
)

func newClient(t *testing.T, srv *elvistest.Server, mutate ...func(*elvis.Config)) *elvis.Client {
	t.Helper()
	cfg := elvis.Config{
		APIEndpointURI: testBase,
		Username:       testUser,
		Password:       testPass,
		ZipDir:         filepath.Join(t.TempDir(), "zips"),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	hc, err := httpclient.NewTestClient(cfg, srv)
	require.NoError(t, err)
	c, err := elvis.New(cfg, elvis.WithHTTPClient(hc), elvis.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return c
}

func login(t *testing.T, c *elvis.Client) *elvis.Session {
	t.Helper()
	s, err := c.Login(context.Background())
	require.NoError(t, err)
	return s
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func create(t *testing.T, c *elvis.Client, s *elvis.Session, name, content string, md elvis.Metadata) elvis.Asset {
	t.Helper()
	rsp, err := c.Create(context.Background(), s, writeFile(t, name, content), md)
	require.NoError(t, err)
	var a elvis.Asset
	require.NoError(t, rsp.Decode(&a))
	require.NotEmpty(t, a.ID)
	return a
}

func search(t *testing.T, c *elvis.Client, s *elvis.Session, q string, opts *elvis.SearchOptions) elvis.SearchResult {
	t.Helper()
	rsp, err := c.Search(context.Background(), s, q, opts)
	require.NoError(t, err)
	var sr elvis.SearchResult
	require.NoError(t, rsp.Decode(&sr))
	return sr
}

func TestNew(t *testing.T) {
	c, err := elvis.New(elvis.Config{APIEndpointURI: "https://dam.example.com/services"})
	require.NoError(t, err)
	assert.Equal(t, "https://dam.example.com/services/", c.Config().APIEndpointURI)
	assert.Equal(t, elvis.DefaultTimeout, c.Config().Timeout)
	assert.Equal(t, "https://dam.example.com/services/", c.Builder().BaseURL())
	assert.NotEmpty(t, c.ZipDir())

	c, err = elvis.New(elvis.Config{APIEndpointURI: "https://dam.example.com/services/", Timeout: -1})
	require.NoError(t, err)
	assert.Zero(t, c.Config().Timeout)

	for _, uri := range []string{"", "not a url", "ftp://dam.example.com/services/"} {
		_, err = elvis.New(elvis.Config{APIEndpointURI: uri})
		assert.ErrorIs(t, err, elvis.ErrInvalidArgument, uri)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)
	c := newClient(t, srv)

	s := login(t, c)
	assert.NotEmpty(t, s.CSRFToken())
	require.Len(t, s.Cookies(), 1)
	assert.Equal(t, elvistest.SessionCookie, s.Cookies()[0].Name)
	assert.Equal(t, http.MethodPost, srv.LastCall().Method)
	assert.Equal(t, 1, srv.SessionCount())

	rsp, err := c.Profile(ctx, s)
	require.NoError(t, err)
	var p elvis.Profile
	require.NoError(t, rsp.Decode(&p))
	assert.Equal(t, testUser, p.Username)
	assert.Equal(t, "/Users/alice", p.UserZone)
	assert.Equal(t, s.CSRFToken(), srv.LastCall().CSRFToken)

	t.Run("restored session", func(t *testing.T) {
		restored, err := elvis.RestoreSession(testBase, s.CSRFToken(), s.Cookies())
		require.NoError(t, err)
		_, err = c.Profile(ctx, restored)
		assert.NoError(t, err)
	})

	t.Run("sessions are independent", func(t *testing.T) {
		other := login(t, c)
		assert.NotEqual(t, s.CSRFToken(), other.CSRFToken())
		ok, err := c.Logout(ctx, other)
		require.NoError(t, err)
		assert.True(t, ok)
		_, err = c.Profile(ctx, s)
		assert.NoError(t, err)
	})

	ok, err := c.Logout(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, srv.SessionCount())

	_, err = c.Profile(ctx, s)
	var re *elvis.RemoteAPIError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusUnauthorized, re.Code)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)

	t.Run("wrong password", func(t *testing.T) {
		c := newClient(t, srv, func(cfg *elvis.Config) { cfg.Password = "nope" })
		_, err := c.Login(ctx)
		var ae *elvis.AuthenticationError
		require.ErrorAs(t, err, &ae)
		assert.Equal(t, "Invalid username or password", ae.Message)
		assert.ErrorIs(t, err, elvis.ErrAuthentication)
	})

	t.Run("missing credentials", func(t *testing.T) {
		c := newClient(t, srv, func(cfg *elvis.Config) { cfg.Username = "" })
		_, err := c.Login(ctx)
		assert.ErrorIs(t, err, elvis.ErrInvalidArgument)
	})

	t.Run("wrong base url", func(t *testing.T) {
		c := newClient(t, srv, func(cfg *elvis.Config) { cfg.APIEndpointURI = "http://elvis.test/elvis/" })
		_, err := c.Login(ctx)
		var nf *elvis.NotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "http://elvis.test/elvis/", nf.BaseURL)
		assert.ErrorIs(t, err, elvis.ErrNotFound)
	})

	t.Run("no session", func(t *testing.T) {
		c := newClient(t, srv)
		_, err := c.Search(ctx, nil, "*:*", nil)
		assert.ErrorIs(t, err, elvis.ErrNoSession)
		assert.ErrorIs(t, err, elvis.ErrInvalidArgument)
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := newClient(t, srv)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := c.Login(cctx)
		assert.ErrorIs(t, err, elvis.ErrTransport)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAssets(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)
	c := newClient(t, srv)
	s := login(t, c)

	cover := create(t, c, s, "cover.jpg", "jpeg bytes", elvis.Metadata{"gtin": "123"})
	assert.Equal(t, "/Users/alice/cover.jpg", cover.Metadata["assetPath"])
	assert.Equal(t, "123", cover.Metadata["gtin"])
	assert.True(t, strings.HasPrefix(srv.LastCall().ContentType, "multipart/form-data"))
	assert.Equal(t, "metadata=%7B%22gtin%22%3A%22123%22%7D", srv.LastCall().RawQuery)

	notes := create(t, c, s, "notes.txt", "hello", elvis.Metadata{"assetPath": "/Docs/notes.txt"})
	assert.Equal(t, "/Docs/notes.txt", notes.Metadata["assetPath"])

	t.Run("search", func(t *testing.T) {
		sr := search(t, c, s, "gtin:123", nil)
		require.Equal(t, 1, sr.TotalHits)
		assert.Equal(t, cover.ID, sr.Hits[0].ID)

		sr = search(t, c, s, "*:*", nil)
		require.Len(t, sr.Hits, 2)
		assert.Equal(t, notes.ID, sr.Hits[0].ID, "newest first by default")

		sr = search(t, c, s, "*:*", &elvis.SearchOptions{
			Num:                 types.NullableFrom(1),
			Sort:                types.NullableFrom("filename"),
			AppendRequestSecret: types.NullableFrom(true),
		})
		assert.Equal(t, 2, sr.TotalHits)
		require.Len(t, sr.Hits, 1)
		assert.Equal(t, cover.ID, sr.Hits[0].ID)
		assert.Contains(t, sr.Hits[0].OriginalURL, "requestSecret=")
	})

	t.Run("facets", func(t *testing.T) {
		sr := search(t, c, s, "*:*", &elvis.SearchOptions{
			Facets:         []string{"extension"},
			FacetSelection: elvis.NewParams().Set("extension", "jpg"),
		})
		require.Equal(t, 1, sr.TotalHits)
		assert.Equal(t, cover.ID, sr.Hits[0].ID)
		assert.Equal(t, []elvis.FacetValue{{Value: "jpg", Hits: 1, Selected: true}}, sr.Facets["extension"])
		assert.Contains(t, srv.LastCall().RawQuery, "facet.extension.selection=jpg")
		assert.NotContains(t, srv.LastCall().RawQuery, "facetSelection")
	})

	t.Run("update", func(t *testing.T) {
		_, err := c.Update(ctx, s, cover.ID, "", elvis.Metadata{"tags": "+summer"})
		require.NoError(t, err)
		sr := search(t, c, s, "tags:summer", nil)
		require.Equal(t, 1, sr.TotalHits)

		_, err = c.Update(ctx, s, cover.ID, writeFile(t, "cover-v2.jpg", "new jpeg bytes"), nil)
		require.NoError(t, err)
		sr = search(t, c, s, "id:"+cover.ID, nil)
		require.Equal(t, 1, sr.TotalHits)
		assert.EqualValues(t, len("new jpeg bytes"), sr.Hits[0].Metadata["fileSize"])
	})

	t.Run("update bulk", func(t *testing.T) {
		rsp, err := c.UpdateBulk(ctx, s, "gtin:123", elvis.Metadata{"status": "approved"}, false)
		require.NoError(t, err)
		assert.Equal(t, int64(1), rsp.Get("processedCount").Int())
		assert.Equal(t, 1, search(t, c, s, "status:approved", nil).TotalHits)

		_, err = c.UpdateBulk(ctx, s, "gtin:123", nil, false)
		assert.ErrorIs(t, err, elvis.ErrInvalidArgument)
	})

	t.Run("file only on upload endpoints", func(t *testing.T) {
		_, err := c.Query(ctx, s, elvis.EndpointSearch, elvis.NewParams().Set("q", "*:*"), nil, writeFile(t, "x.txt", "x"))
		assert.ErrorIs(t, err, elvis.ErrInvalidArgument)

		_, err = c.Create(ctx, s, filepath.Join(t.TempDir(), "missing.jpg"), nil)
		assert.ErrorIs(t, err, elvis.ErrTransport)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("browse and folders", func(t *testing.T) {
		rsp, err := c.CreateFolder(ctx, s, "/Users/alice/new")
		require.NoError(t, err)
		v, err := rsp.Value()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"/Users/alice/new": "created"}, v)

		rsp, err = c.CreateFolder(ctx, s, "/Users/alice/new")
		require.NoError(t, err)
		v, err = rsp.Value()
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"/Users/alice/new": "already exists"}, v)

		rsp, err = c.Browse(ctx, s, "/Users/alice", nil)
		require.NoError(t, err)
		var entries []elvis.BrowseEntry
		require.NoError(t, rsp.Decode(&entries))
		assert.Equal(t, []elvis.BrowseEntry{
			{Name: "new", AssetPath: "/Users/alice/new", Directory: true},
			{Name: "cover.jpg", AssetPath: "/Users/alice/cover.jpg"},
		}, entries)

		rsp, err = c.Browse(ctx, s, "/Users/alice", &elvis.BrowseOptions{IncludeAsset: types.NullableFrom(false)})
		require.NoError(t, err)
		entries = nil
		require.NoError(t, rsp.Decode(&entries))
		assert.Len(t, entries, 1)
	})
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)
	c := newClient(t, srv)
	s := login(t, c)

	create(t, c, s, "a.txt", "a", elvis.Metadata{"assetPath": "/Src/a.txt"})
	create(t, c, s, "b.txt", "b", elvis.Metadata{"assetPath": "/Src/b.txt"})

	rsp, err := c.Copy(ctx, s, "/Src/a.txt", "/Dst/a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rsp.Get("processedCount").Int())
	assert.Contains(t, srv.LastCall().RawQuery, "async=false")
	assert.NotContains(t, srv.LastCall().RawQuery, "filterQuery")

	// a second copy is renamed
	_, err = c.Copy(ctx, s, "/Src/a.txt", "/Dst/a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, search(t, c, s, "assetPath:/Dst/a-1.txt", nil).TotalHits)

	_, err = c.Move(ctx, s, "/Src/b.txt", "/Dst/a.txt", &elvis.TransferOptions{
		FileReplacePolicy: types.NullableFrom("THROW_EXCEPTION"),
	})
	var re *elvis.RemoteAPIError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, http.StatusConflict, re.Code)
	assert.NotContains(t, srv.LastCall().RawQuery, "async")

	rsp, err = c.Move(ctx, s, "/Src", "/Moved", &elvis.TransferOptions{
		FilterQuery: types.NullableFrom("filename:b.txt"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rsp.Get("processedCount").Int())
	assert.Equal(t, 1, search(t, c, s, "assetPath:/Moved/b.txt", nil).TotalHits)
	assert.Equal(t, 1, search(t, c, s, "assetPath:/Src/a.txt", nil).TotalHits)

	t.Run("remove", func(t *testing.T) {
		_, err := c.Remove(ctx, s, elvis.RemoveOptions{})
		assert.ErrorIs(t, err, elvis.ErrInvalidArgument)

		rsp, err := c.Remove(ctx, s, elvis.RemoveOptions{FolderPath: "/Dst"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), rsp.Get("processedCount").Int())

		rsp, err = c.Remove(ctx, s, elvis.RemoveOptions{Query: "filename:a.txt"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), rsp.Get("processedCount").Int())
		assert.Equal(t, 1, search(t, c, s, "*:*", nil).TotalHits)
	})
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)
	c := newClient(t, srv)
	s := login(t, c)
	a := create(t, c, s, "doc.txt", "doc", nil)

	rsp, err := c.Checkout(ctx, s, a.ID)
	require.NoError(t, err)
	assert.Equal(t, testUser, rsp.Get("checkedOutBy").String())
	assert.Equal(t, testUser, srv.CheckedOutBy(a.ID))
	assert.Equal(t, "/services/checkout/"+a.ID, srv.LastCall().Path)
	assert.Empty(t, srv.LastCall().RawQuery)

	_, err = c.UndoCheckout(ctx, s, a.ID)
	require.NoError(t, err)
	assert.Empty(t, srv.CheckedOutBy(a.ID))
	assert.Equal(t, "/services/undocheckout/"+a.ID, srv.LastCall().Path)

	_, err = c.Checkout(ctx, s, "")
	assert.ErrorIs(t, err, elvis.ErrInvalidArgument)
}

func TestRelationsAndUsage(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)
	c := newClient(t, srv)
	s := login(t, c)
	book := create(t, c, s, "book.txt", "book", nil)
	cover := create(t, c, s, "cover.png", "cover", nil)

	_, err := c.CreateRelation(ctx, s, "related", book.ID, cover.ID, elvis.Metadata{"note": "front"})
	require.NoError(t, err)
	_, err = c.CreateRelation(ctx, s, "related", book.ID, "", nil)
	assert.ErrorIs(t, err, elvis.ErrInvalidArgument)

	sr := search(t, c, s, "relatedTo:"+book.ID+" relationType:related", nil)
	require.Equal(t, 1, sr.TotalHits)
	require.NotNil(t, sr.Hits[0].Relation)
	rel := sr.Hits[0].Relation
	assert.Equal(t, cover.ID, sr.Hits[0].ID)
	assert.Equal(t, book.ID, rel.Target1ID)
	assert.Equal(t, "front", rel.RelationMetadata["note"])
	assert.Equal(t, testUser, rel.RelationMetadata["relationCreator"])

	rsp, err := c.RemoveRelation(ctx, s, []string{rel.RelationID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rsp.Get("processedCount").Int())
	assert.Equal(t, 0, search(t, c, s, "relatedTo:"+book.ID, nil).TotalHits)

	_, err = c.LogUsage(ctx, s, book.ID, "PRINT", elvis.NewParams().Set("copies", 3).Set("action", "HIJACK"))
	require.NoError(t, err)
	assert.Equal(t, "assetId="+book.ID+"&action=PRINT&copies=3", srv.LastCall().RawQuery)

	rsp, err = c.QueryStats(ctx, s, "usage.sql", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rsp.Get("#").Int())
	assert.Equal(t, "CUSTOM_ACTION_PRINT", rsp.Get("0.action_type").String())
	assert.Equal(t, "3", rsp.Get("0.details.copies").String())
}

func TestMessages(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)
	c := newClient(t, srv)
	s := login(t, c)

	rsp, err := c.Messages(ctx, s, &elvis.MessagesOptions{LocaleChain: types.NullableFrom("nl_NL,en_US")})
	require.NoError(t, err)
	assert.False(t, rsp.NotModified())
	assert.Equal(t, "Zoeken", rsp.Get("web\\.search").String())

	since := &elvis.MessagesOptions{IfModifiedSince: types.NullableFrom(srv.MessagesModified())}
	rsp, err = c.Messages(ctx, s, since)
	require.NoError(t, err)
	assert.True(t, rsp.NotModified())
	assert.Equal(t, http.StatusNotModified, rsp.StatusCode)
	assert.Empty(t, rsp.Raw)

	srv.NotModifiedAsErrorcode = true
	rsp, err = c.Messages(ctx, s, since)
	require.NoError(t, err)
	assert.True(t, rsp.NotModified())
	assert.Equal(t, http.StatusOK, rsp.StatusCode)

	rsp, err = c.Messages(ctx, s, nil)
	require.NoError(t, err)
	assert.Equal(t, "Search", rsp.Get("web\\.search").String())
}

func TestZip(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)
	c := newClient(t, srv)
	s := login(t, c)
	a := create(t, c, s, "a.txt", "alpha", nil)
	b := create(t, c, s, "b.txt", "beta", nil)

	zr, err := c.Zip(ctx, s, "bundle.zip", elvis.DownloadOriginal, []string{a.ID, b.ID})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, zr.StatusCode)
	assert.Equal(t, "OK", zr.ReasonPhrase)
	assert.Equal(t, c.ZipDir(), filepath.Dir(zr.FileName))
	assert.Equal(t, "/zip/bundle.zip", srv.LastCall().Path)
	assert.Equal(t, http.MethodGet, srv.LastCall().Method)

	data, err := os.ReadFile(zr.FileName)
	require.NoError(t, err)
	names, err := elvistest.ZipAssetNames(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)

	t.Run("failed download leaves no file", func(t *testing.T) {
		c := newClient(t, srv)
		_, err := c.Zip(ctx, s, "bundle.zip", elvis.DownloadOriginal, []string{"missing"})
		var re *elvis.RemoteAPIError
		require.ErrorAs(t, err, &re)
		assert.Equal(t, http.StatusBadRequest, re.Code)
		entries, _ := os.ReadDir(c.ZipDir())
		assert.Empty(t, entries)
	})

	t.Run("requires ids", func(t *testing.T) {
		_, err := c.Zip(ctx, s, "bundle.zip", elvis.DownloadOriginal, nil)
		assert.ErrorIs(t, err, elvis.ErrInvalidArgument)
	})
}

func TestAuthKeys(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)
	c := newClient(t, srv)
	s := login(t, c)
	a := create(t, c, s, "a.txt", "alpha", nil)

	rsp, err := c.CreateAuthKey(ctx, s, "Press kit", "2026-12-31", []string{a.ID}, &elvis.AuthKeyOptions{
		DownloadOriginal: types.NullableFrom(true),
		ThumbnailFields:  []string{"name", "gtin"},
	})
	require.NoError(t, err)
	key := rsp.Get("key").String()
	require.NotEmpty(t, key)

	settings, ok := srv.AuthKey(key)
	require.True(t, ok)
	assert.Equal(t, "true", settings["downloadOriginal"])
	assert.Equal(t, "false", settings["requestUpload"])
	assert.Equal(t, elvis.DefaultViewMode, settings["viewMode"])
	assert.Equal(t, "name,gtin", settings["thumbnailFields"])
	assert.NotContains(t, settings, "description")

	_, err = c.UpdateAuthKey(ctx, s, key, "Press kit", "2027-01-31", &elvis.AuthKeyOptions{
		Description: types.NullableFrom("spring catalogue"),
	})
	require.NoError(t, err)
	settings, _ = srv.AuthKey(key)
	assert.Equal(t, "spring catalogue", settings["description"])
	assert.Equal(t, "2027-01-31", settings["validUntil"])

	_, err = c.RevokeAuthKeys(ctx, s, []string{key})
	require.NoError(t, err)
	_, ok = srv.AuthKey(key)
	assert.False(t, ok)

	_, err = c.CreateAuthKey(ctx, s, "", "2026-12-31", []string{a.ID}, nil)
	assert.ErrorIs(t, err, elvis.ErrInvalidArgument)
}

func TestOverNetwork(t *testing.T) {
	ctx := context.Background()
	srv := elvistest.New(testUser, testPass)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c, err := elvis.New(elvis.Config{
		APIEndpointURI: ts.URL + "/services",
		Username:       testUser,
		Password:       testPass,
		Timeout:        5 * time.Second,
		ZipDir:         t.TempDir(),
	}, elvis.WithLogger(zerolog.Nop()))
	require.NoError(t, err)

	s := login(t, c)
	a := create(t, c, s, "a.txt", "alpha", elvis.Metadata{"gtin": "9"})
	assert.Equal(t, 1, search(t, c, s, "gtin:9", nil).TotalHits)

	zr, err := c.Zip(ctx, s, "one.zip", elvis.DownloadPreview, []string{a.ID})
	require.NoError(t, err)
	data, err := os.ReadFile(zr.FileName)
	require.NoError(t, err)
	names, err := elvistest.ZipAssetNames(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt.preview"}, names)

	ok, err := c.Logout(ctx, s)
	require.NoError(t, err)
	assert.True(t, ok)
}
