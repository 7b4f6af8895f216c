package elvistest

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, s *Server, method, target string, cookie *http.Cookie, csrf string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	if csrf != "" {
		req.Header.Set(csrfHeader, csrf)
	}
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, req)
	return rr
}

func TestSessionHandshake(t *testing.T) {
	s := New("alice", "secret")

	rr := do(t, s, http.MethodPost, "/services/login?username=alice&password=secret", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rsp struct {
		LoginSuccess bool   `json:"loginSuccess"`
		CSRFToken    string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rsp))
	require.True(t, rsp.LoginSuccess)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)

	rr = do(t, s, http.MethodPost, "/services/profile", cookies[0], rsp.CSRFToken)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"username":"alice"`)

	rr = do(t, s, http.MethodPost, "/services/profile", cookies[0], "forged")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"errorcode":401,"message":"Not logged in"}`, rr.Body.String())

	rr = do(t, s, http.MethodPost, "/services/profile", nil, rsp.CSRFToken)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, s, http.MethodPost, "/services/nosuch", cookies[0], rsp.CSRFToken)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, s, http.MethodPost, "/services/login?username=alice&password=wrong", nil, "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"loginSuccess":false`)

	calls := s.Calls()
	require.Len(t, calls, 6)
	assert.Equal(t, "/services/login", calls[0].Path)
	assert.Equal(t, rsp.CSRFToken, calls[1].CSRFToken)
	assert.Equal(t, calls[5], s.LastCall())
}

func TestSearchQuery(t *testing.T) {
	_, err := parseQuery("")
	assert.Error(t, err)
	_, err = parseQuery("justaword")
	assert.Error(t, err)

	q, err := parseQuery(`*:* name:"summer sale" relatedTo:abc relationType:related`)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"name", "summer sale"}}, q.terms)
	assert.Equal(t, "abc", q.relatedTo)
	assert.Equal(t, "related", q.relationType)

	a := &asset{id: "x", metadata: map[string]any{"name": "summer sale", "tags": []any{"a", "b"}}}
	assert.True(t, q.matches(a))
	tags, _ := parseQuery("tags:b")
	assert.True(t, tags.matches(a))
	missing, _ := parseQuery("tags:c")
	assert.False(t, missing.matches(a))
}

func TestEditTags(t *testing.T) {
	tags := editTags(nil, true, "a")
	tags = editTags(tags, true, "b")
	tags = editTags(tags, true, "a")
	assert.Equal(t, []any{"a", "b"}, tags)
	assert.Equal(t, []any{"b"}, editTags(tags, false, "a"))
	assert.Equal(t, []any{"x", "y"}, editTags("x", true, "y"))
}

func TestSeedAndZip(t *testing.T) {
	s := New("alice", "secret")
	id := s.SeedAsset("/Docs/a.txt", map[string]any{"gtin": "1"}, []byte("alpha"))
	require.NotEmpty(t, id)
	assert.True(t, s.folders["/Docs"])
	assert.Equal(t, "txt", s.assets[id].metadata["extension"])

	rr := do(t, s, http.MethodPost, "/services/login?username=alice&password=secret", nil, "")
	var rsp struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rsp))
	cookie := rr.Result().Cookies()[0]

	rr = do(t, s, http.MethodGet, "/zip/out.zip?downloadKind=original&assetIds="+id, cookie, rsp.CSRFToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/zip", rr.Header().Get("Content-Type"))
	names, err := ZipAssetNames(rr.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, names)
}

func TestMethodNotAllowed(t *testing.T) {
	s := New("alice", "secret")
	rr := do(t, s, http.MethodGet, "/services/login?username=alice&password=secret", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
