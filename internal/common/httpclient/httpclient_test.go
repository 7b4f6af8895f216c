package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	url     string
	timeout time.Duration
}

func (c testConfig) GetServerURL() string { return c.url }
func (c testConfig) GetTimeout() time.Duration { return c.timeout }
func (c testConfig) GetInsecureSkipVerify() bool { return false }
func (c testConfig) GetUserAgent() string { return "httpclient-test/1.0" }

func newEchoHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "sess-1", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"loginSuccess":true}`))
	})
	mux.HandleFunc("/whoami", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("JSESSIONID")
		if err != nil {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(ck.Value + " " + r.Header.Get("X-CSRF-TOKEN") + " " + r.UserAgent()))
	})
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("Filedata")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		_, _ = w.Write([]byte(hdr.Filename + ":" + hdr.Header.Get("Content-Type") + ":" + string(data)))
	})
	mux.HandleFunc("/blob", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("PK\x03\x04binary"))
	})
	mux.HandleFunc("/trickle", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK\x03\x04"))
		w.(http.Flusher).Flush()
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("tail"))
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	return mux
}

func writeTempFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestHTTPClientRequests(t *testing.T) {
	srv := httptest.NewServer(newEchoHandler())
	defer srv.Close()

	client := NewClient(testConfig{url: srv.URL})
	ctx := context.Background()

	t.Run("cookie jar carries the session", func(t *testing.T) {
		jar, err := cookiejar.New(nil)
		require.NoError(t, err)

		rsp, err := client.DoRequest(ctx, RequestOptions{Method: http.MethodPost, URL: srv.URL + "/login", Jar: jar})
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rsp.StatusCode)
		assert.Equal(t, "OK", rsp.ReasonPhrase())

		rsp, err = client.DoRequest(ctx, RequestOptions{
			URL:     srv.URL + "/whoami",
			Jar:     jar,
			Headers: map[string]string{"X-CSRF-TOKEN": "tok", "X-Empty": ""},
		})
		require.NoError(t, err)
		assert.Equal(t, "sess-1 tok httpclient-test/1.0", string(rsp.Body))

		rsp, err = client.DoRequest(ctx, RequestOptions{URL: srv.URL + "/whoami"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, rsp.StatusCode)
	})

	t.Run("multipart upload", func(t *testing.T) {
		path := writeTempFile(t, "notes.txt", "hello dam")
		rsp, err := client.DoRequest(ctx, RequestOptions{
			Method:    http.MethodPost,
			URL:       srv.URL + "/upload",
			Multipart: &MultipartFile{FieldName: "Filedata", Path: path},
		})
		require.NoError(t, err)
		assert.Equal(t, "notes.txt:application/octet-stream:hello dam", string(rsp.Body))
	})

	t.Run("missing upload file", func(t *testing.T) {
		_, err := client.DoRequest(ctx, RequestOptions{
			Method:    http.MethodPost,
			URL:       srv.URL + "/upload",
			Multipart: &MultipartFile{FieldName: "Filedata", Path: filepath.Join(t.TempDir(), "absent")},
		})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("stream", func(t *testing.T) {
		rsp, err := client.StreamRequest(ctx, RequestOptions{URL: srv.URL + "/blob"})
		require.NoError(t, err)
		defer rsp.Body.Close()
		data, err := io.ReadAll(rsp.Body)
		require.NoError(t, err)
		assert.Equal(t, "PK\x03\x04binary", string(data))
	})

	t.Run("timeout", func(t *testing.T) {
		slow := NewClient(testConfig{url: srv.URL, timeout: 50 * time.Millisecond})
		_, err := slow.DoRequest(ctx, RequestOptions{URL: srv.URL + "/slow"})
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "request failed"))
	})

	t.Run("stream body outlives timeout", func(t *testing.T) {
		slow := NewClient(testConfig{url: srv.URL, timeout: 100 * time.Millisecond})
		rsp, err := slow.StreamRequest(ctx, RequestOptions{URL: srv.URL + "/trickle"})
		require.NoError(t, err)
		defer rsp.Body.Close()
		data, err := io.ReadAll(rsp.Body)
		require.NoError(t, err)
		assert.Equal(t, "PK\x03\x04tail", string(data))
	})

	t.Run("stream waits for headers within timeout", func(t *testing.T) {
		slow := NewClient(testConfig{url: srv.URL, timeout: 50 * time.Millisecond})
		_, err := slow.StreamRequest(ctx, RequestOptions{URL: srv.URL + "/slow"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no response headers")
	})

	t.Run("missing url", func(t *testing.T) {
		_, err := client.DoRequest(ctx, RequestOptions{})
		assert.Error(t, err)
	})
}

func TestTestHTTPClient(t *testing.T) {
	client, err := NewTestClient(testConfig{url: "http://dam.test"}, newEchoHandler())
	require.NoError(t, err)
	ctx := context.Background()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	_, err = client.DoRequest(ctx, RequestOptions{Method: http.MethodPost, URL: "http://dam.test/login", Jar: jar})
	require.NoError(t, err)

	rsp, err := client.DoRequest(ctx, RequestOptions{URL: "http://dam.test/whoami", Jar: jar})
	require.NoError(t, err)
	assert.Equal(t, "sess-1  httpclient-test/1.0", string(rsp.Body))

	path := writeTempFile(t, "a.bin", "abc")
	rsp, err = client.DoRequest(ctx, RequestOptions{
		Method:    http.MethodPost,
		URL:       "http://dam.test/upload",
		Multipart: &MultipartFile{FieldName: "Filedata", Path: path, FileName: "renamed.bin", ContentType: "text/plain"},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed.bin:text/plain:abc", string(rsp.Body))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = client.DoRequest(cancelled, RequestOptions{URL: "http://dam.test/whoami"})
	assert.ErrorIs(t, err, context.Canceled)

	_, err = NewTestClient(testConfig{}, nil)
	assert.Error(t, err)
}

func TestDetectContentType(t *testing.T) {
	png := writeTempFile(t, "img.png", "\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", DetectContentType(png))
	txt := writeTempFile(t, "plain.txt", "just text")
	assert.Equal(t, "application/octet-stream", DetectContentType(txt))
	assert.Equal(t, "application/octet-stream", DetectContentType(filepath.Join(t.TempDir(), "missing")))
}
