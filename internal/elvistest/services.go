package elvistest

import (
	"archive/zip"
	"bytes"
	"net/http"
	"strconv"

	"github.com/lasselehtinen/elvis/internal/common/httpx"
	"github.com/lasselehtinen/elvis/internal/common/uuid"
)

type relation struct {
	id           string
	relationType string
	target1ID    string
	target2ID    string
	metadata     map[string]any
	seq          int64
}

func (rel *relation) render() map[string]any {
	md := map[string]any{}
	for k, v := range rel.metadata {
		md[k] = v
	}
	return map[string]any{
		"relationId":       rel.id,
		"relationType":     rel.relationType,
		"target1Id":        rel.target1ID,
		"target2Id":        rel.target2ID,
		"relationMetadata": md,
	}
}

func (s *Server) orderedRelations() []*relation {
	out := make([]*relation, 0, len(s.relations))
	for _, rel := range s.relations {
		out = append(out, rel)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].seq < out[j-1].seq; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (s *Server) createRelation(r *http.Request) (*httpx.Response, error) {
	_, us := sessionFrom(r.Context())
	relType := httpx.Param(r, "relationType")
	t1 := httpx.Param(r, "target1Id")
	t2 := httpx.Param(r, "target2Id")
	if relType == "" || t1 == "" || t2 == "" {
		return nil, httpx.ErrInvalidRequest("relationType, target1Id and target2Id are required")
	}
	md, err := metadataParam(r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range []string{t1, t2} {
		if _, found := s.assets[id]; !found {
			return nil, httpx.ErrInvalidRequest("asset not found: " + id)
		}
	}
	id, _ := uuid.RandomName(22)
	rel := &relation{
		id:           id,
		relationType: relType,
		target1ID:    t1,
		target2ID:    t2,
		metadata:     map[string]any{"relationCreator": us.user, "relationModifier": us.user},
		seq:          s.now(),
	}
	for k, v := range md {
		rel.metadata[k] = v
	}
	s.relations[id] = rel
	return ok(map[string]any{}), nil
}

func (s *Server) removeRelation(r *http.Request) (*httpx.Response, error) {
	ids := splitList(httpx.Param(r, "relationIds"))
	if len(ids) == 0 {
		return nil, httpx.ErrInvalidRequest("relationIds is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, id := range ids {
		if _, found := s.relations[id]; found {
			delete(s.relations, id)
			count++
		}
	}
	return ok(processed(count)), nil
}

type usageEntry struct {
	AssetID    string            `json:"asset_id"`
	ActionType string            `json:"action_type"`
	User       string            `json:"user"`
	Details    map[string]string `json:"details"`
	LogDate    int64             `json:"log_date"`
}

func (s *Server) logUsage(r *http.Request) (*httpx.Response, error) {
	_, us := sessionFrom(r.Context())
	assetID := httpx.Param(r, "assetId")
	action := httpx.Param(r, "action")
	if assetID == "" || action == "" {
		return nil, httpx.ErrInvalidRequest("assetId and action are required")
	}
	details := map[string]string{}
	for k, v := range r.URL.Query() {
		if k != "assetId" && k != "action" && len(v) > 0 {
			details[k] = v[0]
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.assets[assetID]; !found {
		return nil, httpx.ErrInvalidRequest("asset not found: " + assetID)
	}
	s.usage = append(s.usage, usageEntry{
		AssetID:    assetID,
		ActionType: "CUSTOM_ACTION_" + action,
		User:       us.user,
		Details:    details,
		LogDate:    s.now(),
	})
	return ok(map[string]any{}), nil
}

func (s *Server) queryStats(r *http.Request) (*httpx.Response, error) {
	if httpx.Param(r, "queryFile") == "" {
		return nil, httpx.ErrInvalidRequest("queryFile is required")
	}
	num := intParam(r, "num", 0)
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := append([]usageEntry{}, s.usage...)
	if num > 0 && num < len(rows) {
		rows = rows[len(rows)-num:]
	}
	return ok(rows), nil
}

type messageBundle struct {
	modified int64
	locales  map[string]map[string]string
}

func defaultMessages() messageBundle {
	return messageBundle{
		modified: 1700000000000,
		locales: map[string]map[string]string{
			"en_US": {"web.search": "Search", "web.browse": "Browse"},
			"nl_NL": {"web.search": "Zoeken", "web.browse": "Bladeren"},
		},
	}
}

// MessagesModified returns the timestamp of the message bundle in
// milliseconds since the epoch.
func (s *Server) MessagesModified() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messages.modified
}

func (s *Server) getMessages(r *http.Request) (*httpx.Response, error) {
	s.mu.Lock()
	bundle := s.messages
	s.mu.Unlock()

	if since, err := strconv.ParseInt(httpx.Param(r, "ifModifiedSince"), 10, 64); err == nil && since >= bundle.modified {
		if s.NotModifiedAsErrorcode {
			return nil, &httpx.Error{Code: http.StatusNotModified, Message: ""}
		}
		return &httpx.Response{StatusCode: http.StatusNotModified}, nil
	}
	for _, locale := range splitList(httpx.Param(r, "localeChain")) {
		if msgs, found := bundle.locales[locale]; found {
			return ok(msgs), nil
		}
	}
	return ok(bundle.locales["en_US"]), nil
}

func (s *Server) zip(r *http.Request) (*httpx.Response, error) {
	ids := splitList(httpx.Param(r, "assetIds"))
	if len(ids) == 0 {
		return nil, httpx.ErrInvalidRequest("assetIds is required")
	}
	kind := httpx.Param(r, "downloadKind")
	if kind != "original" && kind != "preview" {
		return nil, httpx.ErrInvalidRequest("unsupported downloadKind " + strconv.Quote(kind))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, id := range ids {
		a, found := s.assets[id]
		if !found {
			return nil, httpx.ErrInvalidRequest("asset not found: " + id)
		}
		name := stringify(a.metadata["filename"])
		if kind == "preview" {
			name += ".preview"
		}
		w, err := zw.Create(name)
		if err != nil {
			return nil, httpx.ErrApplicationError(err.Error())
		}
		if _, err := w.Write(a.content); err != nil {
			return nil, httpx.ErrApplicationError(err.Error())
		}
	}
	if err := zw.Close(); err != nil {
		return nil, httpx.ErrApplicationError(err.Error())
	}
	return &httpx.Response{
		StatusCode:  http.StatusOK,
		ContentType: "application/zip",
		Body:        buf.Bytes(),
	}, nil
}

type authKey struct {
	key      string
	subject  string
	assetIDs []string
	settings map[string]string
}

// AuthKey returns the settings of a live auth key as sent by the client,
// and whether the key exists.
func (s *Server) AuthKey(key string) (map[string]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, found := s.authKeys[key]
	if !found {
		return nil, false
	}
	out := map[string]string{}
	for name, v := range k.settings {
		out[name] = v
	}
	return out, true
}

func authKeySettings(r *http.Request) map[string]string {
	settings := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			settings[k] = v[0]
		}
	}
	return settings
}

func (s *Server) createAuthKey(r *http.Request) (*httpx.Response, error) {
	subject := httpx.Param(r, "subject")
	ids := splitList(httpx.Param(r, "assetIds"))
	if subject == "" || httpx.Param(r, "validUntil") == "" || len(ids) == 0 {
		return nil, httpx.ErrInvalidRequest("subject, validUntil and assetIds are required")
	}
	key, err := uuid.RandomName(24)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authKeys[key] = &authKey{key: key, subject: subject, assetIDs: ids, settings: authKeySettings(r)}
	return ok(map[string]any{"key": key}), nil
}

func (s *Server) updateAuthKey(r *http.Request) (*httpx.Response, error) {
	key := httpx.Param(r, "key")
	s.mu.Lock()
	defer s.mu.Unlock()
	k, found := s.authKeys[key]
	if !found {
		return nil, httpx.ErrInvalidRequest("auth key not found: " + key)
	}
	if subject := httpx.Param(r, "subject"); subject != "" {
		k.subject = subject
	}
	for name, v := range authKeySettings(r) {
		k.settings[name] = v
	}
	return ok(map[string]any{}), nil
}

func (s *Server) revokeAuthKeys(r *http.Request) (*httpx.Response, error) {
	keys := splitList(httpx.Param(r, "keys"))
	if len(keys) == 0 {
		return nil, httpx.ErrInvalidRequest("keys is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.authKeys, key)
	}
	return ok(map[string]any{}), nil
}

// ZipAssetNames lists the entries of a zip archive, for tests.
func ZipAssetNames(data []byte) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names, nil
}
