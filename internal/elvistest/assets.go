package elvistest

import (
	"context"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lasselehtinen/elvis/internal/common/httpx"
	"github.com/lasselehtinen/elvis/internal/common/uuid"
)

type asset struct {
	id           string
	metadata     map[string]any
	content      []byte
	created      int64
	checkedOutBy string
}

func (a *asset) path() string {
	p, _ := a.metadata["assetPath"].(string)
	return p
}

func (a *asset) setPath(p string) {
	a.metadata["assetPath"] = p
	a.metadata["filename"] = path.Base(p)
	a.metadata["folderPath"] = path.Dir(p)
	if ext := path.Ext(p); ext != "" {
		a.metadata["extension"] = strings.ToLower(ext[1:])
	}
}

type ctxSession struct {
	id string
	us *userSession
}

func withSession(ctx context.Context, id string, us *userSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, ctxSession{id: id, us: us})
}

func sessionFrom(ctx context.Context) (string, *userSession) {
	cs, _ := ctx.Value(sessionKey{}).(ctxSession)
	return cs.id, cs.us
}

// SeedAsset stores an asset at assetPath without going through the API and
// returns its id.
func (s *Server) SeedAsset(assetPath string, metadata map[string]any, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAsset(assetPath, metadata, content)
}

func (s *Server) addAsset(assetPath string, metadata map[string]any, content []byte) string {
	id, _ := uuid.RandomName(22)
	a := &asset{
		id:       id,
		metadata: map[string]any{},
		content:  content,
		created:  s.now(),
	}
	for k, v := range metadata {
		a.metadata[k] = v
	}
	a.metadata["id"] = id
	a.metadata["assetCreated"] = a.created
	a.metadata["fileSize"] = len(content)
	a.setPath(assetPath)
	s.assets[id] = a
	s.order = append(s.order, id)
	s.ensureFolder(path.Dir(assetPath))
	return id
}

func (s *Server) deleteAsset(id string) {
	delete(s.assets, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *Server) ensureFolder(p string) {
	for p != "/" && p != "." && p != "" {
		s.folders[p] = true
		p = path.Dir(p)
	}
}

// orderedAssets returns the assets in creation order.
func (s *Server) orderedAssets() []*asset {
	out := make([]*asset, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.assets[id])
	}
	return out
}

func metadataParam(r *http.Request) (map[string]any, error) {
	raw := httpx.Param(r, "metadata")
	if raw == "" {
		return nil, nil
	}
	md := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, httpx.ErrInvalidRequest("metadata is not a json object")
	}
	return md, nil
}

// applyMetadata sets fields on a, honouring +value and -value prefixes on
// multi-valued fields.
func applyMetadata(a *asset, md map[string]any) {
	for k, v := range md {
		if k == "assetPath" {
			if p, ok := v.(string); ok && p != "" {
				a.setPath(p)
			}
			continue
		}
		if sv, ok := v.(string); ok && len(sv) > 1 && (sv[0] == '+' || sv[0] == '-') {
			a.metadata[k] = editTags(a.metadata[k], sv[0] == '+', sv[1:])
			continue
		}
		a.metadata[k] = v
	}
}

func editTags(current any, add bool, value string) []any {
	var tags []any
	if list, ok := current.([]any); ok {
		tags = append(tags, list...)
	} else if current != nil {
		tags = append(tags, current)
	}
	for i, t := range tags {
		if t == value {
			if add {
				return tags
			}
			return append(tags[:i], tags[i+1:]...)
		}
	}
	if add {
		tags = append(tags, value)
	}
	return tags
}

func assetResponse(a *asset) map[string]any {
	md := make(map[string]any, len(a.metadata))
	for k, v := range a.metadata {
		md[k] = v
	}
	return map[string]any{"id": a.id, "metadata": md}
}

func (s *Server) create(r *http.Request) (*httpx.Response, error) {
	_, us := sessionFrom(r.Context())
	md, err := metadataParam(r)
	if err != nil {
		return nil, err
	}
	f, hdr, err := r.FormFile("Filedata")
	if err != nil {
		return nil, httpx.ErrInvalidRequest("Filedata is required")
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, httpx.ErrApplicationError("unable to read Filedata")
	}

	assetPath, _ := md["assetPath"].(string)
	if assetPath == "" {
		assetPath = userZone(us.user) + "/" + hdr.Filename
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.addAsset(assetPath, nil, content)
	a := s.assets[id]
	a.metadata["mimeType"] = hdr.Header.Get("Content-Type")
	a.metadata["assetCreator"] = us.user
	applyMetadata(a, md)
	return ok(assetResponse(a)), nil
}

func (s *Server) update(r *http.Request) (*httpx.Response, error) {
	id := httpx.Param(r, "id")
	md, err := metadataParam(r)
	if err != nil {
		return nil, err
	}
	var content []byte
	if f, _, err := r.FormFile("Filedata"); err == nil {
		content, err = io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, httpx.ErrApplicationError("unable to read Filedata")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.assets[id]
	if !found {
		return nil, httpx.ErrInvalidRequest("asset not found: " + id)
	}
	if content != nil {
		a.content = content
		a.metadata["fileSize"] = len(content)
	}
	applyMetadata(a, md)
	return ok(map[string]any{}), nil
}

func (s *Server) updateBulk(r *http.Request) (*httpx.Response, error) {
	md, err := metadataParam(r)
	if err != nil {
		return nil, err
	}
	if len(md) == 0 {
		return nil, httpx.ErrInvalidRequest("metadata is required")
	}
	q, err := parseQuery(httpx.Param(r, "q"))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.orderedAssets() {
		if q.matches(a) {
			applyMetadata(a, md)
			count++
		}
	}
	return ok(processed(count)), nil
}

func processed(n int) map[string]any {
	return map[string]any{"processedCount": n, "errorCount": 0}
}

func (s *Server) browse(r *http.Request) (*httpx.Response, error) {
	p := strings.TrimSuffix(httpx.Param(r, "path"), "/")
	if p == "" {
		return nil, httpx.ErrInvalidRequest("path is required")
	}
	includeFolders := httpx.Param(r, "includeFolders") != "false"
	includeAsset := httpx.Param(r, "includeAsset") != "false"

	s.mu.Lock()
	defer s.mu.Unlock()
	entries := []map[string]any{}
	if includeFolders {
		var names []string
		for f := range s.folders {
			if path.Dir(f) == p || (p == "." && path.Dir(f) == "/") {
				names = append(names, f)
			}
		}
		sort.Strings(names)
		for _, f := range names {
			entries = append(entries, map[string]any{"name": path.Base(f), "assetPath": f, "directory": true})
		}
	}
	if includeAsset {
		for _, a := range s.orderedAssets() {
			if path.Dir(a.path()) == p {
				entries = append(entries, map[string]any{"name": path.Base(a.path()), "assetPath": a.path(), "directory": false})
			}
		}
	}
	return ok(entries), nil
}

func (s *Server) createFolder(r *http.Request) (*httpx.Response, error) {
	p := httpx.Param(r, "path")
	if p == "" {
		return nil, httpx.ErrInvalidRequest("path is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	status := "created"
	if s.folders[p] {
		status = "already exists"
	}
	s.ensureFolder(p)
	return ok(map[string]any{p: status}), nil
}

func (s *Server) remove(r *http.Request) (*httpx.Response, error) {
	query := httpx.Param(r, "q")
	ids := splitList(httpx.Param(r, "ids"))
	folder := httpx.Param(r, "folderPath")
	if query == "" && len(ids) == 0 && folder == "" {
		return nil, httpx.ErrInvalidRequest("q, ids or folderPath is required")
	}
	var q *searchQuery
	if query != "" {
		var err error
		if q, err = parseQuery(query); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.orderedAssets() {
		if (q != nil && q.matches(a)) || contains(ids, a.id) || (folder != "" && isBelow(a.path(), folder)) {
			s.deleteAsset(a.id)
			count++
		}
	}
	if folder != "" {
		for f := range s.folders {
			if f == folder || isBelow(f, folder) {
				delete(s.folders, f)
			}
		}
	}
	return ok(processed(count)), nil
}

func isBelow(p, folder string) bool {
	return strings.HasPrefix(p, strings.TrimSuffix(folder, "/")+"/")
}

func (s *Server) move(r *http.Request) (*httpx.Response, error) {
	return s.transfer(r, false)
}

func (s *Server) copy(r *http.Request) (*httpx.Response, error) {
	return s.transfer(r, true)
}

// transfer moves or copies the asset at source, or every asset below the
// folder source, to target.
func (s *Server) transfer(r *http.Request, keep bool) (*httpx.Response, error) {
	source := httpx.Param(r, "source")
	target := httpx.Param(r, "target")
	if source == "" || target == "" {
		return nil, httpx.ErrInvalidRequest("source and target are required")
	}
	policy := httpx.Param(r, "fileReplacePolicy")
	var filter *searchQuery
	if fq := httpx.Param(r, "filterQuery"); fq != "" {
		var err error
		if filter, err = parseQuery(fq); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.orderedAssets() {
		var dest string
		switch {
		case a.path() == source:
			dest = target
		case isBelow(a.path(), source):
			dest = target + strings.TrimPrefix(a.path(), strings.TrimSuffix(source, "/"))
		default:
			continue
		}
		if filter != nil && !filter.matches(a) {
			continue
		}
		dest, err := s.resolveTarget(dest, policy)
		if err != nil {
			return nil, err
		}
		if keep {
			id := s.addAsset(dest, a.metadata, a.content)
			s.assets[id].setPath(dest)
		} else {
			a.setPath(dest)
			s.ensureFolder(path.Dir(dest))
		}
		count++
	}
	if count == 0 {
		return nil, httpx.ErrInvalidRequest("source not found: " + source)
	}
	return ok(processed(count)), nil
}

func (s *Server) resolveTarget(dest, policy string) (string, error) {
	if !s.pathTaken(dest) {
		return dest, nil
	}
	switch policy {
	case "THROW_EXCEPTION":
		return "", httpx.ErrConflict("target exists: " + dest)
	case "AUTO_RENAME", "":
		ext := path.Ext(dest)
		base := strings.TrimSuffix(dest, ext)
		for i := 1; ; i++ {
			candidate := base + "-" + strconv.Itoa(i) + ext
			if !s.pathTaken(candidate) {
				return candidate, nil
			}
		}
	default:
		for _, a := range s.orderedAssets() {
			if a.path() == dest {
				s.deleteAsset(a.id)
			}
		}
		return dest, nil
	}
}

func (s *Server) pathTaken(p string) bool {
	for _, a := range s.assets {
		if a.path() == p {
			return true
		}
	}
	return false
}

func (s *Server) checkout(r *http.Request) (*httpx.Response, error) {
	_, us := sessionFrom(r.Context())
	id := chi.URLParam(r, "assetId")
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.assets[id]
	if !found {
		return nil, httpx.ErrInvalidRequest("asset not found: " + id)
	}
	if a.checkedOutBy != "" && a.checkedOutBy != us.user {
		return nil, httpx.ErrConflict("asset is checked out by " + a.checkedOutBy)
	}
	a.checkedOutBy = us.user
	a.metadata["checkedOutBy"] = us.user
	return ok(map[string]any{
		"checkedOut":         s.now(),
		"checkedOutBy":       us.user,
		"checkedOutOnClient": "api",
	}), nil
}

func (s *Server) undoCheckout(r *http.Request) (*httpx.Response, error) {
	_, us := sessionFrom(r.Context())
	id := chi.URLParam(r, "assetId")
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.assets[id]
	if !found {
		return nil, httpx.ErrInvalidRequest("asset not found: " + id)
	}
	if a.checkedOutBy != "" && a.checkedOutBy != us.user {
		return nil, httpx.ErrConflict("asset is checked out by " + a.checkedOutBy)
	}
	a.checkedOutBy = ""
	delete(a.metadata, "checkedOutBy")
	return ok(map[string]any{}), nil
}

// CheckedOutBy returns the user holding the checkout lock on asset id.
func (s *Server) CheckedOutBy(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, found := s.assets[id]; found {
		return a.checkedOutBy
	}
	return ""
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
