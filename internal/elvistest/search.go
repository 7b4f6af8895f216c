package elvistest

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/lasselehtinen/elvis/internal/common/httpx"
)

// searchQuery is the subset of the Elvis query syntax the fake understands:
// *:* and space separated field:value terms that must all match. Values may
// be double quoted. relatedTo, relationTarget and relationType select the
// targets of relations instead of matching metadata.
type searchQuery struct {
	all            bool
	terms          [][2]string
	relatedTo      string
	relationTarget string
	relationType   string
}

func parseQuery(q string) (*searchQuery, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, httpx.ErrInvalidRequest("q is required")
	}
	sq := &searchQuery{}
	for _, tok := range tokenize(q) {
		if tok == "*:*" {
			sq.all = true
			continue
		}
		field, value, found := strings.Cut(tok, ":")
		if !found || field == "" {
			return nil, httpx.ErrInvalidRequest("unsupported query term " + strconv.Quote(tok))
		}
		value = strings.Trim(value, `"`)
		switch field {
		case "relatedTo":
			sq.relatedTo = value
		case "relationTarget":
			sq.relationTarget = value
		case "relationType":
			sq.relationType = value
		default:
			sq.terms = append(sq.terms, [2]string{field, value})
		}
	}
	return sq, nil
}

// tokenize splits on spaces outside double quotes.
func tokenize(q string) []string {
	var out []string
	var cur strings.Builder
	quoted := false
	for _, r := range q {
		switch {
		case r == '"':
			quoted = !quoted
			cur.WriteRune(r)
		case r == ' ' && !quoted:
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func (q *searchQuery) matches(a *asset) bool {
	for _, t := range q.terms {
		if t[0] == "id" {
			if a.id != t[1] {
				return false
			}
			continue
		}
		if !valueMatches(a.metadata[t[0]], t[1]) {
			return false
		}
	}
	return true
}

func valueMatches(v any, want string) bool {
	switch x := v.(type) {
	case nil:
		return false
	case []any:
		for _, e := range x {
			if valueMatches(e, want) {
				return true
			}
		}
		return false
	default:
		return stringify(x) == want
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

type hit struct {
	a   *asset
	rel *relation
}

func (s *Server) search(r *http.Request) (*httpx.Response, error) {
	q, err := parseQuery(httpx.Param(r, "q"))
	if err != nil {
		return nil, err
	}
	start := intParam(r, "start", 0)
	num := intParam(r, "num", 50)

	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []hit
	if q.relatedTo != "" {
		for _, rel := range s.orderedRelations() {
			if rel.target1ID != q.relatedTo || (q.relationType != "" && rel.relationType != q.relationType) {
				continue
			}
			if a, found := s.assets[rel.target2ID]; found && q.matches(a) {
				matched = append(matched, hit{a: a, rel: rel})
			}
		}
	} else {
		for _, a := range s.orderedAssets() {
			if q.matches(a) {
				matched = append(matched, hit{a: a})
			}
		}
	}

	matched = applyFacetSelection(r, matched)
	sortHits(matched, httpx.Param(r, "sort"))
	facets := countFacets(r, matched)

	total := len(matched)
	if start > len(matched) {
		start = len(matched)
	}
	matched = matched[start:]
	if num < len(matched) {
		matched = matched[:num]
	}

	fields := splitList(httpx.Param(r, "metadataToReturn"))
	secret := httpx.Param(r, "appendRequestSecret") == "true"
	hits := make([]map[string]any, 0, len(matched))
	for _, h := range matched {
		hits = append(hits, renderHit(h, fields, secret))
	}
	rsp := map[string]any{
		"firstResult":   start,
		"maxResultHits": num,
		"totalHits":     total,
		"hits":          hits,
	}
	if len(facets) > 0 {
		rsp["facets"] = facets
	}
	return ok(rsp), nil
}

func intParam(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(httpx.Param(r, key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func renderHit(h hit, fields []string, secret bool) map[string]any {
	md := map[string]any{}
	if len(fields) == 0 || contains(fields, "all") {
		for k, v := range h.a.metadata {
			md[k] = v
		}
	} else {
		for _, f := range fields {
			if v, found := h.a.metadata[f]; found {
				md[f] = v
			}
		}
	}
	originalURL := "http://elvis.test/file/" + h.a.id + "/*/" + stringify(h.a.metadata["filename"])
	if secret {
		originalURL += "?_=1&requestSecret=" + h.a.id
	}
	out := map[string]any{
		"id":          h.a.id,
		"metadata":    md,
		"originalUrl": originalURL,
	}
	if h.rel != nil {
		out["relation"] = h.rel.render()
	}
	return out
}

// applyFacetSelection keeps the hits matching every facet.<name>.selection
// parameter; a selection lists alternatives separated by commas.
func applyFacetSelection(r *http.Request, hits []hit) []hit {
	selections := map[string][]string{}
	for key, values := range r.URL.Query() {
		if strings.HasPrefix(key, "facet.") && strings.HasSuffix(key, ".selection") && len(values) > 0 {
			name := strings.TrimSuffix(strings.TrimPrefix(key, "facet."), ".selection")
			selections[name] = splitList(values[0])
		}
	}
	if len(selections) == 0 {
		return hits
	}
	var out []hit
	for _, h := range hits {
		keep := true
		for name, alternatives := range selections {
			selected := false
			for _, alt := range alternatives {
				if valueMatches(h.a.metadata[name], alt) {
					selected = true
					break
				}
			}
			if !selected {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, h)
		}
	}
	return out
}

func countFacets(r *http.Request, hits []hit) map[string][]map[string]any {
	names := splitList(httpx.Param(r, "facets"))
	if len(names) == 0 {
		return nil
	}
	out := map[string][]map[string]any{}
	for _, name := range names {
		selected := splitList(httpx.Param(r, "facet."+name+".selection"))
		counts := map[string]int{}
		for _, h := range hits {
			switch v := h.a.metadata[name].(type) {
			case nil:
			case []any:
				for _, e := range v {
					counts[stringify(e)]++
				}
			default:
				counts[stringify(v)]++
			}
		}
		values := make([]string, 0, len(counts))
		for v := range counts {
			values = append(values, v)
		}
		sort.Slice(values, func(i, j int) bool {
			if counts[values[i]] != counts[values[j]] {
				return counts[values[i]] > counts[values[j]]
			}
			return values[i] < values[j]
		})
		entries := make([]map[string]any, 0, len(values))
		for _, v := range values {
			entries = append(entries, map[string]any{"value": v, "hits": counts[v], "selected": contains(selected, v)})
		}
		out[name] = entries
	}
	return out
}

// sortHits orders hits by "<field>" or "<field>-desc"; assetCreated is
// compared numerically, other fields as strings.
func sortHits(hits []hit, order string) {
	if order == "" {
		return
	}
	field, desc := order, false
	if f, found := strings.CutSuffix(order, "-desc"); found {
		field, desc = f, true
	}
	field = strings.TrimSuffix(field, "-asc")
	less := func(i, j int) bool {
		a, b := hits[i].a, hits[j].a
		if field == "assetCreated" {
			return a.created < b.created
		}
		return stringify(a.metadata[field]) < stringify(b.metadata[field])
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if desc {
			return less(j, i)
		}
		return less(i, j)
	})
}
