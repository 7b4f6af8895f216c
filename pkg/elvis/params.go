package elvis

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Params is an insertion-ordered set of query parameters. Values are kept as
// given and formatted when the query string is encoded:
//
//   - bool as "true" or "false"
//   - integers and floats in decimal
//   - []string comma-joined
//   - a *Params or map value only under the facetSelection key
//
// nil values, unset types.Nullable values and empty slices are not stored.
type Params struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewParams returns an empty parameter set.
func NewParams() *Params {
	return &Params{m: orderedmap.New[string, any]()}
}

// nullable is satisfied by types.Nullable.
type nullable interface {
	IsNil() bool
	Interface() any
}

// Set stores value under key. Setting an existing key replaces its value and
// keeps its position. Absent values delete the key.
func (p *Params) Set(key string, value any) *Params {
	if n, ok := value.(nullable); ok {
		if n.IsNil() {
			value = nil
		} else {
			value = n.Interface()
		}
	}
	if isAbsent(value) {
		p.m.Delete(key)
		return p
	}
	p.m.Set(key, value)
	return p
}

func isAbsent(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case []string:
		return len(v) == 0
	case *Params:
		return v == nil || v.Len() == 0
	case map[string]string:
		return len(v) == 0
	case map[string][]string:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	}
	return false
}

// Get returns the value stored under key.
func (p *Params) Get(key string) (any, bool) {
	if p == nil {
		return nil, false
	}
	return p.m.Get(key)
}

// Delete removes key.
func (p *Params) Delete(key string) {
	p.m.Delete(key)
}

// Len returns the number of stored parameters.
func (p *Params) Len() int {
	if p == nil {
		return 0
	}
	return p.m.Len()
}

// Keys returns the parameter names in insertion order.
func (p *Params) Keys() []string {
	if p == nil {
		return nil
	}
	keys := make([]string, 0, p.m.Len())
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Merge sets every parameter of other on p, in other's order.
func (p *Params) Merge(other *Params) *Params {
	if other == nil {
		return p
	}
	for pair := other.m.Oldest(); pair != nil; pair = pair.Next() {
		p.m.Set(pair.Key, pair.Value)
	}
	return p
}

// Clone returns a shallow copy of p. A nil receiver yields an empty set.
func (p *Params) Clone() *Params {
	return NewParams().Merge(p)
}

// Encode returns the URL-encoded query string in insertion order.
func (p *Params) Encode() (string, error) {
	if p.Len() == 0 {
		return "", nil
	}
	var b strings.Builder
	for pair := p.m.Oldest(); pair != nil; pair = pair.Next() {
		s, err := formatValue(pair.Value)
		if err != nil {
			return "", ErrInvalidArgument.Msg(fmt.Sprintf("parameter %s: %v", pair.Key, err))
		}
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(pair.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(s))
	}
	return b.String(), nil
}

func formatValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case []string:
		return strings.Join(v, ","), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", value)
	}
}

// facetKeys rewrites a facet selection into facet.<name>.selection entries.
// Ordered selections keep their order, maps are emitted in key order.
func facetKeys(selection any) (*Params, error) {
	out := NewParams()
	switch v := selection.(type) {
	case *Params:
		for pair := v.m.Oldest(); pair != nil; pair = pair.Next() {
			out.Set(facetKey(pair.Key), pair.Value)
		}
	case map[string]string:
		for _, k := range sortedKeys(v) {
			out.Set(facetKey(k), v[k])
		}
	case map[string][]string:
		for _, k := range sortedKeys(v) {
			out.Set(facetKey(k), v[k])
		}
	case map[string]any:
		for _, k := range sortedKeys(v) {
			out.Set(facetKey(k), v[k])
		}
	default:
		return nil, ErrInvalidArgument.Msg(fmt.Sprintf("facetSelection: unsupported value type %T", selection))
	}
	return out, nil
}

func facetKey(name string) string {
	return "facet." + name + ".selection"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
