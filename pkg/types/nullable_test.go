package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullable(t *testing.T) {
	var unset Nullable[bool]
	assert.True(t, unset.IsNil())
	assert.True(t, unset.ValueOr(true))
	assert.Nil(t, unset.Interface())

	explicitFalse := NullableFrom(false)
	assert.False(t, explicitFalse.IsNil())
	assert.False(t, explicitFalse.ValueOr(true))
	assert.Equal(t, false, explicitFalse.Interface())

	var n Nullable[int]
	n.Set(0)
	assert.False(t, n.IsNil())
	assert.Equal(t, 0, n.ValueOr(50))

	assert.True(t, Null[string]().IsNil())
}

func TestNullableJSON(t *testing.T) {
	type opts struct {
		Num  Nullable[int]    `json:"num"`
		Sort Nullable[string] `json:"sort"`
	}

	b, err := json.Marshal(opts{Num: NullableFrom(20)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"num":20,"sort":null}`, string(b))

	var o opts
	require.NoError(t, json.Unmarshal([]byte(`{"num":null,"sort":"name"}`), &o))
	assert.True(t, o.Num.IsNil())
	assert.Equal(t, "name", o.Sort.ValueOr(""))

	assert.Error(t, json.Unmarshal([]byte(`{"num":"x"}`), &o))
}
