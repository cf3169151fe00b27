package routehint_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pg-sharding/shardcore/router/routehint"
)

func TestHintValues(t *testing.T) {
	assert := assert.New(t)

	h := routehint.New()
	h.AddDatabaseValue("T_ORDER", 1)
	h.AddTableValue("t_order", 2)
	h.AddTableValue("t_order", 3)

	v, ok := h.DatabaseValuesFor("t_order")
	assert.True(ok)
	assert.Equal([]any{1}, v)

	v, ok = h.TableValuesFor("T_Order")
	assert.True(ok)
	assert.Equal([]any{2, 3}, v)

	_, ok = h.TableValuesFor("t_user")
	assert.False(ok)

	h.SetDatabaseOnly("ds_1")
	assert.True(h.IsDatabaseOnly())
	v, ok = h.DatabaseValuesFor("anything")
	assert.True(ok)
	assert.Equal([]any{"ds_1"}, v)
	_, ok = h.TableValuesFor("t_order")
	assert.False(ok)

	h.Clear()
	assert.False(h.IsDatabaseOnly())

	var nilHint *routehint.Context
	_, ok = nilHint.DatabaseValuesFor("t_order")
	assert.False(ok)
}
