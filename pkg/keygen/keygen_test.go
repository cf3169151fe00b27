package keygen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pg-sharding/shardcore/pkg/keygen"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

func TestSnowflakeIncreasing(t *testing.T) {
	assert := assert.New(t)

	g, err := keygen.NewRegistry().New("snowflake", map[string]string{"worker_id": "3"})
	assert.NoError(err)

	prev := int64(0)
	for i := 0; i < 100; i++ {
		v, err := g.Generate()
		assert.NoError(err)
		assert.Greater(v.(int64), prev)
		prev = v.(int64)
	}
}

func TestUUID(t *testing.T) {
	assert := assert.New(t)

	g, err := keygen.NewRegistry().New("UUID", nil)
	assert.NoError(err)

	a, _ := g.Generate()
	b, _ := g.Generate()
	assert.Len(a, 32)
	assert.NotEqual(a, b)
}

func TestUnknownGenerator(t *testing.T) {
	assert := assert.New(t)

	r := keygen.NewRegistry()
	_, err := r.New("SEQUENCE", nil)
	assert.True(sherror.HasCode(err, sherror.SHARD_KEY_GENERATION_FAILURE))

	_, err = r.New("SNOWFLAKE", map[string]string{"worker_id": "100000"})
	assert.Error(err)

	assert.Error(r.Register("uuid", nil))
}
