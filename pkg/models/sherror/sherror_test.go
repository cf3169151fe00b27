package sherror_test

import (
	"fmt"
	"testing"

	"github.com/pg-sharding/shardcore/pkg/models/sherror"
	"github.com/stretchr/testify/assert"
)

func TestShardErrorCodes(t *testing.T) {
	assert := assert.New(t)

	err := sherror.Newf(sherror.SHARD_TABLE_RULE_NOT_FOUND, "no table rule for %q", "t_user")
	assert.Equal(`no table rule for "t_user"`, err.Error())
	assert.True(sherror.HasCode(err, sherror.SHARD_TABLE_RULE_NOT_FOUND))
	assert.False(sherror.HasCode(err, sherror.SHARD_BINDING_TABLE_MISMATCH))

	wrapped := fmt.Errorf("route: %w", err)
	assert.True(sherror.HasCode(wrapped, sherror.SHARD_TABLE_RULE_NOT_FOUND))
	assert.False(sherror.HasCode(fmt.Errorf("plain"), sherror.SHARD_UNEXPECTED))
}

func TestNewByCode(t *testing.T) {
	err := sherror.NewByCode(sherror.SHARD_CARTESIAN_EMPTY)
	assert.Equal(t, "CartesianProductEmpty", err.Error())
	assert.Equal(t, "Unexpected error", sherror.GetMessageByCode("nope"))
}
