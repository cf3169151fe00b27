// Package keygen provides the generators that fill a table's generated key
// column when an INSERT does not supply it.
package keygen

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

const (
	TypeSnowflake = "SNOWFLAKE"
	TypeUUID      = "UUID"

	propWorkerID = "worker_id"
)

type KeyGenerator interface {
	Type() string
	Generate() (any, error)
}

type Constructor func(props map[string]string) (KeyGenerator, error)

type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{
		TypeSnowflake: newSnowflake,
		TypeUUID:      newUUID,
	}}
}

func (r *Registry) Register(typ string, c Constructor) error {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.constructors[typ]; ok {
		return fmt.Errorf("key generator type %s is already registered", typ)
	}
	r.constructors[typ] = c
	return nil
}

func (r *Registry) New(typ string, props map[string]string) (KeyGenerator, error) {
	r.mu.RLock()
	c, ok := r.constructors[strings.ToUpper(strings.TrimSpace(typ))]
	r.mu.RUnlock()
	if !ok {
		return nil, sherror.Newf(sherror.SHARD_KEY_GENERATION_FAILURE, "unknown key generator type \"%s\"", typ)
	}
	return c(props)
}

// SnowflakeGenerator yields time ordered int64 keys.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

func newSnowflake(props map[string]string) (KeyGenerator, error) {
	var worker int64
	if v := strings.TrimSpace(props[propWorkerID]); v != "" {
		w, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, sherror.Newf(sherror.SHARD_KEY_GENERATION_FAILURE, "invalid %s %q", propWorkerID, v)
		}
		worker = w
	}
	node, err := snowflake.NewNode(worker)
	if err != nil {
		return nil, sherror.New(sherror.SHARD_KEY_GENERATION_FAILURE, err.Error())
	}
	return &SnowflakeGenerator{node: node}, nil
}

func (g *SnowflakeGenerator) Type() string {
	return TypeSnowflake
}

func (g *SnowflakeGenerator) Generate() (any, error) {
	return g.node.Generate().Int64(), nil
}

// UUIDGenerator yields random UUIDs without dashes.
type UUIDGenerator struct{}

func newUUID(map[string]string) (KeyGenerator, error) {
	return UUIDGenerator{}, nil
}

func (UUIDGenerator) Type() string {
	return TypeUUID
}

func (UUIDGenerator) Generate() (any, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, sherror.New(sherror.SHARD_KEY_GENERATION_FAILURE, err.Error())
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}
