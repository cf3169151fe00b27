package algorithm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pg-sharding/shardcore/pkg/datum"
	"github.com/pg-sharding/shardcore/pkg/models/datanode"
	"github.com/pg-sharding/shardcore/pkg/models/sherror"
)

const (
	TypeInline        = "INLINE"
	TypeMod           = "MOD"
	TypeHashMod       = "HASH_MOD"
	TypeJumpHash      = "JUMP_HASH"
	TypeVolumeRange   = "VOLUME_RANGE"
	TypeBoundaryRange = "BOUNDARY_RANGE"
	TypeComplexInline = "COMPLEX_INLINE"
	TypeHintInline    = "HINT_INLINE"
)

// PreciseValue is a single equality value of a sharding column.
type PreciseValue struct {
	LogicTable string
	Column     string
	Value      any
	Info       datanode.DataNodeInfo
}

// RangeValue is a BETWEEN or comparison predicate on a sharding column.
type RangeValue struct {
	LogicTable string
	Column     string
	Range      datum.Range
	Info       datanode.DataNodeInfo
}

// ComplexValue carries every sharding column of a complex strategy at once.
// A column has either a value list or a range.
type ComplexValue struct {
	LogicTable string
	Values     map[string][]any
	Ranges     map[string]datum.Range
	Info       datanode.DataNodeInfo
}

// HintValue is the out-of-band value collection attached to a statement.
type HintValue struct {
	LogicTable string
	Values     []any
	Info       datanode.DataNodeInfo
}

type Algorithm interface {
	Type() string
}

// PreciseAlgorithm returns the target for one value, or "" when none fits.
type PreciseAlgorithm interface {
	Algorithm
	DoPreciseSharding(targets []string, v PreciseValue) (string, error)
}

type RangeAlgorithm interface {
	Algorithm
	DoRangeSharding(targets []string, v RangeValue) ([]string, error)
}

type ComplexAlgorithm interface {
	Algorithm
	DoComplexSharding(targets []string, v ComplexValue) ([]string, error)
}

type HintAlgorithm interface {
	Algorithm
	DoHintSharding(targets []string, v HintValue) ([]string, error)
}

// Props are the string-valued algorithm properties from configuration.
type Props map[string]string

// PropsFrom flattens decoded configuration values. Lists become
// comma separated strings.
func PropsFrom(m map[string]any) Props {
	p := make(Props, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case []any:
			parts := make([]string, 0, len(t))
			for _, e := range t {
				parts = append(parts, datum.ToString(e))
			}
			p[k] = strings.Join(parts, ",")
		case nil:
			p[k] = ""
		default:
			p[k] = datum.ToString(v)
		}
	}
	return p
}

func (p Props) Get(key, def string) string {
	if v, ok := p[key]; ok && v != "" {
		return v
	}
	return def
}

func (p Props) Int(key string) (int64, error) {
	v, ok := p[key]
	if !ok || strings.TrimSpace(v) == "" {
		return 0, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "algorithm property \"%s\" is required", key)
	}
	i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return 0, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "algorithm property \"%s\" is not an integer: %s", key, v)
	}
	return i, nil
}

func (p Props) Bool(key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(p[key]))
	return err == nil && b
}

// Constructor builds an algorithm from its properties.
type Constructor func(props Props) (Algorithm, error)

// Registry maps configured algorithm type names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry returns a registry with every builtin algorithm registered.
func NewRegistry() *Registry {
	r := &Registry{constructors: map[string]Constructor{}}
	for typ, c := range map[string]Constructor{
		TypeInline:        newInline,
		TypeMod:           newMod,
		TypeHashMod:       newHashMod,
		TypeJumpHash:      newJumpHash,
		TypeVolumeRange:   newVolumeRange,
		TypeBoundaryRange: newBoundaryRange,
		TypeComplexInline: newComplexInline,
		TypeHintInline:    newHintInline,
	} {
		r.constructors[typ] = c
	}
	return r
}

// Register adds a custom algorithm type. Builtin types cannot be replaced.
func (r *Registry) Register(typ string, c Constructor) error {
	typ = strings.ToUpper(strings.TrimSpace(typ))
	if typ == "" || c == nil {
		return fmt.Errorf("algorithm type and constructor must be set")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.constructors[typ]; ok {
		return fmt.Errorf("algorithm type %s is already registered", typ)
	}
	r.constructors[typ] = c
	return nil
}

func (r *Registry) New(typ string, props Props) (Algorithm, error) {
	r.mu.RLock()
	c, ok := r.constructors[strings.ToUpper(strings.TrimSpace(typ))]
	r.mu.RUnlock()
	if !ok {
		return nil, sherror.Newf(sherror.SHARD_UNSUPPORTED_STRATEGY, "unknown sharding algorithm type \"%s\"", typ)
	}
	if props == nil {
		props = Props{}
	}
	return c(props)
}

func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]string, 0, len(r.constructors))
	for typ := range r.constructors {
		res = append(res, typ)
	}
	sort.Strings(res)
	return res
}

// targetBySuffix finds the target named by the naming convention for suffix.
func targetBySuffix(targets []string, info datanode.DataNodeInfo, suffix string) string {
	if info.Prefix == "" && info.SuffixMinLength == 0 && len(targets) > 0 {
		info = datanode.NewDataNodeInfo(targets[0])
	}
	want := info.Target(suffix)
	for _, t := range targets {
		if strings.EqualFold(t, want) {
			return t
		}
	}
	return ""
}

func containsFold(targets []string, name string) (string, bool) {
	for _, t := range targets {
		if strings.EqualFold(t, name) {
			return t, true
		}
	}
	return "", false
}
