// Package routehint holds sharding values a session attaches to a statement
// out of band. A Context is owned by the caller and lives as long as the
// statement (or session) it was created for.
package routehint

import "strings"

type Context struct {
	DatabaseValues map[string][]any `json:"database_values,omitempty" toml:"database_values" yaml:"database_values"`
	TableValues    map[string][]any `json:"table_values,omitempty" toml:"table_values" yaml:"table_values"`

	// DatabaseOnly routes every table to the data sources named by
	// DatabaseOnlyValues, keeping logic table names.
	DatabaseOnly       bool  `json:"database_only,omitempty" toml:"database_only" yaml:"database_only"`
	DatabaseOnlyValues []any `json:"database_only_values,omitempty" toml:"database_only_values" yaml:"database_only_values"`
}

func New() *Context {
	return &Context{
		DatabaseValues: map[string][]any{},
		TableValues:    map[string][]any{},
	}
}

func key(table string) string {
	return strings.ToLower(table)
}

func (c *Context) AddDatabaseValue(table string, v any) {
	if c.DatabaseValues == nil {
		c.DatabaseValues = map[string][]any{}
	}
	c.DatabaseValues[key(table)] = append(c.DatabaseValues[key(table)], v)
}

func (c *Context) AddTableValue(table string, v any) {
	if c.TableValues == nil {
		c.TableValues = map[string][]any{}
	}
	c.TableValues[key(table)] = append(c.TableValues[key(table)], v)
}

// SetDatabaseOnly replaces all hints with a database-only hint.
func (c *Context) SetDatabaseOnly(values ...any) {
	c.DatabaseValues = map[string][]any{}
	c.TableValues = map[string][]any{}
	c.DatabaseOnly = true
	c.DatabaseOnlyValues = values
}

func lookup(m map[string][]any, table string) ([]any, bool) {
	if v, ok := m[key(table)]; ok {
		return v, len(v) > 0
	}
	for k, v := range m {
		if strings.EqualFold(k, table) {
			return v, len(v) > 0
		}
	}
	return nil, false
}

// DatabaseValuesFor is nil-safe.
func (c *Context) DatabaseValuesFor(table string) ([]any, bool) {
	if c == nil {
		return nil, false
	}
	if c.DatabaseOnly {
		return c.DatabaseOnlyValues, len(c.DatabaseOnlyValues) > 0
	}
	return lookup(c.DatabaseValues, table)
}

func (c *Context) TableValuesFor(table string) ([]any, bool) {
	if c == nil || c.DatabaseOnly {
		return nil, false
	}
	return lookup(c.TableValues, table)
}

func (c *Context) IsDatabaseOnly() bool {
	return c != nil && c.DatabaseOnly
}

func (c *Context) Clear() {
	*c = *New()
}
