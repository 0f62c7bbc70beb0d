package metrics

import (
	"sort"
	"strings"
)

// ID identifies an instrument by name, group and tag set. Two IDs are equal
// iff name, group and the unordered tag set are equal; tag order never
// matters. IDs are immutable once an instrument is registered.
type ID struct {
	Name  string
	Group string
	tags  map[string]string
}

// NewID builds an ID, copying the tag map.
func NewID(name, group string, tags map[string]string) ID {
	id := ID{Name: name, Group: group}
	if len(tags) > 0 {
		id.tags = make(map[string]string, len(tags))
		for k, v := range tags {
			id.tags[k] = v
		}
	}
	return id
}

// Tags returns a copy of the tag set.
func (id ID) Tags() map[string]string {
	if len(id.tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(id.tags))
	for k, v := range id.tags {
		out[k] = v
	}
	return out
}

// Key returns the canonical registry key: group, name and sorted tags.
func (id ID) Key() string {
	var sb strings.Builder
	sb.WriteString(id.Group)
	sb.WriteByte('/')
	sb.WriteString(id.Name)
	if len(id.tags) > 0 {
		keys := make([]string, 0, len(id.tags))
		for k := range id.tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(id.tags[k])
		}
		sb.WriteByte('}')
	}
	return sb.String()
}

// MetaKind discriminates the closed set of metadata value kinds.
type MetaKind int

const (
	MetaString MetaKind = iota
	MetaNumber
	MetaBool
)

// MetaValue is a metadata annotation constrained to string, number or bool
// so the serialization boundary stays well-typed.
type MetaValue struct {
	Kind MetaKind `json:"kind"`
	Str  string   `json:"str,omitempty"`
	Num  float64  `json:"num,omitempty"`
	Bool bool     `json:"bool,omitempty"`
}

// MetaStr wraps a string annotation.
func MetaStr(s string) MetaValue { return MetaValue{Kind: MetaString, Str: s} }

// MetaNum wraps a numeric annotation.
func MetaNum(n float64) MetaValue { return MetaValue{Kind: MetaNumber, Num: n} }

// MetaFlag wraps a boolean annotation.
func MetaFlag(b bool) MetaValue { return MetaValue{Kind: MetaBool, Bool: b} }

// Metadata is the open string-keyed annotation bag carried by instruments.
type Metadata map[string]MetaValue
