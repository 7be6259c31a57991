package store

import (
	"maps"
	"slices"
)

// Type names reported by TYPE and GET.
const (
	TypeString = "String"
	TypeList   = "VecStr"
	TypeHash   = "Hash"
)

// Value is the closed set of shapes a key can hold: Scalar, List or Map.
// The unexported method keeps other packages from adding variants, so a type
// switch over Scalar, List and Map is exhaustive.
type Value interface {
	// TypeName returns String, VecStr or Hash.
	TypeName() string
	clone() Value
}

// Scalar is a single string value.
type Scalar string

// List is an ordered sequence of strings.
type List []string

// Map is a string-to-string mapping with unique keys.
type Map map[string]string

func (Scalar) TypeName() string { return TypeString }
func (List) TypeName() string   { return TypeList }
func (Map) TypeName() string    { return TypeHash }

func (s Scalar) clone() Value { return s }
func (l List) clone() Value   { return slices.Clone(l) }
func (m Map) clone() Value    { return Map(maps.Clone(m)) }

// SortedKeys returns the map keys in ascending order.
func (m Map) SortedKeys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
