// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strconv"
	"strings"
)

// Map is a minimal in-memory [Tree], built directly from nested Go values:
// a section is a map[string]any, a list is a []string, and anything else is
// a scalar value. GetString returns only string scalars and GetInteger only
// int scalars or decimal strings; other scalars yield the default. It exists for tests and
// example daemons; production configuration-file parsing is out of scope
// (spec.md §1).
type Map map[string]any

var _ Tree = Map(nil)

// splitPath splits a colon-separated path into its segments, tolerating a
// leading colon (per spec.md §6, "an additional colon may be prepended to
// the whole path") and an empty or ":"-only path meaning the root.
func splitPath(path string) []string {
	path = strings.TrimPrefix(path, ":")
	if path == "" {
		return nil
	}
	return strings.Split(path, ":")
}

// resolve walks path through m, returning the node found (a Map, a
// []string, a scalar, or nil) and whether it was found at all.
func (m Map) resolve(path string) (any, bool) {
	segments := splitPath(path)
	var cur any = map[string]any(m)
	for _, seg := range segments {
		section, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = section[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString implements [Tree].
func (m Map) GetString(path string, def string) string {
	v, ok := m.resolve(path)
	if !ok {
		return def
	}
	s, ok := v.(string)
	if !ok {
		return def
	}
	return s
}

// GetInteger implements [Tree].
func (m Map) GetInteger(path string, def int) int {
	v, ok := m.resolve(path)
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

// GetStringList implements [Tree].
func (m Map) GetStringList(path string) []string {
	v, ok := m.resolve(path)
	if !ok {
		return nil
	}
	list, ok := v.([]string)
	if !ok {
		return nil
	}
	return list
}

// EnumerateSubkeys implements [Tree].
func (m Map) EnumerateSubkeys(path string) []string {
	v, ok := m.resolve(path)
	if !ok {
		return nil
	}
	section, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(section))
	for k := range section {
		keys = append(keys, k)
	}
	return keys
}

// HasSubkeys implements [Tree].
func (m Map) HasSubkeys(path string) bool {
	return len(m.EnumerateSubkeys(path)) > 0
}

// NodeType implements [Tree].
func (m Map) NodeType(path string) NodeType {
	v, ok := m.resolve(path)
	if !ok {
		return NodeNone
	}
	switch v.(type) {
	case map[string]any:
		return NodeSection
	case []string:
		return NodeList
	default:
		return NodeValue
	}
}
