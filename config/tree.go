// SPDX-License-Identifier: GPL-3.0-or-later
//
// Adapted from: _examples/original_source/include/libnetworkd/Configuration.hpp
//

// Package config specifies the narrow configuration-tree interface spec.md
// §6 treats as an external collaborator: colon-separated value paths
// ("section:subsection:value") resolved against a tree of sections, values,
// and value lists. Parsing a configuration file's textual grammar is
// explicitly out of scope (spec.md §1); [Map] is a minimal in-memory
// implementation for tests and example daemons.
package config

// NodeType classifies what a path in a [Tree] resolves to.
type NodeType int

const (
	// NodeNone means the path does not exist.
	NodeNone NodeType = iota
	// NodeSection means the path is a section containing further subkeys.
	NodeSection
	// NodeValue means the path is a single scalar value.
	NodeValue
	// NodeList means the path is a list of values.
	NodeList
)

// Tree is the read-only configuration surface the core consumes, matching
// spec.md §6 exactly: get_string, get_integer, get_string_list,
// enumerate_subkeys, has_subkeys, node_type, all addressed by
// colon-separated paths.
type Tree interface {
	// GetString returns the string value at path, or def if absent.
	GetString(path string, def string) string
	// GetInteger returns the integer value at path, or def if absent or
	// not parseable as an integer.
	GetInteger(path string, def int) int
	// GetStringList returns the value list at path, or nil if absent.
	GetStringList(path string) []string
	// EnumerateSubkeys lists the immediate child names of the section at
	// path. An empty path or a lone ":" means the root section.
	EnumerateSubkeys(path string) []string
	// HasSubkeys reports whether the section or value at path has any
	// children.
	HasSubkeys(path string) bool
	// NodeType reports what kind of node path resolves to, or [NodeNone]
	// if it does not exist.
	NodeType(path string) NodeType
}
