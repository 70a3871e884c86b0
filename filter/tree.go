// Copyright 2024 Adxquery. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package filter implements a recursive-descent parser and evaluator for
// an RFC 4515 subset of LDAP filter syntax: equality, presence, substring,
// and AND/OR/NOT, with hex escape sequences. Extended match rules
// (approximate, greater/less, extensible) are out of scope.
package filter

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
)

var foldCase = cases.Fold()

func casefold(s string) string {
	return foldCase.String(s)
}

// Entry is the subset of snapshot.Entry the evaluator needs. It is an
// interface so this package does not import snapshot directly, keeping the
// filter language independent of the storage format it happens to be
// evaluated against.
type Entry interface {
	// Values returns the decoded values for the named attribute, or an
	// error if the attribute is not present. Callers must treat any error
	// as "no values", never propagate it as a hard failure.
	Values(name string) (Values, error)
}

// Values is an ordered, multi-valued attribute value list. Its elements are
// one of string, uint32, int64, bool, or []byte, mirroring
// snapshot.AttributeValueList.
type Values []any

// PropertyResolver resolves an attribute name to its canonical schema name,
// used so the evaluator can report "attribute absent" consistently whether
// the name is unknown to the schema or merely unset on an entry.
type PropertyResolver interface {
	// Resolve returns the canonical on-disk name for attr and true, or
	// ("", false) if no such property exists in the schema.
	Resolve(attr string) (string, bool)
}

// EvalContext carries everything Evaluate needs: the schema resolver, the
// entry under test, and a reserved case-insensitivity flag.
type EvalContext struct {
	Schema PropertyResolver
	Entry  Entry

	// IgnoreCase is accepted but not observably consulted: string
	// comparisons are already case-folded unconditionally. Kept purely as
	// a future extension point.
	IgnoreCase bool
}

// Node is one arm of the filter tree. Tag-based dispatch via distinct
// struct types stands in for a closed enum; Go has none, but each arm
// here is a small struct with its own Evaluate, not a heavyweight class
// hierarchy.
type Node interface {
	Evaluate(ctx *EvalContext) bool
}

// AndNode is true iff every child is true. Constructed only with at least
// one child; an empty AND is a parse error, never a valid node.
type AndNode struct {
	Children []Node
}

func (n *AndNode) Evaluate(ctx *EvalContext) bool {
	for _, c := range n.Children {
		if !c.Evaluate(ctx) {
			return false
		}
	}
	return true
}

// OrNode is true iff at least one child is true. Constructed only with at
// least one child.
type OrNode struct {
	Children []Node
}

func (n *OrNode) Evaluate(ctx *EvalContext) bool {
	for _, c := range n.Children {
		if c.Evaluate(ctx) {
			return true
		}
	}
	return false
}

// NotNode inverts its single child.
type NotNode struct {
	Child Node
}

func (n *NotNode) Evaluate(ctx *EvalContext) bool {
	return !n.Child.Evaluate(ctx)
}

// PresenceNode is true iff Attr resolves in the schema and its value list
// on the entry is non-empty.
type PresenceNode struct {
	Attr string
}

func (n *PresenceNode) Evaluate(ctx *EvalContext) bool {
	name, ok := ctx.Schema.Resolve(n.Attr)
	if !ok {
		return false
	}
	values, err := ctx.Entry.Values(name)
	if err != nil {
		return false
	}
	return len(values) > 0
}

// EqualityNode is true iff Value, coerced against the type of the entry's
// sample (first) value, equals any value in the list.
type EqualityNode struct {
	Attr  string
	Value []byte
}

func (n *EqualityNode) Evaluate(ctx *EvalContext) bool {
	name, ok := ctx.Schema.Resolve(n.Attr)
	if !ok {
		return false
	}
	values, err := ctx.Entry.Values(name)
	if err != nil {
		return false
	}

	needle, ok := prepareEqualityValue(values, n.Value)
	if !ok {
		return false
	}

	for _, candidate := range values {
		if compareEquality(candidate, needle) {
			return true
		}
	}
	return false
}

// prepareEqualityValue coerces the raw filter literal against the type of
// the sample (first) value in the attribute's value list: bool, then int,
// then raw bytes, falling back to a case-folded string.
func prepareEqualityValue(values Values, raw []byte) (any, bool) {
	var sample any
	if len(values) > 0 {
		sample = values[0]
	}

	switch sample.(type) {
	case bool:
		switch strings.ToLower(string(raw)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		default:
			return nil, false
		}

	case uint32, int64:
		n, err := strconv.ParseInt(string(raw), 0, 64)
		if err != nil {
			return nil, false
		}
		return n, true

	case []byte:
		return raw, true

	default:
		return casefold(string(raw)), true
	}
}

// compareEquality compares one decoded attribute value against the value
// prepared by prepareEqualityValue, falling back to a case-folded string
// comparison (with RDN-value extraction) for anything not already matched
// by an exact typed comparison.
func compareEquality(value, needle any) bool {
	switch v := value.(type) {
	case bool:
		if b, ok := needle.(bool); ok {
			return v == b
		}
		return false

	case uint32:
		if i, ok := needle.(int64); ok {
			return int64(v) == i
		}
		return false

	case int64:
		if i, ok := needle.(int64); ok {
			return v == i
		}
		return false

	case []byte:
		if b, ok := needle.([]byte); ok {
			return string(v) == string(b)
		}
		return false
	}

	needleStr, ok := needle.(string)
	if !ok {
		return false
	}

	valueStr := toDisplayString(value)
	if casefold(valueStr) == needleStr {
		return true
	}

	if rdn, ok := extractRDNValue(valueStr); ok {
		return casefold(rdn) == needleStr
	}
	return false
}

func toDisplayString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case []byte:
		return string(val)
	default:
		return strconv.FormatInt(toInt64(v), 10)
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case uint32:
		return int64(n)
	case int64:
		return n
	default:
		return 0
	}
}

// extractRDNValue pulls the value portion of a DN's leading RDN, e.g.
// "alice" from "CN=alice,OU=People,DC=x".
func extractRDNValue(dn string) (string, bool) {
	if !strings.Contains(dn, "=") {
		return "", false
	}
	first, _, _ := strings.Cut(dn, ",")
	attr, value, found := strings.Cut(first, "=")
	if !found || attr == "" {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// SubstringNode is true iff any string-presented value in the entry
// matches Pattern.
type SubstringNode struct {
	Attr    string
	Pattern SubstringPattern
}

func (n *SubstringNode) Evaluate(ctx *EvalContext) bool {
	name, ok := ctx.Schema.Resolve(n.Attr)
	if !ok {
		return false
	}
	values, err := ctx.Entry.Values(name)
	if err != nil || len(values) == 0 {
		return false
	}

	for _, value := range values {
		candidate := casefold(toDisplayString(value))
		if n.Pattern.Matches(candidate) {
			return true
		}
	}
	return false
}

// Matches reports whether candidate (already case-folded) satisfies the
// pattern: an optional leading anchor, an in-order scan for each interior
// fragment, and an optional trailing anchor. candidate is expected to be
// case-folded by the caller; the pattern's anchors and fragments are
// case-folded here.
func (p SubstringPattern) Matches(candidate string) bool {
	pos := 0
	if p.Initial != nil {
		initial := casefold(*p.Initial)
		if !strings.HasPrefix(candidate, initial) {
			return false
		}
		pos = len(initial)
	}

	for _, fragment := range p.Any {
		frag := casefold(fragment)
		idx := strings.Index(candidate[pos:], frag)
		if idx == -1 {
			return false
		}
		pos += idx + len(frag)
	}

	if p.Final != nil {
		return strings.HasSuffix(candidate, casefold(*p.Final))
	}
	return true
}

// SubstringPattern is an initial anchor, an ordered list of interior
// fragments, and a final anchor, any of which may be absent. A value of a
// single "*" is parsed as a PresenceNode instead; a value made only of
// several stars, such as (cn=**), yields a pattern with all three absent,
// which matches any attribute that has at least one value.
type SubstringPattern struct {
	Initial *string
	Any     []string
	Final   *string
}
