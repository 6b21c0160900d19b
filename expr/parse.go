// Copyright 2020, Square, Inc.

// Package expr parses and evaluates property expressions embedded in job
// definition strings:
//
//   #{category['name']}
//   #{category['name']}?:default;
//   #{category['name']?:default}
//
// The default is itself an expression string, evaluated only when the
// reference misses. Text outside expressions is kept as is.
package expr

import (
	"fmt"
	"strings"
)

const (
	exprStart    = "#{"
	nameStart    = "['"
	nameEnd      = "']"
	exprEnd      = "}"
	defaultStart = "?:"
	defaultEnd   = ";"
)

// A Ref is one #{category['name']} expression.
type Ref struct {
	Category string
	Name     string
	Default  *string // raw default text, nil if no ?: clause
	Raw      string  // the whole expression as written, default clause included
}

// A Segment is literal text or a Ref. Malformed is set on literal text that
// started as an expression but could not be parsed; it is kept verbatim.
type Segment struct {
	Literal   string
	Ref       *Ref
	Malformed bool
}

// Template is a parsed string.
type Template struct {
	Segments []Segment
	Warnings []string // syntax problems, in order found
}

// HasRefs reports whether the template has at least one Ref.
func (t Template) HasRefs() bool {
	for _, s := range t.Segments {
		if s.Ref != nil {
			return true
		}
	}
	return false
}

// Parse parses s. It never fails: malformed expressions become literal text
// and a warning. If allowDefault is false, a ?: after an expression is not a
// default clause and stays literal text.
func Parse(s string, allowDefault bool) Template {
	p := &parser{s: s, allowDefault: allowDefault}
	p.parse()
	return Template{Segments: p.segments, Warnings: p.warnings}
}

type parser struct {
	s            string
	pos          int
	allowDefault bool
	segments     []Segment
	warnings     []string
}

func (p *parser) literal(s string, malformed bool) {
	if s == "" {
		return
	}
	// Merge adjacent plain literals
	if n := len(p.segments); n > 0 && !malformed {
		last := &p.segments[n-1]
		if last.Ref == nil && !last.Malformed {
			last.Literal += s
			return
		}
	}
	p.segments = append(p.segments, Segment{Literal: s, Malformed: malformed})
}

func (p *parser) warn(format string, args ...interface{}) {
	p.warnings = append(p.warnings, fmt.Sprintf(format, args...))
}

func (p *parser) parse() {
	for p.pos < len(p.s) {
		i := strings.Index(p.s[p.pos:], exprStart)
		if i < 0 {
			p.literal(p.s[p.pos:], false)
			return
		}
		p.literal(p.s[p.pos:p.pos+i], false)
		p.pos += i
		p.expression()
	}
}

// expression parses the expression at p.pos, which starts with #{.
func (p *parser) expression() {
	start := p.pos
	body := start + len(exprStart)

	closeAt := strings.Index(p.s[body:], exprEnd)
	if closeAt < 0 {
		p.warn("expression %q has no closing %s", p.s[start:], exprEnd)
		p.literal(p.s[start:], true)
		p.pos = len(p.s)
		return
	}

	// The closing } is the first one after the quoted name, so names may
	// contain }.
	category, name, def, end, ok := p.reference(body)
	if !ok {
		end = body + closeAt + len(exprEnd)
		p.warn("malformed expression %q, expected %scategory%sname%s%s", p.s[start:end], exprStart, nameStart, nameEnd, exprEnd)
		p.literal(p.s[start:end], true)
		p.pos = end
		return
	}

	ref := &Ref{Category: category, Name: name, Default: def}
	if def == nil && p.allowDefault && strings.HasPrefix(p.s[end:], defaultStart) {
		d := end + len(defaultStart)
		semi := strings.Index(p.s[d:], defaultEnd)
		var trailing string
		if semi < 0 {
			trailing = p.s[d:]
			end = len(p.s)
			p.warn("default value of expression %q has no closing %s", p.s[start:], defaultEnd)
		} else {
			trailing = p.s[d : d+semi]
			end = d + semi + len(defaultEnd)
		}
		ref.Default = &trailing
	}
	ref.Raw = p.s[start:end]
	p.segments = append(p.segments, Segment{Ref: ref})
	p.pos = end
}

// reference parses category['name']} or, if defaults are allowed,
// category['name']?:default} starting at i. An inline default runs to the }
// that balances the expression's #{, so it may hold expressions itself. It
// returns the index just past the closing }.
func (p *parser) reference(i int) (category, name string, def *string, end int, ok bool) {
	open := strings.Index(p.s[i:], nameStart)
	if open < 0 {
		return "", "", nil, 0, false
	}
	category = p.s[i : i+open]
	if !validCategory(category) {
		return "", "", nil, 0, false
	}
	n := i + open + len(nameStart)
	closing := strings.Index(p.s[n:], nameEnd+exprEnd)
	inline := -1
	if p.allowDefault {
		inline = strings.Index(p.s[n:], nameEnd+defaultStart)
	}
	if inline >= 0 && (closing < 0 || inline < closing) {
		name = p.s[n : n+inline]
		d := n + inline + len(nameEnd) + len(defaultStart)
		closeAt := matchingClose(p.s, d)
		if name == "" || closeAt < 0 {
			return "", "", nil, 0, false
		}
		v := p.s[d:closeAt]
		return category, name, &v, closeAt + len(exprEnd), true
	}
	if closing < 0 {
		return "", "", nil, 0, false
	}
	name = p.s[n : n+closing]
	if name == "" {
		return "", "", nil, 0, false
	}
	return category, name, nil, n + closing + len(nameEnd) + len(exprEnd), true
}

// matchingClose returns the index of the } at depth zero from i, counting
// each nested #{ as one level, or -1.
func matchingClose(s string, i int) int {
	depth := 0
	for i < len(s) {
		switch {
		case strings.HasPrefix(s[i:], exprStart):
			depth++
			i += len(exprStart)
			continue
		case s[i] == '}':
			if depth == 0 {
				return i
			}
			depth--
		}
		i++
	}
	return -1
}

func validCategory(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return false
		}
	}
	return true
}
