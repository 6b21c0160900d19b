// Copyright 2020, Square, Inc.

package jsl

type Property struct {
	Name  string
	Value string
}

// Properties is an ordered set of name-value pairs. Names are unique; Set
// replaces an existing value in place. Merge (default true) controls whether
// a parent's properties are inherited. Partition tags the per-partition
// properties of a partition plan.
type Properties struct {
	Partition string
	Merge     *bool
	Entries   []Property
}

// NewProperties makes Properties from name-value pairs: name1, value1,
// name2, value2... A trailing name without a value gets "".
func NewProperties(kv ...string) *Properties {
	p := &Properties{Entries: []Property{}}
	for i := 0; i < len(kv); i += 2 {
		v := ""
		if i+1 < len(kv) {
			v = kv[i+1]
		}
		p.Set(kv[i], v)
	}
	return p
}

func (p *Properties) ShouldMerge() bool {
	return p.Merge == nil || *p.Merge
}

func (p *Properties) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Entries)
}

func (p *Properties) Get(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, e := range p.Entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// Set sets name to value. An existing entry keeps its position.
func (p *Properties) Set(name, value string) {
	for i := range p.Entries {
		if p.Entries[i].Name == name {
			p.Entries[i].Value = value
			return
		}
	}
	p.Entries = append(p.Entries, Property{Name: name, Value: value})
}

func (p *Properties) Names() []string {
	if p == nil {
		return nil
	}
	names := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		names[i] = e.Name
	}
	return names
}

func (p *Properties) Clone() *Properties {
	if p == nil {
		return nil
	}
	c := &Properties{
		Partition: p.Partition,
		Merge:     cloneBool(p.Merge),
	}
	if p.Entries != nil {
		c.Entries = make([]Property, len(p.Entries))
		copy(c.Entries, p.Entries)
	}
	return c
}
