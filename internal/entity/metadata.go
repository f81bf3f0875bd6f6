// Package entity describes what each kind of stored feature carries. A feature is whatever
// fields its discriminator (and the discriminator's ancestors) declare in a Table.
package entity

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownDiscriminator = errors.New("unknown discriminator")

type FieldType string

const (
	TypeStr    FieldType = "str"
	TypeInt    FieldType = "int"
	TypeFloat  FieldType = "float"
	TypeBool   FieldType = "bool"
	TypeMeters FieldType = "meters"
	TypeTons   FieldType = "tons"
)

type Field struct {
	Type     FieldType
	Required bool
}

// Metadata is one row of the field-set table.
type Metadata struct {
	Discriminator string
	Parent        string
	Fields        map[string]Field
	// Width marks kinds whose "width" field is a physical width in metres.
	Width bool
}

type Table struct {
	rows     map[string]*Metadata
	children map[string][]string
}

// NewTable indexes rows and checks that every parent exists and no parent chain loops.
func NewTable(rows ...Metadata) (*Table, error) {
	t := &Table{rows: make(map[string]*Metadata, len(rows)), children: map[string][]string{}}
	for i := range rows {
		m := rows[i]
		if m.Discriminator == "" {
			return nil, fmt.Errorf("row %d: empty discriminator", i)
		}
		if _, dup := t.rows[m.Discriminator]; dup {
			return nil, fmt.Errorf("duplicate discriminator %q", m.Discriminator)
		}
		t.rows[m.Discriminator] = &m
	}
	for name, m := range t.rows {
		if m.Parent == "" {
			continue
		}
		if _, ok := t.rows[m.Parent]; !ok {
			return nil, fmt.Errorf("%s: parent %q: %w", name, m.Parent, ErrUnknownDiscriminator)
		}
		t.children[m.Parent] = append(t.children[m.Parent], name)
	}
	for name := range t.rows {
		seen := map[string]bool{}
		for cur := name; cur != ""; cur = t.rows[cur].Parent {
			if seen[cur] {
				return nil, fmt.Errorf("%s: parent cycle through %q", name, cur)
			}
			seen[cur] = true
		}
	}
	for _, c := range t.children {
		sort.Strings(c)
	}
	return t, nil
}

func (t *Table) Lookup(discriminator string) (*Metadata, bool) {
	m, ok := t.rows[discriminator]
	return m, ok
}

// Discriminators lists every known kind, sorted.
func (t *Table) Discriminators() []string {
	out := make([]string, 0, len(t.rows))
	for k := range t.rows {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Ancestors returns discriminator followed by its parents up to the root.
func (t *Table) Ancestors(discriminator string) []string {
	var out []string
	for m, ok := t.rows[discriminator]; ok; m, ok = t.rows[m.Parent] {
		out = append(out, m.Discriminator)
	}
	return out
}

// Descendants returns discriminator and every kind derived from it, depth first.
func (t *Table) Descendants(discriminator string) []string {
	if _, ok := t.rows[discriminator]; !ok {
		return nil
	}
	out := []string{discriminator}
	for _, c := range t.children[discriminator] {
		out = append(out, t.Descendants(c)...)
	}
	return out
}

// AllFields merges the fields of discriminator and its ancestors; nearer declarations win.
func (t *Table) AllFields(discriminator string) map[string]Field {
	out := map[string]Field{}
	anc := t.Ancestors(discriminator)
	for i := len(anc) - 1; i >= 0; i-- {
		for k, f := range t.rows[anc[i]].Fields {
			out[k] = f
		}
	}
	return out
}

func (t *Table) SupportsWidth(discriminator string) bool {
	for _, d := range t.Ancestors(discriminator) {
		if t.rows[d].Width {
			return true
		}
	}
	return false
}

// EffectiveWidth is the converted width in metres for kinds that declare one, else 0.
func (t *Table) EffectiveWidth(discriminator string, data map[string]any) float64 {
	if !t.SupportsWidth(discriminator) {
		return 0
	}
	switch w := data["width"].(type) {
	case float64:
		return max(w, 0)
	case int64:
		return max(float64(w), 0)
	}
	return 0
}
