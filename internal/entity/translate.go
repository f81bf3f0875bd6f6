package entity

import (
	"strings"
)

// Translation turns the tags of one kind of feature into that kind's fields.
type Translation struct {
	Discriminator string
	// Accepts lists tag keys; a feature carrying any of them is translated by this row.
	Accepts        []string
	Renames        map[string]string
	Unprefixes     []string
	Removes        []string
	RemovesSubtree []string
}

// Translated is the result of translating one feature.
type Translated struct {
	Discriminator string
	Fields        map[string]string
	Address       map[string]string
}

// Translator applies the first Translation whose accepted keys match.
type Translator struct {
	rows []Translation
}

func NewTranslator(rows ...Translation) *Translator {
	return &Translator{rows: rows}
}

func (t *Translator) Translate(tags map[string]string) (Translated, bool) {
	for _, row := range t.rows {
		if row.accepts(tags) {
			return row.apply(tags), true
		}
	}
	return Translated{}, false
}

func (r Translation) accepts(tags map[string]string) bool {
	for _, k := range r.Accepts {
		if _, ok := tags[k]; ok {
			return true
		}
	}
	return false
}

func (r Translation) apply(tags map[string]string) Translated {
	out := Translated{Discriminator: r.Discriminator, Fields: map[string]string{}, Address: map[string]string{}}
	for k, v := range tags {
		if rest, ok := strings.CutPrefix(k, "addr:"); ok {
			out.Address[rest] = v
			continue
		}
		if r.removed(k) {
			continue
		}
		out.Fields[k] = v
	}

	for from, to := range r.Renames {
		if v, ok := out.Fields[from]; ok {
			delete(out.Fields, from)
			out.Fields[to] = v
		}
	}
	for _, p := range r.Unprefixes {
		for k, v := range out.Fields {
			if rest, ok := strings.CutPrefix(k, p+":"); ok {
				delete(out.Fields, k)
				if _, taken := out.Fields[rest]; !taken {
					out.Fields[rest] = v
				}
			}
		}
	}
	return out
}

func (r Translation) removed(key string) bool {
	for _, k := range r.Removes {
		if k == key {
			return true
		}
	}
	for _, p := range r.RemovesSubtree {
		if key == p || strings.HasPrefix(key, p+":") {
			return true
		}
	}
	return false
}
