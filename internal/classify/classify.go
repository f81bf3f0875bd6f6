// Package classify decides from a declarative rule table whether a tagged way is stored as an
// area or as a line.
package classify

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrUnclassifiableRule marks a rule whose disposition is not all, whitelist or blacklist.
var ErrUnclassifiableRule = errors.New("unknown polygon disposition")

//go:embed polygon_features.json
var defaultRules []byte

// Shape is how a closed way should be drawn.
type Shape int

const (
	Line Shape = iota
	Polygon
)

func (s Shape) String() string {
	if s == Polygon {
		return "polygon"
	}
	return "line"
}

// Disposition says how a rule treats the values listed for its key.
type Disposition int

const (
	Always Disposition = iota
	Whitelist
	Blacklist
)

func (d Disposition) String() string {
	switch d {
	case Always:
		return "all"
	case Whitelist:
		return "whitelist"
	case Blacklist:
		return "blacklist"
	}
	return fmt.Sprintf("Disposition(%d)", int(d))
}

func parseDisposition(s string) (Disposition, error) {
	switch strings.TrimSpace(s) {
	case "all", "always":
		return Always, nil
	case "whitelist":
		return Whitelist, nil
	case "blacklist":
		return Blacklist, nil
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnclassifiableRule)
}

// Rule maps one tag key to a polygon decision. Values is nil for Always rules.
type Rule struct {
	Key         string
	Disposition Disposition
	Values      map[string]struct{}
}

type wireRule struct {
	Key     string   `json:"key"`
	Polygon string   `json:"polygon"`
	Values  []string `json:"values,omitempty"`
}

// LoadRules decodes a rule table. Any unknown disposition fails the whole table.
func LoadRules(r io.Reader) ([]Rule, error) {
	var wire []wireRule
	if err := json.NewDecoder(r).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode polygon rules: %w", err)
	}
	rules := make([]Rule, 0, len(wire))
	for i, w := range wire {
		if strings.TrimSpace(w.Key) == "" {
			return nil, fmt.Errorf("rule %d: missing key", i)
		}
		d, err := parseDisposition(w.Polygon)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, w.Key, err)
		}
		rule := Rule{Key: w.Key, Disposition: d}
		if d != Always {
			rule.Values = make(map[string]struct{}, len(w.Values))
			for _, v := range w.Values {
				rule.Values[v] = struct{}{}
			}
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Classifier decides between Line and Polygon from an ordered rule table.
type Classifier struct {
	rules []Rule
}

// New keeps rules in the given order; the first matching key wins.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns a classifier over the embedded rule table.
func Default() (*Classifier, error) {
	rules, err := LoadRules(bytes.NewReader(defaultRules))
	if err != nil {
		return nil, err
	}
	return New(rules), nil
}

// FromFile loads the table at path, or the embedded table when path is empty.
func FromFile(path string) (*Classifier, error) {
	if path == "" {
		return Default()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polygon rules: %w", err)
	}
	defer f.Close()
	rules, err := LoadRules(f)
	if err != nil {
		return nil, err
	}
	return New(rules), nil
}

// Rules returns the table in evaluation order. Callers must not modify it.
func (c *Classifier) Rules() []Rule { return c.rules }

// Classify returns the shape required by the first rule whose key is present in tags.
// Later rules are never consulted once a key matched.
func (c *Classifier) Classify(tags map[string]string) Shape {
	for _, rule := range c.rules {
		v, ok := tags[rule.Key]
		if !ok {
			continue
		}
		_, listed := rule.Values[v]
		switch rule.Disposition {
		case Always:
			return Polygon
		case Whitelist:
			if listed {
				return Polygon
			}
			return Line
		case Blacklist:
			if listed {
				return Line
			}
			return Polygon
		}
	}
	return Line
}
