package entity

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

var ErrConversion = errors.New("field conversion failed")

// ConvertValue turns a raw tag value into the Go value stored for a field of type typ.
func ConvertValue(raw string, typ FieldType) (any, error) {
	switch typ {
	case TypeStr, "":
		return raw, nil
	case TypeInt:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q as int: %w", raw, ErrConversion)
		}
		return n, nil
	case TypeFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%q as float: %w", raw, ErrConversion)
		}
		return f, nil
	case TypeBool:
		switch raw {
		case "yes", "true":
			return true, nil
		case "no", "false":
			return false, nil
		}
		return nil, fmt.Errorf("%q as bool: %w", raw, ErrConversion)
	case TypeMeters:
		return withUnit(raw, "m")
	case TypeTons:
		return withUnit(raw, "t")
	}
	return nil, fmt.Errorf("unsupported field type %q: %w", typ, ErrConversion)
}

// withUnit accepts "3", "3.5" or "3.5 <unit>".
func withUnit(raw, unit string) (any, error) {
	parts := strings.Split(strings.TrimSpace(raw), " ")
	if len(parts) > 2 {
		return nil, fmt.Errorf("unit specification %q: %w", raw, ErrConversion)
	}
	f, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return nil, fmt.Errorf("magnitude of %q: %w", raw, ErrConversion)
	}
	if len(parts) == 2 && parts[1] != unit {
		return nil, fmt.Errorf("unit %q in %q: %w", parts[1], raw, ErrConversion)
	}
	return f, nil
}

// ConvertFields converts raw values using the field types the discriminator declares;
// undeclared fields are kept as strings and values that fail to convert are dropped.
func (t *Table) ConvertFields(discriminator string, raw map[string]string, log *slog.Logger) map[string]any {
	fields := t.AllFields(discriminator)
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		conv, err := ConvertValue(v, fields[k].Type)
		if err != nil {
			if log != nil {
				log.Warn("omitting property after conversion failure", "field", k, "discriminator", discriminator, "error", err)
			}
			continue
		}
		out[k] = conv
	}
	return out
}
