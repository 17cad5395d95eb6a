package menu

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind describes how a configurable leaf is edited and which values it
// accepts. The set of kinds is closed: Slider, Spinner, Dropdown, Select,
// Toggle and Text.
type Kind interface {
	// Name is the catalog tag for the kind ("slider", "dropdown", ...).
	Name() string
	// Coerce converts raw input (from a file or the CLI) into a Value,
	// returning a *ValidationError when it is out of range or not allowed.
	Coerce(id string, raw any) (Value, error)

	isKind()
}

// Slider is an integer range with a step, e.g. swappiness 0..100 by 10.
type Slider struct {
	Min, Max, Step int
	Unit           string
}

// Spinner is a float range with a step, e.g. a scaling factor 0.5..3.0 by 0.25.
type Spinner struct {
	Min, Max, Step float64
}

// Dropdown picks one of a fixed option list.
type Dropdown struct {
	Options []string
}

// Select picks one of a fixed option list rendered inline.
type Select struct {
	Options []string
}

// Toggle is an on/off switch.
type Toggle struct{}

// Text is free-form text, optionally bounded and pattern-checked.
type Text struct {
	MaxLength int
	Pattern   string
}

func (Slider) isKind()   {}
func (Spinner) isKind()  {}
func (Dropdown) isKind() {}
func (Select) isKind()   {}
func (Toggle) isKind()   {}
func (Text) isKind()     {}

func (Slider) Name() string   { return "slider" }
func (Spinner) Name() string  { return "spinner" }
func (Dropdown) Name() string { return "dropdown" }
func (Select) Name() string   { return "select" }
func (Toggle) Name() string   { return "toggle" }
func (Text) Name() string     { return "text" }

// ValidationError rejects a configurable value at the input boundary.
type ValidationError struct {
	ID     string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for %s: %s", e.Value, e.ID, e.Reason)
}

func invalid(id string, raw any, format string, args ...any) *ValidationError {
	return &ValidationError{ID: id, Value: raw, Reason: fmt.Sprintf(format, args...)}
}

func (k Slider) Coerce(id string, raw any) (Value, error) {
	n, ok := rawNumber(raw)
	if !ok {
		return Value{}, invalid(id, raw, "expected an integer")
	}
	if n != math.Trunc(n) {
		return Value{}, invalid(id, raw, "expected an integer")
	}
	v := int(n)
	if v < k.Min || v > k.Max {
		return Value{}, invalid(id, raw, "must be between %d and %d", k.Min, k.Max)
	}
	if k.Step > 0 && (v-k.Min)%k.Step != 0 {
		return Value{}, invalid(id, raw, "must be a multiple of %d from %d", k.Step, k.Min)
	}
	return IntValue(int64(v)), nil
}

func (k Spinner) Coerce(id string, raw any) (Value, error) {
	n, ok := rawNumber(raw)
	if !ok || math.IsNaN(n) {
		return Value{}, invalid(id, raw, "expected a number")
	}
	if n < k.Min || n > k.Max {
		return Value{}, invalid(id, raw, "must be between %g and %g", k.Min, k.Max)
	}
	if k.Step > 0 {
		steps := (n - k.Min) / k.Step
		if math.Abs(steps-math.Round(steps)) > 1e-9 {
			return Value{}, invalid(id, raw, "must be a multiple of %g from %g", k.Step, k.Min)
		}
	}
	return FloatValue(n), nil
}

func coerceOption(id string, raw any, options []string) (Value, error) {
	s, ok := rawString(raw)
	if !ok {
		return Value{}, invalid(id, raw, "expected one of %s", strings.Join(options, ", "))
	}
	if !slices.Contains(options, s) {
		return Value{}, invalid(id, raw, "expected one of %s", strings.Join(options, ", "))
	}
	return EnumValue(s), nil
}

func (k Dropdown) Coerce(id string, raw any) (Value, error) {
	return coerceOption(id, raw, k.Options)
}

func (k Select) Coerce(id string, raw any) (Value, error) {
	return coerceOption(id, raw, k.Options)
}

func (Toggle) Coerce(id string, raw any) (Value, error) {
	switch b := raw.(type) {
	case bool:
		return BoolValue(b), nil
	case string:
		v, err := strconv.ParseBool(strings.TrimSpace(b))
		if err != nil {
			return Value{}, invalid(id, raw, "expected true or false")
		}
		return BoolValue(v), nil
	default:
		return Value{}, invalid(id, raw, "expected true or false")
	}
}

func (k Text) Coerce(id string, raw any) (Value, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case int, int64, float64, bool:
		s = fmt.Sprint(v)
	default:
		return Value{}, invalid(id, raw, "expected text")
	}
	if k.MaxLength > 0 && utf8.RuneCountInString(s) > k.MaxLength {
		return Value{}, invalid(id, raw, "longer than %d characters", k.MaxLength)
	}
	if k.Pattern != "" {
		re, err := regexp.Compile(k.Pattern)
		if err != nil {
			return Value{}, invalid(id, raw, "bad pattern %q", k.Pattern)
		}
		if !re.MatchString(s) {
			return Value{}, invalid(id, raw, "does not match %s", k.Pattern)
		}
	}
	return StringValue(s), nil
}
