package tui

import (
	"math"
	"slices"

	"github.com/johnwyles/ubootu-sub000/internal/menu"
)

// stepValue returns the raw input one step away from cur in direction dir.
// Text items have no step and return false.
func stepValue(kind menu.Kind, cur menu.Value, dir int) (any, bool) {
	switch k := kind.(type) {
	case menu.Slider:
		step := max(k.Step, 1)
		steps := (int(cur.Int())-k.Min)/step + dir
		steps = min(max(steps, 0), (k.Max-k.Min)/step)
		return k.Min + steps*step, true
	case menu.Spinner:
		step := k.Step
		if step <= 0 {
			step = 0.1
		}
		steps := math.Round((cur.Float()-k.Min)/step) + float64(dir)
		steps = math.Min(math.Max(steps, 0), math.Floor((k.Max-k.Min)/step+1e-9))
		return math.Round((k.Min+steps*step)*1e9) / 1e9, true
	case menu.Dropdown:
		return cycle(k.Options, cur.Str(), dir)
	case menu.Select:
		return cycle(k.Options, cur.Str(), dir)
	case menu.Toggle:
		return !cur.Bool(), true
	}
	return nil, false
}

func cycle(options []string, cur string, dir int) (any, bool) {
	if len(options) == 0 {
		return nil, false
	}
	i := slices.Index(options, cur)
	if i < 0 {
		return options[0], true
	}
	n := len(options)
	return options[((i+dir)%n+n)%n], true
}
