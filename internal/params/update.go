package params

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/exp/maps"
)

// Field selects which part of a parameter an Update changes.
type Field string

const (
	FieldEnabled Field = "enabled"
	FieldMin     Field = "min"
	FieldMax     Field = "max"
	FieldQuality Field = "quality"
)

// Update is one validated mutation of a Spec. It replaces untyped
// path-based edits: the parameter and field are checked against the schema
// before anything is written.
type Update struct {
	Param   string  `json:"param,omitempty"`
	Field   Field   `json:"field"`
	Enabled bool    `json:"enabled,omitempty"`
	Value   float64 `json:"value,omitempty"`
}

// SetEnabled builds an update toggling a ranged or boolean parameter.
func SetEnabled(param string, on bool) Update {
	return Update{Param: param, Field: FieldEnabled, Enabled: on}
}

// SetMin builds an update for a ranged parameter's lower bound.
func SetMin(param string, v float64) Update {
	return Update{Param: param, Field: FieldMin, Value: v}
}

// SetMax builds an update for a ranged parameter's upper bound.
func SetMax(param string, v float64) Update {
	return Update{Param: param, Field: FieldMax, Value: v}
}

// SetQuality builds an update for the videoQuality scalar.
func SetQuality(v int) Update {
	return Update{Field: FieldQuality, Value: float64(v)}
}

// Apply validates and applies a single update to the spec.
func (s *Spec) Apply(u Update) error {
	if u.Field == FieldQuality {
		q := int(u.Value)
		if q < 1 || q > 100 {
			return fmt.Errorf("videoQuality must be between 1 and 100, got %d", q)
		}
		s.VideoQuality = q
		return nil
	}

	if r, ok := s.ranges()[u.Param]; ok {
		switch u.Field {
		case FieldEnabled:
			r.Enabled = u.Enabled
		case FieldMin:
			r.Min = u.Value
		case FieldMax:
			r.Max = u.Value
		default:
			return fmt.Errorf("unknown field %q for parameter %q", u.Field, u.Param)
		}
		return nil
	}

	if t, ok := s.toggles()[u.Param]; ok {
		if u.Field != FieldEnabled {
			return fmt.Errorf("parameter %q only supports the enabled field", u.Param)
		}
		t.Enabled = u.Enabled
		return nil
	}

	return fmt.Errorf("unknown parameter %q (known: %s)", u.Param, strings.Join(s.ParamNames(), ", "))
}

// ParamNames lists every tunable parameter name in sorted order.
func (s *Spec) ParamNames() []string {
	names := maps.Keys(s.ranges())
	names = append(names, maps.Keys(s.toggles())...)
	sort.Strings(names)
	return names
}
