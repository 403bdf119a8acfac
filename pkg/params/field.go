package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// gridEpsilon absorbs float noise when counting grid points, e.g. (0.95-0.5)/0.05 = 8.999999999999998
const gridEpsilon = 1e-9

// FieldType is the numeric type of a parameter field. It also fixes the encoded width.
type FieldType uint8

const (
	FieldInt FieldType = iota + 1
	FieldFloat
	FieldBool
)

func (t FieldType) String() string {
	switch t {
	case FieldInt:
		return "int"
	case FieldFloat:
		return "float"
	case FieldBool:
		return "bool"
	default:
		return "unknown"
	}
}

// EncodedWidth returns the number of payload bytes used for one value of this type
func (t FieldType) EncodedWidth() int {
	switch t {
	case FieldFloat:
		return 8
	case FieldInt, FieldBool:
		return 4
	default:
		return 0
	}
}

// Field is one bounded, steppable parameter. Value always stays in [Min, Max].
type Field struct {
	Name  string
	Type  FieldType
	Value float64
	Min   float64
	Max   float64
	Step  float64
}

// IntField declares an integer field
func IntField(name string, value, min, max, step int) Field {
	return Field{Name: name, Type: FieldInt, Value: float64(value), Min: float64(min), Max: float64(max), Step: float64(step)}
}

// FloatField declares a floating-point field
func FloatField(name string, value, min, max, step float64) Field {
	return Field{Name: name, Type: FieldFloat, Value: value, Min: min, Max: max, Step: step}
}

// BoolField declares a boolean field with the two grid points {0, 1}
func BoolField(name string, value bool) Field {
	v := 0.0
	if value {
		v = 1
	}
	return Field{Name: name, Type: FieldBool, Value: v, Min: 0, Max: 1, Step: 1}
}

// GridPoints returns the number of values reachable by stepping from Min to Max
func (f Field) GridPoints() int {
	if f.Step <= 0 || f.Max <= f.Min {
		return 1
	}
	return int(math.Floor((f.Max-f.Min)/f.Step+gridEpsilon)) + 1
}

// GridValue returns the i-th grid point, clamped to Max. Float points are rounded to the
// decimals of Min and Step so that 0.5 + 7*0.05 is exactly 0.85.
func (f Field) GridValue(i int) float64 {
	if i <= 0 {
		return f.Min
	}
	v := f.Min + float64(i)*f.Step
	if f.Type != FieldFloat {
		v = math.Round(v)
	} else if d := max(decimals(f.Min), decimals(f.Step)); d <= maxGridDecimals {
		scale := math.Pow10(d)
		v = math.Round(v*scale) / scale
	}
	if v > f.Max {
		v = f.Max
	}
	return v
}

// maxGridDecimals bounds grid rounding; steps finer than this are left unrounded
const maxGridDecimals = 12

// decimals returns the number of fractional digits in the shortest representation of v
func decimals(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

// GridIndex returns the index of the grid point nearest to the current value
func (f Field) GridIndex() int {
	return f.nearestIndex(f.Value)
}

func (f Field) nearestIndex(v float64) int {
	if f.Step <= 0 {
		return 0
	}
	idx := int(math.Round((v - f.Min) / f.Step))
	if idx < 0 {
		return 0
	}
	if last := f.GridPoints() - 1; idx > last {
		return last
	}
	return idx
}

// Snap clamps v to the field's range and moves it onto the nearest grid point
func (f Field) Snap(v float64) float64 {
	if math.IsNaN(v) {
		return f.Value
	}
	if v < f.Min {
		v = f.Min
	}
	if v > f.Max {
		v = f.Max
	}
	return f.GridValue(f.nearestIndex(v))
}

// Bool returns the value of a boolean field
func (f Field) Bool() bool {
	return f.Value >= 0.5
}

// Validate checks that v is an acceptable value for the field
func (f Field) Validate(v float64) error {
	if err := f.validateType(v); err != nil {
		return err
	}
	if v < f.Min || v > f.Max {
		return fmt.Errorf("field %s: value %v outside range [%v, %v]", f.Name, v, f.Min, f.Max)
	}
	return nil
}

// admit stores a decoded value. Only the type is checked; a value outside the declared
// range widens the range to include it.
func (f *Field) admit(v float64) error {
	if err := f.validateType(v); err != nil {
		return err
	}
	f.Min = math.Min(f.Min, v)
	f.Max = math.Max(f.Max, v)
	f.Value = v
	return nil
}

// validateType checks that v is finite and fits the field type
func (f Field) validateType(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("field %s: value %v is not finite", f.Name, v)
	}
	switch f.Type {
	case FieldInt:
		if v != math.Trunc(v) {
			return fmt.Errorf("field %s: value %v is not an integer", f.Name, v)
		}
	case FieldBool:
		if v != 0 && v != 1 {
			return fmt.Errorf("field %s: value %v is not a boolean", f.Name, v)
		}
	}
	return nil
}

// validateBounds checks the field declaration itself
func (f Field) validateBounds() error {
	if f.Name == "" {
		return fmt.Errorf("field name must not be empty")
	}
	if f.Type.EncodedWidth() == 0 {
		return fmt.Errorf("field %s: unknown type %d", f.Name, f.Type)
	}
	if math.IsNaN(f.Min) || math.IsNaN(f.Max) || f.Min > f.Max {
		return fmt.Errorf("field %s: invalid range [%v, %v]", f.Name, f.Min, f.Max)
	}
	if f.Step <= 0 && f.Max > f.Min {
		return fmt.Errorf("field %s: step must be positive, got %v", f.Name, f.Step)
	}
	if f.Type == FieldInt && (f.Min != math.Trunc(f.Min) || f.Max != math.Trunc(f.Max) || f.Step != math.Trunc(f.Step)) {
		return fmt.Errorf("field %s: integer field needs integral bounds and step", f.Name)
	}
	if f.Type == FieldInt && (f.Min < math.MinInt32 || f.Max > math.MaxInt32) {
		return fmt.Errorf("field %s: integer range exceeds 32 bits", f.Name)
	}
	return f.Validate(f.Value)
}
