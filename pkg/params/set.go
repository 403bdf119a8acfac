package params

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
)

// Kind tags one indicator kind. It is the first byte of the binary encoding.
type Kind uint8

// Role is the capability an indicator contributes to a strategy
type Role uint8

const (
	RoleTrend Role = iota + 1
	RoleVolume
	RoleRiskManagement
)

func (r Role) String() string {
	switch r {
	case RoleTrend:
		return "trend"
	case RoleVolume:
		return "volume"
	case RoleRiskManagement:
		return "risk"
	default:
		return "unknown"
	}
}

// ParseRole accepts "trend", "volume", "risk" and "risk_management"
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trend":
		return RoleTrend, nil
	case "volume":
		return RoleVolume, nil
	case "risk", "risk_management", "riskmanagement":
		return RoleRiskManagement, nil
	}
	return 0, fmt.Errorf("unknown indicator role %q", s)
}

// ParameterSet is the named, typed bundle of fields for one indicator.
// Identity is the kind plus the field values; the instance name is a label only.
type ParameterSet struct {
	kind     Kind
	kindName string
	name     string
	fields   []Field
}

// Kind returns the indicator kind tag
func (p *ParameterSet) Kind() Kind {
	return p.kind
}

// KindName returns the registered name of the indicator kind
func (p *ParameterSet) KindName() string {
	return p.kindName
}

// Name returns the instance name
func (p *ParameterSet) Name() string {
	return p.name
}

// SetName renames the instance
func (p *ParameterSet) SetName(name string) {
	p.name = name
}

// Describe returns a copy of the fields for introspection
func (p *ParameterSet) Describe() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Len returns the number of fields
func (p *ParameterSet) Len() int {
	return len(p.fields)
}

// FieldAt returns the i-th field
func (p *ParameterSet) FieldAt(i int) Field {
	return p.fields[i]
}

func (p *ParameterSet) index(name string) int {
	for i := range p.fields {
		if p.fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Set assigns a field by name after range validation
func (p *ParameterSet) Set(name string, v float64) error {
	i := p.index(name)
	if i < 0 {
		return fmt.Errorf("%s: unknown field %q", p.kindName, name)
	}
	return p.SetAt(i, v)
}

// SetAt assigns the i-th field after range validation
func (p *ParameterSet) SetAt(i int, v float64) error {
	if i < 0 || i >= len(p.fields) {
		return fmt.Errorf("%s: field index %d out of range", p.kindName, i)
	}
	if err := p.fields[i].Validate(v); err != nil {
		return fmt.Errorf("%s: %w", p.kindName, err)
	}
	p.fields[i].Value = v
	return nil
}

// SetRange narrows or widens a field's search range. The current value is snapped into the new range.
func (p *ParameterSet) SetRange(name string, min, max, step float64) error {
	i := p.index(name)
	if i < 0 {
		return fmt.Errorf("%s: unknown field %q", p.kindName, name)
	}
	f := p.fields[i]
	f.Min, f.Max, f.Step = min, max, step
	if f.Type == FieldBool {
		f.Min, f.Max, f.Step = math.Max(0, min), math.Min(1, max), 1
	}
	f.Value = f.Snap(f.Value)
	if err := f.validateBounds(); err != nil {
		return fmt.Errorf("%s: %w", p.kindName, err)
	}
	p.fields[i] = f
	return nil
}

// Int returns an integer field's value, 0 when the field does not exist
func (p *ParameterSet) Int(name string) int {
	if i := p.index(name); i >= 0 {
		return int(p.fields[i].Value)
	}
	return 0
}

// Float returns a field's value, 0 when the field does not exist
func (p *ParameterSet) Float(name string) float64 {
	if i := p.index(name); i >= 0 {
		return p.fields[i].Value
	}
	return 0
}

// Bool returns a boolean field's value, false when the field does not exist
func (p *ParameterSet) Bool(name string) bool {
	if i := p.index(name); i >= 0 {
		return p.fields[i].Bool()
	}
	return false
}

// Clone returns a deep copy
func (p *ParameterSet) Clone() *ParameterSet {
	fields := make([]Field, len(p.fields))
	copy(fields, p.fields)
	return &ParameterSet{
		kind:     p.kind,
		kindName: p.kindName,
		name:     p.name,
		fields:   fields,
	}
}

// Equal reports same kind and identical field values. No epsilon.
func (p *ParameterSet) Equal(other *ParameterSet) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.kind != other.kind || len(p.fields) != len(other.fields) {
		return false
	}
	for i := range p.fields {
		if p.fields[i].Value != other.fields[i].Value {
			return false
		}
	}
	return true
}

// Reset moves every field to its minimum
func (p *ParameterSet) Reset() {
	for i := range p.fields {
		p.fields[i].Value = p.fields[i].Min
	}
}

// IncrementSingle advances to the next grid point with mixed-radix carry, field 0 being the
// least significant digit. It returns false once the last grid point has been passed,
// leaving every field back at its minimum.
func (p *ParameterSet) IncrementSingle() bool {
	for i := range p.fields {
		if !incrementField(&p.fields[i]) {
			return true
		}
	}
	return false
}

// incrementField steps one field and reports whether it overflowed and reset to Min
func incrementField(f *Field) bool {
	next := f.GridIndex() + 1
	if next < f.GridPoints() {
		f.Value = f.GridValue(next)
		return false
	}
	f.Value = f.Min
	return true
}

// PermutationCount returns the number of grid points of the set, saturating at math.MaxUint64
func (p *ParameterSet) PermutationCount() uint64 {
	total := uint64(1)
	for _, f := range p.fields {
		total = saturatingMul(total, uint64(f.GridPoints()))
	}
	return total
}

// RandomSample draws every field independently and uniformly among its grid points
func (p *ParameterSet) RandomSample(rng *rand.Rand) {
	for i := range p.fields {
		f := &p.fields[i]
		f.Value = f.GridValue(rng.Intn(f.GridPoints()))
	}
}

// Perturb nudges numeric fields by a random delta of at most intensity*(max-min), snapped to the
// grid and clamped. A non-zero delta moves at least one grid step. Boolean fields flip with
// probability intensity*0.3.
func (p *ParameterSet) Perturb(intensity float64, rng *rand.Rand) {
	intensity = clampUnit(intensity)
	for i := range p.fields {
		perturbField(&p.fields[i], intensity, rng)
	}
}

func perturbField(f *Field, intensity float64, rng *rand.Rand) {
	if f.Type == FieldBool {
		if rng.Float64() < intensity*0.3 {
			f.Value = 1 - f.Value
		}
		return
	}
	span := f.Max - f.Min
	if span <= 0 {
		return
	}
	delta := (rng.Float64()*2 - 1) * intensity * span
	next := f.Snap(f.Value + delta)
	if next == f.Value && delta != 0 {
		// a delta smaller than half a step still moves one grid point
		idx := f.GridIndex()
		if delta > 0 && idx < f.GridPoints()-1 {
			next = f.GridValue(idx + 1)
		} else if delta < 0 && idx > 0 {
			next = f.GridValue(idx - 1)
		}
	}
	f.Value = next
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if a > math.MaxUint64/b {
		return math.MaxUint64
	}
	return a * b
}
