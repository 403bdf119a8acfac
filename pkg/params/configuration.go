package params

import (
	"encoding/binary"
	"math/rand"
)

// Entry is one indicator in a strategy configuration together with its role
type Entry struct {
	Role Role
	Set  *ParameterSet
}

// Configuration is the ordered list of indicator parameter sets that makes up one candidate.
// The first field of the first entry is the least significant digit for IncrementSingle.
type Configuration struct {
	entries []Entry
}

// NewConfiguration creates a configuration from entries. The sets are used as-is, not copied.
func NewConfiguration(entries ...Entry) *Configuration {
	c := &Configuration{entries: make([]Entry, 0, len(entries))}
	c.entries = append(c.entries, entries...)
	return c
}

// Add appends an indicator
func (c *Configuration) Add(role Role, set *ParameterSet) {
	c.entries = append(c.entries, Entry{Role: role, Set: set})
}

// Entries returns the entries; the parameter sets are shared and must be treated as read-only
func (c *Configuration) Entries() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of indicators
func (c *Configuration) Len() int {
	return len(c.entries)
}

// Clone deep-copies every parameter set
func (c *Configuration) Clone() *Configuration {
	out := &Configuration{entries: make([]Entry, len(c.entries))}
	for i, e := range c.entries {
		out.entries[i] = Entry{Role: e.Role, Set: e.Set.Clone()}
	}
	return out
}

// Equal reports identical roles, kinds and field values
func (c *Configuration) Equal(other *Configuration) bool {
	if c == nil || other == nil {
		return c == other
	}
	if len(c.entries) != len(other.entries) {
		return false
	}
	for i := range c.entries {
		if c.entries[i].Role != other.entries[i].Role || !c.entries[i].Set.Equal(other.entries[i].Set) {
			return false
		}
	}
	return true
}

// Reset moves every field of every indicator to its minimum
func (c *Configuration) Reset() {
	for _, e := range c.entries {
		e.Set.Reset()
	}
}

// IncrementSingle advances to the next grid point across all indicators. It returns false
// once the final grid point has been passed, leaving the configuration in its Reset state.
func (c *Configuration) IncrementSingle() bool {
	for _, e := range c.entries {
		if e.Set.IncrementSingle() {
			return true
		}
	}
	return false
}

// PermutationCount returns the product of per-field grid sizes, saturating at math.MaxUint64
func (c *Configuration) PermutationCount() uint64 {
	total := uint64(1)
	for _, e := range c.entries {
		total = saturatingMul(total, e.Set.PermutationCount())
	}
	return total
}

// RandomSample draws a fresh global sample for every field
func (c *Configuration) RandomSample(rng *rand.Rand) {
	for _, e := range c.entries {
		e.Set.RandomSample(rng)
	}
}

// Perturb applies ParameterSet.Perturb to every indicator
func (c *Configuration) Perturb(intensity float64, rng *rand.Rand) {
	for _, e := range c.entries {
		e.Set.Perturb(intensity, rng)
	}
}

// FieldCount returns the total number of fields across all indicators
func (c *Configuration) FieldCount() int {
	n := 0
	for _, e := range c.entries {
		n += e.Set.Len()
	}
	return n
}

// locate maps a flat field index onto (entry, field)
func (c *Configuration) locate(i int) (*ParameterSet, int) {
	for _, e := range c.entries {
		if i < e.Set.Len() {
			return e.Set, i
		}
		i -= e.Set.Len()
	}
	return nil, -1
}

// FieldAt returns the field at a flat index
func (c *Configuration) FieldAt(i int) Field {
	set, j := c.locate(i)
	if set == nil {
		return Field{}
	}
	return set.fields[j]
}

// SetNearest snaps v onto the grid of the field at flat index i and assigns it
func (c *Configuration) SetNearest(i int, v float64) {
	set, j := c.locate(i)
	if set == nil {
		return
	}
	f := &set.fields[j]
	f.Value = f.Snap(v)
}

// Encode serializes the configuration: [count:4] then [role:1][parameter set] per entry
func (c *Configuration) Encode() []byte {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(c.entries)))
	for _, e := range c.entries {
		buf = append(buf, byte(e.Role))
		buf = append(buf, e.Set.Encode()...)
	}
	return buf
}

// Key returns a string usable as a map key for de-duplication
func (c *Configuration) Key() string {
	return string(c.Encode())
}

// Descriptor is the portable, serializable view of one field of a candidate
type Descriptor struct {
	Indicator string  `json:"indicator" yaml:"indicator"`
	Kind      string  `json:"kind" yaml:"kind"`
	Role      string  `json:"role" yaml:"role"`
	Field     string  `json:"field" yaml:"field"`
	Type      string  `json:"type" yaml:"type"`
	Value     float64 `json:"value" yaml:"value"`
	Min       float64 `json:"min" yaml:"min"`
	Max       float64 `json:"max" yaml:"max"`
	Step      float64 `json:"step" yaml:"step"`
}

// Describe flattens the configuration into descriptors, in IncrementSingle digit order
func (c *Configuration) Describe() []Descriptor {
	out := make([]Descriptor, 0, c.FieldCount())
	for _, e := range c.entries {
		for _, f := range e.Set.fields {
			out = append(out, Descriptor{
				Indicator: e.Set.name,
				Kind:      e.Set.kindName,
				Role:      e.Role.String(),
				Field:     f.Name,
				Type:      f.Type.String(),
				Value:     f.Value,
				Min:       f.Min,
				Max:       f.Max,
				Step:      f.Step,
			})
		}
	}
	return out
}
