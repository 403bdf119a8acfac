package params

import (
	"fmt"
	"sort"
	"strings"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
)

// Schema declares one indicator kind: its tag, its role and its fields with default values
type Schema struct {
	Kind   Kind
	Name   string
	Role   Role
	Fields []Field
}

// New creates a parameter set holding the schema's default values
func (s Schema) New(name string) *ParameterSet {
	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	if name == "" {
		name = s.Name
	}
	return &ParameterSet{
		kind:     s.Kind,
		kindName: s.Name,
		name:     name,
		fields:   fields,
	}
}

// PayloadSize returns the encoded width of all field values
func (s Schema) PayloadSize() int {
	size := 0
	for _, f := range s.Fields {
		size += f.Type.EncodedWidth()
	}
	return size
}

func (s Schema) validate() error {
	if s.Name == "" {
		return fmt.Errorf("kind %d: schema name must not be empty", s.Kind)
	}
	if s.Role < RoleTrend || s.Role > RoleRiskManagement {
		return fmt.Errorf("kind %s: invalid role %d", s.Name, s.Role)
	}
	if len(s.Fields) == 0 {
		return fmt.Errorf("kind %s: schema has no fields", s.Name)
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if err := f.validateBounds(); err != nil {
			return fmt.Errorf("kind %s: %w", s.Name, err)
		}
		if seen[f.Name] {
			return fmt.Errorf("kind %s: duplicate field %s", s.Name, f.Name)
		}
		seen[f.Name] = true
	}
	return nil
}

// Registry maps kind tags to schemas. Each kind is registered once, before any decoding;
// afterwards the registry is only read and needs no locking.
type Registry struct {
	schemas map[Kind]Schema
	byName  map[string]Kind
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		schemas: make(map[Kind]Schema),
		byName:  make(map[string]Kind),
	}
}

// Register adds a kind. Registering the same tag or name twice is an error.
func (r *Registry) Register(s Schema) error {
	if err := s.validate(); err != nil {
		return opterrors.NewConfigurationError("params", "Register", err.Error())
	}
	if _, exists := r.schemas[s.Kind]; exists {
		return opterrors.NewConfigurationError("params", "Register",
			fmt.Sprintf("kind tag %d already registered", s.Kind))
	}
	key := strings.ToLower(s.Name)
	if _, exists := r.byName[key]; exists {
		return opterrors.NewConfigurationError("params", "Register",
			fmt.Sprintf("kind name %q already registered", s.Name))
	}

	fields := make([]Field, len(s.Fields))
	copy(fields, s.Fields)
	s.Fields = fields

	r.schemas[s.Kind] = s
	r.byName[key] = s.Kind
	return nil
}

// MustRegister registers a kind and panics on error; for package-level setup only
func (r *Registry) MustRegister(s Schema) {
	if err := r.Register(s); err != nil {
		panic(err)
	}
}

// Schema returns the schema for a kind tag
func (r *Registry) Schema(kind Kind) (Schema, bool) {
	s, ok := r.schemas[kind]
	return s, ok
}

// Lookup finds a schema by kind name, case-insensitive
func (r *Registry) Lookup(name string) (Schema, bool) {
	kind, ok := r.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Schema{}, false
	}
	return r.schemas[kind], true
}

// Kinds returns all registered kind tags in ascending order
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.schemas))
	for k := range r.schemas {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// NewSet creates a default parameter set for a registered kind name
func (r *Registry) NewSet(kindName, instanceName string) (*ParameterSet, error) {
	s, ok := r.Lookup(kindName)
	if !ok {
		return nil, opterrors.NewConfigurationError("params", "NewSet",
			fmt.Sprintf("unknown indicator kind %q", kindName))
	}
	return s.New(instanceName), nil
}

// RoleOf returns the role declared for a kind
func (r *Registry) RoleOf(kind Kind) (Role, bool) {
	s, ok := r.schemas[kind]
	return s.Role, ok
}
