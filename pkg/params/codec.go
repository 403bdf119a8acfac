package params

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	opterrors "github.com/ducminhle1904/crypto-strategy-optimizer/internal/errors"
)

// Binary layout of one parameter set, all integers little-endian:
//
//	[kind:1][nameLen:4][name:nameLen UTF-8][field payload]
//
// The payload holds each field value in declared order: int32 for int and bool fields,
// IEEE-754 float64 for float fields.
const setHeaderSize = 1 + 4

// Encode serializes the parameter set
func (p *ParameterSet) Encode() []byte {
	size := setHeaderSize + len(p.name)
	for _, f := range p.fields {
		size += f.Type.EncodedWidth()
	}

	buf := make([]byte, 0, size)
	buf = append(buf, byte(p.kind))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.name)))
	buf = append(buf, p.name...)
	for _, f := range p.fields {
		switch f.Type {
		case FieldFloat:
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(f.Value))
		default:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(f.Value)))
		}
	}
	return buf
}

// Codec decodes parameter sets and configurations against a registry
type Codec struct {
	registry *Registry
}

// NewCodec creates a codec bound to the given registry
func NewCodec(registry *Registry) *Codec {
	return &Codec{registry: registry}
}

// Registry returns the registry the codec decodes against
func (c *Codec) Registry() *Registry {
	return c.registry
}

// Decode parses exactly one parameter set. Trailing or missing bytes are a decode error.
// Values are checked against the field type only; range limits belong to the search space.
func (c *Codec) Decode(data []byte) (*ParameterSet, error) {
	set, n, err := c.readSet(data)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		return nil, decodeError("Decode", fmt.Sprintf("length mismatch for kind %s: expected %d bytes, got %d",
			set.kindName, n, len(data)))
	}
	return set, nil
}

// readSet parses one parameter set from the front of data and reports the bytes consumed
func (c *Codec) readSet(data []byte) (*ParameterSet, int, error) {
	if len(data) < setHeaderSize {
		return nil, 0, decodeError("Decode", fmt.Sprintf("payload too short: %d bytes", len(data)))
	}

	kind := Kind(data[0])
	schema, ok := c.registry.Schema(kind)
	if !ok {
		return nil, 0, decodeError("Decode", fmt.Sprintf("unknown kind tag %d", kind))
	}

	nameLen := binary.LittleEndian.Uint32(data[1:setHeaderSize])
	if uint64(nameLen) > uint64(len(data)-setHeaderSize) {
		return nil, 0, decodeError("Decode", fmt.Sprintf("name length %d exceeds payload", nameLen))
	}
	nameEnd := setHeaderSize + int(nameLen)
	name := data[setHeaderSize:nameEnd]
	if !utf8.Valid(name) {
		return nil, 0, decodeError("Decode", "name is not valid UTF-8")
	}

	total := nameEnd + schema.PayloadSize()
	if len(data) < total {
		return nil, 0, decodeError("Decode", fmt.Sprintf("length mismatch for kind %s: expected %d bytes, got %d",
			schema.Name, total, len(data)))
	}

	set := schema.New(string(name))
	set.name = string(name)
	offset := nameEnd
	for i, f := range set.fields {
		var v float64
		switch f.Type {
		case FieldFloat:
			v = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
		default:
			v = float64(int32(binary.LittleEndian.Uint32(data[offset:])))
		}
		offset += f.Type.EncodedWidth()

		if err := set.fields[i].admit(v); err != nil {
			return nil, 0, opterrors.WrapError(fmt.Errorf("%s: %w", set.kindName, err),
				opterrors.ErrorCategoryDecode, "params", "Decode")
		}
	}

	return set, total, nil
}

// EncodeConfiguration serializes a configuration as [count:4] followed by [role:1][set] per entry
func (c *Codec) EncodeConfiguration(cfg *Configuration) []byte {
	return cfg.Encode()
}

// DecodeConfiguration parses a configuration written by Configuration.Encode.
// Field ranges are the registry defaults, widened to admit any decoded value.
func (c *Codec) DecodeConfiguration(data []byte) (*Configuration, error) {
	if len(data) < 4 {
		return nil, decodeError("DecodeConfiguration", fmt.Sprintf("payload too short: %d bytes", len(data)))
	}
	count := binary.LittleEndian.Uint32(data[:4])
	// every entry needs at least a role byte and a set header
	if uint64(count)*(1+setHeaderSize) > uint64(len(data)-4) {
		return nil, decodeError("DecodeConfiguration", fmt.Sprintf("entry count %d exceeds payload", count))
	}

	cfg := &Configuration{entries: make([]Entry, 0, count)}
	offset := 4
	for i := 0; i < int(count); i++ {
		if offset >= len(data) {
			return nil, decodeError("DecodeConfiguration", fmt.Sprintf("truncated before entry %d", i))
		}
		role := Role(data[offset])
		offset++

		set, n, err := c.readSet(data[offset:])
		if err != nil {
			return nil, err
		}
		offset += n

		if declared, _ := c.registry.RoleOf(set.Kind()); declared != role {
			return nil, decodeError("DecodeConfiguration",
				fmt.Sprintf("entry %d: kind %s has role %s, payload says %s", i, set.kindName, declared, role))
		}
		cfg.entries = append(cfg.entries, Entry{Role: role, Set: set})
	}

	if offset != len(data) {
		return nil, decodeError("DecodeConfiguration", fmt.Sprintf("%d trailing bytes", len(data)-offset))
	}
	return cfg, nil
}

func decodeError(operation, message string) error {
	return opterrors.NewDecodeError("params", operation, message)
}
