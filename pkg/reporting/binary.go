package reporting

import (
	"fmt"
	"os"

	"github.com/ducminhle1904/crypto-strategy-optimizer/pkg/params"
)

// WriteCandidateBinary writes the codec encoding of a configuration
func WriteCandidateBinary(codec *params.Codec, cfg *params.Configuration, path string) error {
	if cfg == nil {
		return fmt.Errorf("no configuration to write")
	}
	return writeFile(path, codec.EncodeConfiguration(cfg))
}

// ReadCandidateBinary decodes a configuration written by WriteCandidateBinary
func ReadCandidateBinary(codec *params.Codec, path string) (*params.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read candidate: %w", err)
	}
	return codec.DecodeConfiguration(data)
}
