package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/louisbranch/autoresolve/internal/platform/errors"
	"gopkg.in/yaml.v3"
)

// Format is a scenario file encoding.
type Format string

const (
	FormatLua  Format = "lua"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat indicates a file extension with no loader.
var ErrUnsupportedFormat = errors.New("unsupported scenario format")

// FormatOf infers the format from a file name.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".lua":
		return FormatLua, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadFile loads and validates a scenario file. A scenario without a name
// is named after the file.
func LoadFile(path string) (*Scenario, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Load(data, format, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// Load decodes data in format and validates the result. name is used when the
// scenario does not set one.
func Load(data []byte, format Format, name string) (*Scenario, error) {
	var (
		s   *Scenario
		err error
	)
	switch format {
	case FormatLua:
		s, err = LoadLua(data, name)
	case FormatYAML:
		s, err = LoadYAML(data)
	case FormatJSON:
		s, err = LoadJSON(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(s.Name) == "" {
		s.Name = name
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadYAML decodes a YAML scenario. Unknown fields are rejected.
func LoadYAML(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperrors.Wrap(apperrors.CodeScenarioInvalid, "decode yaml scenario", err)
	}
	return &s, nil
}

// LoadJSON decodes a JSON scenario. Unknown fields are rejected.
func LoadJSON(data []byte) (*Scenario, error) {
	s, err := decodeJSON(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScenarioInvalid, "decode json scenario", err)
	}
	return s, nil
}

func decodeJSON(r io.Reader) (*Scenario, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, err
	}
	return &s, nil
}
