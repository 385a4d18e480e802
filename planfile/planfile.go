package planfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/vegasq/planexec/query"
)

// Format is the encoding of a plan document
type Format int

const (
	// FormatAuto treats input starting with '{' as JSON and anything else as YAML
	FormatAuto Format = iota
	FormatYAML
	FormatJSON
)

// Plan is a decoded plan document
type Plan struct {
	Name        string
	Description string
	Root        query.Node
}

// Load reads and decodes a plan file. Files ending in .json are JSON; everything else is YAML.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	plan, err := Decode(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return plan, nil
}

// Decode parses a plan document and checks the structure of its plan
func Decode(data []byte, format Format) (*Plan, error) {
	if format == FormatAuto {
		format = detect(data)
	}

	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, query.NewError(query.ErrValidation, "plan file", "failed to parse JSON plan: %v", err)
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, query.NewError(query.ErrValidation, "plan file", "empty plan document")
			}
			return nil, query.NewError(query.ErrValidation, "plan file", "failed to parse YAML plan: %v", err)
		}
	}

	if doc.Plan == nil {
		return nil, query.NewError(query.ErrValidation, "plan file", "document has no plan")
	}
	root, err := decodeNode(doc.Plan, "plan")
	if err != nil {
		return nil, err
	}
	if err := query.ValidatePlan(root); err != nil {
		return nil, err
	}
	return &Plan{Name: doc.Name, Description: doc.Description, Root: root}, nil
}

// Parse decodes a plan document of either format
func Parse(data []byte) (query.Node, error) {
	plan, err := Decode(data, FormatAuto)
	if err != nil {
		return nil, err
	}
	return plan.Root, nil
}

func detect(data []byte) Format {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// invalid reports a malformed document element at path
func invalid(path, format string, args ...interface{}) error {
	return query.NewError(query.ErrValidation, "plan file", "%s: %s", path, fmt.Sprintf(format, args...))
}

// at prefixes err with the document path it was raised for, keeping its kind
func at(path string, err error) error {
	return fmt.Errorf("%s: %w", path, err)
}
