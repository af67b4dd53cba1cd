package dex

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnsupportedDump is returned for class dumps that are neither JSON nor YAML
var ErrUnsupportedDump = errors.New("unsupported class dump format")

// Dump is the on-disk form of an already disassembled class collection.
type Dump struct {
	// The package the classes were extracted from.
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	// The package version.
	Version string      `json:"version,omitempty" yaml:"version,omitempty"`
	Classes []DumpClass `json:"classes" yaml:"classes"`
}

type DumpClass struct {
	Type        string       `json:"type" yaml:"type"`
	AccessFlags AccessFlags  `json:"access_flags,omitempty" yaml:"access_flags,omitempty"`
	SuperClass  string       `json:"super_class,omitempty" yaml:"super_class,omitempty"`
	Methods     []DumpMethod `json:"methods" yaml:"methods"`
}

type DumpMethod struct {
	Name        string      `json:"name" yaml:"name"`
	ReturnType  string      `json:"return_type" yaml:"return_type"`
	AccessFlags AccessFlags `json:"access_flags,omitempty" yaml:"access_flags,omitempty"`
	Parameters  []string    `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	// Instructions is nil for methods without a code item.
	Instructions *[]DumpInstruction `json:"instructions,omitempty" yaml:"instructions,omitempty"`
}

type DumpInstruction struct {
	Op     Opcode  `json:"op" yaml:"op"`
	String *string `json:"string,omitempty" yaml:"string,omitempty"`
}

// LoadDump reads a JSON or YAML class dump from path.
func LoadDump(path string) (*Dump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class dump: %w", err)
	}
	return ParseDump(data, filepath.Ext(path))
}

// ParseDump decodes a class dump; format is a file extension (".json", ".yaml", ".yml").
func ParseDump(data []byte, format string) (*Dump, error) {
	var d Dump
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to parse JSON class dump: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("failed to parse YAML class dump: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDump, format)
	}
	return &d, nil
}

// ClassDefs converts the dump into immutable class definitions, preserving order.
func (d *Dump) ClassDefs() []ClassDef {
	classes := make([]ClassDef, 0, len(d.Classes))
	for _, dc := range d.Classes {
		methods := make([]Method, 0, len(dc.Methods))
		for _, dm := range dc.Methods {
			var code *Code
			if dm.Instructions != nil {
				insns := make([]Instruction, 0, len(*dm.Instructions))
				for _, di := range *dm.Instructions {
					if di.String != nil {
						insns = append(insns, NewStringInsn(di.Op, *di.String))
					} else {
						insns = append(insns, NewInsn(di.Op))
					}
				}
				code = NewCode(insns...)
			}
			methods = append(methods, NewMethod(dc.Type, dm.Name, dm.ReturnType, dm.AccessFlags, dm.Parameters, code))
		}
		classes = append(classes, NewClass(dc.Type, dc.AccessFlags, dc.SuperClass, methods...))
	}
	return classes
}
