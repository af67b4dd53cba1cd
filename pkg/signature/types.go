package signature

import (
	"github.com/blacktop/dexsig/pkg/dex"
	"gopkg.in/yaml.v3"
)

type MethodSignature struct {
	// The name of the signature, used in diagnostics.
	Name string `json:"name" yaml:"name" jsonschema:"required"`

	// What the matched method does.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// The version of the signature.
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// The class the method was found in when the signature was written (informational).
	DefiningClass string `json:"defining_class,omitempty" yaml:"defining_class,omitempty"`

	// The name of the method when the signature was written (informational).
	MethodName string `json:"method_name,omitempty" yaml:"method_name,omitempty"`

	// Free form notes.
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`

	// The return type prefix; nil matches any return type.
	ReturnType *string `json:"return_type,omitempty" yaml:"return_type,omitempty"`

	// The exact access flags; nil matches any access flags.
	AccessFlags *dex.AccessFlags `json:"access_flags,omitempty" yaml:"access_flags,omitempty"`

	// The ordered parameter types; nil matches any parameters,
	// an empty list only matches methods without parameters.
	Parameters []string `json:"parameters" yaml:"parameters"`

	// The string literals the method must load (a multiset); nil skips the check.
	Strings []string `json:"strings" yaml:"strings"`

	// The opcode pattern; nil skips the check.
	Opcodes Pattern `json:"opcodes" yaml:"opcodes"`

	// The number of concrete opcode mismatches tolerated within one window.
	FuzzyTolerance int `json:"fuzzy_tolerance,omitempty" yaml:"fuzzy_tolerance,omitempty"`
}

// MarshalYAML leaves out the list constraints that are not set, so an empty
// list still reads back as "none" and a missing one as "any".
func (s MethodSignature) MarshalYAML() (any, error) {
	type plain MethodSignature
	var node yaml.Node
	if err := node.Encode(plain(s)); err != nil {
		return nil, err
	}
	unset := map[string]bool{
		"parameters": s.Parameters == nil,
		"strings":    s.Strings == nil,
		"opcodes":    s.Opcodes == nil,
	}
	content := node.Content[:0]
	for i := 0; i+1 < len(node.Content); i += 2 {
		if unset[node.Content[i].Value] {
			continue
		}
		content = append(content, node.Content[i], node.Content[i+1])
	}
	node.Content = content
	return &node, nil
}

type Version struct {
	// The maximum app version supported.
	Max string `json:"max,omitempty" yaml:"max,omitempty"`

	// The minimum app version supported.
	Min string `json:"min,omitempty" yaml:"min,omitempty"`
}

// Bundle is a signature file.
type Bundle struct {
	// The package name of the app the signatures target.
	Target string `json:"target,omitempty" yaml:"target,omitempty"`

	// The app versions the signatures were written against.
	Version Version `json:"version" yaml:"version"`

	// The signatures.
	Signatures []*MethodSignature `json:"signatures" yaml:"signatures" jsonschema:"required"`

	// The file the bundle was parsed from.
	Path string `json:"-" yaml:"-"`
}
