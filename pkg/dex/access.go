package dex

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// AccessFlags is the access_flags bitmask of a Dalvik method
type AccessFlags uint32

// Method access flags.
// See: https://source.android.com/docs/core/runtime/dex-format#access-flags
const (
	AccPublic               AccessFlags = 0x1
	AccPrivate              AccessFlags = 0x2
	AccProtected            AccessFlags = 0x4
	AccStatic               AccessFlags = 0x8
	AccFinal                AccessFlags = 0x10
	AccSynchronized         AccessFlags = 0x20
	AccBridge               AccessFlags = 0x40
	AccVarargs              AccessFlags = 0x80
	AccNative               AccessFlags = 0x100
	AccInterface            AccessFlags = 0x200
	AccAbstract             AccessFlags = 0x400
	AccStrict               AccessFlags = 0x800
	AccSynthetic            AccessFlags = 0x1000
	AccAnnotation           AccessFlags = 0x2000
	AccEnum                 AccessFlags = 0x4000
	AccConstructor          AccessFlags = 0x10000
	AccDeclaredSynchronized AccessFlags = 0x20000
)

var accessFlagNames = []struct {
	flag AccessFlags
	name string
}{
	{AccPublic, "public"},
	{AccPrivate, "private"},
	{AccProtected, "protected"},
	{AccStatic, "static"},
	{AccFinal, "final"},
	{AccSynchronized, "synchronized"},
	{AccBridge, "bridge"},
	{AccVarargs, "varargs"},
	{AccNative, "native"},
	{AccInterface, "interface"},
	{AccAbstract, "abstract"},
	{AccStrict, "strictfp"},
	{AccSynthetic, "synthetic"},
	{AccAnnotation, "annotation"},
	{AccEnum, "enum"},
	{AccConstructor, "constructor"},
	{AccDeclaredSynchronized, "declared-synchronized"},
}

// Has reports whether all bits of f are set.
func (a AccessFlags) Has(f AccessFlags) bool {
	return a&f == f
}

// Names returns the smali keywords for the set bits, in declaration order
func (a AccessFlags) Names() []string {
	var names []string
	for _, n := range accessFlagNames {
		if a&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return names
}

func (a AccessFlags) String() string {
	if a == 0 {
		return "0x0"
	}
	return fmt.Sprintf("%#x (%s)", uint32(a), strings.Join(a.Names(), " "))
}

// ParseAccessFlags accepts a raw bitmask (9, "0x9"), a space separated list of
// smali keywords ("public static") or a list of keywords.
func ParseAccessFlags(v any) (AccessFlags, error) {
	switch val := v.(type) {
	case AccessFlags:
		return val, nil
	case []string:
		return parseAccessFlagNames(val)
	case []any:
		names, err := cast.ToStringSliceE(val)
		if err != nil {
			return 0, fmt.Errorf("failed to parse access flags %v: %w", v, err)
		}
		return parseAccessFlagNames(names)
	case string:
		if n, err := cast.ToUint32E(strings.TrimSpace(val)); err == nil {
			return AccessFlags(n), nil
		}
		return parseAccessFlagNames(strings.Fields(val))
	}
	n, err := cast.ToUint32E(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse access flags %v: %w", v, err)
	}
	return AccessFlags(n), nil
}

func parseAccessFlagNames(names []string) (AccessFlags, error) {
	var flags AccessFlags
NAMES:
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		for _, n := range accessFlagNames {
			if n.name == name {
				flags |= n.flag
				continue NAMES
			}
		}
		return 0, fmt.Errorf("unknown access flag %q", name)
	}
	return flags, nil
}

func (a AccessFlags) MarshalYAML() (any, error) {
	return fmt.Sprintf("%#x", uint32(a)), nil
}

func (a *AccessFlags) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	flags, err := ParseAccessFlags(raw)
	if err != nil {
		return err
	}
	*a = flags
	return nil
}

func (a *AccessFlags) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	flags, err := ParseAccessFlags(raw)
	if err != nil {
		return err
	}
	*a = flags
	return nil
}

func (AccessFlags) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Description: "access flags as a number, a hex string or a list of keywords (public static final)",
		OneOf: []*jsonschema.Schema{
			{Type: "integer", Minimum: "0"},
			{Type: "string"},
			{Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
	}
}
