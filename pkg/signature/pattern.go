package signature

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blacktop/dexsig/pkg/dex"
	"gopkg.in/yaml.v3"
)

// PatternElement is one position of an opcode pattern: either a concrete
// opcode or a wildcard that accepts any opcode.
type PatternElement struct {
	Opcode   dex.Opcode
	Wildcard bool
}

// Op returns a concrete pattern element.
func Op(op dex.Opcode) PatternElement {
	return PatternElement{Opcode: op}
}

// Any returns a wildcard pattern element.
func Any() PatternElement {
	return PatternElement{Wildcard: true}
}

// Matches reports whether op satisfies the element.
func (e PatternElement) Matches(op dex.Opcode) bool {
	return e.Wildcard || e.Opcode == op
}

func (e PatternElement) String() string {
	if e.Wildcard {
		return "*"
	}
	return e.Opcode.String()
}

// Pattern is an ordered opcode pattern.
//
// In signature files a pattern is a list of opcode mnemonics where "*", "?"
// or null stand for a wildcard (quote "*" in YAML, it is the alias indicator).
type Pattern []PatternElement

// NewPattern builds a pattern of concrete opcodes.
func NewPattern(ops ...dex.Opcode) Pattern {
	p := make(Pattern, len(ops))
	for i, op := range ops {
		p[i] = Op(op)
	}
	return p
}

// ParsePattern parses opcode mnemonics; "*", "?" and "" are wildcards.
func ParsePattern(names []string) (Pattern, error) {
	p := make(Pattern, 0, len(names))
	for i, name := range names {
		switch strings.TrimSpace(name) {
		case "*", "?", "":
			p = append(p, Any())
		default:
			op, err := dex.ParseOpcode(name)
			if err != nil {
				return nil, fmt.Errorf("pattern index %d: %w", i, err)
			}
			p = append(p, Op(op))
		}
	}
	return p, nil
}

// Concrete returns the number of non-wildcard elements.
func (p Pattern) Concrete() int {
	var n int
	for _, e := range p {
		if !e.Wildcard {
			n++
		}
	}
	return n
}

func (p Pattern) Strings() []string {
	names := make([]string, len(p))
	for i, e := range p {
		names[i] = e.String()
	}
	return names
}

func (p Pattern) String() string {
	return "[" + strings.Join(p.Strings(), ", ") + "]"
}

func fromNullable(names []*string) (Pattern, error) {
	strs := make([]string, len(names))
	for i, n := range names {
		if n != nil {
			strs[i] = *n
		}
	}
	return ParsePattern(strs)
}

func (p Pattern) MarshalJSON() ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	return json.Marshal(p.Strings())
}

func (p *Pattern) UnmarshalJSON(data []byte) error {
	var names []*string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("failed to parse opcode pattern: %w", err)
	}
	if names == nil {
		*p = nil
		return nil
	}
	pat, err := fromNullable(names)
	if err != nil {
		return err
	}
	*p = pat
	return nil
}

func (p Pattern) MarshalYAML() (any, error) {
	if p == nil {
		return nil, nil
	}
	return p.Strings(), nil
}

func (p *Pattern) UnmarshalYAML(node *yaml.Node) error {
	var names []*string
	if err := node.Decode(&names); err != nil {
		return fmt.Errorf("line %d: failed to parse opcode pattern: %w", node.Line, err)
	}
	pat, err := fromNullable(names)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*p = pat
	return nil
}
