// Package dex models the disassembled Dalvik classes that signatures are
// resolved against.
//
// The interfaces mirror what a dex parsing library exposes: an ordered list
// of classes, each with an ordered list of methods, each with an optional
// implementation holding the decoded instructions. The concrete types in this
// package are simple immutable implementations used by the class dump loader
// and by tests.
package dex

import (
	"fmt"
	"strings"
)

// Instruction is a single decoded instruction.
type Instruction interface {
	Opcode() Opcode
}

// StringReference is implemented by instructions that reference a string
// pool entry (const-string, const-string/jumbo).
type StringReference interface {
	Instruction
	StringRef() string
}

// MethodImplementation is the code item of a method.
type MethodImplementation interface {
	Instructions() []Instruction
}

// Method is a method definition.
type Method interface {
	DefiningClass() string
	Name() string
	ReturnType() string
	AccessFlags() AccessFlags
	ParameterTypes() []string
	// Implementation returns nil for abstract and native methods.
	Implementation() MethodImplementation
}

// ClassDef is a class definition.
type ClassDef interface {
	Type() string
	AccessFlags() AccessFlags
	SuperClass() string
	Methods() []Method
}

// MethodReference returns the smali style reference of m, e.g.
// Lcom/example/Foo;->bar(ILjava/lang/String;)V
func MethodReference(m Method) string {
	return fmt.Sprintf("%s->%s(%s)%s", m.DefiningClass(), m.Name(), strings.Join(m.ParameterTypes(), ""), m.ReturnType())
}

// Opcodes returns the opcode stream of an implementation (nil if impl is nil).
func Opcodes(impl MethodImplementation) []Opcode {
	if impl == nil {
		return nil
	}
	insns := impl.Instructions()
	ops := make([]Opcode, len(insns))
	for i, insn := range insns {
		ops[i] = insn.Opcode()
	}
	return ops
}

// StringLiterals returns the literals loaded by string-load instructions of impl in order.
func StringLiterals(impl MethodImplementation) []string {
	if impl == nil {
		return nil
	}
	var strs []string
	for _, insn := range impl.Instructions() {
		if !insn.Opcode().IsStringLoad() {
			continue
		}
		if ref, ok := insn.(StringReference); ok {
			strs = append(strs, ref.StringRef())
		}
	}
	return strs
}

/* immutable implementations */

// Insn is an immutable Instruction.
type Insn struct {
	op  Opcode
	str string
}

// NewInsn creates an instruction without operands of interest.
func NewInsn(op Opcode) *Insn {
	return &Insn{op: op}
}

// NewStringInsn creates a string-load instruction referencing s.
func NewStringInsn(op Opcode, s string) *Insn {
	return &Insn{op: op, str: s}
}

func (i *Insn) Opcode() Opcode    { return i.op }
func (i *Insn) StringRef() string { return i.str }

func (i *Insn) String() string {
	if i.op.IsStringLoad() {
		return fmt.Sprintf("%s %q", i.op, i.str)
	}
	return i.op.String()
}

// Code is an immutable MethodImplementation.
type Code struct {
	insns []Instruction
}

// NewCode creates an implementation holding insns.
func NewCode(insns ...Instruction) *Code {
	return &Code{insns: insns}
}

func (c *Code) Instructions() []Instruction { return c.insns }

// EncodedMethod is an immutable Method.
type EncodedMethod struct {
	class  string
	name   string
	ret    string
	flags  AccessFlags
	params []string
	code   *Code
}

// NewMethod creates a method of class; code may be nil for abstract or native methods.
func NewMethod(class, name, returnType string, flags AccessFlags, params []string, code *Code) *EncodedMethod {
	return &EncodedMethod{
		class:  class,
		name:   name,
		ret:    returnType,
		flags:  flags,
		params: params,
		code:   code,
	}
}

func (m *EncodedMethod) DefiningClass() string    { return m.class }
func (m *EncodedMethod) Name() string             { return m.name }
func (m *EncodedMethod) ReturnType() string       { return m.ret }
func (m *EncodedMethod) AccessFlags() AccessFlags { return m.flags }
func (m *EncodedMethod) ParameterTypes() []string { return m.params }

func (m *EncodedMethod) Implementation() MethodImplementation {
	// avoid returning a typed nil
	if m.code == nil {
		return nil
	}
	return m.code
}

func (m *EncodedMethod) String() string { return MethodReference(m) }

// Class is an immutable ClassDef.
type Class struct {
	typ     string
	flags   AccessFlags
	super   string
	methods []Method
}

// NewClass creates a class; the defining class of each method should be typ.
func NewClass(typ string, flags AccessFlags, super string, methods ...Method) *Class {
	return &Class{
		typ:     typ,
		flags:   flags,
		super:   super,
		methods: methods,
	}
}

func (c *Class) Type() string             { return c.typ }
func (c *Class) AccessFlags() AccessFlags { return c.flags }
func (c *Class) SuperClass() string       { return c.super }
func (c *Class) Methods() []Method        { return c.methods }
func (c *Class) String() string           { return c.typ }
