// Package proxy provides copy-on-write handles to dex classes.
package proxy

import (
	"fmt"
	"slices"
	"sync"

	"github.com/apex/log"
	"github.com/blacktop/dexsig/pkg/dex"
)

// ClassProxy wraps an immutable class and hands out a single mutable copy
// of it on demand.
type ClassProxy struct {
	immutable dex.ClassDef

	mu      sync.Mutex
	mutable *MutableClass
}

// New returns a proxy for class.
func New(class dex.ClassDef) *ClassProxy {
	return &ClassProxy{immutable: class}
}

// Immutable returns the proxied class.
func (p *ClassProxy) Immutable() dex.ClassDef {
	return p.immutable
}

// Type returns the type descriptor of the proxied class.
func (p *ClassProxy) Type() string {
	return p.immutable.Type()
}

// Mutable returns the mutable copy of the class, creating it on first use.
// Every call returns the same *MutableClass.
func (p *ClassProxy) Mutable() *MutableClass {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mutable == nil {
		p.mutable = NewMutableClass(p.immutable)
		log.WithField("class", p.immutable.Type()).Debug("Created mutable class")
	}
	return p.mutable
}

// Resolved reports whether the mutable copy has been created.
func (p *ClassProxy) Resolved() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mutable != nil
}

func (p *ClassProxy) String() string {
	return fmt.Sprintf("proxy(%s)", p.immutable.Type())
}

// MutableClass is a deep copy of a class that patches may change.
type MutableClass struct {
	ClassType  string
	Flags      dex.AccessFlags
	Super      string
	MethodDefs []*MutableMethod
}

// NewMutableClass deep copies class.
func NewMutableClass(class dex.ClassDef) *MutableClass {
	mc := &MutableClass{
		ClassType: class.Type(),
		Flags:     class.AccessFlags(),
		Super:     class.SuperClass(),
	}
	for _, m := range class.Methods() {
		mc.MethodDefs = append(mc.MethodDefs, NewMutableMethod(m))
	}
	return mc
}

func (c *MutableClass) Type() string                 { return c.ClassType }
func (c *MutableClass) AccessFlags() dex.AccessFlags { return c.Flags }
func (c *MutableClass) SuperClass() string           { return c.Super }

func (c *MutableClass) Methods() []dex.Method {
	methods := make([]dex.Method, len(c.MethodDefs))
	for i, m := range c.MethodDefs {
		methods[i] = m
	}
	return methods
}

// Method returns the mutable method with the given reference, or nil.
func (c *MutableClass) Method(ref string) *MutableMethod {
	for _, m := range c.MethodDefs {
		if dex.MethodReference(m) == ref {
			return m
		}
	}
	return nil
}

// MutableMethod is a deep copy of a method.
type MutableMethod struct {
	Class  string
	MName  string
	Return string
	Flags  dex.AccessFlags
	Params []string
	// nil for methods without an implementation
	Code []dex.Instruction
	// HasCode distinguishes an empty body from no body.
	HasCode bool
}

// NewMutableMethod deep copies m.
func NewMutableMethod(m dex.Method) *MutableMethod {
	mm := &MutableMethod{
		Class:  m.DefiningClass(),
		MName:  m.Name(),
		Return: m.ReturnType(),
		Flags:  m.AccessFlags(),
		Params: slices.Clone(m.ParameterTypes()),
	}
	if impl := m.Implementation(); impl != nil {
		mm.HasCode = true
		mm.Code = slices.Clone(impl.Instructions())
	}
	return mm
}

func (m *MutableMethod) DefiningClass() string        { return m.Class }
func (m *MutableMethod) Name() string                 { return m.MName }
func (m *MutableMethod) ReturnType() string           { return m.Return }
func (m *MutableMethod) AccessFlags() dex.AccessFlags { return m.Flags }
func (m *MutableMethod) ParameterTypes() []string     { return m.Params }

func (m *MutableMethod) Implementation() dex.MethodImplementation {
	if !m.HasCode {
		return nil
	}
	return mutableCode(m.Code)
}

func (m *MutableMethod) String() string { return dex.MethodReference(m) }

type mutableCode []dex.Instruction

func (c mutableCode) Instructions() []dex.Instruction { return c }
