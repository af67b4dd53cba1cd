package dex

import (
	"errors"
	"fmt"
	"strings"
)

// Opcode is a Dalvik instruction opcode.
type Opcode uint8

// Dalvik opcodes.
// See: https://source.android.com/docs/core/runtime/dalvik-bytecode
const (
	OpNop                  Opcode = 0x00
	OpMove                 Opcode = 0x01
	OpMoveFrom16           Opcode = 0x02
	OpMove16               Opcode = 0x03
	OpMoveWide             Opcode = 0x04
	OpMoveWideFrom16       Opcode = 0x05
	OpMoveWide16           Opcode = 0x06
	OpMoveObject           Opcode = 0x07
	OpMoveObjectFrom16     Opcode = 0x08
	OpMoveObject16         Opcode = 0x09
	OpMoveResult           Opcode = 0x0a
	OpMoveResultWide       Opcode = 0x0b
	OpMoveResultObject     Opcode = 0x0c
	OpMoveException        Opcode = 0x0d
	OpReturnVoid           Opcode = 0x0e
	OpReturn               Opcode = 0x0f
	OpReturnWide           Opcode = 0x10
	OpReturnObject         Opcode = 0x11
	OpConst4               Opcode = 0x12
	OpConst16              Opcode = 0x13
	OpConst                Opcode = 0x14
	OpConstHigh16          Opcode = 0x15
	OpConstWide16          Opcode = 0x16
	OpConstWide32          Opcode = 0x17
	OpConstWide            Opcode = 0x18
	OpConstWideHigh16      Opcode = 0x19
	OpConstString          Opcode = 0x1a
	OpConstStringJumbo     Opcode = 0x1b
	OpConstClass           Opcode = 0x1c
	OpMonitorEnter         Opcode = 0x1d
	OpMonitorExit          Opcode = 0x1e
	OpCheckCast            Opcode = 0x1f
	OpInstanceOf           Opcode = 0x20
	OpArrayLength          Opcode = 0x21
	OpNewInstance          Opcode = 0x22
	OpNewArray             Opcode = 0x23
	OpFilledNewArray       Opcode = 0x24
	OpFilledNewArrayRange  Opcode = 0x25
	OpFillArrayData        Opcode = 0x26
	OpThrow                Opcode = 0x27
	OpGoto                 Opcode = 0x28
	OpGoto16               Opcode = 0x29
	OpGoto32               Opcode = 0x2a
	OpPackedSwitch         Opcode = 0x2b
	OpSparseSwitch         Opcode = 0x2c
	OpCmplFloat            Opcode = 0x2d
	OpCmpgFloat            Opcode = 0x2e
	OpCmplDouble           Opcode = 0x2f
	OpCmpgDouble           Opcode = 0x30
	OpCmpLong              Opcode = 0x31
	OpIfEq                 Opcode = 0x32
	OpIfNe                 Opcode = 0x33
	OpIfLt                 Opcode = 0x34
	OpIfGe                 Opcode = 0x35
	OpIfGt                 Opcode = 0x36
	OpIfLe                 Opcode = 0x37
	OpIfEqz                Opcode = 0x38
	OpIfNez                Opcode = 0x39
	OpIfLtz                Opcode = 0x3a
	OpIfGez                Opcode = 0x3b
	OpIfGtz                Opcode = 0x3c
	OpIfLez                Opcode = 0x3d
	OpAget                 Opcode = 0x44
	OpAgetWide             Opcode = 0x45
	OpAgetObject           Opcode = 0x46
	OpAgetBoolean          Opcode = 0x47
	OpAgetByte             Opcode = 0x48
	OpAgetChar             Opcode = 0x49
	OpAgetShort            Opcode = 0x4a
	OpAput                 Opcode = 0x4b
	OpAputWide             Opcode = 0x4c
	OpAputObject           Opcode = 0x4d
	OpAputBoolean          Opcode = 0x4e
	OpAputByte             Opcode = 0x4f
	OpAputChar             Opcode = 0x50
	OpAputShort            Opcode = 0x51
	OpIget                 Opcode = 0x52
	OpIgetWide             Opcode = 0x53
	OpIgetObject           Opcode = 0x54
	OpIgetBoolean          Opcode = 0x55
	OpIgetByte             Opcode = 0x56
	OpIgetChar             Opcode = 0x57
	OpIgetShort            Opcode = 0x58
	OpIput                 Opcode = 0x59
	OpIputWide             Opcode = 0x5a
	OpIputObject           Opcode = 0x5b
	OpIputBoolean          Opcode = 0x5c
	OpIputByte             Opcode = 0x5d
	OpIputChar             Opcode = 0x5e
	OpIputShort            Opcode = 0x5f
	OpSget                 Opcode = 0x60
	OpSgetWide             Opcode = 0x61
	OpSgetObject           Opcode = 0x62
	OpSgetBoolean          Opcode = 0x63
	OpSgetByte             Opcode = 0x64
	OpSgetChar             Opcode = 0x65
	OpSgetShort            Opcode = 0x66
	OpSput                 Opcode = 0x67
	OpSputWide             Opcode = 0x68
	OpSputObject           Opcode = 0x69
	OpSputBoolean          Opcode = 0x6a
	OpSputByte             Opcode = 0x6b
	OpSputChar             Opcode = 0x6c
	OpSputShort            Opcode = 0x6d
	OpInvokeVirtual        Opcode = 0x6e
	OpInvokeSuper          Opcode = 0x6f
	OpInvokeDirect         Opcode = 0x70
	OpInvokeStatic         Opcode = 0x71
	OpInvokeInterface      Opcode = 0x72
	OpInvokeVirtualRange   Opcode = 0x74
	OpInvokeSuperRange     Opcode = 0x75
	OpInvokeDirectRange    Opcode = 0x76
	OpInvokeStaticRange    Opcode = 0x77
	OpInvokeInterfaceRange Opcode = 0x78
	OpNegInt               Opcode = 0x7b
	OpNotInt               Opcode = 0x7c
	OpNegLong              Opcode = 0x7d
	OpNotLong              Opcode = 0x7e
	OpNegFloat             Opcode = 0x7f
	OpNegDouble            Opcode = 0x80
	OpIntToLong            Opcode = 0x81
	OpIntToFloat           Opcode = 0x82
	OpIntToDouble          Opcode = 0x83
	OpLongToInt            Opcode = 0x84
	OpLongToFloat          Opcode = 0x85
	OpLongToDouble         Opcode = 0x86
	OpFloatToInt           Opcode = 0x87
	OpFloatToLong          Opcode = 0x88
	OpFloatToDouble        Opcode = 0x89
	OpDoubleToInt          Opcode = 0x8a
	OpDoubleToLong         Opcode = 0x8b
	OpDoubleToFloat        Opcode = 0x8c
	OpIntToByte            Opcode = 0x8d
	OpIntToChar            Opcode = 0x8e
	OpIntToShort           Opcode = 0x8f
	OpAddInt               Opcode = 0x90
	OpSubInt               Opcode = 0x91
	OpMulInt               Opcode = 0x92
	OpDivInt               Opcode = 0x93
	OpRemInt               Opcode = 0x94
	OpAndInt               Opcode = 0x95
	OpOrInt                Opcode = 0x96
	OpXorInt               Opcode = 0x97
	OpShlInt               Opcode = 0x98
	OpShrInt               Opcode = 0x99
	OpUshrInt              Opcode = 0x9a
	OpAddLong              Opcode = 0x9b
	OpSubLong              Opcode = 0x9c
	OpMulLong              Opcode = 0x9d
	OpDivLong              Opcode = 0x9e
	OpRemLong              Opcode = 0x9f
	OpAndLong              Opcode = 0xa0
	OpOrLong               Opcode = 0xa1
	OpXorLong              Opcode = 0xa2
	OpShlLong              Opcode = 0xa3
	OpShrLong              Opcode = 0xa4
	OpUshrLong             Opcode = 0xa5
	OpAddFloat             Opcode = 0xa6
	OpSubFloat             Opcode = 0xa7
	OpMulFloat             Opcode = 0xa8
	OpDivFloat             Opcode = 0xa9
	OpRemFloat             Opcode = 0xaa
	OpAddDouble            Opcode = 0xab
	OpSubDouble            Opcode = 0xac
	OpMulDouble            Opcode = 0xad
	OpDivDouble            Opcode = 0xae
	OpRemDouble            Opcode = 0xaf
	OpAddInt2Addr          Opcode = 0xb0
	OpSubInt2Addr          Opcode = 0xb1
	OpMulInt2Addr          Opcode = 0xb2
	OpDivInt2Addr          Opcode = 0xb3
	OpRemInt2Addr          Opcode = 0xb4
	OpAndInt2Addr          Opcode = 0xb5
	OpOrInt2Addr           Opcode = 0xb6
	OpXorInt2Addr          Opcode = 0xb7
	OpShlInt2Addr          Opcode = 0xb8
	OpShrInt2Addr          Opcode = 0xb9
	OpUshrInt2Addr         Opcode = 0xba
	OpAddLong2Addr         Opcode = 0xbb
	OpSubLong2Addr         Opcode = 0xbc
	OpMulLong2Addr         Opcode = 0xbd
	OpDivLong2Addr         Opcode = 0xbe
	OpRemLong2Addr         Opcode = 0xbf
	OpAndLong2Addr         Opcode = 0xc0
	OpOrLong2Addr          Opcode = 0xc1
	OpXorLong2Addr         Opcode = 0xc2
	OpShlLong2Addr         Opcode = 0xc3
	OpShrLong2Addr         Opcode = 0xc4
	OpUshrLong2Addr        Opcode = 0xc5
	OpAddFloat2Addr        Opcode = 0xc6
	OpSubFloat2Addr        Opcode = 0xc7
	OpMulFloat2Addr        Opcode = 0xc8
	OpDivFloat2Addr        Opcode = 0xc9
	OpRemFloat2Addr        Opcode = 0xca
	OpAddDouble2Addr       Opcode = 0xcb
	OpSubDouble2Addr       Opcode = 0xcc
	OpMulDouble2Addr       Opcode = 0xcd
	OpDivDouble2Addr       Opcode = 0xce
	OpRemDouble2Addr       Opcode = 0xcf
	OpAddIntLit16          Opcode = 0xd0
	OpRsubInt              Opcode = 0xd1
	OpMulIntLit16          Opcode = 0xd2
	OpDivIntLit16          Opcode = 0xd3
	OpRemIntLit16          Opcode = 0xd4
	OpAndIntLit16          Opcode = 0xd5
	OpOrIntLit16           Opcode = 0xd6
	OpXorIntLit16          Opcode = 0xd7
	OpAddIntLit8           Opcode = 0xd8
	OpRsubIntLit8          Opcode = 0xd9
	OpMulIntLit8           Opcode = 0xda
	OpDivIntLit8           Opcode = 0xdb
	OpRemIntLit8           Opcode = 0xdc
	OpAndIntLit8           Opcode = 0xdd
	OpOrIntLit8            Opcode = 0xde
	OpXorIntLit8           Opcode = 0xdf
	OpShlIntLit8           Opcode = 0xe0
	OpShrIntLit8           Opcode = 0xe1
	OpUshrIntLit8          Opcode = 0xe2
	OpInvokePolymorphic    Opcode = 0xfa
	OpInvokePolymorphicRng Opcode = 0xfb
	OpInvokeCustom         Opcode = 0xfc
	OpInvokeCustomRange    Opcode = 0xfd
	OpConstMethodHandle    Opcode = 0xfe
	OpConstMethodType      Opcode = 0xff
)

// opcodeNames is indexed by opcode; unused slots are empty.
var opcodeNames = [256]string{
	"nop", "move", "move/from16", "move/16", "move-wide", "move-wide/from16", "move-wide/16", "move-object",
	"move-object/from16", "move-object/16", "move-result", "move-result-wide", "move-result-object", "move-exception", "return-void", "return",
	"return-wide", "return-object", "const/4", "const/16", "const", "const/high16", "const-wide/16", "const-wide/32",
	"const-wide", "const-wide/high16", "const-string", "const-string/jumbo", "const-class", "monitor-enter", "monitor-exit", "check-cast",
	"instance-of", "array-length", "new-instance", "new-array", "filled-new-array", "filled-new-array/range", "fill-array-data", "throw",
	"goto", "goto/16", "goto/32", "packed-switch", "sparse-switch", "cmpl-float", "cmpg-float", "cmpl-double",
	"cmpg-double", "cmp-long", "if-eq", "if-ne", "if-lt", "if-ge", "if-gt", "if-le",
	"if-eqz", "if-nez", "if-ltz", "if-gez", "if-gtz", "if-lez", "", "",
	"", "", "", "", "aget", "aget-wide", "aget-object", "aget-boolean",
	"aget-byte", "aget-char", "aget-short", "aput", "aput-wide", "aput-object", "aput-boolean", "aput-byte",
	"aput-char", "aput-short", "iget", "iget-wide", "iget-object", "iget-boolean", "iget-byte", "iget-char",
	"iget-short", "iput", "iput-wide", "iput-object", "iput-boolean", "iput-byte", "iput-char", "iput-short",
	"sget", "sget-wide", "sget-object", "sget-boolean", "sget-byte", "sget-char", "sget-short", "sput",
	"sput-wide", "sput-object", "sput-boolean", "sput-byte", "sput-char", "sput-short", "invoke-virtual", "invoke-super",
	"invoke-direct", "invoke-static", "invoke-interface", "", "invoke-virtual/range", "invoke-super/range", "invoke-direct/range", "invoke-static/range",
	"invoke-interface/range", "", "", "neg-int", "not-int", "neg-long", "not-long", "neg-float",
	"neg-double", "int-to-long", "int-to-float", "int-to-double", "long-to-int", "long-to-float", "long-to-double", "float-to-int",
	"float-to-long", "float-to-double", "double-to-int", "double-to-long", "double-to-float", "int-to-byte", "int-to-char", "int-to-short",
	"add-int", "sub-int", "mul-int", "div-int", "rem-int", "and-int", "or-int", "xor-int",
	"shl-int", "shr-int", "ushr-int", "add-long", "sub-long", "mul-long", "div-long", "rem-long",
	"and-long", "or-long", "xor-long", "shl-long", "shr-long", "ushr-long", "add-float", "sub-float",
	"mul-float", "div-float", "rem-float", "add-double", "sub-double", "mul-double", "div-double", "rem-double",
	"add-int/2addr", "sub-int/2addr", "mul-int/2addr", "div-int/2addr", "rem-int/2addr", "and-int/2addr", "or-int/2addr", "xor-int/2addr",
	"shl-int/2addr", "shr-int/2addr", "ushr-int/2addr", "add-long/2addr", "sub-long/2addr", "mul-long/2addr", "div-long/2addr", "rem-long/2addr",
	"and-long/2addr", "or-long/2addr", "xor-long/2addr", "shl-long/2addr", "shr-long/2addr", "ushr-long/2addr", "add-float/2addr", "sub-float/2addr",
	"mul-float/2addr", "div-float/2addr", "rem-float/2addr", "add-double/2addr", "sub-double/2addr", "mul-double/2addr", "div-double/2addr", "rem-double/2addr",
	"add-int/lit16", "rsub-int", "mul-int/lit16", "div-int/lit16", "rem-int/lit16", "and-int/lit16", "or-int/lit16", "xor-int/lit16",
	"add-int/lit8", "rsub-int/lit8", "mul-int/lit8", "div-int/lit8", "rem-int/lit8", "and-int/lit8", "or-int/lit8", "xor-int/lit8",
	"shl-int/lit8", "shr-int/lit8", "ushr-int/lit8", "", "", "", "", "",
	"", "", "", "", "", "", "", "",
	"", "", "", "", "", "", "", "",
	"", "", "invoke-polymorphic", "invoke-polymorphic/range", "invoke-custom", "invoke-custom/range", "const-method-handle", "const-method-type",
}

var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

// ErrUnknownOpcode is returned when an opcode name is not a Dalvik mnemonic
var ErrUnknownOpcode = errors.New("unknown opcode")

// ParseOpcode converts a smali mnemonic (e.g. "const-string", "INVOKE_VIRTUAL")
// into its Opcode.
func ParseOpcode(name string) (Opcode, error) {
	norm := strings.ToLower(strings.TrimSpace(name))
	if op, ok := opcodesByName[norm]; ok {
		return op, nil
	}
	// accept dexlib2 style enum names (CONST_STRING_JUMBO, ADD_INT_2ADDR)
	if op, ok := opcodesByName[enumToMnemonic(norm)]; ok {
		return op, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownOpcode, name)
}

func enumToMnemonic(name string) string {
	for _, suffix := range []string{"jumbo", "range", "2addr", "lit8", "lit16", "from16", "high16", "16", "32", "4"} {
		if before, ok := strings.CutSuffix(name, "_"+suffix); ok {
			return strings.ReplaceAll(before, "_", "-") + "/" + suffix
		}
	}
	return strings.ReplaceAll(name, "_", "-")
}

// Valid reports whether op is an assigned Dalvik opcode.
func (op Opcode) Valid() bool {
	return opcodeNames[op] != ""
}

func (op Opcode) String() string {
	if name := opcodeNames[op]; name != "" {
		return name
	}
	return fmt.Sprintf("unused-%02x", uint8(op))
}

// IsStringLoad reports whether op loads a string literal from the string pool.
func (op Opcode) IsStringLoad() bool {
	return op == OpConstString || op == OpConstStringJumbo
}

// IsInvoke reports whether op is a method invocation.
func (op Opcode) IsInvoke() bool {
	switch {
	case op >= OpInvokeVirtual && op <= OpInvokeInterfaceRange && op != 0x73:
		return true
	case op >= OpInvokePolymorphic && op <= OpInvokeCustomRange:
		return true
	}
	return false
}

// IsReturn reports whether op returns from the method.
func (op Opcode) IsReturn() bool {
	return op >= OpReturnVoid && op <= OpReturnObject
}

func (op Opcode) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

func (op *Opcode) UnmarshalText(text []byte) error {
	o, err := ParseOpcode(string(text))
	if err != nil {
		return err
	}
	*op = o
	return nil
}
