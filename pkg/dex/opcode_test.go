package dex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOpcode(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Opcode
		wantErr bool
	}{
		{name: "mnemonic", in: "const-string", want: OpConstString},
		{name: "mnemonic with suffix", in: "const-string/jumbo", want: OpConstStringJumbo},
		{name: "upper case", in: "RETURN-VOID", want: OpReturnVoid},
		{name: "dexlib2 enum", in: "INVOKE_VIRTUAL", want: OpInvokeVirtual},
		{name: "dexlib2 enum range", in: "INVOKE_STATIC_RANGE", want: OpInvokeStaticRange},
		{name: "dexlib2 enum const/4", in: "CONST_4", want: OpConst4},
		{name: "dexlib2 enum from16", in: "MOVE_WIDE_FROM16", want: OpMoveWideFrom16},
		{name: "dexlib2 enum 2addr", in: "ADD_INT_2ADDR", want: OpAddInt2Addr},
		{name: "dexlib2 enum lit8", in: "RSUB_INT_LIT8", want: OpRsubIntLit8},
		{name: "whitespace", in: "  move-result-object ", want: OpMoveResultObject},
		{name: "unknown", in: "frobnicate", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOpcode(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownOpcode))
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpcodeNamesRoundTrip(t *testing.T) {
	for i := 0; i < 256; i++ {
		op := Opcode(i)
		if !op.Valid() {
			assert.Contains(t, op.String(), "unused-")
			continue
		}
		got, err := ParseOpcode(op.String())
		assert.NoError(t, err)
		assert.Equal(t, op, got, "opcode %#x", i)
	}
}

func TestOpcodeClasses(t *testing.T) {
	assert.True(t, OpConstString.IsStringLoad())
	assert.True(t, OpConstStringJumbo.IsStringLoad())
	assert.False(t, OpConstClass.IsStringLoad())

	assert.True(t, OpInvokeVirtual.IsInvoke())
	assert.True(t, OpInvokeInterfaceRange.IsInvoke())
	assert.True(t, OpInvokeCustom.IsInvoke())
	assert.False(t, Opcode(0x73).IsInvoke())
	assert.False(t, OpReturn.IsInvoke())

	assert.True(t, OpReturnVoid.IsReturn())
	assert.True(t, OpReturnObject.IsReturn())
	assert.False(t, OpThrow.IsReturn())
}

func TestOpcodeText(t *testing.T) {
	text, err := OpAddIntLit8.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "add-int/lit8", string(text))

	var op Opcode
	assert.NoError(t, op.UnmarshalText([]byte("sget-object")))
	assert.Equal(t, OpSgetObject, op)
	assert.Error(t, op.UnmarshalText([]byte("nope")))
}
