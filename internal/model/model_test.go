package model

import (
	"testing"

	"github.com/blacktop/dexsig/pkg/dex"
	"github.com/blacktop/dexsig/pkg/resolver"
	"github.com/blacktop/dexsig/pkg/signature"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunAddResults(t *testing.T) {
	run := NewRun("dump.yaml", "com.example.app", "1.0", resolver.PolicyFirstMatch)
	_, err := uuid.Parse(run.ID)
	require.NoError(t, err)
	assert.Equal(t, "first-match", run.Policy)
	assert.Len(t, run.ShortID(), 8)

	m := dex.NewMethod("LFoo;", "bar", "V", dex.AccPublic, []string{"I"}, dex.NewCode())
	run.AddResults([]*resolver.Result{
		{
			Signature: &signature.MethodSignature{Name: "bar"},
			Method:    m,
			Scan: &resolver.PatternScanResult{StartIndex: 2, EndIndex: 5, Warnings: []resolver.Warning{
				{CorrectOpcode: dex.OpNop, PatternOpcode: dex.OpReturnVoid, InstructionIndex: 3, PatternIndex: 1},
				{CorrectOpcode: dex.OpNop, PatternOpcode: dex.OpMove, InstructionIndex: 4, PatternIndex: 2},
			}},
		},
	})

	require.Len(t, run.Matches, 1)
	got := run.Matches[0]
	assert.Equal(t, run.ID, got.RunID)
	assert.Equal(t, "LFoo;", got.Class)
	assert.Equal(t, "LFoo;->bar(I)V", got.Method)
	assert.Equal(t, 2, got.StartIndex)
	assert.Equal(t, 5, got.EndIndex)
	assert.Equal(t, 2, got.Warnings)
	assert.Equal(t, "insn 3: found nop, pattern[1] wants return-void\ninsn 4: found nop, pattern[2] wants move", got.Details)
}
