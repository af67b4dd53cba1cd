package resolver

import (
	"slices"
	"strings"

	"github.com/blacktop/dexsig/pkg/dex"
	"github.com/blacktop/dexsig/pkg/signature"
)

// methodIndex is the part of a method's implementation the matchers read.
type methodIndex struct {
	hasCode bool
	opcodes []dex.Opcode
	strings []string
}

func indexMethod(m dex.Method) *methodIndex {
	impl := m.Implementation()
	if impl == nil {
		return &methodIndex{}
	}
	return &methodIndex{
		hasCode: true,
		opcodes: dex.Opcodes(impl),
		strings: dex.StringLiterals(impl),
	}
}

func matchReturnType(sig *signature.MethodSignature, m dex.Method) bool {
	return sig.ReturnType == nil || strings.HasPrefix(m.ReturnType(), *sig.ReturnType)
}

func matchAccessFlags(sig *signature.MethodSignature, m dex.Method) bool {
	return sig.AccessFlags == nil || *sig.AccessFlags == m.AccessFlags()
}

func matchParameters(sig *signature.MethodSignature, m dex.Method) bool {
	return sig.Parameters == nil || slices.Equal(sig.Parameters, m.ParameterTypes())
}

// matchStrings checks that every required literal is loaded by the method,
// counting duplicates.
func matchStrings(sig *signature.MethodSignature, idx *methodIndex) bool {
	if sig.Strings == nil {
		return true
	}
	if !idx.hasCode {
		return false
	}
	remaining := make(map[string]int, len(sig.Strings))
	for _, s := range sig.Strings {
		remaining[s]++
	}
	missing := len(sig.Strings)
	for _, s := range idx.strings {
		if remaining[s] > 0 {
			remaining[s]--
			missing--
		}
	}
	return missing == 0
}

func compareIndexed(sig *signature.MethodSignature, m dex.Method, idx func() *methodIndex) (*PatternScanResult, bool) {
	if !matchReturnType(sig, m) || !matchAccessFlags(sig, m) || !matchParameters(sig, m) {
		return nil, false
	}
	if sig.Strings == nil && sig.Opcodes == nil {
		return &PatternScanResult{}, true
	}
	mi := idx()
	if !matchStrings(sig, mi) {
		return nil, false
	}
	if sig.Opcodes == nil {
		return &PatternScanResult{}, true
	}
	if !mi.hasCode {
		return nil, false
	}
	return ScanPattern(mi.opcodes, sig.Opcodes, sig.FuzzyTolerance)
}

// Compare matches a single method against sig. The checks run in order
// return type, access flags, parameters, strings, opcodes and stop at the
// first failure.
func Compare(sig *signature.MethodSignature, m dex.Method) (*PatternScanResult, bool) {
	return compareIndexed(sig, m, func() *methodIndex { return indexMethod(m) })
}
