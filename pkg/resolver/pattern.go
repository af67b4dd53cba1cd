package resolver

import (
	"fmt"

	"github.com/blacktop/dexsig/pkg/dex"
	"github.com/blacktop/dexsig/pkg/signature"
)

// Warning records a window position where the instruction differs from a
// concrete pattern opcode and was only accepted under fuzzy tolerance.
type Warning struct {
	CorrectOpcode    dex.Opcode `json:"correct_opcode"`
	PatternOpcode    dex.Opcode `json:"pattern_opcode"`
	InstructionIndex int        `json:"instruction_index"`
	PatternIndex     int        `json:"pattern_index"`
}

func (w Warning) String() string {
	return fmt.Sprintf("insn %d: found %s, pattern[%d] wants %s", w.InstructionIndex, w.CorrectOpcode, w.PatternIndex, w.PatternOpcode)
}

// PatternScanResult is the instruction window that satisfied an opcode
// pattern. Both indices are inclusive. Signatures without a pattern produce
// the zero window {0, 0}.
type PatternScanResult struct {
	StartIndex int       `json:"start_index"`
	EndIndex   int       `json:"end_index"`
	Warnings   []Warning `json:"warnings,omitempty"`
}

// Exact reports whether the window matched without any tolerated mismatch.
func (r *PatternScanResult) Exact() bool {
	return len(r.Warnings) == 0
}

// ScanPattern slides pattern over ops and returns the leftmost window with at
// most tolerance concrete mismatches. Wildcards match anything for free.
// An empty pattern never matches.
func ScanPattern(ops []dex.Opcode, pattern signature.Pattern, tolerance int) (*PatternScanResult, bool) {
	if len(pattern) == 0 {
		return nil, false
	}
	for i := range ops {
		budget := tolerance
		for j := 0; i+j < len(ops); j++ {
			if !pattern[j].Matches(ops[i+j]) {
				if budget <= 0 {
					break
				}
				budget--
			}
			if j+1 < len(pattern) {
				continue
			}
			result := &PatternScanResult{
				StartIndex: i,
				EndIndex:   i + j,
			}
			result.Warnings = generateWarnings(ops, pattern, result)
			return result, true
		}
	}
	return nil, false
}

func generateWarnings(ops []dex.Opcode, pattern signature.Pattern, result *PatternScanResult) []Warning {
	var warnings []Warning
	for i := result.StartIndex; i <= result.EndIndex; i++ {
		j := i - result.StartIndex
		if pattern[j].Wildcard || pattern[j].Opcode == ops[i] {
			continue
		}
		warnings = append(warnings, Warning{
			CorrectOpcode:    ops[i],
			PatternOpcode:    pattern[j].Opcode,
			InstructionIndex: i,
			PatternIndex:     j,
		})
	}
	return warnings
}
