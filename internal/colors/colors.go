// Package colors provides the CLI output palette with TTY-aware defaults.
//
// Colors are automatically disabled when stdout is not a terminal (piped or
// redirected to a file). This behavior is provided by the underlying fatih/color
// library and respected by default. Use Init() to override based on CLI flags.
package colors

import "github.com/fatih/color"

// Init allows overriding the auto-detected color setting.
//   - forceColor == nil: keep auto-detected value (recommended default)
//   - forceColor == true: force colors on (e.g., --color flag)
//   - forceColor == false: force colors off (e.g., CLICOLOR=0)
func Init(forceColor *bool) {
	if forceColor != nil {
		color.NoColor = !*forceColor
	}
}

// Enabled returns true if colors are currently enabled.
func Enabled() bool {
	return !color.NoColor
}

var (
	// Resolved signature names.
	Match = color.New(color.Bold, color.FgHiGreen).SprintFunc()
	// Unresolved signature names.
	Miss = color.New(color.Bold, color.FgHiRed).SprintFunc()
	// Method references.
	Method = color.New(color.FgHiBlue).SprintFunc()
	// Fuzzy match warnings.
	Warning = color.New(color.FgYellow).SprintFunc()
	// File names and IDs.
	File = color.New(color.Bold).SprintFunc()
)
