package utils

import (
	"strings"

	"github.com/apex/log/handlers/cli"
)

var normalPadding = cli.Default.Padding

// Indent indents apex log line to supplied level
func Indent(f func(s string), level int) func(string) {
	return func(s string) {
		cli.Default.Padding = normalPadding * level
		f(s)
		cli.Default.Padding = normalPadding
	}
}

// Pad creates left padding for printf members
func Pad(length int) string {
	if length > 0 {
		return strings.Repeat(" ", length)
	}
	return " "
}

// Unique returns the non-empty strings of s without repeats, in first seen order
func Unique(s []string) []string {
	unique := make(map[string]bool, len(s))
	us := make([]string, 0, len(s))
	for _, elem := range s {
		if len(elem) != 0 {
			if !unique[elem] {
				us = append(us, elem)
				unique[elem] = true
			}
		}
	}

	return us
}

// Duplicates returns the strings that occur more than once in s, in first repeat order
func Duplicates(s []string) []string {
	seen := make(map[string]int, len(s))
	var dups []string
	for _, elem := range s {
		seen[elem]++
		if seen[elem] == 2 {
			dups = append(dups, elem)
		}
	}
	return dups
}
