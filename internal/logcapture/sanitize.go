// Package logcapture turns raw stage output into clean, human-readable log
// lines and delivers them to a job's log.
package logcapture

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// ansiPattern matches CSI and OSC escape sequences.
	ansiPattern = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[@-Z\\-_]`)
	// bareColorPattern matches colour codes whose ESC byte was already lost.
	bareColorPattern = regexp.MustCompile(`\[[0-9;]+m`)
	blankRunPattern  = regexp.MustCompile(`\n{3,}`)
)

// bannerMarkers identify short framework banner lines that carry no content.
var bannerMarkers = []string{
	"Crew Execution Started",
	"Crew Execution Completed",
	"Crew Failure",
	"Task Completion",
	"Task Failure",
	"Memory Retrieval",
	"Tool Args:",
	"ID:",
	"Name:",
}

// bannerMaxLen is the rune length under which a marker line counts as a banner.
const bannerMaxLen = 50

// Clean strips terminal decoration from text: escape sequences, box-drawing
// glyphs, decoration-only lines and short banner lines. Lines are trimmed,
// runs of blank lines collapse to one and leading/trailing blank lines are
// dropped. Clean is idempotent.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = ansiPattern.ReplaceAllString(text, "")
	for bareColorPattern.MatchString(text) {
		text = bareColorPattern.ReplaceAllString(text, "")
	}
	text = strings.ReplaceAll(text, "\x1b", "")
	text = strings.Map(dropBoxDrawing, text)

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			kept = append(kept, "")
			continue
		}
		if isDecoration(trimmed) || isBanner(trimmed) {
			continue
		}
		kept = append(kept, trimmed)
	}

	out := strings.Join(kept, "\n")
	out = blankRunPattern.ReplaceAllString(out, "\n\n")
	return strings.Trim(out, "\n")
}

// Lines returns the non-empty lines of Clean(text).
func Lines(text string) []string {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}
	var out []string
	for _, line := range strings.Split(cleaned, "\n") {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// dropBoxDrawing removes every code point of the Box Drawing block.
func dropBoxDrawing(r rune) rune {
	if r >= 0x2500 && r <= 0x257F {
		return -1
	}
	return r
}

// isDecoration reports whether line is made only of dashes, underscores
// and whitespace.
func isDecoration(line string) bool {
	for _, r := range line {
		switch r {
		case '-', '_', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

func isBanner(line string) bool {
	if utf8.RuneCountInString(line) >= bannerMaxLen {
		return false
	}
	for _, marker := range bannerMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}
