package logcapture

import (
	"strings"
	"testing"
)

func TestClean_StripsANSI(t *testing.T) {
	in := "\x1b[1;32mGreen text\x1b[0m and [33mbare yellow[0m"
	got := Clean(in)
	if got != "Green text and bare yellow" {
		t.Errorf("Clean = %q", got)
	}
	if strings.ContainsRune(got, '\x1b') {
		t.Error("output still contains ESC")
	}
}

func TestClean_StripsOtherEscapes(t *testing.T) {
	in := "\x1b]0;window title\x07visible\x1b[2K\x1b[?25l"
	if got := Clean(in); got != "visible" {
		t.Errorf("Clean = %q, want %q", got, "visible")
	}
}

func TestClean_StripsBoxDrawing(t *testing.T) {
	in := "╭──────────╮\n│ Agent: Researcher │\n╰──────────╯"
	got := Clean(in)
	if got != "Agent: Researcher" {
		t.Errorf("Clean = %q, want %q", got, "Agent: Researcher")
	}
	for _, r := range got {
		if r >= 0x2500 && r <= 0x257F {
			t.Errorf("box-drawing rune %U survived", r)
		}
	}
}

func TestClean_DropsDecorationLines(t *testing.T) {
	in := "start\n----------\n__________\n  - _ -  \nend"
	if got := Clean(in); got != "start\nend" {
		t.Errorf("Clean = %q, want %q", got, "start\nend")
	}
}

func TestClean_DropsShortBanners(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"🚀 Crew Execution Started", ""},
		{"Crew Execution Completed", ""},
		{"Task Completion", ""},
		{"Task Failure", ""},
		{"Crew Failure", ""},
		{"Memory Retrieval", ""},
		{"Tool Args: {}", ""},
		{"ID: 1234", ""},
		{"Name: research", ""},
		{"Plain progress line", "Plain progress line"},
	}
	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClean_KeepsLongLinesWithMarkers(t *testing.T) {
	long := "Name: the assignment covers distributed caching, queues and more"
	if len([]rune(long)) < 50 {
		t.Fatal("fixture too short")
	}
	if got := Clean(long); got != long {
		t.Errorf("Clean = %q, want long marker line kept", got)
	}
}

func TestClean_CollapsesBlankRuns(t *testing.T) {
	in := "a\n\n\n\n\nb\n\nc"
	if got := Clean(in); got != "a\n\nb\n\nc" {
		t.Errorf("Clean = %q", got)
	}
	if strings.Contains(Clean("x\n\n\n\ny"), "\n\n\n") {
		t.Error("three blank lines survived")
	}
}

func TestClean_TrimsLinesAndEdges(t *testing.T) {
	in := "\n\n   padded   \n\t tabbed\t\n\n"
	if got := Clean(in); got != "padded\ntabbed" {
		t.Errorf("Clean = %q", got)
	}
}

func TestClean_CRLF(t *testing.T) {
	if got := Clean("a\r\nb\rc"); got != "a\nb\nc" {
		t.Errorf("Clean = %q", got)
	}
}

func TestClean_PlainTextUnchanged(t *testing.T) {
	inputs := []string{
		"Research complete.",
		"Found 8 results\nWriting report\n\nDone",
		"한국어 로그 메시지",
		"📊 Generating dataset: users.csv (200 rows)",
	}
	for _, in := range inputs {
		if got := Clean(in); got != in {
			t.Errorf("Clean(%q) = %q, want unchanged", in, got)
		}
	}
}

func TestClean_Idempotent(t *testing.T) {
	inputs := []string{
		"\x1b[31m╭─ Crew Execution Started ─╮\x1b[0m\n│ working │\n\n\n\n---\nName: x\nresult [[1m;2m",
		"  a  \n\n\n b ",
		"",
		"[1;31m[0m",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestLines(t *testing.T) {
	got := Lines("\x1b[1mfirst\x1b[0m\n\n\n──────\nsecond\n")
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("Lines = %q", got)
	}
	if Lines("────\n\n") != nil {
		t.Error("decoration-only input should yield no lines")
	}
}
