package llm

import (
	"encoding/json"
	"testing"
)

func TestStripThinkTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<think>reasoning</think>answer", "answer"},
		{"<THINKING>a\nb</THINKING>\n\nanswer", "answer"},
		{"leftover reasoning</think>\nanswer", "answer"},
		{"<think>never closed", ""},
		{"plain answer", "plain answer"},
	}
	for _, tt := range tests {
		if got := StripThinkTags(tt.in); got != tt.want {
			t.Errorf("StripThinkTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Here you go:\n{\"a\":{\"b\":2}}\nHope it helps!", `{"a":{"b":2}}`},
		{"braces in strings", `{"css":"a { color: red; }"} trailing }`, `{"css":"a { color: red; }"}`},
		{"escaped quote", `{"q":"say \"}\" now"}`, `{"q":"say \"}\" now"}`},
		{"no object", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSONObject(tt.in); got != tt.want {
				t.Errorf("ExtractJSONObject = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractJSONObject_Unbalanced(t *testing.T) {
	in := `{"a": {"b": 1} }}`
	if got := ExtractJSONObject(in); got != `{"a": {"b": 1} }` {
		t.Errorf("got %q", got)
	}
	truncated := `{"a": {"b": 1}`
	if got := ExtractJSONObject(truncated); got != `{"a": {"b": 1}` {
		t.Errorf("truncated got %q", got)
	}
}

func TestRepairJSON(t *testing.T) {
	broken := "{\"text\": \"line one\nline two\r\nline three\tend\", \"n\": 1}"
	fixed := RepairJSON(broken)

	var v struct {
		Text string `json:"text"`
		N    int    `json:"n"`
	}
	if err := json.Unmarshal([]byte(fixed), &v); err != nil {
		t.Fatalf("repaired JSON does not parse: %v (%q)", err, fixed)
	}
	if v.Text != "line one\nline two\nline three\tend" {
		t.Errorf("Text = %q", v.Text)
	}

	valid := "{\n  \"a\": \"b\\n\"\n}"
	if RepairJSON(valid) != valid {
		t.Errorf("valid JSON changed: %q", RepairJSON(valid))
	}
}

func TestParseCodeBlock(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Here:\n```kotlin\nfun main() {}\n```\nDone", "fun main() {}"},
		{"```c++\nint x;\n```", "int x;"},
		{"```\nprint(1)\n```", "print(1)"},
		{"```python\nfirst\n```\n```python\nsecond\n```", "first"},
		{"  no fences  ", "no fences"},
	}
	for _, tt := range tests {
		if got := ParseCodeBlock(tt.in); got != tt.want {
			t.Errorf("ParseCodeBlock(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
