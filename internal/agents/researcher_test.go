package agents

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zulandar/takehome/internal/search"
)

func TestResearchTopic(t *testing.T) {
	got := ResearchTopic("iOS Developer", "Senior", fixedNow)
	if !strings.HasPrefix(got, "2025-03 Senior iOS Developer OTA take-home coding assignments") {
		t.Errorf("topic = %q", got)
	}
}

func TestResearchQueries(t *testing.T) {
	qs := ResearchQueries("iOS Developer", "Senior", fixedNow)
	if len(qs) != 4 {
		t.Fatalf("len = %d, want 4", len(qs))
	}
	if qs[0] != "iOS Developer take-home assignment best practices 2025" {
		t.Errorf("qs[0] = %q", qs[0])
	}
	if qs[3] != "OTA travel company coding assignment examples" {
		t.Errorf("qs[3] = %q", qs[3])
	}
}

func TestRunResearch_WritesReport(t *testing.T) {
	fl := &fakeLLM{replies: []string{"Key Skills:\n- Kotlin\nSources:\n- https://a.example"}}
	fs := &fakeSearch{results: []search.Result{{Title: "Trends", Link: "https://a.example", Snippet: "AI allowed"}}}
	job, out := newTestJob(t, "Korean")

	if err := runResearch(context.Background(), testDeps(fl, fs), job); err != nil {
		t.Fatalf("runResearch: %v", err)
	}

	if len(fs.queries) != 4 {
		t.Errorf("searches = %d, want 4", len(fs.queries))
	}
	report := readFile(t, job.Layout.ResearchReport())
	if !strings.HasPrefix(report, "Key Skills:") || !strings.HasSuffix(report, "\n") {
		t.Errorf("report = %q", report)
	}

	prompt := fl.prompt(0)
	for _, want := range []string{"Acme Travel", "March 2025", "- Trends\n  https://a.example\n  AI allowed", "Sources:"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if fl.requests[0].Temperature != 0 || fl.requests[0].Label != "research" {
		t.Errorf("request = %+v", fl.requests[0])
	}
	if !strings.Contains(out.String(), "Found 1 results") {
		t.Errorf("log = %q", out.String())
	}
}

func TestRunResearch_SearchErrorIsReported(t *testing.T) {
	fl := &fakeLLM{replies: []string{"report"}}
	fs := &fakeSearch{err: errors.New("quota exceeded")}
	job, out := newTestJob(t, "English")

	if err := runResearch(context.Background(), testDeps(fl, fs), job); err != nil {
		t.Fatalf("runResearch: %v", err)
	}
	if !strings.Contains(fl.prompt(0), "Error during recent search: quota exceeded") {
		t.Error("search error should reach the prompt")
	}
	if !strings.Contains(out.String(), "Search error") {
		t.Errorf("log = %q", out.String())
	}
}

func TestRunResearch_NotConfigured(t *testing.T) {
	fs := &fakeSearch{err: search.ErrNotConfigured}
	job, _ := newTestJob(t, "English")
	err := runResearch(context.Background(), testDeps(&fakeLLM{replies: []string{"x"}}, fs), job)
	if !errors.Is(err, search.ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestRunResearch_LLMError(t *testing.T) {
	fl := &fakeLLM{err: errors.New("boom")}
	job, _ := newTestJob(t, "English")
	err := runResearch(context.Background(), testDeps(fl, &fakeSearch{}), job)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v", err)
	}
}
