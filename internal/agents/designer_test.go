package agents

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/zulandar/takehome/internal/assignment"
)

const designReply = "Here you go:\n```json\n" + `{
  "company": "Wrong Co",
  "job_role": "x",
  "job_level": "y",
  "assignments": [
    {"id": "a1", "title": "검색 화면漢", "mission": "구현", "requirements": ["페이징"],
     "datasets": [{"name": "hotels", "format": "csv", "records": 50, "columns": [{"name": "id", "type": "integer"}]}],
     "starter_code": {"language": "kotlin"}},
    {"id": "a2", "title": "리뷰", "mission": "구현", "datasets": [], "starter_code": {}}
  ]
}` + "\n```"

func writeResearch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("research findings"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRunDesign_WritesAssignments(t *testing.T) {
	fl := &fakeLLM{replies: []string{designReply}}
	job, _ := newTestJob(t, "Korean")
	writeResearch(t, job.Layout.ResearchReport())

	if err := runDesign(context.Background(), testDeps(fl, nil), job); err != nil {
		t.Fatalf("runDesign: %v", err)
	}

	doc, err := assignment.Load(job.Layout.Assignments())
	if err != nil {
		t.Fatal(err)
	}
	if doc.Company != "Acme Travel" || doc.JobRole != "Android Developer" || doc.JobLevel != "Senior" {
		t.Errorf("header = %q %q %q", doc.Company, doc.JobRole, doc.JobLevel)
	}
	if doc.Assignments[0].Title != "검색 화면" {
		t.Errorf("title = %q, want Han characters removed", doc.Assignments[0].Title)
	}

	md := readFile(t, job.Layout.AssignmentsMD())
	if !strings.Contains(md, "## 검색 화면") {
		t.Errorf("markdown = %q", md)
	}

	prompt := fl.prompt(0)
	for _, want := range []string{"research findings", `"minItems": 2`, "Never include Chinese characters"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestRunDesign_RepairsRawNewlines(t *testing.T) {
	reply := "{\"assignments\": [{\"id\": \"a1\", \"mission\": \"line one\nline two\"}]}"
	fl := &fakeLLM{replies: []string{reply}}
	job, _ := newTestJob(t, "English")
	writeResearch(t, job.Layout.ResearchReport())

	if err := runDesign(context.Background(), testDeps(fl, nil), job); err != nil {
		t.Fatalf("runDesign: %v", err)
	}
	doc, err := assignment.Load(job.Layout.Assignments())
	if err != nil {
		t.Fatal(err)
	}
	if doc.Assignments[0].Mission != "line one\nline two" {
		t.Errorf("mission = %q", doc.Assignments[0].Mission)
	}
}

func TestRunDesign_MalformedKeepsDebugFiles(t *testing.T) {
	fl := &fakeLLM{replies: []string{"Sorry, {not json at all"}}
	job, _ := newTestJob(t, "English")
	writeResearch(t, job.Layout.ResearchReport())

	err := runDesign(context.Background(), testDeps(fl, nil), job)
	if err == nil || !strings.Contains(err.Error(), "failed to parse assignments JSON") {
		t.Fatalf("err = %v", err)
	}
	if got := readFile(t, job.Layout.Path("assignments.raw.json")); got != "Sorry, {not json at all" {
		t.Errorf("raw = %q", got)
	}
	if got := readFile(t, job.Layout.Path("assignments.cleaned.json")); got != "Sorry, {not json at all" {
		t.Errorf("cleaned = %q", got)
	}
	if _, err := os.Stat(job.Layout.Assignments()); !os.IsNotExist(err) {
		t.Error("assignments.json should not be written")
	}
}

func TestRunDesign_NoAssignments(t *testing.T) {
	fl := &fakeLLM{replies: []string{`{"assignments": []}`}}
	job, _ := newTestJob(t, "English")
	writeResearch(t, job.Layout.ResearchReport())

	if err := runDesign(context.Background(), testDeps(fl, nil), job); err == nil {
		t.Fatal("expected error for an empty assignment list")
	}
}
