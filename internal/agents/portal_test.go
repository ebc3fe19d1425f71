package agents

import (
	"context"
	"strings"
	"testing"
)

func TestRenderPortal_Korean(t *testing.T) {
	doc := sampleDoc()
	doc.Assignments[0].Datasets[0].DownloadHref = "datasets/hotel_search_01_hotels.csv"
	doc.Assignments[0].Datasets[0].Filename = "hotel_search_01_hotels.csv"

	html, err := RenderPortal(doc, "Korean", "https://acme.example", "https://careers.acme.example")
	if err != nil {
		t.Fatalf("RenderPortal: %v", err)
	}

	for _, want := range []string{
		`<html lang="ko">`,
		`<title>Acme Travel Take-Home Portal</title>`,
		`<link rel="stylesheet" href="styles.css" />`,
		`<h1 class="hero-section__title">Senior Android Developer</h1>`,
		`href="datasets/hotel_search_01_hotels.csv" download>hotels</a>`,
		`CSV · 12 rows · hotel_search_01_hotels.csv`,
		`href="starter_code/hotel_search_starter.kt"`,
		`href="starter_code/feed.py"`,
		`<li>How would you cache?</li>`,
		`기술 요구사항`,
		`href="https://careers.acme.example"`,
		`id="assignment-tab-2"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("portal missing %q", want)
		}
	}
	if strings.Count(html, "<li>Paging</li>") != 1 || strings.Contains(html, "<li></li>") {
		t.Error("blank list items should be dropped")
	}
	if !strings.Contains(html, `data-tab-panel="true" hidden="hidden"`) {
		t.Error("inactive panels should be hidden")
	}
}

func TestRenderPortal_EnglishAndEscaping(t *testing.T) {
	doc := sampleDoc()
	doc.Assignments[0].Title = `<script>alert("x")</script>`
	doc.Assignments[1].Title = ""

	html, err := RenderPortal(doc, "English", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(html, `<script>alert`) {
		t.Error("assignment text must be escaped")
	}
	if !strings.Contains(html, `<html lang="en">`) || !strings.Contains(html, "Technical requirements") {
		t.Error("expected English copy")
	}
	if !strings.Contains(html, ">Assignment 2</button>") {
		t.Error("untitled assignment should get a numbered title")
	}
}

func TestWebStage_WritesIndex(t *testing.T) {
	job, out := newTestJob(t, "Korean")
	writeDoc(t, job, sampleDoc())

	st := webStage(testDeps(nil, nil))
	if err := st.Run(context.Background(), job); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if html := readFile(t, job.Layout.IndexHTML()); !strings.HasPrefix(html, "<!DOCTYPE html>") {
		t.Errorf("index.html = %.40q", html)
	}
	if !strings.Contains(out.String(), "Web page generated") {
		t.Errorf("log = %q", out.String())
	}
}
