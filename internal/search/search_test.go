package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		raw    string
		text   string
		months int
		num    int
	}{
		{"golang take-home trends", "golang take-home trends", 6, 8},
		{"kotlin interview months:3 num:5", "kotlin interview", 3, 5},
		{"months:30 swift", "swift", 12, 8},
		{"num:0 react hiring", "react hiring", 6, 1},
		{"Months: 2 NUM : 20 data engineering", "data engineering", 2, 10},
		{"months:4", "months:4", 4, 8},
	}
	for _, tt := range tests {
		q := ParseQuery(tt.raw, 6, 8)
		if q.Text != tt.text || q.Months != tt.months || q.Num != tt.num {
			t.Errorf("ParseQuery(%q) = %+v, want {%q %d %d}", tt.raw, q, tt.text, tt.months, tt.num)
		}
	}
}

func TestSearch_NotConfigured(t *testing.T) {
	c := New(Options{APIKey: "k"})
	if _, err := c.Search(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("error = %v, want ErrNotConfigured", err)
	}
}

func TestSearch_RequestAndFiltering(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"items":[
			{"title":"Take-home trends\n2025","link":" https://a.example ","snippet":"Companies now allow AI"},
			{"title":"{\"raw\":1}","link":"https://b.example","snippet":"dump"},
			{"title":"No snippet","link":"https://c.example","snippet":""},
			{"title":"Second","link":"https://d.example","snippet":"[not a list really"},
			{"title":"Third","link":"https://e.example","snippet":"Rubrics and timelines"}
		]}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "key", EngineID: "cx", BaseURL: srv.URL, DefaultMonths: 6, DefaultNum: 8})
	results, err := c.Search(context.Background(), "senior backend take-home months:2 num:4")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}

	if got.Get("q") != "senior backend take-home" {
		t.Errorf("q = %q", got.Get("q"))
	}
	if got.Get("dateRestrict") != "m2" || got.Get("num") != "4" {
		t.Errorf("dateRestrict = %q num = %q", got.Get("dateRestrict"), got.Get("num"))
	}
	if got.Get("key") != "key" || got.Get("cx") != "cx" {
		t.Errorf("credentials not sent: %v", got)
	}

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2: %+v", len(results), results)
	}
	if results[0].Title != "Take-home trends 2025" || results[0].Link != "https://a.example" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].Title != "Third" {
		t.Errorf("results[1] = %+v", results[1])
	}
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":403,"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	c := New(Options{APIKey: "key", EngineID: "cx", BaseURL: srv.URL})
	_, err := c.Search(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("error = %v", err)
	}
}

func TestFormat(t *testing.T) {
	out := Format([]Result{
		{Title: "A", Link: "https://a", Snippet: "first"},
		{Title: "B", Link: "https://b", Snippet: "second"},
	})
	want := "- A\n  https://a\n  first\n- B\n  https://b\n  second"
	if out != want {
		t.Errorf("Format = %q, want %q", out, want)
	}
	if !strings.Contains(Format(nil), "No well-formed search results") {
		t.Errorf("empty Format = %q", Format(nil))
	}
}
