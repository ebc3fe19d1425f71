package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/zulandar/takehome/internal/llm"
	"github.com/zulandar/takehome/internal/pipeline"
	"github.com/zulandar/takehome/internal/search"
)

const (
	htmlExcerptLimit  = 6000
	designSearchQuery = "modern landing page design best practices typography accessibility months:3 num:6"
)

const stylingSystem = `You are a senior UI/UX architect who strictly follows WCAG 2.1 AA. ` +
	`Return nothing except the requested JSON object.`

var stylingPrompt = template.Must(template.New("styling").Parse(`Analyze the HTML structure below and design a design system that reflects current design and accessibility practice.

Output format (required):
{
  "css": "...",
  "design_summary": "...",
  "accessibility_notes": "...",
  "color_palette": ["#...", "#...", "#...", "#...", "#...", "#...", "#..."]
}

Guidelines:
- css contains section comments (1. Google Fonts Import, 2. CSS Variables, 3. Base Styles & Reset, 4. Layout & Components, 5. Responsive Queries, 6. Dark Mode).
- Build neutral and state colors on top of the brand colors deep blue #0F4C81, teal #1BA6A4 and accent orange #FF7A59.
- Define hover, focus and selected states for the key classes: .page-header, .assignments-tabs, .assignment-panel, .assignment-card, .apply-section.
- Write design_summary and accessibility_notes in {{ .Language }} and state the expectations for generative AI usage and review.
- Cover the sticky header, focus movement between tabs, tab accessibility patterns and call-to-action emphasis.
- Do not propose HTML changes or extra markup.

Recent design research:
{{ .Research }}

HTML under review (excerpt):
{{ .HTML }}
`))

// designResult is the styling reply.
type designResult struct {
	CSS                string   `json:"css"`
	DesignSummary      string   `json:"design_summary"`
	AccessibilityNotes string   `json:"accessibility_notes"`
	ColorPalette       []string `json:"color_palette"`
}

func stylingStage(d Deps) pipeline.Stage {
	return pipeline.Stage{
		ID:       StageStyling,
		Name:     "Web Designer",
		Icon:     "🎨",
		Role:     "Styling & Design",
		Progress: "Applying custom styling...",
		Policy:   pipeline.Tolerated,
		Requires: []string{pipeline.IndexFile},
		Validate: d.requireLLM,
		Run: func(ctx context.Context, job *pipeline.Job) error {
			return runStyling(ctx, d, job)
		},
	}
}

func runStyling(ctx context.Context, d Deps, job *pipeline.Job) error {
	html, err := os.ReadFile(job.Layout.IndexHTML())
	if err != nil {
		return fmt.Errorf("read portal: %w", err)
	}

	research := "No design references found."
	if d.Search != nil {
		results, err := d.Search.Search(ctx, designSearchQuery)
		switch {
		case errors.Is(err, search.ErrNotConfigured):
			research = "Google API key / CSE ID missing."
		case err != nil:
			research = fmt.Sprintf("Search error: %v", err)
		case len(results) > 0:
			research = search.Format(results)
		}
	}

	prompt, err := render(stylingPrompt, map[string]any{
		"Language": job.Request.Language,
		"Research": research,
		"HTML":     excerpt(string(html), htmlExcerptLimit),
	})
	if err != nil {
		return err
	}
	raw, err := d.complete(ctx, StageStyling, stylingSystem, prompt)
	if err != nil {
		return fmt.Errorf("styling: %w", err)
	}

	result, err := parseDesign(raw)
	if err != nil {
		return err
	}
	if err := writeFile(job.Layout.Styles(), strings.TrimSpace(result.CSS)+"\n"); err != nil {
		return err
	}
	job.Printf("--- CSS saved to %s ---", pipeline.StylesFile)

	if err := writeFile(job.Layout.DesignNotes(), DesignNotes(result.DesignSummary, result.AccessibilityNotes, result.ColorPalette)); err != nil {
		return err
	}
	job.Printf("--- Design notes saved to %s ---", pipeline.DesignNotesFile)
	return nil
}

func parseDesign(raw string) (designResult, error) {
	var result designResult
	cleaned := llm.ExtractJSONObject(raw)
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		if err := json.Unmarshal([]byte(llm.RepairJSON(cleaned)), &result); err != nil {
			return result, fmt.Errorf("failed to parse JSON from designer output: %w", err)
		}
	}
	if strings.TrimSpace(result.CSS) == "" {
		return result, fmt.Errorf("no CSS returned by design agent")
	}
	return result, nil
}

// DesignNotes renders design_notes.md.
func DesignNotes(summary, accessibility string, palette []string) string {
	var sections []string
	if s := strings.TrimSpace(summary); s != "" {
		sections = append(sections, "## Design Summary\n"+s)
	}
	if s := strings.TrimSpace(accessibility); s != "" {
		sections = append(sections, "## Accessibility Notes\n"+s)
	}
	if len(palette) > 0 {
		lines := make([]string, len(palette))
		for i, c := range palette {
			lines[i] = "- " + c
		}
		sections = append(sections, "## Color Palette\n"+strings.Join(lines, "\n"))
	}
	return strings.TrimSpace(strings.Join(sections, "\n\n")) + "\n"
}

// excerpt cuts s to at most n bytes without splitting a UTF-8 sequence.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
