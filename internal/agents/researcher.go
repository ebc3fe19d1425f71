package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/zulandar/takehome/internal/pipeline"
	"github.com/zulandar/takehome/internal/search"
)

const researchSystem = `You are a research analyst who studies technical hiring practices. ` +
	`You only report what the supplied search results support and you always cite source URLs.`

var researchPrompt = template.Must(template.New("research").Funcs(templateFuncs).Parse(`Topic: {{ .Topic }}

You are analyzing the latest take-home coding assignment expectations for {{ .Level }} {{ .Role }} roles in OTA travel companies (e.g. {{ .Company }} and global OTA peers) as of {{ .Month }}.
The searches below were restricted to the past {{ .Months }} months.
{{ range .Searches }}
## Search: {{ .Query }}
{{ .Results }}
{{ end }}
Write a concise research report in plain text with these sections:

Key Skills for {{ .Level }} {{ .Role }}:
- 5-7 technical skills found in the sources

Assignment Characteristics:
- typical scope, timeline and complexity

Evaluation Criteria:
- what companies look for, including AI usage policies

Recommendations for {{ .Company }}:
- 3-5 specific recommendations

Consensus, disagreements and gaps in evidence:
- short bullets

Sources:
- the source URLs you relied on
`))

type researchSearch struct {
	Query   string
	Results string
}

// ResearchTopic composes the research topic for a role and level.
func ResearchTopic(role, level string, now time.Time) string {
	return fmt.Sprintf("%s %s %s OTA take-home coding assignments: interview expectations, "+
		"evaluation criteria, AI usage policies, and best practices", now.Format("2006-01"), level, role)
}

// ResearchQueries returns the searches run for a role and level.
func ResearchQueries(role, level string, now time.Time) []string {
	year := now.Year()
	return []string{
		fmt.Sprintf("%s take-home assignment best practices %d", role, year),
		fmt.Sprintf("%s level coding interview expectations OTA", level),
		fmt.Sprintf("%s technical skills evaluation criteria", role),
		"OTA travel company coding assignment examples",
	}
}

func researchStage(d Deps) pipeline.Stage {
	return pipeline.Stage{
		ID:       StageResearch,
		Name:     "Research Analyst",
		Icon:     "🔍",
		Role:     "Industry Research",
		Progress: "Researching industry trends...",
		Policy:   pipeline.Fatal,
		Validate: func() error {
			if err := d.requireLLM(); err != nil {
				return err
			}
			return d.Config.Secrets.RequireSearch()
		},
		Run: func(ctx context.Context, job *pipeline.Job) error {
			return runResearch(ctx, d, job)
		},
	}
}

func runResearch(ctx context.Context, d Deps, job *pipeline.Job) error {
	now := d.now()
	role, level := job.Request.JobRole, job.Request.JobLevel
	topic := ResearchTopic(role, level, now)

	job.Printf("--- Starting research on: %s ---", topic)
	job.Printf("🔍 Research Tool: Google Custom Search Engine (last %d months)", d.Config.Search.RecentMonths)

	var searches []researchSearch
	for _, q := range ResearchQueries(role, level, now) {
		job.Printf("🔍 Searching Google CSE: '%s'", q)
		results, err := d.Search.Search(ctx, q)
		var text string
		switch {
		case errors.Is(err, search.ErrNotConfigured):
			return err
		case err != nil:
			// A failed query is reported to the model rather than aborting.
			job.Printf("   ⚠️  Search error: %v", err)
			text = fmt.Sprintf("Error during recent search: %v", err)
		default:
			if len(results) == 0 {
				job.Printf("   ⚠️  No results found")
			} else {
				job.Printf("   ✅ Found %d results from Google CSE", len(results))
			}
			text = search.Format(results)
		}
		searches = append(searches, researchSearch{Query: q, Results: text})
	}

	prompt, err := render(researchPrompt, map[string]any{
		"Topic":    topic,
		"Role":     role,
		"Level":    level,
		"Company":  d.Config.Portal.Company,
		"Month":    now.Format("January 2006"),
		"Months":   d.Config.Search.RecentMonths,
		"Searches": searches,
	})
	if err != nil {
		return err
	}

	report, err := d.complete(ctx, StageResearch, researchSystem, prompt)
	if err != nil {
		return fmt.Errorf("research summary: %w", err)
	}
	report = strings.TrimSpace(report)
	if report == "" {
		return fmt.Errorf("research summary is empty")
	}
	if err := writeFile(job.Layout.ResearchReport(), report+"\n"); err != nil {
		return err
	}
	job.Printf("--- Research report saved to: %s ---", pipeline.ResearchReportFile)
	return nil
}
