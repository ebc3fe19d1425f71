package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"strings"
	"text/template"

	"github.com/zulandar/takehome/internal/assignment"
	"github.com/zulandar/takehome/internal/llm"
	"github.com/zulandar/takehome/internal/pipeline"
)

const starterSystem = `You are a senior engineer at {{COMPANY}}. You give candidates concise starter code so they can begin quickly. ` +
	`Comments and explanations follow the requested language while the code follows the conventions of its programming language. ` +
	`Reply with a single fenced code block.`

var starterPrompt = template.Must(template.New("starter").Funcs(templateFuncs).Parse(`Assignment:
ID: {{ .ID }}
Title: {{ .Title }}
Mission: {{ .Mission }}
Summary: {{ .Summary }}
Key requirements:
{{- range .Requirements }}
- {{ . }}
{{- else }}
- [not provided]
{{- end }}

Datasets:
{{ .Datasets }}

Starter code requirements:
{{ .Description }}

Reference site: {{ .SiteURL }}
Comment language: {{ .Language }}

Instructions:
1. Write the smallest runnable or template code that fits in one {{ .CodeLanguage }} file.
2. Define models, DTOs or mock data based on the dataset previews.
3. There is no public API; where a network call would go, use a mock or a placeholder comment.
4. Put any explanation in code comments only and return one code block.
`))

func starterStage(d Deps) pipeline.Stage {
	return pipeline.Stage{
		ID:       StageStarter,
		Name:     "Starter Code Engineer",
		Icon:     "🧰",
		Role:     "Starter Code",
		Progress: "Generating starter code...",
		Policy:   pipeline.Tolerated,
		Requires: []string{pipeline.AssignmentsFile},
		Validate: d.requireLLM,
		Run: func(ctx context.Context, job *pipeline.Job) error {
			return runStarter(ctx, d, job)
		},
	}
}

func runStarter(ctx context.Context, d Deps, job *pipeline.Job) error {
	doc, err := assignment.Load(job.Layout.Assignments())
	if err != nil {
		return err
	}
	if len(doc.Assignments) == 0 {
		job.Printf("--- No assignments available for starter code generation. ---")
		return nil
	}
	if err := os.MkdirAll(job.Layout.StarterCode(), 0o755); err != nil {
		return fmt.Errorf("create starter code dir: %w", err)
	}

	system := strings.ReplaceAll(starterSystem, "{{COMPANY}}", d.Config.Portal.Company)
	for i := range doc.Assignments {
		a := &doc.Assignments[i]
		id := a.AssignmentID(i + 1)
		lang, filename := assignment.StarterFile(*a, i+1)

		prompt, err := starterPromptFor(job, *a, id, lang, d.Config.Portal.SiteURL)
		if err != nil {
			return err
		}
		raw, err := d.complete(ctx, StageStarter, system, prompt)
		if err != nil {
			return fmt.Errorf("starter code for %s: %w", id, err)
		}
		code := assignment.SanitizeText(llm.ParseCodeBlock(raw), job.Request.Language)
		if strings.TrimSpace(code) == "" {
			return fmt.Errorf("starter code generation failed for assignment %s", id)
		}

		rel := path.Join(pipeline.StarterCodeDir, filename)
		if err := writeFile(job.Layout.Path(rel), code+"\n"); err != nil {
			return err
		}
		a.StarterCode.Language = lang
		a.StarterCode.Filename = filename
		a.StarterCode.Path = rel
		a.StarterCode.DownloadHref = rel
		job.Printf("--- Starter code saved: %s", rel)
	}

	return assignment.Save(job.Layout.Assignments(), doc)
}

func starterPromptFor(job *pipeline.Job, a assignment.Assignment, id, lang, siteURL string) (string, error) {
	previews := make([]datasetPreview, 0, len(a.Datasets))
	for _, ds := range a.Datasets {
		previews = append(previews, previewDataset(job.Layout, ds))
	}
	datasets, err := json.MarshalIndent(previews, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode dataset previews: %w", err)
	}

	description := a.StarterCode.Description
	if description == "" {
		description = "Provide the skeleton of the core feature."
	}
	return render(starterPrompt, map[string]any{
		"ID":           id,
		"Title":        a.Title,
		"Mission":      a.Mission,
		"Summary":      a.Summary,
		"Requirements": nonEmpty(a.Requirements),
		"Datasets":     string(datasets),
		"Description":  description,
		"SiteURL":      siteURL,
		"Language":     job.Request.Language,
		"CodeLanguage": lang,
	})
}
