package agents

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"

	"github.com/zulandar/takehome/internal/assignment"
	"github.com/zulandar/takehome/internal/llm"
	"github.com/zulandar/takehome/internal/pipeline"
)

const designSystem = `You are a hiring director for an online travel agency (OTA). ` +
	`You return results as a single JSON object and nothing else.`

// assignmentSchema documents the expected reply shape for the model.
const assignmentSchema = `{
  "type": "object",
  "required": ["company", "job_role", "job_level", "assignments"],
  "properties": {
    "company": {"type": "string"},
    "job_role": {"type": "string"},
    "job_level": {"type": "string"},
    "assignments": {
      "type": "array",
      "minItems": {{ .Count }},
      "maxItems": {{ .Count }},
      "items": {
        "type": "object",
        "required": ["id", "title", "mission", "requirements", "deliverables", "ai_guidelines",
                     "evaluation", "timeline", "discussion_questions", "datasets", "starter_code"],
        "properties": {
          "id": {"type": "string"},
          "title": {"type": "string"},
          "mission": {"type": "string"},
          "summary": {"type": "string"},
          "requirements": {"type": "array", "items": {"type": "string"}},
          "deliverables": {"type": "array", "items": {"type": "string"}},
          "ai_guidelines": {"type": "array", "items": {"type": "string"}},
          "evaluation": {"type": "array", "items": {"type": "string"}},
          "timeline": {"type": "string"},
          "discussion_questions": {"type": "array", "minItems": 3, "maxItems": 5, "items": {"type": "string"}},
          "datasets": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["name", "format", "records", "columns"],
              "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "format": {"type": "string", "enum": ["csv", "json"]},
                "records": {"type": "integer", "minimum": 10, "maximum": 2000},
                "filename": {"type": "string"},
                "columns": {
                  "type": "array",
                  "minItems": 2,
                  "maxItems": 8,
                  "items": {
                    "type": "object",
                    "required": ["name"],
                    "properties": {
                      "name": {"type": "string"},
                      "type": {"type": "string", "enum": ["string", "text", "integer", "float", "boolean", "date", "datetime", "category"], "default": "string"},
                      "description": {"type": "string"},
                      "choices": {"type": "array", "items": {"type": "string"}}
                    }
                  }
                }
              }
            }
          },
          "starter_code": {
            "type": "object",
            "properties": {
              "language": {"type": "string"},
              "description": {"type": "string"},
              "filename": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`

var designPrompt = template.Must(template.New("design").Parse(`Company: {{ .Company }}
Role: {{ .Level }} {{ .Role }}
Language: {{ .Language }}

Research summary:
{{ .Research }}

Using the information above, design {{ .Count }} take-home assignments that fit an OTA service.
- Each assignment covers a different customer journey or OTA feature area; no two assignments pose the same problem.
- Every assignment includes at least one tailored dataset (datasets) and starter code metadata (starter_code) closely tied to its requirements.
- Dataset descriptions and columns carry the information needed to solve the problem; choose a realistic records value between 10 and 2000.
- starter_code names the language, the filename and what the file gives the candidate.
- Keep every description concise and practical. Write all prose in {{ .Language }}; technical terms (API, Swift, Compose) may stay in English.
{{- if .Korean }}
- Use only Korean and English technical terms. Never include Chinese characters.
{{- end }}

JSON Schema:
` + assignmentSchema + `
`))

func designStage(d Deps) pipeline.Stage {
	return pipeline.Stage{
		ID:       StageDesign,
		Name:     "Assignment Designer",
		Icon:     "✏️",
		Role:     "Question Creation",
		Progress: "Designing assignments...",
		Policy:   pipeline.Fatal,
		Requires: []string{pipeline.ResearchReportFile},
		Validate: d.requireLLM,
		Run: func(ctx context.Context, job *pipeline.Job) error {
			return runDesign(ctx, d, job)
		},
	}
}

func runDesign(ctx context.Context, d Deps, job *pipeline.Job) error {
	req := job.Request
	job.Printf("--- Generating assignments for: %s (%s) ---", req.JobRole, req.JobLevel)

	research, err := os.ReadFile(job.Layout.ResearchReport())
	if err != nil {
		return fmt.Errorf("read research report: %w", err)
	}

	prompt, err := render(designPrompt, map[string]any{
		"Company":  d.Config.Portal.Company,
		"Role":     req.JobRole,
		"Level":    req.JobLevel,
		"Language": req.Language,
		"Korean":   assignment.IsKorean(req.Language),
		"Research": strings.TrimSpace(string(research)),
		"Count":    d.Config.Jobs.Assignments,
	})
	if err != nil {
		return err
	}

	raw, err := d.complete(ctx, StageDesign, designSystem, prompt)
	if err != nil {
		return fmt.Errorf("assignment design: %w", err)
	}

	doc, err := parseAssignments(raw, job.Layout)
	if err != nil {
		return err
	}
	if len(doc.Assignments) == 0 {
		return fmt.Errorf("assignment design returned no assignments")
	}
	if n := d.Config.Jobs.Assignments; len(doc.Assignments) != n {
		job.Printf("⚠️  Expected %d assignments, got %d", n, len(doc.Assignments))
	}

	assignment.Sanitize(doc, req.Language)
	doc.Company = d.Config.Portal.Company
	doc.JobRole = req.JobRole
	doc.JobLevel = req.JobLevel

	if err := assignment.Save(job.Layout.Assignments(), doc); err != nil {
		return err
	}
	job.Printf("--- Assignments JSON saved to: %s ---", pipeline.AssignmentsFile)

	if err := writeFile(job.Layout.AssignmentsMD(), assignment.Markdown(doc, req.Language)); err != nil {
		return err
	}
	job.Printf("--- Preview markdown saved to: %s ---", pipeline.AssignmentsMDFile)
	return nil
}

// parseAssignments decodes the designer reply. When neither the extracted
// object nor its repaired form parses, the raw and cleaned replies are kept
// next to assignments.json for inspection.
func parseAssignments(raw string, layout pipeline.Layout) (*assignment.Document, error) {
	cleaned := llm.ExtractJSONObject(raw)
	doc, err := assignment.Parse([]byte(cleaned))
	if err == nil {
		return doc, nil
	}
	if repaired, rerr := assignment.Parse([]byte(llm.RepairJSON(cleaned))); rerr == nil {
		return repaired, nil
	}

	rawPath := layout.Path("assignments.raw.json")
	cleanedPath := layout.Path("assignments.cleaned.json")
	_ = os.WriteFile(rawPath, []byte(raw), 0o644)
	_ = os.WriteFile(cleanedPath, []byte(cleaned), 0o644)
	return nil, fmt.Errorf("failed to parse assignments JSON (raw output saved to assignments.raw.json, cleaned to assignments.cleaned.json): %w", err)
}
