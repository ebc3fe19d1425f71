// Package agents implements the pipeline stages that produce a take-home
// portal: research, assignment design, datasets, the portal page, starter
// code, styling and optional publishing.
package agents

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/zulandar/takehome/internal/config"
	"github.com/zulandar/takehome/internal/llm"
	"github.com/zulandar/takehome/internal/models"
	"github.com/zulandar/takehome/internal/pipeline"
	"github.com/zulandar/takehome/internal/search"
)

// Stage ids in execution order.
const (
	StageResearch models.StageID = "research"
	StageDesign   models.StageID = "design"
	StageDatasets models.StageID = "datasets"
	StageWeb      models.StageID = "web"
	StageStarter  models.StageID = "starter"
	StageStyling  models.StageID = "styling"
	StagePublish  models.StageID = "publish"
)

// Deps are the collaborators shared by the stages.
type Deps struct {
	Config *config.Config
	LLM    llm.Completer
	Search search.Searcher

	// GitHub is the contents API used by the publish stage. The stage is
	// only added when publishing is configured and GitHub is set.
	GitHub ContentsService

	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

// Catalog returns the ordered stage list.
func Catalog(d Deps) []pipeline.Stage {
	stages := []pipeline.Stage{
		researchStage(d),
		designStage(d),
		datasetsStage(d),
		webStage(d),
		starterStage(d),
		stylingStage(d),
	}
	if d.Config.Publish.Enabled() && d.GitHub != nil {
		stages = append(stages, publishStage(d))
	}
	return stages
}

// complete sends one chat request with the stage's configured temperature.
func (d Deps) complete(ctx context.Context, stage models.StageID, system, user string) (string, error) {
	return d.LLM.Complete(ctx, llm.Request{
		Messages:    []llm.Message{llm.System(system), llm.User(user)},
		Temperature: d.Config.LLM.Temperature(string(stage)),
		Label:       string(stage),
	})
}

func (d Deps) requireLLM() error {
	if d.LLM == nil {
		return fmt.Errorf("no LLM client configured")
	}
	return d.Config.Secrets.RequireLLM()
}

var templateFuncs = template.FuncMap{
	"join": strings.Join,
}

// render executes a prompt template.
func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
