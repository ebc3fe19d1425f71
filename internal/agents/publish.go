package agents

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"

	"github.com/zulandar/takehome/internal/pipeline"
)

// ContentsService is the subset of the GitHub repository contents API the
// publish stage uses. *github.RepositoriesService satisfies it.
type ContentsService interface {
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
}

// NewGitHubContents returns the contents API authenticated with token.
func NewGitHubContents(ctx context.Context, token string) ContentsService {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return github.NewClient(httpClient).Repositories
}

// publishedFiles are the top-level artifacts pushed when present.
var publishedFiles = []string{
	pipeline.IndexFile,
	pipeline.StylesFile,
	pipeline.DesignNotesFile,
	pipeline.AssignmentsFile,
	pipeline.AssignmentsMDFile,
}

// publishedDirs are pushed recursively when present.
var publishedDirs = []string{
	pipeline.DatasetsDir,
	pipeline.StarterCodeDir,
}

func publishStage(d Deps) pipeline.Stage {
	return pipeline.Stage{
		ID:       StagePublish,
		Name:     "Publisher",
		Icon:     "🚀",
		Role:     "GitHub Publishing",
		Progress: "Publishing the portal...",
		Policy:   pipeline.Tolerated,
		Requires: []string{pipeline.IndexFile},
		Validate: func() error {
			if d.Config.Secrets.GitHubToken == "" {
				return fmt.Errorf("GITHUB_TOKEN must be set to publish")
			}
			return nil
		},
		Run: func(ctx context.Context, job *pipeline.Job) error {
			p := publisher{api: d.GitHub, owner: d.Config.Publish.Owner, repo: d.Config.Publish.Repo,
				branch: d.Config.Publish.Branch, prefix: d.Config.Publish.PathPrefix}
			return p.publish(ctx, job)
		},
	}
}

type publisher struct {
	api    ContentsService
	owner  string
	repo   string
	branch string
	prefix string
}

// PublishedArtifacts lists the job directory files the publish stage
// pushes, relative and slash-separated, in a stable order.
func PublishedArtifacts(layout pipeline.Layout) ([]string, error) {
	var files []string
	for _, name := range publishedFiles {
		if info, err := os.Stat(layout.Path(name)); err == nil && info.Mode().IsRegular() {
			files = append(files, name)
		}
	}
	for _, dir := range publishedDirs {
		root := layout.Path(dir)
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		var nested []string
		err := filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !entry.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(layout.Dir, p)
			if err != nil {
				return err
			}
			nested = append(nested, filepath.ToSlash(rel))
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", dir, err)
		}
		sort.Strings(nested)
		files = append(files, nested...)
	}
	return files, nil
}

func (p publisher) remotePath(layout pipeline.Layout, rel string) string {
	return path.Join(strings.Trim(p.prefix, "/"), layout.Name(), rel)
}

func (p publisher) publish(ctx context.Context, job *pipeline.Job) error {
	files, err := PublishedArtifacts(job.Layout)
	if err != nil {
		return err
	}
	job.Printf("--- Publishing %d files to %s/%s@%s ---", len(files), p.owner, p.repo, p.branch)

	for _, rel := range files {
		content, err := os.ReadFile(job.Layout.Path(filepath.FromSlash(rel)))
		if err != nil {
			return fmt.Errorf("read %s: %w", rel, err)
		}
		remote := p.remotePath(job.Layout, rel)
		if err := p.put(ctx, remote, content, fmt.Sprintf("Publish %s/%s", job.Layout.Name(), rel)); err != nil {
			return fmt.Errorf("publish %s: %w", remote, err)
		}
	}
	job.Printf("--- Published to https://github.com/%s/%s/tree/%s/%s ---",
		p.owner, p.repo, p.branch, p.remotePath(job.Layout, ""))
	return nil
}

// put creates the file or, when it already exists, updates it by sha.
func (p publisher) put(ctx context.Context, remote string, content []byte, message string) error {
	opts := &github.RepositoryContentFileOptions{
		Message: github.Ptr(message),
		Content: content,
	}
	if p.branch != "" {
		opts.Branch = github.Ptr(p.branch)
	}

	existing, _, resp, err := p.api.GetContents(ctx, p.owner, p.repo, remote, &github.RepositoryContentGetOptions{Ref: p.branch})
	switch {
	case err == nil && existing != nil:
		opts.SHA = existing.SHA
		_, _, err = p.api.UpdateFile(ctx, p.owner, p.repo, remote, opts)
		return err
	case err != nil && (resp == nil || resp.StatusCode != http.StatusNotFound):
		return err
	}
	_, _, err = p.api.CreateFile(ctx, p.owner, p.repo, remote, opts)
	return err
}
