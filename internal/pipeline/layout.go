package pipeline

import (
	"path"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/zulandar/takehome/internal/models"
)

// Artifact file names, relative to a job directory.
const (
	ResearchReportFile = "research_report.txt"
	AssignmentsFile    = "assignments.json"
	AssignmentsMDFile  = "assignments.md"
	DatasetsDir        = "datasets"
	IndexFile          = "index.html"
	StarterCodeDir     = "starter_code"
	StylesFile         = "styles.css"
	DesignNotesFile    = "design_notes.md"
)

// OutputURLPrefix is the front door path under which job directories are served.
const OutputURLPrefix = "/output/"

// Layout locates the artifacts of one job.
type Layout struct {
	Root string
	Dir  string
}

// NewLayout names the job directory <role>_<level>_<YYYYMMDD_HHMMSS>_<NNNN>
// under root, where NNNN is the hash suffix of jobID. Requests whose role
// and level slug alike still get distinct directories.
func NewLayout(root, jobID string, req models.JobRequest, now time.Time) Layout {
	name := slug(req.JobRole) + "_" + slug(req.JobLevel) + "_" + now.Format("20060102_150405")
	if suffix := idSuffix(jobID); suffix != "" {
		name += "_" + suffix
	}
	return Layout{Root: root, Dir: filepath.Join(root, name)}
}

// idSuffix returns the part of a job id after its last underscore, reduced
// to letters and digits.
func idSuffix(jobID string) string {
	if i := strings.LastIndexByte(jobID, '_'); i >= 0 {
		jobID = jobID[i+1:]
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, jobID)
}

// Name returns the job directory's base name.
func (l Layout) Name() string {
	return filepath.Base(l.Dir)
}

// Path joins rel onto the job directory.
func (l Layout) Path(rel ...string) string {
	return filepath.Join(append([]string{l.Dir}, rel...)...)
}

func (l Layout) ResearchReport() string { return l.Path(ResearchReportFile) }
func (l Layout) Assignments() string    { return l.Path(AssignmentsFile) }
func (l Layout) AssignmentsMD() string  { return l.Path(AssignmentsMDFile) }
func (l Layout) Datasets() string       { return l.Path(DatasetsDir) }
func (l Layout) IndexHTML() string      { return l.Path(IndexFile) }
func (l Layout) StarterCode() string    { return l.Path(StarterCodeDir) }
func (l Layout) Styles() string         { return l.Path(StylesFile) }
func (l Layout) DesignNotes() string    { return l.Path(DesignNotesFile) }

// URL returns the front door URL path of an artifact.
func (l Layout) URL(rel string) string {
	return OutputURLPrefix + path.Join(l.Name(), filepath.ToSlash(rel))
}

// IndexURL returns the URL path of the job's portal page.
func (l Layout) IndexURL() string {
	return l.URL(IndexFile)
}

// slug lower-cases s and replaces anything but letters and digits with '_'.
func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := b.String()
	if out == "" {
		return "job"
	}
	return out
}
