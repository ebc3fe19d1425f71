// Package assignment defines the assignments.json document shared by the
// design, dataset, portal and starter code stages.
package assignment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Document is the top level of assignments.json.
type Document struct {
	Company     string       `json:"company"`
	JobRole     string       `json:"job_role"`
	JobLevel    string       `json:"job_level"`
	Assignments []Assignment `json:"assignments"`
}

// Assignment is one take-home task.
type Assignment struct {
	ID                  string      `json:"id"`
	Title               string      `json:"title"`
	Mission             string      `json:"mission"`
	Summary             string      `json:"summary,omitempty"`
	Requirements        []string    `json:"requirements"`
	Deliverables        []string    `json:"deliverables"`
	AIGuidelines        []string    `json:"ai_guidelines"`
	Evaluation          []string    `json:"evaluation"`
	Timeline            string      `json:"timeline"`
	DiscussionQuestions []string    `json:"discussion_questions"`
	Datasets            []Dataset   `json:"datasets"`
	StarterCode         StarterCode `json:"starter_code"`
}

// Dataset describes a synthetic data file handed to candidates.
type Dataset struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Format       string   `json:"format"`
	Records      Count    `json:"records"`
	Filename     string   `json:"filename,omitempty"`
	Path         string   `json:"path,omitempty"`
	DownloadHref string   `json:"download_href,omitempty"`
	Columns      []Column `json:"columns"`
}

// Column is one typed dataset column.
type Column struct {
	Name        string   `json:"name"`
	Type        string   `json:"type,omitempty"`
	Description string   `json:"description,omitempty"`
	Choices     []string `json:"choices,omitempty"`
}

// StarterCode describes the skeleton file generated for an assignment.
type StarterCode struct {
	Language     string `json:"language,omitempty"`
	Description  string `json:"description,omitempty"`
	Filename     string `json:"filename,omitempty"`
	Path         string `json:"path,omitempty"`
	DownloadHref string `json:"download_href,omitempty"`
}

// Count is an integer that also accepts quoted and fractional numbers,
// which models emit often enough to matter.
type Count int

// UnmarshalJSON implements json.Unmarshaler.
func (c *Count) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*c = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("assignment: invalid count %s", data)
	}
	*c = Count(int(f))
	return nil
}

// AssignmentID returns a's id, or assignment_NN for the 1-based index i
// when the model left it blank.
func (a Assignment) AssignmentID(i int) string {
	if id := strings.TrimSpace(a.ID); id != "" {
		return id
	}
	return fmt.Sprintf("assignment_%02d", i)
}

// Parse decodes an assignments document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("assignment: parse: %w", err)
	}
	return &doc, nil
}

// Load reads an assignments document from path.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("assignment: read %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	return doc, nil
}

// Marshal encodes doc with two-space indentation, leaving non-ASCII and
// HTML characters unescaped.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("assignment: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes doc to path.
func Save(path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("assignment: write %s: %w", path, err)
	}
	return nil
}
