package agents

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/zulandar/takehome/internal/assignment"
	"github.com/zulandar/takehome/internal/pipeline"
)

// Dataset generation limits.
const (
	datasetSeed       = 42
	defaultRecords    = 200
	minRecords        = 10
	maxRecords        = 5000
	previewRows       = 5
	datasetFormatCSV  = "csv"
	datasetFormatJSON = "json"
)

func datasetsStage(d Deps) pipeline.Stage {
	return pipeline.Stage{
		ID:       StageDatasets,
		Name:     "Data Provider",
		Icon:     "📊",
		Role:     "Dataset Generation",
		Progress: "Generating datasets...",
		Policy:   pipeline.Fatal,
		Requires: []string{pipeline.AssignmentsFile},
		Run: func(ctx context.Context, job *pipeline.Job) error {
			return runDatasets(ctx, d, job)
		},
	}
}

func runDatasets(ctx context.Context, d Deps, job *pipeline.Job) error {
	doc, err := assignment.Load(job.Layout.Assignments())
	if err != nil {
		return err
	}
	if len(doc.Assignments) == 0 {
		job.Printf("--- No assignments found; skipping dataset generation. ---")
		return nil
	}
	if err := os.MkdirAll(job.Layout.Datasets(), 0o755); err != nil {
		return fmt.Errorf("create datasets dir: %w", err)
	}

	gen := newRowGenerator(d.now())
	for i := range doc.Assignments {
		a := &doc.Assignments[i]
		id := a.AssignmentID(i + 1)
		for j := range a.Datasets {
			if err := ctx.Err(); err != nil {
				return err
			}
			ds := &a.Datasets[j]
			rel, err := gen.write(job.Layout, ds, fmt.Sprintf("%s_%02d", id, j+1))
			if err != nil {
				return err
			}
			job.Printf("--- Generated dataset for %s -> %s", id, rel)
		}
	}

	if err := assignment.Save(job.Layout.Assignments(), doc); err != nil {
		return err
	}
	job.Printf("--- Dataset generation complete and assignments JSON updated. ---")
	return nil
}

// rowGenerator produces deterministic synthetic values. One generator
// is shared by all datasets of a job so a job's files are reproducible.
type rowGenerator struct {
	fake      *gofakeit.Faker
	yearStart time.Time
	now       time.Time
}

func newRowGenerator(now time.Time) *rowGenerator {
	return &rowGenerator{
		fake:      gofakeit.New(datasetSeed),
		yearStart: time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC),
		now:       now.UTC(),
	}
}

// DatasetFile returns the format and file name used for a dataset.
func DatasetFile(ds assignment.Dataset, defaultStem string) (format, filename string) {
	format = strings.ToLower(strings.TrimSpace(ds.Format))
	if format != datasetFormatJSON {
		format = datasetFormatCSV
	}
	stem := strings.TrimSpace(ds.Filename)
	if stem == "" {
		name := ds.Name
		if name == "" {
			name = "dataset"
		}
		stem = defaultStem + "_" + name
	}
	stem = filepath.Base(stem)
	stem = strings.TrimSuffix(stem, filepath.Ext(stem))
	return format, assignment.SanitizeFilename(stem, format)
}

// Records returns the clamped row count for a dataset.
func Records(ds assignment.Dataset) int {
	n := int(ds.Records)
	if n == 0 {
		n = defaultRecords
	}
	return max(minRecords, min(n, maxRecords))
}

func (g *rowGenerator) write(layout pipeline.Layout, ds *assignment.Dataset, defaultStem string) (string, error) {
	var cols []assignment.Column
	for _, c := range ds.Columns {
		if strings.TrimSpace(c.Name) != "" {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		return "", fmt.Errorf("dataset %q requires at least one column definition", ds.Name)
	}

	format, filename := DatasetFile(*ds, defaultStem)
	rows := make([][]any, Records(*ds))
	for i := range rows {
		row := make([]any, len(cols))
		for j, c := range cols {
			row[j] = g.value(c)
		}
		rows[i] = row
	}

	var data []byte
	var err error
	if format == datasetFormatJSON {
		data, err = encodeJSONRows(cols, rows)
	} else {
		data, err = encodeCSVRows(cols, rows)
	}
	if err != nil {
		return "", fmt.Errorf("encode dataset %q: %w", ds.Name, err)
	}

	rel := path.Join(pipeline.DatasetsDir, filename)
	if err := os.WriteFile(layout.Path(rel), data, 0o644); err != nil {
		return "", fmt.Errorf("write dataset %q: %w", ds.Name, err)
	}
	ds.Format = format
	ds.Filename = filename
	ds.Path = rel
	ds.DownloadHref = rel
	return rel, nil
}

func (g *rowGenerator) value(c assignment.Column) any {
	if len(c.Choices) > 0 {
		return g.fake.RandomString(c.Choices)
	}
	switch strings.ToLower(strings.TrimSpace(c.Type)) {
	case "text":
		return g.fake.Sentence(8)
	case "integer":
		return g.fake.Number(0, 1000)
	case "float":
		return math.Round(g.fake.Float64Range(0, 1000)*100) / 100
	case "boolean":
		return g.fake.Bool()
	case "date":
		return g.fake.DateRange(g.yearStart, g.now).Format("2006-01-02")
	case "datetime":
		return g.fake.DateRange(g.yearStart, g.now).Format("2006-01-02T15:04:05")
	default:
		return g.fake.Word()
	}
}

func encodeCSVRows(cols []assignment.Column, rows [][]any) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	record := make([]string, len(cols))
	for _, row := range rows {
		for i, v := range row {
			record[i] = formatCell(v)
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}

// encodeJSONRows writes rows as an array of objects, keys in column order.
func encodeJSONRows(cols []assignment.Column, rows [][]any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, row := range rows {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  {")
		for j, v := range row {
			if j > 0 {
				buf.WriteString(", ")
			}
			key, err := json.Marshal(cols[j].Name)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteString(": ")
			buf.Write(val)
		}
		buf.WriteString("}")
	}
	buf.WriteString("\n]\n")
	return buf.Bytes(), nil
}

// datasetPreview is the first rows of a generated dataset, fed to the
// starter code prompt.
type datasetPreview struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Available   bool             `json:"available"`
	Type        string           `json:"type,omitempty"`
	Columns     []string         `json:"columns,omitempty"`
	Preview     []map[string]any `json:"preview,omitempty"`
}

func previewDataset(layout pipeline.Layout, ds assignment.Dataset) datasetPreview {
	p := datasetPreview{Name: ds.Name, Description: ds.Description}
	if ds.Path == "" {
		return p
	}
	data, err := os.ReadFile(layout.Path(filepath.FromSlash(ds.Path)))
	if err != nil {
		return p
	}

	switch strings.ToLower(path.Ext(ds.Path)) {
	case ".csv":
		r := csv.NewReader(bytes.NewReader(data))
		header, err := r.Read()
		if err != nil {
			return p
		}
		p.Available, p.Type, p.Columns = true, datasetFormatCSV, header
		for len(p.Preview) < previewRows {
			rec, err := r.Read()
			if err != nil {
				break
			}
			row := make(map[string]any, len(header))
			for i, h := range header {
				if i < len(rec) {
					row[h] = rec[i]
				}
			}
			p.Preview = append(p.Preview, row)
		}
	case ".json":
		var rows []map[string]any
		if err := json.Unmarshal(data, &rows); err != nil {
			var one map[string]any
			if json.Unmarshal(data, &one) != nil {
				return p
			}
			rows = []map[string]any{one}
		}
		p.Available, p.Type = true, datasetFormatJSON
		p.Preview = rows[:min(len(rows), previewRows)]
	}
	return p
}
