package models

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

// gormTag extracts the gorm tag from a struct field.
func gormTag(t *testing.T, typ reflect.Type, fieldName string) string {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	return f.Tag.Get("gorm")
}

// assertGormTag checks that a struct field's gorm tag contains the expected value.
func assertGormTag(t *testing.T, typ reflect.Type, fieldName, expected string) {
	t.Helper()
	tag := gormTag(t, typ, fieldName)
	if !strings.Contains(tag, expected) {
		t.Errorf("%s.%s gorm tag = %q, want to contain %q", typ.Name(), fieldName, tag, expected)
	}
}

// assertFieldType checks that a struct field has the expected Go type.
func assertFieldType(t *testing.T, typ reflect.Type, fieldName, expectedType string) {
	t.Helper()
	f, ok := typ.FieldByName(fieldName)
	if !ok {
		t.Fatalf("%s.%s: field not found", typ.Name(), fieldName)
	}
	got := f.Type.String()
	if got != expectedType {
		t.Errorf("%s.%s type = %q, want %q", typ.Name(), fieldName, got, expectedType)
	}
}

func TestJobArchive_Fields(t *testing.T) {
	typ := reflect.TypeOf(JobArchive{})

	assertGormTag(t, typ, "JobID", "primaryKey")
	assertGormTag(t, typ, "JobID", "size:32")
	assertGormTag(t, typ, "Status", "size:16")
	assertGormTag(t, typ, "Status", "index")
	assertGormTag(t, typ, "JobRole", "size:128")
	assertGormTag(t, typ, "JobRole", "index")
	assertGormTag(t, typ, "JobLevel", "size:64")
	assertGormTag(t, typ, "Language", "size:32")
	assertGormTag(t, typ, "OutputDir", "size:512")
	assertGormTag(t, typ, "IndexURL", "size:512")
	assertGormTag(t, typ, "Error", "type:text")
	assertGormTag(t, typ, "StageStates", "type:text")
	assertGormTag(t, typ, "LastLog", "type:text")
	assertGormTag(t, typ, "LogCount", "default:0")
	assertGormTag(t, typ, "StartedAt", "index")
	assertGormTag(t, typ, "FinishedAt", "index")

	assertFieldType(t, typ, "StartedAt", "time.Time")
	assertFieldType(t, typ, "FinishedAt", "*time.Time")
	assertFieldType(t, typ, "CreatedAt", "time.Time")
}

func TestJobRecord_JSONNames(t *testing.T) {
	data, err := json.Marshal(JobRecord{JobID: "x", Status: StatusRunning})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"job_id", "status", "progress", "stage_states", "logs", "job_role", "job_level", "language", "started_at"} {
		if _, ok := m[key]; !ok {
			t.Errorf("JSON is missing %q: %s", key, data)
		}
	}
	for _, key := range []string{"completed_at", "failed_at", "error", "output_dir", "index_url"} {
		if _, ok := m[key]; ok {
			t.Errorf("JSON should omit empty %q: %s", key, data)
		}
	}
}
