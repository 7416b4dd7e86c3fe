package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestRead(t *testing.T) {
	// Create a temporary log file
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	// Write 10 lines of content
	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "nope.log"), 10)
	if err != nil || lines != nil {
		t.Fatalf("Read() = %v, %v; want nil, nil", lines, err)
	}
}

func TestParse(t *testing.T) {
	line := `{"level":"warn","service":"trolley","item_id":3,"error":"timeout","time":"2026-03-01T10:11:12Z","message":"quantity update failed"}`

	entry := Parse(line)
	if entry.Level != "warn" || entry.Message != "quantity update failed" || entry.Error != "timeout" {
		t.Fatalf("Parse() = %#v", entry)
	}
	if !entry.Time.Equal(time.Date(2026, 3, 1, 10, 11, 12, 0, time.UTC)) {
		t.Fatalf("Time = %v", entry.Time)
	}
	if entry.Fields["item_id"] != "3" {
		t.Fatalf("Fields = %v, want item_id=3", entry.Fields)
	}
	if _, ok := entry.Fields["service"]; ok {
		t.Fatalf("service should not be listed as a field")
	}
}

func TestParse_NonJSON(t *testing.T) {
	for _, line := range []string{"", "plain text", "{broken"} {
		entry := Parse(line)
		if entry.Raw != line || entry.Message != "" {
			t.Errorf("Parse(%q) = %#v, want raw passthrough", line, entry)
		}
		if entry.Format() != line {
			t.Errorf("Format() = %q, want %q", entry.Format(), line)
		}
	}
}

func TestEntryFormat(t *testing.T) {
	entry := Entry{
		Level:   "error",
		Message: "cart fetch failed",
		Error:   "connection refused",
		Fields:  map[string]string{"request_id": "abc", "item_id": "7"},
	}

	want := `ERR cart fetch failed item_id=7 request_id=abc error="connection refused"`
	if got := entry.Format(); got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestLevelTag(t *testing.T) {
	tests := map[string]string{
		"debug": "DBG",
		"INFO":  "INF",
		"warn":  "WRN",
		"error": "ERR",
		"":      "???",
	}
	for in, want := range tests {
		if got := LevelTag(in); got != want {
			t.Errorf("LevelTag(%q) = %q, want %q", in, got, want)
		}
	}
}
