package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ClientFile is the name of the generated PHP file
const ClientFile = "Client.php"

// Report represents one generation run
type Report struct {
	Timestamp time.Time     `json:"timestamp"`
	Project   string        `json:"project"`
	Provider  string        `json:"provider"`
	Model     string        `json:"model"`
	Endpoints int           `json:"endpoints"`
	Persisted int           `json:"persistedEndpoints"`
	CodeBytes int           `json:"codeBytes"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Writer stores generated code and run reports in one directory
type Writer struct {
	dir string
	now func() time.Time
}

// NewWriter creates a new instance of Writer
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir, now: time.Now}
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// WriteCode writes the PHP client and returns its path
func (w *Writer) WriteCode(code string) (string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(w.dir, ClientFile)
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		return "", fmt.Errorf("failed to write client: %w", err)
	}
	return path, nil
}

// WriteReport writes the run report as report_<timestamp>.json and returns its path
func (w *Writer) WriteReport(report Report) (string, error) {
	if report.Timestamp.IsZero() {
		report.Timestamp = w.now()
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.dir, fmt.Sprintf("report_%s.json", report.Timestamp.Format("20060102_150405")))
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
