package analysis

import (
	"encoding/json"
	"fmt"
	"os"
)

// DumpToTmpFile writes the report as indented JSON to a new temporary file and
// returns its path.
func (r *Report) DumpToTmpFile() (string, error) {
	f, err := os.CreateTemp("", "resume-matcher-report-*.json")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}

	return f.Name(), nil
}

// WriteFile writes the report as indented JSON to path.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
