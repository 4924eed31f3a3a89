// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report persists finished research reports to disk.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/research-assistant/pkg/types"
)

const (
	filePrefix = "research_report_"
	timeLayout = "2006-01-02 15:04:05"
)

var rule = strings.Repeat("=", 50)

// SafeTopic reduces topic to letters, digits, spaces, hyphens, and
// underscores, trims trailing space, and replaces spaces with underscores.
func SafeTopic(topic string) string {
	var b strings.Builder
	for _, r := range topic {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimRight(b.String(), " "), " ", "_")
}

// FileName returns the report file name for topic written at t.
func FileName(topic string, t time.Time) string {
	return fmt.Sprintf("%s%s_%d.txt", filePrefix, SafeTopic(topic), t.Unix())
}

// Format renders the report file contents: a header naming the topic and
// generation time, then the report body.
func Format(topic string, report types.Report, t time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Research Report: %s\n", topic)
	fmt.Fprintf(&b, "%s\n", rule)
	fmt.Fprintf(&b, "Generated on: %s\n", t.Format(timeLayout))
	fmt.Fprintf(&b, "%s\n\n", rule)
	b.WriteString(report)
	return b.String()
}

// Save writes report to dir and returns the file path. The directory is
// created if missing.
func Save(dir, topic string, report types.Report, t time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}
	path := filepath.Join(dir, FileName(topic, t))
	if err := os.WriteFile(path, []byte(Format(topic, report, t)), 0o644); err != nil {
		return "", fmt.Errorf("writing report %s: %w", path, err)
	}
	return path, nil
}

// SaveRecord writes run as YAML next to the report at reportPath.
func SaveRecord(reportPath string, run types.Run) (string, error) {
	data, err := yaml.Marshal(&run)
	if err != nil {
		return "", fmt.Errorf("marshaling run record: %w", err)
	}
	path := strings.TrimSuffix(reportPath, filepath.Ext(reportPath)) + ".yaml"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing run record %s: %w", path, err)
	}
	return path, nil
}

// LoadRecord reads a run record written by SaveRecord.
func LoadRecord(path string) (*types.Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading run record: %w", err)
	}
	var run types.Run
	if err := yaml.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("parsing run record: %w", err)
	}
	return &run, nil
}
