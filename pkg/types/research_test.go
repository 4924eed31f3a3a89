// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFailureReport(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   bool
	}{
		{"not initialized", ReportNotInitialized, true},
		{"empty plan", ReportEmptyPlan, true},
		{"no findings", ReportNoFindings, true},
		{"no data", ReportNoData, true},
		{"synthesis failed", ReportSynthesisFailed, true},
		{"document titled with Error prefix", "Error: Handling in Go\n\n## Introduction\n\nGo returns errors as values.", false},
		{"bare prefix", "Error: ", false},
		{"sentinel with trailing text", ReportNoData + " extra", false},
		{"ordinary document", "# Solar power\n\nBody.", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFailureReport(tt.report))
		})
	}
}

func TestRunFailed(t *testing.T) {
	assert.False(t, Run{Outcome: OutcomeCompleted, Report: "Error: Handling in Go"}.Failed())
	assert.True(t, Run{Outcome: OutcomeSynthesisFailed}.Failed())
}
