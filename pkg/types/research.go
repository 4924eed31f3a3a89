// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Topic is the subject of one research run. It is supplied by the caller
// and does not change while the run is in progress.
type Topic = string

// Question is a single sub-question produced by the planner.
type Question = string

// Finding is the research text gathered for one question. An empty
// finding means no information was found.
type Finding = string

// Report is the terminal artifact of a run: a synthesized document or one
// of the failure sentinels below.
type Report = string

// Plan is the ordered list of questions created once per run. Order defines
// question numbering downstream.
type Plan []Question

// Result pairs a question with its non-empty finding.
type Result struct {
	Question Question `json:"question" yaml:"question"`
	Finding  Finding  `json:"finding" yaml:"finding"`
}

// Failure sentinels. Every terminal failure path yields one of these so
// callers can branch on the report text alone.
const (
	failurePrefix = "Error: "

	ReportNotInitialized  Report = failurePrefix + "System not initialized. Please run initialize() first."
	ReportEmptyPlan       Report = failurePrefix + "Could not create a research plan. Please try a different topic."
	ReportNoFindings      Report = failurePrefix + "Could not find any information during research. Please try a different topic."
	ReportNoData          Report = failurePrefix + "No research data available to synthesize."
	ReportSynthesisFailed Report = failurePrefix + "Could not generate the final report."
)

// IsFailureReport reports whether r is one of the failure sentinels rather
// than a synthesized document. Only exact sentinels match; a report whose
// text merely starts with "Error:" is a document.
func IsFailureReport(r Report) bool {
	switch r {
	case ReportNotInitialized, ReportEmptyPlan, ReportNoFindings, ReportNoData, ReportSynthesisFailed:
		return true
	}
	return false
}

// Outcome classifies how a run ended.
type Outcome string

const (
	OutcomeCompleted       Outcome = "completed"
	OutcomeInitFailed      Outcome = "init_failed"
	OutcomeEmptyPlan       Outcome = "empty_plan"
	OutcomeNoFindings      Outcome = "no_findings"
	OutcomeSynthesisFailed Outcome = "synthesis_failed"
)

// QuestionStatus records what happened to one planned question.
type QuestionStatus struct {
	Index    int      `json:"index" yaml:"index"`
	Question Question `json:"question" yaml:"question"`
	Found    bool     `json:"found" yaml:"found"`
}

// Run is the record of one pass through the pipeline.
type Run struct {
	ID         string           `json:"id" yaml:"id"`
	Topic      Topic            `json:"topic" yaml:"topic"`
	Strategy   string           `json:"strategy" yaml:"strategy"`
	Plan       Plan             `json:"plan" yaml:"plan"`
	Questions  []QuestionStatus `json:"questions,omitempty" yaml:"questions,omitempty"`
	Results    []Result         `json:"results,omitempty" yaml:"results,omitempty"`
	Report     Report           `json:"report" yaml:"report"`
	Outcome    Outcome          `json:"outcome" yaml:"outcome"`
	StartedAt  time.Time        `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time        `json:"finished_at" yaml:"finished_at"`
}

// Failed reports whether the run ended without a synthesized report.
func (r Run) Failed() bool {
	return r.Outcome != OutcomeCompleted
}
