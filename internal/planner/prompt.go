// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package planner

import (
	"bytes"
	"text/template"
)

// planPromptTmpl asks the model to break a topic into 3-5 researchable
// questions returned as a bracketed list.
var planPromptTmpl = template.Must(template.New("plan").Parse(`You are an expert research planner. Your task is to break down the following topic
into 3-5 specific, answerable questions that would provide comprehensive coverage
of the subject matter.

TOPIC: "{{.Topic}}"

Guidelines:
- Each question should be specific and focused
- Questions should cover different aspects of the topic
- Questions should be distinct from one another
- Questions should be researchable and answerable
- Return ONLY the questions as a bracketed list

Example output format: ["question 1", "question 2", "question 3", "question 4"]
`))

func renderPrompt(topic string) (string, error) {
	var buf bytes.Buffer
	if err := planPromptTmpl.Execute(&buf, struct{ Topic string }{Topic: topic}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
