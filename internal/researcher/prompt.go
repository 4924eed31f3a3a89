// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package researcher

import (
	"bytes"
	"text/template"
)

// groundedPromptTmpl is sent with the web-search capability attached.
var groundedPromptTmpl = template.Must(template.New("grounded").Parse(`Provide a comprehensive and detailed answer to the following question.
Use the most current and reliable information available.
Include relevant facts, statistics, and context.

Question: {{.Question}}

Please provide a thorough response with:
- Key facts and information
- Relevant statistics or data points
- Important context or background
- Current developments or trends
`))

// fallbackPromptTmpl is the ungrounded retry used when web search is not
// available for the grounded request.
var fallbackPromptTmpl = template.Must(template.New("fallback").Parse(`Provide a comprehensive answer to: {{.Question}}

Use your knowledge to provide detailed information including:
- Key facts and concepts
- Current trends and developments
- Expert insights and analysis
- Real-world examples
- Statistical data where available
`))

// knowledgePromptTmpl is used by the strategy that never searches.
var knowledgePromptTmpl = template.Must(template.New("knowledge").Parse(`Provide a comprehensive and detailed answer to the following question.
Use your knowledge to provide accurate, well-structured information.
Include relevant facts, examples, and context.

Question: {{.Question}}

Please provide a thorough response with:
- Key facts and information
- Relevant examples or case studies
- Important context or background
- Current trends or developments (as of your knowledge cutoff)
`))

func render(tmpl *template.Template, question string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Question string }{Question: question}); err != nil {
		return "", err
	}
	return buf.String(), nil
}
