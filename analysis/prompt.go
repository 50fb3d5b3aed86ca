package analysis

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/xraph/auditledger/service"
)

const preamble = `You are an AI assistant specialized in blockchain security auditing. Your task is to analyze the provided information and produce a highly detailed, verbose, and exhaustive security report. Your analysis must be thorough, professional, and actionable. Each finding's description and recommendation should be multi-paragraph and include as much detail as possible. The summary should be a comprehensive overview that justifies the final grade/status.
Respond ONLY with a single, valid JSON object that strictly adheres to the provided schema. Do not include any additional text, comments, formatting, or markdown code fences.`

// BuildPrompt renders the instruction sent to the model for def. Missing
// detail keys render as empty strings.
func BuildPrompt(def service.Definition, details map[string]string) (string, error) {
	tmpl, err := template.New(string(def.Type)).Option("missingkey=zero").Parse(def.Brief)
	if err != nil {
		return "", fmt.Errorf("analysis: parse brief for %s: %w", def.Type, err)
	}

	data := make(map[string]string, len(def.Fields))
	for _, f := range def.Fields {
		data[f.Key] = ""
	}
	for k, v := range details {
		data[k] = v
	}

	var b strings.Builder
	b.WriteString(preamble)
	b.WriteString("\n\n")
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("analysis: render brief for %s: %w", def.Type, err)
	}
	return b.String(), nil
}
