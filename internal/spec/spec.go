// Package spec turns free-text app requirements into a structured
// specification via the generation collaborator. The collaborator is asked
// for bare JSON, but the response is still parsed defensively: markdown
// fences are stripped and a fallback specification stands in when nothing
// parseable comes back.
package spec

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sakif/agentforge/internal/llm"
)

// AppSpec is the structured specification driving code generation.
type AppSpec struct {
	Name         string       `json:"name,omitempty"`
	Agents       []AgentSpec  `json:"agents"`
	Workflow     WorkflowSpec `json:"workflow"`
	UI           UISpec       `json:"ui"`
	Integrations []string     `json:"integrations"`
}

type AgentSpec struct {
	Name    string   `json:"name"`
	Purpose string   `json:"purpose"`
	Tools   []string `json:"tools"`
}

type WorkflowSpec struct {
	Steps        []string `json:"steps"`
	Dependencies []string `json:"dependencies"`
}

type UISpec struct {
	Components []string `json:"components"`
	Layouts    []string `json:"layouts"`
}

const analyzePrompt = `You are a JSON generator. Your task is to convert the user's app requirements into a JSON specification.

IMPORTANT: Your response must contain ONLY valid JSON - no other text, no markdown, no explanations.

Required JSON structure:
{
    "agents": [
        {
            "name": "string",
            "purpose": "string",
            "tools": ["string"]
        }
    ],
    "workflow": {
        "steps": ["string"],
        "dependencies": ["string"]
    },
    "ui": {
        "components": ["string"],
        "layouts": ["string"]
    },
    "integrations": ["string"]
}

Remember: Output ONLY the JSON, nothing else.

User prompt: %s`

// Analyzer converts prompts into specifications.
type Analyzer struct {
	gen    llm.Generator
	logger *slog.Logger
}

func NewAnalyzer(gen llm.Generator, logger *slog.Logger) *Analyzer {
	return &Analyzer{gen: gen, logger: logger}
}

// Analyze returns the specification for the given requirements. A
// collaborator failure is an error; an unparseable response degrades to the
// fallback specification so generation can still proceed.
func (a *Analyzer) Analyze(ctx context.Context, prompt string) (*AppSpec, error) {
	resp, err := a.gen.Generate(ctx, fmt.Sprintf(analyzePrompt, prompt))
	if err != nil {
		return nil, fmt.Errorf("analyzing prompt: %w", err)
	}

	var s AppSpec
	if err := json.Unmarshal([]byte(resp), &s); err == nil {
		return &s, nil
	}

	// The model wrapped the JSON in a fence or added prose around it.
	cleaned := llm.StripFences(resp)
	if err := json.Unmarshal([]byte(cleaned), &s); err == nil {
		return &s, nil
	}

	a.logger.Warn("specification response was not valid JSON, using fallback",
		slog.Int("responseLen", len(resp)),
	)
	return fallbackSpec(), nil
}

// fallbackSpec is the minimal specification used when the collaborator's
// response cannot be parsed.
func fallbackSpec() *AppSpec {
	return &AppSpec{
		Agents: []AgentSpec{
			{
				Name:    "DefaultAgent",
				Purpose: "Basic functionality",
				Tools:   []string{"basic_tools"},
			},
		},
		Workflow: WorkflowSpec{
			Steps:        []string{"initialize", "process", "complete"},
			Dependencies: []string{},
		},
		UI: UISpec{
			Components: []string{"basic_form"},
			Layouts:    []string{"single_column"},
		},
		Integrations: []string{},
	}
}
