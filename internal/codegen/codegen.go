// Package codegen produces the generated app's source files (agent,
// optional workflow, UI) from a specification, via the generation
// collaborator. Responses are fenced-code extracted; the UI path has a
// deterministic fallback so a bad generation never leaves the app without
// an entry point.
package codegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/agentforge/internal/llm"
	"github.com/sakif/agentforge/internal/spec"
)

const agentPrompt = `Generate a complete Python implementation for an LLM agent with the following specification. Include:
- All necessary imports
- Tool definitions
- Main agent class
- Processing logic

Return the implementation in a single fenced code block.

Specification: %s`

const workflowPrompt = `Generate a complete Temporal workflow implementation in Python based on the following specification. Include:
- Activity definitions
- Workflow class
- Error handling
- Retry policies

Return the implementation in a single fenced code block.

Specification: %s`

const uiPrompt = `Generate a complete Streamlit UI implementation in Python based on the following application specification. The UI should reflect the application's purpose and components.

Include:
- Necessary imports (especially streamlit)
- Appropriate Streamlit widgets based on the 'ui' section of the spec and the overall purpose described by the agents
- Basic placeholders for logic integration
- Ensure the output is a single, runnable Python script for a Streamlit app

Return only the Python code, in a single fenced code block.

Specification: %s

Reference the following agent code when generating the UI:
` + "```python\n%s\n```"

// Generator produces source files from specifications.
type Generator struct {
	gen    llm.Generator
	logger *slog.Logger
}

func NewGenerator(gen llm.Generator, logger *slog.Logger) *Generator {
	return &Generator{gen: gen, logger: logger}
}

// AgentCode generates the agent implementation for the spec.
func (g *Generator) AgentCode(ctx context.Context, s *spec.AppSpec) (string, error) {
	resp, err := g.gen.Generate(ctx, fmt.Sprintf(agentPrompt, specJSON(s)))
	if err != nil {
		return "", fmt.Errorf("generating agent code: %w", err)
	}

	code := llm.ExtractCodeBlock(resp)
	if strings.TrimSpace(code) == "" {
		return "", errors.New("agent generation returned no code block")
	}
	return code, nil
}

// WorkflowCode generates the workflow implementation for the spec. A
// fence-less response is used as-is rather than discarded.
func (g *Generator) WorkflowCode(ctx context.Context, s *spec.AppSpec) (string, error) {
	resp, err := g.gen.Generate(ctx, fmt.Sprintf(workflowPrompt, specJSON(s)))
	if err != nil {
		return "", fmt.Errorf("generating workflow code: %w", err)
	}

	if code := llm.ExtractCodeBlock(resp); strings.TrimSpace(code) != "" {
		return code, nil
	}
	return strings.TrimSpace(resp), nil
}

// UICode generates the Streamlit UI for the spec, with the agent code as
// reference context. Generation failures degrade to a basic fallback UI so
// the bundle always has a runnable entry point.
func (g *Generator) UICode(ctx context.Context, s *spec.AppSpec, agentCode string) string {
	resp, err := g.gen.Generate(ctx, fmt.Sprintf(uiPrompt, specJSON(s), agentCode))
	if err != nil {
		g.logger.Warn("UI generation failed, using fallback UI", slog.String("error", err.Error()))
		return FallbackUI(s)
	}

	code := llm.ExtractCodeBlock(resp)
	if strings.TrimSpace(code) == "" {
		g.logger.Warn("UI generation returned no code block, using fallback UI")
		return FallbackUI(s)
	}
	return code
}

// FallbackUI renders a minimal Streamlit page that displays the spec and
// placeholder inputs for its UI components.
func FallbackUI(s *spec.AppSpec) string {
	name := s.Name
	if name == "" {
		name = "Unnamed App"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `import streamlit as st
import json

st.title("Generated App: %s")
st.warning("Using fallback UI due to generation error.")

st.subheader("App Specification")
st.json(%s)

st.subheader("Basic Controls (Placeholders)")
`, name, pythonString(specJSON(s)))

	if len(s.UI.Components) > 0 {
		for _, c := range s.UI.Components {
			fmt.Fprintf(&b, "st.text_input(%s)\n", pythonString("Input for "+c))
		}
		b.WriteString(`st.button("Submit")` + "\n")
	} else {
		b.WriteString(`st.write("No UI components specified.")` + "\n")
	}

	b.WriteString(`
st.sidebar.header("Settings")
st.sidebar.write("Placeholder for settings.")
`)
	return b.String()
}

func specJSON(s *spec.AppSpec) string {
	data, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// pythonString renders s as a Python string literal. JSON string escaping is
// a compatible subset of Python's.
func pythonString(s string) string {
	data, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(data)
}
