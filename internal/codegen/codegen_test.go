package codegen_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/agentforge/internal/codegen"
	"github.com/sakif/agentforge/internal/spec"
)

type stubGenerator struct {
	response string
	err      error
	prompt   string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.response, s.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testSpec() *spec.AppSpec {
	return &spec.AppSpec{
		Name: "TripPlanner",
		Agents: []spec.AgentSpec{
			{Name: "WeatherAgent", Purpose: "check weather", Tools: []string{"weather_api"}},
		},
		UI: spec.UISpec{Components: []string{"destination_input"}},
	}
}

func TestAgentCode(t *testing.T) {
	t.Run("extracts fenced code", func(t *testing.T) {
		gen := &stubGenerator{response: "```python\nclass WeatherAgent:\n    pass\n```"}
		g := codegen.NewGenerator(gen, testLogger())

		code, err := g.AgentCode(context.Background(), testSpec())
		assert.NoError(t, err)
		assert.Equal(t, "class WeatherAgent:\n    pass", code)
		assert.Contains(t, gen.prompt, "WeatherAgent")
	})

	t.Run("errors without a code block", func(t *testing.T) {
		gen := &stubGenerator{response: "I cannot generate that."}
		g := codegen.NewGenerator(gen, testLogger())

		_, err := g.AgentCode(context.Background(), testSpec())
		assert.Error(t, err)
	})
}

func TestWorkflowCode(t *testing.T) {
	t.Run("falls back to the raw response without a fence", func(t *testing.T) {
		gen := &stubGenerator{response: "from temporalio import workflow\n"}
		g := codegen.NewGenerator(gen, testLogger())

		code, err := g.WorkflowCode(context.Background(), testSpec())
		assert.NoError(t, err)
		assert.Equal(t, "from temporalio import workflow", code)
	})
}

func TestUICode(t *testing.T) {
	t.Run("extracts fenced code", func(t *testing.T) {
		gen := &stubGenerator{response: "```python\nimport streamlit as st\nst.title('Trip')\n```"}
		g := codegen.NewGenerator(gen, testLogger())

		code := g.UICode(context.Background(), testSpec(), "agent code")
		assert.Contains(t, code, "st.title('Trip')")
		assert.Contains(t, gen.prompt, "agent code")
	})

	t.Run("falls back on generation error", func(t *testing.T) {
		gen := &stubGenerator{err: errors.New("api unavailable")}
		g := codegen.NewGenerator(gen, testLogger())

		code := g.UICode(context.Background(), testSpec(), "agent code")
		assert.Contains(t, code, "import streamlit as st")
		assert.Contains(t, code, "TripPlanner")
		assert.Contains(t, code, "Input for destination_input")
	})

	t.Run("falls back on fenceless response", func(t *testing.T) {
		gen := &stubGenerator{response: "no code here"}
		g := codegen.NewGenerator(gen, testLogger())

		code := g.UICode(context.Background(), testSpec(), "agent code")
		assert.Contains(t, code, "fallback UI")
	})
}

func TestFallbackUIWithoutComponents(t *testing.T) {
	s := &spec.AppSpec{}
	code := codegen.FallbackUI(s)
	assert.Contains(t, code, "Unnamed App")
	assert.Contains(t, code, "No UI components specified.")
}
