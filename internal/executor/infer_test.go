package executor_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/agentforge/internal/executor"
)

// fakeGenerator replays a queue of canned responses and records the prompts
// it was asked for.
type fakeGenerator struct {
	responses []string
	errs      []error
	prompts   []string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return "", errors.New("fakeGenerator: no response queued")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestInferencer(t *testing.T) {
	t.Run("parses list from response", func(t *testing.T) {
		gen := &fakeGenerator{responses: []string{`You need: ["requests", "numpy"]`}}
		inf := executor.NewInferencer(gen, testLogger())

		deps := inf.Infer(context.Background(), "import requests\nimport numpy")
		assert.Equal(t, []string{"requests", "numpy"}, deps)
		assert.Contains(t, gen.prompts[0], "import requests")
	})

	t.Run("deduplicates preserving order", func(t *testing.T) {
		gen := &fakeGenerator{responses: []string{`["numpy", "requests", "numpy"]`}}
		inf := executor.NewInferencer(gen, testLogger())

		deps := inf.Infer(context.Background(), "code")
		assert.Equal(t, []string{"numpy", "requests"}, deps)
	})

	t.Run("fails open on response without a list", func(t *testing.T) {
		gen := &fakeGenerator{responses: []string{"no external packages are needed here"}}
		inf := executor.NewInferencer(gen, testLogger())

		deps := inf.Infer(context.Background(), "print('hi')")
		assert.Empty(t, deps)
	})

	t.Run("fails open on generator error", func(t *testing.T) {
		gen := &fakeGenerator{errs: []error{errors.New("api unavailable")}}
		inf := executor.NewInferencer(gen, testLogger())

		deps := inf.Infer(context.Background(), "print('hi')")
		assert.Empty(t, deps)
	})
}
