package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/agentforge/internal/llm"
)

const repairPrompt = `Code execution failed with error:
%s

Original code:
%s

Please fix the code and ensure it works with the following installed dependencies:
%s

Respond with the complete corrected program inside a single fenced code block.`

// Repairer packages a failure context and asks the generation collaborator
// for a replacement program. No semantic validation happens here;
// correctness is established only by re-running the result.
type Repairer struct {
	gen    llm.Generator
	logger *slog.Logger
}

func NewRepairer(gen llm.Generator, logger *slog.Logger) *Repairer {
	return &Repairer{gen: gen, logger: logger}
}

// Repair returns a corrected program for source given the captured stderr and
// the dependency list it was run with. A collaborator failure or a response
// with no code block is an error; the orchestrator surfaces it as the final
// request failure rather than retrying.
func (r *Repairer) Repair(ctx context.Context, source, stderrText string, deps []string) (string, error) {
	depList := "[]"
	if len(deps) > 0 {
		depList = "[" + strings.Join(deps, ", ") + "]"
	}

	resp, err := r.gen.Generate(ctx, fmt.Sprintf(repairPrompt, stderrText, source, depList))
	if err != nil {
		return "", fmt.Errorf("requesting corrected program: %w", err)
	}

	fixed := llm.ExtractCodeBlock(resp)
	if strings.TrimSpace(fixed) == "" {
		return "", errors.New("repair response contained no code block")
	}

	r.logger.Info("repair produced corrected program",
		slog.Int("originalLen", len(source)),
		slog.Int("fixedLen", len(fixed)),
	)
	return fixed, nil
}
