package executor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/agentforge/internal/llm"
)

const inferPrompt = `Analyze the following Python code and list all external packages that need to be installed before it can run.
Only include direct dependencies that need to be pip installed, not built-in Python modules.
Format the response as a Python list of strings, each string being a pip package name.
Include version numbers only if they are critical for compatibility.

Code to analyze:
` + "```python\n%s\n```"

// Inferencer derives a program's third-party dependency list from its source
// text by asking the generation collaborator for a list literal.
type Inferencer struct {
	gen    llm.Generator
	logger *slog.Logger
}

func NewInferencer(gen llm.Generator, logger *slog.Logger) *Inferencer {
	return &Inferencer{gen: gen, logger: logger}
}

// Infer returns the deduplicated package names the source requires. It never
// fails: a collaborator error or an unparseable response yields an empty
// list, and any genuinely missing package surfaces later as an import error
// during execution, where the repair round can still pick it up.
func (i *Inferencer) Infer(ctx context.Context, source string) []string {
	resp, err := i.gen.Generate(ctx, fmt.Sprintf(inferPrompt, source))
	if err != nil {
		i.logger.Warn("dependency inference failed, assuming no dependencies",
			slog.String("error", err.Error()),
		)
		return nil
	}

	deps := dedupe(llm.ExtractList(resp))
	i.logger.Debug("inferred dependencies", slog.Any("deps", deps))
	return deps
}

// dedupe removes repeated names while preserving first-seen order.
func dedupe(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := names[:0]
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
