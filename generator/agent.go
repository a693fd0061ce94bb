package generator

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"auto_manim_codegen/codespec"
)

// Agent 负责调用 LLM 生成 CodeSpec，重试时带上之前的回复和反馈。
type Agent struct {
	llm    LLMClient
	logger *zap.Logger
}

func NewAgent(llm LLMClient, logger *zap.Logger) (*Agent, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{llm: llm, logger: logger}, nil
}

// Generate asks for a CodeSpec. earlier holds the previous attempts, oldest
// first; when it is empty the initial prompt is used. A reply that does not
// decode into a valid CodeSpec is reported in the ParseResult, not as an
// error; the error is reserved for transport failures.
func (a *Agent) Generate(ctx context.Context, brief Brief, earlier []Exchange) (codespec.ParseResult, error) {
	prompt := BuildRetryPrompt(brief, earlier)

	raw, err := a.llm.Complete(ctx, prompt)
	if err != nil {
		return codespec.ParseResult{}, fmt.Errorf("generator: llm call failed: %w", err)
	}

	res := PostProcess(raw)
	if !res.OK() {
		a.logger.Debug("oracle reply rejected",
			zap.String("problem", res.Problem),
			zap.Int("reply_bytes", len(raw)),
			zap.Int("history", len(prompt.History)),
		)
	}
	return res, nil
}
