// Package placeholder asks a language model which summarized values are
// stand-ins for missing data and parses its answer.
package placeholder

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/llmclean-cli/internal/ai"
	"github.com/KaramelBytes/llmclean-cli/internal/analysis"
)

// Resolver turns column summaries into a placeholder list with one model call.
type Resolver struct {
	Runtime     ai.Runtime
	Model       string
	MaxTokens   int
	Temperature float64
	// Timeout bounds the whole call including retries. Zero means no extra bound.
	Timeout time.Duration
	Logger  *zap.Logger
	// OnResponse, if set, receives the raw reply before it is parsed.
	OnResponse func(raw string)
}

// Resolution is the detailed outcome of a Resolve call.
type Resolution struct {
	Placeholders []string
	// Dropped holds returned strings that occur in no summary.
	Dropped   []string
	Raw       string
	Prompt    string
	Usage     ai.Usage
	RequestID string
	Elapsed   time.Duration
}

// Resolve returns the placeholder strings the model identified.
func (r *Resolver) Resolve(ctx context.Context, s analysis.Summaries) ([]string, error) {
	res, err := r.ResolveDetailed(ctx, s)
	if err != nil {
		return nil, err
	}
	return res.Placeholders, nil
}

// ResolveDetailed is Resolve plus the raw reply, usage and dropped values.
// With no summaries it returns an empty list without calling the model.
func (r *Resolver) ResolveDetailed(ctx context.Context, s analysis.Summaries) (*Resolution, error) {
	log := r.logger()
	if len(s) == 0 {
		log.Debug("no columns to resolve, skipping model call")
		return &Resolution{Placeholders: []string{}}, nil
	}
	if r.Runtime == nil {
		return nil, fmt.Errorf("resolver has no runtime")
	}
	prompt, err := BuildPrompt(s)
	if err != nil {
		return nil, err
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	log.Debug("model request",
		zap.String("model", r.Model),
		zap.Int("columns", len(s)),
		zap.Int("prompt_len", len(prompt)))
	start := time.Now()
	resp, err := r.Runtime.Generate(ctx, ai.GenerateRequest{
		Model:       r.Model,
		Messages:    []ai.Message{{Role: "user", Content: prompt}},
		MaxTokens:   r.MaxTokens,
		Temperature: r.Temperature,
	})
	elapsed := time.Since(start)
	if err != nil {
		log.Warn("model request failed", zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, fmt.Errorf("model call: %w", err)
	}
	raw := resp.Text()
	log.Debug("model response",
		zap.String("request_id", resp.RequestID),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", elapsed))
	if r.OnResponse != nil {
		r.OnResponse(raw)
	}

	list, err := ParseList(raw)
	if err != nil {
		return nil, err
	}
	res := &Resolution{
		Placeholders: make([]string, 0, len(list)),
		Raw:          raw,
		Prompt:       prompt,
		Usage:        resp.Usage,
		RequestID:    resp.RequestID,
		Elapsed:      elapsed,
	}
	for _, v := range list {
		if !s.Contains(v) {
			res.Dropped = append(res.Dropped, v)
			continue
		}
		res.Placeholders = append(res.Placeholders, v)
	}
	if len(res.Dropped) > 0 {
		log.Warn("ignoring placeholders absent from the summaries", zap.Strings("values", res.Dropped))
	}
	return res, nil
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger.Named("resolver")
}
