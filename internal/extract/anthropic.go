package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/meeting-agent/internal/model"
	"github.com/sells-group/meeting-agent/internal/resilience"
	"github.com/sells-group/meeting-agent/pkg/anthropic"
)

// Options configures the Anthropic-backed extraction service.
type Options struct {
	Model       string
	MaxTokens   int64
	Temperature float64
	// CallTimeout bounds a single API call. Default: 60s.
	CallTimeout time.Duration
	// RPS rate-limits API calls; 0 disables the limiter.
	RPS float64
	// Retry controls transient-error retry. Zero value gets defaults.
	Retry resilience.RetryConfig
}

// Anthropic extracts structured facts from notes via the Anthropic API.
type Anthropic struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
	callTimeout time.Duration
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
}

// NewAnthropic builds the extraction service over an Anthropic client.
func NewAnthropic(client anthropic.Client, opts Options) *Anthropic {
	if opts.Model == "" {
		opts.Model = "claude-sonnet-4-5-20250929"
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 4096
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 60 * time.Second
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("anthropic", "extract")
	}

	a := &Anthropic{
		client:      client,
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		callTimeout: opts.CallTimeout,
		retry:       opts.Retry,
	}
	if opts.RPS > 0 {
		a.limiter = rate.NewLimiter(rate.Limit(opts.RPS), max(int(opts.RPS), 1))
	}
	return a
}

// Extract runs one extraction call. It returns a *SchemaError when the
// response did not fully conform to the schema; the error carries the partial
// bundle so the caller can retry strictly or proceed degraded.
func (a *Anthropic) Extract(ctx context.Context, req Request) (*model.ExtractedInfo, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limit")
		}
	}

	msgReq := anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    anthropic.BuildCachedSystemBlocks(SystemPrompt(req.Strict)),
		Messages: []anthropic.Message{
			{Role: "user", Content: BuildUserMessage(req.Notes, req.Context)},
		},
	}
	if a.temperature > 0 {
		msgReq.Temperature = &a.temperature
	}

	resp, err := resilience.DoVal(ctx, a.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		callCtx, cancel := context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
		return a.client.CreateMessage(callCtx, msgReq)
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: create message")
	}

	resp.Usage.LogCost(a.model, "extraction")

	info := parseExtraction(resp.Text())
	if info.Partial() {
		zap.L().Warn("extraction response failed schema validation",
			zap.Strings("fields", info.FailedFields),
			zap.Bool("strict", req.Strict))
		return nil, &SchemaError{Fields: info.FailedFields, Partial: info}
	}

	return info, nil
}
