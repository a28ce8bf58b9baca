// Package gemini implements the generative synthesizer on the Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/shpitdev/reshape/pkg/synth"
)

type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string

	// RateLimitRPS caps generation calls per second across goroutines.
	// Set to <=0 to disable.
	RateLimitRPS float64
}

type Generator struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
}

func New(ctx context.Context, cfg Config) (*Generator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("model name is required")
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, err
	}
	g := &Generator{client: client, model: strings.TrimSpace(cfg.Model)}
	if cfg.RateLimitRPS > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), 1)
	}
	return g, nil
}

// Generate asks the model for transformation code. Temperature is pinned
// to zero so the same request tends to produce the same program. Every
// failure comes back as a GenerationError except context cancellation,
// which is returned as-is so callers do not fall back on a dead request.
func (g *Generator) Generate(ctx context.Context, req synth.Request) (string, error) {
	if strings.TrimSpace(req.Instruction) == "" {
		return "", &synth.GenerationError{Err: errors.New("empty instruction")}
	}
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	temp := float32(0)
	resp, err := g.client.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(synth.BuildPrompt(req)),
		&genai.GenerateContentConfig{
			CandidateCount: 1,
			Temperature:    &temp,
		},
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &synth.GenerationError{Err: err}
	}
	code := strings.TrimSpace(resp.Text())
	if code == "" {
		return "", &synth.GenerationError{Err: errors.New("empty completion")}
	}
	return code, nil
}

// Model reports the configured model name.
func (g *Generator) Model() string { return g.model }
