package openai

import (
	"context"
	"fmt"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	lcopenai "github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"
	"strings"
	"time"
)

const (
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

type Config struct {
	Key            string
	Model          string
	EmbeddingModel string
	BaseURL        string
}

// Client talks to OpenAI through langchaingo.
type Client struct {
	llm               *lcopenai.LLM
	minuteRateLimiter *rate.Limiter
	log               log.FieldLogger
}

func NewClient(cfg Config, logger log.FieldLogger) (*Client, error) {

	opts := []lcopenai.Option{
		lcopenai.WithToken(cfg.Key),
		lcopenai.WithModel(lo.Ternary(cfg.Model == "", DefaultModel, cfg.Model)),
		lcopenai.WithEmbeddingModel(lo.Ternary(cfg.EmbeddingModel == "", DefaultEmbeddingModel, cfg.EmbeddingModel)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, lcopenai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := lcopenai.New(opts...)
	if err != nil {
		return nil, err
	}

	return &Client{llm: llm, log: logger.WithField("component", "openai")}, nil
}

func (c *Client) SetMinuteRateLimit(maxRequestsPerMinute float32) {
	c.minuteRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerMinute/60), 1)
}

func (c *Client) GenerateResponse(ctx context.Context, text string) (string, error) {

	var resp string
	var err error

	_, _, _ = lo.AttemptWhileWithDelay(3, 2*time.Second, func(i int, _ time.Duration) (error, bool) {
		if i > 0 {
			c.log.Warnf("openai request failed with a retryable error, retrying: %v", err)
		}
		if err = c.wait(ctx); err != nil {
			return err, false
		}
		resp, err = llms.GenerateFromSinglePrompt(ctx, c.llm, text)
		return err, isRetryable(err)
	})

	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp), nil
}

func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	vectors, err := c.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return vectors[0], nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.minuteRateLimiter == nil {
		return nil
	}
	return c.minuteRateLimiter.Wait(ctx)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "429") || strings.Contains(message, "500") ||
		strings.Contains(message, "502") || strings.Contains(message, "503")
}
