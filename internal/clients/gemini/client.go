package gemini

import (
	"context"
	"fmt"
	"github.com/google/generative-ai-go/genai"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	"strings"
	"time"
)

type Model string

const (
	//Model15Flash is fastest multimodal model with great performance for diverse, repetitive tasks
	Model15Flash Model = "gemini-1.5-flash"
	//Model15Flash8b is the smallest model for lower intelligence use cases
	Model15Flash8b Model = "gemini-1.5-flash-8b"
	//Model15Pro is next-generation model with a breakthrough 2 million context window
	Model15Pro Model = "gemini-1.5-pro"
)

const DefaultEmbeddingModel = "text-embedding-004"

type Client struct {
	client            *genai.Client
	model             *genai.GenerativeModel
	embedder          *genai.EmbeddingModel
	minuteRateLimiter *rate.Limiter
	dayRateLimiter    *rate.Limiter
	log               log.FieldLogger
}

func NewClient(ctx context.Context, apiKey string, model Model, embeddingModel string, logger log.FieldLogger) (*Client, error) {

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}

	return &Client{
		client:   client,
		model:    client.GenerativeModel(string(model)),
		embedder: client.EmbeddingModel(embeddingModel),
		log:      logger.WithField("component", "gemini"),
	}, nil
}

func (c *Client) SetMinuteRateLimit(maxRequestsPerMinute float32) {
	c.minuteRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerMinute/60), 1)
}

func (c *Client) SetDayRateLimit(maxRequestsPerDay float32) {
	c.dayRateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerDay/86400), int(maxRequestsPerDay))
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) GenerateResponse(ctx context.Context, text string) (string, error) {

	var resp string
	var err error

	_, _, _ = lo.AttemptWhileWithDelay(3, 2*time.Second, func(i int, _ time.Duration) (error, bool) {
		if i > 0 {
			c.log.Warn("gemini api returned 500 error, retrying...")
		}
		resp, err = c.waitAndGenerateResponse(ctx, text)
		return err, isInternalError(err)
	})

	return resp, err
}

// Embed returns the embedding vector of the text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {

	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	response, err := c.embedder.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, err
	}

	if response == nil || response.Embedding == nil || len(response.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return response.Embedding.Values, nil
}

func (c *Client) wait(ctx context.Context) error {
	limiters := []*rate.Limiter{c.minuteRateLimiter, c.dayRateLimiter}
	for _, limiter := range limiters {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Client) waitAndGenerateResponse(ctx context.Context, text string) (string, error) {

	if err := c.wait(ctx); err != nil {
		return "", err
	}

	response, err := c.model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return "", err
	}

	return firstText(response)
}

func firstText(response *genai.GenerateContentResponse) (string, error) {

	if response == nil || len(response.Candidates) == 0 {
		return "", fmt.Errorf("response has no candidates")
	}

	content := response.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", fmt.Errorf("response candidate has no content")
	}

	var sb strings.Builder
	for _, part := range content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("response part is not text")
	}
	return sb.String(), nil
}

func isInternalError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "Error 500")
}
