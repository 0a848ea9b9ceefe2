package seek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"github.com/samber/lo"
)

type Operation struct {
	Name      string         `json:"operationName"`
	Variables map[string]any `json:"variables"`
	Query     string         `json:"query"`
}

type graphQLMessage struct {
	Message string `json:"message"`
}

type graphQLResult struct {
	Data   json.RawMessage  `json:"data"`
	Errors []graphQLMessage `json:"errors"`
}

type executor interface {
	Execute(ctx context.Context, op Operation, out any) error
}

type tokenSource interface {
	AccessToken() string
}

// graphQL posts single operations in the batched array form the Seek web client uses.
type graphQL struct {
	client *Client
	url    string
	tokens tokenSource
}

func (g *graphQL) Execute(ctx context.Context, op Operation, out any) error {

	token := g.tokens.AccessToken()
	if token == "" {
		return &AuthError{Step: op.Name, Err: ErrNotAuthenticated}
	}

	if op.Variables == nil {
		op.Variables = map[string]any{}
	}

	body, err := g.client.postJSON(ctx, g.url, []Operation{op}, map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		return err
	}

	var results []graphQLResult
	if err := json.Unmarshal(body, &results); err != nil {
		return fmt.Errorf("error decoding %s response: %w", op.Name, err)
	}

	if len(results) == 0 {
		return fmt.Errorf("empty response for %s", op.Name)
	}

	result := results[0]
	if len(result.Errors) > 0 {
		return &GraphQLError{
			Operation: op.Name,
			Messages:  messages(result.Errors),
		}
	}

	if out == nil {
		return nil
	}

	if len(result.Data) == 0 || bytes.Equal(result.Data, []byte("null")) {
		return fmt.Errorf("no data in %s response", op.Name)
	}

	if err := json.Unmarshal(result.Data, out); err != nil {
		return fmt.Errorf("error decoding %s data: %w", op.Name, err)
	}
	return nil
}

func messages(errs []graphQLMessage) []string {
	return lo.Map(errs, func(e graphQLMessage, _ int) string {
		return e.Message
	})
}
