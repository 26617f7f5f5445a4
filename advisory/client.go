package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	iriscore "github.com/petal-labs/iris/core"
	"github.com/petal-labs/iris/providers"
	// Auto-register common providers.
	_ "github.com/petal-labs/iris/providers/anthropic"
	_ "github.com/petal-labs/iris/providers/ollama"
	_ "github.com/petal-labs/iris/providers/openai"

	"github.com/crisis-labs/crisisflow/core"
)

// DefaultCallTimeout bounds each advisory call. The executor itself never
// enforces a timeout, so a hung provider would otherwise hang the run.
const DefaultCallTimeout = 30 * time.Second

// ClientConfig configures the iris-backed advisory client.
type ClientConfig struct {
	// Provider is the iris provider name (openai, anthropic, ollama).
	Provider string

	// APIKey authenticates against the provider. When empty NewClient
	// still succeeds but every call returns ErrUnavailable, so a
	// credential-less deployment degrades instead of failing runs.
	APIKey string

	// Model identifies the model to use. Required when APIKey is set.
	Model string

	// CallTimeout bounds each call (default DefaultCallTimeout).
	CallTimeout time.Duration
}

// Client implements Planner on top of an iris chat provider.
type Client struct {
	provider iriscore.Provider
	model    string
	timeout  time.Duration
}

// NewClient creates an advisory client for the configured provider.
// With no API key it returns a degraded client whose calls report
// ErrUnavailable rather than an error here, matching the best-effort
// contract of the advisory service.
func NewClient(cfg ClientConfig) (*Client, error) {
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}

	if strings.TrimSpace(cfg.APIKey) == "" {
		return &Client{timeout: timeout}, nil
	}

	provider, err := providers.Create(cfg.Provider, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("creating advisory provider %q: %w", cfg.Provider, err)
	}
	return &Client{provider: provider, model: cfg.Model, timeout: timeout}, nil
}

// PlanTools asks the model to order the discovered tools. Any transport or
// parse failure maps onto the advisory error taxonomy so the caller can
// fall back without inspecting provider-specific errors.
func (c *Client) PlanTools(ctx context.Context, order core.OrderContext, tools []ToolDescriptor, outputs []OutputCandidate) (Plan, error) {
	if c.provider == nil {
		return Plan{}, ErrUnavailable
	}

	input, err := json.Marshal(map[string]any{
		"order":   order,
		"tools":   tools,
		"outputs": outputs,
	})
	if err != nil {
		return Plan{}, fmt.Errorf("encoding planner input: %w", err)
	}

	text, err := c.chat(ctx, plannerSystemPrompt, string(input))
	if err != nil {
		return Plan{}, err
	}

	block := extractJSONBlock(text)
	if block == "" {
		return Plan{}, fmt.Errorf("%w: no JSON object in %q", ErrMalformedResponse, truncate(text, 120))
	}

	var plan Plan
	if err := json.Unmarshal([]byte(block), &plan); err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return plan, nil
}

// Summarize produces the final decision text from the case snapshot.
func (c *Client) Summarize(ctx context.Context, snapshot string) (string, error) {
	if c.provider == nil {
		return "", ErrUnavailable
	}
	text, err := c.chat(ctx, summarizerSystemPrompt, snapshot)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) chat(ctx context.Context, system, user string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Chat(callCtx, &iriscore.ChatRequest{
		Model: iriscore.ModelID(c.model),
		Messages: []iriscore.Message{
			{Role: iriscore.RoleSystem, Content: system},
			{Role: iriscore.RoleUser, Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp.Output, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Compile-time interface check.
var _ Planner = (*Client)(nil)
