// Package ai implements the planner/roast/rewrite client against an
// OpenAI-compatible chat-completions endpoint. The client is constructed
// explicitly and injected; nothing in this package reads ambient state. All
// failures surface as ErrUnavailable so callers can degrade to fallbacks.
package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// ErrUnavailable is returned when the upstream model cannot produce a reply,
// whether from configuration, transport, or response shape.
var ErrUnavailable = errors.New("ai unavailable")

// Config holds the client configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client talks to the chat-completions endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates an AI client. A zero timeout defaults to 45 seconds, the
// ceiling a plan generation is allowed to take.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the client has credentials to call out with.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.APIKey != "" && c.cfg.BaseURL != ""
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// chat performs one completion round-trip and returns the reply content.
func (c *Client) chat(ctx context.Context, messages []Message, temperature float64, maxTokens int) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%w: no API key configured", ErrUnavailable)
	}

	payload, err := json.Marshal(chatRequest{
		Model:       c.cfg.Model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Warn().Int("status", resp.StatusCode).Str("body", string(body)).
			Msg("Chat completion request failed")
		return "", fmt.Errorf("%w: upstream status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	return parsed.Choices[0].Message.Content, nil
}

// StudyPlan runs one planner chat turn over the conversation history and
// returns the raw assistant reply. History is trimmed to the token budget
// before sending, oldest turns first.
func (c *Client) StudyPlan(ctx context.Context, history []Message, currentDate string) (string, error) {
	system := Message{Role: "system", Content: studyPlanPrompt(currentDate)}
	trimmed := TrimToBudget(history, planHistoryTokenBudget)
	return c.chat(ctx, append([]Message{system}, trimmed...), 0.7, 8000)
}

// Rewrite breaks a vague goal into micro-task suggestions.
func (c *Client) Rewrite(ctx context.Context, title, description string) (*RewriteResult, error) {
	reply, err := c.chat(ctx, []Message{
		{Role: "user", Content: rewritePrompt(title, description)},
	}, 0.7, 1000)
	if err != nil {
		return nil, err
	}

	var result RewriteResult
	if err := json.Unmarshal([]byte(cleanText(reply)), &result); err != nil || len(result.MicroTasks) == 0 {
		return nil, fmt.Errorf("%w: unparseable rewrite reply", ErrUnavailable)
	}
	return &result, nil
}

// Roast generates a short motivational roast for the given context
// ("abandon" or "tab-switch").
func (c *Client) Roast(ctx context.Context, roastContext string) (string, error) {
	reply, err := c.chat(ctx, []Message{
		{Role: "user", Content: roastPrompt(roastContext)},
	}, 0.9, 200)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// Insights analyzes a focus history and returns pattern insights.
func (c *Client) Insights(ctx context.Context, history []SessionDigest) (*InsightsResult, error) {
	digest, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: encode history: %v", ErrUnavailable, err)
	}

	reply, err := c.chat(ctx, []Message{
		{Role: "user", Content: insightsPrompt(string(digest))},
	}, 0.5, 1500)
	if err != nil {
		return nil, err
	}

	var result InsightsResult
	if err := json.Unmarshal([]byte(cleanText(reply)), &result); err != nil {
		return nil, fmt.Errorf("%w: unparseable insights reply", ErrUnavailable)
	}
	return &result, nil
}

// RewriteResult is the micro-task breakdown of one goal.
type RewriteResult struct {
	MicroTasks []MicroTaskSuggestion `json:"microTasks"`
}

// MicroTaskSuggestion is one proposed actionable step.
type MicroTaskSuggestion struct {
	Text             string `json:"text"`
	EstimatedMinutes int    `json:"estimatedMinutes"`
}

// SessionDigest is the anonymized per-session record fed to the insights
// prompt.
type SessionDigest struct {
	Task           string `json:"task"`
	Category       string `json:"category"`
	Date           string `json:"date"`
	DayOfWeek      string `json:"dayOfWeek"`
	Hour           int    `json:"hour"`
	PlannedMinutes int    `json:"plannedMinutes"`
	ActualMinutes  int64  `json:"actualMinutes"`
	TabSwitches    int    `json:"tabSwitches"`
	Completed      bool   `json:"completed"`
}

// InsightsResult is the model's pattern analysis.
type InsightsResult struct {
	Insights []Insight `json:"insights"`
	Summary  string    `json:"summary"`
}

// Insight is one observed procrastination pattern.
type Insight struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}
