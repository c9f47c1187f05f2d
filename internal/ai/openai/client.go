package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skylarkwx/skylark/internal/ai"
	"github.com/skylarkwx/skylark/pkg/logger"
)

// DefaultBaseURL is the default endpoint for the OpenAI API
const DefaultBaseURL = "https://api.openai.com"

// Client represents an OpenAI chat completions client
type Client struct {
	apiKey     string
	baseURL    string
	logger     *logger.Logger
	httpClient *http.Client
}

// NewClient creates a new OpenAI Client
func NewClient(apiKey string, timeout time.Duration, logger *logger.Logger) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		logger:  logger.Named("openai"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ChatCompletion sends a conversation to OpenAI and returns the text response
func (c *Client) ChatCompletion(ctx context.Context, messages []ai.ChatMessage, config ai.ChatConfig) (string, error) {
	apiURL := c.baseURL + "/v1/chat/completions"

	type Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	reqMessages := make([]Message, len(messages))
	for i, msg := range messages {
		reqMessages[i] = Message{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	reqBody := struct {
		Model       string    `json:"model"`
		Messages    []Message `json:"messages"`
		MaxTokens   int       `json:"max_tokens,omitempty"`
		Temperature float64   `json:"temperature"`
	}{
		Model:       config.Model,
		Messages:    reqMessages,
		MaxTokens:   config.MaxTokens,
		Temperature: config.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	c.logger.Debug("Requesting chat completion",
		logger.String("model", config.Model),
		logger.Int("messages", len(messages)))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai chat failed: %s %s", resp.Status, string(body))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in openai response")
	}

	return result.Choices[0].Message.Content, nil
}
