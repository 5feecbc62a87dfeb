// Package assistant proxies the support chat to an OpenAI-compatible
// streaming completion endpoint.
package assistant

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fx-client-portal/ledger"

	"github.com/tidwall/gjson"
)

// FallbackReply is the single message shown when the assistant cannot be
// reached or the stream breaks.
const FallbackReply = "Sorry, I'm having trouble connecting right now. Please try again shortly."

const DefaultSystemPrompt = "You are the MasterDaffy Assistant for Daffy FX, a managed gold and forex trading service. " +
	"Answer questions about onboarding, the $20 minimum capital, Sunday account activation, the 50/50 profit share " +
	"and how to submit payment proof. Be brief and friendly. Never ask for broker passwords in chat."

var ErrTruncated = errors.New("assistant stream ended without end marker")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("assistant endpoint returned %d: %s", e.Code, e.Body)
}

type Client struct {
	URL          string
	APIKey       string
	Model        string
	SystemPrompt string
	MaxHistory   int
	HTTP         *http.Client
}

func NewClient(url, apiKey, model, systemPrompt string, maxHistory int) *Client {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &Client{
		URL:          url,
		APIKey:       apiKey,
		Model:        model,
		SystemPrompt: systemPrompt,
		MaxHistory:   maxHistory,
		// no overall timeout: replies stream for as long as the model talks
		HTTP: &http.Client{Transport: &http.Transport{ResponseHeaderTimeout: 30 * time.Second}},
	}
}

// Validate checks a history coming from the browser.
func Validate(history []Message) error {
	if len(history) == 0 {
		return ledger.NewValidationError("messages", "Say something first")
	}
	for _, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			return ledger.NewValidationError("messages", "Unknown message role")
		}
	}
	last := history[len(history)-1]
	if last.Role != "user" || strings.TrimSpace(last.Content) == "" {
		return ledger.NewValidationError("messages", "Say something first")
	}
	return nil
}

// Stream sends the conversation and calls onChunk for every piece of reply
// text as it arrives. It returns nil once the end marker is read.
func (c *Client) Stream(ctx context.Context, history []Message, onChunk func(string) error) error {
	if c.MaxHistory > 0 && len(history) > c.MaxHistory {
		history = history[len(history)-c.MaxHistory:]
	}
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, Message{Role: "system", Content: c.SystemPrompt})
	msgs = append(msgs, history...)

	body, err := json.Marshal(map[string]any{
		"model":    c.Model,
		"messages": msgs,
		"stream":   true,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("assistant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{Code: resp.StatusCode, Body: string(snippet)}
	}

	return readEvents(resp.Body, onChunk)
}

func readEvents(r io.Reader, onChunk func(string) error) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			done, cbErr := handleLine(line, onChunk)
			if cbErr != nil {
				return cbErr
			}
			if done {
				return nil
			}
		}
		if err == io.EOF {
			return ErrTruncated
		}
		if err != nil {
			return fmt.Errorf("assistant stream: %w", err)
		}
	}
}

func handleLine(line string, onChunk func(string) error) (bool, error) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data: ") {
		return false, nil
	}

	payload := strings.TrimSpace(strings.TrimPrefix(line, "data: "))
	if payload == "[DONE]" {
		return true, nil
	}
	if !gjson.Valid(payload) {
		return false, nil
	}

	content := gjson.Get(payload, "choices.0.delta.content").String()
	if content == "" {
		return false, nil
	}
	return false, onChunk(content)
}
