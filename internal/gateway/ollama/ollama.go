package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/gateway"
)

// Gateway implements gateway.Gateway against a local Ollama server. Ollama
// needs no credential.
type Gateway struct {
	host   string
	model  string
	client *http.Client
	logger *slog.Logger
}

func New(host, model string, logger *slog.Logger) *Gateway {
	return &Gateway{
		host:   strings.TrimSuffix(host, "/"),
		model:  model,
		client: &http.Client{},
		logger: logger,
	}
}

func (g *Gateway) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.host+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, errBody)
	}
	return resp, nil
}

func (g *Gateway) ExtractMenu(ctx context.Context, r io.Reader, _ string) ([]domain.MenuItem, error) {
	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, gateway.NewExtractionError(fmt.Errorf("failed to read image: %w", err))
	}

	// Ollama takes a JSON schema in "format" and constrains decoding to it.
	reqBody := map[string]any{
		"model":  g.model,
		"prompt": gateway.ExtractionPrompt,
		"images": []string{base64.StdEncoding.EncodeToString(imageData)},
		"format": json.RawMessage(gateway.MenuSchema),
		"stream": false,
	}

	resp, err := g.post(ctx, "/api/generate", reqBody)
	if err != nil {
		return nil, gateway.NewExtractionError(err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			g.logger.Error("failed to close ollama response body", "error", err)
		}
	}()

	var respBody struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&respBody); err != nil {
		return nil, gateway.NewExtractionError(fmt.Errorf("failed to decode response: %w", err))
	}

	items, err := gateway.ParseMenu(respBody.Response)
	if err != nil {
		return nil, gateway.NewExtractionError(err)
	}
	return items, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (g *Gateway) NewAdvisorSession(_ context.Context) (gateway.Session, error) {
	return &session{
		gw:      g,
		history: []chatMessage{{Role: "system", Content: gateway.AdvisorPersona}},
	}, nil
}

type session struct {
	gw      *Gateway
	mu      sync.Mutex
	history []chatMessage
}

// Send streams /api/chat, which answers with one JSON object per line until
// an object with "done": true.
func (s *session) Send(ctx context.Context, text string) (<-chan gateway.Fragment, error) {
	if strings.TrimSpace(text) == "" {
		text = gateway.GreetingPrompt
	}

	s.mu.Lock()
	messages := append(slices.Clone(s.history), chatMessage{Role: "user", Content: text})
	s.mu.Unlock()

	resp, err := s.gw.post(ctx, "/api/chat", map[string]any{
		"model":    s.gw.model,
		"messages": messages,
		"stream":   true,
	})
	if err != nil {
		return nil, gateway.NewChatError(err)
	}

	ch := make(chan gateway.Fragment, 16)

	go func() {
		defer close(ch)
		defer func() {
			if err := resp.Body.Close(); err != nil {
				s.gw.logger.Error("failed to close ollama stream body", "error", err)
			}
		}()

		var reply strings.Builder
		done := false
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if ctx.Err() != nil {
				return
			}

			var chunk struct {
				Message chatMessage `json:"message"`
				Done    bool        `json:"done"`
				Error   string      `json:"error"`
			}
			if err := json.Unmarshal(scanner.Bytes(), &chunk); err != nil {
				continue
			}
			if chunk.Error != "" {
				ch <- gateway.Fragment{Err: gateway.NewChatError(fmt.Errorf("ollama: %s", chunk.Error))}
				return
			}
			if chunk.Message.Content != "" {
				reply.WriteString(chunk.Message.Content)
				select {
				case ch <- gateway.Fragment{Text: chunk.Message.Content}:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
				done = true
				break
			}
		}

		if ctx.Err() != nil {
			return
		}
		if err := scanner.Err(); err != nil {
			ch <- gateway.Fragment{Err: gateway.NewChatError(fmt.Errorf("read ollama stream: %w", err))}
			return
		}
		if !done {
			ch <- gateway.Fragment{Err: gateway.NewChatError(io.ErrUnexpectedEOF)}
			return
		}

		s.mu.Lock()
		s.history = append(messages, chatMessage{Role: "assistant", Content: reply.String()})
		s.mu.Unlock()
	}()

	return ch, nil
}
