package claude

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/gateway"
)

const (
	// A dense menu page runs to ~60 dishes × ~60 tokens of JSON each.
	extractionMaxTokens = 4096
	chatMaxTokens       = 1024
)

// Gateway implements gateway.Gateway on the Anthropic Messages API.
type Gateway struct {
	client *anthropic.Client
	apiKey string
	model  string
	logger *slog.Logger
}

// New builds a Claude gateway. An empty apiKey is accepted; every operation
// then fails with gateway.ErrMissingCredential instead of calling the API.
func New(apiKey, model string, logger *slog.Logger, opts ...anthropic.ClientOption) *Gateway {
	return &Gateway{
		client: anthropic.NewClient(apiKey, opts...),
		apiKey: apiKey,
		model:  model,
		logger: logger,
	}
}

func (g *Gateway) ExtractMenu(ctx context.Context, r io.Reader, mimeType string) ([]domain.MenuItem, error) {
	if g.apiKey == "" {
		return nil, gateway.NewExtractionError(gateway.ErrMissingCredential)
	}

	imageData, err := io.ReadAll(r)
	if err != nil {
		return nil, gateway.NewExtractionError(fmt.Errorf("failed to read image: %w", err))
	}

	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		MaxTokens: extractionMaxTokens,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(mimeType),
					imageData,
				)),
				anthropic.NewTextMessageContent(gateway.ExtractionInstruction()),
			},
		}},
	})
	if err != nil {
		return nil, gateway.NewExtractionError(fmt.Errorf("failed to call claude: %w", err))
	}

	var responseText string
	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText {
			responseText = blk.GetText()
			break
		}
	}
	g.logger.Debug("claude extraction reply", "bytes", len(responseText), "stop_reason", resp.StopReason)

	items, err := gateway.ParseMenu(responseText)
	if err != nil {
		return nil, gateway.NewExtractionError(err)
	}
	return items, nil
}

func (g *Gateway) NewAdvisorSession(_ context.Context) (gateway.Session, error) {
	if g.apiKey == "" {
		return nil, gateway.NewChatError(gateway.ErrMissingCredential)
	}
	return &session{gw: g}, nil
}

// session keeps the committed turns of one conversation. The persona is sent
// as the system prompt on every request rather than stored in history.
type session struct {
	gw      *Gateway
	mu      sync.Mutex
	history []anthropic.Message
}

func (s *session) Send(ctx context.Context, text string) (<-chan gateway.Fragment, error) {
	if strings.TrimSpace(text) == "" {
		text = gateway.GreetingPrompt
	}

	s.mu.Lock()
	messages := append(slices.Clone(s.history), anthropic.NewUserTextMessage(text))
	s.mu.Unlock()

	// Buffer of 16 keeps the HTTP reader from stalling on a slow consumer
	// between deltas.
	ch := make(chan gateway.Fragment, 16)

	go func() {
		defer close(ch)

		var reply strings.Builder
		_, err := s.gw.client.CreateMessagesStream(ctx, anthropic.MessagesStreamRequest{
			MessagesRequest: anthropic.MessagesRequest{
				Model:     anthropic.Model(s.gw.model),
				MaxTokens: chatMaxTokens,
				System:    gateway.AdvisorPersona,
				Messages:  messages,
			},
			OnContentBlockDelta: func(data anthropic.MessagesEventContentBlockDeltaData) {
				delta := data.Delta.GetText()
				if delta == "" {
					return
				}
				reply.WriteString(delta)
				select {
				case ch <- gateway.Fragment{Text: delta}:
				case <-ctx.Done():
				}
			},
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.gw.logger.Error("claude stream failed", "error", err, "delivered_bytes", reply.Len())
			ch <- gateway.Fragment{Err: gateway.NewChatError(err)}
			return
		}

		// An empty assistant turn would be rejected on the next request.
		if reply.Len() == 0 {
			return
		}
		s.mu.Lock()
		s.history = append(messages, anthropic.NewAssistantTextMessage(reply.String()))
		s.mu.Unlock()
	}()

	return ch, nil
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// The Anthropic API accepts only jpeg, png, gif, and webp. Unknown types are
// coerced to jpeg as the most universally supported lossy fallback.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}
