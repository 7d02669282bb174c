package advisor

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/vbonduro/restaurantqr/internal/domain"
	"github.com/vbonduro/restaurantqr/internal/gateway"
)

// ConnectFailedMessage replaces the conversation when the advisor cannot be
// reached on activation.
const ConnectFailedMessage = "Došlo je do greške pri povezivanju s AI savjetnikom."

var (
	ErrEmptyInput = errors.New("message is empty")
	ErrNoSession  = errors.New("advisor session not available")
	ErrBusy       = errors.New("a reply is still streaming")
	ErrClosed     = errors.New("advisor closed")
)

// Event is a snapshot of the message currently being streamed. Text is the
// full text so far, not a delta. The last event of a turn has Done set.
type Event struct {
	MessageID string
	Text      string
	Done      bool
}

// Controller owns one advisor conversation for the lifetime of the chat
// screen. Input is gated while a reply streams: at most one turn is in flight.
type Controller struct {
	factory gateway.AdvisorFactory
	logger  *slog.Logger

	wg sync.WaitGroup

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	closed   bool
	session  gateway.Session
	messages []domain.ChatMessage
	busy     bool
	events   chan Event
}

func New(factory gateway.AdvisorFactory, logger *slog.Logger) *Controller {
	return &Controller{factory: factory, logger: logger}
}

// Start activates the controller. ctx bounds the lifetime of every stream the
// controller runs; Close cancels it. Start opens the session and streams the
// advisor's greeting into a new message, returning that turn's events.
// Calling Start again returns the current turn's events.
func (c *Controller) Start(ctx context.Context) <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.cancel != nil {
		return c.events
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	c.busy = true
	events := make(chan Event, 1)
	c.events = events

	c.wg.Add(1)
	go c.greet(events)
	return events
}

func (c *Controller) greet(events chan Event) {
	defer c.wg.Done()

	var msgID string
	defer func() { c.release(events, msgID) }()

	fail := func(err error) {
		c.logger.Error("advisor greeting failed", "error", err)
		msg := domain.ChatMessage{ID: uuid.NewString(), Sender: domain.SenderAI, Text: ConnectFailedMessage}
		c.mu.Lock()
		c.messages = []domain.ChatMessage{msg}
		c.mu.Unlock()
		msgID = msg.ID
	}

	session, err := c.factory.NewAdvisorSession(c.ctx)
	if err != nil {
		fail(err)
		return
	}
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	stream, err := session.Send(c.ctx, "")
	if err != nil {
		fail(err)
		return
	}

	msg := domain.ChatMessage{ID: uuid.NewString(), Sender: domain.SenderAI}
	c.mu.Lock()
	c.messages = append(c.messages, msg)
	c.mu.Unlock()
	msgID = msg.ID

	if err := c.pump(stream, msg.ID, events); err != nil && c.ctx.Err() == nil {
		fail(err)
	}
}

// Submit sends text as the next user turn. The user message and an empty
// advisor message are appended, and the reply streams into the latter.
func (c *Controller) Submit(text string) (<-chan Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closed:
		return nil, ErrClosed
	case c.session == nil:
		return nil, ErrNoSession
	case c.busy:
		return nil, ErrBusy
	}

	user := domain.ChatMessage{ID: uuid.NewString(), Sender: domain.SenderUser, Text: text}
	reply := domain.ChatMessage{ID: uuid.NewString(), Sender: domain.SenderAI}
	c.messages = append(c.messages, user, reply)
	c.busy = true
	events := make(chan Event, 1)
	c.events = events

	c.wg.Add(1)
	go c.reply(c.session, text, reply.ID, events)
	return events, nil
}

func (c *Controller) reply(session gateway.Session, text, msgID string, events chan Event) {
	defer c.wg.Done()
	defer c.release(events, msgID)

	stream, err := session.Send(c.ctx, text)
	if err == nil {
		err = c.pump(stream, msgID, events)
	}
	if err != nil && c.ctx.Err() == nil {
		c.logger.Error("advisor reply failed", "message_id", msgID, "error", err)
		publish(events, Event{MessageID: msgID, Text: c.setText(msgID, gateway.ChatFailedMessage)})
	}
}

// pump applies fragments to the message in arrival order until the stream
// ends, fails, or the controller is closed.
func (c *Controller) pump(stream <-chan gateway.Fragment, msgID string, events chan Event) error {
	for {
		select {
		case <-c.ctx.Done():
			return c.ctx.Err()
		case f, ok := <-stream:
			if !ok {
				return nil
			}
			if f.Err != nil {
				return f.Err
			}
			publish(events, Event{MessageID: msgID, Text: c.appendText(msgID, f.Text)})
		}
	}
}

// release reopens input and ends the turn's event stream. It runs on every
// exit path of a turn.
func (c *Controller) release(events chan Event, msgID string) {
	c.mu.Lock()
	c.busy = false
	final := Event{MessageID: msgID, Text: c.textLocked(msgID), Done: true}
	c.mu.Unlock()

	publish(events, final)
	close(events)
}

// publish delivers ev, replacing an unread older snapshot so that the stream
// never waits for its reader.
func publish(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (c *Controller) appendText(id, fragment string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Text += fragment
			return c.messages[i].Text
		}
	}
	return ""
}

func (c *Controller) setText(id, text string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.messages {
		if c.messages[i].ID == id {
			c.messages[i].Text = text
			return text
		}
	}
	return ""
}

func (c *Controller) textLocked(id string) string {
	for _, m := range c.messages {
		if m.ID == id {
			return m.Text
		}
	}
	return ""
}

// Messages returns the conversation in append order.
func (c *Controller) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatMessage(nil), c.messages...)
}

// Busy reports whether input is gated by an in-flight reply.
func (c *Controller) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Events returns the most recent turn's events. Once the turn has ended the
// channel is closed. It has a single reader.
func (c *Controller) Events() <-chan Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events
}

// Close cancels any in-flight reply and waits for it to stop. The controller
// cannot be used afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}
