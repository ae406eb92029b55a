package chatclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/chat"
)

// ErrorText replaces the assistant message when a stream fails.
const ErrorText = "Sorry, I couldn't reach the anatomy assistant. Please try again."

var (
	ErrBusy          = errors.New("an answer is still streaming")
	ErrNoOrgan       = errors.New("no organ selected")
	ErrEmptyQuestion = errors.New("question is empty")
)

// Greeting is the first assistant message of every organ chat.
func Greeting(organName string) string {
	return fmt.Sprintf("Hi! I'm your anatomy guide for the %s. Ask me anything!", organName)
}

// Chat is the conversation about the currently selected organ. At most one
// answer streams at a time. Selecting another organ discards the messages and
// cancels any answer in flight.
type Chat struct {
	client   *Client
	onUpdate func()

	mu       sync.Mutex
	organ    string
	messages []chat.Message
	busy     bool
	cancel   context.CancelFunc
	gen      uint64
}

// NewChat creates an empty chat. onUpdate, if non-nil, runs after every
// change to the message list, outside the Chat's lock.
func NewChat(client *Client, onUpdate func()) *Chat {
	return &Chat{client: client, onUpdate: onUpdate}
}

// Select starts a fresh chat about organName.
func (c *Chat) Select(organName string) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.organ = organName
	c.busy = false
	c.messages = []chat.Message{{Role: chat.RoleAssistant, Text: Greeting(organName)}}
	c.mu.Unlock()
	c.notify()
}

// Organ is the selected organ's name, or "" before the first Select.
func (c *Chat) Organ() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.organ
}

// Busy reports whether an answer is streaming.
func (c *Chat) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

// Messages returns a copy of the conversation.
func (c *Chat) Messages() []chat.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.Message(nil), c.messages...)
}

// Ask sends question and blocks until the answer reaches a terminal state.
// Only precondition failures are returned; stream failures end up in the
// assistant message as ErrorText.
func (c *Chat) Ask(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)

	c.mu.Lock()
	switch {
	case c.organ == "":
		c.mu.Unlock()
		return ErrNoOrgan
	case question == "":
		c.mu.Unlock()
		return ErrEmptyQuestion
	case c.busy:
		c.mu.Unlock()
		return ErrBusy
	}
	c.busy = true
	c.messages = append(c.messages,
		chat.Message{Role: chat.RoleUser, Text: question},
		chat.Message{Role: chat.RoleAssistant, Streaming: true},
	)
	idx := len(c.messages) - 1
	gen := c.gen
	req := chat.Request{Organ: c.organ, Question: question}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()
	c.notify()

	err := c.client.Stream(ctx, req, func(delta string) {
		c.apply(gen, func() { c.messages[idx].Text += delta })
	})

	c.apply(gen, func() {
		msg := &c.messages[idx]
		switch {
		case err == nil:
		case errors.Is(err, ErrUnterminated):
			slog.Debug("answer ended without sentinel", "organ", req.Organ, "chars", len(msg.Text))
		default:
			slog.Debug("answer failed", "organ", req.Organ, "err", err)
			msg.Text = ErrorText
		}
		msg.Streaming = false
		c.busy = false
		c.cancel = nil
	})
	return nil
}

// apply runs fn under the lock unless the chat moved on to another organ.
func (c *Chat) apply(gen uint64, fn func()) {
	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		return
	}
	fn()
	c.mu.Unlock()
	c.notify()
}

func (c *Chat) notify() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}
