package ai

import (
	"context"
	"strings"
	"time"
)

const mockAnswer = "Great question! I'm the offline mock guide, so I can't look that up for real, " +
	"but set LLM_BACKEND to ollama, openai or ark and I'll give you a proper answer."

// Mock streams a canned answer word by word. It needs no model server.
type Mock struct {
	delay time.Duration
}

// NewMock returns a Mock that pauses delay between words.
func NewMock(delay time.Duration) *Mock {
	if delay <= 0 {
		delay = 30 * time.Millisecond
	}
	return &Mock{delay: delay}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Generate(ctx context.Context, _ Prompt, emit DeltaFunc) error {
	words := strings.SplitAfter(mockAnswer, " ")
	timer := time.NewTimer(m.delay)
	defer timer.Stop()

	for _, word := range words {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		if err := emit(word); err != nil {
			return err
		}
		timer.Reset(m.delay)
	}
	return nil
}
