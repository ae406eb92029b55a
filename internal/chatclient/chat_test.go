package chatclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/anatomy-explorer/backend/internal/handler/ask"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/model/chat"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/ai"
	"github.com/zhouzirui/anatomy-explorer/backend/internal/service/relay"
)

// sseServer answers every question with frames, written and flushed one by one.
func sseServer(t *testing.T, frames ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, f := range frames {
			fmt.Fprint(w, f)
			flusher.Flush()
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func askOnce(t *testing.T, baseURL, question string) (*Chat, chat.Message) {
	t.Helper()
	c := NewChat(New(baseURL, nil), nil)
	c.Select("Heart")
	if err := c.Ask(context.Background(), question); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	msgs := c.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected greeting, question and answer, got %+v", msgs)
	}
	if c.Busy() {
		t.Fatal("chat still busy after Ask returned")
	}
	return c, msgs[2]
}

func TestAskAccumulatesDeltas(t *testing.T) {
	srv := sseServer(t,
		"data: {\"text\":\"The heart \"}\n\n",
		"data: {\"text\":\"has four \"}\n\n",
		"data: {\"text\":\"chambers.\"}\n\n",
		"data: [DONE]\n\n",
	)
	c, answer := askOnce(t, srv.URL, "How many chambers?")
	if answer.Text != "The heart has four chambers." || answer.Streaming {
		t.Fatalf("answer = %+v", answer)
	}
	msgs := c.Messages()
	if msgs[0].Text != Greeting("Heart") || msgs[1].Role != chat.RoleUser || msgs[1].Text != "How many chambers?" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestAskImmediateSentinel(t *testing.T) {
	_, answer := askOnce(t, sseServer(t, "data: [DONE]\n\n").URL, "Hello?")
	if answer.Text != "" || answer.Streaming {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestAskErrorEventShowsFixedText(t *testing.T) {
	srv := sseServer(t,
		"data: {\"error\":\"ollama error (500): no body\"}\n\n",
		"data: [DONE]\n\n",
	)
	_, answer := askOnce(t, srv.URL, "Why?")
	if answer.Text != ErrorText || answer.Streaming {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestAskMalformedFrameShowsFixedText(t *testing.T) {
	srv := sseServer(t, "data: {\"text\":\"ok\"}\n\n", "data: {oops\n\n", "data: [DONE]\n\n")
	_, answer := askOnce(t, srv.URL, "Why?")
	if answer.Text != ErrorText {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestAskEarlyCloseKeepsText(t *testing.T) {
	srv := sseServer(t, "data: {\"text\":\"Partial answer\"}\n\n")
	_, answer := askOnce(t, srv.URL, "Why?")
	if answer.Text != "Partial answer" || answer.Streaming {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestAskRelayRejectsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Missing organ or question"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, answer := askOnce(t, srv.URL, "Why?")
	if answer.Text != ErrorText {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestAskRelayUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, answer := askOnce(t, url, "Anyone there?")
	if answer.Text != ErrorText || answer.Streaming {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestAskPreconditions(t *testing.T) {
	c := NewChat(New("http://127.0.0.1:1", nil), nil)
	if err := c.Ask(context.Background(), "Hi"); !errors.Is(err, ErrNoOrgan) {
		t.Fatalf("err = %v, want ErrNoOrgan", err)
	}
	c.Select("Liver")
	if err := c.Ask(context.Background(), "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("err = %v, want ErrEmptyQuestion", err)
	}
	if len(c.Messages()) != 1 {
		t.Fatalf("rejected asks should not add messages: %+v", c.Messages())
	}
}

// blockingServer sends one delta, then holds the stream open until the
// request is cancelled or release is closed.
func blockingServer(t *testing.T) (srv *httptest.Server, release chan struct{}, gone chan struct{}) {
	t.Helper()
	release = make(chan struct{})
	gone = make(chan struct{}, 1)
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// the server notices a vanished client only after the body is consumed
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"text\":\"thinking\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-release:
			fmt.Fprint(w, "data: [DONE]\n\n")
		case <-r.Context().Done():
			gone <- struct{}{}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, release, gone
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAskWhileBusy(t *testing.T) {
	srv, release, _ := blockingServer(t)
	c := NewChat(New(srv.URL, nil), nil)
	c.Select("Brain")

	done := make(chan error, 1)
	go func() { done <- c.Ask(context.Background(), "First?") }()
	waitFor(t, func() bool {
		msgs := c.Messages()
		return len(msgs) == 3 && msgs[2].Text == "thinking"
	})

	if err := c.Ask(context.Background(), "Second?"); !errors.Is(err, ErrBusy) {
		t.Fatalf("err = %v, want ErrBusy", err)
	}
	if !c.Messages()[2].Streaming {
		t.Fatal("answer should still be streaming")
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Ask: %v", err)
	}
	if c.Busy() || len(c.Messages()) != 3 {
		t.Fatalf("after release: busy=%v messages=%+v", c.Busy(), c.Messages())
	}
}

func TestSelectCancelsInFlightAnswer(t *testing.T) {
	srv, _, gone := blockingServer(t)

	var mu sync.Mutex
	updates := 0
	c := NewChat(New(srv.URL, nil), func() {
		mu.Lock()
		updates++
		mu.Unlock()
	})
	c.Select("Stomach")

	done := make(chan error, 1)
	go func() { done <- c.Ask(context.Background(), "Growl?") }()
	waitFor(t, func() bool { return len(c.Messages()) == 3 && c.Messages()[2].Text == "thinking" })

	c.Select("Lungs")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Ask did not return after Select")
	}
	select {
	case <-gone:
	case <-time.After(2 * time.Second):
		t.Fatal("relay request was not cancelled")
	}

	msgs := c.Messages()
	if len(msgs) != 1 || msgs[0].Text != Greeting("Lungs") {
		t.Fatalf("messages = %+v", msgs)
	}
	if c.Busy() {
		t.Fatal("new chat should not be busy")
	}
	mu.Lock()
	defer mu.Unlock()
	if updates < 4 {
		t.Fatalf("expected observer updates, got %d", updates)
	}
}

type deltaBackend struct {
	deltas []string
	err    error
}

func (deltaBackend) Name() string { return "test" }

func (b deltaBackend) Generate(_ context.Context, _ ai.Prompt, emit ai.DeltaFunc) error {
	for _, d := range b.deltas {
		if err := emit(d); err != nil {
			return err
		}
	}
	return b.err
}

func relayServer(t *testing.T, backend ai.Backend) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		ask.New(relay.New(backend, nil), nil).RegisterRoutes(api)
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestAskAgainstRelay(t *testing.T) {
	srv := relayServer(t, deltaBackend{deltas: []string{"Kidneys ", "filter ", "blood."}})
	_, answer := askOnce(t, srv.URL, "What do kidneys do?")
	if answer.Text != "Kidneys filter blood." || answer.Streaming {
		t.Fatalf("answer = %+v", answer)
	}
}

func TestAskAgainstFailingRelayBackend(t *testing.T) {
	srv := relayServer(t, deltaBackend{err: &ai.StatusError{Backend: "openai", StatusCode: 503}})
	_, answer := askOnce(t, srv.URL, "Hello?")
	if answer.Text != ErrorText || answer.Streaming {
		t.Fatalf("answer = %+v", answer)
	}
}
