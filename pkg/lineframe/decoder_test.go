package lineframe

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"
)

func TestDecoderHoldsPartialLine(t *testing.T) {
	var d Decoder

	if got := d.Feed([]byte(`{"response":"He`)); len(got) != 0 {
		t.Fatalf("expected no complete lines, got %q", got)
	}
	if d.Pending() == 0 {
		t.Fatal("expected partial line to be buffered")
	}

	got := d.Feed([]byte("llo\"}\n{\"respo"))
	want := []string{`{"response":"Hello"}`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected lines: got %q want %q", got, want)
	}

	got = d.Feed([]byte("nse\":\"!\"}\n"))
	want = []string{`{"response":"!"}`}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected lines: got %q want %q", got, want)
	}
	if d.Pending() != 0 {
		t.Fatalf("expected empty buffer, got %d bytes", d.Pending())
	}
}

func TestDecoderStripsCRLFAndKeepsEmptyLines(t *testing.T) {
	var d Decoder
	got := d.Feed([]byte("data: a\r\n\r\ndata: b\n\n"))
	want := []string{"data: a", "", "data: b", ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected lines: got %q want %q", got, want)
	}
}

func TestDecoderFlush(t *testing.T) {
	var d Decoder
	d.Feed([]byte("first\nsecond"))

	rest, ok := d.Flush()
	if !ok || rest != "second" {
		t.Fatalf("unexpected flush result: %q %v", rest, ok)
	}
	if _, ok := d.Flush(); ok {
		t.Fatal("expected second flush to be empty")
	}
}

func TestDecoderSplitMultibyteRune(t *testing.T) {
	var d Decoder
	heart := []byte("❤ beats\n")

	if got := d.Feed(heart[:2]); len(got) != 0 {
		t.Fatalf("expected no lines, got %q", got)
	}
	got := d.Feed(heart[2:])
	if len(got) != 1 || got[0] != "❤ beats" {
		t.Fatalf("rune was not reassembled: %q", got)
	}
}

func TestLinesOneByteReads(t *testing.T) {
	input := "alpha\nbeta\r\ngamma"
	r := iotest.OneByteReader(strings.NewReader(input))

	var got []string
	for line, err := range Lines(r) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, line)
	}

	want := []string{"alpha", "beta", "gamma"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected lines: got %q want %q", got, want)
	}
}

func TestLinesStopsEarly(t *testing.T) {
	r := strings.NewReader("one\ntwo\nthree\n")

	count := 0
	for range Lines(r) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected iteration to stop after one line, got %d", count)
	}
}

func TestLinesYieldsReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("ok\npartial"), iotest.ErrReader(boom))

	var lines []string
	var gotErr error
	for line, err := range Lines(r) {
		if err != nil {
			gotErr = err
			continue
		}
		lines = append(lines, line)
	}

	if !errors.Is(gotErr, boom) {
		t.Fatalf("expected read error, got %v", gotErr)
	}
	if !reflect.DeepEqual(lines, []string{"ok"}) {
		t.Fatalf("unexpected lines before error: %q", lines)
	}
}
