// Package lineframe turns a chunked byte stream into complete lines.
//
// Both halves of the chat relay speak line-oriented framings (NDJSON from
// local model servers, "data:" frames from hosted APIs and from the relay
// itself), and none of them promise that a network read ends on a line
// boundary. Decoder keeps the trailing partial line until the next chunk
// closes it.
package lineframe

import (
	"bytes"
	"errors"
	"io"
	"iter"
)

const readChunkSize = 4096

// Decoder buffers partial input and yields complete lines. The zero value is
// ready to use. A Decoder is not safe for concurrent use.
type Decoder struct {
	buf []byte
}

// Feed appends chunk to the pending input and returns every line it
// completes, stripped of its "\n" or "\r\n" terminator.
func (d *Decoder) Feed(chunk []byte) []string {
	d.buf = append(d.buf, chunk...)

	var lines []string
	start := 0
	for {
		i := bytes.IndexByte(d.buf[start:], '\n')
		if i < 0 {
			break
		}
		line := d.buf[start : start+i]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, string(line))
		start += i + 1
	}

	if start > 0 {
		n := copy(d.buf, d.buf[start:])
		d.buf = d.buf[:n]
	}
	return lines
}

// Pending reports how many bytes of an unterminated line are buffered.
func (d *Decoder) Pending() int {
	return len(d.buf)
}

// Flush returns the buffered partial line, if any, and resets the decoder.
// It is meant for end of input, where a final line may lack its terminator.
func (d *Decoder) Flush() (string, bool) {
	if len(d.buf) == 0 {
		return "", false
	}
	line := string(bytes.TrimSuffix(d.buf, []byte{'\r'}))
	d.buf = d.buf[:0]
	return line, true
}

// Lines returns a lazy sequence over the complete lines read from r. The
// final unterminated line is yielded at EOF. A read error other than EOF is
// yielded once and ends the sequence.
//
// Every range over the sequence starts a fresh decoder and resumes reading
// wherever r currently is; lines that were buffered but not yielded when a
// previous range stopped early are lost.
func Lines(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var d Decoder
		buf := make([]byte, readChunkSize)
		for {
			n, err := r.Read(buf)
			if n > 0 {
				for _, line := range d.Feed(buf[:n]) {
					if !yield(line, nil) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				if rest, ok := d.Flush(); ok {
					yield(rest, nil)
				}
				return
			}
			if err != nil {
				yield("", err)
				return
			}
		}
	}
}
