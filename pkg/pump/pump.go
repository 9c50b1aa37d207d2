package pump

import (
	"bufio"
	"errors"
	"io"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// StreamType identifies the child stream a line was read from
type StreamType string

const (
	StdoutStream StreamType = "stdout"
	StderrStream StreamType = "stderr"
)

const (
	// DefaultCapacity is the merged channel buffer used when none is configured.
	DefaultCapacity = 1024

	readBufferSize = 64 * 1024
	maxLineLength  = 1024 * 1024
)

// Line is one decoded line of child output, without its line terminator.
type Line struct {
	Stream StreamType
	Text   string
}

// Pump reads r line by line until it is exhausted and sends every line that
// is valid UTF-8 and at most 1 MiB long to sink. Other lines are dropped and
// reading continues with the next one. The returned error is the read error
// that ended the stream, nil on a clean EOF.
func Pump(r io.Reader, stream StreamType, sink chan<- Line) error {
	reader := bufio.NewReaderSize(r, readBufferSize)

	var buf []byte
	oversized := false
	for {
		chunk, isPrefix, err := reader.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		if !oversized {
			if len(buf)+len(chunk) > maxLineLength {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if isPrefix {
			continue
		}

		if !oversized && utf8.Valid(buf) {
			sink <- Line{Stream: stream, Text: string(buf)}
		}
		buf = buf[:0]
		oversized = false
	}
}

// Merge pumps stdout and stderr concurrently into one channel. Lines from a
// single stream keep their order; lines from different streams interleave in
// arrival order. The lines channel is closed once both streams have ended,
// after which done yields the first pump error (or nil) and is closed.
func Merge(stdout, stderr io.Reader, capacity int) (<-chan Line, <-chan error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	lines := make(chan Line, capacity)
	done := make(chan error, 1)

	var g errgroup.Group
	g.Go(func() error {
		return Pump(stdout, StdoutStream, lines)
	})
	g.Go(func() error {
		return Pump(stderr, StderrStream, lines)
	})

	go func() {
		err := g.Wait()
		close(lines)
		done <- err
		close(done)
	}()

	return lines, done
}
