package transport

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/openai/openai-go/v3"
)

// maxSSELineSize is the largest single SSE line accepted (1 MB).
const maxSSELineSize = 1024 * 1024

// errStreamDone marks the [DONE] sentinel.
var errStreamDone = errors.New("stream done")

// sseScanner yields the data payload of each server-sent event. Comment lines
// and fields other than data are skipped; consecutive data lines are joined
// with newlines.
type sseScanner struct {
	scanner *bufio.Scanner
}

func newSSEScanner(r io.Reader) *sseScanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &sseScanner{scanner: scanner}
}

// next returns io.EOF at end of input and errStreamDone at the [DONE] sentinel.
func (s *sseScanner) next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := strings.TrimSuffix(s.scanner.Text(), "\r")

		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		if strings.HasPrefix(line, ":") {
			continue
		}

		if data, ok := strings.CutPrefix(line, "data:"); ok {
			data = strings.TrimSpace(data)
			if data == "[DONE]" {
				return "", errStreamDone
			}
			dataLines = append(dataLines, data)
		}
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read event stream: %w", err)
	}

	// Trailing event without a blank line
	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}

type streamErrorProbe struct {
	Error json.RawMessage `json:"error"`
}

// ReadDeltas decodes an OpenAI-style chat completion event stream and calls
// onDelta once for every non-empty content fragment, in order. It returns nil
// when the stream ends with [DONE] or end of input. Events that are not valid
// JSON are skipped; an event carrying an "error" object aborts the stream.
func ReadDeltas(r io.Reader, onDelta func(string)) error {
	scanner := newSSEScanner(r)

	for {
		payload, err := scanner.next()
		if err == io.EOF || err == errStreamDone {
			return nil
		}
		if err != nil {
			return err
		}

		var probe streamErrorProbe
		if json.Unmarshal([]byte(payload), &probe) != nil {
			continue
		}
		if len(probe.Error) > 0 && string(probe.Error) != "null" {
			return fmt.Errorf("received error while streaming: %s", streamErrorMessage(probe.Error))
		}

		var chunk openai.ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if content := chunk.Choices[0].Delta.Content; content != "" && onDelta != nil {
			onDelta(content)
		}
	}
}

func streamErrorMessage(raw json.RawMessage) string {
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message
	}
	var s string
	if json.Unmarshal(raw, &s) == nil && s != "" {
		return s
	}
	return string(raw)
}
