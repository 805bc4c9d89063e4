package client

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"conveyor/internal/api"
	"conveyor/internal/logging"
	"conveyor/internal/pipeline"
)

// ErrStreamClosed reports that the server ended the update stream.
var ErrStreamClosed = errors.New("update stream closed by server")

// SubscribeUpdates opens the SSE stream for an execution and routes every
// step update through handler until ctx is canceled or the stream fails.
// It returns nil on cancellation and an error otherwise. The stream client
// carries no request timeout; lifetime is governed entirely by ctx.
func (c *Client) SubscribeUpdates(ctx context.Context, executionID string, handler func(pipeline.StepUpdate)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+api.UpdatesPath(executionID), nil)
	if err != nil {
		return fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("open update stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("update stream returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return c.readEvents(ctx, resp.Body, handler)
}

func (c *Client) readEvents(ctx context.Context, body io.Reader, handler func(pipeline.StepUpdate)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var data strings.Builder
	dispatch := func() {
		if data.Len() == 0 {
			return
		}
		payload := data.String()
		data.Reset()

		var update pipeline.StepUpdate
		if err := json.Unmarshal([]byte(payload), &update); err != nil {
			c.logger.Warn("discarding malformed update event", logging.Error(err))
			return
		}
		if update.StepID == "" {
			return
		}
		handler(update)
	}

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		switch {
		case line == "":
			dispatch()
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		default:
			// id: and event: fields carry no extra information here; the
			// sequence travels inside the JSON payload.
		}
	}
	dispatch()

	if ctx.Err() != nil {
		return nil
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read update stream: %w", err)
	}
	return ErrStreamClosed
}
