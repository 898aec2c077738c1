package client

import (
	"bufio"
	"context"
	"net/http"
	"strings"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/kcal-sh/kcal/pkg/events"
)

// SubscribeEvents opens the daemon's event stream and returns a
// channel of decoded events. The channel closes when ctx is cancelled
// or the daemon ends the stream. This is the one client call that
// takes a context; everything else is a short request-response.
func (c *Client) SubscribeEvents(ctx context.Context) (<-chan events.Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://unix/v1/events", nil)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to create event stream request")
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "failed to open event stream")
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, pkgerrors.Errorf("event stream returned %d", resp.StatusCode)
	}

	ch := make(chan events.Event, 16)
	go func() {
		defer close(ch)
		defer func() {
			if err := resp.Body.Close(); err != nil {
				logrus.Errorf("failed to close event stream: %v", err)
			}
		}()

		var ev events.Event
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			line := sc.Text()
			switch {
			case strings.HasPrefix(line, "event:"):
				ev.Name = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			case strings.HasPrefix(line, "data:"):
				ev.Data = []byte(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
			case line == "":
				// Blank line terminates one SSE event.
				if ev.Name != "" || len(ev.Data) > 0 {
					select {
					case ch <- ev:
					case <-ctx.Done():
						return
					}
				}
				ev = events.Event{}
			}
		}
		if err := sc.Err(); err != nil && ctx.Err() == nil {
			logrus.WithError(err).Debug("event stream closed")
		}
	}()

	return ch, nil
}
