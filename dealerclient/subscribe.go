// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dealerclient

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	apievents "github.com/dealerhq/dealer/api/events"
)

var ErrUnexpectedMsg = errors.New("unexpected message format")

// EventWrapper carries either a streamed event or the error that ended the stream.
type EventWrapper struct {
	Data  *apievents.Event
	Error error
}

func (c *Client) wsURL(endpoint string, query url.Values) (string, error) {
	u, err := url.Parse(c.url + endpoint)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("invalid url scheme %q", u.Scheme)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// SubscribeEvents streams committed events. The channel is closed after the
// connection ends, the last value carrying the reason. Cancel ctx to stop.
func (c *Client) SubscribeEvents(ctx context.Context, query url.Values) (<-chan EventWrapper, error) {
	u, err := c.wsURL("/subscriptions/events", query)
	if err != nil {
		return nil, err
	}
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("unable to connect - status %d - %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("unable to connect - %w", err)
	}

	eventChan := make(chan EventWrapper)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	go func() {
		defer close(eventChan)
		defer close(done)
		defer conn.Close()

		for {
			var ev apievents.Event
			if err := conn.ReadJSON(&ev); err != nil {
				if ctx.Err() != nil {
					err = ctx.Err()
				} else {
					err = fmt.Errorf("%w: %w", ErrUnexpectedMsg, err)
				}
				select {
				case eventChan <- EventWrapper{Error: err}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case eventChan <- EventWrapper{Data: &ev}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return eventChan, nil
}
