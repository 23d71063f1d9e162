// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package subscriptions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	apievents "github.com/dealerhq/dealer/api/events"
	"github.com/dealerhq/dealer/api/utils"
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/events"
	"github.com/dealerhq/dealer/log"
	"github.com/dealerhq/dealer/logdb"
)

const (
	writeTimeout   = 10 * time.Second
	subChanSize    = 256
	messageCacheSz = 256
)

var logger = log.WithContext("pkg", "subscriptions")

type Subscriptions struct {
	backtraceLimit uint64
	feed           *events.Feed
	db             *logdb.LogDB
	cache          *messageCache
	upgrader       *websocket.Upgrader
	done           chan struct{}
	wg             sync.WaitGroup
	closeOnce      sync.Once
}

// New creates the websocket endpoint. A subscriber may replay at most
// backtraceLimit stored events before following the live feed.
func New(feed *events.Feed, db *logdb.LogDB, allowedOrigins []string, backtraceLimit uint64) *Subscriptions {
	return &Subscriptions{
		backtraceLimit: backtraceLimit,
		feed:           feed,
		db:             db,
		cache:          newMessageCache(messageCacheSz),
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == origin || allowed == "*" {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

// filter selects the events a subscriber receives.
type filter struct {
	names  map[string]bool
	topic1 *dealer.Bytes32
}

func (f *filter) match(ev *apievents.Event) bool {
	if len(f.names) > 0 && !f.names[ev.Name] {
		return false
	}
	if f.topic1 != nil && (len(ev.Topics) < 2 || ev.Topics[1] != *f.topic1) {
		return false
	}
	return true
}

func parseFilter(req *http.Request) (*filter, *uint64, error) {
	query := req.URL.Query()
	f := &filter{names: make(map[string]bool)}
	for _, name := range query["name"] {
		if _, ok := events.ID(name); !ok {
			return nil, nil, utils.BadRequest(fmt.Errorf("name: unknown event %q", name))
		}
		f.names[name] = true
	}
	if s := query.Get("signer"); s != "" {
		signer, err := dealer.ParseAddress(s)
		if err != nil {
			return nil, nil, utils.BadRequest(errors.WithMessage(err, "signer"))
		}
		topic := dealer.BytesToBytes32(signer.Bytes())
		f.topic1 = &topic
	}
	if s := query.Get("pos"); s != "" {
		pos, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return nil, nil, utils.BadRequest(errors.WithMessage(err, "pos"))
		}
		return f, &pos, nil
	}
	return f, nil, nil
}

// message returns the encoded event if it passes the filter, nil otherwise.
func (s *Subscriptions) message(ev *events.Event, f *filter) ([]byte, error) {
	converted, err := apievents.ConvertEvent(ev)
	if err != nil {
		return nil, err
	}
	if !f.match(converted) {
		return nil, nil
	}
	msg, _, err := s.cache.GetOrAdd(ev.Seq, func() ([]byte, error) {
		return json.Marshal(converted)
	})
	return msg, err
}

// backtrace loads the stored events after pos.
func (s *Subscriptions) backtrace(ctx context.Context, pos uint64) ([]*events.Event, error) {
	last, err := s.db.LastSeq(ctx)
	if err != nil {
		return nil, err
	}
	if last > pos && last-pos > s.backtraceLimit {
		return nil, utils.Forbidden(fmt.Errorf("pos: backtrace limit exceeded, at most %d events", s.backtraceLimit))
	}
	return s.stored(ctx, pos, last)
}

// stored loads the stored events in (after, to].
func (s *Subscriptions) stored(ctx context.Context, after, to uint64) ([]*events.Event, error) {
	if to <= after {
		return nil, nil
	}
	return s.db.FilterEvents(ctx, &logdb.EventFilter{
		Range: &logdb.Range{Unit: logdb.Seq, From: after + 1, To: to},
		Order: logdb.ASC,
	})
}

func (s *Subscriptions) handleSubscribeEvents(w http.ResponseWriter, req *http.Request) error {
	f, pos, err := parseFilter(req)
	if err != nil {
		return err
	}

	// subscribe before the backtrace so nothing committed in between is missed
	ch := make(chan *events.Event, subChanSize)
	sub := s.feed.Subscribe(ch)
	defer func() { sub.Unsubscribe() }()

	var (
		sent    uint64
		backlog []*events.Event
	)
	if pos != nil {
		sent = *pos
		if backlog, err = s.backtrace(req.Context(), *pos); err != nil {
			return err
		}
	} else if sent, err = s.db.LastSeq(req.Context()); err != nil {
		return err
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		logger.Debug("upgrade to websocket", "err", err)
		// the upgrader has already answered the request
		return nil
	}
	s.wg.Add(1)
	defer s.wg.Done()
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// send delivers events in seq order, each at most once.
	send := func(ev *events.Event) error {
		if ev.Seq <= sent {
			return nil
		}
		if ev.Seq != sent+1 {
			return errors.Errorf("event %d missing from history", sent+1)
		}
		msg, err := s.message(ev, f)
		if err != nil {
			return err
		}
		sent = ev.Seq
		if msg == nil {
			return nil
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, msg)
	}
	// catchUp sends the stored events after the last one sent, up to to.
	// Events reach the history before the feed, so it fills any gap in the
	// live stream.
	catchUp := func(to uint64) error {
		stored, err := s.stored(req.Context(), sent, to)
		if err != nil {
			return err
		}
		for _, ev := range stored {
			if err := send(ev); err != nil {
				return err
			}
		}
		return nil
	}

	for _, ev := range backlog {
		if err := send(ev); err != nil {
			return s.closeConn(conn, err)
		}
	}
	for {
		select {
		case ev := <-ch:
			if ev.Seq > sent+1 {
				if err := catchUp(ev.Seq - 1); err != nil {
					return s.closeConn(conn, err)
				}
			}
			if err := send(ev); err != nil {
				return s.closeConn(conn, err)
			}
		case err := <-sub.Err():
			if !errors.Is(err, events.ErrLagged) {
				return s.closeConn(conn, err)
			}
			logger.Debug("subscriber lagged, catching up", "sent", sent)
			sub.Unsubscribe()
			ch = make(chan *events.Event, subChanSize)
			sub = s.feed.Subscribe(ch)
			last, err := s.db.LastSeq(req.Context())
			if err == nil {
				err = catchUp(last)
			}
			if err != nil {
				return s.closeConn(conn, err)
			}
		case <-closed:
			return nil
		case <-s.done:
			return s.closeConn(conn, nil)
		}
	}
}

// closeConn says goodbye to the peer. The request is already hijacked, so
// errors are only logged.
func (s *Subscriptions) closeConn(conn *websocket.Conn, err error) error {
	code, text := websocket.CloseNormalClosure, ""
	if err != nil {
		logger.Debug("subscription closed", "err", err)
		code, text = websocket.CloseInternalServerErr, err.Error()
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
	return nil
}

// Close terminates all active subscriptions and waits for them to return.
func (s *Subscriptions) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/events").
		Methods(http.MethodGet).
		Name("WS /subscriptions/events").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeEvents))
}
