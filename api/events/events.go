// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package events

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/dealerhq/dealer/api/utils"
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/events"
	"github.com/dealerhq/dealer/logdb"
)

type Events struct {
	db    *logdb.LogDB
	limit uint64
}

func New(db *logdb.LogDB, logsLimit uint64) *Events {
	return &Events{
		db,
		logsLimit,
	}
}

func (e *Events) filter(ctx context.Context, filter *logdb.EventFilter) ([]*Event, error) {
	evs, err := e.db.FilterEvents(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*Event, 0, len(evs))
	for _, ev := range evs {
		converted, err := ConvertEvent(ev)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func parseUint(query url.Values, key string) (*uint64, error) {
	s := query.Get(key)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, key))
	}
	return &v, nil
}

// parseFilter builds a filter from the query string. Unknown event names,
// malformed numbers and inverted ranges are rejected.
func (e *Events) parseFilter(query url.Values) (*logdb.EventFilter, error) {
	filter := &logdb.EventFilter{Order: logdb.ASC}

	for _, name := range query["name"] {
		if _, ok := events.ID(name); !ok {
			return nil, utils.BadRequest(fmt.Errorf("name: unknown event %q", name))
		}
		filter.Names = append(filter.Names, name)
	}

	if s := query.Get("signer"); s != "" {
		signer, err := dealer.ParseAddress(s)
		if err != nil {
			return nil, utils.BadRequest(errors.WithMessage(err, "signer"))
		}
		topic := dealer.BytesToBytes32(signer.Bytes())
		filter.Topic1 = &topic
	}

	switch order := logdb.Order(query.Get("order")); order {
	case "", logdb.ASC:
	case logdb.DESC:
		filter.Order = logdb.DESC
	default:
		return nil, utils.BadRequest(fmt.Errorf("order: unsupported value %q", order))
	}

	from, err := parseUint(query, "from")
	if err != nil {
		return nil, err
	}
	to, err := parseUint(query, "to")
	if err != nil {
		return nil, err
	}
	if from != nil || to != nil {
		r := &logdb.Range{Unit: logdb.Seq, To: math.MaxInt64}
		switch unit := logdb.RangeType(query.Get("unit")); unit {
		case "", logdb.Seq:
		case logdb.Time:
			r.Unit = logdb.Time
		default:
			return nil, utils.BadRequest(fmt.Errorf("unit: unsupported value %q", unit))
		}
		if from != nil {
			r.From = *from
		}
		if to != nil {
			r.To = *to
		}
		if r.To > math.MaxInt64 {
			r.To = math.MaxInt64
		}
		if r.From > r.To {
			return nil, utils.BadRequest(errors.New("to must be greater than or equal to from"))
		}
		filter.Range = r
	}

	offset, err := parseUint(query, "offset")
	if err != nil {
		return nil, err
	}
	limit, err := parseUint(query, "limit")
	if err != nil {
		return nil, err
	}
	if limit != nil && *limit > e.limit {
		return nil, utils.Forbidden(fmt.Errorf("limit exceeds the maximum allowed value of %d", e.limit))
	}
	if offset != nil && *offset > math.MaxInt64 {
		return nil, utils.BadRequest(fmt.Errorf("offset exceeds the maximum allowed value of %d", int64(math.MaxInt64)))
	}
	opts := &logdb.Options{Limit: e.limit + 1}
	if offset != nil {
		opts.Offset = *offset
	}
	if limit != nil {
		opts.Limit = *limit
	}
	filter.Options = opts
	return filter, nil
}

func (e *Events) handleFilter(w http.ResponseWriter, req *http.Request) error {
	filter, err := e.parseFilter(req.URL.Query())
	if err != nil {
		return err
	}
	evs, err := e.filter(req.Context(), filter)
	if err != nil {
		return err
	}
	// without an explicit limit one extra row is fetched to detect overflow
	if len(evs) > int(e.limit) {
		return utils.Forbidden(fmt.Errorf("the number of filtered events exceeds the maximum allowed value of %d, please use pagination", e.limit))
	}
	return utils.WriteJSON(w, evs)
}

func (e *Events) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /events").
		HandlerFunc(utils.WrapHandlerFunc(e.handleFilter))
}
