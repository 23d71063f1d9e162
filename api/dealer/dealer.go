// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package dealer

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/dealerhq/dealer/api/utils"
	"github.com/dealerhq/dealer/auth"
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/ledger"
)

const maxBodySize = 64 * 1024

type Dealer struct {
	ledger *ledger.Ledger
	nonces *auth.Nonces
}

func New(ledger *ledger.Ledger, nonces *auth.Nonces) *Dealer {
	return &Dealer{
		ledger,
		nonces,
	}
}

func (d *Dealer) handleGetSnapshot(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, convertSnapshot(d.ledger.Snapshot()))
}

func (d *Dealer) handleGetActive(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, &Active{d.ledger.Active()})
}

func (d *Dealer) handleGetSigner(w http.ResponseWriter, _ *http.Request) error {
	return utils.WriteJSON(w, &Signer{d.ledger.SequencerSigner()})
}

// call is a signed request that passed authentication.
type call struct {
	caller dealer.Address
	nonce  uint64
	body   []byte
}

func (c *call) parse(v any) error {
	if err := utils.ParseJSON(bytes.NewReader(c.body), v); err != nil {
		return utils.BadRequest(errors.WithMessage(err, "body"))
	}
	return nil
}

// authenticate recovers the caller of a signed request and consumes its nonce.
func (d *Dealer) authenticate(w http.ResponseWriter, req *http.Request) (*call, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxBodySize))
	if err != nil {
		return nil, utils.BadRequest(errors.WithMessage(err, "body"))
	}
	nonce, sig, err := auth.ParseHeaders(req.Header.Get(auth.HeaderNonce), req.Header.Get(auth.HeaderSignature))
	if err != nil {
		return nil, utils.Unauthorized(err)
	}
	caller, err := auth.Recover(req.URL.Path, nonce, body, sig)
	if err != nil {
		return nil, utils.Unauthorized(err)
	}
	if err := d.nonces.Use(caller, nonce); err != nil {
		if errors.Is(err, auth.ErrInvalidNonce) {
			return nil, utils.Unauthorized(err)
		}
		return nil, err
	}
	return &call{caller: caller, nonce: nonce, body: body}, nil
}

// signed wraps a mutating handler with authentication and answers a Receipt
// carrying the sequence number the ledger call committed.
func (d *Dealer) signed(f func(c *call) (uint64, error)) utils.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) error {
		c, err := d.authenticate(w, req)
		if err != nil {
			return err
		}
		seq, err := f(c)
		if err != nil {
			return err
		}
		return utils.WriteJSON(w, &Receipt{
			Caller:  c.caller,
			Nonce:   c.nonce,
			LastSeq: seq,
		})
	}
}

func (d *Dealer) lockFor(c *call) (uint64, error) {
	var body LockFor
	if err := c.parse(&body); err != nil {
		return 0, err
	}
	return d.ledger.LockFor(c.caller, body.Signer, bigOf(body.Amount), body.PubKey)
}

func (d *Dealer) relock(c *call) (uint64, error) {
	var body Amount
	if len(bytes.TrimSpace(c.body)) > 0 {
		if err := c.parse(&body); err != nil {
			return 0, err
		}
	}
	return d.ledger.Relock(c.caller, bigOf(body.Amount))
}

func (d *Dealer) increase(c *call) (uint64, error) {
	var body Amount
	if err := c.parse(&body); err != nil {
		return 0, err
	}
	return d.ledger.IncreaseStakingAmountLocked(c.caller, bigOf(body.Amount))
}

func (d *Dealer) unlock(c *call) (uint64, error) {
	return d.ledger.Unlock(c.caller)
}

func (d *Dealer) unlockClaim(c *call) (uint64, error) {
	return d.ledger.UnlockClaim(c.caller)
}

func (d *Dealer) withdraw(c *call) (uint64, error) {
	var body Amount
	if err := c.parse(&body); err != nil {
		return 0, err
	}
	return d.ledger.WithdrawStakingAmount(c.caller, bigOf(body.Amount))
}

func (d *Dealer) addSequencerAgent(c *call) (uint64, error) {
	return d.ledger.AddSequencerAgent(c.caller)
}

func (d *Dealer) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodGet).
		Name("GET /dealer").
		HandlerFunc(utils.WrapHandlerFunc(d.handleGetSnapshot))
	sub.Path("/active").
		Methods(http.MethodGet).
		Name("GET /dealer/active").
		HandlerFunc(utils.WrapHandlerFunc(d.handleGetActive))
	sub.Path("/signer").
		Methods(http.MethodGet).
		Name("GET /dealer/signer").
		HandlerFunc(utils.WrapHandlerFunc(d.handleGetSigner))

	for path, f := range map[string]func(*call) (uint64, error){
		"/lockFor":           d.lockFor,
		"/relock":            d.relock,
		"/increase":          d.increase,
		"/unlock":            d.unlock,
		"/unlockClaim":       d.unlockClaim,
		"/withdraw":          d.withdraw,
		"/addSequencerAgent": d.addSequencerAgent,
	} {
		sub.Path(path).
			Methods(http.MethodPost).
			Name("POST " + pathPrefix + path).
			HandlerFunc(utils.WrapHandlerFunc(d.signed(f)))
	}
}
