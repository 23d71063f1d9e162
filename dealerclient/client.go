// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package dealerclient talks to the dealer REST API. Mutating calls are signed
// with the caller key and carry a strictly increasing nonce.
package dealerclient

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/pkg/errors"

	apidealer "github.com/dealerhq/dealer/api/dealer"
	apievents "github.com/dealerhq/dealer/api/events"
	"github.com/dealerhq/dealer/api/utils"
	"github.com/dealerhq/dealer/auth"
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/reverts"
)

var (
	ErrNot200Status = errors.New("not 200 status code")
	ErrNoKey        = errors.New("no signing key")
)

// RevertError is a ledger call the server rejected.
type RevertError struct {
	Status  int
	Message string
	Kind    string
	Data    []byte
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

// Is matches the ledger error the server reverted with, so errors.Is(err, ledger.ErrNothingToClaim) works
// on the client side.
func (e *RevertError) Is(target error) bool {
	var revert *reverts.ErrRevert
	if errors.As(target, &revert) {
		return bytes.Equal(revert.Bytes(), e.Data)
	}
	return false
}

// Client represents the HTTP client for interacting with a dealer node.
type Client struct {
	url        string
	c          *http.Client
	key        *ecdsa.PrivateKey
	maxRetries uint64

	mu        sync.Mutex
	lastNonce uint64
}

// New creates a new Client with the provided URL. key may be nil for read only use.
func New(url string, key *ecdsa.PrivateKey) *Client {
	return NewWithHTTP(url, key, http.DefaultClient)
}

func NewWithHTTP(url string, key *ecdsa.PrivateKey, c *http.Client) *Client {
	return &Client{
		url:        strings.TrimSuffix(url, "/"),
		c:          c,
		key:        key,
		maxRetries: 3,
	}
}

// WithRetries sets how many times reads are retried on transport errors and 5xx answers.
func (c *Client) WithRetries(n uint64) *Client {
	c.maxRetries = n
	return c
}

// Caller returns the address the client signs as.
func (c *Client) Caller() (dealer.Address, error) {
	if c.key == nil {
		return dealer.Address{}, ErrNoKey
	}
	return auth.Address(c.key), nil
}

// nextNonce is derived from the wall clock, so it keeps increasing across restarts.
func (c *Client) nextNonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	nonce := uint64(time.Now().UnixNano())
	if nonce <= c.lastNonce {
		nonce = c.lastNonce + 1
	}
	c.lastNonce = nonce
	return nonce
}

func decodeError(status int, body []byte) error {
	var revert utils.RevertResponse
	if json.Unmarshal(body, &revert) == nil && revert.Kind != "" {
		return &RevertError{
			Status:  status,
			Message: revert.Error,
			Kind:    revert.Kind,
			Data:    revert.Data,
		}
	}
	return fmt.Errorf("http error - Status Code %d - %s - %w", status, strings.TrimSpace(string(body)), ErrNot200Status)
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("error performing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("error reading response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// httpGET retries transport failures and server errors with exponential backoff.
func (c *Client) httpGET(ctx context.Context, path string) ([]byte, error) {
	var out []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+path, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("error creating request: %w", err))
		}
		body, status, err := c.do(req)
		if err != nil {
			return err
		}
		if status >= http.StatusInternalServerError {
			return decodeError(status, body)
		}
		if status != http.StatusOK {
			return backoff.Permanent(decodeError(status, body))
		}
		out = body
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// httpSignedPOST signs and sends a ledger call once. A retry would need a new
// nonce and could apply the call twice, so failures are returned as they are.
func (c *Client) httpSignedPOST(ctx context.Context, path string, payload any) (*apidealer.Receipt, error) {
	if c.key == nil {
		return nil, ErrNoKey
	}
	var data []byte
	if payload != nil {
		var err error
		if data, err = json.Marshal(payload); err != nil {
			return nil, fmt.Errorf("unable to marshal payload - %w", err)
		}
	}

	u, err := url.Parse(c.url + path)
	if err != nil {
		return nil, err
	}
	nonce := c.nextNonce()
	sig, err := auth.Sign(c.key, u.Path, nonce, data)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderNonce, strconv.FormatUint(nonce, 10))
	req.Header.Set(auth.HeaderSignature, hexutil.Encode(sig))

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, decodeError(status, body)
	}
	var receipt apidealer.Receipt
	if err := json.Unmarshal(body, &receipt); err != nil {
		return nil, fmt.Errorf("unable to unmarshal receipt - %w", err)
	}
	return &receipt, nil
}

func quantity(v *big.Int) *math.HexOrDecimal256 {
	if v == nil {
		return nil
	}
	return (*math.HexOrDecimal256)(new(big.Int).Set(v))
}

// Snapshot retrieves the full ledger state.
func (c *Client) Snapshot(ctx context.Context) (*apidealer.Snapshot, error) {
	body, err := c.httpGET(ctx, "/dealer")
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve snapshot - %w", err)
	}
	var snap apidealer.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("unable to unmarshal snapshot - %w", err)
	}
	return &snap, nil
}

// Active reports whether a sequencer is bonded.
func (c *Client) Active(ctx context.Context) (bool, error) {
	body, err := c.httpGET(ctx, "/dealer/active")
	if err != nil {
		return false, fmt.Errorf("unable to retrieve active flag - %w", err)
	}
	var active apidealer.Active
	if err := json.Unmarshal(body, &active); err != nil {
		return false, fmt.Errorf("unable to unmarshal active flag - %w", err)
	}
	return active.Active, nil
}

// SequencerSigner returns the bonded signer, nil when none is.
func (c *Client) SequencerSigner(ctx context.Context) (*dealer.Address, error) {
	body, err := c.httpGET(ctx, "/dealer/signer")
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve signer - %w", err)
	}
	var signer apidealer.Signer
	if err := json.Unmarshal(body, &signer); err != nil {
		return nil, fmt.Errorf("unable to unmarshal signer - %w", err)
	}
	return signer.SequencerSigner, nil
}

func (c *Client) LockFor(ctx context.Context, signer dealer.Address, amount *big.Int, pubKey []byte) (*apidealer.Receipt, error) {
	return c.httpSignedPOST(ctx, "/dealer/lockFor", &apidealer.LockFor{
		Signer: signer,
		Amount: quantity(amount),
		PubKey: pubKey,
	})
}

// Relock re-affirms the binding, topping it up first when amount is positive.
func (c *Client) Relock(ctx context.Context, amount *big.Int) (*apidealer.Receipt, error) {
	if amount == nil {
		return c.httpSignedPOST(ctx, "/dealer/relock", nil)
	}
	return c.httpSignedPOST(ctx, "/dealer/relock", &apidealer.Amount{Amount: quantity(amount)})
}

func (c *Client) IncreaseStakingAmountLocked(ctx context.Context, amount *big.Int) (*apidealer.Receipt, error) {
	return c.httpSignedPOST(ctx, "/dealer/increase", &apidealer.Amount{Amount: quantity(amount)})
}

func (c *Client) Unlock(ctx context.Context) (*apidealer.Receipt, error) {
	return c.httpSignedPOST(ctx, "/dealer/unlock", nil)
}

func (c *Client) UnlockClaim(ctx context.Context) (*apidealer.Receipt, error) {
	return c.httpSignedPOST(ctx, "/dealer/unlockClaim", nil)
}

func (c *Client) WithdrawStakingAmount(ctx context.Context, amount *big.Int) (*apidealer.Receipt, error) {
	return c.httpSignedPOST(ctx, "/dealer/withdraw", &apidealer.Amount{Amount: quantity(amount)})
}

func (c *Client) AddSequencerAgent(ctx context.Context) (*apidealer.Receipt, error) {
	return c.httpSignedPOST(ctx, "/dealer/addSequencerAgent", nil)
}

// FilterEvents queries the event history. See the /events endpoint for the accepted parameters.
func (c *Client) FilterEvents(ctx context.Context, query url.Values) ([]*apievents.Event, error) {
	path := "/events"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	body, err := c.httpGET(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("unable to filter events - %w", err)
	}
	var evs []*apievents.Event
	if err := json.Unmarshal(body, &evs); err != nil {
		return nil, fmt.Errorf("unable to unmarshal events - %w", err)
	}
	return evs, nil
}
