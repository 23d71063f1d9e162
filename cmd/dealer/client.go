// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/dealerclient"
)

const defaultAPIURL = "http://localhost:8679"

// clientNetwork is the network of a client command. Without --config or
// --dev only the environment and flags apply.
func clientNetwork(ctx *cli.Context) (*Network, error) {
	if ctx.String(configFlag.Name) != "" || ctx.Bool(devFlag.Name) {
		return loadNetwork(ctx)
	}
	network := &Network{}
	if err := applyEnv(network); err != nil {
		return nil, err
	}
	if ctx.String(apiURLFlag.Name) != "" {
		network.APIURL = ctx.String(apiURLFlag.Name)
	}
	return network, nil
}

// clientKey loads --key, falling back to the owner key in the data dir.
// A missing default key is not an error for read-only commands.
func clientKey(ctx *cli.Context, required bool) (*ecdsa.PrivateKey, error) {
	if s := ctx.String(keyFlag.Name); s != "" {
		return parseKey(s)
	}
	path := filepath.Join(ctx.String(dataDirFlag.Name), ownerKeyFile)
	key, err := parseKey(path)
	if err != nil {
		if required {
			return nil, errors.WithMessage(err, "no usable --key")
		}
		return nil, nil
	}
	return key, nil
}

type clientCmd struct {
	client  *dealerclient.Client
	network *Network
	ctx     context.Context
	cancel  context.CancelFunc
}

func newClientCmd(ctx *cli.Context, needKey bool) (*clientCmd, error) {
	network, err := clientNetwork(ctx)
	if err != nil {
		return nil, err
	}
	key, err := clientKey(ctx, needKey)
	if err != nil {
		return nil, err
	}
	apiURL := network.APIURL
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	reqCtx, cancel := context.WithTimeout(context.Background(), ctx.Duration(timeoutFlag.Name))
	return &clientCmd{
		client:  dealerclient.New(apiURL, key),
		network: network,
		ctx:     reqCtx,
		cancel:  cancel,
	}, nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(data))
	return err
}

func amountArg(ctx *cli.Context, required bool) (*big.Int, error) {
	s := ctx.Args().First()
	if s == "" {
		if required {
			return nil, errors.New("amount argument is required")
		}
		return nil, nil
	}
	amount, err := dealer.ParseAmount(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid amount argument")
	}
	return amount, nil
}

func lockAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, true)
	if err != nil {
		return err
	}
	defer cmd.cancel()

	defaults, err := cmd.network.LockDefaults()
	if err != nil {
		return err
	}
	if amount, err := amountArg(ctx, false); err != nil {
		return err
	} else if amount != nil {
		defaults.Amount = amount
	}
	if s := ctx.String(pubKeyFlag.Name); s != "" {
		if defaults.PubKey, err = hexutil.Decode(s); err != nil {
			return errors.Wrap(err, "invalid --pubkey")
		}
	}
	if s := ctx.String(signerFlag.Name); s != "" {
		if defaults.Signer, err = dealer.ParseAddress(s); err != nil {
			return errors.Wrap(err, "invalid --signer")
		}
	}
	if defaults.Amount == nil {
		return errors.New("no amount: pass it as argument or set amountToLock")
	}
	if len(defaults.PubKey) == 0 {
		return errors.New("no signer public key: pass --pubkey or set signerPubKey")
	}
	if defaults.Signer.IsZero() {
		if defaults.Signer, err = dealer.SignerFromPubKey(defaults.PubKey); err != nil {
			return err
		}
	}

	receipt, err := cmd.client.LockFor(cmd.ctx, defaults.Signer, defaults.Amount, defaults.PubKey)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func relockAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, true)
	if err != nil {
		return err
	}
	defer cmd.cancel()

	amount, err := amountArg(ctx, false)
	if err != nil {
		return err
	}
	receipt, err := cmd.client.Relock(cmd.ctx, amount)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func increaseAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, true)
	if err != nil {
		return err
	}
	defer cmd.cancel()

	amount, err := amountArg(ctx, true)
	if err != nil {
		return err
	}
	receipt, err := cmd.client.IncreaseStakingAmountLocked(cmd.ctx, amount)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func withdrawAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, true)
	if err != nil {
		return err
	}
	defer cmd.cancel()

	amount, err := amountArg(ctx, true)
	if err != nil {
		return err
	}
	receipt, err := cmd.client.WithdrawStakingAmount(cmd.ctx, amount)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func unlockAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, true)
	if err != nil {
		return err
	}
	defer cmd.cancel()

	receipt, err := cmd.client.Unlock(cmd.ctx)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func claimAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, true)
	if err != nil {
		return err
	}
	defer cmd.cancel()

	receipt, err := cmd.client.UnlockClaim(cmd.ctx)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func addAgentAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, true)
	if err != nil {
		return err
	}
	defer cmd.cancel()

	receipt, err := cmd.client.AddSequencerAgent(cmd.ctx)
	if err != nil {
		return err
	}
	return printJSON(receipt)
}

func statusAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, false)
	if err != nil {
		return err
	}
	defer cmd.cancel()

	snap, err := cmd.client.Snapshot(cmd.ctx)
	if err != nil {
		return err
	}
	return printJSON(snap)
}

// eventQuery maps the filter flags onto the /events and subscription query.
func eventQuery(ctx *cli.Context) (url.Values, error) {
	q := url.Values{}
	for _, name := range ctx.StringSlice(nameFlag.Name) {
		q.Add("name", name)
	}
	if s := ctx.String(signerFlag.Name); s != "" {
		if _, err := dealer.ParseAddress(s); err != nil {
			return nil, errors.Wrap(err, "invalid --signer")
		}
		q.Set("signer", s)
	}
	for _, f := range []cli.StringFlag{fromFlag, toFlag, posFlag} {
		if s := ctx.String(f.Name); s != "" {
			if _, err := strconv.ParseUint(s, 10, 64); err != nil {
				return nil, errors.Wrapf(err, "invalid --%s", f.Name)
			}
			q.Set(f.Name, s)
		}
	}
	if s := ctx.String(orderFlag.Name); s != "" {
		q.Set("order", s)
	}
	if ctx.IsSet(offsetFlag.Name) {
		q.Set("offset", strconv.FormatUint(ctx.Uint64(offsetFlag.Name), 10))
	}
	if ctx.IsSet(limitFlag.Name) {
		q.Set("limit", strconv.FormatUint(ctx.Uint64(limitFlag.Name), 10))
	}
	return q, nil
}

func eventsAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, false)
	if err != nil {
		return err
	}
	defer cmd.cancel()

	q, err := eventQuery(ctx)
	if err != nil {
		return err
	}
	evs, err := cmd.client.FilterEvents(cmd.ctx, q)
	if err != nil {
		return err
	}
	return printJSON(evs)
}

func subscribeAction(ctx *cli.Context) error {
	cmd, err := newClientCmd(ctx, false)
	if err != nil {
		return err
	}
	// the stream runs until interrupted, not for --timeout
	cmd.cancel()

	q, err := eventQuery(ctx)
	if err != nil {
		return err
	}
	exitCtx := handleExitSignal()
	ch, err := cmd.client.SubscribeEvents(exitCtx, q)
	if err != nil {
		return err
	}
	for ev := range ch {
		if ev.Error != nil {
			if exitCtx.Err() != nil {
				return nil
			}
			return ev.Error
		}
		if err := printJSON(ev.Data); err != nil {
			return err
		}
	}
	return nil
}
