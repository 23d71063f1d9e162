// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"math/big"
	"os"
	"sort"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/ledger"
)

const envPrefix = "DEALER_"

// Network describes one deployment of the dealer. Values come from the
// network file, then DEALER_* environment variables, then flags.
type Network struct {
	Name                   string            `yaml:"name" env:"NETWORK_NAME"`
	Symbol                 string            `yaml:"symbol" env:"SYMBOL"`
	Owner                  string            `yaml:"owner" env:"OWNER"`
	DealerAddress          string            `yaml:"dealerAddress" env:"ADDRESS"`
	LockingPool            string            `yaml:"lockingPool" env:"LOCKING_POOL"`
	RedemptionQueue        string            `yaml:"redemptionQueue" env:"REDEMPTION_QUEUE"`
	ClaimRecipient         string            `yaml:"claimRecipient" env:"CLAIM_RECIPIENT"`
	SequencerSignerAddress string            `yaml:"sequencerSignerAddress" env:"SEQUENCER_SIGNER"`
	AmountToLock           string            `yaml:"amountToLock" env:"AMOUNT_TO_LOCK"`
	MinLockAmount          string            `yaml:"minLockAmount" env:"MIN_LOCK_AMOUNT"`
	SignerPubKey           string            `yaml:"signerPubKey" env:"SIGNER_PUBKEY"`
	APIURL                 string            `yaml:"apiUrl" env:"API_URL"`
	Alloc                  map[string]string `yaml:"alloc" env:"ALLOC"`
}

// devNetwork is used by --dev when no network file is given. The owner is
// filled in from the node key.
func devNetwork() *Network {
	custody := dealer.BytesToAddress([]byte("dealer"))
	return &Network{
		Name:            "dev",
		Symbol:          "METIS",
		DealerAddress:   custody.String(),
		LockingPool:     dealer.BytesToAddress([]byte("lockingPool")).String(),
		RedemptionQueue: dealer.BytesToAddress([]byte("redemptionQueue")).String(),
		AmountToLock:    "20000",
		MinLockAmount:   "20000",
		Alloc:           map[string]string{custody.String(): "100000"},
	}
}

// readNetworks decodes a network file: a mapping from network name to Network.
func readNetworks(path string) (map[string]*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read network file")
	}
	var networks map[string]*Network
	if err := yaml.Unmarshal(data, &networks); err != nil {
		return nil, errors.Wrap(err, "decode network file")
	}
	for name, n := range networks {
		if n == nil {
			return nil, fmt.Errorf("network %q is empty", name)
		}
		if n.Name == "" {
			n.Name = name
		}
	}
	return networks, nil
}

// selectNetwork picks the named network. An empty name is allowed when the
// file holds exactly one network.
func selectNetwork(networks map[string]*Network, name string) (*Network, error) {
	if name != "" {
		n, ok := networks[name]
		if !ok {
			return nil, fmt.Errorf("network %q not found in config", name)
		}
		return n, nil
	}
	if len(networks) == 1 {
		for _, n := range networks {
			return n, nil
		}
	}
	names := make([]string, 0, len(networks))
	for name := range networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("--network is required, config has %v", names)
}

// applyEnv overrides n with any DEALER_* variables that are set.
func applyEnv(n *Network) error {
	return errors.Wrap(env.ParseWithOptions(n, env.Options{Prefix: envPrefix}), "parse environment")
}

func parseAddress(field, s string, required bool) (dealer.Address, error) {
	if s == "" {
		if required {
			return dealer.Address{}, fmt.Errorf("%s is required", field)
		}
		return dealer.Address{}, nil
	}
	addr, err := dealer.ParseAddress(s)
	if err != nil {
		return dealer.Address{}, errors.Wrapf(err, "invalid %s", field)
	}
	return addr, nil
}

func parseOptionalAmount(field, s string) (*big.Int, error) {
	if s == "" {
		return nil, nil
	}
	amount, err := dealer.ParseAmount(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid %s", field)
	}
	return amount, nil
}

// LedgerConfig resolves the addresses and the minimum lock amount.
func (n *Network) LedgerConfig() (ledger.Config, error) {
	var (
		cfg ledger.Config
		err error
	)
	if cfg.Owner, err = parseAddress("owner", n.Owner, true); err != nil {
		return cfg, err
	}
	if cfg.Custody, err = parseAddress("dealerAddress", n.DealerAddress, true); err != nil {
		return cfg, err
	}
	if cfg.Escrow, err = parseAddress("lockingPool", n.LockingPool, true); err != nil {
		return cfg, err
	}
	if cfg.RedemptionQueue, err = parseAddress("redemptionQueue", n.RedemptionQueue, true); err != nil {
		return cfg, err
	}
	if cfg.ClaimRecipient, err = parseAddress("claimRecipient", n.ClaimRecipient, false); err != nil {
		return cfg, err
	}
	if cfg.MinLockAmount, err = parseOptionalAmount("minLockAmount", n.MinLockAmount); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Allocations returns the initial balances, keyed by address.
func (n *Network) Allocations() (map[dealer.Address]*big.Int, error) {
	alloc := make(map[dealer.Address]*big.Int, len(n.Alloc))
	for k, v := range n.Alloc {
		addr, err := parseAddress("alloc address", k, true)
		if err != nil {
			return nil, err
		}
		amount, err := dealer.ParseAmount(v)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid alloc amount for %v", addr)
		}
		alloc[addr] = amount
	}
	return alloc, nil
}

// LockDefaults are the lockFor arguments configured for the network.
type LockDefaults struct {
	Signer dealer.Address
	Amount *big.Int
	PubKey []byte
}

func (n *Network) LockDefaults() (*LockDefaults, error) {
	var (
		d   LockDefaults
		err error
	)
	if d.Signer, err = parseAddress("sequencerSignerAddress", n.SequencerSignerAddress, false); err != nil {
		return nil, err
	}
	if d.Amount, err = parseOptionalAmount("amountToLock", n.AmountToLock); err != nil {
		return nil, err
	}
	if n.SignerPubKey != "" {
		if d.PubKey, err = hexutil.Decode(n.SignerPubKey); err != nil {
			return nil, errors.Wrap(err, "invalid signerPubKey")
		}
	}
	return &d, nil
}
