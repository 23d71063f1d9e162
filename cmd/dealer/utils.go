// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/dealerhq/dealer/asset"
	"github.com/dealerhq/dealer/dealer"
	"github.com/dealerhq/dealer/kv"
	"github.com/dealerhq/dealer/ledger"
	"github.com/dealerhq/dealer/log"
	"github.com/dealerhq/dealer/logdb"
	"github.com/dealerhq/dealer/lvldb"
)

const (
	ownerKeyFile = "owner.key"
	defaultToken = "METIS"
)

var (
	cmdBucket    = kv.Bucket("cmd-")
	allocatedKey = []byte("allocated")
)

func initLogger(ctx *cli.Context) *slog.LevelVar {
	level := &slog.LevelVar{}
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))

	asJSON := ctx.Bool(jsonLogsFlag.Name)
	useColor := !asJSON && isatty.IsTerminal(os.Stderr.Fd()) && os.Getenv("TERM") != "dumb"
	log.SetDefault(log.NewHandler(os.Stderr, level, asJSON, useColor))
	return level
}

// loadNetwork resolves the network from the file or --dev, then applies
// environment overrides.
func loadNetwork(ctx *cli.Context) (*Network, error) {
	var network *Network
	switch {
	case ctx.String(configFlag.Name) != "":
		networks, err := readNetworks(ctx.String(configFlag.Name))
		if err != nil {
			return nil, err
		}
		if network, err = selectNetwork(networks, ctx.String(networkFlag.Name)); err != nil {
			return nil, err
		}
	case ctx.Bool(devFlag.Name):
		network = devNetwork()
	default:
		return nil, errors.New("no network: pass --config <file> or --dev")
	}

	if err := applyEnv(network); err != nil {
		return nil, err
	}
	if network.Symbol == "" {
		network.Symbol = defaultToken
	}
	if ctx.String(apiURLFlag.Name) != "" {
		network.APIURL = ctx.String(apiURLFlag.Name)
	}
	return network, nil
}

func makeInstanceDir(ctx *cli.Context, network *Network) (string, error) {
	dataDir := ctx.String(dataDirFlag.Name)
	if dataDir == "" {
		return "", errors.New("unable to infer default data dir, use -data-dir to specify")
	}
	instanceDir := filepath.Join(dataDir, "instance-"+network.Name)
	if err := os.MkdirAll(instanceDir, 0o700); err != nil {
		return "", errors.Wrapf(err, "create instance dir [%v]", instanceDir)
	}
	return instanceDir, nil
}

func openMainDB(ctx *cli.Context, dir string) (*lvldb.LevelDB, error) {
	cacheMB := ctx.Int(cacheFlag.Name)
	db, err := lvldb.New(filepath.Join(dir, "main.db"), lvldb.Options{
		CacheSize:              cacheMB,
		OpenFilesCacheCapacity: 64,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database [%v]", dir)
	}
	return db, nil
}

func openLogDB(dir string) (*logdb.LogDB, error) {
	path := filepath.Join(dir, "events.db")
	db, err := logdb.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open log database [%v]", path)
	}
	return db, nil
}

// applyAllocations credits the configured initial balances once per
// database.
func applyAllocations(store kv.Store, token *asset.Token, network *Network) error {
	alloc, err := network.Allocations()
	if err != nil {
		return err
	}
	marker := cmdBucket.NewStore(store)
	done, err := marker.Has(allocatedKey)
	if err != nil {
		return errors.Wrap(err, "read allocation marker")
	}
	if done || len(alloc) == 0 {
		return nil
	}
	for addr, amount := range alloc {
		if err := token.SetBalance(addr, amount); err != nil {
			return errors.Wrapf(err, "allocate %v", addr)
		}
		logger.Info("allocated", "account", addr, "amount", dealer.FormatAmount(amount), "symbol", token.Symbol())
	}
	return errors.Wrap(marker.Put(allocatedKey, []byte{1}), "write allocation marker")
}

// checkEventHistory warns when the stored events lag the ledger, which
// happens when a write to the log database failed after a commit.
func checkEventHistory(l *ledger.Ledger, logDB *logdb.LogDB) error {
	stored, err := logDB.LastSeq(context.Background())
	if err != nil {
		return errors.Wrap(err, "read event history")
	}
	if last := l.Snapshot().LastSeq; stored != last {
		logger.Warn("event history is behind the ledger", "stored", stored, "ledger", last)
	}
	return nil
}

// loadKey reads a key file, creating one when it does not exist.
func loadKey(keyFile string) (key *ecdsa.PrivateKey, err error) {
	if key, err = crypto.LoadECDSA(keyFile); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else {
		return key, nil
	}

	if err := os.MkdirAll(filepath.Dir(keyFile), 0o700); err != nil {
		return nil, err
	}
	key, err = crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveECDSA(keyFile, key); err != nil {
		return nil, err
	}
	return key, nil
}

// parseKey accepts a hex private key or the path to a key file.
func parseKey(s string) (*ecdsa.PrivateKey, error) {
	hexKey := strings.TrimPrefix(s, "0x")
	if len(hexKey) == 64 {
		if key, err := crypto.HexToECDSA(hexKey); err == nil {
			return key, nil
		}
	}
	key, err := crypto.LoadECDSA(s)
	if err != nil {
		return nil, errors.Wrapf(err, "load key [%v]", s)
	}
	return key, nil
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		logger.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}

func printStartupMessage(network *Network, l *ledger.Ledger, dataDir, apiURL, metricsURL, adminURL string) {
	snap := l.Snapshot()
	signer := "none"
	if snap.Signer != nil {
		signer = snap.Signer.String()
	}
	if metricsURL == "" {
		metricsURL = "Disabled"
	}
	if adminURL == "" {
		adminURL = "Disabled"
	}

	fmt.Printf(`Starting %v
    Network      [ %v ]
    Owner        [ %v ]
    Custody      [ %v ]
    Phase        [ %v signer %v locked %v %v ]
    Instance dir [ %v ]
    API portal   [ %v ]
    Metrics      [ %v ]
    Admin        [ %v ]
`,
		fullVersion(),
		network.Name,
		snap.Owner,
		snap.Custody,
		snap.Phase, signer, dealer.FormatAmount(snap.Locked), network.Symbol,
		dataDir,
		apiURL,
		metricsURL,
		adminURL,
	)
}

func defaultDataDir() string {
	if home := homeDir(); home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, "Library", "Application Support", "org.dealer")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "org.dealer")
		}
		return filepath.Join(home, ".org.dealer")
	}
	return ""
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}
