// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/dealerhq/dealer/api"
	"github.com/dealerhq/dealer/api/admin/health"
	"github.com/dealerhq/dealer/asset"
	"github.com/dealerhq/dealer/auth"
	"github.com/dealerhq/dealer/cmd/dealer/httpserver"
	"github.com/dealerhq/dealer/events"
	"github.com/dealerhq/dealer/ledger"
	"github.com/dealerhq/dealer/log"
	"github.com/dealerhq/dealer/metrics"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "main")
)

const (
	feedQueueSize   = 256
	shutdownTimeout = 5 * time.Second
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "Dealer",
		Usage:     "Custodial staking ledger for a sequencer binding",
		Copyright: "2025 The VeChainThor developers",
		Flags:     serveFlags,
		Action:    serveAction,
		Commands: []cli.Command{
			{
				Name:   "serve",
				Usage:  "run the dealer daemon (default)",
				Flags:  serveFlags,
				Action: serveAction,
			},
			{
				Name:      "lock",
				Usage:     "bind a sequencer signer and lock the initial stake",
				ArgsUsage: "[amount]",
				Flags:     append(clientFlags[:len(clientFlags):len(clientFlags)], signerFlag, pubKeyFlag),
				Action:    lockAction,
			},
			{
				Name:      "relock",
				Usage:     "re-affirm the binding, optionally topping up the stake",
				ArgsUsage: "[amount]",
				Flags:     clientFlags,
				Action:    relockAction,
			},
			{
				Name:      "increase",
				Usage:     "add to the locked stake",
				ArgsUsage: "<amount>",
				Flags:     clientFlags,
				Action:    increaseAction,
			},
			{
				Name:   "unlock",
				Usage:  "terminate the binding and request the unlock",
				Flags:  clientFlags,
				Action: unlockAction,
			},
			{
				Name:   "claim",
				Usage:  "claim the unlocked stake",
				Flags:  clientFlags,
				Action: claimAction,
			},
			{
				Name:      "withdraw",
				Usage:     "move part of the locked stake to the redemption queue",
				ArgsUsage: "<amount>",
				Flags:     clientFlags,
				Action:    withdrawAction,
			},
			{
				Name:   "add-agent",
				Usage:  "register the dealer as a sequencer agent",
				Flags:  clientFlags,
				Action: addAgentAction,
			},
			{
				Name:   "status",
				Usage:  "print the ledger snapshot",
				Flags:  clientFlags,
				Action: statusAction,
			},
			{
				Name:   "events",
				Usage:  "query the event history",
				Flags:  append(clientFlags[:len(clientFlags):len(clientFlags)], nameFlag, signerFlag, fromFlag, toFlag, orderFlag, offsetFlag, limitFlag),
				Action: eventsAction,
			},
			{
				Name:   "subscribe",
				Usage:  "stream events as they are emitted",
				Flags:  append(clientFlags[:len(clientFlags):len(clientFlags)], nameFlag, signerFlag, posFlag),
				Action: subscribeAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	network, err := loadNetwork(ctx)
	if err != nil {
		return err
	}
	instanceDir, err := makeInstanceDir(ctx, network)
	if err != nil {
		return err
	}
	if ctx.Bool(devFlag.Name) && network.Owner == "" {
		key, err := loadKey(filepath.Join(ctx.String(dataDirFlag.Name), ownerKeyFile))
		if err != nil {
			return errors.Wrap(err, "load dev owner key")
		}
		network.Owner = auth.Address(key).String()
	}

	cfg, err := network.LedgerConfig()
	if err != nil {
		return err
	}

	mainDB, err := openMainDB(ctx, instanceDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	token := asset.New(network.Symbol, mainDB)
	if err := applyAllocations(mainDB, token, network); err != nil {
		return err
	}

	logDB, err := openLogDB(instanceDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing log database..."); logDB.Close() }()

	feed := events.NewFeed(feedQueueSize)
	defer func() { logger.Info("closing event feed..."); feed.Close() }()

	l, err := ledger.New(mainDB, token, events.Multi(events.Store(logDB), feed), cfg)
	if err != nil {
		return errors.Wrap(err, "open ledger")
	}
	if err := checkEventHistory(l, logDB); err != nil {
		return err
	}

	apiLogs := &atomic.Bool{}
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	apiHandler, apiCloser := api.New(l, auth.NewNonces(mainDB), logDB, feed, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		BacktraceLimit:       ctx.Uint64(apiBacktraceLimitFlag.Name),
		PprofOn:              ctx.Bool(pprofFlag.Name),
		EnableReqLogger:      apiLogs,
		SlowQueriesThreshold: ctx.Duration(apiSlowQueriesThresholdFlag.Name),
		Log5xxErrors:         ctx.Bool(apiLog5xxErrorsFlag.Name),
		EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
		LogsLimit:            ctx.Uint64(apiLogsLimitFlag.Name),
	})
	defer func() { logger.Info("closing API subscriptions..."); apiCloser() }()

	servers := make([]*httpserver.Server, 0, 3)
	apiSrv, err := httpserver.NewAPIServer(
		ctx.String(apiAddrFlag.Name),
		apiHandler,
		time.Duration(ctx.Uint64(apiTimeoutFlag.Name))*time.Millisecond,
	)
	if err != nil {
		return err
	}
	servers = append(servers, apiSrv)

	metricsURL := ""
	if ctx.Bool(enableMetricsFlag.Name) {
		srv, err := httpserver.NewMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return err
		}
		servers = append(servers, srv)
		metricsURL = srv.URL()
	}

	adminURL := ""
	if ctx.Bool(enableAdminFlag.Name) {
		srv, err := httpserver.NewAdminServer(ctx.String(adminAddrFlag.Name), logLevel, apiLogs, health.New(l, logDB))
		if err != nil {
			return err
		}
		servers = append(servers, srv)
		adminURL = srv.URL()
	}

	printStartupMessage(network, l, instanceDir, apiSrv.URL(), metricsURL, adminURL)

	return runServers(handleExitSignal(), servers)
}

// runServers serves until exitCtx is done or any server fails, then shuts
// all of them down.
func runServers(exitCtx context.Context, servers []*httpserver.Server) error {
	group, ctx := errgroup.WithContext(exitCtx)
	for _, srv := range servers {
		group.Go(srv.Serve)
	}
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("failed to shut down server", "url", srv.URL(), "err", err)
			}
		}
		return nil
	})
	return group.Wait()
}
