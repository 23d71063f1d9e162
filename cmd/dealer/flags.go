// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"time"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/dealerhq/dealer/log"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "path to the network file (YAML)",
	}
	networkFlag = cli.StringFlag{
		Name:  "network",
		Usage: "network to select from the network file",
	}
	devFlag = cli.BoolFlag{
		Name:  "dev",
		Usage: "run with the built-in dev network and a generated owner key",
	}
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Value: defaultDataDir(),
		Usage: "directory for the ledger and event databases",
	}
	cacheFlag = cli.IntFlag{
		Name:  "cache",
		Value: 64,
		Usage: "ledger database cache size (MB)",
	}
	apiAddrFlag = cli.StringFlag{
		Name:  "api-addr",
		Value: "localhost:8679",
		Usage: "API service listening address",
	}
	apiCorsFlag = cli.StringFlag{
		Name:  "api-cors",
		Value: "",
		Usage: "comma separated list of domains from which to accept cross origin requests to API",
	}
	apiTimeoutFlag = cli.Uint64Flag{
		Name:  "api-timeout",
		Value: 10000,
		Usage: "API request timeout value in milliseconds",
	}
	apiBacktraceLimitFlag = cli.Uint64Flag{
		Name:  "api-backtrace-limit",
		Value: 1000,
		Usage: "limit the distance between 'pos' and the last event for subscriptions",
	}
	apiLogsLimitFlag = cli.Uint64Flag{
		Name:  "api-logs-limit",
		Value: 1000,
		Usage: "limit the number of events returned by /events API",
	}
	enableAPILogsFlag = cli.BoolFlag{
		Name:  "enable-api-logs",
		Usage: "enables API requests logging",
	}
	apiSlowQueriesThresholdFlag = cli.DurationFlag{
		Name:  "api-slow-queries-threshold",
		Value: 0,
		Usage: "only log API requests slower than this duration (0 logs all when API logs are enabled)",
	}
	apiLog5xxErrorsFlag = cli.BoolFlag{
		Name:  "api-log-5xx-errors",
		Usage: "log API requests answered with a 5xx status",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: log.LegacyLevelInfo,
		Usage: "log verbosity (0-9)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "output logs in JSON format",
	}
	pprofFlag = cli.BoolFlag{
		Name:  "pprof",
		Usage: "turn on go-pprof",
	}
	enableMetricsFlag = cli.BoolFlag{
		Name:  "enable-metrics",
		Usage: "enables metrics collection",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Value: "localhost:2112",
		Usage: "metrics service listening address",
	}
	enableAdminFlag = cli.BoolFlag{
		Name:  "enable-admin",
		Usage: "enables admin server",
	}
	adminAddrFlag = cli.StringFlag{
		Name:  "admin-addr",
		Value: "localhost:2113",
		Usage: "admin service listening address",
	}

	// client flags
	apiURLFlag = cli.StringFlag{
		Name:  "api-url",
		Usage: "URL of the dealer API (defaults to the network apiUrl, then http://localhost:8679)",
	}
	keyFlag = cli.StringFlag{
		Name:  "key",
		Usage: "hex private key or path to a key file used to sign requests (defaults to <data-dir>/owner.key)",
	}
	timeoutFlag = cli.DurationFlag{
		Name:  "timeout",
		Value: 30 * time.Second,
		Usage: "request timeout",
	}
	signerFlag = cli.StringFlag{
		Name:  "signer",
		Usage: "sequencer signer address (defaults to the network sequencerSignerAddress)",
	}
	pubKeyFlag = cli.StringFlag{
		Name:  "pubkey",
		Usage: "64-byte signer public key in hex (defaults to the network signerPubKey)",
	}
	nameFlag = cli.StringSliceFlag{
		Name:  "name",
		Usage: "event name to match, repeatable",
	}
	fromFlag = cli.StringFlag{
		Name:  "from",
		Usage: "first sequence number of the range",
	}
	toFlag = cli.StringFlag{
		Name:  "to",
		Usage: "last sequence number of the range",
	}
	orderFlag = cli.StringFlag{
		Name:  "order",
		Value: "asc",
		Usage: "asc or desc",
	}
	offsetFlag = cli.Uint64Flag{
		Name:  "offset",
		Usage: "number of matching events to skip",
	}
	limitFlag = cli.Uint64Flag{
		Name:  "limit",
		Usage: "maximum number of events to return",
	}
	posFlag = cli.StringFlag{
		Name:  "pos",
		Usage: "replay events after this sequence number before streaming",
	}
)

var (
	networkFlags = []cli.Flag{
		configFlag,
		networkFlag,
		devFlag,
		dataDirFlag,
	}
	serveFlags = append(networkFlags[:len(networkFlags):len(networkFlags)],
		cacheFlag,
		apiAddrFlag,
		apiCorsFlag,
		apiTimeoutFlag,
		apiBacktraceLimitFlag,
		apiLogsLimitFlag,
		enableAPILogsFlag,
		apiSlowQueriesThresholdFlag,
		apiLog5xxErrorsFlag,
		verbosityFlag,
		jsonLogsFlag,
		pprofFlag,
		enableMetricsFlag,
		metricsAddrFlag,
		enableAdminFlag,
		adminAddrFlag,
	)
	clientFlags = append(networkFlags[:len(networkFlags):len(networkFlags)],
		apiURLFlag,
		keyFlag,
		timeoutFlag,
	)
)
