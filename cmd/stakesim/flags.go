// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	cli "gopkg.in/urfave/cli.v1"
)

var (
	dataDirFlag = cli.StringFlag{
		Name:  "data-dir",
		Usage: "directory for the staking database, in-memory when empty",
	}
	activeLimitFlag = cli.Uint64Flag{
		Name:  "active-limit",
		Value: 100,
		Usage: "maximum size of the active validator set",
	}
	validatorsFlag = cli.IntFlag{
		Name:  "validators",
		Value: 500,
		Usage: "number of simulated validators",
	}
	opsFlag = cli.IntFlag{
		Name:  "ops",
		Value: 10000,
		Usage: "number of random staking operations to run",
	}
	seedFlag = cli.Int64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "seed for the operation generator",
	}
	confirmEveryFlag = cli.IntFlag{
		Name:  "confirm-every",
		Value: 50,
		Usage: "confirm queued changes after this many deferred operations",
	}
	metricsAddrFlag = cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "Prometheus service listening address, disabled when empty",
	}
	verbosityFlag = cli.IntFlag{
		Name:  "verbosity",
		Value: 3,
		Usage: "log verbosity (0-5)",
	}
	jsonLogsFlag = cli.BoolFlag{
		Name:  "json-logs",
		Usage: "emit logs in JSON format",
	}
)
