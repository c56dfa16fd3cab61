// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Command stakesim exercises the staking engine with a randomized
// stream of deposits, withdrawals, joins and leaves, confirming queued
// changes the way a checkpoint driver would.
package main

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math/big"
	"math/rand"
	"net/http"
	"os"

	"github.com/mattn/go-isatty"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/hiernet/subnet/log"
	"github.com/hiernet/subnet/lvldb"
	"github.com/hiernet/subnet/metrics"
	"github.com/hiernet/subnet/staking"
	"github.com/hiernet/subnet/staking/reverts"
	"github.com/hiernet/subnet/subnet"
)

var (
	version   string
	gitCommit string
)

var scale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func fullVersion() string {
	if gitCommit == "" {
		return version + "-dev"
	}
	return fmt.Sprintf("%s-%.8s", version, gitCommit)
}

func main() {
	app := cli.App{
		Version: fullVersion(),
		Name:    "stakesim",
		Usage:   "randomized workload driver for the subnet staking engine",
		Flags: []cli.Flag{
			dataDirFlag,
			activeLimitFlag,
			validatorsFlag,
			opsFlag,
			seedFlag,
			confirmEveryFlag,
			metricsAddrFlag,
			verbosityFlag,
			jsonLogsFlag,
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(ctx *cli.Context) {
	var level slog.LevelVar
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) || !isatty.IsTerminal(os.Stderr.Fd()) {
		handler = log.JSONHandlerWithLevel(os.Stderr, &level)
	} else {
		handler = log.LogfmtHandlerWithLevel(os.Stderr, &level)
	}
	log.SetDefault(log.NewLogger(handler))
}

func openStore(ctx *cli.Context) (*lvldb.LevelDB, error) {
	if dir := ctx.String(dataDirFlag.Name); dir != "" {
		return lvldb.New(dir, lvldb.Options{CacheSize: 128, OpenFilesCacheCapacity: 128})
	}
	return lvldb.NewMem()
}

func run(ctx *cli.Context) error {
	initLogger(ctx)
	logger := log.WithContext("pkg", "stakesim")

	if addr := ctx.String(metricsAddrFlag.Name); addr != "" {
		metrics.InitializePrometheusMetrics()
		go func() {
			if err := http.ListenAndServe(addr, metrics.HTTPHandler()); err != nil {
				logger.Error("metrics service stopped", "error", err)
			}
		}()
		logger.Info("metrics service started", "addr", addr)
	}

	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := staking.New(store, ctx.Uint64(activeLimitFlag.Name))
	sim := &simulator{
		engine:     engine,
		logger:     logger,
		rng:        rand.New(rand.NewSource(ctx.Int64(seedFlag.Name))),
		validators: ctx.Int(validatorsFlag.Name),
	}

	if err := sim.seedValidators(); err != nil {
		return err
	}
	if err := engine.Bootstrap(); err != nil {
		return err
	}
	if err := sim.runDeferred(ctx.Int(opsFlag.Name), ctx.Int(confirmEveryFlag.Name)); err != nil {
		return err
	}
	return sim.report()
}

type simulator struct {
	engine     *staking.Staking
	logger     log.Logger
	rng        *rand.Rand
	validators int

	reverted int
}

func (s *simulator) addr(i int) subnet.Address {
	var raw [8]byte
	binary.BigEndian.PutUint64(raw[:], uint64(i))
	return subnet.BytesToAddress(subnet.Blake2b(raw[:]).Bytes())
}

func (s *simulator) amount() *big.Int {
	tokens := big.NewInt(s.rng.Int63n(1_000_000) + 1)
	return tokens.Mul(tokens, scale)
}

// seedValidators joins half of the validators before bootstrap so the
// active set starts populated.
func (s *simulator) seedValidators() error {
	for i := 0; i < s.validators/2; i++ {
		metadata := fmt.Appendf(nil, "validator-%d", i)
		if _, err := s.engine.Join(s.addr(i), metadata, s.amount()); err != nil {
			return err
		}
	}
	s.logger.Info("seeded validators", "count", s.validators/2)
	return nil
}

func (s *simulator) runDeferred(ops, confirmEvery int) error {
	for i := 1; i <= ops; i++ {
		if err := s.step(); err != nil {
			if !reverts.IsRevertErr(err) {
				return err
			}
			s.reverted++
		}
		if confirmEvery > 0 && i%confirmEvery == 0 {
			next, _, err := s.engine.GetConfigurationNumbers()
			if err != nil {
				return err
			}
			if err := s.engine.ConfirmChange(next - 1); err != nil {
				return err
			}
		}
	}
	// flush whatever is still queued
	next, _, err := s.engine.GetConfigurationNumbers()
	if err != nil {
		return err
	}
	return s.engine.ConfirmChange(next - 1)
}

func (s *simulator) step() error {
	addr := s.addr(s.rng.Intn(s.validators))
	switch s.rng.Intn(10) {
	case 0:
		_, err := s.engine.Join(addr, fmt.Appendf(nil, "validator-%s", addr), s.amount())
		return err
	case 1:
		_, err := s.engine.Leave(addr)
		return err
	case 2, 3, 4, 5:
		_, err := s.engine.Deposit(addr, s.amount())
		return err
	case 6, 7, 8:
		pending, err := s.engine.PendingPowerOf(addr)
		if err != nil {
			return err
		}
		if pending.Sign() == 0 {
			return reverts.ErrInsufficientCollateral
		}
		amount := new(big.Int).Rand(s.rng, pending)
		amount.Add(amount, big.NewInt(1))
		_, err = s.engine.Withdraw(addr, amount)
		return err
	default:
		_, err := s.engine.SetMetadata(addr, fmt.Appendf(nil, "rotated-%s", addr))
		return err
	}
}

func (s *simulator) report() error {
	active, err := s.engine.ListActiveValidators()
	if err != nil {
		return err
	}
	count, err := s.engine.ValidatorCount()
	if err != nil {
		return err
	}
	activePower, err := s.engine.TotalActivePower()
	if err != nil {
		return err
	}
	confirmedPower, err := s.engine.TotalConfirmedPower()
	if err != nil {
		return err
	}

	s.logger.Info("simulation finished",
		"validators", count,
		"active", len(active),
		"activePower", new(big.Int).Div(activePower, scale),
		"confirmedPower", new(big.Int).Div(confirmedPower, scale),
		"reverted", s.reverted,
	)
	return nil
}
