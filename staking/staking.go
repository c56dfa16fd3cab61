// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package staking is the validator-power tracking engine of a subnet.
// It keeps the active set holding the top scoring validators by
// confirmed power and queues post-bootstrap changes until an external
// checkpoint driver confirms them.
package staking

import (
	"math/big"

	"github.com/hiernet/subnet/kv"
	"github.com/hiernet/subnet/log"
	"github.com/hiernet/subnet/staking/changelog"
	"github.com/hiernet/subnet/staking/reverts"
	"github.com/hiernet/subnet/staking/stats"
	"github.com/hiernet/subnet/staking/validator"
	"github.com/hiernet/subnet/staking/validatorset"
	"github.com/hiernet/subnet/storage"
	"github.com/hiernet/subnet/subnet"
)

var (
	logger = log.WithContext("pkg", "staking")

	slotBootstrapped = subnet.BytesToBytes32([]byte("bootstrapped"))
)

func SetLogger(l log.Logger) {
	logger = l
}

// PowerEntry is a validator with a snapshot of its confirmed power.
type PowerEntry struct {
	Address subnet.Address
	Power   *big.Int
}

// Staking wires the registry, the active/waiting sets, the running
// totals and the change log behind one facade. All state lives in the
// backing store, so two instances over the same store see the same
// engine.
type Staking struct {
	repo  *validator.Repository
	set   *validatorset.Set
	stats *stats.Service
	clog  *changelog.Service

	bootstrapped *storage.Uint64
}

// New creates an engine over the given store. The active limit is fixed
// for the lifetime of the subnet.
func New(store kv.GetPutter, activeLimit uint64) *Staking {
	sctx := storage.NewContext(store)
	repo := validator.NewRepository(sctx)
	statsService := stats.New(sctx)

	return &Staking{
		repo:  repo,
		set:   validatorset.New(sctx, repo, statsService, activeLimit),
		stats: statsService,
		clog:  changelog.New(sctx),

		bootstrapped: storage.NewUint64(sctx, slotBootstrapped),
	}
}

// ActiveLimit returns the maximum size of the active set.
func (s *Staking) ActiveLimit() uint64 {
	return s.set.Limit()
}

// Bootstrap switches the engine to deferred mode. One-way.
func (s *Staking) Bootstrap() error {
	if err := s.bootstrapped.Set(1); err != nil {
		return err
	}
	logger.Info("subnet bootstrapped, switching to deferred confirmations")
	return nil
}

// IsBootstrapped returns whether the engine runs in deferred mode.
func (s *Staking) IsBootstrapped() (bool, error) {
	flag, err := s.bootstrapped.Get()
	if err != nil {
		return false, err
	}
	return flag != 0, nil
}

// ConfirmDeposit raises the validator's confirmed power immediately and
// reranks the sets. Pending power follows so both totals stay aligned.
func (s *Staking) ConfirmDeposit(addr subnet.Address, amount *big.Int) error {
	logger.Debug("confirming deposit", "validator", addr, "amount", scaled(amount))

	if err := s.set.ConfirmDeposit(addr, amount); err != nil {
		logger.Info("confirm deposit failed", "validator", addr, "error", err)
		return err
	}
	if err := s.addPending(addr, amount); err != nil {
		return err
	}

	metricDepositCount().AddWithLabel(1, map[string]string{"path": "immediate"})
	s.publishGauges()
	logger.Info("confirmed deposit", "validator", addr, "amount", scaled(amount))
	return nil
}

// ConfirmWithdraw lowers the validator's confirmed power immediately and
// reranks the sets.
func (s *Staking) ConfirmWithdraw(addr subnet.Address, amount *big.Int) error {
	logger.Debug("confirming withdraw", "validator", addr, "amount", scaled(amount))

	if err := s.set.ConfirmWithdraw(addr, amount); err != nil {
		logger.Info("confirm withdraw failed", "validator", addr, "error", err)
		return err
	}
	if err := s.subPending(addr, amount); err != nil {
		return err
	}

	metricWithdrawCount().AddWithLabel(1, map[string]string{"path": "immediate"})
	s.publishGauges()
	logger.Info("confirmed withdraw", "validator", addr, "amount", scaled(amount))
	return nil
}

// SetMetadataWithConfirm replaces a tracked validator's metadata immediately.
func (s *Staking) SetMetadataWithConfirm(addr subnet.Address, metadata []byte) error {
	logger.Debug("setting metadata", "validator", addr)

	if err := s.set.SetMetadata(addr, metadata); err != nil {
		logger.Info("set metadata failed", "validator", addr, "error", err)
		return err
	}
	logger.Info("set metadata", "validator", addr)
	return nil
}

// Deposit queues a power increase and returns its configuration number.
// Only pending power moves until the change is confirmed.
func (s *Staking) Deposit(addr subnet.Address, amount *big.Int) (uint64, error) {
	logger.Debug("queueing deposit", "validator", addr, "amount", scaled(amount))

	if amount == nil || amount.Sign() <= 0 {
		return 0, reverts.ErrInvalidAmount
	}
	number, err := s.clog.Append(&changelog.Change{
		Validator: addr,
		Kind:      changelog.IncreasePower,
		Amount:    amount,
	})
	if err != nil {
		return 0, err
	}
	if err := s.addPending(addr, amount); err != nil {
		return 0, err
	}

	metricDepositCount().AddWithLabel(1, map[string]string{"path": "deferred"})
	logger.Info("queued deposit", "validator", addr, "amount", scaled(amount), "configuration", number)
	return number, nil
}

// Withdraw queues a power decrease, validated against the validator's
// pending power, and returns its configuration number.
func (s *Staking) Withdraw(addr subnet.Address, amount *big.Int) (uint64, error) {
	logger.Debug("queueing withdraw", "validator", addr, "amount", scaled(amount))

	if amount == nil || amount.Sign() <= 0 {
		return 0, reverts.ErrInvalidAmount
	}
	exists, err := s.repo.Exists(addr)
	if err != nil {
		return 0, err
	}
	if !exists {
		logger.Info("queue withdraw failed", "validator", addr, "error", reverts.ErrUnknownValidator)
		return 0, reverts.ErrUnknownValidator
	}
	entry, err := s.repo.Get(addr)
	if err != nil {
		return 0, err
	}
	if entry.PendingPower.Cmp(amount) < 0 {
		logger.Info("queue withdraw failed", "validator", addr, "error", reverts.ErrInsufficientCollateral)
		return 0, reverts.ErrInsufficientCollateral
	}

	number, err := s.clog.Append(&changelog.Change{
		Validator: addr,
		Kind:      changelog.DecreasePower,
		Amount:    amount,
	})
	if err != nil {
		return 0, err
	}
	if err := s.subPending(addr, amount); err != nil {
		return 0, err
	}

	metricWithdrawCount().AddWithLabel(1, map[string]string{"path": "deferred"})
	logger.Info("queued withdraw", "validator", addr, "amount", scaled(amount), "configuration", number)
	return number, nil
}

// SetMetadata queues a metadata replacement and returns its
// configuration number.
func (s *Staking) SetMetadata(addr subnet.Address, metadata []byte) (uint64, error) {
	logger.Debug("queueing metadata", "validator", addr)

	exists, err := s.repo.Exists(addr)
	if err != nil {
		return 0, err
	}
	if !exists {
		logger.Info("queue metadata failed", "validator", addr, "error", reverts.ErrUnknownValidator)
		return 0, reverts.ErrUnknownValidator
	}
	number, err := s.clog.Append(&changelog.Change{
		Validator: addr,
		Kind:      changelog.SetMetadata,
		Metadata:  metadata,
	})
	if err != nil {
		return 0, err
	}
	logger.Info("queued metadata", "validator", addr, "configuration", number)
	return number, nil
}

// ConfirmChange replays every queued change with a configuration number
// at or below upTo onto the confirmed state. Stale or repeated numbers
// are a safe no-op.
func (s *Staking) ConfirmChange(upTo uint64) error {
	logger.Debug("confirming changes", "upTo", upTo)

	applied, err := s.clog.Replay(upTo, s.applyChange)
	if err != nil {
		logger.Info("confirm changes failed", "upTo", upTo, "applied", applied, "error", err)
		return err
	}

	metricConfirmCount().Add(1)
	metricChangesApplied().Observe(int64(applied))
	s.publishGauges()
	logger.Info("confirmed changes", "upTo", upTo, "applied", applied)
	return nil
}

func (s *Staking) applyChange(change *changelog.Change) error {
	switch change.Kind {
	case changelog.IncreasePower:
		return s.set.ConfirmDeposit(change.Validator, change.Amount)
	case changelog.DecreasePower:
		return s.set.ConfirmWithdraw(change.Validator, change.Amount)
	case changelog.SetMetadata:
		return s.set.SetMetadata(change.Validator, change.Metadata)
	default:
		return reverts.New("unknown change kind")
	}
}

// GetConfigurationNumbers returns the number the next queued change will
// receive and the oldest unconfirmed number.
func (s *Staking) GetConfigurationNumbers() (next, start uint64, err error) {
	start, next, err = s.clog.Numbers()
	return next, start, err
}

// Join registers a new validator with its metadata and initial stake.
// Pre-bootstrap the validator is ranked immediately, afterwards the
// stake is queued and the returned configuration number confirms it.
func (s *Staking) Join(addr subnet.Address, metadata []byte, amount *big.Int) (uint64, error) {
	logger.Debug("validator joining", "validator", addr, "amount", scaled(amount))

	if amount == nil || amount.Sign() <= 0 {
		return 0, reverts.ErrInvalidAmount
	}
	exists, err := s.repo.Exists(addr)
	if err != nil {
		return 0, err
	}
	if exists {
		logger.Info("join failed", "validator", addr, "error", reverts.ErrAlreadyValidator)
		return 0, reverts.ErrAlreadyValidator
	}
	deferred, err := s.IsBootstrapped()
	if err != nil {
		return 0, err
	}

	if !deferred {
		if err := s.set.ConfirmDeposit(addr, amount); err != nil {
			return 0, err
		}
		if len(metadata) > 0 {
			if err := s.set.SetMetadata(addr, metadata); err != nil {
				return 0, err
			}
		}
		if err := s.addPending(addr, amount); err != nil {
			return 0, err
		}
		s.publishGauges()
		logger.Info("validator joined", "validator", addr, "amount", scaled(amount))
		return 0, nil
	}

	// power first so the metadata record finds the validator on replay
	number, err := s.clog.Append(&changelog.Change{
		Validator: addr,
		Kind:      changelog.IncreasePower,
		Amount:    amount,
	})
	if err != nil {
		return 0, err
	}
	if len(metadata) > 0 {
		number, err = s.clog.Append(&changelog.Change{
			Validator: addr,
			Kind:      changelog.SetMetadata,
			Metadata:  metadata,
		})
		if err != nil {
			return 0, err
		}
	}
	if err := s.addPending(addr, amount); err != nil {
		return 0, err
	}
	logger.Info("validator join queued", "validator", addr, "amount", scaled(amount), "configuration", number)
	return number, nil
}

// Leave drains the validator's stake and clears its metadata. The
// deferred variant queues the drain for the validator's whole pending
// power and returns the configuration number confirming it.
func (s *Staking) Leave(addr subnet.Address) (uint64, error) {
	logger.Debug("validator leaving", "validator", addr)

	exists, err := s.repo.Exists(addr)
	if err != nil {
		return 0, err
	}
	if !exists {
		logger.Info("leave failed", "validator", addr, "error", reverts.ErrUnknownValidator)
		return 0, reverts.ErrUnknownValidator
	}
	entry, err := s.repo.Get(addr)
	if err != nil {
		return 0, err
	}
	deferred, err := s.IsBootstrapped()
	if err != nil {
		return 0, err
	}

	if !deferred {
		if len(entry.Metadata) > 0 {
			if err := s.set.SetMetadata(addr, nil); err != nil {
				return 0, err
			}
		}
		if entry.ConfirmedPower.Sign() > 0 {
			if err := s.set.ConfirmWithdraw(addr, entry.ConfirmedPower); err != nil {
				return 0, err
			}
		}
		if err := s.subPending(addr, entry.PendingPower); err != nil {
			return 0, err
		}
		s.publishGauges()
		logger.Info("validator left", "validator", addr)
		return 0, nil
	}

	// metadata first, the power drain below removes the record on replay
	var number uint64
	if len(entry.Metadata) > 0 {
		number, err = s.clog.Append(&changelog.Change{
			Validator: addr,
			Kind:      changelog.SetMetadata,
		})
		if err != nil {
			return 0, err
		}
	}
	if entry.PendingPower.Sign() > 0 {
		number, err = s.clog.Append(&changelog.Change{
			Validator: addr,
			Kind:      changelog.DecreasePower,
			Amount:    entry.PendingPower,
		})
		if err != nil {
			return 0, err
		}
		if err := s.subPending(addr, entry.PendingPower); err != nil {
			return 0, err
		}
	}
	logger.Info("validator leave queued", "validator", addr, "configuration", number)
	return number, nil
}

// GetValidator returns the registry entry for the address. Untracked
// addresses return an empty entry.
func (s *Staking) GetValidator(addr subnet.Address) (*validator.Validator, error) {
	return s.repo.Get(addr)
}

// IsActiveValidator returns whether the address holds an active seat.
func (s *Staking) IsActiveValidator(addr subnet.Address) (bool, error) {
	return s.set.IsActive(addr)
}

// IsWaitingValidator returns whether the address waits below the cutoff.
func (s *Staking) IsWaitingValidator(addr subnet.Address) (bool, error) {
	return s.set.IsWaiting(addr)
}

// ListActiveValidators returns the active set with a power snapshot.
func (s *Staking) ListActiveValidators() ([]PowerEntry, error) {
	return s.snapshot(s.set.ListActive)
}

// ListWaitingValidators returns the waiting set with a power snapshot.
func (s *Staking) ListWaitingValidators() ([]PowerEntry, error) {
	return s.snapshot(s.set.ListWaiting)
}

// TotalActivePower returns the confirmed power held by the active set,
// maintained as a running total.
func (s *Staking) TotalActivePower() (*big.Int, error) {
	return s.stats.ActivePower()
}

// TotalConfirmedPower returns the confirmed power of all validators,
// maintained as a running total.
func (s *Staking) TotalConfirmedPower() (*big.Int, error) {
	return s.stats.ConfirmedPower()
}

// TotalPendingPower returns the pending power of all validators.
func (s *Staking) TotalPendingPower() (*big.Int, error) {
	return s.stats.PendingPower()
}

// TotalValidatorPower returns the confirmed power of the address.
func (s *Staking) TotalValidatorPower(addr subnet.Address) (*big.Int, error) {
	return s.repo.PowerOf(addr)
}

// PendingPowerOf returns the pending power of the address.
func (s *Staking) PendingPowerOf(addr subnet.Address) (*big.Int, error) {
	entry, err := s.repo.Get(addr)
	if err != nil {
		return nil, err
	}
	return entry.PendingPower, nil
}

// ValidatorCount returns the number of tracked validators.
func (s *Staking) ValidatorCount() (uint64, error) {
	return s.repo.Count()
}

func (s *Staking) snapshot(list func() ([]subnet.Address, error)) ([]PowerEntry, error) {
	addrs, err := list()
	if err != nil {
		return nil, err
	}
	entries := make([]PowerEntry, 0, len(addrs))
	for _, addr := range addrs {
		power, err := s.repo.PowerOf(addr)
		if err != nil {
			return nil, err
		}
		entries = append(entries, PowerEntry{Address: addr, Power: power})
	}
	return entries, nil
}

func (s *Staking) addPending(addr subnet.Address, amount *big.Int) error {
	if err := s.repo.AddPending(addr, amount); err != nil {
		return err
	}
	return s.stats.AddPending(amount)
}

func (s *Staking) subPending(addr subnet.Address, amount *big.Int) error {
	if err := s.repo.SubPending(addr, amount); err != nil {
		return err
	}
	return s.stats.SubPending(amount)
}

func (s *Staking) publishGauges() {
	if active, err := s.stats.ActivePower(); err == nil {
		metricActivePower().Set(scaled(active).Int64())
	}
	if confirmed, err := s.stats.ConfirmedPower(); err == nil {
		metricConfirmedPower().Set(scaled(confirmed).Int64())
	}
	if count, err := s.set.ActiveCount(); err == nil {
		metricActiveValidators().Set(int64(count))
	}
	if count, err := s.set.WaitingCount(); err == nil {
		metricWaitingValidators().Set(int64(count))
	}
}

// scaled converts a power amount to whole tokens for logs and gauges.
func scaled(amount *big.Int) *big.Int {
	if amount == nil {
		return new(big.Int)
	}
	return new(big.Int).Div(amount, big.NewInt(1e18))
}
