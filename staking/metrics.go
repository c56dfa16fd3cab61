// Copyright (c) 2025 The HierNet developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package staking

import (
	"github.com/hiernet/subnet/metrics"
)

var (
	metricDepositCount  = metrics.LazyLoadCounterVec("staking_deposit_count", []string{"path"})
	metricWithdrawCount = metrics.LazyLoadCounterVec("staking_withdraw_count", []string{"path"})
	metricConfirmCount  = metrics.LazyLoadCounter("staking_confirm_count")

	metricChangesApplied = metrics.LazyLoadHistogram("staking_changes_applied", metrics.BucketChangeBatch)

	metricActivePower       = metrics.LazyLoadGauge("staking_active_power")
	metricConfirmedPower    = metrics.LazyLoadGauge("staking_confirmed_power")
	metricActiveValidators  = metrics.LazyLoadGauge("staking_active_validators")
	metricWaitingValidators = metrics.LazyLoadGauge("staking_waiting_validators")
)
