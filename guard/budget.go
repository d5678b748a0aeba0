// Copyright 2025 The Docpipeline Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"docpipeline/shared/logger"
)

// CostLedgerEntry is one append-only record of a billable call.
type CostLedgerEntry struct {
	JobID     string    `json:"jobId"`
	Service   string    `json:"service"`
	CostUSD   float64   `json:"costUsd"`
	Timestamp time.Time `json:"timestamp"`
}

// Alerter receives budget threshold crossings. LogAlerter satisfies it by
// writing through the structured logger; callers may supply their own for
// webhook or pager integrations.
type Alerter interface {
	Alert(ctx context.Context, thresholdPct int, dailyUSD, dailyCapUSD float64)
}

// LogAlerter is the default Alerter, logging through the package logger.
type LogAlerter struct {
	log *logger.Logger
}

// NewLogAlerter constructs a LogAlerter.
func NewLogAlerter(log *logger.Logger) *LogAlerter {
	return &LogAlerter{log: log}
}

func (a *LogAlerter) Alert(ctx context.Context, thresholdPct int, dailyUSD, dailyCapUSD float64) {
	a.log.Warn("", "", "guard: budget threshold crossed", map[string]interface{}{
		"threshold_pct": thresholdPct,
		"daily_usd":     dailyUSD,
		"daily_cap_usd": dailyCapUSD,
	})
}

// alertThresholds are the percentage-of-cap boundaries that fire an
// alert exactly once per period.
var alertThresholds = []int{50, 75, 90}

// Ledger is the append-only budget ledger with in-memory daily and
// monthly aggregates. Entries are never mutated or deleted; Reserve only
// ever appends.
type Ledger struct {
	mu       sync.Mutex
	entries  []CostLedgerEntry
	dailyCap float64
	monthCap float64
	alerter  Alerter

	dailyTotal   float64
	monthTotal   float64
	dayAnchor    time.Time
	monthAnchor  time.Time
	dailyAlerted map[int]bool
	monthAlerted map[int]bool
}

// NewLedger constructs a Ledger with the given daily and monthly USD
// caps. A zero cap disables that cap's enforcement.
func NewLedger(dailyCap, monthlyCap float64, alerter Alerter) *Ledger {
	if alerter == nil {
		alerter = NewLogAlerter(logger.New("guard"))
	}
	now := time.Now().UTC()
	return &Ledger{
		dailyCap:     dailyCap,
		monthCap:     monthlyCap,
		alerter:      alerter,
		dayAnchor:    midnightUTC(now),
		monthAnchor:  monthStartUTC(now),
		dailyAlerted: make(map[int]bool),
		monthAlerted: make(map[int]bool),
	}
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func monthStartUTC(t time.Time) time.Time {
	y, m, _ := t.UTC().Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// rolloverLocked resets daily/monthly aggregates if the current UTC
// moment has crossed a day or month boundary since the last call. Caller
// must hold l.mu.
func (l *Ledger) rolloverLocked(now time.Time) {
	day := midnightUTC(now)
	if day.After(l.dayAnchor) {
		l.dayAnchor = day
		l.dailyTotal = 0
		l.dailyAlerted = make(map[int]bool)
	}
	month := monthStartUTC(now)
	if month.After(l.monthAnchor) {
		l.monthAnchor = month
		l.monthTotal = 0
		l.monthAlerted = make(map[int]bool)
	}
}

// Reserve projects the daily and monthly totals after adding
// estimatedCost and rejects with ErrBudgetExceeded if either cap would be
// crossed. On success it appends the ledger entry and fires any newly
// crossed alert thresholds.
func (l *Ledger) Reserve(ctx context.Context, jobID, service string, estimatedCost float64) error {
	l.mu.Lock()
	now := time.Now().UTC()
	l.rolloverLocked(now)

	projectedDaily := l.dailyTotal + estimatedCost
	if l.dailyCap > 0 && projectedDaily > l.dailyCap {
		l.mu.Unlock()
		return fmt.Errorf("%w: projected daily $%.2f exceeds cap $%.2f", ErrBudgetExceeded, projectedDaily, l.dailyCap)
	}
	projectedMonthly := l.monthTotal + estimatedCost
	if l.monthCap > 0 && projectedMonthly > l.monthCap {
		l.mu.Unlock()
		return fmt.Errorf("%w: projected monthly $%.2f exceeds cap $%.2f", ErrBudgetExceeded, projectedMonthly, l.monthCap)
	}

	l.dailyTotal = projectedDaily
	l.monthTotal = projectedMonthly
	l.entries = append(l.entries, CostLedgerEntry{JobID: jobID, Service: service, CostUSD: estimatedCost, Timestamp: now})

	var toAlert []int
	if l.dailyCap > 0 {
		pct := int(l.dailyTotal / l.dailyCap * 100)
		for _, threshold := range alertThresholds {
			if pct >= threshold && !l.dailyAlerted[threshold] {
				l.dailyAlerted[threshold] = true
				toAlert = append(toAlert, threshold)
			}
		}
	}
	dailyUSD, dailyCap := l.dailyTotal, l.dailyCap
	l.mu.Unlock()

	for _, threshold := range toAlert {
		l.alerter.Alert(ctx, threshold, dailyUSD, dailyCap)
	}
	return nil
}

// DailyTotal returns the current UTC day's accumulated spend.
func (l *Ledger) DailyTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dailyTotal
}

// MonthlyTotal returns the current UTC month's accumulated spend.
func (l *Ledger) MonthlyTotal() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.monthTotal
}

// Entries returns a copy of every ledger entry recorded so far.
func (l *Ledger) Entries() []CostLedgerEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]CostLedgerEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
