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
	"sync"
	"time"

	"docpipeline/shared/logger"
)

// State is one of the three circuit breaker states.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// BreakerConfig parameterizes one circuit's trip/recovery behavior.
type BreakerConfig struct {
	FailureThreshold int           // consecutive failures before opening
	OpenDuration     time.Duration // how long the circuit stays open before probing
	HalfOpenProbes   int           // concurrent probes allowed while half-open
}

// DefaultBreakerConfig matches the guard defaults: five consecutive
// failures trips the circuit, it stays open for five minutes, and one
// probe call is allowed through during the half-open recovery window.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		OpenDuration:      5 * time.Minute,
		HalfOpenProbes:    1,
	}
}

// circuit is the per-service state machine.
type circuit struct {
	mu               sync.Mutex
	state            State
	consecutiveFails int
	openedAt         time.Time
	probesInFlight   int
}

// Breaker tracks one circuit per external service name.
type Breaker struct {
	mu       sync.Mutex
	config   BreakerConfig
	circuits map[string]*circuit
	log      *logger.Logger
}

// NewBreaker constructs a Breaker using config for every service it sees.
func NewBreaker(config BreakerConfig, log *logger.Logger) *Breaker {
	return &Breaker{config: config, circuits: make(map[string]*circuit), log: log}
}

func (b *Breaker) circuitFor(service string) *circuit {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.circuits[service]
	if !ok {
		c = &circuit{state: StateClosed}
		b.circuits[service] = c
	}
	return c
}

// Allow reports whether a call to service may proceed. While the circuit
// is open and the open duration has not elapsed, it returns
// ErrCircuitOpen. Once the open duration elapses, it admits up to
// HalfOpenProbes concurrent calls in the half-open state.
func (b *Breaker) Allow(service string) error {
	c := b.circuitFor(service)
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(c.openedAt) < b.config.OpenDuration {
			return ErrCircuitOpen
		}
		c.state = StateHalfOpen
		c.probesInFlight = 0
		fallthrough
	case StateHalfOpen:
		if c.probesInFlight >= b.config.HalfOpenProbes {
			return ErrCircuitOpen
		}
		c.probesInFlight++
		return nil
	}
	return nil
}

// RecordSuccess closes the circuit and resets its failure count.
func (b *Breaker) RecordSuccess(service string) {
	c := b.circuitFor(service)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateClosed {
		b.log.Info("", "", "guard: circuit closed", map[string]interface{}{"service": service})
	}
	c.state = StateClosed
	c.consecutiveFails = 0
	c.probesInFlight = 0
}

// RecordFailure increments the circuit's consecutive failure count,
// opening it once the configured threshold is reached. A failure seen
// while half-open reopens the circuit immediately.
func (b *Breaker) RecordFailure(service string) {
	c := b.circuitFor(service)
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFails++
	if c.state == StateHalfOpen || c.consecutiveFails >= b.config.FailureThreshold {
		c.state = StateOpen
		c.openedAt = time.Now()
		c.probesInFlight = 0
		b.log.Warn("", "", "guard: circuit opened", map[string]interface{}{
			"service":            service,
			"consecutive_fails":  c.consecutiveFails,
		})
	}
}

// StateOf reports the current state of service's circuit, for health and
// diagnostic endpoints.
func (b *Breaker) StateOf(service string) State {
	c := b.circuitFor(service)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
