// Copyright 2021 FerretDB Inc.
//
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

package replication

import (
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/FerretDB/rwrouter/internal/backends"
)

// Observer receives routing and health events.
//
// Methods are called concurrently and must not block.
type Observer interface {
	// Routed is called for every routed statement; replica is nil for the primary.
	Routed(replica *Replica)

	// Failover is called when a statement failed on the replica and is retried on the primary.
	Failover(replica *Replica, err error)

	// HealthChanged is called when the replica health flag changes.
	HealthChanged(replica *Replica, healthy bool, err error)

	// ReplicaSkipped is called when the configured replica can't be opened.
	ReplicaSkipped(location string, err error)
}

// LogObserver logs events.
//
// Failover warnings are rate limited; suppressed ones are logged at debug level.
type LogObserver struct {
	l         *zap.Logger
	failovers *rate.Sometimes
}

// NewLogObserver creates a new LogObserver.
func NewLogObserver(l *zap.Logger) *LogObserver {
	return &LogObserver{
		l:         l,
		failovers: &rate.Sometimes{First: 1, Interval: 10 * time.Second},
	}
}

// Routed implements Observer.
func (o *LogObserver) Routed(*Replica) {}

// Failover implements Observer.
func (o *LogObserver) Failover(replica *Replica, err error) {
	fields := []zap.Field{zap.Int("replica", replica.ID), zap.String("location", replica.Location()), zap.Error(err)}

	// a write reached the replica, so IsReadOnly let it through
	if backends.ErrorCodeIs(err, backends.ErrorCodeReadOnly) {
		o.l.Error("Replica rejected a statement classified as read-only.", fields...)
		return
	}

	var logged bool
	o.failovers.Do(func() {
		logged = true
		o.l.Warn("Replica query failed, falling back to primary.", fields...)
	})

	if !logged {
		o.l.Debug("Replica query failed, falling back to primary.", fields...)
	}
}

// HealthChanged implements Observer.
func (o *LogObserver) HealthChanged(replica *Replica, healthy bool, err error) {
	fields := []zap.Field{zap.Int("replica", replica.ID), zap.String("location", replica.Location())}

	if healthy {
		o.l.Info("Replica is healthy.", fields...)
		return
	}

	o.l.Warn("Replica is unhealthy.", append(fields, zap.Error(err))...)
}

// ReplicaSkipped implements Observer.
func (o *LogObserver) ReplicaSkipped(location string, err error) {
	o.l.Warn("Replica skipped.", zap.String("location", location), zap.Error(err))
}

// MultiObserver sends events to all observers in order.
type MultiObserver []Observer

// Routed implements Observer.
func (m MultiObserver) Routed(replica *Replica) {
	for _, o := range m {
		o.Routed(replica)
	}
}

// Failover implements Observer.
func (m MultiObserver) Failover(replica *Replica, err error) {
	for _, o := range m {
		o.Failover(replica, err)
	}
}

// HealthChanged implements Observer.
func (m MultiObserver) HealthChanged(replica *Replica, healthy bool, err error) {
	for _, o := range m {
		o.HealthChanged(replica, healthy, err)
	}
}

// ReplicaSkipped implements Observer.
func (m MultiObserver) ReplicaSkipped(location string, err error) {
	for _, o := range m {
		o.ReplicaSkipped(location, err)
	}
}

// check interfaces
var (
	_ Observer = (*LogObserver)(nil)
	_ Observer = MultiObserver(nil)
)
