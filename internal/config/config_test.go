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

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FerretDB/rwrouter/internal/util/testutil"
)

// Tests in this file modify the environment and can't be run in parallel.

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"DB_REPLICAS_ENABLED", "DB_REPLICA_PATHS", "DB_REPLICA_HOSTS", "DB_REPLICA_PORTS", "DB_REPLICA_DRIVER",
		"DB_REPLICA_USER", "MYSQL_USER", "DB_REPLICA_PASSWORD", "MYSQL_PASSWORD", "DB_REPLICA_DATABASE", "MYSQL_DATABASE",
		"DB_REPLICA_HEALTH_CHECK_INTERVAL", "DB_REPLICA_HEALTH_CHECK_TIMEOUT", "DB_REPLICA_QUERY_TIMEOUT",
		"DB_REPLICA_CONNECT_TIMEOUT", "DB_REPLICA_SHUTDOWN_GRACE", "DB_REPLICA_POOL_SIZE",
	} {
		t.Setenv(k, "")
	}

	c, err := Load(testutil.Logger(t))
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
	assert.False(t, c.Enabled)
	assert.Empty(t, c.Locations(true))
	assert.Empty(t, c.Locations(false))
}

func TestLoad(t *testing.T) {
	t.Setenv("DB_REPLICAS_ENABLED", "true")
	t.Setenv("DB_REPLICA_PATHS", " /data/r1.sqlite, ,/data/r2.sqlite ")
	t.Setenv("DB_REPLICA_HOSTS", "replica-1,replica-2,replica-3")
	t.Setenv("DB_REPLICA_PORTS", "3307,,bad")
	t.Setenv("DB_REPLICA_DRIVER", "Postgres")
	t.Setenv("DB_REPLICA_USER", "")
	t.Setenv("MYSQL_USER", "app")
	t.Setenv("DB_REPLICA_PASSWORD", "replica-secret")
	t.Setenv("MYSQL_PASSWORD", "primary-secret")
	t.Setenv("DB_REPLICA_DATABASE", "")
	t.Setenv("MYSQL_DATABASE", "")
	t.Setenv("DB_REPLICA_HEALTH_CHECK_INTERVAL", "10")
	t.Setenv("DB_REPLICA_HEALTH_CHECK_TIMEOUT", "1500ms")
	t.Setenv("DB_REPLICA_QUERY_TIMEOUT", "-1s")
	t.Setenv("DB_REPLICA_CONNECT_TIMEOUT", "")
	t.Setenv("DB_REPLICA_SHUTDOWN_GRACE", "3s")
	t.Setenv("DB_REPLICA_POOL_SIZE", "0")

	c, err := Load(testutil.Logger(t))
	require.NoError(t, err)

	expected := &Config{
		Enabled:             true,
		Paths:               []string{"/data/r1.sqlite", "/data/r2.sqlite"},
		Hosts:               []string{"replica-1", "replica-2", "replica-3"},
		Ports:               []int{3307, 0, 0},
		Driver:              DriverPostgreSQL,
		User:                "app",
		Password:            "replica-secret",
		Database:            "notehub",
		HealthCheckInterval: 10 * time.Second,
		HealthCheckTimeout:  1500 * time.Millisecond,
		QueryTimeout:        DefaultQueryTimeout,
		ConnectTimeout:      DefaultConnectTimeout,
		ShutdownGrace:       3 * time.Second,
		PoolSize:            DefaultPoolSize,
	}
	assert.Equal(t, expected, c)

	assert.Equal(t, 3307, c.Port(0, 5432))
	assert.Equal(t, 5432, c.Port(1, 5432))
	assert.Equal(t, 5432, c.Port(2, 5432))
	assert.Equal(t, 5432, c.Port(3, 5432))
}

func TestLoadHostPorts(t *testing.T) {
	t.Setenv("DB_REPLICAS_ENABLED", "true")
	t.Setenv("DB_REPLICA_HOSTS", "h1, ,h3,h4")
	t.Setenv("DB_REPLICA_PORTS", "1001,1002,1003")

	c, err := Load(testutil.Logger(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"h1", "h3", "h4"}, c.Hosts)
	assert.Equal(t, []int{1001, 1003, 0}, c.Ports)
	assert.Equal(t, []string{"h1", "h3", "h4"}, c.Locations(false))

	assert.Equal(t, 1001, c.Port(0, 3306))
	assert.Equal(t, 1003, c.Port(1, 3306))
	assert.Equal(t, 3306, c.Port(2, 3306))
}

func TestLoadInvalid(t *testing.T) {
	t.Run("Bool", func(t *testing.T) {
		t.Setenv("DB_REPLICAS_ENABLED", "maybe")

		_, err := Load(testutil.Logger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_REPLICAS_ENABLED")
	})

	t.Run("Duration", func(t *testing.T) {
		t.Setenv("DB_REPLICAS_ENABLED", "1")
		t.Setenv("DB_REPLICA_QUERY_TIMEOUT", "5 parsecs")

		_, err := Load(testutil.Logger(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "DB_REPLICA_QUERY_TIMEOUT")
	})

	t.Run("Replaced", func(t *testing.T) {
		t.Setenv("DB_REPLICAS_ENABLED", "1")
		t.Setenv("DB_REPLICA_QUERY_TIMEOUT", "")
		t.Setenv("DB_REPLICA_DRIVER", "oracle")
		t.Setenv("DB_REPLICA_HEALTH_CHECK_INTERVAL", "soon")

		c, err := Load(testutil.Logger(t))
		require.NoError(t, err)
		assert.Equal(t, DriverMySQL, c.Driver)
		assert.Equal(t, DefaultHealthCheckInterval, c.HealthCheckInterval)
	})
}
