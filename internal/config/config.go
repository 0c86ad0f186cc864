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

// Package config loads replication settings from the environment.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/FerretDB/rwrouter/internal/util/lazyerrors"
	"github.com/FerretDB/rwrouter/internal/util/must"
)

// Driver is the networked replica driver.
type Driver string

// Supported drivers.
const (
	DriverMySQL      Driver = "mysql"
	DriverPostgreSQL Driver = "postgresql"
)

// Config represents replication settings.
//
//nolint:vet // for readability
type Config struct {
	Enabled bool

	// Paths are replica files for embedded mode.
	Paths []string

	// Hosts are replica servers for networked mode.
	Hosts []string

	// Ports are paired with Hosts by position; 0 means the driver's default port.
	Ports []int

	Driver   Driver
	User     string
	Password string
	Database string

	HealthCheckInterval time.Duration
	HealthCheckTimeout  time.Duration
	QueryTimeout        time.Duration
	ConnectTimeout      time.Duration
	ShutdownGrace       time.Duration

	PoolSize int
}

// Default values.
const (
	DefaultHealthCheckInterval = 30 * time.Second
	DefaultHealthCheckTimeout  = 5 * time.Second
	DefaultQueryTimeout        = 5 * time.Second
	DefaultConnectTimeout      = 5 * time.Second
	DefaultShutdownGrace       = 2 * time.Second
	DefaultPoolSize            = 10
)

// Default returns disabled configuration with default values.
func Default() *Config {
	return &Config{
		Driver:              DriverMySQL,
		User:                "notehub",
		Database:            "notehub",
		HealthCheckInterval: DefaultHealthCheckInterval,
		HealthCheckTimeout:  DefaultHealthCheckTimeout,
		QueryTimeout:        DefaultQueryTimeout,
		ConnectTimeout:      DefaultConnectTimeout,
		ShutdownGrace:       DefaultShutdownGrace,
		PoolSize:            DefaultPoolSize,
	}
}

// Locations returns replica locations for the given mode:
// file paths for embedded mode, hosts for networked mode.
func (c *Config) Locations(embedded bool) []string {
	if embedded {
		return c.Paths
	}

	return c.Hosts
}

// Port returns the port of the i-th host, or def if it is not configured.
func (c *Config) Port(i, def int) int {
	if i < len(c.Ports) && c.Ports[i] > 0 {
		return c.Ports[i]
	}

	return def
}

// newViper returns Viper instance bound to the environment variables.
func newViper() *viper.Viper {
	v := viper.New()

	must.NoError(v.BindEnv("enabled", "DB_REPLICAS_ENABLED"))
	must.NoError(v.BindEnv("paths", "DB_REPLICA_PATHS"))
	must.NoError(v.BindEnv("hosts", "DB_REPLICA_HOSTS"))
	must.NoError(v.BindEnv("ports", "DB_REPLICA_PORTS"))
	must.NoError(v.BindEnv("driver", "DB_REPLICA_DRIVER"))
	must.NoError(v.BindEnv("user", "DB_REPLICA_USER", "MYSQL_USER"))
	must.NoError(v.BindEnv("password", "DB_REPLICA_PASSWORD", "MYSQL_PASSWORD"))
	must.NoError(v.BindEnv("database", "DB_REPLICA_DATABASE", "MYSQL_DATABASE"))
	must.NoError(v.BindEnv("health_check_interval", "DB_REPLICA_HEALTH_CHECK_INTERVAL"))
	must.NoError(v.BindEnv("health_check_timeout", "DB_REPLICA_HEALTH_CHECK_TIMEOUT"))
	must.NoError(v.BindEnv("query_timeout", "DB_REPLICA_QUERY_TIMEOUT"))
	must.NoError(v.BindEnv("connect_timeout", "DB_REPLICA_CONNECT_TIMEOUT"))
	must.NoError(v.BindEnv("shutdown_grace", "DB_REPLICA_SHUTDOWN_GRACE"))
	must.NoError(v.BindEnv("pool_size", "DB_REPLICA_POOL_SIZE"))

	d := Default()
	v.SetDefault("enabled", "false")
	v.SetDefault("driver", string(d.Driver))
	v.SetDefault("user", d.User)
	v.SetDefault("database", d.Database)

	return v
}

// Load reads configuration from the environment.
//
// Invalid ports, drivers, and non-positive numbers are logged and replaced with defaults.
// Malformed booleans and durations are returned as errors.
func Load(l *zap.Logger) (*Config, error) {
	return load(newViper(), l)
}

// load reads configuration from the given Viper instance.
func load(v *viper.Viper, l *zap.Logger) (*Config, error) {
	res := Default()

	var err error

	if res.Enabled, err = strconv.ParseBool(strings.TrimSpace(v.GetString("enabled"))); err != nil {
		return nil, lazyerrors.Errorf("DB_REPLICAS_ENABLED: %w", err)
	}

	res.Paths = splitList(v.GetString("paths"))

	// ports are paired with hosts by position in the original lists,
	// so empty hosts drop their ports too
	var ports []int

	if s := strings.TrimSpace(v.GetString("ports")); s != "" {
		for i, e := range strings.Split(s, ",") {
			if e = strings.TrimSpace(e); e == "" {
				ports = append(ports, 0)
				continue
			}

			p, perr := strconv.Atoi(e)
			if perr != nil || p <= 0 || p > 65535 {
				l.Warn("Invalid replica port, using default.", zap.Int("index", i), zap.String("value", e))
				p = 0
			}

			ports = append(ports, p)
		}
	}

	for i, h := range strings.Split(v.GetString("hosts"), ",") {
		if h = strings.TrimSpace(h); h == "" {
			continue
		}

		var p int
		if i < len(ports) {
			p = ports[i]
		}

		res.Hosts = append(res.Hosts, h)
		res.Ports = append(res.Ports, p)
	}

	switch d := Driver(strings.ToLower(strings.TrimSpace(v.GetString("driver")))); d {
	case DriverMySQL, DriverPostgreSQL:
		res.Driver = d
	case "postgres":
		res.Driver = DriverPostgreSQL
	default:
		l.Warn("Unknown replica driver, using default.", zap.String("value", string(d)), zap.String("default", string(res.Driver)))
	}

	res.User = v.GetString("user")
	res.Password = v.GetString("password")
	res.Database = v.GetString("database")

	if s := strings.TrimSpace(v.GetString("health_check_interval")); s != "" {
		secs, serr := strconv.Atoi(s)
		if serr != nil || secs <= 0 {
			l.Warn(
				"Invalid health check interval, using default.",
				zap.String("value", s), zap.Duration("default", res.HealthCheckInterval),
			)
		} else {
			res.HealthCheckInterval = time.Duration(secs) * time.Second
		}
	}

	durations := []struct {
		key string
		env string
		dst *time.Duration
	}{
		{"health_check_timeout", "DB_REPLICA_HEALTH_CHECK_TIMEOUT", &res.HealthCheckTimeout},
		{"query_timeout", "DB_REPLICA_QUERY_TIMEOUT", &res.QueryTimeout},
		{"connect_timeout", "DB_REPLICA_CONNECT_TIMEOUT", &res.ConnectTimeout},
		{"shutdown_grace", "DB_REPLICA_SHUTDOWN_GRACE", &res.ShutdownGrace},
	}

	for _, d := range durations {
		s := strings.TrimSpace(v.GetString(d.key))
		if s == "" {
			continue
		}

		var dur time.Duration
		if dur, err = time.ParseDuration(s); err != nil {
			return nil, lazyerrors.Errorf("%s: %w", d.env, err)
		}

		if dur <= 0 {
			l.Warn("Non-positive duration, using default.", zap.String("env", d.env), zap.Duration("default", *d.dst))
			continue
		}

		*d.dst = dur
	}

	if s := strings.TrimSpace(v.GetString("pool_size")); s != "" {
		n, nerr := strconv.Atoi(s)
		if nerr != nil || n <= 0 {
			l.Warn("Invalid pool size, using default.", zap.String("value", s), zap.Int("default", res.PoolSize))
		} else {
			res.PoolSize = n
		}
	}

	return res, nil
}

// splitList splits comma-separated list, trimming spaces and dropping empty elements.
func splitList(s string) []string {
	var res []string

	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			res = append(res, e)
		}
	}

	return res
}
