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

// Command rwrouter opens the primary database and replicas,
// and serves replication status, metrics, and profiling over HTTP.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	_ "golang.org/x/crypto/x509roots/fallback" // register root TLS certificates for minimal container images

	"github.com/FerretDB/rwrouter/build/version"
	"github.com/FerretDB/rwrouter/internal/replication"
	"github.com/FerretDB/rwrouter/internal/util/ctxutil"
	"github.com/FerretDB/rwrouter/internal/util/debug"
	"github.com/FerretDB/rwrouter/internal/util/debugbuild"
	"github.com/FerretDB/rwrouter/internal/util/logging"
	"github.com/FerretDB/rwrouter/internal/util/must"
	"github.com/FerretDB/rwrouter/internal/util/observability"
	"github.com/FerretDB/rwrouter/internal/util/startup"
	"github.com/FerretDB/rwrouter/internal/util/state"
)

// The cli struct represents all command-line commands, fields and flags.
// It's used for parsing the user input.
//
// Replication itself is configured with DB_REPLICA* environment variables.
//
//nolint:lll // some tags are long
var cli struct {
	Version  bool   `default:"false" help:"Print version to stdout and exit." env:"-"`
	StateDir string `default:"-"     help:"Process state directory; '-' disables persistence."`

	Primary struct {
		URL      string        `default:"file:data/notehub.sqlite" help:"${help_primary_url}"`
		PoolSize int           `default:"20"                       help:"Maximum number of open connections to networked primary."`
		Timeout  time.Duration `default:"5s"                       help:"Primary connect timeout."`
	} `embed:"" prefix:"primary-"`

	DebugAddr    string `default:"127.0.0.1:8088" help:"Listen address for HTTP handlers for health, metrics, pprof, etc."`
	OtelEndpoint string `default:""               help:"OTLP HTTP endpoint for traces; empty disables tracing."`

	Log struct {
		Level  string `default:"${default_log_level}" help:"${help_log_level}"`
		Format string `default:"console"              help:"${help_log_format}"                     enum:"${enum_log_format}"`
		UUID   bool   `default:"false"                help:"Add instance UUID to all log messages." negatable:""`
	} `embed:"" prefix:"log-"`

	MetricsUUID bool `default:"false" help:"Add instance UUID to all metrics." negatable:""`
}

// Additional variables for the kong parsers.
var (
	logLevels = []string{
		zap.DebugLevel.String(),
		zap.InfoLevel.String(),
		zap.WarnLevel.String(),
		zap.ErrorLevel.String(),
	}

	logFormats = []string{"console", "json"}

	kongOptions = []kong.Option{
		kong.Vars{
			"default_log_level": defaultLogLevel().String(),

			"enum_log_format": strings.Join(logFormats, ","),

			"help_log_format":  fmt.Sprintf("Log format: '%s'.", strings.Join(logFormats, "', '")),
			"help_log_level":   fmt.Sprintf("Log level: '%s'.", strings.Join(logLevels, "', '")),
			"help_primary_url": "Primary database URL: 'file:<path>' (SQLite, embedded mode), 'mysql://...', or 'postgres://...'.",
		},
		kong.DefaultEnvars("RWROUTER"),
	}
)

func main() {
	kong.Parse(&cli, kongOptions...)

	run()
}

// defaultLogLevel returns the default log level.
func defaultLogLevel() zapcore.Level {
	if version.Get().DebugBuild {
		return zap.DebugLevel
	}

	return zap.InfoLevel
}

// setupState setups state provider.
func setupState() *state.Provider {
	sp, err := startup.State(cli.StateDir)
	if err != nil {
		log.Fatalf("Failed to create state provider: %s.", err)
	}

	return sp
}

// setupMetrics setups Prometheus metrics registerer with some metrics.
func setupMetrics(stateProvider *state.Provider) prometheus.Registerer {
	r := prometheus.DefaultRegisterer
	m := stateProvider.MetricsCollector(true)

	// we don't do it by default due to
	// https://prometheus.io/docs/instrumenting/writing_exporters/#target-labels-not-static-scraped-labels
	if cli.MetricsUUID {
		r = prometheus.WrapRegistererWith(
			prometheus.Labels{"uuid": stateProvider.Get().UUID},
			prometheus.DefaultRegisterer,
		)
		m = stateProvider.MetricsCollector(false)
	}

	r.MustRegister(m)

	return r
}

// setupLogger setups zap logger.
func setupLogger(stateProvider *state.Provider) *zap.Logger {
	info := version.Get()

	startupFields := []zap.Field{
		zap.String("version", info.Version),
		zap.String("commit", info.Commit),
		zap.String("branch", info.Branch),
		zap.Bool("dirty", info.Dirty),
		zap.String("package", info.Package),
		zap.Bool("debugBuild", info.DebugBuild),
		zap.Any("buildEnvironment", info.BuildEnvironment),
	}
	logUUID := stateProvider.Get().UUID

	// Similarly to Prometheus, unless requested, don't add UUID to all messages, but log it once at startup.
	if !cli.Log.UUID {
		startupFields = append(startupFields, zap.String("uuid", logUUID))
		logUUID = ""
	}

	level, err := zapcore.ParseLevel(cli.Log.Level)
	if err != nil {
		log.Fatal(err)
	}

	logging.Setup(level, cli.Log.Format, logUUID)
	l := zap.L()

	l.Info("Starting rwrouter "+info.Version+"...", startupFields...)

	if debugbuild.Enabled {
		l.Info("This is debug build. The performance will be affected.")
	}

	return l
}

// dumpMetrics dumps all Prometheus metrics to stderr.
func dumpMetrics() {
	mfs := must.NotFail(prometheus.DefaultGatherer.Gather())

	for _, mf := range mfs {
		must.NotFail(expfmt.MetricFamilyToText(os.Stderr, mf))
	}
}

// run sets up environment based on provided flags and runs rwrouter.
func run() {
	// to increase a chance of resource finalizers to spot problems
	if debugbuild.Enabled {
		defer func() {
			runtime.GC()
			runtime.GC()
		}()
	}

	info := version.Get()

	if cli.Version {
		fmt.Fprintln(os.Stdout, "version:", info.Version)
		fmt.Fprintln(os.Stdout, "commit:", info.Commit)
		fmt.Fprintln(os.Stdout, "branch:", info.Branch)
		fmt.Fprintln(os.Stdout, "dirty:", info.Dirty)
		fmt.Fprintln(os.Stdout, "package:", info.Package)
		fmt.Fprintln(os.Stdout, "debugBuild:", info.DebugBuild)

		return
	}

	// safe to always enable
	runtime.SetBlockProfileRate(10000)

	stateProvider := setupState()

	metricsRegisterer := setupMetrics(stateProvider)

	logger := setupLogger(stateProvider)

	if _, err := maxprocs.Set(maxprocs.Logger(logger.Sugar().Debugf)); err != nil {
		logger.Sugar().Warnf("Failed to set GOMAXPROCS: %s.", err)
	}

	shutdownOtel, err := observability.SetupOtel("rwrouter", cli.OtelEndpoint)
	if err != nil {
		logger.Sugar().Fatalf("Failed to set up OpenTelemetry: %s.", err)
	}

	ctx, stop := ctxutil.SigTerm(context.Background())

	go func() {
		<-ctx.Done()
		logger.Info("Stopping...")
		stop()
	}()

	primary, embedded, err := openPrimary(ctx, &openPrimaryParams{
		URL:      cli.Primary.URL,
		PoolSize: cli.Primary.PoolSize,
		Timeout:  cli.Primary.Timeout,
		L:        logger.Named("primary"),
	})
	if err != nil {
		logger.Sugar().Fatalf("Failed to open primary: %s.", err)
	}

	metricsRegisterer.MustRegister(primary)

	router := replication.NewRouter(&replication.NewRouterOpts{
		L: logger.Named("replication"),
	})

	metricsRegisterer.MustRegister(router)

	router.Initialize(ctx, primary, embedded)

	var wg sync.WaitGroup

	// https://github.com/alecthomas/kong/issues/389
	if cli.DebugAddr != "" && cli.DebugAddr != "-" {
		h, err := debug.Listen(&debug.ListenOpts{
			TCPAddr: cli.DebugAddr,
			L:       logger.Named("debug"),
			R:       metricsRegisterer,
			G:       prometheus.DefaultGatherer,
			Health:  healthFunc(router),
		})
		if err != nil {
			logger.Sugar().Fatalf("Failed to create debug handler: %s.", err)
		}

		wg.Add(1)

		go func() {
			defer wg.Done()
			h.Serve(ctx)
		}()
	}

	<-ctx.Done()

	wg.Wait()

	router.Close()

	if err = primary.Close(); err != nil {
		logger.Error("Failed to close primary", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err = shutdownOtel(shutdownCtx); err != nil {
		logger.Error("Failed to shut down OpenTelemetry", zap.Error(err))
	}

	if info.DebugBuild {
		dumpMetrics()
	}
}

// healthFunc returns debug handler's health function for the given router.
//
// The process is healthy when the primary is reachable; replicas only affect reported status.
func healthFunc(router *replication.Router) debug.HealthFunc {
	return func(ctx context.Context) (any, error) {
		st := router.Status()

		p := router.Primary()
		if p == nil {
			return st, fmt.Errorf("router is not initialized")
		}

		return st, p.Ping(ctx)
	}
}
