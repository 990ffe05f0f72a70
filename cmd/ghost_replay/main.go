package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/demoghost/replay/internal/api"
	"github.com/demoghost/replay/internal/cache"
	"github.com/demoghost/replay/internal/config"
	"github.com/demoghost/replay/internal/database"
	"github.com/demoghost/replay/internal/dispatcher"
	"github.com/demoghost/replay/internal/influx"
	"github.com/demoghost/replay/internal/logging"
	"github.com/demoghost/replay/internal/monitor"
	intOtel "github.com/demoghost/replay/internal/otel"
	"github.com/demoghost/replay/internal/session"
	"github.com/demoghost/replay/internal/storage"
	"github.com/demoghost/replay/internal/stream"
	"github.com/demoghost/replay/internal/worker"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	ServiceName string = "ghost_replay"
)

// file paths
var (
	// WorkDir is the directory the tool was started from. The config file
	// is read from here.
	WorkDir string

	LogFilePath string
	LogFile     *os.File
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	// TrackCache holds reconstructed tracks by name so action commands can
	// reuse them without a storage round trip
	TrackCache *cache.TrackCache = cache.NewTrackCache()

	// RecordCache maps track names to their storage record IDs
	RecordCache *cache.RecordCache = cache.NewRecordCache()

	// Session holds the most recently reconstructed track, the implicit
	// target of action commands invoked without a track name
	Session *session.Context = session.NewContext()

	// Counters of reconstruction outcomes, sampled by the monitor
	Processed *cache.SafeCounter = &cache.SafeCounter{}
	Failed    *cache.SafeCounter = &cache.SafeCounter{}

	SessionStartTime time.Time = time.Now()

	// Services
	workerManager   *worker.Manager
	monitorService  *monitor.Service
	eventDispatcher *dispatcher.Dispatcher
	influxManager   *influx.Manager
	apiClient       *api.Client
	streamer        *stream.Streamer

	// Storage backend
	storageBackend storage.Backend
)

// setup wires config, logging and telemetry, then starts the services.
// It must complete before any command is dispatched.
func setup() {
	var err error

	WorkDir, err = os.Getwd()
	if err != nil {
		WorkDir = "."
	}

	// Initialize slog manager; logs go to the console until the session
	// log file exists
	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(nil, nil, viper.GetString("logLevel"), nil)
	Logger = SlogManager.Logger()

	// load config
	err = loadConfig()
	if err != nil {
		Logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		Logger.Info("Loaded config")
	}

	// create logs dir if it doesn't exist
	if _, err := os.Stat(viper.GetString("logsDir")); os.IsNotExist(err) {
		os.Mkdir(viper.GetString("logsDir"), 0755)
	}

	LogFilePath = logging.LogFilePath(viper.GetString("logsDir"), ServiceName, SessionStartTime)

	// check if LogFilePath exists
	// if it does, move it to LogFilePath.old
	// if it doesn't, create it
	if _, err := os.Stat(LogFilePath); err == nil {
		os.Rename(LogFilePath, LogFilePath+".old")
	}

	LogFile, err = os.OpenFile(LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		Logger.Error("Failed to create/open log file!", "error", err, "path", LogFilePath)
	}

	Logger.Info("Begin logging in logs directory", "path", LogFilePath)

	// Connect to Graylog if enabled
	var gelfWriter io.Writer
	if viper.GetBool("graylog.enabled") {
		gelfWriter, err = logging.NewGelfWriter(viper.GetString("graylog.address"))
		if err != nil {
			Logger.Warn("Failed to connect to Graylog", "error", err)
		}
	}

	// A failed open leaves LogFile as a typed nil; handlers must only ever
	// see a nil interface or a usable writer.
	var logSink io.Writer
	if LogFile != nil {
		logSink = LogFile
	}

	// Initialize OTel provider if enabled (after log file is created)
	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		OTelProvider, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logSink,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			Logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			if otelCfg.Endpoint != "" {
				Logger.Info("OTel provider initialized", "file", LogFilePath, "endpoint", otelCfg.Endpoint)
			} else {
				Logger.Info("OTel provider initialized", "file", LogFilePath)
			}
		}
	}

	// Re-setup logging with file output, Graylog and optional OTel
	var otelLogProvider *sdklog.LoggerProvider
	if OTelProvider != nil {
		otelLogProvider = OTelProvider.LoggerProvider()
	}
	SlogManager.Setup(logSink, gelfWriter, viper.GetString("logLevel"), otelLogProvider)
	Logger = SlogManager.Logger()
	Logger.Info("Logging to file", "path", LogFilePath)

	// Stamp every record with the pipeline state. The closure nil-checks
	// because services come up after logging does.
	SlogManager.Context = func() []slog.Attr {
		attrs := []slog.Attr{slog.Int("processed", Processed.Value())}
		if Session.Loaded() {
			attrs = append(attrs, slog.String("track", Session.GetTrack().Name))
		}
		if monitorService != nil && monitorService.IsRunning() {
			attrs = append(attrs, slog.Bool("monitoring", true))
		}
		return attrs
	}

	startServices()

	// log frontend status
	checkServerStatus()
}

func loadConfig() (err error) {
	return config.Load(WorkDir)
}

// startServices builds the processing pipeline: metrics, storage,
// dispatcher, worker handlers and the runtime monitor.
func startServices() {
	var err error

	// zerolog output lands in the session log file next to the slog lines
	zlogSink := io.Writer(os.Stdout)
	if LogFile != nil {
		zlogSink = LogFile
	}
	zlog := zerolog.New(zlogSink).With().Timestamp().Logger()

	// InfluxDB manager; an unreachable server falls back to a gzip backup
	// file inside Connect
	if viper.GetBool("influx.enabled") {
		backupPath := filepath.Join(viper.GetString("logsDir"), "influx_backup.lp.gz")
		influxManager = influx.NewManager(zlog, backupPath)
		if err = influxManager.Connect(); err != nil {
			Logger.Warn("InfluxDB metrics disabled", "error", err)
			influxManager = nil
		}
	}

	// Storage backend
	storageCfg := config.GetStorageConfig()
	storageBackend, err = storage.NewBackend(storageCfg, Logger)
	if err != nil {
		fatal("Failed to create storage backend", err)
	}
	if err = storageBackend.Init(); err != nil {
		fatal("Failed to initialize storage backend", err)
	}
	Logger.Info("Storage backend initialized", "type", storageCfg.Type)

	// Local track databases dumped by earlier runs that never reached
	// Postgres
	if storageCfg.Type == "postgres" {
		dbPaths, err := database.GetBackupDBPaths(filepath.Dir(storageCfg.SQLite.Path))
		if err == nil && len(dbPaths) > 0 {
			Logger.Info("Found local track databases from earlier runs", "count", len(dbPaths), "paths", dbPaths)
		}
	}

	// Sharing server client and track streamer. Both are cheap to build;
	// the streamer only dials when the stream command connects it.
	apiClient = api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))

	streamCfg := config.GetStreamConfig()
	streamer = stream.New(stream.Config{
		URL:        streamCfg.ServerURL,
		APIKey:     viper.GetString("api.apiKey"),
		BatchSize:  streamCfg.BatchSize,
		Reconnects: streamCfg.Reconnects,
		Backoff:    streamCfg.Backoff,
	}, Logger)

	// Dispatcher and worker handlers
	dispatcherLogger := logging.NewDispatcherLogger(zlog)
	eventDispatcher, err = dispatcher.New(dispatcherLogger)
	if err != nil {
		fatal("Failed to create dispatcher", err)
	}

	workerManager = worker.NewManager(worker.Dependencies{
		TrackCache:  TrackCache,
		RecordCache: RecordCache,
		LogManager:  SlogManager,
		Session:     Session,
		Influx:      influxManager,
		API:         apiClient,
		Streamer:    streamer,
		Processed:   Processed,
		Failed:      Failed,
	}, storageBackend)
	workerManager.RegisterHandlers(eventDispatcher)
	Logger.Info("Worker handlers registered with dispatcher")

	// Monitor service
	monitorService = monitor.NewService(monitor.Dependencies{
		Influx:     influxManager,
		LogManager: SlogManager,
		Session:    Session,
		Processed:  Processed,
		Failed:     Failed,
	})
	if !monitorService.IsRunning() {
		Logger.Debug("Status process not running, starting it")
		if err = monitorService.Start(); err != nil {
			Logger.Error("Failed to start monitor service", "error", err)
		}
	}
}

// checkServerStatus logs whether the replay frontend is reachable.
func checkServerStatus() {
	err := apiClient.Healthcheck()
	if err != nil {
		Logger.Info("Replay frontend is offline")
	} else {
		Logger.Info("Replay frontend is online")
	}
}

// shutdown flushes and closes every service that buffers. Services that
// were never constructed are skipped, so it is safe after a partial setup.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if monitorService != nil {
		monitorService.Stop()
	}
	if influxManager != nil {
		influxManager.Flush()
		influxManager.Close()
	}
	if storageBackend != nil {
		if err := storageBackend.Close(); err != nil {
			Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if SlogManager != nil {
		if err := SlogManager.Flush(ctx); err != nil {
			Logger.Error("Failed to flush logs", "error", err)
		}
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Error("Failed to shut down OTel provider", "error", err)
		}
	}
	if LogFile != nil {
		LogFile.Close()
	}
}
