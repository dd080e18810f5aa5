package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexedwards/scs/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/config"
	"github.com/wansing/docflow/doctype"
	"github.com/wansing/docflow/eventlog"
	"github.com/wansing/docflow/lock"
	"github.com/wansing/docflow/logger"
	"github.com/wansing/docflow/metrics"
	"github.com/wansing/docflow/sqldb"
	"github.com/wansing/docflow/sqldb/mysql"
	"github.com/wansing/docflow/sqldb/sqlite3"
	"github.com/wansing/docflow/workflow"
)

// flags shared by all commands, they override the config file
var (
	configFile string
	dbArg      string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "docflow",
	Short:         "Document workflow engine with drafts, review requests and version history",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultFile, "ini configuration `file`, missing file means defaults")
	// MySQL: collation should be utf8mb4_unicode_ci
	rootCmd.PersistentFlags().StringVar(&dbArg, "db", "", "sql database url, see github.com/xo/dburl")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds everything the commands need. Close releases it.
type app struct {
	cfg      *config.Config
	log      zerolog.Logger
	db       *sqldb.DB
	auth     *auth.AuthDB
	store    *sqldb.DocumentDB
	docTypes doctype.Registry
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	events   *eventlog.Logger
	manager  *workflow.Manager
	redis    *redis.Client // nil unless lock.backend is redis
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadOptional(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database.URL = dbArg
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Lookup("listen") != nil && flags.Changed("listen") {
		cfg.Server.Listen, _ = flags.GetString("listen")
	}
	if flags.Lookup("base") != nil && flags.Changed("base") {
		cfg.Server.Base, _ = flags.GetString("base")
	}
	return cfg, cfg.Validate()
}

func newApp(cmd *cobra.Command) (*app, error) {

	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	var a = &app{
		cfg: cfg,
		log: logger.New(logger.Config{
			Level:  cfg.Log.Level,
			Pretty: cfg.Log.Pretty,
		}),
	}

	a.db, err = sqldb.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.log.Info().Str("driver", a.db.Driver).Msg("using database")

	a.auth = sqldb.NewAuthDB(a.db)
	a.store = sqldb.NewDocumentDB(a.db)

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(a.db.DB, "docflow"),
	)
	a.metrics = metrics.New(a.registry)

	a.events = eventlog.New(
		sqldb.NewEventDB(a.db),
		eventlog.Config{
			MaxEntries: cfg.EventLog.MaxEntries,
			Mode:       eventlog.Mode(cfg.EventLog.Mode),
		},
		logger.Component(a.log, "eventlog"),
		a.metrics,
	)

	a.docTypes = doctype.Builtin()
	if cfg.Documents.DocTypes != "" {
		if err := a.docTypes.LoadFile(cfg.Documents.DocTypes); err != nil {
			a.Close()
			return nil, fmt.Errorf("loading document types: %w", err)
		}
	}

	a.manager = workflow.NewManager(a.store, a.auth, a.docTypes, workflow.Config{
		Attic:     cfg.Documents.Attic,
		Retention: workflow.Retention(cfg.Documents.Retention),
	})
	a.manager.Events = a.events
	a.manager.Metrics = a.metrics
	a.manager.Log = logger.Component(a.log, "workflow")

	if cfg.Lock.Backend == "redis" {
		opts, err := redis.ParseURL(cfg.Lock.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("parsing redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(context.Background()).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to redis: %w", err)
		}
		a.manager.Locker = lock.NewRedis(a.redis, cfg.Lock.TTL, logger.Component(a.log, "lock"))
	}

	return a, nil
}

func (a *app) sessionStore() (scs.Store, error) {
	switch a.db.Driver {
	case "mysql":
		return mysql.NewSessionStore(a.db)
	case "sqlite3":
		return sqlite3.NewSessionStore(a.db)
	default:
		return nil, fmt.Errorf("unknown database backend: %s", a.db.Driver)
	}
}

func (a *app) Close() {
	if a.redis != nil {
		a.redis.Close()
	}
	a.log.Info().Msg("closing database")
	a.db.Close()
}

// user returns the user with the given name.
func (a *app) user(name string) (auth.User, error) {
	u, err := a.auth.GetUserByName(name)
	if err != nil {
		return nil, fmt.Errorf("getting user %s: %w", name, err)
	}
	return u, nil
}
