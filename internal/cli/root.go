package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/imageviewer/internal/domain/session"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/config"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/imageviewer/internal/infrastructure/notify"
	"github.com/GriffinCanCode/imageviewer/internal/providers/flatten"
	"github.com/GriffinCanCode/imageviewer/internal/providers/storage"
)

// app carries what every command shares
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	metrics *monitoring.Metrics
	kv      storage.KV
	api     *session.API

	verbose bool
	local   bool
	stats   bool
	dbPath  string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "viewer",
		Short: "Arrange images into named viewer sessions",
		Long: `Viewer keeps ordered image lists with per-image zoom, pan and rotation
in named sessions.

Sessions are stored in a local database by default. After "viewer login"
they are kept on a sync service instead, with images uploaded to it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env is optional
			_ = godotenv.Load()
			return a.configure()
		},
	}

	flags := cmd.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Log at debug level")
	flags.BoolVar(&a.local, "local", false, "Use the local store even when sync credentials exist")
	flags.BoolVar(&a.stats, "stats", false, "Print operation counts when done")
	flags.StringVar(&a.dbPath, "db", "", "Local database file (overrides VIEWER_DB)")

	cmd.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newNewCmd(a),
		newAddCmd(a),
		newRenameCmd(a),
		newRemoveCmd(a),
		newOpCmd(a),
		newExportCmd(a),
		newImportCmd(a),
		newFlattenCmd(a),
		newCompileCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
	)
	return cmd
}

func (a *app) configure() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Sync.CredentialsFile == "" {
		path := defaultCredentialsPath()
		creds, err := config.LoadCredentials(path)
		switch {
		case err == nil:
			cfg.MergeCredentials(creds)
		case !errors.Is(err, fs.ErrNotExist):
			return err
		}
	}
	if a.dbPath != "" {
		cfg.Store.Path = a.dbPath
	}
	if a.local {
		cfg.Sync.URL = ""
	}

	logCfg := logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	}
	if a.verbose {
		logCfg.Level = "debug"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}

	a.cfg = cfg
	a.log = logger
	a.metrics = monitoring.NewMetrics()
	return nil
}

// credentialsPath is where login writes and configure reads credentials
func (a *app) credentialsPath() string {
	if a.cfg != nil && a.cfg.Sync.CredentialsFile != "" {
		return a.cfg.Sync.CredentialsFile
	}
	return defaultCredentialsPath()
}

func defaultCredentialsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "imageviewer", "credentials.yaml")
}

// open connects the session API the configuration asks for
func (a *app) open(ctx context.Context) (*session.API, error) {
	opts := session.Options{
		Timeout:    a.cfg.Sync.Timeout,
		UploadRate: a.cfg.Upload.RatePerSecond,
		StoreKey:   a.cfg.Store.Key,
		Notifier:   notify.NewLog(a.log),
		Logger:     a.log,
		Metrics:    a.metrics,
	}
	if a.cfg.Flatten.Command != "" {
		runner := flatten.NewCommand(a.cfg.Flatten.Command)
		runner.Logger = a.log.Named("flatten")
		opts.Runner = runner
	}

	if a.cfg.Sync.Remote() {
		opts.Remote = &session.Credentials{URL: a.cfg.Sync.URL, Password: a.cfg.Sync.Password}
	} else {
		kv, err := storage.Open(ctx, storage.Options{
			Backend:     storage.Backend(a.cfg.Store.Backend),
			Path:        a.cfg.Store.Path,
			RedisAddr:   a.cfg.Store.RedisAddr,
			RedisPrefix: a.cfg.Store.RedisPrefix,
			Timeout:     a.cfg.Sync.Timeout,
		})
		if err != nil {
			return nil, err
		}
		a.kv = kv
		opts.KV = kv
	}

	api, err := session.Open(ctx, opts)
	if err != nil {
		a.close()
		return nil, err
	}
	a.api = api
	return api, nil
}

func (a *app) close() {
	if a.api != nil {
		if err := a.api.Close(); err != nil {
			a.log.Warn("closing session API", zap.Error(err))
		}
		a.api = nil
	}
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			a.log.Warn("closing store", zap.Error(err))
		}
		a.kv = nil
	}
	if a.log != nil {
		a.log.Sync()
	}
}

type apiFunc func(cmd *cobra.Command, args []string, api *session.API) error

// withAPI opens the API around fn
func (a *app) withAPI(fn apiFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		api, err := a.open(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		err = fn(cmd, args, api)
		if a.stats {
			a.printStats(cmd)
		}
		return err
	}
}

func (a *app) printStats(cmd *cobra.Command) {
	summary, err := a.metrics.Summary()
	if err != nil {
		a.log.Warn("collecting stats", zap.Error(err))
		return
	}
	w := tabwriter.NewWriter(cmd.ErrOrStderr(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPERATION\tOK\tFAILED")
	for _, s := range summary {
		fmt.Fprintf(w, "%s\t%d\t%d\n", s.Op, s.Successes, s.Failures)
	}
	_ = w.Flush()
}

func parseIndex(arg string) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", arg)
	}
	return i, nil
}
