package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"crawl-core/pkg/config"
	"crawl-core/pkg/engine"
	"crawl-core/pkg/report"
)

// NewRootCmd creates the root command for crawl-core.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl-core",
		Short: "Crawl decision engine: link extraction, trap and duplicate detection, crawl analytics",
		Long:  `crawl-core takes fetched pages and decides which outbound links are worth
enqueueing. It keeps crawl-wide state to avoid traps, duplicate content and
low-value pages, and reports the longest page, word frequencies and pages per
subdomain at the end of a run.

Configuration is read from --config, or from the per-user config file if it
exists, or falls back to built-in defaults.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Path to YAML config file (default: "+config.DefaultPath()+" if present)")
	cmd.PersistentFlags().String("loglevel", "", "Log level (debug, info, warn, error); overrides log_level from config")

	cmd.AddCommand(NewReplayCmd())
	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewFetchCmd())
	cmd.AddCommand(NewValidateCmd())
	cmd.AddCommand(NewMCPServerCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command. SIGINT/SIGTERM cancel the command context,
// which closes the engine; a second signal exits immediately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		stop() // restore default handling so a second signal kills the process
	}()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger creates a logrus.Logger writing to out at the given level.
func setupLogger(level string, out io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	log.SetLevel(parsed)
	return log, nil
}

// runEnv is what every engine-backed subcommand needs
type runEnv struct {
	cfg        *config.AppConfig
	configPath string
	log        *logrus.Logger
	engine     *engine.Engine
}

// loadAndValidateConfig resolves, loads and validates the config named by
// the persistent --config flag. Warnings are returned, not logged, because
// the logger's level depends on the config.
func loadAndValidateConfig(cmd *cobra.Command) (*config.AppConfig, string, []string, error) {
	explicit, _ := cmd.Flags().GetString("config")
	path := config.ResolvePath(explicit)

	cfg, err := config.Load(path)
	if err != nil {
		return nil, path, nil, err
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, path, warnings, err
	}
	return cfg, path, warnings, nil
}

// setupRun loads config, builds the logger and creates an engine bound to the
// command context. The caller must Close the engine.
func setupRun(cmd *cobra.Command) (*runEnv, error) {
	cfg, path, warnings, err := loadAndValidateConfig(cmd)
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if flagLevel, _ := cmd.Flags().GetString("loglevel"); flagLevel != "" {
		level = flagLevel
	}
	log, err := setupLogger(level, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}

	if path != "" {
		log.Infof("Loaded configuration from %s", path)
	} else {
		log.Info("No config file found, using built-in defaults")
	}
	for _, w := range warnings {
		log.Warn(w)
	}
	logAppConfig(cfg, log)

	eng, err := engine.New(cmd.Context(), cfg, logrus.NewEntry(log))
	if err != nil {
		return nil, err
	}
	return &runEnv{cfg: cfg, configPath: path, log: log, engine: eng}, nil
}

// logAppConfig logs the effective configuration
func logAppConfig(cfg *config.AppConfig, log *logrus.Logger) {
	log.Infof("Config: Domains:%v, Workers:%d, Backend:%s",
		cfg.AllowedDomains, cfg.NumWorkers, cfg.VisitedBackend)
	log.Infof("Config Gates: TrapThreshold:%d, MinWords:%d, ExcludedExtensions:%d, DisallowedPatterns:%d",
		cfg.TrapThreshold, cfg.MinWords, len(cfg.ExcludedExtensions), len(cfg.DisallowedPathPatterns))
	log.Debugf("Config HTTP Client: Timeout:%v, MaxIdle:%d, MaxIdlePerHost:%d, UserAgent:%q, MaxBody:%d bytes",
		cfg.HTTPClientSettings.Timeout, cfg.HTTPClientSettings.MaxIdleConns, cfg.HTTPClientSettings.MaxIdleConnsPerHost,
		cfg.UserAgent, cfg.MaxBodyBytes)
}

// addOutputFlags registers the flags shared by replay and crawl
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("report", "o", "", "Write the report to this file; format from extension (.yaml, .json, .md, .db, else text)")
	cmd.Flags().String("format", report.FormatText, "Report format when writing to stdout (text, yaml, json, markdown)")
	cmd.Flags().Int("top", 0, "Number of top words in the report (default: top_words from config)")
	cmd.Flags().String("decisions", "", "Write one JSON line per processed page to this file")
	cmd.Flags().String("visited-log", "", "Write every visited URL to this file at the end of the run")
}

// finishRun writes the visited log and the report, then closes the engine.
// Both outputs are produced before Close since the visited store is released
// there.
func finishRun(cmd *cobra.Command, env *runEnv) error {
	defer env.engine.Close()

	if path, _ := cmd.Flags().GetString("visited-log"); path != "" {
		if err := env.engine.WriteVisitedLog(path); err != nil {
			env.log.Errorf("Error writing visited log: %v", err)
		}
	}

	top, _ := cmd.Flags().GetInt("top")
	r := env.engine.Report(top)

	if path, _ := cmd.Flags().GetString("report"); path != "" {
		if err := report.WriteFile(path, r); err != nil {
			return err
		}
		env.log.Infof("Report written to %s", path)
		return nil
	}
	format, _ := cmd.Flags().GetString("format")
	return report.Write(cmd.OutOrStdout(), format, r)
}
