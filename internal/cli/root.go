package cli

import (
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tradegate/internal/audit"
	"tradegate/internal/broker"
	"tradegate/internal/config"
	"tradegate/internal/enforce"
	"tradegate/internal/exec"
	"tradegate/internal/logging"
	"tradegate/internal/profile"
	"tradegate/internal/security"
	"tradegate/internal/signal"
	"tradegate/internal/store"
	"tradegate/internal/trading"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Profiles *profile.Resolver
	Audit    *audit.Logger
	Clock    *audit.StageClock
	Broker   broker.Broker
	Pipeline *trading.Pipeline
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
		Clock:  audit.NewStageClock(),
	}

	dbPath := cfg.Pipeline.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(config.DefaultConfigDir(), "tradegate.db")
	}
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some commands may be unavailable")
	} else {
		app.Store = dataStore
		app.Profiles = profile.NewResolver(dataStore, profile.DefaultVenueRegistry())
		logger.Debug().Str("path", dbPath).Msg("SQLite store initialized")
	}

	auditLogger, err := audit.NewLogger(cfg.Audit, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize audit trail")
	} else {
		app.Audit = auditLogger
	}

	if app.Store != nil && app.Audit != nil && cfg.Credentials.Generation.APIKey != "" {
		app.buildPipeline()
	}

	rootCmd := &cobra.Command{
		Use:   "tradegate",
		Short: "Tradegate - constraint-enforced AI trading signals",
		Long: `Tradegate generates AI trading signals, cross-checks them with an
independent validation model, and enforces per-account venue constraints
before any order reaches a broker.

Use 'tradegate help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tradegate)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addAnalyzeCommands(rootCmd, app)
	addProfileCommands(rootCmd, app)
	addAuditCommands(rootCmd, app)

	return rootCmd
}

// buildPipeline wires the four pipeline stages from configuration. The
// generation and validation clients are constructed separately so the
// cross-check never shares credentials or model selection with generation.
func (a *App) buildPipeline() {
	cfg := a.Config

	genClient := signal.NewOpenAIClient(signal.OpenAIClientConfig{
		APIKey:      cfg.Credentials.Generation.APIKey,
		BaseURL:     cfg.Credentials.Generation.BaseURL,
		Model:       cfg.Models.GenerationModel,
		Temperature: cfg.Models.Temperature,
		MaxTokens:   cfg.Models.MaxTokens,
	})
	valKey := cfg.Credentials.Validation.APIKey
	if valKey == "" {
		valKey = cfg.Credentials.Generation.APIKey
	}
	valClient := signal.NewOpenAIClient(signal.OpenAIClientConfig{
		APIKey:      valKey,
		BaseURL:     cfg.Credentials.Validation.BaseURL,
		Model:       cfg.Models.ValidationModel,
		Temperature: cfg.Models.Temperature,
		MaxTokens:   cfg.Models.MaxTokens,
	})

	a.Broker = broker.NewPaperBroker("paper")
	if !cfg.IsPaperMode() {
		// Live connectivity requires a venue adapter; until one is
		// configured the paper broker keeps live mode inert.
		a.Logger.Warn().Msg("Live mode requested but no venue adapter configured, using paper broker")
	}

	a.Pipeline = trading.NewPipeline(trading.PipelineDeps{
		Generator: signal.NewGenerator(genClient, a.Logger),
		Validator: signal.NewValidator(valClient, a.Logger),
		Enforcer:  enforce.NewEnforcer(a.Profiles, a.Audit, a.Clock, a.Logger),
		Executor:  exec.NewExecutor(a.Broker, a.Audit, a.Clock, cfg.Execution, a.Logger),
		Profiles:  a.Profiles,
		Store:     a.Store,
		Recorder:  a.Audit,
		Clock:     a.Clock,
		Config:    cfg.Pipeline,
		Logger:    a.Logger,
	})
}

// addCoreCommands adds version, init, and config commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Tradegate v%s\n", Version)
			}
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create configuration file templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			dir := config.DefaultConfigDir()
			if err := config.WriteTemplates(dir); err != nil {
				output.Error("Failed to write templates: %v", err)
				return err
			}
			output.Success("Configuration templates written to %s", dir)
			output.Dim("Edit credentials.toml to add your API keys.")
			return nil
		},
	})

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"pipeline":  app.Config.Pipeline,
					"execution": app.Config.Execution,
					"audit":     app.Config.Audit,
					"models":    app.Config.Models,
				})
			}
			output.Bold("Pipeline")
			output.Printf("  Model timeout:   %s\n", app.Config.Pipeline.ModelTimeout)
			output.Printf("  Signal TTL:      %s\n", app.Config.Pipeline.SignalTTL)
			output.Printf("  Model retries:   %d\n", app.Config.Pipeline.MaxModelRetries)
			output.Println()
			output.Bold("Execution")
			output.Printf("  Mode:            %s\n", app.Config.Execution.Mode)
			output.Printf("  Require SL:      %v\n", app.Config.Execution.RequireStopLoss)
			output.Printf("  Default qty:     %g\n", app.Config.Execution.DefaultQuantity)
			output.Println()
			output.Bold("Models")
			output.Printf("  Generation:      %s\n", app.Config.Models.GenerationModel)
			output.Printf("  Validation:      %s\n", app.Config.Models.ValidationModel)
			output.Printf("  Generation key:  %s\n", security.RedactKey(app.Config.Credentials.Generation.APIKey))
			output.Printf("  Validation key:  %s\n", security.RedactKey(app.Config.Credentials.Validation.APIKey))
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			NewOutput(cmd).Println(config.DefaultConfigDir())
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			output.Success("Configuration is valid")
			return nil
		},
	})
	rootCmd.AddCommand(configCmd)
}
