// Package main provides the pipeline command line, a read-only view over
// the build service and the Helix work item analytics service.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"pipeline-agent/src/azdo"
	"pipeline-agent/src/config"
	"pipeline-agent/src/helix"
	"pipeline-agent/src/logger"
	"pipeline-agent/src/provider"
	"pipeline-agent/src/query"
	"pipeline-agent/src/tui"
)

const (
	outputJSON  = "json"
	outputTable = "table"
)

var (
	// Application configuration
	appConfig *config.Config
	appLogger *logger.ConsoleLogger

	configPath   string
	organization string
	project      string
	logLevel     string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Query CI builds, test results and Helix work items",
	Long: `pipeline reads build results from Azure DevOps and distributed test
execution data from Helix, and joins the two.

Configuration is read from $XDG_CONFIG_HOME/pipeline/config.yaml (or --config)
and PIPELINE_* environment variables; flags override both.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		if flags.Changed("org") {
			cfg.Azdo.Organization = organization
		}
		if flags.Changed("project") {
			cfg.Azdo.Project = project
		}
		if flags.Changed("log-level") {
			cfg.Log.Level = logLevel
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if outputFormat != outputJSON && outputFormat != outputTable {
			return fmt.Errorf("%w: --output must be %s or %s, got %q", provider.ErrInvalidArgument, outputJSON, outputTable, outputFormat)
		}

		log, err := logger.NewConsoleLogger(cfg.Log.Level)
		if err != nil {
			return err
		}
		appConfig = cfg
		appLogger = log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if appLogger != nil {
			_ = appLogger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to the YAML config file")
	pf.StringVar(&organization, "org", "", "Azure DevOps organization (default from config)")
	pf.StringVar(&project, "project", "", "Azure DevOps project (default from config)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info or error")
	pf.StringVarP(&outputFormat, "output", "o", outputJSON, "Output format: json or table")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", provider.WrapError(err))
		os.Exit(1)
	}
}

// buildService connects to the build service only.
func buildService(ctx context.Context) (*query.Service, error) {
	builds, err := connectAzdo(ctx)
	if err != nil {
		return nil, err
	}
	return query.New(builds, nil, nil, appLogger), nil
}

// fullService connects to both backends.
func fullService(ctx context.Context) (*query.Service, error) {
	builds, err := connectAzdo(ctx)
	if err != nil {
		return nil, err
	}

	analytics, err := helix.Connect(ctx, helix.Config{
		ClusterURL: appConfig.Helix.Cluster,
		Database:   appConfig.Helix.Database,
		Logger:     appLogger,
	}, appConfig.Credentials())
	if err != nil {
		return nil, err
	}

	consoles := helix.NewConsoleFetcher(appConfig.FanOut, appLogger)
	return query.New(builds, analytics, consoles, appLogger), nil
}

func connectAzdo(ctx context.Context) (*azdo.Client, error) {
	return azdo.Connect(ctx, azdo.Config{
		BaseURL:      appConfig.Azdo.URL,
		Organization: appConfig.Azdo.Organization,
		Project:      appConfig.Azdo.Project,
		Logger:       appLogger,
		FanOut:       appConfig.FanOut,
	}, appConfig.Credentials())
}

// emit prints v as indented JSON, or as a table when --output table is set
// and a renderer is given.
func emit(v interface{}, render func(*tui.Renderer) string) error {
	if outputFormat == outputTable && render != nil {
		fmt.Println(render(tui.NewRenderer(nil)))
		return nil
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func parseID(name, value string) (int, error) {
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer, got %q", provider.ErrInvalidArgument, name, value)
	}
	if err := provider.RequirePositive(name, int64(id)); err != nil {
		return 0, err
	}
	return id, nil
}
