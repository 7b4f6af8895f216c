// Package cli implements elvisctl, a command line client for the Elvis DAM
// REST API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lasselehtinen/elvis/internal/common/httpclient"
	"github.com/lasselehtinen/elvis/internal/common/logtrace"
	"github.com/lasselehtinen/elvis/internal/config"
	"github.com/lasselehtinen/elvis/pkg/elvis"
)

var (
	// Global flags
	jsonOutput   bool
	outputFormat string
	configFile   string
	stateFile    string
	logLevel     string

	// loaded by preRunHandlePersistents
	cfg *config.Config
)

// newHTTPClient replaces the transport of every client the commands create.
// Nil selects the real HTTP client.
var newHTTPClient func(elvis.Config) (httpclient.HTTPClientInterface, error)

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)
var warnLabel = color.New(color.FgYellow)

// newRootCmd builds the command tree. Global flag values are reset on every
// call.
func newRootCmd() *cobra.Command {
	jsonOutput, outputFormat, configFile, stateFile, logLevel = false, "text", "", "", ""
	cfg = nil

	rootCmd := &cobra.Command{
		Use:   "elvisctl [command] [flags]",
		Short: "elvisctl - A command line client for the Elvis DAM REST API",
		Long: `elvisctl is a command line client for the Elvis DAM REST API.
It logs in once, keeps the session in a state file and lets you search,
upload, move and share assets from the shell.

Connection settings are read from a TOML file, a .env file in the working
directory and ELVIS_* environment variables, later sources winning.

Examples:
  # Log in with the configured credentials
  elvisctl login

  # Search with facets
  elvisctl search 'assetDomain:image' --facets tags --facet tags=summer

  # Upload a file with metadata
  elvisctl create photo.jpg --metadata gtin=123 --metadata-file meta.yaml

  # Download assets as one archive
  elvisctl zip photos.zip ID1 ID2`,
		PersistentPreRunE: preRunHandlePersistents,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().StringVarP(&stateFile, "state", "", "", "Path to session state file to override default")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "", "", "Log level, overrides the configured one")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newProfileCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newBrowseCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newUpdateBulkCmd())
	rootCmd.AddCommand(newMoveCmd())
	rootCmd.AddCommand(newCopyCmd())
	rootCmd.AddCommand(newRemoveCmd())
	rootCmd.AddCommand(newCreateFolderCmd())
	rootCmd.AddCommand(newCheckoutCmd())
	rootCmd.AddCommand(newUndoCheckoutCmd())
	rootCmd.AddCommand(newZipCmd())
	rootCmd.AddCommand(newCreateRelationCmd())
	rootCmd.AddCommand(newRemoveRelationCmd())
	rootCmd.AddCommand(newLogUsageCmd())
	rootCmd.AddCommand(newQueryStatsCmd())
	rootCmd.AddCommand(newMessagesCmd())
	rootCmd.AddCommand(newAuthKeyCmd())

	return rootCmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). Cancelling ctx aborts the running call.
func Execute(ctx context.Context) {
	rootCmd := newRootCmd()
	rootCmd.SilenceErrors = true // Prevent Cobra from printing the error
	rootCmd.SilenceUsage = true  // Prevent Cobra from printing usage on error

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		if outputFormat == "json" {
			kv := map[string]string{
				"error": err.Error(),
			}
			printJSON(os.Stdout, kv)
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents resolves the output format, loads the connection
// settings and sets up logging before command execution.
func preRunHandlePersistents(cmd *cobra.Command, args []string) error {
	if jsonOutput {
		outputFormat = "json"
	}
	switch outputFormat {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format %q, use text, json or yaml", outputFormat)
	}

	if isLocalCommand(cmd) {
		return nil
	}

	if configFile == "" {
		if p, err := config.DefaultConfigPath(); err == nil {
			if _, err := os.Stat(p); err == nil {
				configFile = p
			}
		}
	}
	var err error
	cfg, err = config.LoadConfig(configFile)
	if err != nil {
		return err
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logtrace.InitLogger(level, true)

	if stateFile == "" {
		stateFile, err = GetDefaultStatePath()
		if err != nil {
			return err
		}
	}
	return nil
}

// isLocalCommand reports commands that never talk to the server.
func isLocalCommand(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "version" || c.Name() == "help" {
			return true
		}
	}
	return false
}

// newClient creates a client for the loaded configuration.
func newClient() (*elvis.Client, error) {
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	cc := cfg.ClientConfig()
	var opts []elvis.Option
	if newHTTPClient != nil {
		hc, err := newHTTPClient(cc)
		if err != nil {
			return nil, err
		}
		opts = append(opts, elvis.WithHTTPClient(hc))
	}
	return elvis.New(cc, opts...)
}

// connect creates a client and restores the saved session.
func connect() (*elvis.Client, *elvis.Session, error) {
	c, err := newClient()
	if err != nil {
		return nil, nil, err
	}
	st, err := LoadState(stateFile)
	if err != nil {
		return nil, nil, err
	}
	s, err := st.Session(c.Config().APIEndpointURI)
	if err != nil {
		return nil, nil, err
	}
	return c, s, nil
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of elvisctl",
		Run: func(cmd *cobra.Command, args []string) {
			configPath, err := config.DefaultConfigPath()
			if err != nil {
				configPath = "unknown"
			}

			if outputFormat != "text" {
				kv := map[string]string{
					"version":     elvis.Version.String(),
					"user_agent":  elvis.UserAgent(),
					"config_file": configPath,
				}
				printValue(cmd.OutOrStdout(), kv)
			} else {
				cmd.Printf("elvisctl %s\n", elvis.Version)
				cmd.Printf("Config file: %s\n", configPath)
			}
		},
	}
}
