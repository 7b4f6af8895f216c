package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/lasselehtinen/elvis/pkg/elvis"
)

// newCreateRelationCmd creates a new create-relation command
func newCreateRelationCmd() *cobra.Command {
	var (
		pairs []string
		file  string
	)
	cmd := &cobra.Command{
		Use:   "create-relation TYPE ID1 ID2",
		Short: "Relate two assets",
		Long: `Relate two assets with a relation of the given type, for example
"related" or "contains". Metadata flags set relation metadata.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := LoadMetadata(file, pairs)
			if err != nil {
				return err
			}
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.CreateRelation(cmd.Context(), s, args[0], args[1], args[2], md)
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Related %s to %s\n", args[1], args[2])
			return nil
		},
	}
	addMetadataFlags(cmd, &pairs, &file)
	return cmd
}

// newRemoveRelationCmd creates a new remove-relation command
func newRemoveRelationCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-relation RELATION_ID...",
		Short: "Remove relations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.RemoveRelation(cmd.Context(), s, splitIDs(args))
			if err != nil {
				return err
			}
			return printProcessed(cmd.OutOrStdout(), "Removed", rsp)
		},
	}
}

// newLogUsageCmd creates a new log-usage command
func newLogUsageCmd() *cobra.Command {
	var extra []string
	cmd := &cobra.Command{
		Use:   "log-usage ID ACTION",
		Short: "Record a custom usage action on an asset",
		Long: `Record a custom usage action on an asset. Extra parameters are stored
as details of the usage entry.

Examples:
  elvisctl log-usage ID PRINT --param copies=3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseKeyValues(extra)
			if err != nil {
				return err
			}
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.LogUsage(cmd.Context(), s, args[0], args[1], params)
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Logged %s on %s\n", args[1], args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&extra, "param", "p", nil, "Extra parameter as name=value, repeatable")
	return cmd
}

// newQueryStatsCmd creates a new query-stats command
func newQueryStatsCmd() *cobra.Command {
	var (
		num   int
		extra []string
	)
	cmd := &cobra.Command{
		Use:   "query-stats QUERY_FILE",
		Short: "Run a statistics query on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := parseKeyValues(extra)
			if err != nil {
				return err
			}
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.QueryStats(cmd.Context(), s, args[0], num, params)
			if err != nil {
				return err
			}
			return printResponse(cmd.OutOrStdout(), rsp)
		},
	}
	cmd.Flags().IntVar(&num, "num", 0, "Maximum number of rows, 0 leaves it to the server")
	cmd.Flags().StringArrayVarP(&extra, "param", "p", nil, "Query parameter as name=value, repeatable")
	return cmd
}

// newMessagesCmd creates a new messages command
func newMessagesCmd() *cobra.Command {
	var (
		locale string
		since  int64
		bundle string
	)
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Fetch the localized message bundle",
		Long: `Fetch the localized message bundle. With --since the server answers
"not modified" when the bundle has not changed since that time.

Examples:
  elvisctl messages --locale nl_NL,en_US
  elvisctl messages --since 1700000000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.Messages(cmd.Context(), s, &elvis.MessagesOptions{
				LocaleChain:     flagValue(cmd, "locale", locale),
				IfModifiedSince: flagValue(cmd, "since", since),
				Bundle:          flagValue(cmd, "bundle", bundle),
			})
			if err != nil {
				return err
			}
			if rsp.NotModified() && outputFormat == "text" {
				warnLabel.Fprintf(cmd.OutOrStdout(), "Not modified since %s\n", time.UnixMilli(since).UTC().Format(time.RFC3339))
				return nil
			}
			return printResponse(cmd.OutOrStdout(), rsp)
		},
	}
	cmd.Flags().StringVar(&locale, "locale", "", "Comma separated locale chain, e.g. nl_NL,en_US")
	cmd.Flags().Int64Var(&since, "since", 0, "Only fetch when modified after this time, in milliseconds since the epoch")
	cmd.Flags().StringVar(&bundle, "bundle", "", "Message bundle name")
	return cmd
}
