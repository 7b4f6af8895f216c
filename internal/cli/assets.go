package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lasselehtinen/elvis/pkg/elvis"
	"github.com/lasselehtinen/elvis/pkg/types"
)

// flagValue returns v when the flag was given on the command line, unset
// otherwise, so server side defaults stay in charge.
func flagValue[T any](cmd *cobra.Command, name string, v T) types.Nullable[T] {
	if cmd.Flags().Changed(name) {
		return types.NullableFrom(v)
	}
	return types.Null[T]()
}

func splitIDs(args []string) []string {
	var ids []string
	for _, a := range args {
		for _, id := range strings.Split(a, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// newSearchCmd creates a new search command
func newSearchCmd() *cobra.Command {
	var (
		start, num int
		sort       string
		fields     string
		secret     bool
		facets     []string
		selection  []string
		columns    []string
	)
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search assets",
		Long: `Search assets with an Elvis query such as 'tags:summer' or '*:*'.

Examples:
  elvisctl search '*:*' --num 10 --sort name
  elvisctl search 'assetDomain:image' --facets tags --facet tags=beach,sun`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			sel, err := parseFacetSelection(selection)
			if err != nil {
				return err
			}
			opts := &elvis.SearchOptions{
				Start:               flagValue(cmd, "start", start),
				Num:                 flagValue(cmd, "num", num),
				Sort:                flagValue(cmd, "sort", sort),
				MetadataToReturn:    flagValue(cmd, "fields", fields),
				AppendRequestSecret: flagValue(cmd, "secret", secret),
				Facets:              facets,
				FacetSelection:      sel,
			}
			rsp, err := c.Search(cmd.Context(), s, args[0], opts)
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			var sr elvis.SearchResult
			if err := rsp.Decode(&sr); err != nil {
				return err
			}
			printSearchResult(cmd.OutOrStdout(), &sr, columns)
			return nil
		},
	}
	cmd.Flags().IntVar(&start, "start", 0, "Index of the first hit")
	cmd.Flags().IntVar(&num, "num", elvis.DefaultSearchNum, "Maximum number of hits")
	cmd.Flags().StringVar(&sort, "sort", elvis.DefaultSearchSort, "Sort field, append -desc for descending")
	cmd.Flags().StringVar(&fields, "fields", elvis.DefaultMetadataToReturn, "Comma separated metadata fields to return")
	cmd.Flags().BoolVar(&secret, "secret", false, "Append a request secret to file URLs")
	cmd.Flags().StringSliceVar(&facets, "facets", nil, "Facets to count")
	cmd.Flags().StringArrayVar(&selection, "facet", nil, "Facet selection as facet=value[,value], repeatable")
	cmd.Flags().StringSliceVar(&columns, "columns", []string{"filename", "assetPath"}, "Metadata fields shown in text output")
	return cmd
}

// newBrowseCmd creates a new browse command
func newBrowseCmd() *cobra.Command {
	var (
		fromRoot   string
		noFolders  bool
		noAssets   bool
		extensions string
	)
	cmd := &cobra.Command{
		Use:   "browse PATH",
		Short: "List the folders and containers below a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			opts := &elvis.BrowseOptions{
				FromRoot:          flagValue(cmd, "from-root", fromRoot),
				IncludeFolders:    flagValue(cmd, "no-folders", !noFolders),
				IncludeAsset:      flagValue(cmd, "no-assets", !noAssets),
				IncludeExtensions: flagValue(cmd, "extensions", extensions),
			}
			rsp, err := c.Browse(cmd.Context(), s, args[0], opts)
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			var entries []elvis.BrowseEntry
			if err := rsp.Decode(&entries); err != nil {
				return err
			}
			printBrowse(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&fromRoot, "from-root", "", "Return the tree from this root down to PATH")
	cmd.Flags().BoolVar(&noFolders, "no-folders", false, "Leave out folders")
	cmd.Flags().BoolVar(&noAssets, "no-assets", false, "Leave out assets")
	cmd.Flags().StringVar(&extensions, "extensions", elvis.DefaultIncludeExtensions, "Container extensions to include")
	return cmd
}

func addMetadataFlags(cmd *cobra.Command, pairs *[]string, file *string) {
	cmd.Flags().StringArrayVarP(pairs, "metadata", "m", nil, "Metadata as field=value, repeatable")
	cmd.Flags().StringVarP(file, "metadata-file", "f", "", "YAML file with metadata, {{ .ENV.VAR }} placeholders are expanded")
}

func printAsset(cmd *cobra.Command, verb, id string, rsp *elvis.Response) error {
	if outputFormat != "text" {
		return printResponse(cmd.OutOrStdout(), rsp)
	}
	var a elvis.Asset
	if err := rsp.Decode(&a); err != nil {
		return err
	}
	if a.ID != "" {
		id = a.ID
	}
	okLabel.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, id)
	return nil
}

// newCreateCmd creates a new create command
func newCreateCmd() *cobra.Command {
	var (
		pairs []string
		file  string
	)
	cmd := &cobra.Command{
		Use:   "create FILE",
		Short: "Upload a file as a new asset",
		Long: `Upload a file as a new asset. The target folder and name come from the
assetPath metadata field.

Examples:
  elvisctl create photo.jpg -m assetPath=/Demo/photo.jpg -m tags=beach`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := LoadMetadata(file, pairs)
			if err != nil {
				return err
			}
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.Create(cmd.Context(), s, args[0], md)
			if err != nil {
				return err
			}
			return printAsset(cmd, "Created", "", rsp)
		},
	}
	addMetadataFlags(cmd, &pairs, &file)
	return cmd
}

// newUpdateCmd creates a new update command
func newUpdateCmd() *cobra.Command {
	var (
		pairs  []string
		file   string
		upload string
	)
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update the metadata and optionally the file of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := LoadMetadata(file, pairs)
			if err != nil {
				return err
			}
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.Update(cmd.Context(), s, args[0], upload, md)
			if err != nil {
				return err
			}
			return printAsset(cmd, "Updated", args[0], rsp)
		},
	}
	addMetadataFlags(cmd, &pairs, &file)
	cmd.Flags().StringVar(&upload, "file", "", "Replace the asset's file with this one")
	return cmd
}

// newUpdateBulkCmd creates a new updatebulk command
func newUpdateBulkCmd() *cobra.Command {
	var (
		pairs []string
		file  string
		async bool
	)
	cmd := &cobra.Command{
		Use:   "updatebulk QUERY",
		Short: "Apply metadata to every asset matching a query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			md, err := LoadMetadata(file, pairs)
			if err != nil {
				return err
			}
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.UpdateBulk(cmd.Context(), s, args[0], md, async)
			if err != nil {
				return err
			}
			return printProcessed(cmd.OutOrStdout(), "Updated", rsp)
		},
	}
	addMetadataFlags(cmd, &pairs, &file)
	cmd.Flags().BoolVar(&async, "async", false, "Return before the server finishes")
	return cmd
}

type transferFlags struct {
	folderPolicy string
	filePolicy   string
	filter       string
	flatten      bool
	async        bool
}

func (f *transferFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.folderPolicy, "folder-policy", elvis.ReplacePolicyAutoRename, "Folder conflict policy: AUTO_RENAME, MERGE, REPLACE or THROW_EXCEPTION")
	cmd.Flags().StringVar(&f.filePolicy, "file-policy", elvis.ReplacePolicyAutoRename, "File conflict policy: AUTO_RENAME, OVERWRITE, OVERWRITE_IF_NEWER, REMOVE_SOURCE, THROW_EXCEPTION or DO_NOTHING")
	cmd.Flags().StringVar(&f.filter, "filter", "*:*", "Only transfer assets matching this query")
	cmd.Flags().BoolVar(&f.flatten, "flatten", false, "Flatten the folder structure")
	cmd.Flags().BoolVar(&f.async, "async", false, "Return before the server finishes")
}

func (f *transferFlags) options(cmd *cobra.Command) *elvis.TransferOptions {
	return &elvis.TransferOptions{
		FolderReplacePolicy: flagValue(cmd, "folder-policy", f.folderPolicy),
		FileReplacePolicy:   flagValue(cmd, "file-policy", f.filePolicy),
		FilterQuery:         flagValue(cmd, "filter", f.filter),
		FlattenFolders:      flagValue(cmd, "flatten", f.flatten),
		Async:               flagValue(cmd, "async", f.async),
	}
}

// newMoveCmd creates a new move command
func newMoveCmd() *cobra.Command {
	var flags transferFlags
	cmd := &cobra.Command{
		Use:   "move SOURCE TARGET",
		Short: "Move or rename a file or folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.Move(cmd.Context(), s, args[0], args[1], flags.options(cmd))
			if err != nil {
				return err
			}
			return printProcessed(cmd.OutOrStdout(), "Moved", rsp)
		},
	}
	flags.add(cmd)
	return cmd
}

// newCopyCmd creates a new copy command
func newCopyCmd() *cobra.Command {
	var flags transferFlags
	cmd := &cobra.Command{
		Use:   "copy SOURCE TARGET",
		Short: "Copy a file or folder",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.Copy(cmd.Context(), s, args[0], args[1], flags.options(cmd))
			if err != nil {
				return err
			}
			return printProcessed(cmd.OutOrStdout(), "Copied", rsp)
		},
	}
	flags.add(cmd)
	return cmd
}

// newRemoveCmd creates a new remove command
func newRemoveCmd() *cobra.Command {
	var opts elvis.RemoveOptions
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove assets or a folder",
		Long: `Remove the assets matching a query, a list of asset ids or a folder.

Examples:
  elvisctl remove --ids ID1,ID2
  elvisctl remove --folder /Demo/Old`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			opts.IDs = splitIDs(opts.IDs)
			rsp, err := c.Remove(cmd.Context(), s, opts)
			if err != nil {
				return err
			}
			return printProcessed(cmd.OutOrStdout(), "Removed", rsp)
		},
	}
	cmd.Flags().StringVarP(&opts.Query, "query", "q", "", "Remove the assets matching this query")
	cmd.Flags().StringSliceVar(&opts.IDs, "ids", nil, "Asset ids to remove")
	cmd.Flags().StringVar(&opts.FolderPath, "folder", "", "Folder to remove with its contents")
	cmd.Flags().BoolVar(&opts.Async, "async", false, "Return before the server finishes")
	return cmd
}

// newCreateFolderCmd creates a new create-folder command
func newCreateFolderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-folder PATH",
		Short: "Create a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.CreateFolder(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			status := rsp.Get(escapePath(args[0])).String()
			okLabel.Fprintf(cmd.OutOrStdout(), "%s: %s\n", args[0], status)
			return nil
		},
	}
}

// escapePath quotes the characters gjson treats as path syntax.
func escapePath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`)
	return r.Replace(key)
}

// newCheckoutCmd creates a new checkout command
func newCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "checkout ID",
		Short: "Check out an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.Checkout(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Checked out %s\n", args[0])
			return nil
		},
	}
}

// newUndoCheckoutCmd creates a new undo-checkout command
func newUndoCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo-checkout ID",
		Short: "Release a checked out asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.UndoCheckout(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Released %s\n", args[0])
			return nil
		},
	}
}

// newZipCmd creates a new zip command
func newZipCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "zip FILENAME ID...",
		Short: "Download assets as one zip archive",
		Long: `Download assets as one zip archive. The archive is saved under a random
name in the configured zip directory and its path is printed.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if kind != elvis.DownloadOriginal && kind != elvis.DownloadPreview {
				return fmt.Errorf("unsupported download kind %q, use %s or %s", kind, elvis.DownloadOriginal, elvis.DownloadPreview)
			}
			c, s, err := connect()
			if err != nil {
				return err
			}
			result, err := c.Zip(cmd.Context(), s, args[0], kind, splitIDs(args[1:]))
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				printValue(cmd.OutOrStdout(), result)
				return nil
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Saved %s\n", result.FileName)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", elvis.DownloadOriginal, "Download kind: original or preview")
	return cmd
}
