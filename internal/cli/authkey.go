package cli

import (
	"github.com/spf13/cobra"

	"github.com/lasselehtinen/elvis/pkg/elvis"
)

type authKeyFlags struct {
	description      string
	downloadOriginal bool
	downloadPreview  bool
	requestApproval  bool
	requestUpload    bool
	containerID      string
	importFolderPath string
	notifyEmail      string
	sort             string
	viewMode         string
	thumbnailFields  []string
	listviewFields   []string
	filmstripFields  []string
}

func (f *authKeyFlags) add(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.description, "description", "", "Description shown to the recipient")
	cmd.Flags().BoolVar(&f.downloadOriginal, "download-original", false, "Allow downloading originals")
	cmd.Flags().BoolVar(&f.downloadPreview, "download-preview", false, "Allow downloading previews")
	cmd.Flags().BoolVar(&f.requestApproval, "request-approval", false, "Ask the recipient to approve the assets")
	cmd.Flags().BoolVar(&f.requestUpload, "request-upload", false, "Allow the recipient to upload")
	cmd.Flags().StringVar(&f.containerID, "container", "", "Collection receiving uploads")
	cmd.Flags().StringVar(&f.importFolderPath, "import-folder", "", "Folder receiving uploads")
	cmd.Flags().StringVar(&f.notifyEmail, "notify-email", "", "Address notified on approval or upload")
	cmd.Flags().StringVar(&f.sort, "sort", "", "Sort order of the shared assets")
	cmd.Flags().StringVar(&f.viewMode, "view-mode", elvis.DefaultViewMode, "View mode: thumbnail, list or filmstrip")
	cmd.Flags().StringSliceVar(&f.thumbnailFields, "thumbnail-fields", nil, "Fields shown in thumbnail view")
	cmd.Flags().StringSliceVar(&f.listviewFields, "listview-fields", nil, "Fields shown in list view")
	cmd.Flags().StringSliceVar(&f.filmstripFields, "filmstrip-fields", nil, "Fields shown in filmstrip view")
}

func (f *authKeyFlags) options(cmd *cobra.Command) *elvis.AuthKeyOptions {
	return &elvis.AuthKeyOptions{
		Description:      flagValue(cmd, "description", f.description),
		DownloadOriginal: flagValue(cmd, "download-original", f.downloadOriginal),
		DownloadPreview:  flagValue(cmd, "download-preview", f.downloadPreview),
		RequestApproval:  flagValue(cmd, "request-approval", f.requestApproval),
		RequestUpload:    flagValue(cmd, "request-upload", f.requestUpload),
		ContainerID:      flagValue(cmd, "container", f.containerID),
		ImportFolderPath: flagValue(cmd, "import-folder", f.importFolderPath),
		NotifyEmail:      flagValue(cmd, "notify-email", f.notifyEmail),
		Sort:             flagValue(cmd, "sort", f.sort),
		ViewMode:         flagValue(cmd, "view-mode", f.viewMode),
		ThumbnailFields:  f.thumbnailFields,
		ListviewFields:   f.listviewFields,
		FilmstripFields:  f.filmstripFields,
	}
}

// newAuthKeyCmd creates the authkey command group for shared links
func newAuthKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authkey",
		Short: "Manage shared links",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}
	cmd.AddCommand(newAuthKeyCreateCmd())
	cmd.AddCommand(newAuthKeyUpdateCmd())
	cmd.AddCommand(newAuthKeyRevokeCmd())
	return cmd
}

func newAuthKeyCreateCmd() *cobra.Command {
	var flags authKeyFlags
	cmd := &cobra.Command{
		Use:   "create SUBJECT VALID_UNTIL ID...",
		Short: "Share assets through a new link",
		Long: `Share assets through a new link valid until the given date.

Examples:
  elvisctl authkey create "Press kit" 2026-12-31 ID1 ID2 --download-preview`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.CreateAuthKey(cmd.Context(), s, args[0], args[1], splitIDs(args[2:]), flags.options(cmd))
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Created key %s\n", rsp.Get("key").String())
			return nil
		},
	}
	flags.add(cmd)
	return cmd
}

func newAuthKeyUpdateCmd() *cobra.Command {
	var flags authKeyFlags
	cmd := &cobra.Command{
		Use:   "update KEY SUBJECT VALID_UNTIL",
		Short: "Change the settings of a shared link",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.UpdateAuthKey(cmd.Context(), s, args[0], args[1], args[2], flags.options(cmd))
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Updated key %s\n", args[0])
			return nil
		},
	}
	flags.add(cmd)
	return cmd
}

func newAuthKeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke KEY...",
		Short: "Revoke shared links",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, s, err := connect()
			if err != nil {
				return err
			}
			rsp, err := c.RevokeAuthKeys(cmd.Context(), s, splitIDs(args))
			if err != nil {
				return err
			}
			if outputFormat != "text" {
				return printResponse(cmd.OutOrStdout(), rsp)
			}
			okLabel.Fprintf(cmd.OutOrStdout(), "Revoked %d key(s)\n", len(splitIDs(args)))
			return nil
		},
	}
}
