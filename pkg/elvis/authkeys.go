package elvis

import (
	"context"

	"github.com/lasselehtinen/elvis/pkg/types"
)

// DefaultViewMode is the view mode of a shared link unless set otherwise.
const DefaultViewMode = "thumbnail"

// AuthKeyOptions holds the optional settings of a shared link. Unset flags
// are sent as false; unset strings, lists and zoom levels are not sent.
type AuthKeyOptions struct {
	Description        types.Nullable[string]
	DownloadOriginal   types.Nullable[bool]
	DownloadPreview    types.Nullable[bool]
	RequestApproval    types.Nullable[bool]
	RequestUpload      types.Nullable[bool]
	ContainerID        types.Nullable[string]
	ImportFolderPath   types.Nullable[string]
	NotifyEmail        types.Nullable[string]
	Sort               types.Nullable[string]
	ViewMode           types.Nullable[string] // DefaultViewMode
	ThumbnailFields    []string
	ListviewFields     []string
	FilmstripFields    []string
	ThumbnailZoomLevel types.Nullable[int]
	ListviewZoomLevel  types.Nullable[int]
	FilmstripZoomLevel types.Nullable[int]
}

func (o *AuthKeyOptions) apply(params *Params) *Params {
	if o == nil {
		o = &AuthKeyOptions{}
	}
	return params.
		Set("description", o.Description).
		Set("downloadOriginal", o.DownloadOriginal.ValueOr(false)).
		Set("downloadPreview", o.DownloadPreview.ValueOr(false)).
		Set("requestApproval", o.RequestApproval.ValueOr(false)).
		Set("requestUpload", o.RequestUpload.ValueOr(false)).
		Set("containerId", o.ContainerID).
		Set("importFolderPath", o.ImportFolderPath).
		Set("notifyEmail", o.NotifyEmail).
		Set("sort", o.Sort).
		Set("viewMode", o.ViewMode.ValueOr(DefaultViewMode)).
		Set("thumbnailFields", o.ThumbnailFields).
		Set("listviewFields", o.ListviewFields).
		Set("filmstripFields", o.FilmstripFields).
		Set("thumbnailZoomLevel", o.ThumbnailZoomLevel).
		Set("listviewZoomLevel", o.ListviewZoomLevel).
		Set("filmstripZoomLevel", o.FilmstripZoomLevel)
}

// CreateAuthKey creates a shared link to assetIDs for subject, valid until
// validUntil (a date such as 2026-12-31).
func (c *Client) CreateAuthKey(ctx context.Context, s *Session, subject, validUntil string, assetIDs []string, opts *AuthKeyOptions) (*Response, error) {
	if err := checkArg("subject", subject, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("validUntil", validUntil, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("assetIds", assetIDs, "min=1,dive,required"); err != nil {
		return nil, err
	}
	params := NewParams().
		Set("subject", subject).
		Set("validUntil", validUntil).
		Set("assetIds", assetIDs)
	return c.Query(ctx, s, EndpointCreateAuthKey, opts.apply(params), nil, "")
}

// UpdateAuthKey changes the settings of an existing shared link.
func (c *Client) UpdateAuthKey(ctx context.Context, s *Session, key, subject, validUntil string, opts *AuthKeyOptions) (*Response, error) {
	if err := checkArg("key", key, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("subject", subject, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("validUntil", validUntil, "required"); err != nil {
		return nil, err
	}
	params := NewParams().
		Set("key", key).
		Set("subject", subject).
		Set("validUntil", validUntil)
	return c.Query(ctx, s, EndpointUpdateAuthKey, opts.apply(params), nil, "")
}

// RevokeAuthKeys revokes the given shared links.
func (c *Client) RevokeAuthKeys(ctx context.Context, s *Session, keys []string) (*Response, error) {
	if err := checkArg("keys", keys, "min=1,dive,required"); err != nil {
		return nil, err
	}
	return c.Query(ctx, s, EndpointRevokeAuthKeys, NewParams().Set("keys", keys), nil, "")
}
