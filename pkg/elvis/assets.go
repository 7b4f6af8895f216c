package elvis

import (
	"context"

	"github.com/lasselehtinen/elvis/pkg/types"
)

// Defaults applied when an option is left unset.
const (
	DefaultSearchNum         = 50
	DefaultSearchSort        = "assetCreated-desc"
	DefaultMetadataToReturn  = "all"
	DefaultIncludeExtensions = ".collection, .dossier, .task"
	ReplacePolicyAutoRename  = "AUTO_RENAME"
	matchAllQuery            = "*:*"
)

// SearchOptions refines a search. Unset fields take the defaults listed.
type SearchOptions struct {
	Start               types.Nullable[int]    // 0
	Num                 types.Nullable[int]    // DefaultSearchNum
	Sort                types.Nullable[string] // DefaultSearchSort
	MetadataToReturn    types.Nullable[string] // DefaultMetadataToReturn
	AppendRequestSecret types.Nullable[bool]   // false
	Facets              []string               // facets to compute, not sent when empty
	FacetSelection      *Params                // facet name to selected values
}

// Search runs query and returns the matching hits.
func (c *Client) Search(ctx context.Context, s *Session, query string, opts *SearchOptions) (*Response, error) {
	if err := checkArg("query", query, "required"); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &SearchOptions{}
	}
	params := NewParams().
		Set("q", query).
		Set("start", opts.Start.ValueOr(0)).
		Set("num", opts.Num.ValueOr(DefaultSearchNum)).
		Set("sort", opts.Sort.ValueOr(DefaultSearchSort)).
		Set("metadataToReturn", opts.MetadataToReturn.ValueOr(DefaultMetadataToReturn)).
		Set("appendRequestSecret", opts.AppendRequestSecret.ValueOr(false)).
		Set("facets", opts.Facets).
		Set(facetSelectionKey, opts.FacetSelection)
	return c.Query(ctx, s, EndpointSearch, params, nil, "")
}

// BrowseOptions refines a browse. Unset fields take the defaults listed.
type BrowseOptions struct {
	FromRoot          types.Nullable[string] // not sent
	IncludeFolders    types.Nullable[bool]   // true
	IncludeAsset      types.Nullable[bool]   // true
	IncludeExtensions types.Nullable[string] // DefaultIncludeExtensions
}

// Browse lists the folders and containers below path.
func (c *Client) Browse(ctx context.Context, s *Session, path string, opts *BrowseOptions) (*Response, error) {
	if err := checkArg("path", path, "required"); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &BrowseOptions{}
	}
	params := NewParams().
		Set("path", path).
		Set("fromRoot", opts.FromRoot).
		Set("includeFolders", opts.IncludeFolders.ValueOr(true)).
		Set("includeAsset", opts.IncludeAsset.ValueOr(true)).
		Set("includeExtensions", opts.IncludeExtensions.ValueOr(DefaultIncludeExtensions))
	return c.Query(ctx, s, EndpointBrowse, params, nil, "")
}

// Create uploads the file at filePath as a new asset with optional metadata.
func (c *Client) Create(ctx context.Context, s *Session, filePath string, metadata Metadata) (*Response, error) {
	if err := checkArg("filePath", filePath, "required"); err != nil {
		return nil, err
	}
	return c.Query(ctx, s, EndpointCreate, nil, metadata, filePath)
}

// Update changes the metadata of an asset and, when filePath is not empty,
// replaces its file.
func (c *Client) Update(ctx context.Context, s *Session, assetID, filePath string, metadata Metadata) (*Response, error) {
	if err := checkArg("assetId", assetID, "required"); err != nil {
		return nil, err
	}
	params := NewParams().Set("id", assetID)
	return c.Query(ctx, s, EndpointUpdate, params, metadata, filePath)
}

// UpdateBulk applies metadata to every asset matching query.
func (c *Client) UpdateBulk(ctx context.Context, s *Session, query string, metadata Metadata, async bool) (*Response, error) {
	if err := checkArg("query", query, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("metadata", map[string]any(metadata), "min=1"); err != nil {
		return nil, err
	}
	params := NewParams().
		Set("q", query).
		Set("async", async)
	return c.Query(ctx, s, EndpointUpdateBulk, params, metadata, "")
}

// TransferOptions refines a move or copy. Unset fields take the defaults
// listed.
type TransferOptions struct {
	FolderReplacePolicy types.Nullable[string] // ReplacePolicyAutoRename
	FileReplacePolicy   types.Nullable[string] // ReplacePolicyAutoRename
	FilterQuery         types.Nullable[string] // *:*, sent only when different
	FlattenFolders      types.Nullable[bool]   // false
	Async               types.Nullable[bool]   // move: not sent, copy: false
}

func transferParams(source, target string, opts *TransferOptions) (*Params, error) {
	if err := checkArg("source", source, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("target", target, "required"); err != nil {
		return nil, err
	}
	params := NewParams().
		Set("source", source).
		Set("target", target).
		Set("folderReplacePolicy", opts.FolderReplacePolicy.ValueOr(ReplacePolicyAutoRename)).
		Set("fileReplacePolicy", opts.FileReplacePolicy.ValueOr(ReplacePolicyAutoRename)).
		Set("flattenFolders", opts.FlattenFolders.ValueOr(false))
	if fq := opts.FilterQuery.ValueOr(matchAllQuery); fq != matchAllQuery {
		params.Set("filterQuery", fq)
	}
	return params, nil
}

// Move moves or renames a file or folder.
func (c *Client) Move(ctx context.Context, s *Session, source, target string, opts *TransferOptions) (*Response, error) {
	if opts == nil {
		opts = &TransferOptions{}
	}
	params, err := transferParams(source, target, opts)
	if err != nil {
		return nil, err
	}
	params.Set("async", opts.Async)
	return c.Query(ctx, s, EndpointMove, params, nil, "")
}

// Copy copies a file or folder.
func (c *Client) Copy(ctx context.Context, s *Session, source, target string, opts *TransferOptions) (*Response, error) {
	if opts == nil {
		opts = &TransferOptions{}
	}
	params, err := transferParams(source, target, opts)
	if err != nil {
		return nil, err
	}
	params.Set("async", opts.Async.ValueOr(false))
	return c.Query(ctx, s, EndpointCopy, params, nil, "")
}

// RemoveOptions selects what to remove. At least one of Query, IDs and
// FolderPath must be set.
type RemoveOptions struct {
	Query      string
	IDs        []string
	FolderPath string
	Async      bool
}

// Remove deletes assets or a folder.
func (c *Client) Remove(ctx context.Context, s *Session, opts RemoveOptions) (*Response, error) {
	if opts.Query == "" && len(opts.IDs) == 0 && opts.FolderPath == "" {
		return nil, ErrInvalidArgument.Msg("remove requires a query, ids or a folder path")
	}
	if err := checkArg("ids", opts.IDs, "omitempty,dive,required"); err != nil {
		return nil, err
	}
	params := NewParams().
		Set("q", nonEmpty(opts.Query)).
		Set("ids", opts.IDs).
		Set("folderPath", nonEmpty(opts.FolderPath)).
		Set("async", opts.Async)
	return c.Query(ctx, s, EndpointRemove, params, nil, "")
}

// CreateFolder creates the folder at path. Creating an existing folder is
// not an error; the answer maps the path to "already exists".
func (c *Client) CreateFolder(ctx context.Context, s *Session, path string) (*Response, error) {
	if err := checkArg("path", path, "required"); err != nil {
		return nil, err
	}
	return c.Query(ctx, s, EndpointCreateFolder, NewParams().Set("path", path), nil, "")
}

// CreateRelation links two assets with a relation of relationType.
func (c *Client) CreateRelation(ctx context.Context, s *Session, relationType, target1ID, target2ID string, metadata Metadata) (*Response, error) {
	params := NewParams().
		Set("relationType", relationType).
		Set("target1Id", target1ID).
		Set("target2Id", target2ID)
	for _, name := range params.Keys() {
		v, _ := params.Get(name)
		if err := checkArg(name, v, "required"); err != nil {
			return nil, err
		}
	}
	return c.Query(ctx, s, EndpointCreateRelation, params, metadata, "")
}

// RemoveRelation deletes the given relations.
func (c *Client) RemoveRelation(ctx context.Context, s *Session, relationIDs []string) (*Response, error) {
	if err := checkArg("relationIds", relationIDs, "min=1,dive,required"); err != nil {
		return nil, err
	}
	return c.Query(ctx, s, EndpointRemoveRelation, NewParams().Set("relationIds", relationIDs), nil, "")
}

// LogUsage records a custom usage action on an asset. extra parameters are
// sent after assetId and action and may not override them.
func (c *Client) LogUsage(ctx context.Context, s *Session, assetID, action string, extra *Params) (*Response, error) {
	if err := checkArg("assetId", assetID, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("action", action, "required"); err != nil {
		return nil, err
	}
	params := NewParams().
		Set("assetId", assetID).
		Set("action", action).
		Merge(extra)
	params.Set("assetId", assetID).Set("action", action)
	return c.Query(ctx, s, EndpointLogUsage, params, nil, "")
}

// QueryStats runs a server side statistics query file and returns at most
// num rows; num zero leaves the limit to the server.
func (c *Client) QueryStats(ctx context.Context, s *Session, queryFile string, num int, extra *Params) (*Response, error) {
	if err := checkArg("queryFile", queryFile, "required"); err != nil {
		return nil, err
	}
	params := NewParams().Set("queryFile", queryFile)
	if num > 0 {
		params.Set("num", num)
	}
	params.Merge(extra)
	return c.Query(ctx, s, EndpointQueryStats, params, nil, "")
}

// MessagesOptions refines a messages call.
type MessagesOptions struct {
	LocaleChain     types.Nullable[string] // e.g. "nl_NL,en_US"
	IfModifiedSince types.Nullable[int64]  // milliseconds since the epoch
	Bundle          types.Nullable[string]
}

// Messages returns the localized message bundle. When the bundle has not
// changed since IfModifiedSince the response reports NotModified and carries
// no payload.
func (c *Client) Messages(ctx context.Context, s *Session, opts *MessagesOptions) (*Response, error) {
	if opts == nil {
		opts = &MessagesOptions{}
	}
	params := NewParams().
		Set("localeChain", opts.LocaleChain).
		Set("ifModifiedSince", opts.IfModifiedSince).
		Set("bundle", opts.Bundle)
	return c.Query(ctx, s, EndpointMessages, params, nil, "")
}

// Checkout locks an asset for the session's user.
func (c *Client) Checkout(ctx context.Context, s *Session, assetID string) (*Response, error) {
	if err := checkArg("assetId", assetID, "required"); err != nil {
		return nil, err
	}
	return c.Query(ctx, s, EndpointCheckout, NewParams().Set("assetId", assetID), nil, "")
}

// UndoCheckout releases the lock taken by Checkout.
func (c *Client) UndoCheckout(ctx context.Context, s *Session, assetID string) (*Response, error) {
	if err := checkArg("assetId", assetID, "required"); err != nil {
		return nil, err
	}
	return c.Query(ctx, s, EndpointUndoCheckout, NewParams().Set("assetId", assetID), nil, "")
}

// Download kinds accepted by Zip.
const (
	DownloadOriginal = "original"
	DownloadPreview  = "preview"
)

// Zip downloads the given assets as one archive named filename on the
// server side and saves it to a new file in the zip directory.
func (c *Client) Zip(ctx context.Context, s *Session, filename, downloadKind string, assetIDs []string) (*ZipResult, error) {
	if err := checkArg("filename", filename, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("downloadKind", downloadKind, "required"); err != nil {
		return nil, err
	}
	if err := checkArg("assetIds", assetIDs, "min=1,dive,required"); err != nil {
		return nil, err
	}
	params := NewParams().
		Set("filename", filename).
		Set("downloadKind", downloadKind).
		Set("assetIds", assetIDs)
	rsp, err := c.Query(ctx, s, EndpointZip, params, nil, "")
	if err != nil {
		return nil, err
	}
	result := &ZipResult{}
	if err := rsp.Decode(result); err != nil {
		return nil, err
	}
	return result, nil
}

func nonEmpty(s string) types.Nullable[string] {
	if s == "" {
		return types.Null[string]()
	}
	return types.NullableFrom(s)
}
