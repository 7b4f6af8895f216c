package elvis

import (
	"net/http"
	"sort"
	"strconv"
)

// Endpoint names one service of the Elvis REST API. It is appended verbatim
// to the configured base URL.
type Endpoint string

const (
	EndpointLogin          Endpoint = "login"
	EndpointLogout         Endpoint = "logout"
	EndpointProfile        Endpoint = "profile"
	EndpointSearch         Endpoint = "search"
	EndpointBrowse         Endpoint = "browse"
	EndpointCreate         Endpoint = "create"
	EndpointUpdate         Endpoint = "update"
	EndpointUpdateBulk     Endpoint = "updatebulk"
	EndpointMove           Endpoint = "move"
	EndpointCopy           Endpoint = "copy"
	EndpointRemove         Endpoint = "remove"
	EndpointCreateFolder   Endpoint = "createFolder"
	EndpointCreateRelation Endpoint = "createRelation"
	EndpointRemoveRelation Endpoint = "removeRelation"
	EndpointLogUsage       Endpoint = "logUsage"
	EndpointQueryStats     Endpoint = "queryStats"
	EndpointMessages       Endpoint = "messages"
	EndpointCheckout       Endpoint = "checkout"
	EndpointUndoCheckout   Endpoint = "undocheckout"
	EndpointZip            Endpoint = "zip"
	EndpointCreateAuthKey  Endpoint = "createAuthKey"
	EndpointUpdateAuthKey  Endpoint = "updateAuthKey"
	EndpointRevokeAuthKeys Endpoint = "revokeAuthKeys"
)

// urlShape selects how the builder lays out the request URI.
type urlShape int

const (
	shapeQuery     urlShape = iota // <base><endpoint>?<query>
	shapeZip                       // <host root>zip/<filename>?<query>
	shapeAssetPath                 // <base><endpoint>/<assetId>
)

// transportMode selects how the dispatcher sends the request and reads the
// response.
type transportMode int

const (
	transportJSON     transportMode = iota // plain request, JSON response
	transportUpload                        // multipart Filedata part when a file is given
	transportDownload                      // response body saved to a scratch file
)

func (m transportMode) String() string {
	switch m {
	case transportUpload:
		return "upload"
	case transportDownload:
		return "download"
	default:
		return "json"
	}
}

type descriptor struct {
	shape         urlShape
	transport     transportMode
	method        string
	pathParam     string // parameter moved into the path
	session       bool   // requires an authenticated session
	checkLogin    bool   // a false loginSuccess flag fails the call
	notModifiedOK bool   // 304 is a successful "nothing new" answer
}

var endpoints = map[Endpoint]descriptor{
	EndpointLogin:          {method: http.MethodPost, checkLogin: true},
	EndpointLogout:         {method: http.MethodPost, session: true},
	EndpointProfile:        {method: http.MethodPost, session: true},
	EndpointSearch:         {method: http.MethodPost, session: true},
	EndpointBrowse:         {method: http.MethodPost, session: true},
	EndpointCreate:         {method: http.MethodPost, session: true, transport: transportUpload},
	EndpointUpdate:         {method: http.MethodPost, session: true, transport: transportUpload},
	EndpointUpdateBulk:     {method: http.MethodPost, session: true},
	EndpointMove:           {method: http.MethodPost, session: true},
	EndpointCopy:           {method: http.MethodPost, session: true},
	EndpointRemove:         {method: http.MethodPost, session: true},
	EndpointCreateFolder:   {method: http.MethodPost, session: true},
	EndpointCreateRelation: {method: http.MethodPost, session: true},
	EndpointRemoveRelation: {method: http.MethodPost, session: true},
	EndpointLogUsage:       {method: http.MethodPost, session: true},
	EndpointQueryStats:     {method: http.MethodPost, session: true},
	EndpointMessages:       {method: http.MethodPost, session: true, notModifiedOK: true},
	EndpointCheckout:       {method: http.MethodPost, session: true, shape: shapeAssetPath, pathParam: "assetId"},
	EndpointUndoCheckout:   {method: http.MethodPost, session: true, shape: shapeAssetPath, pathParam: "assetId"},
	EndpointZip:            {method: http.MethodGet, session: true, shape: shapeZip, pathParam: "filename", transport: transportDownload},
	EndpointCreateAuthKey:  {method: http.MethodPost, session: true},
	EndpointUpdateAuthKey:  {method: http.MethodPost, session: true},
	EndpointRevokeAuthKeys: {method: http.MethodPost, session: true},
}

func (e Endpoint) descriptor() (descriptor, error) {
	d, ok := endpoints[e]
	if !ok {
		return descriptor{}, ErrUnknownEndpoint.Msg("unknown endpoint " + strconv.Quote(string(e)))
	}
	return d, nil
}

// Valid reports whether e is a known endpoint.
func (e Endpoint) Valid() bool {
	_, ok := endpoints[e]
	return ok
}

// RequiresSession reports whether calls to e need an authenticated session.
func (e Endpoint) RequiresSession() bool {
	return endpoints[e].session
}

func (e Endpoint) String() string {
	return string(e)
}

// Endpoints returns all known endpoints in name order.
func Endpoints() []Endpoint {
	all := make([]Endpoint, 0, len(endpoints))
	for e := range endpoints {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i] < all[j] })
	return all
}
