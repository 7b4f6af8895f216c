package elvis

import (
	"context"
	"io"
	"mime"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/lasselehtinen/elvis/internal/common/httpclient"
	"github.com/lasselehtinen/elvis/internal/common/logtrace"
	"github.com/lasselehtinen/elvis/internal/common/uuid"
)

// FiledataField is the multipart part carrying an uploaded file.
const FiledataField = "Filedata"

// maxErrorBody bounds how much of a failed download is read for
// classification.
const maxErrorBody = 64 << 10

// Request is one call ready to be dispatched.
type Request struct {
	Session  *Session // nil only for login
	Endpoint Endpoint
	URI      string // built by URIBuilder
	FilePath string // local file to upload; create and update only
}

// Dispatcher executes built requests and classifies their outcome. It holds
// no session state and is safe for concurrent use.
type Dispatcher struct {
	http    httpclient.HTTPClientInterface
	baseURL string
	zips    *zipStore
	logger  zerolog.Logger
}

// NewDispatcher returns a dispatcher sending requests through hc. baseURL is
// reported in not found errors; downloads are saved below zipDir.
func NewDispatcher(hc httpclient.HTTPClientInterface, baseURL, zipDir string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		http:    hc,
		baseURL: baseURL,
		zips:    newZipStore(zipDir),
		logger:  logger,
	}
}

// ZipDir returns the directory downloads are saved to.
func (d *Dispatcher) ZipDir() string {
	return d.zips.dir
}

// Dispatch sends req and returns the classified result. Every response is
// checked, in order, for a 404 status, a rejected login, a remote errorcode
// and any other non-2xx status before it is accepted.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Response, error) {
	desc, err := req.Endpoint.descriptor()
	if err != nil {
		return nil, err
	}
	if desc.session && req.Session == nil {
		return nil, ErrNoSession
	}

	requestID := logtrace.RequestIdFromContext(ctx)
	if requestID == "" {
		requestID = uuid.RequestID()
		ctx = logtrace.WithRequestID(ctx, requestID)
	}

	mode := desc.transport
	opts := httpclient.RequestOptions{
		Method:  desc.method,
		URL:     req.URI,
		Headers: req.Session.headers(),
		Jar:     req.Session.cookieJar(),
	}
	if req.FilePath != "" {
		if mode != transportUpload {
			return nil, ErrInvalidArgument.Msg(string(req.Endpoint) + " does not accept a file")
		}
		opts.Method = http.MethodPost
		opts.Multipart = &httpclient.MultipartFile{
			FieldName: FiledataField,
			Path:      req.FilePath,
		}
	} else if mode == transportUpload {
		mode = transportJSON
	}

	logger := d.logger.With().
		Str("request_id", requestID).
		Str("endpoint", string(req.Endpoint)).
		Str("method", opts.Method).
		Str("transport", mode.String()).
		Logger()
	logger.Debug().Str("url", logtrace.RedactURL(req.URI)).Msg("dispatching request")
	start := time.Now()

	var rsp *Response
	if mode == transportDownload {
		rsp, err = d.download(ctx, req, desc, opts)
	} else {
		rsp, err = d.call(ctx, req, desc, opts)
	}

	event := logger.Debug()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	if rsp != nil {
		event = event.Int("status", rsp.StatusCode)
	}
	event.Dur("duration", time.Since(start)).Msg("request completed")
	return rsp, err
}

func (d *Dispatcher) call(ctx context.Context, req Request, desc descriptor, opts httpclient.RequestOptions) (*Response, error) {
	hr, err := d.http.DoRequest(ctx, opts)
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Err: err}
	}
	notModified, err := classify(desc, d.baseURL, req.URI, hr.StatusCode, hr.ReasonPhrase(), hr.Body)
	if err != nil {
		return nil, err
	}
	rsp := &Response{
		Endpoint:    req.Endpoint,
		StatusCode:  hr.StatusCode,
		notModified: notModified,
	}
	if !notModified && len(hr.Body) > 0 {
		rsp.Raw = hr.Body
	}
	return rsp, nil
}

// download streams a successful response into a new scratch file. Error
// answers are read and classified like any other response.
func (d *Dispatcher) download(ctx context.Context, req Request, desc descriptor, opts httpclient.RequestOptions) (*Response, error) {
	hr, err := d.http.StreamRequest(ctx, opts)
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Err: err}
	}
	defer hr.Body.Close()

	if hr.StatusCode < 200 || hr.StatusCode > 299 || isJSON(hr.Header) {
		body, err := io.ReadAll(io.LimitReader(hr.Body, maxErrorBody))
		if err != nil {
			return nil, &TransportError{Endpoint: req.Endpoint, Err: err}
		}
		if _, err := classify(desc, d.baseURL, req.URI, hr.StatusCode, hr.ReasonPhrase(), body); err != nil {
			return nil, err
		}
		return nil, ErrInvalidResponse.Msg("zip download returned no archive")
	}

	f, err := d.zips.create()
	if err != nil {
		return nil, &TransportError{Endpoint: req.Endpoint, Err: err}
	}
	fileName := f.Name()
	_, copyErr := io.Copy(f, hr.Body)
	closeErr := f.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(fileName)
		return nil, &TransportError{Endpoint: req.Endpoint, Err: copyErr}
	}

	envelope, err := zipEnvelope(fileName, hr.StatusCode, hr.ReasonPhrase())
	if err != nil {
		return nil, ErrInvalidResponse.Msg("unable to build zip result").Err(err)
	}
	return &Response{Endpoint: req.Endpoint, StatusCode: hr.StatusCode, Raw: envelope}, nil
}

func zipEnvelope(fileName string, statusCode int, reason string) ([]byte, error) {
	raw := []byte(`{}`)
	raw, err := sjson.SetBytes(raw, "fileName", fileName)
	if err != nil {
		return nil, err
	}
	if raw, err = sjson.SetBytes(raw, "statusCode", statusCode); err != nil {
		return nil, err
	}
	return sjson.SetBytes(raw, "reasonPhrase", reason)
}

func isJSON(h http.Header) bool {
	mt, _, err := mime.ParseMediaType(h.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

// classify maps a response to its outcome. notModified reports an accepted
// 304 answer that carries no payload.
func classify(desc descriptor, baseURL, uri string, status int, reason string, body []byte) (notModified bool, err error) {
	if status == http.StatusNotFound {
		return false, &NotFoundError{BaseURL: baseURL, URL: logtrace.RedactURL(uri)}
	}

	if desc.checkLogin {
		if flag := gjson.GetBytes(body, "loginSuccess"); flag.Exists() && flag.Type == gjson.False {
			return false, &AuthenticationError{Message: gjson.GetBytes(body, "loginFaultMessage").String()}
		}
	}

	if code := gjson.GetBytes(body, "errorcode"); code.Exists() {
		if desc.notModifiedOK && code.Int() == http.StatusNotModified {
			return true, nil
		}
		return false, &RemoteAPIError{
			Code:       int(code.Int()),
			Message:    gjson.GetBytes(body, "message").String(),
			StatusCode: status,
		}
	}

	if status == http.StatusNotModified && desc.notModifiedOK {
		return true, nil
	}

	if status < 200 || status > 299 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = reason
		}
		return false, &RemoteAPIError{Code: status, Message: msg, StatusCode: status}
	}

	if len(body) > 0 && !gjson.ValidBytes(body) {
		return false, ErrInvalidResponse.Msg("response body is not valid json")
	}
	return false, nil
}
