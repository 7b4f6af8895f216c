package httpclient

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/pkg/errors"
)

// MultipartFile describes a file attached to a multipart/form-data request.
type MultipartFile struct {
	FieldName   string // name of the form part
	Path        string // local file to stream
	FileName    string // file name sent to the server, defaults to the base of Path
	ContentType string // detected from the file header when empty
}

const defaultContentType = "application/octet-stream"

// DetectContentType sniffs the MIME type of the file at path from its magic
// numbers. Unknown types are reported as application/octet-stream.
func DetectContentType(path string) string {
	kind, err := filetype.MatchFile(path)
	if err != nil || kind == filetype.Unknown {
		return defaultContentType
	}
	return kind.MIME.Value
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// openMultipart opens the file and returns a reader producing the encoded
// form. The file is opened before returning so a missing file fails the
// call up front. The file is closed once the form has been written or the
// returned reader is closed, whichever happens first.
func openMultipart(m *MultipartFile) (io.ReadCloser, string, error) {
	if m.FieldName == "" {
		return nil, "", errors.New("multipart field name not set")
	}
	f, err := os.Open(m.Path)
	if err != nil {
		return nil, "", errors.Wrap(err, "failed to open upload file")
	}

	fileName := m.FileName
	if fileName == "" {
		fileName = filepath.Base(m.Path)
	}
	contentType := m.ContentType
	if contentType == "" {
		contentType = DetectContentType(m.Path)
	}

	bodyReader, bodyWriter := io.Pipe()
	writer := multipart.NewWriter(bodyWriter)

	// Pump the data in the background
	go func() {
		defer f.Close()

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition",
			`form-data; name="`+quoteEscaper.Replace(m.FieldName)+`"; filename="`+quoteEscaper.Replace(fileName)+`"`)
		h.Set("Content-Type", contentType)

		part, err := writer.CreatePart(h)
		if err != nil {
			_ = bodyWriter.CloseWithError(errors.Wrap(err, "failed to create form file"))
			return
		}
		if _, err = io.Copy(part, f); err != nil {
			_ = bodyWriter.CloseWithError(errors.Wrap(err, "failed to copy data"))
			return
		}
		if err = writer.Close(); err != nil {
			_ = bodyWriter.CloseWithError(errors.Wrap(err, "failed to close form"))
			return
		}
		_ = bodyWriter.Close()
	}()

	return bodyReader, writer.FormDataContentType(), nil
}
