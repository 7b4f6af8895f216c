package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/lasselehtinen/elvis/internal/common/logtrace"
)

// SendJsonRsp writes msg as a JSON body. Handlers that build answers with
// sjson pass the document as a string or []byte; those are sent verbatim when
// they hold valid JSON and encoded as JSON strings otherwise. Anything else is
// marshaled.
func SendJsonRsp(ctx context.Context, w http.ResponseWriter, statusCode int, msg any) {
	body, err := encodeJSON(msg)
	if err != nil {
		log.Ctx(ctx).Err(err).Msg("unable to marshal json")
		ErrApplicationError("unable to encode answer, request " + logtrace.RequestIdFromContext(ctx)).Send(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		log.Ctx(ctx).Err(err).Msg("unable to write json answer")
	}
}

func encodeJSON(msg any) ([]byte, error) {
	var raw []byte
	switch v := msg.(type) {
	case nil:
		return []byte("{}"), nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return json.Marshal(msg)
	}
	if json.Valid(raw) {
		return raw, nil
	}
	return json.Marshal(string(raw))
}
