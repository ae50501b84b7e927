package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	tekio "github.com/tekio-be/leads"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var (
	errBadID     = errors.New("ID is not in its proper form")
	errEmptyBody = errors.New("request body is empty")
)

// decode reads a JSON body into into. A body that is empty or only whitespace
// leaves into untouched and returns errEmptyBody, so routes with an optional
// body can tell it apart from malformed JSON.
func decode(r *http.Request, into interface{}) error {
	rawJson, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(rawJson)) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(rawJson, into)
}

func respond(ctx context.Context, rw http.ResponseWriter, status int, data interface{}) {
	ctx, span := otel.GetTracerProvider().Tracer("").Start(ctx, "handler.respond")
	span.SetAttributes(attribute.Int("http.status", status))
	defer span.End()

	if status == http.StatusNoContent || data == nil {
		rw.WriteHeader(status)
		return
	}

	rawJson, err := json.Marshal(data)
	if err != nil {
		panic("respond-json-marshal:" + err.Error())
	}

	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	rw.Write(rawJson)
}

func respondErr(ctx context.Context, rw http.ResponseWriter, status int, err error) {
	respond(ctx, rw, status, map[string]string{
		"code":  http.StatusText(status),
		"error": err.Error(),
	})
}

// respondStoreErr maps domain and store failures onto HTTP statuses.
func respondStoreErr(ctx context.Context, rw http.ResponseWriter, err error) {
	var verr *tekio.ValidationError
	switch {
	case errors.As(err, &verr):
		respond(ctx, rw, http.StatusBadRequest, map[string]interface{}{
			"code":   http.StatusText(http.StatusBadRequest),
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	case errors.Is(err, tekio.ErrLeadNotFound):
		respondErr(ctx, rw, http.StatusNotFound, tekio.ErrLeadNotFound)
	case errors.Is(err, tekio.ErrInvalidLead):
		respondErr(ctx, rw, http.StatusBadRequest, err)
	default:
		respondErr(ctx, rw, http.StatusInternalServerError, errors.New(http.StatusText(http.StatusInternalServerError)))
	}
}
