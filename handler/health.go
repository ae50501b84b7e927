package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
)

type HealthHandler struct {
	check func(ctx context.Context) error
	log   *otelzap.SugaredLogger
}

func NewHealthHandler(check func(ctx context.Context) error, log *otelzap.SugaredLogger) *HealthHandler {
	return &HealthHandler{check: check, log: log}
}

// Readiness reports whether the database answers within a second.
func (hh HealthHandler) Readiness(rw http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()

	status := "ok"
	code := http.StatusOK
	if err := hh.check(ctx); err != nil {
		hh.log.Ctx(ctx).Errorw("Readiness", "status", "database not ready", "error", err.Error())
		status = "db not ready"
		code = http.StatusInternalServerError
	}

	respond(r.Context(), rw, code, map[string]string{"status": status})
}
