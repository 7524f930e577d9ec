package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bookon-app/bookon/internal/model"
)

func parentIDFromContext(r *http.Request) (string, bool) {
	idRaw := r.Context().Value(model.KeyContextParentID)
	id, ok := idRaw.(string)
	return id, ok && id != ""
}

func writeJSON(ctx context.Context, w http.ResponseWriter, log *slog.Logger,
	status int, payload any,
) {
	w.Header().Set(model.HeaderContentType, "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.LogAttrs(ctx,
			slog.LevelError,
			"failed to encode response",
			slog.Any(model.KeyLoggerError, err),
		)
	}
}
