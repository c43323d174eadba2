package handle

import (
	"errors"
	"net/http"

	"curbside/internal/mylogger"
	"curbside/internal/tracking/app/core"
	"curbside/internal/tracking/app/services"
)

type TrackingHandler struct {
	service *services.TrackingService
	logger  mylogger.Logger
}

func NewTrackingHandler(service *services.TrackingService, logger mylogger.Logger) *TrackingHandler {
	return &TrackingHandler{service: service, logger: logger}
}

// Track serves the public order page lookup. Unknown and
// well-formed-but-absent tokens are indistinguishable to the caller.
func (h *TrackingHandler) Track() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")
		if token == "" {
			jsonError(w, http.StatusNotFound, core.ErrOrderNotFound)
			return
		}

		summary, err := h.service.OrderByToken(r.Context(), token)
		if errors.Is(err, core.ErrOrderNotFound) {
			jsonError(w, http.StatusNotFound, core.ErrOrderNotFound)
			return
		}
		if err != nil {
			jsonError(w, http.StatusInternalServerError, errors.New("internal error"))
			return
		}
		jsonResponse(w, http.StatusOK, summary)
	})
}
