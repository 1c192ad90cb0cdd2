package adherence

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medication-adherence/internal/middleware"
	"medication-adherence/internal/platform/clock"
	"medication-adherence/internal/platform/storeerr"
	"medication-adherence/internal/ports/auth"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func RegisterRoutes(r chi.Router, svc *Service, access auth.ElderAccess) {
	r.Get("/elders/{elderID}/adherence", historyHandler(svc, access))
}

type factResponse struct {
	Date       clock.Date      `json:"date"`
	Expected   int             `json:"expected"`
	Confirmed  int             `json:"confirmed"`
	Missed     int             `json:"missed"`
	Rate       decimal.Decimal `json:"rate"`
	ComputedAt time.Time       `json:"computed_at"`
}

// historyHandler godoc
// @Summary  Historial de adherencia diaria
// @Tags     adherence
// @Produce  json
// @Param    elderID path  string true  "Elder ID"
// @Param    from    query string false "YYYY-MM-DD"
// @Param    to      query string false "YYYY-MM-DD"
// @Success  200 {array} factResponse
// @Router   /elders/{elderID}/adherence [get]
func historyHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		elderID := chi.URLParam(r, "elderID")
		if err := access.CanView(r.Context(), claims, elderID); err != nil {
			writeServiceError(w, err)
			return
		}

		var from, to clock.Date
		var err error
		if raw := r.URL.Query().Get("from"); raw != "" {
			if from, err = clock.ParseDate(raw); err != nil {
				http.Error(w, "from must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}
		if raw := r.URL.Query().Get("to"); raw != "" {
			if to, err = clock.ParseDate(raw); err != nil {
				http.Error(w, "to must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}

		items, err := svc.History(r.Context(), elderID, from, to)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]factResponse, 0, len(items))
		for _, f := range items {
			out = append(out, factResponse{
				Date:       f.Date,
				Expected:   f.Expected,
				Confirmed:  f.Confirmed,
				Missed:     f.Missed,
				Rate:       f.Rate(),
				ComputedAt: f.ComputedAt,
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrNotAuthorized):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, storeerr.ErrTransient):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
