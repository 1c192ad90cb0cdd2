package risk

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"medication-adherence/internal/middleware"
	"medication-adherence/internal/platform/storeerr"
	"medication-adherence/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, access auth.ElderAccess) {
	r.Get("/elders/{elderID}/risk", classifyHandler(svc, access))
	r.Get("/me/dashboard", dashboardHandler(svc))
}

type classificationResponse struct {
	ElderID         string    `json:"elder_id"`
	Tier            Tier      `json:"tier"`
	TriggerCount    int       `json:"trigger_count"`
	MissedDays      int       `json:"missed_days"`
	AbnormalRecords int       `json:"abnormal_records"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
}

type dashboardResponse struct {
	ManagerID     string                   `json:"manager_id"`
	NormalCount   int                      `json:"normal_count"`
	AtRiskCount   int                      `json:"at_risk_count"`
	FollowUpCount int                      `json:"follow_up_count"`
	Elders        []classificationResponse `json:"elders"`
}

// classifyHandler godoc
// @Summary Clasificación de riesgo
// @Description Cuenta días con tomas perdidas y lecturas anormales en los últimos 30 días (ventana [now-30d, now)). 0 → normal, 1 → at_risk, 2+ → follow_up.
// @Tags risk
// @Produce json
// @Param elderID path string true "ID del adulto mayor"
// @Param X-Debug-User-ID header string false "Dev: ID de usuario"
// @Param X-Debug-Role header string false "Dev: rol (elder|caregiver|osm|admin)"
// @Success 200 {object} classificationResponse
// @Failure 403 {string} string "forbidden"
// @Router /elders/{elderID}/risk [get]
func classifyHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
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

		c, err := svc.Classify(r.Context(), elderID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toClassificationResponse(c))
	}
}

// dashboardHandler godoc
// @Summary Panel del cuidador/OSM
// @Description Conteo por nivel de riesgo de los adultos mayores vinculados al usuario.
// @Tags risk
// @Produce json
// @Param X-Debug-User-ID header string false "Dev: ID de usuario"
// @Param X-Debug-Role header string false "Dev: rol (caregiver|osm)"
// @Success 200 {object} dashboardResponse
// @Failure 403 {string} string "forbidden"
// @Router /me/dashboard [get]
func dashboardHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if !claims.Role.IsManager() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		d, err := svc.Dashboard(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := dashboardResponse{
			ManagerID:     d.ManagerID,
			NormalCount:   d.NormalCount,
			AtRiskCount:   d.AtRiskCount,
			FollowUpCount: d.FollowUpCount,
			Elders:        make([]classificationResponse, 0, len(d.Elders)),
		}
		for _, c := range d.Elders {
			out.Elders = append(out.Elders, toClassificationResponse(c))
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

func toClassificationResponse(c Classification) classificationResponse {
	return classificationResponse{
		ElderID:         c.ElderID,
		Tier:            c.Tier,
		TriggerCount:    c.TriggerCount,
		MissedDays:      c.MissedDays,
		AbnormalRecords: c.AbnormalRecords,
		WindowStart:     c.WindowStart,
		WindowEnd:       c.WindowEnd,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
