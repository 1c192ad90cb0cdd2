package readings

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medication-adherence/internal/middleware"
	"medication-adherence/internal/platform/storeerr"
	"medication-adherence/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, access auth.ElderAccess) {
	r.Route("/elders/{elderID}/risk-records", func(er chi.Router) {
		er.Post("/", createRecordHandler(svc, access))
		er.Get("/", listRecordsHandler(svc, access))
	})

	// Anular (void) registro; no se borra
	r.Post("/risk-records/{recordID}/void", voidRecordHandler(svc, access))
}

// createRecordRequest es una lectura de salud; flagged_abnormal es opcional.
type createRecordRequest struct {
	ID              string `json:"id,omitempty"`
	RecordedAt      string `json:"recorded_at"` // RFC3339
	SystolicBP      *int   `json:"systolic_bp,omitempty"`
	DiastolicBP     *int   `json:"diastolic_bp,omitempty"`
	Pulse           *int   `json:"pulse,omitempty"`
	FlaggedAbnormal *bool  `json:"flagged_abnormal,omitempty"`
}

type recordResponse struct {
	ID              string    `json:"id"`
	ElderID         string    `json:"elder_id"`
	RecordedAt      time.Time `json:"recorded_at"`
	SystolicBP      *int      `json:"systolic_bp,omitempty"`
	DiastolicBP     *int      `json:"diastolic_bp,omitempty"`
	Pulse           *int      `json:"pulse,omitempty"`
	FlaggedAbnormal bool      `json:"flagged_abnormal"`
	Source          Source    `json:"source"`
	RecordedBy      string    `json:"recorded_by"`
	Status          Status    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// createRecordHandler godoc
// @Summary Registrar lectura de salud
// @Description Guarda una lectura (presión, pulso). Si no trae flagged_abnormal se marca con los umbrales: sistólica >= 140, diastólica >= 90, pulso <= 50 o >= 100. Autenticación: `X-Debug-User-ID` + `X-Debug-Role` (dev) o `Authorization: Bearer <token>`.
// @Tags risk
// @Accept json
// @Produce json
// @Param elderID path string true "ID del adulto mayor"
// @Param payload body createRecordRequest true "Lectura; recorded_at en RFC3339"
// @Success 201 {object} recordResponse
// @Success 200 {object} recordResponse "id repetido"
// @Failure 400 {string} string "invalid json / recorded_at inválido"
// @Failure 403 {string} string "forbidden"
// @Router /elders/{elderID}/risk-records [post]
func createRecordHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		elderID := chi.URLParam(r, "elderID")
		if err := access.CanManage(r.Context(), claims, elderID); err != nil {
			writeServiceError(w, err)
			return
		}

		var req createRecordRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		recordedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.RecordedAt))
		if err != nil {
			http.Error(w, "recorded_at must be RFC3339", http.StatusBadRequest)
			return
		}

		rec, created, err := svc.Record(r.Context(), RecordInput{
			ID:              req.ID,
			ElderID:         elderID,
			RecordedAt:      recordedAt,
			SystolicBP:      req.SystolicBP,
			DiastolicBP:     req.DiastolicBP,
			Pulse:           req.Pulse,
			FlaggedAbnormal: req.FlaggedAbnormal,
			Source:          SourceManual,
			RecordedBy:      claims.UserID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if rec.ElderID != elderID {
			// id repetido de otro adulto mayor
			http.Error(w, "record id conflict", http.StatusConflict)
			return
		}

		status := http.StatusCreated
		if !created {
			status = http.StatusOK
		}
		writeJSON(w, status, toRecordResponse(rec))
	}
}

func listRecordsHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
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

		q := r.URL.Query()
		filter := ListFilter{
			OnlyAbnormal:  q.Get("abnormal") == "true",
			IncludeVoided: q.Get("include_voided") == "true",
			Limit:         100,
		}
		if raw := q.Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > 500 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			filter.Limit = n
		}
		if raw := q.Get("from"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				http.Error(w, "from must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.From = &t
		}
		if raw := q.Get("to"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				http.Error(w, "to must be RFC3339", http.StatusBadRequest)
				return
			}
			filter.To = &t
		}

		items, err := svc.ListByElder(r.Context(), elderID, filter)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]recordResponse, 0, len(items))
		for _, rec := range items {
			out = append(out, toRecordResponse(rec))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func voidRecordHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		recordID := chi.URLParam(r, "recordID")
		current, err := svc.GetByID(r.Context(), recordID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := access.CanManage(r.Context(), claims, current.ElderID); err != nil {
			writeServiceError(w, err)
			return
		}

		rec, err := svc.Void(r.Context(), recordID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRecordResponse(rec))
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, auth.ErrNotAuthorized):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, storeerr.ErrTransient):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toRecordResponse(rec Record) recordResponse {
	return recordResponse{
		ID:              rec.ID,
		ElderID:         rec.ElderID,
		RecordedAt:      rec.RecordedAt,
		SystolicBP:      rec.SystolicBP,
		DiastolicBP:     rec.DiastolicBP,
		Pulse:           rec.Pulse,
		FlaggedAbnormal: rec.FlaggedAbnormal,
		Source:          rec.Source,
		RecordedBy:      rec.RecordedBy,
		Status:          rec.Status,
		CreatedAt:       rec.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
