package medications

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
)

func RegisterRoutes(r chi.Router, svc *Service, access auth.ElderAccess) {
	r.Route("/elders/{elderID}/medications", func(er chi.Router) {
		er.Post("/", createMedicationHandler(svc, access))
		er.Get("/", listMedicationsHandler(svc, access))
	})

	r.Route("/medications/{medicationID}", func(mr chi.Router) {
		mr.Get("/", getMedicationHandler(svc, access))
		mr.Patch("/", updateMedicationHandler(svc, access))
		mr.Post("/deactivate", deactivateMedicationHandler(svc, access))
	})
}

type createMedicationRequest struct {
	Name            string      `json:"name"`
	DosageText      string      `json:"dosage_text"`
	MealInstruction string      `json:"meal_instruction"`
	TimesOfDay      []string    `json:"times_of_day"`
	StartDate       clock.Date  `json:"start_date"`
	EndDate         *clock.Date `json:"end_date,omitempty"`
	ImageURL        string      `json:"image_url,omitempty"`
}

type updateMedicationRequest struct {
	Name            *string     `json:"name"`
	DosageText      *string     `json:"dosage_text"`
	MealInstruction *string     `json:"meal_instruction"`
	TimesOfDay      []string    `json:"times_of_day"`
	StartDate       *clock.Date `json:"start_date"`
	EndDate         *clock.Date `json:"end_date"`
	ClearEndDate    bool        `json:"clear_end_date"`
	ImageURL        *string     `json:"image_url"`
}

type medicationResponse struct {
	ID              string      `json:"id"`
	ElderID         string      `json:"elder_id"`
	Name            string      `json:"name"`
	DosageText      string      `json:"dosage_text"`
	MealInstruction string      `json:"meal_instruction"`
	TimesOfDay      []string    `json:"times_of_day"`
	StartDate       clock.Date  `json:"start_date"`
	EndDate         *clock.Date `json:"end_date,omitempty"`
	ImageURL        string      `json:"image_url,omitempty"`
	Active          bool        `json:"active"`
	CreatedBy       string      `json:"created_by"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	DeactivatedAt   *time.Time  `json:"deactivated_at,omitempty"`
}

// createMedicationHandler godoc
// @Summary  Crear medicamento para un adulto mayor
// @Tags     medications
// @Accept   json
// @Produce  json
// @Param    elderID path string true "Elder ID"
// @Success  201 {object} medicationResponse
// @Failure  400 {object} validationErrorResponse
// @Failure  403 {string} string "forbidden"
// @Router   /elders/{elderID}/medications [post]
func createMedicationHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		elderID := chi.URLParam(r, "elderID")
		if err := access.CanManage(r.Context(), claims, elderID); err != nil {
			writeAccessError(w, err)
			return
		}

		var req createMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		m, err := svc.Create(r.Context(), claims.UserID, CreateInput{
			ElderID:         elderID,
			Name:            req.Name,
			DosageText:      req.DosageText,
			MealInstruction: MealInstruction(req.MealInstruction),
			TimesOfDay:      req.TimesOfDay,
			StartDate:       req.StartDate,
			EndDate:         req.EndDate,
			ImageRef:        req.ImageURL,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toMedicationResponse(m))
	}
}

func listMedicationsHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		elderID := chi.URLParam(r, "elderID")
		if err := access.CanView(r.Context(), claims, elderID); err != nil {
			writeAccessError(w, err)
			return
		}

		includeInactive := r.URL.Query().Get("include_inactive") == "true"

		items, err := svc.ListByElder(r.Context(), elderID, includeInactive)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		out := make([]medicationResponse, 0, len(items))
		for _, m := range items {
			out = append(out, toMedicationResponse(m))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func getMedicationHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		m, err := svc.GetByID(r.Context(), chi.URLParam(r, "medicationID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := access.CanView(r.Context(), claims, m.ElderID); err != nil {
			writeAccessError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

// updateMedicationHandler godoc
// @Summary  Actualizar medicamento (PATCH)
// @Tags     medications
// @Accept   json
// @Produce  json
// @Param    medicationID path string true "Medication ID"
// @Success  200 {object} medicationResponse
// @Failure  400 {object} validationErrorResponse
// @Failure  409 {string} string "medication deactivated"
// @Router   /medications/{medicationID} [patch]
func updateMedicationHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		medID := chi.URLParam(r, "medicationID")
		current, err := svc.GetByID(r.Context(), medID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := access.CanManage(r.Context(), claims, current.ElderID); err != nil {
			writeAccessError(w, err)
			return
		}

		var req updateMedicationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		in := UpdateInput{
			Name:         req.Name,
			DosageText:   req.DosageText,
			TimesOfDay:   req.TimesOfDay,
			StartDate:    req.StartDate,
			EndDate:      req.EndDate,
			ClearEndDate: req.ClearEndDate,
			ImageRef:     req.ImageURL,
		}
		if req.MealInstruction != nil {
			mi := MealInstruction(*req.MealInstruction)
			in.MealInstruction = &mi
		}

		m, err := svc.Update(r.Context(), medID, in)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

func deactivateMedicationHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		medID := chi.URLParam(r, "medicationID")
		current, err := svc.GetByID(r.Context(), medID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if err := access.CanManage(r.Context(), claims, current.ElderID); err != nil {
			writeAccessError(w, err)
			return
		}

		m, err := svc.Deactivate(r.Context(), medID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toMedicationResponse(m))
	}
}

type validationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, validationErrorResponse{Error: ErrInvalidInput.Error(), Fields: verr.Fields})
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrDeactivated):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, storeerr.ErrTransient):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeAccessError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNotAuthorized):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, storeerr.ErrTransient):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toMedicationResponse(m Medication) medicationResponse {
	return medicationResponse{
		ID:              m.ID,
		ElderID:         m.ElderID,
		Name:            m.Name,
		DosageText:      m.DosageText,
		MealInstruction: string(m.MealInstruction),
		TimesOfDay:      timesToStrings(m.TimesOfDay),
		StartDate:       m.StartDate,
		EndDate:         m.EndDate,
		ImageURL:        m.ImageRef,
		Active:          !m.IsDeactivated(),
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
		DeactivatedAt:   m.DeactivatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
