package doses

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
	r.Get("/me/doses/today", listMyTodayHandler(svc))

	r.Route("/elders/{elderID}/doses", func(er chi.Router) {
		er.Get("/", listByDateHandler(svc, access))
		er.Get("/today", listTodayHandler(svc, access))
	})
}

type doseResponse struct {
	MedicationID    string     `json:"medication_id"`
	Name            string     `json:"name"`
	DosageText      string     `json:"dosage_text"`
	MealInstruction string     `json:"meal_instruction"`
	ImageURL        string     `json:"image_url,omitempty"`
	Date            clock.Date `json:"date"`
	TimeOfDay       string     `json:"time_of_day"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	State           State      `json:"state"`
	ConfirmedAt     *time.Time `json:"confirmed_at,omitempty"`
}

type dayResponse struct {
	ElderID string         `json:"elder_id"`
	Date    clock.Date     `json:"date"`
	Doses   []doseResponse `json:"doses"`
}

// listMyTodayHandler godoc
// @Summary  Tomas de hoy del adulto mayor autenticado
// @Tags     doses
// @Produce  json
// @Success  200 {object} dayResponse
// @Router   /me/doses/today [get]
func listMyTodayHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if claims.Role != auth.RoleElder {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		date, items, err := svc.ListToday(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDayResponse(claims.UserID, date, items))
	}
}

func listTodayHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
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

		date, items, err := svc.ListToday(r.Context(), elderID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDayResponse(elderID, date, items))
	}
}

func listByDateHandler(svc *Service, access auth.ElderAccess) http.HandlerFunc {
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

		date, err := clock.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		items, err := svc.ListForDate(r.Context(), elderID, date)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDayResponse(elderID, date, items))
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

func toDayResponse(elderID string, date clock.Date, items []View) dayResponse {
	out := dayResponse{
		ElderID: elderID,
		Date:    date,
		Doses:   make([]doseResponse, 0, len(items)),
	}
	for _, v := range items {
		out.Doses = append(out.Doses, doseResponse{
			MedicationID:    v.MedicationID,
			Name:            v.MedicationName,
			DosageText:      v.DosageText,
			MealInstruction: string(v.MealInstruction),
			ImageURL:        v.ImageRef,
			Date:            v.Date,
			TimeOfDay:       v.TimeOfDay.String(),
			ScheduledAt:     v.ScheduledAt,
			State:           v.State,
			ConfirmedAt:     v.ConfirmedAt,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
