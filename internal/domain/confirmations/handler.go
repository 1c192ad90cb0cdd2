package confirmations

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

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/me/doses/confirm", confirmDoseHandler(svc))
}

type confirmRequest struct {
	MedicationID string `json:"medication_id"`
	TimeOfDay    string `json:"time_of_day"`
	Date         string `json:"date,omitempty"`
}

type confirmationResponse struct {
	ID           string     `json:"id"`
	MedicationID string     `json:"medication_id"`
	Date         clock.Date `json:"date"`
	TimeOfDay    string     `json:"time_of_day"`
	ConfirmedAt  time.Time  `json:"confirmed_at"`
}

type confirmResponse struct {
	Result       string                `json:"result"`
	Confirmation *confirmationResponse `json:"confirmation,omitempty"`
}

// confirmDoseHandler godoc
// @Summary  Confirmar una toma de hoy (adulto mayor)
// @Tags     doses
// @Accept   json
// @Produce  json
// @Success  201 {object} confirmResponse "accepted"
// @Success  200 {object} confirmResponse "already_confirmed"
// @Failure  409 {string} string "dose not yet due"
// @Failure  422 {object} confirmResponse "out_of_window"
// @Router   /me/doses/confirm [post]
func confirmDoseHandler(svc *Service) http.HandlerFunc {
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

		var req confirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		tod, err := clock.ParseTimeOfDay(req.TimeOfDay)
		if err != nil {
			http.Error(w, "time_of_day must be HH:MM", http.StatusBadRequest)
			return
		}

		var date clock.Date
		if strings.TrimSpace(req.Date) != "" {
			date, err = clock.ParseDate(req.Date)
			if err != nil {
				http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
				return
			}
		}

		res, err := svc.Confirm(r.Context(), ConfirmInput{
			ElderID:      claims.UserID,
			ActorID:      claims.UserID,
			MedicationID: req.MedicationID,
			TimeOfDay:    tod,
			Date:         date,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrOutOfWindow):
				writeJSON(w, http.StatusUnprocessableEntity, confirmResponse{Result: "out_of_window"})
			case errors.Is(err, ErrDoseLocked):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "not found", http.StatusNotFound)
			case errors.Is(err, storeerr.ErrTransient):
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		status := http.StatusCreated
		if res.Outcome == OutcomeAlreadyConfirmed {
			status = http.StatusOK
		}
		c := toConfirmationResponse(res.Event)
		writeJSON(w, status, confirmResponse{Result: string(res.Outcome), Confirmation: &c})
	}
}

func toConfirmationResponse(e Event) confirmationResponse {
	return confirmationResponse{
		ID:           e.ID,
		MedicationID: e.MedicationID,
		Date:         e.Date,
		TimeOfDay:    e.TimeOfDay.String(),
		ConfirmedAt:  e.ConfirmedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
