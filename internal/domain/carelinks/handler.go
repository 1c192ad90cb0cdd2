package carelinks

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

func RegisterRoutes(r chi.Router, svc *Service) {
	// Cuidador/OSM: sus adultos mayores vinculados
	r.Route("/me/elders", func(mr chi.Router) {
		mr.Post("/", linkElderHandler(svc))
		mr.Get("/", listMyLinksHandler(svc))
		mr.Delete("/{elderID}", unlinkElderHandler(svc))
	})
}

type linkRequest struct {
	ElderID string `json:"elder_id"`
}

type linkResponse struct {
	ID          string     `json:"id"`
	ManagerID   string     `json:"manager_id"`
	ManagerRole auth.Role  `json:"manager_role"`
	ElderID     string     `json:"elder_id"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

func linkElderHandler(svc *Service) http.HandlerFunc {
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

		var req linkRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(req.ElderID) == "" {
			http.Error(w, "elder_id required", http.StatusBadRequest)
			return
		}

		l, err := svc.Link(r.Context(), LinkInput{
			ManagerID:   claims.UserID,
			ManagerRole: claims.Role,
			ElderID:     req.ElderID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toLinkResponse(l))
	}
}

func listMyLinksHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		items, err := svc.ListByManager(r.Context(), claims.UserID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		// status=active|revoked (opcional)
		status := Status(strings.TrimSpace(r.URL.Query().Get("status")))

		out := make([]linkResponse, 0, len(items))
		for _, l := range items {
			if status != "" && l.Status != status {
				continue
			}
			out = append(out, toLinkResponse(l))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func unlinkElderHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		l, err := svc.Unlink(r.Context(), claims.UserID, chi.URLParam(r, "elderID"))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toLinkResponse(l))
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, storeerr.ErrTransient):
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func toLinkResponse(l Link) linkResponse {
	return linkResponse{
		ID:          l.ID,
		ManagerID:   l.ManagerID,
		ManagerRole: l.ManagerRole,
		ElderID:     l.ElderID,
		Status:      l.Status,
		CreatedAt:   l.CreatedAt,
		UpdatedAt:   l.UpdatedAt,
		RevokedAt:   l.RevokedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
