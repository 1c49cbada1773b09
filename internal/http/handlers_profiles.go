package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	domainprofile "github.com/agrilink/sessiongate/internal/domain/profile"
	apperrors "github.com/agrilink/sessiongate/internal/errors"
	"github.com/agrilink/sessiongate/internal/ports"
)

// ProfileHandlers serves the provisioning and profile update endpoints. Both
// run server-side with the privileged datastore credential; they are never
// reached through the per-row access policy the UI client is bound to.
type ProfileHandlers struct {
	Provisioner ports.Provisioner
	Profiles    ports.ProfileRepository
	Logger      *slog.Logger
}

// provisionRequest is the JSON body of the provisioning endpoint.
type provisionRequest struct {
	AuthID string `json:"authId"`
	Email  string `json:"email"`
	Nom    string `json:"nom,omitempty"`
	Prenom string `json:"prenom,omitempty"`
	Role   string `json:"role,omitempty"`
}

// Provision handles POST /api/profiles/provision.
// 201 when a profile was created, 200 when it already existed.
func (h *ProfileHandlers) Provision(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.AuthID = strings.TrimSpace(req.AuthID)
	req.Email = strings.TrimSpace(req.Email)
	if req.AuthID == "" || req.Email == "" {
		WriteError(w, http.StatusBadRequest, "authId and email are required")
		return
	}

	result, err := h.Provisioner.Provision(r.Context(), req.AuthID, req.Email, domainprofile.Defaults{
		Nom:    req.Nom,
		Prenom: req.Prenom,
		Role:   req.Role,
	})
	if err != nil {
		h.logError(r, "provision failed", err)
		WriteAppError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Existed {
		status = http.StatusOK
	}
	WriteJSON(w, status, map[string]any{"ok": true, "profile": result.Profile})
}

// Update handles PATCH /api/profiles/{authId} with user-editable fields.
func (h *ProfileHandlers) Update(w http.ResponseWriter, r *http.Request) {
	authID := r.PathValue("authId")
	if authID == "" {
		WriteError(w, http.StatusBadRequest, "authId is required")
		return
	}

	var req domainprofile.UpdateRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Empty() {
		WriteError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	updated, err := h.Profiles.Update(r.Context(), authID, req)
	if err != nil {
		h.logError(r, "profile update failed", err)
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "profile": updated})
}

// Get handles GET /api/profiles/{authId}.
func (h *ProfileHandlers) Get(w http.ResponseWriter, r *http.Request) {
	authID := r.PathValue("authId")
	if authID == "" {
		WriteError(w, http.StatusBadRequest, "authId is required")
		return
	}

	prof, err := h.Profiles.FindByAuthID(r.Context(), authID)
	if err != nil {
		if !apperrors.IsNotFound(err) {
			h.logError(r, "profile lookup failed", err)
		}
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"profile":    prof,
		"incomplete": prof.Incomplete(),
	})
}

func (h *ProfileHandlers) logError(r *http.Request, msg string, err error) {
	if h.Logger == nil {
		return
	}
	h.Logger.ErrorContext(r.Context(), msg, "path", r.URL.Path, "error", err)
}
