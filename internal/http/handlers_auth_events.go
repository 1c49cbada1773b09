package httpx

import (
	"log/slog"
	"net/http"

	"github.com/agrilink/sessiongate/internal/adapters/provider"
	domainauth "github.com/agrilink/sessiongate/internal/domain/auth"
	"github.com/agrilink/sessiongate/internal/service"
)

// AuthEventHandlers ingests provider push notifications delivered over HTTP
// and exposes the controller's observable state to consumers.
type AuthEventHandlers struct {
	Gateway    *provider.Gateway
	Mapper     *provider.PayloadMapper
	Controller *service.SessionController
	Logger     *slog.Logger
}

// eventRequest is the webhook envelope: the event kind plus the provider's
// raw payload, translated via the configured JMESPath mapping.
type eventRequest struct {
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// Ingest handles POST /api/auth/events.
func (h *AuthEventHandlers) Ingest(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	ev, err := h.Mapper.Translate(domainauth.EventKind(req.Kind), req.Payload)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.Gateway.Emit(ev)
	WriteJSON(w, http.StatusAccepted, map[string]any{"ok": true})
}

// State handles GET /api/session: the UI-facing state projection.
func (h *AuthEventHandlers) State(w http.ResponseWriter, r *http.Request) {
	st := h.Controller.Snapshot()

	body := map[string]any{
		"phase":         string(st.Phase),
		"profile_phase": string(st.ProfilePhase),
		"loading":       st.Loading,
		"user":          st.User,
		"profile":       st.Profile,
	}
	if st.Err != "" {
		body["error"] = st.Err
	}
	if st.Profile != nil {
		body["profile_incomplete"] = st.Profile.Incomplete()
	}
	WriteJSON(w, http.StatusOK, body)
}

// Refresh handles POST /api/session/refresh: the retry entry point consumers
// call after a profile error.
func (h *AuthEventHandlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.Controller.RefreshProfile(r.Context()); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}
