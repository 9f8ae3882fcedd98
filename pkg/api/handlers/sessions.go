package handlers

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/sessionfsd/pkg/observer"
	"github.com/marmos91/sessionfsd/pkg/session"
)

// SessionsHandler exposes the session manager's Open/Close/Shutdown
// operations, and the telemetry tree's introspection, over HTTP.
type SessionsHandler struct {
	manager *session.Manager
}

// NewSessionsHandler creates a sessions handler backed by manager.
func NewSessionsHandler(manager *session.Manager) *SessionsHandler {
	return &SessionsHandler{manager: manager}
}

// sessionSummary is one entry of GET /sessions.
type sessionSummary struct {
	OriginalPath       string `json:"original_path"`
	ActiveIncarnations int    `json:"active_incarnations_num"`
}

// List handles GET /sessions — every currently published session and its
// live incarnation count.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	paths := h.manager.SessionPaths()
	out := make([]sessionSummary, 0, len(paths))
	for _, p := range paths {
		incs, _ := h.manager.Incarnations(p)
		out = append(out, sessionSummary{OriginalPath: p, ActiveIncarnations: len(incs)})
	}
	writeJSON(w, http.StatusOK, okResponse(out))
}

// incarnationAttrs is one incarnation entry of GET /sessions/{name},
// reporting the owner as a process name rather than a raw PID.
type incarnationAttrs struct {
	OwnerID  uint32 `json:"owner_id"`
	HandleID uint32 `json:"handle_id"`
	Owner    string `json:"owner"`
}

// Get handles GET /sessions/{name} — the live incarnations of one session,
// where {name} is the telemetry node name (original_path with '/' mapped
// to '-', per observer.NodeName).
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	for _, p := range h.manager.SessionPaths() {
		if nodeNameMatches(p, name) {
			incs, _ := h.manager.Incarnations(p)
			attrs := make([]incarnationAttrs, 0, len(incs))
			for _, inc := range incs {
				attrs = append(attrs, incarnationAttrs{
					OwnerID:  inc.OwnerID,
					HandleID: inc.HandleID,
					Owner:    h.manager.OwnerName(inc.OwnerID),
				})
			}
			writeJSON(w, http.StatusOK, okResponse(map[string]any{
				"original_path":           p,
				"active_incarnations_num": len(attrs),
				"incarnations":            attrs,
			}))
			return
		}
	}
	writeJSON(w, http.StatusNotFound, errorResponse("no such session"))
}

type openRequestBody struct {
	OriginalPath string `json:"original_path"`
	Flags        int    `json:"flags"`
	Mode         uint32 `json:"mode"`
	OwnerID      uint32 `json:"owner_id"`
}

type openResponseBody struct {
	HandleID uint32 `json:"handle_id"`
	Status   int    `json:"status"`
}

// Open handles POST /sessions/open, the HTTP entry point for the OPEN operation.
func (h *SessionsHandler) Open(w http.ResponseWriter, r *http.Request) {
	var body openRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("malformed request body"))
		return
	}

	result, err := h.manager.Open(r.Context(), session.OpenRequest{
		OriginalPath: body.OriginalPath,
		Flags:        body.Flags,
		Mode:         os.FileMode(body.Mode),
		OwnerID:      body.OwnerID,
	})
	if err != nil {
		writeJSON(w, statusForErr(err), errorResponse(err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, okResponse(openResponseBody{
		HandleID: result.HandleID,
		Status:   result.Status,
	}))
}

type closeRequestBody struct {
	OriginalPath string `json:"original_path"`
	HandleID     uint32 `json:"handle_id"`
	OwnerID      uint32 `json:"owner_id"`
}

type closeResponseBody struct {
	Outcome string `json:"outcome"`
}

// Close handles POST /sessions/close, the HTTP entry point for the CLOSE operation.
func (h *SessionsHandler) Close(w http.ResponseWriter, r *http.Request) {
	var body closeRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("malformed request body"))
		return
	}

	result, err := h.manager.Close(r.Context(), session.CloseRequest{
		OriginalPath: body.OriginalPath,
		HandleID:     body.HandleID,
		OwnerID:      body.OwnerID,
	})

	status := http.StatusOK
	if err != nil {
		status = statusForErr(err)
	}
	writeJSON(w, status, okResponse(closeResponseBody{Outcome: outcomeName(result.Outcome)}))
}

// Shutdown handles POST /shutdown, the HTTP entry point for the SHUTDOWN operation.
func (h *SessionsHandler) Shutdown(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.Shutdown(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, okResponse(map[string]int{
		"live_sessions_num": result.LiveSessionsCount,
	}))
}

func outcomeName(o session.CloseOutcome) string {
	switch o {
	case session.CloseOK:
		return "ok"
	case session.CloseBrokenPipe:
		return "broken_pipe"
	case session.CloseBadHandle:
		return "bad_handle"
	default:
		return "unknown"
	}
}

// statusForErr maps a *session.Error's Kind to the HTTP status code that
// best reflects it. Any other error type is treated as internal.
func statusForErr(err error) int {
	se, ok := err.(*session.Error)
	if !ok {
		return http.StatusInternalServerError
	}
	switch se.Kind {
	case session.KindInvalidArgument:
		return http.StatusBadRequest
	case session.KindNotFound:
		return http.StatusNotFound
	case session.KindAgain:
		return http.StatusConflict
	case session.KindUnavailable:
		return http.StatusServiceUnavailable
	case session.KindBrokenPipe:
		return http.StatusBadGateway
	case session.KindIOFailure, session.KindNoMemory:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func nodeNameMatches(path, name string) bool {
	return observer.NodeName(path) == name
}
