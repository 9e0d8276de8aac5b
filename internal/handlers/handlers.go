// -----------------------------------------------------------------------
// Handlers - thin REST layer over the App's Store and Engine
// -----------------------------------------------------------------------

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ternarybob/quaero/internal/app"
)

// Handlers holds the shared application reference every route handler
// reads from. Handlers never hold request-scoped state.
type Handlers struct {
	App *app.App
}

// New builds a Handlers bound to application.
func New(application *app.App) *Handlers {
	return &Handlers{App: application}
}

// errorBody is the uniform 4xx/5xx response shape required by the REST
// surface: { "detail": string }.
type errorBody struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Detail: message})
}

// userIDHeader is the header an upstream auth gateway is expected to set
// once it has validated the caller's session; this service trusts it
// rather than performing authentication itself (spec §6: "all endpoints
// require an authenticated user header/cookie").
const userIDHeader = "X-User-Id"

func userIDFromRequest(r *http.Request) string {
	return r.Header.Get(userIDHeader)
}
