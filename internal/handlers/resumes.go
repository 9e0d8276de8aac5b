package handlers

import "net/http"

// ListResumes handles GET /tasks/resumes, returning the caller's stored
// résumés for selection in the scraper/matcher/job-agent request forms.
func (h *Handlers) ListResumes(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromRequest(r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	resumes, err := h.App.Store.ListResumes(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resumes)
}
