package handler

import (
	"encoding/json"
	"net/http"

	"github.com/hzrede/studio/internal/admin"
)

type GroupHandler struct {
	admin *admin.Service
}

func NewGroupHandler(as *admin.Service) *GroupHandler {
	return &GroupHandler{admin: as}
}

// Verify checks the community-group access code. Stateless: nothing is
// persisted on success, the page is simply unlocked client-side.
func (h *GroupHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if !h.admin.VerifyGroupCode(req.Code) {
		writeError(w, http.StatusForbidden, "invalid access code")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
