package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/indrealty/realty-cms/pkg/realtycms"
)

// InterestHandler records interest of users in investments.
type InterestHandler struct {
	investments *realtycms.InvestmentService
}

// NewInterestHandler creates an interest handler.
func NewInterestHandler(investments *realtycms.InvestmentService) *InterestHandler {
	return &InterestHandler{investments: investments}
}

// ExpressInterestRequest names the interested user. It is only consulted when
// the request carries no principal.
type ExpressInterestRequest struct {
	UserID string `json:"userId"`
}

// ExpressInterest handles POST /investment/{id}/interest.
func (h *InterestHandler) ExpressInterest(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		errorJSON(w, r, http.StatusNotFound, "Investment not found")
		return
	}
	username := PrincipalFrom(r.Context())
	if username == "" {
		var req ExpressInterestRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := render.DecodeJSON(r.Body, &req); err != nil {
				errorJSON(w, r, http.StatusBadRequest, "Invalid request body")
				return
			}
		}
		username = req.UserID
	}

	item, err := h.investments.ExpressInterest(r.Context(), id, username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"message":    "Interest expressed successfully",
		"investment": item,
	})
}
