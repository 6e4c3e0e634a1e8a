package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/araddon/dateparse"

	"github.com/sumo/backend/internal/models"
	"github.com/sumo/backend/internal/services"
)

type ContributorHandler struct {
	contributors *services.ContributorService
}

func NewContributorHandler(contributors *services.ContributorService) *ContributorHandler {
	return &ContributorHandler{contributors: contributors}
}

// ActiveContributors lists the users who created or reviewed knowledge base
// revisions in [from, to).
func (h *ContributorHandler) ActiveContributors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	errs := map[string]string{}

	from, err := parseDate(q.Get("from"))
	if err != nil {
		errs["from"] = "Invalid date"
	} else if from.IsZero() {
		errs["from"] = "From date is required"
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		errs["to"] = "Invalid date"
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse("Invalid date range", errs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	users, err := h.contributors.ActiveContributors(ctx, services.ContributorFilter{
		From:    from,
		To:      to,
		Locale:  q.Get("locale"),
		Product: q.Get("product"),
	})
	if err != nil {
		if errors.Is(err, services.ErrFromDateRequired) {
			writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("From date is required"))
			return
		}
		slog.Error("active contributors query failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to load contributors"))
		return
	}

	writeJSON(w, http.StatusOK, models.ContributorsResponse{Count: len(users), Users: users})
}

// parseDate accepts any format dateparse recognizes, read as UTC. An empty
// value yields the zero time.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return dateparse.ParseIn(value, time.UTC)
}
