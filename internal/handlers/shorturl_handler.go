package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/sumo/backend/internal/models"
	"github.com/sumo/backend/internal/services"
)

type ShortURLHandler struct {
	shortener services.URLShortener
}

func NewShortURLHandler(shortener services.URLShortener) *ShortURLHandler {
	return &ShortURLHandler{shortener: shortener}
}

// Shorten returns a short link for the posted URL. The url is empty when no
// shortener credentials are configured.
func (h *ShortURLHandler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req models.ShortURLRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(msgInvalidBody))
		return
	}

	longURL := strings.TrimSpace(req.URL)
	if u, err := url.ParseRequestURI(longURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse("Invalid URL", map[string]string{
			"url": "A valid http or https URL is required",
		}))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	short, err := h.shortener.GenerateShortURL(ctx, longURL)
	if err != nil {
		slog.Warn("shortening url failed", "url", longURL, "err", err)
		var bitlyErr *services.BitlyError
		switch {
		case errors.Is(err, services.ErrBitlyRateLimited):
			writeJSON(w, http.StatusTooManyRequests, models.NewErrorResponse("Link shortener rate limit exceeded"))
		case errors.Is(err, services.ErrBitlyUnauthorized), errors.As(err, &bitlyErr):
			writeJSON(w, http.StatusBadGateway, models.NewErrorResponse("Link shortener rejected the request"))
		default:
			writeJSON(w, http.StatusBadGateway, models.NewErrorResponse("Link shortener unavailable"))
		}
		return
	}

	writeJSON(w, http.StatusOK, models.ShortURLResponse{URL: short})
}
