package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sumo/backend/internal/middleware"
	"github.com/sumo/backend/internal/models"
	"github.com/sumo/backend/internal/services"
)

const (
	MsgAccountBanned   = "Account banned successfully!"
	MsgAccountIgnored  = "Account is now being ignored!"
	MsgAlreadyBanned   = "This account is already banned!"
	MsgAlreadyIgnored  = "This account is already in the ignore list!"
	MsgNotPostRequest  = "Not a POST request!"
	msgInvalidBody     = "Invalid request body"
	msgUnbannedFormat  = "%d users unbanned successfully."
	msgUnignoredFormat = "%d users unignored successfully."
)

// ModerationHandler serves the customer care endpoints used to ban and
// ignore social accounts.
type ModerationHandler struct {
	moderation *services.ModerationService
}

func NewModerationHandler(moderation *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderation: moderation}
}

func (h *ModerationHandler) ListBanned(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.moderation.ListBanned)
}

func (h *ModerationHandler) ListIgnored(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.moderation.ListIgnored)
}

func (h *ModerationHandler) Ban(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.moderation.Ban, MsgAccountBanned)
}

func (h *ModerationHandler) Ignore(w http.ResponseWriter, r *http.Request) {
	h.setFlag(w, r, h.moderation.Ignore, MsgAccountIgnored)
}

func (h *ModerationHandler) Unban(w http.ResponseWriter, r *http.Request) {
	h.clearFlag(w, r, h.moderation.Unban, msgUnbannedFormat)
}

func (h *ModerationHandler) Unignore(w http.ResponseWriter, r *http.Request) {
	h.clearFlag(w, r, h.moderation.Unignore, msgUnignoredFormat)
}

func (h *ModerationHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]models.SocialAccount, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	accounts, err := fetch(ctx)
	if err != nil {
		slog.Error("listing accounts failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to list accounts"))
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (h *ModerationHandler) setFlag(w http.ResponseWriter, r *http.Request, apply func(context.Context, string) error, success string) {
	var req models.AccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(msgInvalidBody))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(models.MsgUsernameNotProvided, errs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	err := apply(ctx, req.Username)
	switch {
	case err == nil:
		slog.Info("account flagged", "path", r.URL.Path, "username", req.Username, "by", middleware.GetUserID(r.Context()))
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(success))
	case errors.Is(err, services.ErrUsernameRequired):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(models.MsgUsernameNotProvided))
	case errors.Is(err, services.ErrAlreadyBanned):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse(MsgAlreadyBanned))
	case errors.Is(err, services.ErrAlreadyIgnored):
		writeJSON(w, http.StatusConflict, models.NewErrorResponse(MsgAlreadyIgnored))
	default:
		slog.Error("flagging account failed", "path", r.URL.Path, "username", req.Username, "err", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update account"))
	}
}

func (h *ModerationHandler) clearFlag(w http.ResponseWriter, r *http.Request, apply func(context.Context, []string) (int, error), successFormat string) {
	var req models.AccountsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(msgInvalidBody))
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(models.MsgUsernamesNotProvided, errs))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	matched, err := apply(ctx, req.Usernames)
	switch {
	case err == nil:
		slog.Info("account flags cleared", "path", r.URL.Path, "matched", matched, "by", middleware.GetUserID(r.Context()))
		writeJSON(w, http.StatusOK, models.NewSuccessResponse(fmt.Sprintf(successFormat, matched)))
	case errors.Is(err, services.ErrUsernamesRequired):
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse(models.MsgUsernamesNotProvided))
	default:
		slog.Error("clearing account flags failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to update accounts"))
	}
}
