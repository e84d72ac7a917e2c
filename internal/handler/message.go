package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/supervitec/field-movement-api/internal/middleware"
	"github.com/supervitec/field-movement-api/internal/model"
	"github.com/supervitec/field-movement-api/internal/repository"
)

// MessageHandler implements the in-app messaging endpoints.
type MessageHandler struct {
	Messages *repository.MessageRepo
	Users    *repository.UserRepo
	Log      zerolog.Logger
}

type sendMessageRequest struct {
	RecipientID uint64 `json:"recipient_id"`
	Kind        string `json:"kind"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
}

// Send delivers a message. Admins may message anyone; field personnel
// may only message admins, so the channel stays worker-to-supervisor.
func (h *MessageHandler) Send(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}

	var fields []string
	if req.RecipientID == 0 {
		fields = append(fields, "recipient_id")
	}
	if req.Body == "" {
		fields = append(fields, "body")
	}
	if req.Kind == "" {
		req.Kind = model.MessageGeneral
	}
	if !model.ValidMessageKind(req.Kind) {
		fields = append(fields, "kind")
	}
	if len(fields) > 0 {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", fields)
	}

	ctx := c.Request().Context()
	recipient, err := h.Users.GetByID(ctx, req.RecipientID)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "recipient not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("messages: load recipient")
		return jsonError(c, http.StatusInternalServerError, "could not send message")
	}
	if middleware.Role(c) != model.RoleAdmin && recipient.Role != model.RoleAdmin {
		return jsonError(c, http.StatusForbidden, "insufficient permissions")
	}

	msg := model.Message{
		SenderID:    middleware.UserID(c),
		RecipientID: req.RecipientID,
		Kind:        req.Kind,
		Subject:     req.Subject,
		Body:        req.Body,
	}
	id, err := h.Messages.Create(ctx, msg)
	if err != nil {
		h.Log.Error().Err(err).Msg("messages: create")
		return jsonError(c, http.StatusInternalServerError, "could not send message")
	}
	h.Log.Info().Uint64("message_id", id).Uint64("sender_id", msg.SenderID).
		Uint64("recipient_id", msg.RecipientID).Msg("message sent")
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message_id": id})
}

// Inbox returns the caller's messages plus the unread count.
func (h *MessageHandler) Inbox(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)

	messages, err := h.Messages.Inbox(ctx, userID)
	if err != nil {
		h.Log.Error().Err(err).Msg("messages: inbox")
		return jsonError(c, http.StatusInternalServerError, "could not load inbox")
	}
	unread, err := h.Messages.CountUnread(ctx, userID)
	if err != nil {
		h.Log.Error().Err(err).Msg("messages: unread count")
		return jsonError(c, http.StatusInternalServerError, "could not load inbox")
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":  true,
		"messages": messages,
		"unread":   unread,
	})
}

// Get returns one message. Visible to its sender, its recipient and
// admins; anyone else gets 403.
func (h *MessageHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	msg, err := h.Messages.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "message not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Uint64("message_id", id).Msg("messages: get")
		return jsonError(c, http.StatusInternalServerError, "could not load message")
	}
	if !msg.IsActive {
		return jsonError(c, http.StatusNotFound, "message not found")
	}
	callerID := middleware.UserID(c)
	if msg.SenderID != callerID && msg.RecipientID != callerID && middleware.Role(c) != model.RoleAdmin {
		return jsonError(c, http.StatusForbidden, "insufficient permissions")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": msg})
}

// MarkRead flags one message in the caller's inbox as read.
func (h *MessageHandler) MarkRead(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	err = h.Messages.MarkRead(c.Request().Context(), id, middleware.UserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "message not found")
	}
	if errors.Is(err, repository.ErrForbidden) {
		return jsonError(c, http.StatusForbidden, "insufficient permissions")
	}
	if err != nil {
		h.Log.Error().Err(err).Uint64("message_id", id).Msg("messages: mark read")
		return jsonError(c, http.StatusInternalServerError, "could not update message")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "marked as read"})
}

// MarkAllRead flags the caller's whole inbox as read.
func (h *MessageHandler) MarkAllRead(c echo.Context) error {
	n, err := h.Messages.MarkAllRead(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		h.Log.Error().Err(err).Msg("messages: mark all read")
		return jsonError(c, http.StatusInternalServerError, "could not update messages")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "updated": n})
}

// Delete hides a message from the caller's inbox.
func (h *MessageHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	err = h.Messages.SoftDelete(c.Request().Context(), id, middleware.UserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "message not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Uint64("message_id", id).Msg("messages: delete")
		return jsonError(c, http.StatusInternalServerError, "could not delete message")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "message deleted"})
}

// ListAll returns every active message in the system. Admin only.
func (h *MessageHandler) ListAll(c echo.Context) error {
	messages, err := h.Messages.ListAll(c.Request().Context())
	if err != nil {
		h.Log.Error().Err(err).Msg("messages: list all")
		return jsonError(c, http.StatusInternalServerError, "could not list messages")
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "messages": messages})
}

// ListForUser returns one user's full message thread (sent and
// received). Admin only.
func (h *MessageHandler) ListForUser(c echo.Context) error {
	userID, err := strconv.ParseUint(c.Param("userId"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"userId"})
	}
	messages, err := h.Messages.ListForUser(c.Request().Context(), userID)
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", userID).Msg("messages: list for user")
		return jsonError(c, http.StatusInternalServerError, "could not list messages")
	}
	if messages == nil {
		messages = []model.Message{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "messages": messages})
}
