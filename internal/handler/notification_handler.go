package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	appErr "github.com/yuanjian-org/app-sub000/internal/errors"
	"github.com/yuanjian-org/app-sub000/internal/model"
	"github.com/yuanjian-org/app-sub000/internal/service"
)

type NotificationHandler struct {
	notifySvc    service.NotifyService
	scheduledSvc service.ScheduledService
	defaults     model.TemplateSet
	logger       *slog.Logger
}

func NewNotificationHandler(
	notifySvc service.NotifyService,
	scheduledSvc service.ScheduledService,
	defaults model.TemplateSet,
	logger *slog.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notifySvc:    notifySvc,
		scheduledSvc: scheduledSvc,
		defaults:     defaults,
		logger:       logger.With("layer", "handler"),
	}
}

type notifyRequest struct {
	Type        model.NotificationType `json:"type"`
	UserIDs     []string               `json:"user_ids"`
	TemplateSet *model.TemplateSet     `json:"template_set,omitempty"`
	Vars        model.Vars             `json:"vars"`
}

// Notify sends a notification to a list of users right away.
func (h *NotificationHandler) Notify(w http.ResponseWriter, r *http.Request) {
	var req notifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid notify payload", slog.String("error", err.Error()))
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !req.Type.Valid() {
		respondError(w, http.StatusBadRequest, "unknown notification type")
		return
	}
	if len(req.UserIDs) == 0 {
		respondError(w, http.StatusBadRequest, "user_ids cannot be empty")
		return
	}

	ts := h.defaults
	if req.TemplateSet != nil && !req.TemplateSet.IsZero() {
		ts = *req.TemplateSet
	}

	if err := h.notifySvc.Notify(r.Context(), req.Type, req.UserIDs, ts, req.Vars); err != nil {
		if appErr.IsInvalidInput(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

type notifyRolesRequest struct {
	Type    model.NotificationType `json:"type"`
	Roles   []model.Role           `json:"roles"`
	Subject string                 `json:"subject"`
	Content string                 `json:"content"`
}

// NotifyRoles alerts every holder of the given roles. Delivery is best
// effort so the caller only learns that the request was accepted.
func (h *NotificationHandler) NotifyRoles(w http.ResponseWriter, r *http.Request) {
	var req notifyRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid notify roles payload", slog.String("error", err.Error()))
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if !req.Type.Valid() {
		respondError(w, http.StatusBadRequest, "unknown notification type")
		return
	}
	if len(req.Roles) == 0 {
		respondError(w, http.StatusBadRequest, "roles cannot be empty")
		return
	}

	h.notifySvc.NotifyRolesBestEffort(r.Context(), req.Type, req.Roles, req.Subject, req.Content)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

type scheduleRequest struct {
	Type      string `json:"type"`
	SubjectID string `json:"subject_id"`
}

// Schedule enqueues a debounced notification.
func (h *NotificationHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid schedule payload", slog.String("error", err.Error()))
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	t, err := model.ParseScheduledType(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.scheduledSvc.Schedule(r.Context(), t, req.SubjectID); err != nil {
		if appErr.IsInvalidInput(err) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to schedule notification")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
}

// Sweep runs one sweep of the scheduled-notification queue.
func (h *NotificationHandler) Sweep(w http.ResponseWriter, r *http.Request) {
	if err := h.scheduledSvc.Sweep(r.Context()); err != nil {
		h.logger.Error("Manual sweep finished with errors", slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
