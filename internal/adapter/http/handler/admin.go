package handler

import (
	"context"
	"net/http"

	"github.com/Dias-T/tow-dispatch-system/internal/adapter/http/handler/dto"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
	"github.com/Dias-T/tow-dispatch-system/pkg/validator"
)

type Admin struct {
	lifecycle LifecycleApplier
	counter   DriverCounter
	l         logger.Logger
}

type DriverCounter interface {
	CountAvailable(ctx context.Context) (int, error)
}

func NewAdmin(lifecycle LifecycleApplier, counter DriverCounter, l logger.Logger) *Admin {
	return &Admin{
		lifecycle: lifecycle,
		counter:   counter,
		l:         l,
	}
}

// Override godoc
// @Summary      Force a lifecycle event onto a request
// @Description  The event is validated against the same transition rules as regular operations
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request_id  path  string           true  "Request ID"
// @Param        request     body  dto.OverrideReq  true  "Event to apply"
// @Success      200  {object}  map[string]any
// @Router       /admin/tows/{request_id}/override [post]
func (h *Admin) Override(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_override")

	admin := models.UserFromContext(ctx)
	if admin == nil || admin.IsAnonymous() {
		errorResponse(w, http.StatusUnauthorized, "authorization required")
		return
	}

	requestID, err := uuid.Parse(r.PathValue("request_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid request uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid request uuid format")
		return
	}

	var overrideReq dto.OverrideReq
	if err := readJSON(w, r, &overrideReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	overrideReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	req, err := h.lifecycle.Apply(ctx, requestID, overrideReq.ToEvent(admin.ID))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to apply admin override", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"request_id": req.ID,
		"status":     req.Status,
		"event":      overrideReq.Event,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "admin override applied", "request_id", requestID, "event", overrideReq.Event)
}

// GetOverview godoc
// @Summary      System overview
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /admin/overview [get]
func (h *Admin) GetOverview(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "admin_overview")

	available, err := h.counter.CountAvailable(ctx)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to count available drivers", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"drivers_available": available}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}
