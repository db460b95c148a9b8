package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Dias-T/tow-dispatch-system/internal/adapter/http/handler/dto"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/Dias-T/tow-dispatch-system/internal/service/fare"
	"github.com/Dias-T/tow-dispatch-system/internal/service/geo"
	"github.com/Dias-T/tow-dispatch-system/internal/service/request"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
	"github.com/Dias-T/tow-dispatch-system/pkg/validator"
)

type Tow struct {
	service    TowService
	dispatcher Dispatcher
	fares      FareService
	l          logger.Logger
}

type TowService interface {
	Create(ctx context.Context, in request.CreateInput) (*models.Request, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Request, error)
	Timeline(ctx context.Context, id uuid.UUID) ([]models.TimelineEntry, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Request, error)
}

// Dispatcher owns broadcast rounds and their timers. Requests enter and
// leave the offer process only through it.
type Dispatcher interface {
	Dispatch(ctx context.Context, requestID uuid.UUID) error
	Cancel(ctx context.Context, requestID uuid.UUID, reason string) (*models.Request, error)
}

type FareService interface {
	Quote(ctx context.Context, in fare.QuoteInput) (models.FareBreakdown, error)
}

func NewTow(service TowService, dispatcher Dispatcher, fares FareService, l logger.Logger) *Tow {
	return &Tow{
		service:    service,
		dispatcher: dispatcher,
		fares:      fares,
		l:          l,
	}
}

// CreateTow godoc
// @Summary      Create tow request
// @Description  Creates a tow request and starts broadcasting it to nearby drivers
// @Tags         Tows
// @Accept       json
// @Produce      json
// @Param        request  body  dto.CreateTowReq  true  "New tow request"
// @Success      201  {object}  map[string]any
// @Router       /tows [post]
func (h *Tow) CreateTow(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "create_tow_request")

	user := models.UserFromContext(ctx)
	if user == nil || user.IsAnonymous() {
		errorResponse(w, http.StatusUnauthorized, "authorization required")
		return
	}

	var createReq dto.CreateTowReq
	if err := readJSON(w, r, &createReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	createReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	req, err := h.service.Create(ctx, createReq.ToInput(user.ID))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to create tow request", err)
		serviceErrorResponse(w, err)
		return
	}

	// Заявка создана, предложения водителям уходят сразу же. Если рядом
	// никого нет, заявка остается в PENDING.
	broadcastStatus := "broadcasting"
	if err := h.dispatcher.Dispatch(ctx, req.ID); err != nil {
		h.l.Warn(ctx, "broadcast did not start", "reason", err.Error(), "request_id", req.ID)
		broadcastStatus = "no drivers available"
	}

	response := envelope{
		"request_id":      req.ID,
		"request_number":  req.RequestNumber,
		"status":          req.Status,
		"estimated_price": req.EstimatedPrice,
		"broadcast":       broadcastStatus,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "tow request created", "request_id", req.ID, "request_number", req.RequestNumber)
}

// GetTow godoc
// @Summary      Get tow request
// @Tags         Tows
// @Produce      json
// @Param        request_id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]any
// @Router       /tows/{request_id} [get]
func (h *Tow) GetTow(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_tow_request")

	requestID, err := uuid.Parse(r.PathValue("request_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid request uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid request uuid format")
		return
	}

	req, err := h.service.Get(ctx, requestID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get tow request", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"request": req}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

// CancelTow godoc
// @Summary      Cancel tow request
// @Tags         Tows
// @Accept       json
// @Produce      json
// @Param        request_id  path  string            true  "Request ID"
// @Param        request     body  dto.CancelTowReq  true  "Cancellation reason"
// @Success      200  {object}  map[string]any
// @Router       /tows/{request_id}/cancel [post]
func (h *Tow) CancelTow(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "cancel_tow_request")

	requestID, err := uuid.Parse(r.PathValue("request_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid request uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid request uuid format")
		return
	}

	var cancelReq dto.CancelTowReq
	if err := readJSON(w, r, &cancelReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	cancelReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	req, err := h.dispatcher.Cancel(ctx, requestID, cancelReq.Reason)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to cancel tow request", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"request_id":   req.ID,
		"status":       req.Status,
		"cancelled_at": req.CancelledAt,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "tow request cancelled", "request_id", requestID)
}

// GetTimeline godoc
// @Summary      Get tow request timeline
// @Tags         Tows
// @Produce      json
// @Param        request_id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]any
// @Router       /tows/{request_id}/timeline [get]
func (h *Tow) GetTimeline(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "get_tow_timeline")

	requestID, err := uuid.Parse(r.PathValue("request_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid request uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid request uuid format")
		return
	}

	entries, err := h.service.Timeline(ctx, requestID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to get request timeline", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"request_id": requestID, "timeline": entries}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

// ListMine godoc
// @Summary      List own tow requests
// @Tags         Tows
// @Produce      json
// @Param        limit   query  int  false  "Page size"
// @Param        offset  query  int  false  "Page offset"
// @Success      200  {object}  map[string]any
// @Router       /tows [get]
func (h *Tow) ListMine(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "list_own_tow_requests")

	user := models.UserFromContext(ctx)
	if user == nil || user.IsAnonymous() {
		errorResponse(w, http.StatusUnauthorized, "authorization required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	requests, err := h.service.ListByUser(ctx, user.ID, limit, offset)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to list tow requests", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"requests": requests}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

// QuoteFare godoc
// @Summary      Quote a fare without creating a request
// @Tags         Tows
// @Accept       json
// @Produce      json
// @Param        request  body  dto.QuoteReq  true  "Trip parameters"
// @Success      200  {object}  map[string]any
// @Router       /tows/quote [post]
func (h *Tow) QuoteFare(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "quote_fare")

	var quoteReq dto.QuoteReq
	if err := readJSON(w, r, &quoteReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	quoteReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	breakdown, err := h.fares.Quote(ctx, quoteInput(quoteReq))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to quote fare", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"fare": breakdown}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

func quoteInput(q dto.QuoteReq) fare.QuoteInput {
	in := fare.QuoteInput{
		TowType:         types.TowType(q.TowType),
		VehicleCategory: types.VehicleCategory(q.VehicleCategory),
		Pickup:          q.Pickup.ToModel(),
	}
	if q.Dropoff != nil {
		dropoff := q.Dropoff.ToModel()
		in.Dropoff = &dropoff
		in.DistanceKm = geo.HaversineDistance(
			in.Pickup.Latitude, in.Pickup.Longitude,
			dropoff.Latitude, dropoff.Longitude,
		)
	}
	return in
}
