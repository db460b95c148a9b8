package handler

import (
	"context"
	"net/http"

	"github.com/Dias-T/tow-dispatch-system/internal/adapter/http/handler/dto"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/internal/service/request"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
	"github.com/Dias-T/tow-dispatch-system/pkg/validator"
)

type Driver struct {
	geo        GeoService
	dispatcher DriverDispatcher
	lifecycle  LifecycleApplier
	l          logger.Logger
}

type GeoService interface {
	Register(ctx context.Context, driver *models.Driver) error
	UpdateLocation(ctx context.Context, driverID uuid.UUID, lat, lon float64) error
	SetAvailability(ctx context.Context, driverID uuid.UUID, available bool) error
}

// DriverDispatcher resolves offer answers against the active broadcast
// round.
type DriverDispatcher interface {
	ResolveAcceptance(ctx context.Context, requestID, driverID uuid.UUID) (*models.Request, error)
	ResolveDecline(ctx context.Context, requestID, driverID uuid.UUID) error
}

// LifecycleApplier feeds post-assignment progress events through the
// transition gate.
type LifecycleApplier interface {
	Apply(ctx context.Context, id uuid.UUID, ev request.Event) (*models.Request, error)
}

func NewDriver(geo GeoService, dispatcher DriverDispatcher, lifecycle LifecycleApplier, l logger.Logger) *Driver {
	return &Driver{
		geo:        geo,
		dispatcher: dispatcher,
		lifecycle:  lifecycle,
		l:          l,
	}
}

// Register godoc
// @Summary      Register a driver profile
// @Description  Creates or refreshes the driver record for the authenticated driver.
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        request  body  dto.RegisterDriverReq  true  "Driver profile"
// @Success      201  {object}  map[string]any
// @Router       /drivers [post]
func (h *Driver) Register(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "register_driver")

	user := models.UserFromContext(ctx)
	if user == nil || user.IsAnonymous() {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}
	ctx = wrap.WithDriverID(ctx, user.ID.String())

	var regReq dto.RegisterDriverReq
	if err := readJSON(w, r, &regReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	regReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	driver := regReq.ToModel(user.ID)
	if err := h.geo.Register(ctx, driver); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register driver", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"driver_id": driver.ID,
		"name":      driver.Name,
		"tow_type":  driver.TowType,
		"available": driver.IsAvailable,
	}

	if err := writeJSON(w, http.StatusCreated, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

// UpdateLocation godoc
// @Summary      Update driver location
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        driver_id  path  string                 true  "Driver ID"
// @Param        request    body  dto.LocationUpdateReq  true  "Coordinates"
// @Success      200  {object}  map[string]any
// @Router       /drivers/{driver_id}/location [post]
func (h *Driver) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "update_driver_location")

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid driver uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid driver uuid format")
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	var locReq dto.LocationUpdateReq
	if err := readJSON(w, r, &locReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	locReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	if err := h.geo.UpdateLocation(ctx, driverID, *locReq.Latitude, *locReq.Longitude); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to update driver location", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"driver_id": driverID,
		"latitude":  *locReq.Latitude,
		"longitude": *locReq.Longitude,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

// SetAvailability godoc
// @Summary      Toggle driver availability
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        driver_id  path  string               true  "Driver ID"
// @Param        request    body  dto.AvailabilityReq  true  "Availability flag"
// @Success      200  {object}  map[string]any
// @Router       /drivers/{driver_id}/availability [post]
func (h *Driver) SetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "set_driver_availability")

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid driver uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid driver uuid format")
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	var availReq dto.AvailabilityReq
	if err := readJSON(w, r, &availReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	availReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	if err := h.geo.SetAvailability(ctx, driverID, *availReq.Available); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to set driver availability", err)
		serviceErrorResponse(w, err)
		return
	}

	status := "UNAVAILABLE"
	if *availReq.Available {
		status = "AVAILABLE"
	}

	if err := writeJSON(w, http.StatusOK, envelope{"driver_id": driverID, "status": status}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "driver availability updated", "driver_id", driverID, "available", *availReq.Available)
}

// AcceptOffer godoc
// @Summary      Accept a broadcast tow request
// @Tags         Drivers
// @Produce      json
// @Param        driver_id   path  string  true  "Driver ID"
// @Param        request_id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]any
// @Router       /drivers/{driver_id}/offers/{request_id}/accept [post]
func (h *Driver) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "accept_tow_offer")

	driverID, requestID, ok := h.offerIDs(ctx, w, r)
	if !ok {
		return
	}

	req, err := h.dispatcher.ResolveAcceptance(ctx, requestID, driverID)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to accept tow offer", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"request_id":     req.ID,
		"request_number": req.RequestNumber,
		"status":         req.Status,
		"assigned_at":    req.AssignedAt,
		"pickup":         req.Pickup,
		"dropoff":        req.Dropoff,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "tow offer accepted", "request_id", requestID, "driver_id", driverID)
}

// DeclineOffer godoc
// @Summary      Decline a broadcast tow request
// @Tags         Drivers
// @Produce      json
// @Param        driver_id   path  string  true  "Driver ID"
// @Param        request_id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]any
// @Router       /drivers/{driver_id}/offers/{request_id}/decline [post]
func (h *Driver) DeclineOffer(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "decline_tow_offer")

	driverID, requestID, ok := h.offerIDs(ctx, w, r)
	if !ok {
		return
	}

	if err := h.dispatcher.ResolveDecline(ctx, requestID, driverID); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to decline tow offer", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"request_id": requestID, "declined": true}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}
}

// MarkArrived godoc
// @Summary      Driver arrived at pickup
// @Tags         Drivers
// @Produce      json
// @Param        driver_id   path  string  true  "Driver ID"
// @Param        request_id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]any
// @Router       /drivers/{driver_id}/tows/{request_id}/arrived [post]
func (h *Driver) MarkArrived(w http.ResponseWriter, r *http.Request) {
	h.progress(w, r, "mark_driver_arrived", func(driverID uuid.UUID) request.Event {
		return request.DriverArrived{DriverID: driverID}
	})
}

// StartTransit godoc
// @Summary      Start the tow leg
// @Tags         Drivers
// @Produce      json
// @Param        driver_id   path  string  true  "Driver ID"
// @Param        request_id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]any
// @Router       /drivers/{driver_id}/tows/{request_id}/transit [post]
func (h *Driver) StartTransit(w http.ResponseWriter, r *http.Request) {
	h.progress(w, r, "start_transit", func(driverID uuid.UUID) request.Event {
		return request.StartTransit{DriverID: driverID}
	})
}

// ReachDestination godoc
// @Summary      Driver reached the dropoff point
// @Tags         Drivers
// @Produce      json
// @Param        driver_id   path  string  true  "Driver ID"
// @Param        request_id  path  string  true  "Request ID"
// @Success      200  {object}  map[string]any
// @Router       /drivers/{driver_id}/tows/{request_id}/destination [post]
func (h *Driver) ReachDestination(w http.ResponseWriter, r *http.Request) {
	h.progress(w, r, "reach_destination", func(driverID uuid.UUID) request.Event {
		return request.DestinationReached{DriverID: driverID}
	})
}

// CompleteTow godoc
// @Summary      Complete the tow
// @Tags         Drivers
// @Accept       json
// @Produce      json
// @Param        driver_id   path  string              true  "Driver ID"
// @Param        request_id  path  string              true  "Request ID"
// @Param        request     body  dto.CompleteTowReq  true  "Final price and artifacts"
// @Success      200  {object}  map[string]any
// @Router       /drivers/{driver_id}/tows/{request_id}/complete [post]
func (h *Driver) CompleteTow(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "complete_tow")

	driverID, requestID, ok := h.offerIDs(ctx, w, r)
	if !ok {
		return
	}

	var completeReq dto.CompleteTowReq
	if err := readJSON(w, r, &completeReq); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to read request JSON data", err)
		errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	v := validator.New()
	completeReq.Validate(v)
	if !v.Valid() {
		h.l.Warn(ctx, "invalid request data")
		failedValidationResponse(w, v.Errors)
		return
	}

	req, err := h.lifecycle.Apply(ctx, requestID, request.Complete{
		DriverID:    driverID,
		ActualPrice: *completeReq.ActualPrice,
		Artifacts:   completeReq.Artifacts,
	})
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to complete tow", err)
		serviceErrorResponse(w, err)
		return
	}

	response := envelope{
		"request_id":      req.ID,
		"status":          req.Status,
		"estimated_price": req.EstimatedPrice,
		"actual_price":    req.ActualPrice,
		"completed_at":    req.CompletedAt,
	}

	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "tow completed", "request_id", requestID, "driver_id", driverID)
}

// progress is the shared body of the three milestone endpoints.
func (h *Driver) progress(w http.ResponseWriter, r *http.Request, action string, build func(driverID uuid.UUID) request.Event) {
	ctx := wrap.WithAction(r.Context(), action)

	driverID, requestID, ok := h.offerIDs(ctx, w, r)
	if !ok {
		return
	}

	req, err := h.lifecycle.Apply(ctx, requestID, build(driverID))
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to advance tow", err)
		serviceErrorResponse(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, envelope{"request_id": req.ID, "status": req.Status}, nil); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to write response", err)
		internalErrorResponse(w, err.Error())
		return
	}

	h.l.Info(ctx, "tow status advanced", "request_id", requestID, "driver_id", driverID, "status", req.Status)
}

func (h *Driver) offerIDs(ctx context.Context, w http.ResponseWriter, r *http.Request) (driverID, requestID uuid.UUID, ok bool) {
	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid driver uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid driver uuid format")
		return uuid.Nil, uuid.Nil, false
	}

	requestID, err = uuid.Parse(r.PathValue("request_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid request uuid format")
		errorResponse(w, http.StatusBadRequest, "invalid request uuid format")
		return uuid.Nil, uuid.Nil, false
	}

	return driverID, requestID, true
}
