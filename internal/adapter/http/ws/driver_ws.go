package wshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Dias-T/tow-dispatch-system/internal/adapter/http/ws/dto"
	"github.com/Dias-T/tow-dispatch-system/internal/domain/models"
	"github.com/Dias-T/tow-dispatch-system/pkg/logger"
	wrap "github.com/Dias-T/tow-dispatch-system/pkg/logger/wrapper"
	"github.com/Dias-T/tow-dispatch-system/pkg/metrics"
	"github.com/Dias-T/tow-dispatch-system/pkg/uuid"
	"github.com/Dias-T/tow-dispatch-system/pkg/validator"
	ws "github.com/Dias-T/tow-dispatch-system/pkg/wsHub"
)

const serviceName = "dispatch"

// OfferResolver resolves driver answers against the active broadcast round.
type OfferResolver interface {
	ResolveAcceptance(ctx context.Context, requestID, driverID uuid.UUID) (*models.Request, error)
	ResolveDecline(ctx context.Context, requestID, driverID uuid.UUID) error
}

type DriverHub struct {
	connections *ws.ConnectionHub
	resolver    OfferResolver
	upgrader    websocket.Upgrader
	l           logger.Logger
}

func NewDriverHub(connHub *ws.ConnectionHub, l logger.Logger) *DriverHub {
	return &DriverHub{
		connections: connHub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		l: l,
	}
}

// SetResolver binds the coordinator after construction. The hub and the
// coordinator reference each other, so one side has to be bound late.
func (h *DriverHub) SetResolver(r OfferResolver) {
	h.resolver = r
}

// SendOffer pushes a tow offer to the driver's socket. Fire-and-forget,
// the driver answers with an offer_response message or over HTTP.
func (h *DriverHub) SendOffer(ctx context.Context, driverID uuid.UUID, offer models.TowOffer) error {
	const op = "DriverHub.SendOffer"

	// Преобразуем структуру в map
	var msg map[string]any
	data, err := json.Marshal(offer)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := h.connections.SendTo(driverID, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// HandleWS upgrades the request to a WebSocket connection and listens
// for driver messages until the socket closes.
func (h *DriverHub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ctx := wrap.WithAction(r.Context(), "driver_websocket")

	driverID, err := uuid.Parse(r.PathValue("driver_id"))
	if err != nil {
		h.l.Warn(ctx, "invalid driver uuid format")
		http.Error(w, "invalid driver uuid format", http.StatusBadRequest)
		return
	}
	ctx = wrap.WithDriverID(ctx, driverID.String())

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to upgrade connection", err)
		return
	}

	conn := ws.NewConn(context.WithoutCancel(ctx), driverID, wsConn)
	if err := h.connections.Add(conn); err != nil {
		h.l.Error(wrap.ErrorCtx(ctx, err), "failed to register driver connection", err)
		conn.Close()
		return
	}

	metrics.WebSocketConnectionsGauge.WithLabelValues(serviceName).Inc()
	h.l.Info(ctx, "driver connected", "driver_id", driverID)

	defer func() {
		metrics.WebSocketConnectionsGauge.WithLabelValues(serviceName).Dec()
		if err := h.connections.Delete(driverID); err != nil {
			h.l.Warn(ctx, "failed to drop driver connection", "driver_id", driverID)
		}
		h.l.Info(ctx, "driver disconnected", "driver_id", driverID)
	}()

	if err := conn.Listen(func(msg map[string]any) error {
		return h.handleMessage(ctx, conn, driverID, msg)
	}); err != nil {
		h.l.Debug(ctx, "driver socket closed", "reason", err.Error())
	}
}

// handleMessage routes one incoming driver message. Unknown message
// types are answered with an error but keep the socket open.
func (h *DriverHub) handleMessage(ctx context.Context, conn *ws.Conn, driverID uuid.UUID, msg map[string]any) error {
	msgType, _ := msg["type"].(string)
	if msgType != "offer_response" {
		return errorResponse(conn, fmt.Sprintf("unknown message type %q", msgType))
	}

	var resp dto.OfferResp
	data, err := json.Marshal(msg)
	if err != nil {
		return errorResponse(conn, err.Error())
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return errorResponse(conn, err.Error())
	}

	v := validator.New()
	resp.Validate(v)
	if !v.Valid() {
		return failedValidationResponse(conn, v.Errors)
	}

	if *resp.Accepted {
		req, err := h.resolver.ResolveAcceptance(ctx, resp.RequestID, driverID)
		if err != nil {
			h.l.Warn(ctx, "offer acceptance rejected", "request_id", resp.RequestID, "reason", err.Error())
			return errorResponse(conn, err.Error())
		}
		return conn.Send(map[string]any{
			"type":           "offer_result",
			"offer_id":       resp.ID,
			"request_id":     req.ID,
			"request_number": req.RequestNumber,
			"status":         req.Status,
		})
	}

	if err := h.resolver.ResolveDecline(ctx, resp.RequestID, driverID); err != nil {
		h.l.Warn(ctx, "offer decline rejected", "request_id", resp.RequestID, "reason", err.Error())
		return errorResponse(conn, err.Error())
	}
	return conn.Send(map[string]any{
		"type":       "offer_result",
		"offer_id":   resp.ID,
		"request_id": resp.RequestID,
		"declined":   true,
	})
}
