package server

import (
	"github.com/Dias-T/tow-dispatch-system/internal/domain/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Dias-T/tow-dispatch-system/docs"
)

// setupRoutes - setups http routes
func (a *API) setupRoutes() {
	mux := a.mux
	m := a.m
	routes := a.routes

	// System Health
	mux.HandleFunc("/health", routes.health.HealthCheck)

	// Swagger UI endpoint
	mux.HandleFunc("/swagger/", httpSwagger.Handler())

	// Prometheus metrics
	mux.Handle("/metrics", promhttp.Handler())

	// Customer endpoints
	mux.Handle("POST /tows", m.RequireRoles(routes.tow.CreateTow, types.RoleUser, types.RoleAdmin))        // Create a tow request and broadcast it
	mux.Handle("GET /tows", m.RequireRoles(routes.tow.ListMine, types.RoleUser, types.RoleAdmin))          // List own requests
	mux.HandleFunc("POST /tows/quote", routes.tow.QuoteFare)                                               // Quote a fare without creating a request
	mux.Handle("GET /tows/{request_id}", m.RequireRoles(routes.tow.GetTow, types.RoleUser, types.RoleDriver, types.RoleAdmin))
	mux.Handle("GET /tows/{request_id}/timeline", m.RequireRoles(routes.tow.GetTimeline, types.RoleUser, types.RoleAdmin))
	mux.Handle("POST /tows/{request_id}/cancel", m.RequireRoles(routes.tow.CancelTow, types.RoleUser, types.RoleAdmin)) // Cancel a tow request

	// Driver endpoints
	mux.Handle("POST /drivers", m.RequireRoles(routes.driver.Register, types.RoleDriver)) // Register or refresh the driver profile
	mux.Handle("POST /drivers/{driver_id}/location", m.RequireRoles(routes.driver.UpdateLocation, types.RoleDriver))
	mux.Handle("POST /drivers/{driver_id}/availability", m.RequireRoles(routes.driver.SetAvailability, types.RoleDriver))
	mux.Handle("POST /drivers/{driver_id}/offers/{request_id}/accept", m.RequireRoles(routes.driver.AcceptOffer, types.RoleDriver))
	mux.Handle("POST /drivers/{driver_id}/offers/{request_id}/decline", m.RequireRoles(routes.driver.DeclineOffer, types.RoleDriver))
	mux.Handle("POST /drivers/{driver_id}/tows/{request_id}/arrived", m.RequireRoles(routes.driver.MarkArrived, types.RoleDriver))
	mux.Handle("POST /drivers/{driver_id}/tows/{request_id}/transit", m.RequireRoles(routes.driver.StartTransit, types.RoleDriver))
	mux.Handle("POST /drivers/{driver_id}/tows/{request_id}/destination", m.RequireRoles(routes.driver.ReachDestination, types.RoleDriver))
	mux.Handle("POST /drivers/{driver_id}/tows/{request_id}/complete", m.RequireRoles(routes.driver.CompleteTow, types.RoleDriver))
	mux.HandleFunc("GET /ws/drivers/{driver_id}", routes.driverHub.HandleWS) // WebSocket connection for drivers

	// Admin endpoints
	mux.Handle("POST /admin/tows/{request_id}/override", m.RequireRoles(routes.admin.Override, types.RoleAdmin))
	mux.Handle("GET /admin/overview", m.RequireRoles(routes.admin.GetOverview, types.RoleAdmin))
}
