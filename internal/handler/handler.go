// Package handler exposes the domain services over HTTP/JSON.
package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/application"
	"github.com/xenking/tastetrack/internal/domain/auth"
	"github.com/xenking/tastetrack/internal/domain/catalog"
	"github.com/xenking/tastetrack/internal/domain/order"
	"github.com/xenking/tastetrack/internal/domain/user"
	"github.com/xenking/tastetrack/internal/domain/vendor"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// TrackingBaseURL is the public URL the order tracking QR codes point
	// to; the order number is appended as the last path segment.
	TrackingBaseURL string
}

// Services groups the domain services served by the Handler.
type Services struct {
	Auth         *auth.Service
	Catalog      *catalog.Service
	Orders       *order.Service
	Applications *application.Service
	Vendor       *vendor.Service
}

// Handler routes HTTP requests to the domain services.
type Handler struct {
	auth         *auth.Service
	catalog      *catalog.Service
	orders       *order.Service
	applications *application.Service
	vendor       *vendor.Service
	trackingURL  string
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(cfg Config, svc Services) *Handler {
	return &Handler{
		auth:         svc.Auth,
		catalog:      svc.Catalog,
		orders:       svc.Orders,
		applications: svc.Applications,
		vendor:       svc.Vendor,
		trackingURL:  strings.TrimRight(cfg.TrackingBaseURL, "/"),
	}
}

// Register mounts the API routes on r under /api.
func (h *Handler) Register(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.authenticate)

	api.HandleFunc("/auth/signup", h.Signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Login).Methods(http.MethodPost)

	api.HandleFunc("/restaurants", h.ListRestaurants).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/open", h.ListOpenRestaurants).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/search", h.SearchRestaurants).Methods(http.MethodGet)
	api.HandleFunc("/restaurants/{id:[0-9]+}", h.GetRestaurant).Methods(http.MethodGet)
	api.HandleFunc("/menu-items/restaurant/{id:[0-9]+}", h.ListMenu).Methods(http.MethodGet)
	api.HandleFunc("/menu-items/restaurant/{id:[0-9]+}/category/{category}", h.ListMenuByCategory).Methods(http.MethodGet)
	api.HandleFunc("/menu-items/{id:[0-9]+}", h.GetMenuItem).Methods(http.MethodGet)

	api.Handle("/orders", authed(h.PlaceOrder)).Methods(http.MethodPost)
	api.Handle("/orders/user", authed(h.ListMyOrders)).Methods(http.MethodGet)
	api.Handle("/orders/status/{status}", requireRole(h.ListOrdersByStatus, user.RoleAdmin)).Methods(http.MethodGet)
	api.Handle("/orders/order-number/{number}", authed(h.GetOrderByNumber)).Methods(http.MethodGet)
	api.Handle("/orders/order-number/{number}/qr", authed(h.OrderQRCode)).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}", authed(h.GetOrder)).Methods(http.MethodGet)
	api.Handle("/orders/{id:[0-9]+}", authed(h.CancelOrder)).Methods(http.MethodDelete)
	api.Handle("/orders/{id:[0-9]+}/cancel", authed(h.CancelOrder)).Methods(http.MethodPut)
	api.Handle("/orders/{id:[0-9]+}/status/{status}",
		requireRole(h.UpdateOrderStatus, user.RoleAdmin, user.RoleVendor)).Methods(http.MethodPut)

	api.HandleFunc("/applyRestaurant", h.SubmitApplication).Methods(http.MethodPost)
	api.Handle("/admin/applications", requireRole(h.ListApplications, user.RoleAdmin)).Methods(http.MethodGet)
	api.Handle("/admin/applications/pending", requireRole(h.ListPendingApplications, user.RoleAdmin)).Methods(http.MethodGet)
	api.Handle("/admin/applications/{id:[0-9]+}", requireRole(h.GetApplication, user.RoleAdmin)).Methods(http.MethodGet)
	api.Handle("/admin/applications/{id:[0-9]+}/approve", requireRole(h.ApproveApplication, user.RoleAdmin)).Methods(http.MethodPost)
	api.Handle("/admin/applications/{id:[0-9]+}/reject", requireRole(h.RejectApplication, user.RoleAdmin)).Methods(http.MethodPost)

	api.Handle("/vendor/restaurant", requireRole(h.GetVendorRestaurant, user.RoleVendor)).Methods(http.MethodGet)
	api.Handle("/vendor/restaurant", requireRole(h.UpdateVendorRestaurant, user.RoleVendor)).Methods(http.MethodPut)
	api.Handle("/vendor/menu-items", requireRole(h.ListVendorMenu, user.RoleVendor)).Methods(http.MethodGet)
	api.Handle("/vendor/menu-items", requireRole(h.CreateVendorMenuItem, user.RoleVendor)).Methods(http.MethodPost)
	api.Handle("/vendor/menu-items/{id:[0-9]+}", requireRole(h.UpdateVendorMenuItem, user.RoleVendor)).Methods(http.MethodPut)
	api.Handle("/vendor/menu-items/{id:[0-9]+}", requireRole(h.DeleteVendorMenuItem, user.RoleVendor)).Methods(http.MethodDelete)
	api.Handle("/vendor/orders", requireRole(h.ListVendorOrders, user.RoleVendor)).Methods(http.MethodGet)
	api.Handle("/vendor/orders/{id:[0-9]+}/status", requireRole(h.UpdateVendorOrderStatus, user.RoleVendor)).Methods(http.MethodPut)

	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperr.New(apperr.NotFound, "route not found"))
	})
	api.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorStatus(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.New(apperr.Validation, "invalid id")
	}
	return id, nil
}
