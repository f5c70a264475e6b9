package handler

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// RegisterRoutes mounts the API v1 routes on api. auth guards every plan
// route; limit additionally guards plan submission.
func RegisterRoutes(api *mux.Router, plans *PlanHandler, destinations *DestinationHandler, auth, limit Middleware) {
	// Destination safety lookup is public.
	api.HandleFunc("/destinations/verify", destinations.Verify).Methods(http.MethodPost)

	// Plans (authenticated)
	p := api.PathPrefix("/plans").Subrouter()
	p.Use(mux.MiddlewareFunc(auth))
	p.Handle("", limit(http.HandlerFunc(plans.CreatePlan))).Methods(http.MethodPost)
	p.HandleFunc("", plans.ListPlans).Methods(http.MethodGet)
	p.HandleFunc("/{id}", plans.GetPlan).Methods(http.MethodGet)
	p.HandleFunc("/{id}/rating", plans.RatePlan).Methods(http.MethodPatch)
	p.HandleFunc("/{id}/visibility", plans.SetVisibility).Methods(http.MethodPatch)
}
