package rest

import (
	"net/http"

	"github.com/dmitrijs2005/licensegate/internal/server/router"
)

type HealthRoutes struct{}

func (HealthRoutes) Routes() []router.Route {
	return []router.Route{
		{Method: http.MethodGet, Path: "/health", Handler: Health},
	}
}

func Health(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "OK")
}
