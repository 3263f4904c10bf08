package rest

import (
	"github.com/dmitrijs2005/licensegate/internal/logging"
	"github.com/dmitrijs2005/licensegate/internal/server/router"
	"go.opentelemetry.io/otel/metric"
)

// NewHandler assembles the complete HTTP route table.
func NewHandler(users UserService, sessions SessionResolver, exam ExamService, log logging.Logger, meter metric.Meter) *router.Router {
	return router.NewBuilder(log, meter).
		Add(
			NewUserRoutes(users, sessions, log),
			NewGameRoutes(exam, sessions, log),
			HealthRoutes{},
		).
		NotFound(NotFound)
}
