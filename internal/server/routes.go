package server

import (
	"github.com/labstack/echo/v4"

	"github.com/WSG23/optimal-build-sub005/internal/server/routes"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Project export routes
	apiRoutes.POST("/projects/:id/exports", routes.CreateExportHandler)
	apiRoutes.GET("/projects/:id/exports", routes.ListExportsHandler)
	apiRoutes.GET("/projects/:id/exports/download", routes.DownloadExportHandler)
}
