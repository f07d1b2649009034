package routes

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/WSG23/optimal-build-sub005/internal/queue"
	"github.com/WSG23/optimal-build-sub005/internal/server/middleware"
	"github.com/WSG23/optimal-build-sub005/pkg/logger"
)

// CreateExportHandler queues an export job for a project. The render itself
// runs on the worker; the response only acknowledges the enqueue.
func CreateExportHandler(c echo.Context) error {
	type createExportBody struct {
		Format                  string `json:"format" validate:"required,oneof=dxf dwg ifc pdf"`
		IncludeSource           *bool  `json:"include_source"`
		IncludeApprovedOverlays *bool  `json:"include_approved_overlays"`
		IncludePendingOverlays  *bool  `json:"include_pending_overlays"`
		IncludeRejectedOverlays *bool  `json:"include_rejected_overlays"`
		PendingWatermark        string `json:"pending_watermark"`
	}

	type createExportResponse struct {
		Message string `json:"message"`
	}

	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, createExportResponse{
			Message: "Invalid project id",
		})
	}

	data := new(createExportBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createExportResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createExportResponse{
			Message: "Invalid request body",
		})
	}

	msg := queue.ExportJobMsg{
		ProjectID:               projectID,
		Format:                  data.Format,
		IncludeSource:           data.IncludeSource,
		IncludeApprovedOverlays: data.IncludeApprovedOverlays,
		IncludePendingOverlays:  data.IncludePendingOverlays,
		IncludeRejectedOverlays: data.IncludeRejectedOverlays,
		PendingWatermark:        data.PendingWatermark,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error("Failed to marshal export job", "project_id", projectID, "err", err)
		return c.JSON(http.StatusInternalServerError, createExportResponse{
			Message: "Internal server error",
		})
	}

	ch := c.(*middleware.AppContext).App.Queue
	if err := queue.Publish(ch, queue.ExportQueue, body); err != nil {
		logger.Error("Failed to queue export job", "project_id", projectID, "err", err)
		return c.JSON(http.StatusInternalServerError, createExportResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, createExportResponse{
		Message: "Export queued",
	})
}
