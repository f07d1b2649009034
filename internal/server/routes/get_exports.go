package routes

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/labstack/echo/v4"

	"github.com/WSG23/optimal-build-sub005/internal/server/middleware"
	"github.com/WSG23/optimal-build-sub005/internal/storage"
	"github.com/WSG23/optimal-build-sub005/pkg/logger"
)

// ListExportsHandler lists the stored artifact keys for a project.
func ListExportsHandler(c echo.Context) error {
	type listExportsResponse struct {
		Message string   `json:"message"`
		Keys    []string `json:"keys,omitempty"`
	}

	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, listExportsResponse{
			Message: "Invalid project id",
		})
	}

	app := c.(*middleware.AppContext).App
	prefix := fmt.Sprintf("exports/%d/", projectID)

	keys := []string{}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(app.Bucket),
		Prefix: aws.String(prefix),
	}
	for {
		out, err := app.S3.ListObjectsV2(c.Request().Context(), input)
		if err != nil {
			logger.Error("Failed to list export artifacts", "project_id", projectID, "err", err)
			return c.JSON(http.StatusInternalServerError, listExportsResponse{
				Message: "Internal server error",
			})
		}
		for _, obj := range out.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, ".manifest.json") {
				continue
			}
			keys = append(keys, *obj.Key)
		}
		if out.IsTruncated != nil && *out.IsTruncated {
			input.ContinuationToken = out.NextContinuationToken
			continue
		}
		break
	}

	return c.JSON(http.StatusOK, listExportsResponse{
		Message: "OK",
		Keys:    keys,
	})
}

// DownloadExportHandler returns a time-limited download link for an artifact
// key belonging to the project.
func DownloadExportHandler(c echo.Context) error {
	type downloadResponse struct {
		Message string `json:"message"`
		URL     string `json:"url,omitempty"`
	}

	projectID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, downloadResponse{
			Message: "Invalid project id",
		})
	}

	key := c.QueryParam("key")
	if !strings.HasPrefix(key, fmt.Sprintf("exports/%d/", projectID)) {
		return c.JSON(http.StatusBadRequest, downloadResponse{
			Message: "Invalid artifact key",
		})
	}

	app := c.(*middleware.AppContext).App
	url, err := storage.GenerateDownloadLink(c.Request().Context(), app.S3, app.Bucket, key)
	if err != nil {
		logger.Error("Failed to presign artifact download", "project_id", projectID, "key", key, "err", err)
		return c.JSON(http.StatusInternalServerError, downloadResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, downloadResponse{
		Message: "OK",
		URL:     url,
	})
}
