package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/calfield/mediabin/internal/media"
	"github.com/calfield/mediabin/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ingestFiles accepts a multipart batch of files, stages them into the
// scratch directory, runs them through the ingestion pipeline and adds the
// resulting drafts to the store. Per-file skips and failures are reported
// in the response body rather than failing the request; drafts which the
// store refuses (persistence failure) have their handles released here,
// since ownership reverts to the caller on a failed add.
func (gateway *RestGateway) ingestFiles(ec echo.Context) error {
	form, err := ec.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request is not a valid multipart form")
	}

	uploads := form.File["files"]
	if len(uploads) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no files provided in 'files' form field")
	}

	files := make([]media.SourceFile, 0, len(uploads))
	for _, upload := range uploads {
		staged, err := gateway.stageUpload(upload)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		defer os.Remove(staged.Path)

		files = append(files, staged)
	}

	result, err := gateway.pipeline.Process(ec.Request().Context(), files, nil)
	if err != nil {
		// An abandoned batch still returns the drafts completed before the
		// interruption; their handles are ours to release since they will
		// never reach the store.
		if result != nil {
			for _, draft := range result.Items {
				draft.ReleaseHandles()
			}
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	projectID := ec.Param("projectId")
	response := ingestResponseDto{Added: make([]mediaDto, 0, len(result.Items))}
	for _, trouble := range result.Troubles {
		response.Troubles = append(response.Troubles, troubleDto{
			File:   trouble.File(),
			Type:   trouble.Type().String(),
			Detail: trouble.Error(),
		})
	}

	for _, draft := range result.Items {
		if _, err := gateway.store.Add(ec.Request().Context(), projectID, draft); err != nil {
			log.Emit(logger.ERROR, "Failed to store ingested item from %s: %v\n", draft.Source.Name, err)
			draft.ReleaseHandles()
			response.Troubles = append(response.Troubles, troubleDto{
				File:   draft.Source.Name,
				Type:   "PERSISTENCE_FAILURE",
				Detail: err.Error(),
			})
			continue
		}

		response.Added = append(response.Added, newMediaDto(draft))
	}

	return ec.JSON(http.StatusOK, response)
}

// stageUpload copies one multipart upload into the scratch directory so the
// pipeline can read it from disk. The staged copy is transient and removed
// once the request completes; the pipeline stages its own preview copy.
func (gateway *RestGateway) stageUpload(upload *multipart.FileHeader) (media.SourceFile, error) {
	source, err := upload.Open()
	if err != nil {
		return media.SourceFile{}, fmt.Errorf("failed to open upload %s: %w", upload.Filename, err)
	}
	defer source.Close()

	scratchPath := filepath.Join(gateway.config.ScratchDir, fmt.Sprintf("%s%s", uuid.New(), filepath.Ext(upload.Filename)))
	staged, err := os.Create(scratchPath)
	if err != nil {
		return media.SourceFile{}, fmt.Errorf("failed to stage upload %s: %w", upload.Filename, err)
	}
	defer staged.Close()

	if _, err := io.Copy(staged, source); err != nil {
		os.Remove(scratchPath)
		return media.SourceFile{}, fmt.Errorf("failed to stage upload %s: %w", upload.Filename, err)
	}

	return media.SourceFile{
		Name:        upload.Filename,
		Path:        scratchPath,
		ContentType: upload.Header.Get("Content-Type"),
		Size:        upload.Size,
	}, nil
}
