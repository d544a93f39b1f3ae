package api

import (
	"net/http"

	"github.com/calfield/mediabin/internal/media"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	mediaDto struct {
		ID              uuid.UUID `json:"id"`
		Kind            string    `json:"kind"`
		Name            string    `json:"name"`
		ContentType     string    `json:"content_type"`
		Width           *int      `json:"width,omitempty"`
		Height          *int      `json:"height,omitempty"`
		DurationSeconds *float64  `json:"duration_seconds,omitempty"`
		Fps             *float64  `json:"fps,omitempty"`
		PreviewPath     string    `json:"preview_path,omitempty"`
		HasThumbnail    bool      `json:"has_thumbnail"`
	}

	ingestResponseDto struct {
		Added    []mediaDto   `json:"added"`
		Troubles []troubleDto `json:"troubles"`
	}

	troubleDto struct {
		File   string `json:"file"`
		Type   string `json:"type"`
		Detail string `json:"detail"`
	}
)

func newMediaDto(item *media.Item) mediaDto {
	dto := mediaDto{
		ID:           item.ID,
		Kind:         item.Kind.String(),
		Name:         item.Source.Name,
		ContentType:  item.Source.ContentType,
		HasThumbnail: item.Thumbnail != nil,
	}
	if item.Preview != nil && item.Preview.Form() == media.HandleFile {
		dto.PreviewPath = item.Preview.Path()
	}

	switch item.Kind {
	case media.KindImage:
		dto.Width = &item.Image.Width
		dto.Height = &item.Image.Height
	case media.KindVideo:
		seconds := item.Video.Duration.Seconds()
		dto.Width = &item.Video.Width
		dto.Height = &item.Video.Height
		dto.DurationSeconds = &seconds
		dto.Fps = item.Video.FPS
	case media.KindAudio:
		seconds := item.Audio.Duration.Seconds()
		dto.DurationSeconds = &seconds
	}

	return dto
}

// listMedia returns the store's ordered collection as DTOs.
func (gateway *RestGateway) listMedia(ec echo.Context) error {
	items := gateway.store.AllItems()
	dtos := make([]mediaDto, len(items))
	for k, item := range items {
		dtos[k] = newMediaDto(item)
	}

	return ec.JSON(http.StatusOK, dtos)
}

func (gateway *RestGateway) getMedia(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "media ID is not a valid UUID")
	}

	item := gateway.store.Item(id)
	if item == nil {
		return echo.ErrNotFound
	}

	return ec.JSON(http.StatusOK, newMediaDto(item))
}

func (gateway *RestGateway) deleteMedia(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "media ID is not a valid UUID")
	}

	gateway.store.Remove(ec.Request().Context(), ec.Param("projectId"), id)
	return ec.NoContent(http.StatusOK)
}

func (gateway *RestGateway) clearMedia(ec echo.Context) error {
	gateway.store.ClearProject(ec.Request().Context(), ec.Param("projectId"))
	return ec.NoContent(http.StatusOK)
}

// syncMedia replaces the in-memory collection with the backing store's
// contents for the project.
func (gateway *RestGateway) syncMedia(ec echo.Context) error {
	if err := gateway.store.LoadAll(ec.Request().Context(), ec.Param("projectId")); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	return gateway.listMedia(ec)
}
