// Package api is the thin HTTP surface over the media store and the
// ingestion pipeline. It is glue only: handlers validate, delegate and
// convert to DTOs, and hold no domain state of their own.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/calfield/mediabin/internal/ingest"
	"github.com/calfield/mediabin/internal/media"
	"github.com/calfield/mediabin/pkg/logger"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	Config struct {
		HostAddr   string `yaml:"host" env:"HOST_ADDR" env-default:"0.0.0.0"`
		HostPort   string `yaml:"port" env:"HOST_PORT" env-default:"8035"`
		ScratchDir string `yaml:"scratch_dir" env:"SCRATCH_DIR"`
	}

	mediaStore interface {
		AllItems() []*media.Item
		Item(id uuid.UUID) *media.Item
		Add(ctx context.Context, projectID string, draft *media.Item) (uuid.UUID, error)
		Remove(ctx context.Context, projectID string, id uuid.UUID)
		ClearProject(ctx context.Context, projectID string)
		LoadAll(ctx context.Context, projectID string) error
	}

	ingestPipeline interface {
		Process(ctx context.Context, files []media.SourceFile, onProgress ingest.ProgressFunc) (*ingest.Result, error)
	}

	// RestGateway routes HTTP traffic to the store and pipeline.
	RestGateway struct {
		ec       *echo.Echo
		config   Config
		store    mediaStore
		pipeline ingestPipeline
	}
)

func NewRestGateway(config Config, store mediaStore, pipeline ingestPipeline) *RestGateway {
	ec := echo.New()
	ec.HideBanner = true
	ec.Use(echoMiddleware.Recover())

	gateway := &RestGateway{
		ec:       ec,
		config:   config,
		store:    store,
		pipeline: pipeline,
	}

	projects := ec.Group("/api/projects/:projectId")
	projects.GET("/media", gateway.listMedia)
	projects.GET("/media/:id", gateway.getMedia)
	projects.DELETE("/media/:id", gateway.deleteMedia)
	projects.DELETE("/media", gateway.clearMedia)
	projects.POST("/media/sync", gateway.syncMedia)
	projects.POST("/ingest", gateway.ingestFiles)

	return gateway
}

// Run starts the gateway and blocks until the context provided is
// cancelled, at which point the server is drained and shut down.
func (gateway *RestGateway) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%s", gateway.config.HostAddr, gateway.config.HostPort)

	serverErr := make(chan error, 1)
	go func() {
		if err := gateway.ec.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return gateway.ec.Shutdown(shutdownCtx)
	}
}
