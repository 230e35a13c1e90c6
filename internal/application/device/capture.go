package device

import (
	"context"
	"fmt"
	"time"

	domhardware "github.com/pivend/vend/internal/domain/hardware"
	domtelemetry "github.com/pivend/vend/internal/domain/telemetry"
	"github.com/pivend/vend/internal/observability"
	"github.com/pivend/vend/internal/observability/logctx"
)

const componentCaptureService = "telemetry_capture"

// IDGenerator produces reading identities.
type IDGenerator interface {
	NewID() string
}

// CaptureService samples the environmental sensors into the telemetry log.
// Missing sensors degrade to zero readings instead of failing the capture.
type CaptureService struct {
	repo   domtelemetry.Repository
	driver domhardware.Driver
	idGen  IDGenerator
	log    observability.Logger
}

func NewCaptureService(repo domtelemetry.Repository, driver domhardware.Driver, idGen IDGenerator, logger observability.Logger) *CaptureService {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &CaptureService{
		repo:   repo,
		driver: driver,
		idGen:  idGen,
		log:    logger.With(observability.F("component", componentCaptureService)),
	}
}

func (s *CaptureService) Capture(ctx context.Context) (*domtelemetry.Reading, error) {
	logger := logctx.FromOr(ctx, s.log)

	temperature, err := s.driver.ReadTemperature(ctx)
	if err != nil {
		logger.Warn("temperature_read_failed", observability.F("error", err.Error()))
		temperature = 0
	}
	humidity, err := s.driver.ReadHumidity(ctx)
	if err != nil {
		logger.Warn("humidity_read_failed", observability.F("error", err.Error()))
		humidity = 0
	}
	doorOpen, err := s.driver.IsDoorOpen(ctx)
	if err != nil {
		logger.Warn("door_sensor_read_failed", observability.F("error", err.Error()))
		doorOpen = false
	}

	reading := &domtelemetry.Reading{
		ID:           s.idGen.NewID(),
		TemperatureC: temperature,
		Humidity:     humidity,
		DoorOpen:     doorOpen,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Append(ctx, reading); err != nil {
		return nil, fmt.Errorf("telemetry: append: %w", err)
	}
	return reading, nil
}

// Latest returns up to limit readings in chronological order.
func (s *CaptureService) Latest(ctx context.Context, limit int) ([]*domtelemetry.Reading, error) {
	return s.repo.Latest(ctx, limit)
}
