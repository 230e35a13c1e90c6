package telemetry

import (
	"context"
	"sync"
	"time"

	appdevice "github.com/pivend/vend/internal/application/device"
	"github.com/pivend/vend/internal/observability"
)

const componentPoller = "telemetry_poller"

// Poller captures environmental readings on a fixed interval.
type Poller struct {
	capture   *appdevice.CaptureService
	interval  time.Duration
	log       observability.Logger
	startOnce sync.Once
	stopOnce  sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewPoller(capture *appdevice.CaptureService, interval time.Duration, logger observability.Logger) *Poller {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Poller{
		capture:  capture,
		interval: interval,
		log:      logger.With(observability.F("component", componentPoller)),
		done:     make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		bg, cancel := context.WithCancel(ctx)
		p.cancel = cancel
		go p.loop(bg)
		p.log.Info("telemetry_poller_started",
			observability.F("interval", p.interval.String()),
		)
	})
}

func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		<-p.done
		p.log.Info("telemetry_poller_stopped")
	})
}

func (p *Poller) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.capture.Capture(ctx); err != nil {
				p.log.Warn("telemetry_capture_failed",
					observability.F("error", err.Error()),
				)
			}
		}
	}
}
