package monitor

import (
	"context"
	"runtime"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/demoghost/replay/internal/cache"
	"github.com/demoghost/replay/internal/influx"
	"github.com/demoghost/replay/internal/logging"
	"github.com/demoghost/replay/internal/session"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Influx     *influx.Manager
	LogManager *logging.SlogManager
	Session    *session.Context
	Processed  *cache.SafeCounter
	Failed     *cache.SafeCounter
	Interval   time.Duration
}

// Service samples runtime health while the pipeline runs and ships the
// samples to InfluxDB.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the sampling goroutine is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample is one runtime observation.
type Sample struct {
	Time       time.Time
	Goroutines int
	HeapAlloc  uint64
	HeapSys    uint64
	GCCycles   uint32
	Processed  int
	Failed     int
	Track      string
}

// Snapshot collects a sample without writing it anywhere.
func (s *Service) Snapshot() Sample {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	sample := Sample{
		Time:       time.Now(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.HeapSys,
		GCCycles:   ms.NumGC,
	}
	if s.deps.Processed != nil {
		sample.Processed = s.deps.Processed.Value()
	}
	if s.deps.Failed != nil {
		sample.Failed = s.deps.Failed.Value()
	}
	if s.deps.Session != nil && s.deps.Session.Loaded() {
		sample.Track = s.deps.Session.GetTrack().Name
	}
	return sample
}

func samplePoint(sample Sample) *influxdb2_write.Point {
	point := influxdb2_write.NewPointWithMeasurement("runtime").
		AddField("goroutines", sample.Goroutines).
		AddField("heap_alloc_bytes", int64(sample.HeapAlloc)).
		AddField("heap_sys_bytes", int64(sample.HeapSys)).
		AddField("gc_cycles", int64(sample.GCCycles)).
		AddField("processed", sample.Processed).
		AddField("failed", sample.Failed).
		SetTime(sample.Time)
	if sample.Track != "" {
		point.AddTag("track", sample.Track)
	}
	return point
}

// Start starts the sampling goroutine. Starting a running service is a
// no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting runtime monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				sample := s.Snapshot()
				if s.deps.Influx == nil {
					continue
				}
				err := s.deps.Influx.WritePoint(context.Background(), influx.BucketProcessing, samplePoint(sample))
				if err != nil {
					logger.Error("Error writing runtime sample", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the sampling goroutine.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
