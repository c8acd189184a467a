package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	SweepSessionStart    = "session-start"
	SweepAttendance      = "attendance"
	SweepExceptionExpiry = "exception-expiry"
	defaultSweepTimeout  = 5 * time.Minute
	tracerName           = "github.com/urbanfIare/dmt-app/internal/services"
)

// Sweep is one periodic batch operation.
type Sweep struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) (SweepResult, error)
}

// Scheduler runs each sweep on its own ticker. A failing or panicking tick
// is logged and the next tick runs as usual.
type Scheduler struct {
	sweeps   []Sweep
	tracer   trace.Tracer
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewScheduler(sweeps ...Sweep) *Scheduler {
	return &Scheduler{
		sweeps:   sweeps,
		tracer:   otel.Tracer(tracerName),
		stopChan: make(chan struct{}),
	}
}

// EngineSweeps wires the three engine sweeps with their intervals.
func EngineSweeps(
	sessions *SessionService,
	attendance *AttendanceService,
	exceptions *ExceptionService,
	sessionInterval, attendanceInterval, expiryInterval time.Duration,
) []Sweep {
	return []Sweep{
		{Name: SweepSessionStart, Interval: sessionInterval, Run: sessions.StartDueSessions},
		{Name: SweepAttendance, Interval: attendanceInterval, Run: attendance.ReconcileCurrentSessions},
		{Name: SweepExceptionExpiry, Interval: expiryInterval, Run: exceptions.ExpireApproved},
	}
}

func (s *Scheduler) Start() {
	for _, sweep := range s.sweeps {
		if sweep.Run == nil || sweep.Interval <= 0 {
			log.Printf("scheduler: skipping sweep %q with interval %s", sweep.Name, sweep.Interval)
			continue
		}
		s.wg.Add(1)
		go func(sw Sweep) {
			defer s.wg.Done()
			s.loop(sw)
		}(sweep)
	}

	log.Printf("Sweep scheduler started (%d sweeps)", len(s.sweeps))
}

// Stop ends all loops and waits for in-flight ticks to return.
func (s *Scheduler) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
	s.wg.Wait()
}

func (s *Scheduler) loop(sweep Sweep) {
	// Run on startup as well as by interval.
	s.RunOnce(context.Background(), sweep)

	ticker := time.NewTicker(sweep.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunOnce(context.Background(), sweep)
		}
	}
}

// RunOnce executes a single tick of sweep, recovering from panics.
func (s *Scheduler) RunOnce(parent context.Context, sweep Sweep) (res SweepResult, err error) {
	timeout := sweep.Interval
	if timeout <= 0 || timeout > defaultSweepTimeout {
		timeout = defaultSweepTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, span := s.tracer.Start(ctx, "sweep."+sweep.Name)
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		span.SetAttributes(
			attribute.Int("sweep.examined", res.Examined),
			attribute.Int("sweep.applied", res.Applied),
			attribute.Int("sweep.failed", res.Failed),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Printf("%s sweep: %v", sweep.Name, err)
			return
		}
		if res.Applied > 0 || res.Failed > 0 {
			log.Printf("%s sweep: %s", sweep.Name, res)
		}
	}()

	return sweep.Run(ctx)
}
