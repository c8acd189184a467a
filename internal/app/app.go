// Package app assembles stores and engine services from configuration. Both
// the HTTP server and studyctl build on it.
package app

import (
	"context"
	"fmt"

	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/config"
	"github.com/urbanfIare/dmt-app/internal/database"
	"github.com/urbanfIare/dmt-app/internal/repository"
	"github.com/urbanfIare/dmt-app/internal/repository/sqlite"
	"github.com/urbanfIare/dmt-app/internal/services"
)

type Stores struct {
	Sessions   repository.SessionStore
	Exceptions repository.ExceptionStore
	Attendance repository.AttendanceStore
	Members    repository.MemberDirectory
	Backend    string

	close func()
}

func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// OpenStores connects to the configured backend. Postgres gets pending
// migrations applied; sqlite applies its embedded schema on open.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	if cfg.UsesSQLite() {
		store, err := sqlite.Open(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		return &Stores{
			Sessions:   store.Sessions(),
			Exceptions: store.Exceptions(),
			Attendance: store.Attendance(),
			Members:    store,
			Backend:    "sqlite",
			close:      func() { store.Close() },
		}, nil
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Stores{
		Sessions:   repository.NewStudySessionRepo(pool),
		Exceptions: repository.NewExceptionRepo(pool),
		Attendance: repository.NewAttendanceRepo(pool),
		Members:    repository.NewMemberRepo(pool),
		Backend:    "postgres",
		close:      pool.Close,
	}, nil
}

type Engine struct {
	Clock       clock.Clock
	Sessions    *services.SessionService
	Exceptions  *services.ExceptionService
	Attendance  *services.AttendanceService
	Restriction *services.RestrictionService
}

// NewEngine builds the engine services over st. A nil notifier drops events.
func NewEngine(st *Stores, notifier services.Notifier, clk clock.Clock) *Engine {
	if notifier == nil {
		notifier = services.NopNotifier{}
	}
	return &Engine{
		Clock:       clk,
		Sessions:    services.NewSessionService(st.Sessions, st.Members, notifier, clk),
		Exceptions:  services.NewExceptionService(st.Exceptions, st.Sessions, st.Members, notifier, clk),
		Attendance:  services.NewAttendanceService(st.Attendance, st.Sessions, st.Members, clk),
		Restriction: services.NewRestrictionService(st.Sessions, st.Exceptions, st.Members, clk),
	}
}

// Sweeps returns the engine's periodic sweeps at the configured intervals.
func (e *Engine) Sweeps(cfg *config.Config) []services.Sweep {
	return services.EngineSweeps(
		e.Sessions,
		e.Attendance,
		e.Exceptions,
		cfg.SessionStartSweepInterval,
		cfg.AttendanceSweepInterval,
		cfg.ExceptionExpirySweepInterval,
	)
}
