package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/echocare/caregiver-api/internal/config"
	"github.com/echocare/caregiver-api/internal/repository"
	"github.com/echocare/caregiver-api/internal/repository/memory"
	"github.com/echocare/caregiver-api/internal/repository/postgres"
)

// stores bundles the repositories of the configured database driver.
type stores struct {
	db *sqlx.DB

	patients     repository.PatientRepository
	medications  repository.MedicationRepository
	reminders    repository.ReminderRepository
	appointments repository.AppointmentRepository
	reports      repository.ReportRepository
	profiles     repository.ProfileRepository
	users        repository.UserRepository
	tokens       repository.TokenRepository
}

func openStores(ctx context.Context, cfg config.DatabaseConfig) (*stores, error) {
	if cfg.Driver == config.DriverMemory {
		m := memory.NewStore()
		return &stores{
			patients:     m.Patients(),
			medications:  m.Medications(),
			reminders:    m.Reminders(),
			appointments: m.Appointments(),
			reports:      m.Reports(),
			profiles:     m.Profiles(),
			users:        m.Users(),
			tokens:       m.Tokens(),
		}, nil
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	base := postgres.NewBaseRepository(db)
	return &stores{
		db:           db,
		patients:     postgres.NewPatientRepository(base),
		medications:  postgres.NewMedicationRepository(base),
		reminders:    postgres.NewReminderRepository(base),
		appointments: postgres.NewAppointmentRepository(base),
		reports:      postgres.NewReportRepository(base),
		profiles:     postgres.NewProfileRepository(base),
		users:        postgres.NewUserRepository(base),
		tokens:       postgres.NewTokenRepository(base),
	}, nil
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Driver != config.DriverPostgres {
		return nil, fmt.Errorf("database driver %q has no SQL connection", cfg.Driver)
	}
	return postgres.NewDB(ctx, postgres.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Name:            cfg.Name,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	})
}

func (s *stores) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
