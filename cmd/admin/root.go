package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/HammerMeetNail/dailydoodle/internal/config"
	"github.com/HammerMeetNail/dailydoodle/internal/contest"
	"github.com/HammerMeetNail/dailydoodle/internal/database"
	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

type schemaMigrator interface {
	Up() error
	Down(steps int) error
	Version() (uint, bool, error)
	Close() error
}

type themeAdmin interface {
	List(ctx context.Context) ([]models.Theme, error)
	Create(ctx context.Context, params models.CreateThemeParams) (*models.Theme, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Theme, error)
}

type userAdmin interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	SetAdmin(ctx context.Context, userID uuid.UUID, isAdmin bool) error
}

// store is what the theme and user commands operate on. release frees the
// underlying connection.
type store struct {
	themes  themeAdmin
	users   userAdmin
	release func()
}

// cliEnv opens infrastructure on demand so each command only connects to
// what it uses.
type cliEnv struct {
	loadConfig   func() (*config.Config, error)
	openMigrator func(cfg *config.Config, dir string) (schemaMigrator, error)
	openStore    func(ctx context.Context, cfg *config.Config) (*store, error)
}

func defaultEnv() *cliEnv {
	return &cliEnv{
		loadConfig: func() (*config.Config, error) {
			if err := config.LoadDotEnv(".env"); err != nil {
				return nil, err
			}
			return config.Load()
		},
		openMigrator: func(cfg *config.Config, dir string) (schemaMigrator, error) {
			m, err := database.NewMigrator(cfg.Database.DSN(), dir)
			if err != nil {
				return nil, err
			}
			return m, nil
		},
		openStore: openPostgresStore,
	}
}

func openPostgresStore(ctx context.Context, cfg *config.Config) (*store, error) {
	clock, err := contest.NewClock(cfg.Contest.Timezone, cfg.Contest.QuietStartHour, cfg.Contest.QuietEndHour)
	if err != nil {
		return nil, err
	}
	db, err := database.NewPostgresDB(cfg.Database.DSN(), database.PoolOptions{MaxConns: 2, MinConns: 1})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	adapter := services.NewPoolAdapter(db.Pool)
	return &store{
		themes:  services.NewThemeService(adapter, clock),
		users:   services.NewUserService(adapter),
		release: db.Close,
	}, nil
}

func newRootCmd(env *cliEnv) *cobra.Command {
	root := &cobra.Command{
		Use:           "doodle-admin",
		Short:         "Administer the Daily Doodle contest",
		Long:          `Operator commands for the Daily Doodle contest: schema migrations, theme scheduling and admin grants.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newMigrateCmd(env))
	root.AddCommand(newThemesCmd(env))
	root.AddCommand(newUsersCmd(env))
	return root
}

// withStore loads config, opens the store and runs fn against it.
func (env *cliEnv) withStore(cmd *cobra.Command, fn func(ctx context.Context, s *store) error) error {
	cfg, err := env.loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := env.openStore(ctx, cfg)
	if err != nil {
		return err
	}
	if s.release != nil {
		defer s.release()
	}
	return fn(ctx, s)
}
