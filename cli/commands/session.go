package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/satishbabariya/lift/cli/internal/config"
	"github.com/satishbabariya/lift/datamodel"
	"github.com/satishbabariya/lift/migrate"
	"github.com/satishbabariya/lift/migrate/database"
)

// session is an open engine together with the data model it plans for.
type session struct {
	cfg    *config.Config
	dm     *datamodel.Datamodel
	db     *database.DB
	engine *migrate.Engine
}

// openSession loads the data model and connects to the database. When
// requireDatamodel is false a missing data model file is tolerated, as
// long as the database URL comes from the configuration.
func openSession(ctx context.Context, cfg *config.Config, requireDatamodel bool) (*session, error) {
	dm, err := datamodel.LoadFile(config.AppFs, cfg.Datamodel)
	if err != nil {
		if requireDatamodel || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	url, err := databaseURL(cfg, dm)
	if err != nil {
		return nil, err
	}
	dbCfg, err := database.ParseURL(url)
	if err != nil {
		return nil, err
	}
	if cfg.Schema != "" {
		dbCfg.Schema = cfg.Schema
	}

	db, err := database.OpenConfig(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	engine, err := migrate.Open(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := engine.Init(ctx); err != nil {
		engine.Close()
		db.Close()
		return nil, err
	}

	return &session{cfg: cfg, dm: dm, db: db, engine: engine}, nil
}

// reloadDatamodel parses the data model file again.
func (s *session) reloadDatamodel() error {
	dm, err := datamodel.LoadFile(config.AppFs, s.cfg.Datamodel)
	if err != nil {
		return err
	}
	s.dm = dm
	return nil
}

func (s *session) requireDatamodel() error {
	if s.dm == nil {
		return fmt.Errorf("data model %s not found", s.cfg.Datamodel)
	}
	return nil
}

func (s *session) Close() {
	s.engine.Close()
	s.db.Close()
}

// databaseURL resolves the connection URL: configuration first, then the
// datasource block of the data model.
func databaseURL(cfg *config.Config, dm *datamodel.Datamodel) (string, error) {
	if cfg.DatabaseURL != "" {
		return cfg.DatabaseURL, nil
	}
	if dm != nil && dm.Datasource != nil {
		if dm.Datasource.URL != "" {
			return dm.Datasource.URL, nil
		}
		if env := dm.Datasource.URLEnv; env != "" {
			if url := os.Getenv(env); url != "" {
				return url, nil
			}
			return "", fmt.Errorf("%w: environment variable %s is not set", database.ErrEmptyURL, env)
		}
	}
	return "", database.ErrEmptyURL
}
