package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sciencehabits/sciencehabits/internal/client/client"
	"github.com/sciencehabits/sciencehabits/internal/client/models"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/habits"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/meta"
	"github.com/sciencehabits/sciencehabits/internal/client/repositories/research"
	"github.com/sciencehabits/sciencehabits/internal/common"
	"github.com/sciencehabits/sciencehabits/internal/dbx"
	"github.com/sciencehabits/sciencehabits/internal/logging"
)

// catalogManifest is the content-version document served under the
// "manifest" content type.
type catalogManifest struct {
	Version string `json:"version"`
}

type CatalogService interface {
	// Refresh downloads the catalog for the language when its version
	// changed since the last load. Catalog habits and research articles
	// are replaced in one transaction; custom habits and all ledger rows
	// survive. Returns the active catalog version and whether a reload
	// happened.
	Refresh(ctx context.Context, language string) (version string, reloaded bool, err error)
	// Version returns the locally loaded catalog version, empty before the
	// first successful refresh.
	Version(ctx context.Context) (string, error)
	// Research lists the cached research articles for a language.
	Research(ctx context.Context, language string) ([]models.ResearchArticle, error)
}

type catalogService struct {
	db     *sql.DB
	client client.Client
	log    logging.Logger
}

func NewCatalogService(db *sql.DB, cl client.Client, log logging.Logger) CatalogService {
	return &catalogService{db: db, client: cl, log: log.With("component", "catalog")}
}

func (s *catalogService) Refresh(ctx context.Context, language string) (string, bool, error) {
	raw, err := s.client.FetchContent(ctx, "manifest", language)
	if err != nil {
		return "", false, fmt.Errorf("fetching catalog manifest: %w", err)
	}
	var manifest catalogManifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return "", false, fmt.Errorf("decoding catalog manifest: %w", err)
	}

	current, err := s.Version(ctx)
	if err != nil {
		return "", false, err
	}
	if manifest.Version != "" && manifest.Version == current {
		s.log.Debug(ctx, "catalog up to date", "version", current)
		return current, false, nil
	}

	habitsRaw, err := s.client.FetchContent(ctx, "habits", language)
	if err != nil {
		return current, false, fmt.Errorf("fetching habits catalog: %w", err)
	}
	var habitRows []models.Habit
	if err := json.Unmarshal(habitsRaw, &habitRows); err != nil {
		return current, false, fmt.Errorf("decoding habits catalog: %w", err)
	}

	researchRaw, err := s.client.FetchContent(ctx, "research", language)
	if err != nil {
		return current, false, fmt.Errorf("fetching research catalog: %w", err)
	}
	var articles []models.ResearchArticle
	if err := json.Unmarshal(researchRaw, &articles); err != nil {
		return current, false, fmt.Errorf("decoding research catalog: %w", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		habitRepo := habits.NewSQLiteRepository(tx)
		researchRepo := research.NewSQLiteRepository(tx)

		if err := habitRepo.DeleteCatalog(ctx); err != nil {
			return fmt.Errorf("clearing habit catalog: %w", err)
		}
		for i := range habitRows {
			habitRows[i].IsCustom = false
			habitRows[i].UserID = ""
			if err := habitRepo.Upsert(ctx, &habitRows[i]); err != nil {
				return fmt.Errorf("loading habit %s: %w", habitRows[i].ID, err)
			}
		}

		if err := researchRepo.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clearing research: %w", err)
		}
		for i := range articles {
			if err := researchRepo.Upsert(ctx, &articles[i]); err != nil {
				return fmt.Errorf("loading article %s: %w", articles[i].ID, err)
			}
		}

		return meta.NewSQLiteRepository(tx).Set(ctx, meta.KeyCatalogVersion, manifest.Version)
	})
	if err != nil {
		return current, false, err
	}

	s.log.Info(ctx, "catalog reloaded",
		"version", manifest.Version, "habits", len(habitRows), "research", len(articles))
	return manifest.Version, true, nil
}

func (s *catalogService) Version(ctx context.Context) (string, error) {
	v, err := meta.NewSQLiteRepository(s.db).Get(ctx, meta.KeyCatalogVersion)
	if errors.Is(err, common.ErrorNotFound) {
		return "", nil
	} else if err != nil {
		return "", fmt.Errorf("loading catalog version: %w", err)
	}
	return v, nil
}

func (s *catalogService) Research(ctx context.Context, language string) ([]models.ResearchArticle, error) {
	return research.NewSQLiteRepository(s.db).ListByLanguage(ctx, language)
}
