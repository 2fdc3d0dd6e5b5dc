package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/bimbel-api/internal/dto"
	"github.com/noah-isme/bimbel-api/internal/models"
	"github.com/noah-isme/bimbel-api/internal/repository"
	"github.com/noah-isme/bimbel-api/pkg/database"
	appErrors "github.com/noah-isme/bimbel-api/pkg/errors"
)

// availabilityCache is the Redis-backed cache shared by the services that
// read or invalidate the seat-availability projection.
type availabilityCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

const availabilityCacheTTL = time.Minute

func availabilityCacheKey(programID string) string {
	return "sections:availability:" + programID
}

type sectionStore interface {
	FindByID(ctx context.Context, id string) (*models.SectionDetail, error)
	List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, int, error)
	ListDrift(ctx context.Context) ([]repository.SectionDrift, error)
	ReconcileTx(ctx context.Context, q sqlx.ExtContext, id string, actual int, status models.SectionStatus) error
}

// SectionService serves section listings and keeps the maintained
// enrollment counters honest.
type SectionService struct {
	sections sectionStore
	cache    availabilityCache
	tx       database.TxRunner
	logger   *zap.Logger
}

// NewSectionService constructs the service.
func NewSectionService(sections sectionStore, cache availabilityCache, tx database.TxRunner, logger *zap.Logger) *SectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SectionService{sections: sections, cache: cache, tx: tx, logger: logger}
}

// List returns sections matching the filter.
func (s *SectionService) List(ctx context.Context, filter models.SectionFilter) ([]models.SectionDetail, *models.Pagination, error) {
	sections, total, err := s.sections.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return sections, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one section with program and tutor context.
func (s *SectionService) Get(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.sections.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	return section, nil
}

// Availability returns the seat-count projection for a program's sections.
// The projection is cached briefly; counter-changing transitions delete
// the key so stale counts are short-lived either way.
func (s *SectionService) Availability(ctx context.Context, programID string) ([]dto.SectionAvailability, error) {
	key := availabilityCacheKey(programID)

	var cached []dto.SectionAvailability
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	} else if !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn("availability cache read failed", zap.String("program_id", programID), zap.Error(err))
	}

	sections, _, err := s.sections.List(ctx, models.SectionFilter{ProgramID: programID, PageSize: 100})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}

	availability := make([]dto.SectionAvailability, 0, len(sections))
	for _, section := range sections {
		available := section.MaxStudents - section.CurrentEnrollments
		if available < 0 {
			available = 0
		}
		availability = append(availability, dto.SectionAvailability{
			SectionID:   section.ID,
			Label:       section.Label,
			TutorName:   section.TutorName,
			Status:      string(section.Status),
			MaxStudents: section.MaxStudents,
			Occupied:    section.CurrentEnrollments,
			Available:   available,
		})
	}

	if err := s.cache.Set(ctx, key, availability, availabilityCacheTTL); err != nil {
		s.logger.Warn("availability cache write failed", zap.String("program_id", programID), zap.Error(err))
	}
	return availability, nil
}

// Reconcile resyncs every drifted section counter with the true count of
// open enrollments and rights the ACTIVE/FULL flag. CLOSED sections keep
// their status; only the counter is corrected.
func (s *SectionService) Reconcile(ctx context.Context) (*dto.CronSummary, error) {
	summary := &dto.CronSummary{Job: "section-reconcile"}

	drifted, err := s.sections.ListDrift(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drifted sections")
	}

	for _, d := range drifted {
		summary.Total++

		status := d.Status
		if status != models.SectionStatusClosed {
			if d.Actual >= d.MaxStudents {
				status = models.SectionStatusFull
			} else {
				status = models.SectionStatusActive
			}
		}

		err := s.tx.WithinTx(ctx, func(q sqlx.ExtContext) error {
			return s.sections.ReconcileTx(ctx, q, d.SectionID, d.Actual, status)
		})
		if err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("section %s: %v", d.SectionID, err))
			continue
		}

		if err := s.cache.Delete(ctx, availabilityCacheKey(d.ProgramID)); err != nil {
			s.logger.Warn("failed to invalidate availability cache",
				zap.String("program_id", d.ProgramID), zap.Error(err))
		}

		s.logger.Info("section counter reconciled",
			zap.String("section_id", d.SectionID),
			zap.Int("counter", d.Counter),
			zap.Int("actual", d.Actual),
			zap.String("status", string(status)))
		summary.Processed++
	}

	return summary, nil
}
