package application

import (
	"context"
	"errors"
	"strings"

	"github.com/kunometrika/bmitrack/internal/domain"
)

// EntryService persists computed BMI entries and reads them back, scoped
// by the anonymous session id. A nil repository means no store is
// configured: saves report Skipped, lists come back empty and deletes do
// nothing, all without errors.
type EntryService struct {
	repo    domain.EntryRepository
	metrics *Metrics
}

func NewEntryService(repo domain.EntryRepository, metrics *Metrics) *EntryService {
	return &EntryService{repo: repo, metrics: metrics}
}

func (s *EntryService) Configured() bool {
	return s.repo != nil
}

func (s *EntryService) Save(ctx context.Context, sessionID, clientRef string, details domain.PersonalDetails, m domain.Measurement, result domain.BMIResult) (domain.SaveResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return domain.SaveResult{}, errors.New("session id is required")
	}
	if s.repo == nil {
		s.metrics.SaveOutcome("skipped")
		return domain.SaveResult{Skipped: true}, nil
	}

	heightCm, weightKg, system := domain.NormalizeMetric(m)
	entry, err := s.repo.CreateEntry(ctx, domain.Entry{
		SessionID:  sessionID,
		ClientRef:  clientRef,
		Name:       details.Name,
		Email:      details.Email,
		Age:        details.Age,
		Gender:     details.Gender,
		HeightCm:   heightCm,
		WeightKg:   weightKg,
		UnitSystem: system,
		BMI:        result.BMI,
		Category:   result.Category,
	})
	if err != nil {
		s.metrics.SaveOutcome("failed")
		return domain.SaveResult{}, err
	}
	s.metrics.SaveOutcome("saved")
	return domain.SaveResult{Entry: entry}, nil
}

func (s *EntryService) List(ctx context.Context, sessionID string) ([]domain.Entry, error) {
	if s.repo == nil {
		return []domain.Entry{}, nil
	}
	if strings.TrimSpace(sessionID) == "" {
		return []domain.Entry{}, nil
	}
	return s.repo.ListEntries(ctx, sessionID)
}

func (s *EntryService) Delete(ctx context.Context, sessionID string, id uint) error {
	if s.repo == nil {
		return nil
	}
	if strings.TrimSpace(sessionID) == "" || id == 0 {
		return errors.New("session id and entry id are required")
	}
	return s.repo.DeleteEntry(ctx, sessionID, id)
}
