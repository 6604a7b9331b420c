package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/kunometrika/bmitrack/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"
)

type EntryRepository struct {
	db *gorm.DB
}

func Open(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Dialector{
		DriverName: "sqlite",
		DSN:        path,
	}, &gorm.Config{})
}

func NewEntryRepository(db *gorm.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

func (r *EntryRepository) CreateEntry(ctx context.Context, value domain.Entry) (domain.Entry, error) {
	m := EntryModel{
		SessionID:  value.SessionID,
		ClientRef:  value.ClientRef,
		Name:       value.Name,
		Email:      value.Email,
		Age:        value.Age,
		Gender:     string(value.Gender),
		HeightCm:   value.HeightCm,
		WeightKg:   value.WeightKg,
		UnitSystem: string(value.UnitSystem),
		BMI:        value.BMI,
		Category:   string(value.Category),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		// The unique client_ref index turns a duplicate run token into a
		// rejected write rather than a second row. Anything else is the
		// store itself failing, not the row being refused.
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return domain.Entry{}, fmt.Errorf("%w: duplicate client ref", domain.ErrStoreRejected)
		}
		return domain.Entry{}, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	return toDomain(m), nil
}

func (r *EntryRepository) ListEntries(ctx context.Context, sessionID string) ([]domain.Entry, error) {
	rows := make([]EntryModel, 0)
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	result := make([]domain.Entry, 0, len(rows))
	for _, m := range rows {
		result = append(result, toDomain(m))
	}
	return result, nil
}

func (r *EntryRepository) DeleteEntry(ctx context.Context, sessionID string, id uint) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND session_id = ?", id, sessionID).
		Delete(&EntryModel{})
	if res.Error != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDomain(m EntryModel) domain.Entry {
	return domain.Entry{
		ID:         m.ID,
		SessionID:  m.SessionID,
		ClientRef:  m.ClientRef,
		Name:       m.Name,
		Email:      m.Email,
		Age:        m.Age,
		Gender:     domain.Gender(m.Gender),
		HeightCm:   m.HeightCm,
		WeightKg:   m.WeightKg,
		UnitSystem: domain.UnitSystem(m.UnitSystem),
		BMI:        m.BMI,
		Category:   domain.Category(m.Category),
		CreatedAt:  m.CreatedAt,
	}
}
