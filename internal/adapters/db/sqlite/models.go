package sqlite

import "time"

type EntryModel struct {
	ID         uint    `gorm:"primaryKey"`
	SessionID  string  `gorm:"not null;index"`
	ClientRef  string  `gorm:"uniqueIndex"`
	Name       string  `gorm:"not null"`
	Email      string  `gorm:"not null"`
	Age        int     `gorm:"not null"`
	Gender     string  `gorm:"not null"`
	HeightCm   float64 `gorm:"not null"`
	WeightKg   float64 `gorm:"not null"`
	UnitSystem string  `gorm:"not null;default:'metric'"`
	BMI        float64 `gorm:"column:bmi;not null"`
	Category   string  `gorm:"not null"`
	CreatedAt  time.Time
}

func (EntryModel) TableName() string { return "bmi_entries" }
