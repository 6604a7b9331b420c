package domain

import "time"

type HeightUnit string

const (
	HeightCm HeightUnit = "cm"
	HeightFt HeightUnit = "ft"
)

type WeightUnit string

const (
	WeightKg  WeightUnit = "kg"
	WeightLbs WeightUnit = "lbs"
)

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

type UnitSystem string

const (
	UnitMetric   UnitSystem = "metric"
	UnitImperial UnitSystem = "imperial"
)

type Category string

const (
	CategoryUnderweight Category = "Underweight"
	CategoryNormal      Category = "Normal weight"
	CategoryOverweight  Category = "Overweight"
	CategoryObese       Category = "Obese"
)

type PersonalDetails struct {
	Name   string
	Email  string
	Age    int
	Gender Gender
}

type Measurement struct {
	Height     float64
	HeightUnit HeightUnit
	Weight     float64
	WeightUnit WeightUnit
}

type BMIResult struct {
	BMI      float64
	Category Category
}

type Entry struct {
	ID         uint
	SessionID  string
	ClientRef  string
	Name       string
	Email      string
	Age        int
	Gender     Gender
	HeightCm   float64
	WeightKg   float64
	UnitSystem UnitSystem
	BMI        float64
	Category   Category
	CreatedAt  time.Time
}

type SaveResult struct {
	Entry   Entry
	Skipped bool
}

type NotifyResult struct {
	Success bool
	Message string
	EmailID string
	Err     error
}

type EmailPayload struct {
	To         string  `json:"to"`
	Name       string  `json:"name"`
	BMI        float64 `json:"bmi"`
	Category   string  `json:"category"`
	Height     float64 `json:"height"`
	Weight     float64 `json:"weight"`
	HeightUnit string  `json:"heightUnit"`
	WeightUnit string  `json:"weightUnit"`
	Age        int     `json:"age"`
	Gender     string  `json:"gender"`
}
