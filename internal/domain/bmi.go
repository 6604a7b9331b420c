package domain

import "math"

const (
	lbsPerKg    = 0.453592
	metersPerFt = 0.3048

	underweightMax = 18.5
	normalMax      = 25.0
	overweightMax  = 30.0
)

// Compute converts the measurement to metric units and returns the BMI
// rounded to one decimal. The category is taken from the unrounded value,
// so a raw BMI of 24.96 reports 25.0 but stays Normal weight.
func Compute(height, weight float64, heightUnit HeightUnit, weightUnit WeightUnit) (BMIResult, error) {
	if height <= 0 || weight <= 0 {
		return BMIResult{}, ErrInvalidInput
	}
	if heightUnit != HeightCm && heightUnit != HeightFt {
		return BMIResult{}, ErrInvalidInput
	}
	if weightUnit != WeightKg && weightUnit != WeightLbs {
		return BMIResult{}, ErrInvalidInput
	}

	weightKg := weight
	if weightUnit == WeightLbs {
		weightKg = weight * lbsPerKg
	}
	heightM := height / 100
	if heightUnit == HeightFt {
		heightM = height * metersPerFt
	}

	bmi := weightKg / (heightM * heightM)
	if math.IsNaN(bmi) || math.IsInf(bmi, 0) || bmi <= 0 {
		return BMIResult{}, ErrInvalidResult
	}

	return BMIResult{
		BMI:      math.Round(bmi*10) / 10,
		Category: Categorize(bmi),
	}, nil
}

func Categorize(bmi float64) Category {
	switch {
	case bmi < underweightMax:
		return CategoryUnderweight
	case bmi < normalMax:
		return CategoryNormal
	case bmi < overweightMax:
		return CategoryOverweight
	default:
		return CategoryObese
	}
}

// CategoryRange returns the display label for the category's BMI band.
func CategoryRange(c Category) string {
	switch c {
	case CategoryUnderweight:
		return "< 18.5"
	case CategoryNormal:
		return "18.5 - 24.9"
	case CategoryOverweight:
		return "25.0 - 29.9"
	case CategoryObese:
		return "≥ 30.0"
	default:
		return ""
	}
}

// HealthAdvice returns the assessment line shown on the result card.
func HealthAdvice(c Category) string {
	switch c {
	case CategoryUnderweight:
		return "Your BMI is below the healthy range. Consider consulting a healthcare provider about reaching a healthy weight."
	case CategoryNormal:
		return "Your BMI is within the healthy range. Keep up your current lifestyle."
	case CategoryOverweight:
		return "Your BMI is above the healthy range. Small changes to diet and activity can make a difference."
	case CategoryObese:
		return "Your BMI is well above the healthy range. A healthcare provider can help you plan next steps."
	default:
		return ""
	}
}

// NormalizeMetric converts a measurement to centimeters and kilograms.
// The conversion is one-way: original units are not kept on the entry,
// only the derived unit system.
func NormalizeMetric(m Measurement) (heightCm, weightKg float64, system UnitSystem) {
	heightCm = m.Height
	if m.HeightUnit == HeightFt {
		heightCm = m.Height * metersPerFt * 100
	}
	weightKg = m.Weight
	if m.WeightUnit == WeightLbs {
		weightKg = m.Weight * lbsPerKg
	}
	system = UnitImperial
	if m.HeightUnit == HeightCm && m.WeightUnit == WeightKg {
		system = UnitMetric
	}
	return heightCm, weightKg, system
}
