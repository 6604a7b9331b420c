package domain

import (
	"errors"
	"math"
	"testing"
)

func TestComputeMetric(t *testing.T) {
	got, err := Compute(170, 70, HeightCm, WeightKg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if got.BMI != 24.2 {
		t.Fatalf("bmi = %v, want 24.2", got.BMI)
	}
	if got.Category != CategoryNormal {
		t.Fatalf("category = %q, want %q", got.Category, CategoryNormal)
	}
}

func TestComputeImperial(t *testing.T) {
	// 5.7 is decimal feet (1.737 m), not 5'7"; 154 lbs is 69.85 kg.
	got, err := Compute(5.7, 154, HeightFt, WeightLbs)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if math.Abs(got.BMI-23.1) > 0.1 {
		t.Fatalf("bmi = %v, want about 23.1", got.BMI)
	}
	if got.Category != CategoryNormal {
		t.Fatalf("category = %q, want %q", got.Category, CategoryNormal)
	}
}

func TestComputeDeterministic(t *testing.T) {
	first, err := Compute(182, 91.5, HeightCm, WeightKg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Compute(182, 91.5, HeightCm, WeightKg)
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		if again != first {
			t.Fatalf("run %d: got %+v, want %+v", i, again, first)
		}
	}
}

func TestComputeUnitEquivalence(t *testing.T) {
	// The same physical person measured in both systems lands within
	// one rounding step.
	metric, err := Compute(180, 80, HeightCm, WeightKg)
	if err != nil {
		t.Fatalf("metric: %v", err)
	}
	imperial, err := Compute(180/30.48, 80/0.453592, HeightFt, WeightLbs)
	if err != nil {
		t.Fatalf("imperial: %v", err)
	}
	if math.Abs(metric.BMI-imperial.BMI) > 0.1 {
		t.Fatalf("metric %v vs imperial %v differ by more than 0.1", metric.BMI, imperial.BMI)
	}
}

func TestCategorizeBoundaries(t *testing.T) {
	cases := []struct {
		bmi  float64
		want Category
	}{
		{18.49999, CategoryUnderweight},
		{18.5, CategoryNormal},
		{24.99999, CategoryNormal},
		{25.0, CategoryOverweight},
		{29.99999, CategoryOverweight},
		{30.0, CategoryObese},
	}
	for _, tc := range cases {
		if got := Categorize(tc.bmi); got != tc.want {
			t.Fatalf("Categorize(%v) = %q, want %q", tc.bmi, got, tc.want)
		}
	}
}

func TestCategoryFromUnroundedValue(t *testing.T) {
	// Raw BMI 24.96 displays as 25.0 but the category comes from the
	// unrounded value.
	h := 170.0
	w := 24.96 * 1.7 * 1.7
	got, err := Compute(h, w, HeightCm, WeightKg)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if got.BMI != 25.0 {
		t.Fatalf("bmi = %v, want 25.0", got.BMI)
	}
	if got.Category != CategoryNormal {
		t.Fatalf("category = %q, want %q", got.Category, CategoryNormal)
	}
}

func TestComputeInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		height float64
		weight float64
		hu     HeightUnit
		wu     WeightUnit
	}{
		{"zero height", 0, 70, HeightCm, WeightKg},
		{"negative height", -170, 70, HeightCm, WeightKg},
		{"zero weight", 170, 0, HeightCm, WeightKg},
		{"negative weight", 170, -70, HeightCm, WeightKg},
		{"missing height unit", 170, 70, "", WeightKg},
		{"missing weight unit", 170, 70, HeightCm, ""},
		{"unknown unit", 170, 70, "m", WeightKg},
	}
	for _, tc := range cases {
		if _, err := Compute(tc.height, tc.weight, tc.hu, tc.wu); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: err = %v, want ErrInvalidInput", tc.name, err)
		}
	}
}

func TestNormalizeMetric(t *testing.T) {
	cm, kg, system := NormalizeMetric(Measurement{Height: 170, HeightUnit: HeightCm, Weight: 70, WeightUnit: WeightKg})
	if cm != 170 || kg != 70 || system != UnitMetric {
		t.Fatalf("got %v cm, %v kg, %q", cm, kg, system)
	}

	cm, kg, system = NormalizeMetric(Measurement{Height: 6, HeightUnit: HeightFt, Weight: 200, WeightUnit: WeightLbs})
	if math.Abs(cm-182.88) > 1e-9 {
		t.Fatalf("height = %v cm, want 182.88", cm)
	}
	if math.Abs(kg-90.7184) > 1e-9 {
		t.Fatalf("weight = %v kg, want 90.7184", kg)
	}
	if system != UnitImperial {
		t.Fatalf("system = %q, want imperial", system)
	}

	// Mixed units count as imperial.
	_, _, system = NormalizeMetric(Measurement{Height: 170, HeightUnit: HeightCm, Weight: 154, WeightUnit: WeightLbs})
	if system != UnitImperial {
		t.Fatalf("mixed units: system = %q, want imperial", system)
	}
}

func TestCategoryRange(t *testing.T) {
	if got := CategoryRange(CategoryNormal); got != "18.5 - 24.9" {
		t.Fatalf("range = %q", got)
	}
	if got := CategoryRange(CategoryObese); got != "≥ 30.0" {
		t.Fatalf("range = %q", got)
	}
}
