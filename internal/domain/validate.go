package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const (
	minAge = 1
	maxAge = 120

	minHeightCm = 50
	maxHeightCm = 300
	minHeightFt = 1.6
	maxHeightFt = 9.8

	minWeightKg  = 20
	maxWeightKg  = 500
	minWeightLbs = 44
	maxWeightLbs = 1100
)

func ValidateDetails(d PersonalDetails) FieldErrors {
	fe := FieldErrors{}
	if strings.TrimSpace(d.Name) == "" {
		fe["name"] = "name is required"
	}
	if strings.TrimSpace(d.Email) == "" {
		fe["email"] = "email is required"
	} else if !emailPattern.MatchString(d.Email) {
		fe["email"] = "enter a valid email address"
	}
	if d.Age < minAge || d.Age > maxAge {
		fe["age"] = fmt.Sprintf("age must be between %d and %d", minAge, maxAge)
	}
	switch d.Gender {
	case GenderMale, GenderFemale, GenderOther:
	default:
		fe["gender"] = "select a gender"
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}

func ValidateMeasurement(m Measurement) FieldErrors {
	fe := FieldErrors{}
	switch m.HeightUnit {
	case HeightCm:
		if m.Height < minHeightCm || m.Height > maxHeightCm {
			fe["height"] = fmt.Sprintf("height must be between %d and %d cm", minHeightCm, maxHeightCm)
		}
	case HeightFt:
		if m.Height < minHeightFt || m.Height > maxHeightFt {
			fe["height"] = fmt.Sprintf("height must be between %.1f and %.1f ft", minHeightFt, maxHeightFt)
		}
	default:
		fe["height"] = "select a height unit"
	}
	switch m.WeightUnit {
	case WeightKg:
		if m.Weight < minWeightKg || m.Weight > maxWeightKg {
			fe["weight"] = fmt.Sprintf("weight must be between %d and %d kg", minWeightKg, maxWeightKg)
		}
	case WeightLbs:
		if m.Weight < minWeightLbs || m.Weight > maxWeightLbs {
			fe["weight"] = fmt.Sprintf("weight must be between %d and %d lbs", minWeightLbs, maxWeightLbs)
		}
	default:
		fe["weight"] = "select a weight unit"
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}
