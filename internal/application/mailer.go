package application

import (
	"context"
	"encoding/json"

	"github.com/kunometrika/bmitrack/internal/domain"
)

const emailFunction = "send-bmi-email"

// Mailer sends a formatted BMI result to the visitor's email by invoking
// the remote dispatch function. Every call returns a structured outcome;
// transport faults never escape as errors and nothing is retried
// automatically.
type Mailer struct {
	dispatcher domain.Dispatcher
	metrics    *Metrics
}

func NewMailer(dispatcher domain.Dispatcher, metrics *Metrics) *Mailer {
	return &Mailer{dispatcher: dispatcher, metrics: metrics}
}

func (m *Mailer) Configured() bool {
	return m != nil && m.dispatcher != nil
}

func (m *Mailer) SendResult(ctx context.Context, details domain.PersonalDetails, measurement domain.Measurement, result domain.BMIResult) domain.NotifyResult {
	if !m.Configured() {
		m.metricsOutcome("skipped")
		return domain.NotifyResult{Message: "Email dispatch is not configured."}
	}

	payload := domain.EmailPayload{
		To:         details.Email,
		Name:       details.Name,
		BMI:        result.BMI,
		Category:   string(result.Category),
		Height:     measurement.Height,
		Weight:     measurement.Weight,
		HeightUnit: string(measurement.HeightUnit),
		WeightUnit: string(measurement.WeightUnit),
		Age:        details.Age,
		Gender:     string(details.Gender),
	}

	body, err := m.dispatcher.Invoke(ctx, emailFunction, payload)
	if err != nil {
		m.metricsOutcome("failed")
		return domain.NotifyResult{Message: "Could not send the email. Please try again.", Err: err}
	}

	var parsed struct {
		EmailID string `json:"emailId"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != "" {
		m.metricsOutcome("failed")
		return domain.NotifyResult{Message: parsed.Error}
	}

	m.metricsOutcome("sent")
	return domain.NotifyResult{
		Success: true,
		Message: "Results sent to " + details.Email,
		EmailID: parsed.EmailID,
	}
}

func (m *Mailer) metricsOutcome(outcome string) {
	if m == nil {
		return
	}
	m.metrics.NotifyOutcome(outcome)
}
