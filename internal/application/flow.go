package application

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/kunometrika/bmitrack/internal/domain"
)

type Step string

const (
	StepCollectIdentity     Step = "collect_identity"
	StepCollectMeasurements Step = "collect_measurements"
	StepShowResult          Step = "show_result"
)

type SaveStatus string

const (
	SaveIdle    SaveStatus = "idle"
	SaveSaving  SaveStatus = "saving"
	SaveSaved   SaveStatus = "saved"
	SaveSkipped SaveStatus = "skipped"
	SaveFailed  SaveStatus = "failed"
)

type NotifyStatus string

const (
	NotifyIdle    NotifyStatus = "idle"
	NotifySending NotifyStatus = "sending"
	NotifySent    NotifyStatus = "sent"
	NotifyFailed  NotifyStatus = "failed"
)

// Flow drives one calculator run for one session: identity step, then
// measurements, then the result with its background save and optional
// email. All methods are safe for concurrent use; background completions
// re-acquire the lock and are discarded when the run token has moved on.
type Flow struct {
	mu      sync.Mutex
	entries *EntryService
	mailer  *Mailer
	metrics *Metrics

	sessionID string

	step    Step
	history bool

	details     domain.PersonalDetails
	measurement domain.Measurement
	result      *domain.BMIResult

	fieldErrors domain.FieldErrors
	formError   string

	runToken   string
	saved      bool
	saving     bool
	saveStatus SaveStatus
	saveError  string
	savedEntry domain.Entry

	notifyStatus  NotifyStatus
	notifyMessage string
}

// Snapshot is an immutable view of the flow for rendering.
type Snapshot struct {
	Step           Step
	ViewingHistory bool
	Details        domain.PersonalDetails
	Measurement    domain.Measurement
	Result         *domain.BMIResult
	FieldErrors    domain.FieldErrors
	FormError      string
	SaveStatus     SaveStatus
	SaveError      string
	SavedEntry     domain.Entry
	NotifyStatus   NotifyStatus
	NotifyMessage  string
}

func NewFlow(sessionID string, entries *EntryService, mailer *Mailer, metrics *Metrics) *Flow {
	return &Flow{
		entries:      entries,
		mailer:       mailer,
		metrics:      metrics,
		sessionID:    sessionID,
		step:         StepCollectIdentity,
		runToken:     uuid.NewString(),
		saveStatus:   SaveIdle,
		notifyStatus: NotifyIdle,
	}
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result *domain.BMIResult
	if f.result != nil {
		r := *f.result
		result = &r
	}
	return Snapshot{
		Step:           f.step,
		ViewingHistory: f.history,
		Details:        f.details,
		Measurement:    f.measurement,
		Result:         result,
		FieldErrors:    f.fieldErrors,
		FormError:      f.formError,
		SaveStatus:     f.saveStatus,
		SaveError:      f.saveError,
		SavedEntry:     f.savedEntry,
		NotifyStatus:   f.notifyStatus,
		NotifyMessage:  f.notifyMessage,
	}
}

// SubmitDetails validates the identity step. Invalid input keeps the
// flow on the step with per-field messages.
func (f *Flow) SubmitDetails(d domain.PersonalDetails) domain.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepCollectIdentity {
		return nil
	}
	if fe := domain.ValidateDetails(d); fe != nil {
		f.fieldErrors = fe
		return fe
	}
	f.details = d
	f.fieldErrors = nil
	f.formError = ""
	f.step = StepCollectMeasurements
	return nil
}

// SubmitMeasurement validates and computes. On success the flow enters
// the result step and triggers the background save at most once per run.
func (f *Flow) SubmitMeasurement(m domain.Measurement) domain.FieldErrors {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepCollectMeasurements && f.step != StepShowResult {
		return nil
	}
	if fe := domain.ValidateMeasurement(m); fe != nil {
		f.fieldErrors = fe
		return fe
	}

	result, err := domain.Compute(m.Height, m.Weight, m.HeightUnit, m.WeightUnit)
	if err != nil {
		f.fieldErrors = nil
		f.formError = err.Error()
		return nil
	}

	f.measurement = m
	f.result = &result
	f.fieldErrors = nil
	f.formError = ""
	f.step = StepShowResult
	f.metrics.Computed(string(result.Category))

	f.maybeStartSave()
	return nil
}

// Back steps one screen back. Entered values survive so the user can
// adjust rather than retype.
func (f *Flow) Back() {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.step {
	case StepShowResult:
		f.step = StepCollectMeasurements
	case StepCollectMeasurements:
		f.step = StepCollectIdentity
	}
	f.fieldErrors = nil
	f.formError = ""
}

// Reset clears the run and mints a fresh token. A save still in flight
// for the old run completes against the store but its status is dropped,
// so the single-flight flag is released here rather than by the stale
// goroutine.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.step = StepCollectIdentity
	f.history = false
	f.details = domain.PersonalDetails{}
	f.measurement = domain.Measurement{}
	f.result = nil
	f.fieldErrors = nil
	f.formError = ""
	f.runToken = uuid.NewString()
	f.saved = false
	f.saving = false
	f.saveStatus = SaveIdle
	f.saveError = ""
	f.savedEntry = domain.Entry{}
	f.notifyStatus = NotifyIdle
	f.notifyMessage = ""
	f.metrics.FlowReset()
}

func (f *Flow) OpenHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = true
}

func (f *Flow) CloseHistory() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = false
}

// RetrySave makes one manual save attempt after a failure. It ignores
// the once-per-run flag but still refuses to overlap an in-flight save.
func (f *Flow) RetrySave() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepShowResult || f.result == nil {
		return
	}
	if f.saveStatus != SaveFailed || f.saving {
		return
	}
	f.startSaveLocked()
}

// SendEmail dispatches the result to the collected address in the
// background. Outcomes land in the notify status, never as errors.
func (f *Flow) SendEmail() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.step != StepShowResult || f.result == nil {
		return
	}
	if f.notifyStatus == NotifySending {
		return
	}
	f.notifyStatus = NotifySending
	f.notifyMessage = ""

	token := f.runToken
	details := f.details
	m := f.measurement
	result := *f.result

	go func() {
		outcome := f.mailer.SendResult(context.Background(), details, m, result)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.runToken != token {
			return
		}
		if outcome.Success {
			f.notifyStatus = NotifySent
		} else {
			f.notifyStatus = NotifyFailed
		}
		f.notifyMessage = outcome.Message
	}()
}

// maybeStartSave triggers the auto-save when entering the result step.
// Guarded twice: saved drops repeat triggers for the run, saving drops a
// second trigger while one is in flight. Callers hold the lock.
func (f *Flow) maybeStartSave() {
	if f.saved || f.saving {
		return
	}
	f.startSaveLocked()
}

func (f *Flow) startSaveLocked() {
	f.saving = true
	f.saveStatus = SaveSaving
	f.saveError = ""

	token := f.runToken
	details := f.details
	m := f.measurement
	result := *f.result

	go func() {
		// Deliberately not the request context: an abandoned page must
		// not cancel a save already underway.
		saveResult, err := f.entries.Save(context.Background(), f.sessionID, token, details, m, result)

		f.mu.Lock()
		defer f.mu.Unlock()
		if f.runToken != token {
			return
		}
		f.saving = false
		switch {
		case err != nil:
			f.saveStatus = SaveFailed
			f.saveError = saveErrorMessage(err)
		case saveResult.Skipped:
			f.saved = true
			f.saveStatus = SaveSkipped
		default:
			f.saved = true
			f.saveStatus = SaveSaved
			f.savedEntry = saveResult.Entry
		}
	}()
}

func saveErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "Could not reach the entry store. Your result was not saved."
	case errors.Is(err, domain.ErrStoreRejected):
		return "The entry store rejected the save."
	default:
		return "Saving failed: " + err.Error()
	}
}

// FlowManager hands out one Flow per session id so concurrent sessions
// never share wizard state or save guards.
type FlowManager struct {
	mu      sync.Mutex
	flows   map[string]*Flow
	entries *EntryService
	mailer  *Mailer
	metrics *Metrics
}

func NewFlowManager(entries *EntryService, mailer *Mailer, metrics *Metrics) *FlowManager {
	return &FlowManager{
		flows:   make(map[string]*Flow),
		entries: entries,
		mailer:  mailer,
		metrics: metrics,
	}
}

func (m *FlowManager) Get(sessionID string) *Flow {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.flows[sessionID]; ok {
		return f
	}
	f := NewFlow(sessionID, m.entries, m.mailer, m.metrics)
	m.flows[sessionID] = f
	return f
}

// Drop forgets the session's flow, typically after the identity is
// cleared.
func (m *FlowManager) Drop(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, sessionID)
}
