package ui

import (
	"context"
	"fmt"
	"html"
	"io"
	"strconv"

	"github.com/a-h/templ"
	"github.com/kunometrika/bmitrack/internal/application"
	"github.com/kunometrika/bmitrack/internal/domain"
)

func esc(s string) string { return html.EscapeString(s) }

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func component(render func(ctx context.Context, w io.Writer) error) templ.Component {
	return templ.ComponentFunc(render)
}

// Flash renders a one-line status banner swapped in by datastar.
func Flash(message, kind string) templ.Component {
	return component(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<div id="flash" class="flash flash-%s" data-show="true">%s</div>`,
			esc(kind), esc(message))
		return err
	})
}

// CalculatorPage is the full document for the calculator wizard.
func CalculatorPage(snap application.Snapshot, entries []domain.Entry) templ.Component {
	return component(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprint(w, `<!DOCTYPE html><html lang="en"><head>`+
			`<meta charset="utf-8"/><meta name="viewport" content="width=device-width, initial-scale=1"/>`+
			`<title>BMI Calculator</title>`+
			`<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>`+
			`<link rel="stylesheet" href="/static/app.css"/>`+
			`</head><body><main class="shell">`+
			`<header class="topbar"><h1>BMI Calculator</h1>`+
			`<button data-on-click="@post('/history/open')">History</button>`+
			`</header><div id="flash"></div>`); err != nil {
			return err
		}
		if err := StepCard(snap).Render(ctx, w); err != nil {
			return err
		}
		if err := HistoryOverlay(entries, snap.ViewingHistory).Render(ctx, w); err != nil {
			return err
		}
		_, err := fmt.Fprint(w, `</main></body></html>`)
		return err
	})
}

// StepCard renders the card for the flow's current step. It is the main
// fragment target; every flow action swaps it.
func StepCard(snap application.Snapshot) templ.Component {
	return component(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprint(w, `<section id="bmi-step" class="card">`); err != nil {
			return err
		}
		var err error
		switch snap.Step {
		case application.StepCollectIdentity:
			err = writeDetailsForm(w, snap)
		case application.StepCollectMeasurements:
			err = writeMeasurementForm(w, snap)
		case application.StepShowResult:
			err = writeResultCard(ctx, w, snap)
		}
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(w, `</section>`)
		return err
	})
}

func fieldError(w io.Writer, fe domain.FieldErrors, field string) error {
	msg, ok := fe[field]
	if !ok {
		return nil
	}
	_, err := fmt.Fprintf(w, `<p class="field-error">%s</p>`, esc(msg))
	return err
}

func writeDetailsForm(w io.Writer, snap application.Snapshot) error {
	d := snap.Details
	if _, err := fmt.Fprintf(w,
		`<h2>About you</h2>`+
			`<label>Name<input data-bind-name value="%s"/></label>`,
		esc(d.Name)); err != nil {
		return err
	}
	if err := fieldError(w, snap.FieldErrors, "name"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w,
		`<label>Email<input type="email" data-bind-email value="%s"/></label>`,
		esc(d.Email)); err != nil {
		return err
	}
	if err := fieldError(w, snap.FieldErrors, "email"); err != nil {
		return err
	}
	age := ""
	if d.Age > 0 {
		age = strconv.Itoa(d.Age)
	}
	if _, err := fmt.Fprintf(w,
		`<label>Age<input type="number" data-bind-age value="%s"/></label>`, age); err != nil {
		return err
	}
	if err := fieldError(w, snap.FieldErrors, "age"); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, `<label>Gender<select data-bind-gender>`+
		`<option value="">Select...</option>`); err != nil {
		return err
	}
	for _, g := range []domain.Gender{domain.GenderMale, domain.GenderFemale, domain.GenderOther} {
		selected := ""
		if d.Gender == g {
			selected = " selected"
		}
		if _, err := fmt.Fprintf(w, `<option value="%s"%s>%s</option>`, g, selected, g); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(w, `</select></label>`); err != nil {
		return err
	}
	if err := fieldError(w, snap.FieldErrors, "gender"); err != nil {
		return err
	}
	_, err := fmt.Fprint(w,
		`<button data-on-click="@post('/flow/details')">Continue</button>`)
	return err
}

func writeMeasurementForm(w io.Writer, snap application.Snapshot) error {
	m := snap.Measurement
	height := ""
	if m.Height > 0 {
		height = fmtFloat(m.Height)
	}
	weight := ""
	if m.Weight > 0 {
		weight = fmtFloat(m.Weight)
	}
	if _, err := fmt.Fprintf(w,
		`<h2>Your measurements</h2>`+
			`<label>Height<input type="number" step="any" data-bind-height value="%s"/></label>`+
			unitSelect("heightUnit", string(m.HeightUnit), []string{"cm", "ft"}),
		height); err != nil {
		return err
	}
	if err := fieldError(w, snap.FieldErrors, "height"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w,
		`<label>Weight<input type="number" step="any" data-bind-weight value="%s"/></label>`+
			unitSelect("weightUnit", string(m.WeightUnit), []string{"kg", "lbs"}),
		weight); err != nil {
		return err
	}
	if err := fieldError(w, snap.FieldErrors, "weight"); err != nil {
		return err
	}
	if snap.FormError != "" {
		if _, err := fmt.Fprintf(w, `<p class="form-error">%s</p>`, esc(snap.FormError)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w,
		`<div class="actions">`+
			`<button data-on-click="@post('/flow/back')">Back</button>`+
			`<button data-on-click="@post('/flow/measurements')">Calculate BMI</button>`+
			`</div>`)
	return err
}

func unitSelect(signal, current string, options []string) string {
	out := fmt.Sprintf(`<select data-bind-%s>`, signal)
	for _, opt := range options {
		selected := ""
		if opt == current {
			selected = " selected"
		}
		out += fmt.Sprintf(`<option value="%s"%s>%s</option>`, opt, selected, opt)
	}
	return out + `</select>`
}

func writeResultCard(ctx context.Context, w io.Writer, snap application.Snapshot) error {
	r := snap.Result
	if r == nil {
		_, err := fmt.Fprint(w, `<p>No result yet.</p>`)
		return err
	}
	if _, err := fmt.Fprintf(w,
		`<h2>Your result</h2>`+
			`<p class="bmi-value">%.1f</p>`+
			`<p class="bmi-category">%s <span class="bmi-range">(%s)</span></p>`+
			`<p class="bmi-advice">%s</p>`+
			`<p class="bmi-inputs">%s %s, %s %s</p>`,
		r.BMI, esc(string(r.Category)), esc(domain.CategoryRange(r.Category)),
		esc(domain.HealthAdvice(r.Category)),
		fmtFloat(snap.Measurement.Height), snap.Measurement.HeightUnit,
		fmtFloat(snap.Measurement.Weight), snap.Measurement.WeightUnit); err != nil {
		return err
	}
	if err := SaveStatus(snap).Render(ctx, w); err != nil {
		return err
	}
	if err := NotifyStatus(snap).Render(ctx, w); err != nil {
		return err
	}
	_, err := fmt.Fprint(w,
		`<div class="actions">`+
			`<button data-on-click="@post('/flow/back')">Back</button>`+
			`<button data-on-click="@post('/flow/email')">Email my results</button>`+
			`<button data-on-click="@post('/flow/reset')">Start over</button>`+
			`</div>`)
	return err
}

// SaveStatus is small and polled separately while a save is in flight.
func SaveStatus(snap application.Snapshot) templ.Component {
	return component(func(ctx context.Context, w io.Writer) error {
		var body string
		switch snap.SaveStatus {
		case application.SaveSaving:
			body = `<span class="spinner"></span> Saving your result...`
		case application.SaveSaved:
			body = `Result saved to your history.`
		case application.SaveSkipped:
			body = `Result not stored (no store configured).`
		case application.SaveFailed:
			body = fmt.Sprintf(`%s <button data-on-click="@post('/flow/retry-save')">Retry</button>`,
				esc(snap.SaveError))
		default:
			body = ``
		}
		poll := ``
		if snap.SaveStatus == application.SaveSaving {
			poll = ` data-on-interval__duration.1s="@get('/flow/save-status')"`
		}
		_, err := fmt.Fprintf(w, `<div id="save-status" class="save-%s"%s>%s</div>`,
			snap.SaveStatus, poll, body)
		return err
	})
}

func NotifyStatus(snap application.Snapshot) templ.Component {
	return component(func(ctx context.Context, w io.Writer) error {
		var body string
		switch snap.NotifyStatus {
		case application.NotifySending:
			body = `Sending email...`
		case application.NotifySent, application.NotifyFailed:
			body = esc(snap.NotifyMessage)
		default:
			body = ``
		}
		_, err := fmt.Fprintf(w, `<div id="notify-status" class="notify-%s">%s</div>`,
			snap.NotifyStatus, body)
		return err
	})
}

// HistoryOverlay lists saved entries newest first. Hidden when closed so
// the fragment can always be swapped in place.
func HistoryOverlay(entries []domain.Entry, open bool) templ.Component {
	return component(func(ctx context.Context, w io.Writer) error {
		hidden := ` hidden`
		if open {
			hidden = ``
		}
		if _, err := fmt.Fprintf(w, `<aside id="history" class="overlay"%s>`+
			`<header><h2>Your history</h2>`+
			`<button data-on-click="@post('/history/close')">Close</button></header>`, hidden); err != nil {
			return err
		}
		if len(entries) == 0 {
			if _, err := fmt.Fprint(w, `<p class="empty">No saved calculations yet.</p>`); err != nil {
				return err
			}
		}
		for _, e := range entries {
			if _, err := fmt.Fprintf(w,
				`<article class="history-entry">`+
					`<p><strong>%.1f</strong> %s</p>`+
					`<p>%.1f cm, %.1f kg (%s)</p>`+
					`<time>%s</time>`+
					`<button data-on-click="@post('/history/delete', {entryId: '%d'})">Delete</button>`+
					`</article>`,
				e.BMI, esc(string(e.Category)),
				e.HeightCm, e.WeightKg, e.UnitSystem,
				e.CreatedAt.Format("2006-01-02 15:04"), e.ID); err != nil {
				return err
			}
		}
		_, err := fmt.Fprint(w, `</aside>`)
		return err
	})
}
