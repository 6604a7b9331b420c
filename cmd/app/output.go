package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kunometrika/bmitrack/internal/domain"
)

type computeResult struct {
	BMI      float64 `json:"bmi"`
	Category string  `json:"category"`
	Range    string  `json:"range"`
}

type saveResult struct {
	Entry   domain.Entry `json:"entry"`
	Skipped bool         `json:"skipped"`
}

type emailResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	EmailID string `json:"email_id"`
}

func printJSON(v any) error {
	b, err := jsonMarshal(v)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printKV(rows [][2]string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, row := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1])
	}
	_ = w.Flush()
}

func printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Println("no results")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func printComputeResult(r computeResult) {
	printKV([][2]string{
		{"bmi", strconv.FormatFloat(r.BMI, 'f', 1, 64)},
		{"category", r.Category},
		{"range", r.Range},
	})
}

func printSaveResult(r saveResult) {
	if r.Skipped {
		fmt.Println("computed but not stored (no store configured)")
		return
	}
	printKV([][2]string{
		{"id", uintToString(r.Entry.ID)},
		{"bmi", strconv.FormatFloat(r.Entry.BMI, 'f', 1, 64)},
		{"category", string(r.Entry.Category)},
		{"created_at", formatTime(r.Entry.CreatedAt)},
	})
}

func printEntries(items []domain.Entry) {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{
			uintToString(item.ID),
			strconv.FormatFloat(item.BMI, 'f', 1, 64),
			string(item.Category),
			strconv.FormatFloat(item.HeightCm, 'f', 1, 64),
			strconv.FormatFloat(item.WeightKg, 'f', 1, 64),
			string(item.UnitSystem),
			formatTime(item.CreatedAt),
		})
	}
	printTable([]string{"ID", "BMI", "CATEGORY", "HEIGHT_CM", "WEIGHT_KG", "UNITS", "CREATED_AT"}, rows)
}

func printEmailResult(r emailResult) {
	rows := [][2]string{
		{"success", strconv.FormatBool(r.Success)},
		{"message", r.Message},
	}
	if r.EmailID != "" {
		rows = append(rows, [2]string{"email_id", r.EmailID})
	}
	printKV(rows)
}
