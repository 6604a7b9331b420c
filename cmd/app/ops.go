package main

import (
	"context"
	"fmt"
	"net/http"
)

// measurementInput carries the flag values shared by the compute, save
// and email operations.
type measurementInput struct {
	Height     float64
	HeightUnit string
	Weight     float64
	WeightUnit string
}

type detailsInput struct {
	Name   string
	Email  string
	Age    int
	Gender string
}

func doCompute(ctx context.Context, cfg cliConfig, m measurementInput, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "bmi.compute", map[string]any{
			"height": m.Height, "height_unit": m.HeightUnit,
			"weight": m.Weight, "weight_unit": m.WeightUnit,
		}, out)
	}
	client := newAPIClient(cfg.Server, "")
	return client.request(ctx, http.MethodPost, "/api/compute", map[string]any{
		"height": m.Height, "height_unit": m.HeightUnit,
		"weight": m.Weight, "weight_unit": m.WeightUnit,
	}, out)
}

func doEntriesSave(ctx context.Context, cfg cliConfig, sessionID, clientRef string, d detailsInput, m measurementInput, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "entries.save", map[string]any{
			"session_id": sessionID, "client_ref": clientRef,
			"name": d.Name, "email": d.Email, "age": d.Age, "gender": d.Gender,
			"height": m.Height, "height_unit": m.HeightUnit,
			"weight": m.Weight, "weight_unit": m.WeightUnit,
		}, out)
	}
	client := newAPIClient(cfg.Server, sessionID)
	return client.request(ctx, http.MethodPost, "/api/entries", map[string]any{
		"client_ref": clientRef,
		"name":       d.Name, "email": d.Email, "age": d.Age, "gender": d.Gender,
		"height": m.Height, "height_unit": m.HeightUnit,
		"weight": m.Weight, "weight_unit": m.WeightUnit,
	}, out)
}

func doEntriesList(ctx context.Context, cfg cliConfig, sessionID string, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "entries.list", map[string]any{"session_id": sessionID}, out)
	}
	client := newAPIClient(cfg.Server, sessionID)
	return client.request(ctx, http.MethodGet, "/api/entries", nil, out)
}

func doEntriesDelete(ctx context.Context, cfg cliConfig, sessionID string, id uint, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "entries.delete", map[string]any{"session_id": sessionID, "entry_id": id}, out)
	}
	client := newAPIClient(cfg.Server, sessionID)
	return client.request(ctx, http.MethodDelete, fmt.Sprintf("/api/entries/%d", id), nil, out)
}

func doEmailSend(ctx context.Context, cfg cliConfig, d detailsInput, m measurementInput, out any) error {
	if cfg.Transport == "uds" {
		client := newRPCClient(cfg.Socket)
		return client.call(ctx, "email.send", map[string]any{
			"name": d.Name, "email": d.Email, "age": d.Age, "gender": d.Gender,
			"height": m.Height, "height_unit": m.HeightUnit,
			"weight": m.Weight, "weight_unit": m.WeightUnit,
		}, out)
	}
	client := newAPIClient(cfg.Server, "")
	return client.request(ctx, http.MethodPost, "/api/email", map[string]any{
		"name": d.Name, "email": d.Email, "age": d.Age, "gender": d.Gender,
		"height": m.Height, "height_unit": m.HeightUnit,
		"weight": m.Weight, "weight_unit": m.WeightUnit,
	}, out)
}

func uintToString(v uint) string {
	return fmt.Sprintf("%d", v)
}
