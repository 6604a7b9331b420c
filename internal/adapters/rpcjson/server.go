package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kunometrika/bmitrack/internal/application"
	"github.com/kunometrika/bmitrack/internal/domain"
)

// Server exposes the calculator over JSON-RPC 2.0 on a unix socket for
// local tooling. Entry operations take an explicit session_id param; the
// socket itself is the trust boundary (chmod 0600).
type Server struct {
	entries  *application.EntryService
	mailer   *application.Mailer
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Start(path string, entries *application.EntryService, mailer *application.Mailer) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{entries: entries, mailer: mailer, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "bmi.compute":
		var p struct {
			Height     float64 `json:"height"`
			Weight     float64 `json:"weight"`
			HeightUnit string  `json:"height_unit"`
			WeightUnit string  `json:"weight_unit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := domain.Compute(p.Height, p.Weight, domain.HeightUnit(p.HeightUnit), domain.WeightUnit(p.WeightUnit))
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: map[string]any{
			"bmi":      out.BMI,
			"category": out.Category,
			"range":    domain.CategoryRange(out.Category),
		}, ID: req.ID}
	case "entries.save":
		var p struct {
			SessionID  string  `json:"session_id"`
			ClientRef  string  `json:"client_ref"`
			Name       string  `json:"name"`
			Email      string  `json:"email"`
			Age        int     `json:"age"`
			Gender     string  `json:"gender"`
			Height     float64 `json:"height"`
			Weight     float64 `json:"weight"`
			HeightUnit string  `json:"height_unit"`
			WeightUnit string  `json:"weight_unit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		details := domain.PersonalDetails{Name: p.Name, Email: p.Email, Age: p.Age, Gender: domain.Gender(p.Gender)}
		if fe := domain.ValidateDetails(details); fe != nil {
			return appError(req.ID, fe)
		}
		m := domain.Measurement{
			Height:     p.Height,
			HeightUnit: domain.HeightUnit(p.HeightUnit),
			Weight:     p.Weight,
			WeightUnit: domain.WeightUnit(p.WeightUnit),
		}
		if fe := domain.ValidateMeasurement(m); fe != nil {
			return appError(req.ID, fe)
		}
		result, err := domain.Compute(m.Height, m.Weight, m.HeightUnit, m.WeightUnit)
		if err != nil {
			return appError(req.ID, err)
		}
		clientRef := strings.TrimSpace(p.ClientRef)
		if clientRef == "" {
			clientRef = uuid.NewString()
		}
		saved, err := s.entries.Save(ctx, p.SessionID, clientRef, details, m, result)
		if err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: map[string]any{
			"entry":   saved.Entry,
			"skipped": saved.Skipped,
			"result":  result,
		}, ID: req.ID}
	case "entries.list":
		var p struct {
			SessionID string `json:"session_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		out, err := s.entries.List(ctx, p.SessionID)
		if err != nil {
			return internalError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: out, ID: req.ID}
	case "entries.delete":
		var p struct {
			SessionID string `json:"session_id"`
			EntryID   uint   `json:"entry_id"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		if err := s.entries.Delete(ctx, p.SessionID, p.EntryID); err != nil {
			return appError(req.ID, err)
		}
		return response{JSONRPC: "2.0", Result: map[string]any{"ok": true}, ID: req.ID}
	case "email.send":
		var p struct {
			Name       string  `json:"name"`
			Email      string  `json:"email"`
			Age        int     `json:"age"`
			Gender     string  `json:"gender"`
			Height     float64 `json:"height"`
			Weight     float64 `json:"weight"`
			HeightUnit string  `json:"height_unit"`
			WeightUnit string  `json:"weight_unit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		m := domain.Measurement{
			Height:     p.Height,
			HeightUnit: domain.HeightUnit(p.HeightUnit),
			Weight:     p.Weight,
			WeightUnit: domain.WeightUnit(p.WeightUnit),
		}
		result, err := domain.Compute(m.Height, m.Weight, m.HeightUnit, m.WeightUnit)
		if err != nil {
			return appError(req.ID, err)
		}
		details := domain.PersonalDetails{Name: p.Name, Email: p.Email, Age: p.Age, Gender: domain.Gender(p.Gender)}
		outcome := s.mailer.SendResult(ctx, details, m, result)
		return response{JSONRPC: "2.0", Result: map[string]any{
			"success":  outcome.Success,
			"message":  outcome.Message,
			"email_id": outcome.EmailID,
		}, ID: req.ID}
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func appError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 40000, Message: err.Error()}, ID: id}
}

func internalError(id any, err error) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: 50000, Message: fmt.Sprintf("internal error: %v", err)}, ID: id}
}
