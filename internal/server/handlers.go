package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/jobtrack/application-tracker/internal/analytics"
	"github.com/jobtrack/application-tracker/internal/models"
	"github.com/jobtrack/application-tracker/internal/patch"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// createRequest mirrors models.NewApplication with a loosely typed salary.
type createRequest struct {
	Company    string          `json:"company"`
	Position   string          `json:"position"`
	Source     string          `json:"source"`
	Date       string          `json:"date"`
	Status     string          `json:"status"`
	Automation string          `json:"automation"`
	Salary     json.RawMessage `json:"salary"`
	Location   *string         `json:"location"`
	Notes      *string         `json:"notes"`
}

func (c createRequest) application() (models.NewApplication, error) {
	salary, err := patch.CoerceSalary(c.Salary)
	if err != nil {
		return models.NewApplication{}, err
	}
	return models.NewApplication{
		Company:    c.Company,
		Position:   c.Position,
		Source:     c.Source,
		Date:       c.Date,
		Status:     c.Status,
		Automation: c.Automation,
		Salary:     salary,
		Location:   c.Location,
		Notes:      c.Notes,
	}, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return models.Validationf("invalid JSON body")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.Validationf("invalid application id %q", r.PathValue("id"))
	}
	return id, nil
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeBody(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}

	user, err := s.deps.Auth.Signup(r.Context(), body.Email, body.Password, body.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeBody(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}

	token, user, err := s.deps.Auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := s.deps.Tracker.ListApplications(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, apps)
}

func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := decodeBody(w, r, &body); err != nil {
		s.respondError(w, r, err)
		return
	}
	in, err := body.application()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.deps.Tracker.CreateApplication(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.respondError(w, r, models.Validationf("failed to read body"))
		return
	}
	p, err := patch.Decode(data)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.deps.Tracker.UpdateApplication(r.Context(), id, p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.deps.Tracker.DeleteApplication(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Application deleted successfully"})
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.deps.Tracker.ListLogs(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleLogSummary(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Tracker.AutomationSummary(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleIntegrations(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Tracker.ListIntegrations(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStatusData(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Tracker.StatusData(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleJobBoards(w http.ResponseWriter, r *http.Request) {
	out, err := s.deps.Tracker.JobBoardData(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleDashboard recomputes every view from the current records.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Tracker.Report(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = analytics.ModeSummary
	}

	body, err := s.deps.Tracker.Export(r.Context(), mode)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="applications-%s.csv"`, mode))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, body)
}
