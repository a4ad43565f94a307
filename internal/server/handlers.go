package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/koustreak/dschema/internal/errs"
	"github.com/koustreak/dschema/internal/profile"
	"github.com/koustreak/dschema/internal/render"
	"github.com/koustreak/dschema/internal/schema"
	"github.com/koustreak/dschema/internal/sketch"
)

type tableSummary struct {
	Name        string `json:"name"`
	Columns     int    `json:"columns"`
	RecordCount *int64 `json:"record_count,omitempty"`
}

type columnView struct {
	*schema.Column
	Table        string   `json:"table"`
	Cardinality  string   `json:"cardinality"`
	NonNullRatio *float64 `json:"non_null_ratio,omitempty"`
}

type similarityView struct {
	Left          string  `json:"left"`
	Right         string  `json:"right"`
	Similarity    float64 `json:"similarity"`
	LeftDistinct  float64 `json:"left_estimated_distinct"`
	RightDistinct float64 `json:"right_estimated_distinct"`
}

type warningView struct {
	Column  string `json:"column"`
	Step    string `json:"step"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type tableReportView struct {
	Table      string        `json:"table"`
	Error      string        `json:"error,omitempty"`
	Skipped    bool          `json:"skipped"`
	Cancelled  bool          `json:"cancelled"`
	DurationMS int64         `json:"duration_ms"`
	Warnings   []warningView `json:"warnings"`
}

type reportView struct {
	RunID      string            `json:"run_id"`
	Database   string            `json:"database"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	DurationMS int64             `json:"duration_ms"`
	Tables     []tableReportView `json:"tables"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getSchema(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.snap.Database)
}

func (s *Server) listTables(w http.ResponseWriter, _ *http.Request) {
	out := make([]tableSummary, 0, len(s.snap.Database.Tables))
	for _, t := range s.snap.Database.Tables {
		sum := tableSummary{Name: t.Name, Columns: len(t.Columns)}
		if t.Profile != nil {
			n := t.Profile.RecordCount
			sum.RecordCount = &n
		}
		out = append(out, sum)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getTable(w http.ResponseWriter, r *http.Request) {
	t, err := s.table(chi.URLParam(r, "table"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) getColumn(w http.ResponseWriter, r *http.Request) {
	t, c, err := s.column(chi.URLParam(r, "table"), chi.URLParam(r, "column"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view := columnView{Column: c, Table: t.Name, Cardinality: string(c.Cardinality())}
	if t.Profile != nil {
		if ratio, ok := c.Profile.NonNullRatio(t.Profile.RecordCount); ok {
			view.NonNullRatio = &ratio
		}
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) getRender(w http.ResponseWriter, r *http.Request) {
	kind, err := render.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrKindNotFound, "unknown output format", err))
		return
	}
	body, err := render.Render(kind, s.snap.Database, s.opts.Render)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(kind))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) getSimilarity(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	left, err := s.sketchOf(q.Get("left"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	right, err := s.sketchOf(q.Get("right"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sim, err := left.Similarity(right)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, similarityView{
		Left:          q.Get("left"),
		Right:         q.Get("right"),
		Similarity:    sim,
		LeftDistinct:  left.Cardinality(),
		RightDistinct: right.Cardinality(),
	})
}

func (s *Server) getCandidates(w http.ResponseWriter, r *http.Request) {
	threshold := s.opts.CandidateThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, r, errs.Wrap(errs.ErrKindInvalidInput, "threshold must be a number", err))
			return
		}
		threshold = v
	}
	cands, err := profile.Candidates(s.snap.Database, threshold)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if cands == nil {
		cands = []profile.Candidate{}
	}
	s.writeJSON(w, http.StatusOK, cands)
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rep := s.snap.Report
	if rep == nil {
		s.writeError(w, r, errs.New(errs.ErrKindNotFound, "no profiling run in this snapshot"))
		return
	}

	view := reportView{
		RunID:      rep.RunID.String(),
		Database:   rep.Database,
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		DurationMS: rep.Duration().Milliseconds(),
		Tables:     make([]tableReportView, 0, len(rep.Tables)),
	}
	for _, t := range rep.Tables {
		tv := tableReportView{
			Table:      t.Table,
			Skipped:    t.Skipped,
			Cancelled:  t.Cancelled,
			DurationMS: t.Duration.Milliseconds(),
			Warnings:   make([]warningView, 0, len(t.Warnings)),
		}
		if t.Err != nil {
			tv.Error = t.Err.Error()
		}
		for _, cw := range t.Warnings {
			tv.Warnings = append(tv.Warnings, warningView{
				Column:  cw.Column,
				Step:    cw.Warning.Step,
				Kind:    cw.Warning.Kind,
				Message: cw.Warning.Message,
			})
		}
		view.Tables = append(view.Tables, tv)
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) table(name string) (*schema.Table, error) {
	t := s.snap.Database.Table(name)
	if t == nil {
		return nil, errs.Newf(errs.ErrKindNotFound, "table %q not found", name)
	}
	return t, nil
}

func (s *Server) column(table, column string) (*schema.Table, *schema.Column, error) {
	t, err := s.table(table)
	if err != nil {
		return nil, nil, err
	}
	c := t.Column(column)
	if c == nil {
		return nil, nil, errs.Newf(errs.ErrKindNotFound, "column %q not found in table %q", column, table)
	}
	return t, c, nil
}

// sketchOf resolves "table.column" to the column's deserialized sketch.
func (s *Server) sketchOf(ref string) (*sketch.Sketch, error) {
	table, column, ok := strings.Cut(ref, ".")
	if !ok || table == "" || column == "" {
		return nil, errs.Newf(errs.ErrKindInvalidInput, "column reference %q must look like table.column", ref)
	}
	_, c, err := s.column(table, column)
	if err != nil {
		return nil, err
	}
	if !c.Profile.HasSketch() {
		return nil, errs.Newf(errs.ErrKindNotFound, "column %s has no sketch", ref)
	}
	return sketch.Deserialize(c.Profile.Sketch)
}
