package http

import (
	"bytes"
	"net/http"
	"sync/atomic"
	"time"

	"skledger/internal/core"
	"skledger/internal/export"
	"skledger/internal/ledger"
	applog "skledger/internal/log"
)

// mutationResponse reports whether a schema edit took effect. Rejected
// edits, such as a column past the limit, still answer 200.
type mutationResponse struct {
	Changed bool        `json:"changed"`
	Period  ledger.View `json:"period"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := StatusFor(err)
	switch {
	case status >= 500:
		s.events.LogError(r.Context(), "Ledger request failed", err, applog.ComponentLedger, op,
			applog.NewFields().WithPeriod(r.PathValue("key")))
	case status == http.StatusUnprocessableEntity:
		s.logger.InfoContext(r.Context(), "Entry rejected",
			applog.FieldPeriod, r.PathValue("key"),
			applog.FieldOperation, op,
			"error_type", applog.ErrorTypeValidation,
			applog.FieldError, err)
	}
	FromError(err).Write(w)
}

func (s *Server) handleListPeriods(w http.ResponseWriter, r *http.Request) {
	if s.lister == nil {
		ErrorResponse(http.StatusNotImplemented, "backend cannot list periods").Write(w)
		return
	}
	keys, err := s.lister.ListPeriods(r.Context())
	if err != nil {
		s.writeError(w, r, applog.OpList, err)
		return
	}
	type item struct {
		Key   core.PeriodKey `json:"key"`
		Label string         `json:"label"`
		State ledger.State   `json:"state"`
	}
	out := make([]item, 0, len(keys))
	for _, k := range keys {
		out = append(out, item{Key: k, Label: k.Label(), State: s.ledger.Status(k).State})
	}
	NewResponse().JSON(map[string]any{"periods": out}).Write(w)
}

// handleGetPeriod opens the period, making it the active one.
func (s *Server) handleGetPeriod(w http.ResponseWriter, r *http.Request) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	view, err := s.ledger.Open(r.Context(), key)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(view).Write(w)
}

// handleCurrentPeriod opens the quarter containing today.
func (s *Server) handleCurrentPeriod(w http.ResponseWriter, r *http.Request) {
	view, err := s.ledger.Open(r.Context(), core.PeriodForDate(s.now()))
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(view).Write(w)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	totals, err := s.ledger.Totals(r.Context(), key)
	if err != nil {
		s.writeError(w, r, applog.OpRead, err)
		return
	}
	NewResponse().JSON(map[string]any{"key": key, "totals": totals}).Write(w)
}

func (s *Server) handleSetMetadata(w http.ResponseWriter, r *http.Request) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpMetadata, err)
		return
	}
	var req MetadataRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpMetadata, err)
		return
	}
	if err := s.ledger.SetMetadata(r.Context(), key, sanitizeInput(req.Fund), sanitizeInput(req.SheetNo)); err != nil {
		s.writeError(w, r, applog.OpMetadata, err)
		return
	}
	s.respondView(w, r, key, http.StatusOK, applog.OpMetadata)
}

func (s *Server) handleSetOpening(w http.ResponseWriter, r *http.Request) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpOpening, err)
		return
	}
	var req OpeningRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpOpening, err)
		return
	}
	if err := s.ledger.SetOpeningBalance(r.Context(), key, req.Amount.Decimal()); err != nil {
		s.writeError(w, r, applog.OpOpening, err)
		return
	}
	s.respondView(w, r, key, http.StatusOK, applog.OpOpening)
}

func (s *Server) handleAppendEntry(w http.ResponseWriter, r *http.Request) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpAppend, err)
		return
	}
	var req DraftRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, applog.OpAppend, err)
		return
	}
	draft, err := req.Draft()
	if err != nil {
		s.writeError(w, r, applog.OpAppend, err)
		return
	}
	if err := s.ledger.Append(r.Context(), key, draft); err != nil {
		s.writeError(w, r, applog.OpAppend, err)
		return
	}
	atomic.AddInt64(&s.appMetrics.entriesAppended, 1)

	view, err := s.ledger.View(r.Context(), key)
	if err != nil {
		s.writeError(w, r, applog.OpAppend, err)
		return
	}
	amount := draft.Deposit
	if amount.IsZero() {
		amount = draft.Withdrawal.Neg()
	}
	s.events.LogEntryAppended(r.Context(), key.String(), len(view.Record.Entries)-1,
		draft.Reference, draft.Payee, core.FormatAmount(amount))
	NewResponse().Status(http.StatusCreated).JSON(view).Write(w)
}

// handleWithdrawEntry removes an entry and returns it as a draft for editing.
func (s *Server) handleWithdrawEntry(w http.ResponseWriter, r *http.Request) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpWithdraw, err)
		return
	}
	index, err := IndexParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpWithdraw, err)
		return
	}
	draft, err := s.ledger.Withdraw(r.Context(), key, index)
	if err != nil {
		s.writeError(w, r, applog.OpWithdraw, err)
		return
	}
	s.logger.InfoContext(r.Context(), "Entry withdrawn",
		applog.FieldPeriod, key.String(),
		applog.FieldEntryIndex, index,
		applog.FieldReference, draft.Reference)
	NewResponse().JSON(draft).Write(w)
}

func (s *Server) handleAddAccount(w http.ResponseWriter, r *http.Request) {
	s.editSchema(w, r, false, func(key core.PeriodKey, kind core.AccountKind, _ int, label string) (bool, error) {
		return s.ledger.AddAccount(r.Context(), key, kind, label)
	})
}

func (s *Server) handleRenameAccount(w http.ResponseWriter, r *http.Request) {
	s.editSchema(w, r, true, func(key core.PeriodKey, kind core.AccountKind, index int, label string) (bool, error) {
		return s.ledger.RenameAccount(r.Context(), key, kind, index, label)
	})
}

func (s *Server) handleRemoveAccount(w http.ResponseWriter, r *http.Request) {
	s.editSchema(w, r, true, func(key core.PeriodKey, kind core.AccountKind, index int, _ string) (bool, error) {
		return s.ledger.RemoveAccount(r.Context(), key, kind, index)
	})
}

type schemaEdit func(key core.PeriodKey, kind core.AccountKind, index int, label string) (bool, error)

func (s *Server) editSchema(w http.ResponseWriter, r *http.Request, indexed bool, edit schemaEdit) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpSchema, err)
		return
	}
	kind, err := KindParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpSchema, err)
		return
	}
	index := 0
	if indexed {
		if index, err = IndexParam(r); err != nil {
			s.writeError(w, r, applog.OpSchema, err)
			return
		}
	}
	var req LabelRequest
	if r.Method != http.MethodDelete {
		if err := DecodeJSON(w, r, &req); err != nil {
			s.writeError(w, r, applog.OpSchema, err)
			return
		}
	}
	label := sanitizeInput(req.Label)

	changed, err := edit(key, kind, index, label)
	if err != nil {
		s.writeError(w, r, applog.OpSchema, err)
		return
	}
	if !changed {
		s.logger.DebugContext(r.Context(), "Schema edit ignored",
			applog.FieldPeriod, key.String(),
			applog.FieldAccountKind, string(kind),
			applog.FieldAccountLabel, label)
	}
	view, err := s.ledger.View(r.Context(), key)
	if err != nil {
		s.writeError(w, r, applog.OpSchema, err)
		return
	}
	NewResponse().JSON(mutationResponse{Changed: changed, Period: view}).Write(w)
}

// handleSave saves the period now. A persistence failure answers 503 and
// leaves the period dirty for a later retry.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpSave, err)
		return
	}
	// Saving only writes loaded periods; an explicit save of an untouched
	// quarter persists its defaults.
	if _, err := s.ledger.View(r.Context(), key); err != nil {
		s.writeError(w, r, applog.OpSave, err)
		return
	}
	if err := s.ledger.Save(r.Context(), key); err != nil {
		atomic.AddInt64(&s.appMetrics.saveFailures, 1)
		s.writeError(w, r, applog.OpSave, err)
		return
	}
	NewResponse().JSON(s.ledger.Status(key)).Write(w)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	snap, err := s.snapshot(r, key)
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	NewResponse().JSON(snap).Write(w)
}

func (s *Server) handleExportWorkbook(w http.ResponseWriter, r *http.Request) {
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	snap, err := s.snapshot(r, key)
	if err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, snap); err != nil {
		s.writeError(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(snap)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// printPage is the data of register.html.
type printPage struct {
	Snapshot  export.Snapshot
	Width     int
	PrintedAt string
}

func (s *Server) handlePrint(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			applog.FieldPath, r.URL.Path,
			"error_type", applog.ErrorTypeConfiguration)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	key, err := PeriodParam(r)
	if err != nil {
		s.writeError(w, r, applog.OpRender, err)
		return
	}
	snap, err := s.snapshot(r, key)
	if err != nil {
		s.writeError(w, r, applog.OpRender, err)
		return
	}

	var buf bytes.Buffer
	page := printPage{
		Snapshot:  snap,
		Width:     len(snap.Header()),
		PrintedAt: time.Now().Format("January 2, 2006 15:04"),
	}
	if err := s.templates.ExecuteTemplate(&buf, "register.html", page); err != nil {
		s.logger.ErrorContext(r.Context(), "Print template execution failed",
			applog.FieldError, err,
			applog.FieldPeriod, key.String())
		InternalServerError("render failed").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// snapshot returns the export snapshot of key, from cache when the cached
// copy was built at the current revision.
func (s *Server) snapshot(r *http.Request, key core.PeriodKey) (export.Snapshot, error) {
	if s.snapshots == nil {
		return s.ledger.Snapshot(r.Context(), key)
	}
	rev := s.ledger.Status(key).Revision
	if snap, ok := s.snapshots.Get(key, rev); ok {
		atomic.AddInt64(&s.appMetrics.cacheHits, 1)
		s.logger.DebugContext(r.Context(), "Snapshot cache hit", applog.FieldPeriod, key.String())
		return snap, nil
	}
	atomic.AddInt64(&s.appMetrics.cacheMisses, 1)
	snap, err := s.ledger.Snapshot(r.Context(), key)
	if err != nil {
		return export.Snapshot{}, err
	}
	s.snapshots.Set(key, rev, snap)
	return snap, nil
}

func (s *Server) respondView(w http.ResponseWriter, r *http.Request, key core.PeriodKey, status int, op string) {
	view, err := s.ledger.View(r.Context(), key)
	if err != nil {
		s.writeError(w, r, op, err)
		return
	}
	NewResponse().Status(status).JSON(view).Write(w)
}
