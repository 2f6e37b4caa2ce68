// Package httpapi exposes the record services as a JSON REST surface.
//
// List and record payloads use a {data: ...} envelope; acknowledgements use
// {ok: true}. Error kinds map to transport status codes explicitly: validation
// 400, authorization 401, storage 500.
package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	app "github.com/vitaltrack/healthd/internal/app"
	"github.com/vitaltrack/healthd/internal/app/domain/document"
	"github.com/vitaltrack/healthd/internal/app/domain/vitals"
	"github.com/vitaltrack/healthd/internal/app/identity"
	"github.com/vitaltrack/healthd/internal/app/metrics"
	docsvc "github.com/vitaltrack/healthd/internal/app/services/documents"
	"github.com/vitaltrack/healthd/internal/app/services/records"
	syncsvc "github.com/vitaltrack/healthd/internal/app/services/sync"
	"github.com/vitaltrack/healthd/internal/apperrors"
)

// maxUploadBytes bounds document uploads.
const maxUploadBytes = 25 << 20

// recordSlugs maps URL resource names to record kinds.
var recordSlugs = map[string]vitals.Kind{
	"blood-pressure": vitals.KindBloodPressure,
	"weight":         vitals.KindWeight,
	"temperature":    vitals.KindTemperature,
}

// Config carries the handler's collaborators and policy knobs.
type Config struct {
	Resolver identity.Resolver
	// InitSchema is invoked by POST /admin/init; nil makes the endpoint a
	// successful no-op (memory-backed deployments have no schema).
	InitSchema func(ctx context.Context) error

	CORSOrigins []string
	// RateLimitPerSecond of 0 disables rate limiting.
	RateLimitPerSecond int
	RateLimitBurst     int

	AuditLogSize int
	AuditLogPath string
}

type handler struct {
	app  *app.Application
	init func(ctx context.Context) error
}

// NewHandler builds the full middleware-wrapped HTTP surface.
func NewHandler(application *app.Application, cfg Config) http.Handler {
	if cfg.Resolver == nil {
		cfg.Resolver = identity.NewStatic("", "")
	}

	h := &handler{app: application, init: cfg.InitSchema}

	sink, err := newFileAuditSink(cfg.AuditLogPath)
	if err != nil {
		sink = nil
	}
	audit := newAuditLog(cfg.AuditLogSize, sink)

	r := chi.NewRouter()

	r.Get("/healthz", h.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/admin/init", h.adminInit)
	r.Get("/admin/audit", h.adminAudit(audit))

	r.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return requireCaller(cfg.Resolver, next)
		})

		r.Route("/records", func(r chi.Router) {
			r.Get("/documents", h.listDocuments)
			r.Post("/documents", h.createDocument)
			r.Delete("/documents/{id}", h.deleteDocument)

			r.Get("/{resource}", h.listRecords)
			r.Post("/{resource}", h.createRecord)
			r.Delete("/{resource}/{id}", h.deleteRecord)
		})

		r.Get("/summary", h.summary)
		r.Get("/stats", h.stats)
		r.Get("/export", h.export)
		r.Post("/sync", h.sync)
	})

	var wrapped http.Handler = r
	var limiter *rateLimiter
	if cfg.RateLimitPerSecond > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = cfg.RateLimitPerSecond
		}
		limiter = newRateLimiter(cfg.RateLimitPerSecond, burst)
	}
	wrapped = wrapWithRateLimit(wrapped, limiter)
	wrapped = wrapWithAudit(wrapped, audit)
	wrapped = wrapWithCORS(wrapped, cfg.CORSOrigins)
	wrapped = metrics.InstrumentHandler(wrapped)
	return wrapped
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) adminInit(w http.ResponseWriter, r *http.Request) {
	if h.init != nil {
		if err := h.init(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	writeOK(w, http.StatusOK)
}

func (h *handler) adminAudit(audit *auditLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, map[string]interface{}{"data": audit.listLimit(limit)})
	}
}

// --- measurement records ----------------------------------------------------

func (h *handler) recordKind(w http.ResponseWriter, r *http.Request) (vitals.Kind, bool) {
	kind, ok := recordSlugs[chi.URLParam(r, "resource")]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return "", false
	}
	return kind, true
}

func (h *handler) listRecords(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.recordKind(w, r)
	if !ok {
		return
	}
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	entries, err := h.app.Records.List(r.Context(), caller, kind)
	metrics.RecordOperation(string(kind), "list", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, renderEntries(kind, entries))
}

func (h *handler) createRecord(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.recordKind(w, r)
	if !ok {
		return
	}
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var payload map[string]interface{}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	entry, err := h.app.Records.Create(r.Context(), caller, kind, inputFromPayload(kind, payload))
	metrics.RecordOperation(string(kind), "create", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.app.Sync.InvalidateSummary(r.Context(), caller.OwnerKey)
	writeData(w, http.StatusCreated, renderEntry(kind, entry))
}

func (h *handler) deleteRecord(w http.ResponseWriter, r *http.Request) {
	kind, ok := h.recordKind(w, r)
	if !ok {
		return
	}
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	err = h.app.Records.Delete(r.Context(), caller, kind, chi.URLParam(r, "id"))
	metrics.RecordOperation(string(kind), "delete", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.app.Sync.InvalidateSummary(r.Context(), caller.OwnerKey)
	writeOK(w, http.StatusOK)
}

// --- documents ---------------------------------------------------------------

func (h *handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	docs, err := h.app.Documents.List(r.Context(), caller)
	metrics.RecordOperation("document", "list", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, renderDocuments(docs))
}

func (h *handler) createDocument(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var file io.Reader
	fileName := ""
	contentType := ""
	if f, header, err := r.FormFile("file"); err == nil {
		defer f.Close()
		file = f
		fileName = header.Filename
		contentType = header.Header.Get("Content-Type")
	}

	input := docsvc.Input{
		EntryDate:   r.FormValue("entry_date"),
		DocType:     r.FormValue("doc_type"),
		FileName:    fileName,
		ContentType: contentType,
		Notes:       r.FormValue("notes"),
	}

	doc, err := h.app.Documents.Create(r.Context(), caller, input, file)
	metrics.RecordOperation("document", "create", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.app.Sync.InvalidateSummary(r.Context(), caller.OwnerKey)
	writeData(w, http.StatusCreated, renderDocument(doc))
}

func (h *handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	err = h.app.Documents.Delete(r.Context(), caller, chi.URLParam(r, "id"))
	metrics.RecordOperation("document", "delete", err)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	h.app.Sync.InvalidateSummary(r.Context(), caller.OwnerKey)
	writeOK(w, http.StatusOK)
}

// --- aggregate endpoints ------------------------------------------------------

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	summary, err := h.app.Sync.Summary(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}

func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	export, err := h.app.Sync.ExportAll(r.Context(), caller)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, renderExport(export))
}

func (h *handler) sync(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var payload struct {
		BloodPressure []map[string]interface{} `json:"bp"`
		Weight        []map[string]interface{} `json:"weight"`
		Temperature   []map[string]interface{} `json:"temp"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	batches := map[vitals.Kind][]records.Input{
		vitals.KindBloodPressure: inputsFromPayloads(vitals.KindBloodPressure, payload.BloodPressure),
		vitals.KindWeight:        inputsFromPayloads(vitals.KindWeight, payload.Weight),
		vitals.KindTemperature:   inputsFromPayloads(vitals.KindTemperature, payload.Temperature),
	}

	result, err := h.app.Sync.ReplaceAll(r.Context(), caller, batches)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	for kind, count := range skipCounts(result.Skipped) {
		metrics.RecordSyncSkips(string(kind), count)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok":      true,
		"skipped": result.Skipped,
	})
}

// stats derives presentation metrics from the already-ordered listings:
// latest classification, averages, and deltas per record family.
func (h *handler) stats(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	windowDays := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			windowDays = parsed
		}
	}

	stats, err := h.buildStats(r.Context(), caller, windowDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeData(w, http.StatusOK, stats)
}

// --- helpers ------------------------------------------------------------------

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{"data": data})
}

func writeOK(w http.ResponseWriter, status int) {
	writeJSON(w, status, map[string]bool{"ok": true})
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, apperrors.HTTPStatus(err), err)
}

func skipCounts(skipped []syncsvc.SkippedItem) map[vitals.Kind]int {
	counts := make(map[vitals.Kind]int, len(skipped))
	for _, item := range skipped {
		counts[item.Kind]++
	}
	return counts
}

func renderEntries(kind vitals.Kind, entries []vitals.Entry) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		out = append(out, renderEntry(kind, e))
	}
	return out
}

// renderEntry emits integer fields as JSON numbers and decimal fields as
// strings, matching the wire form of the NUMERIC columns backing them.
func renderEntry(kind vitals.Kind, entry vitals.Entry) map[string]interface{} {
	sch, _ := vitals.SchemaFor(kind)

	out := map[string]interface{}{
		"id":         entry.ID,
		"entry_date": entry.EntryDate,
		"notes":      nullableString(entry.Notes),
		"created_at": entry.CreatedAt,
	}
	for _, f := range sch.Fields {
		raw := entry.Value(f.Name)
		switch f.Type {
		case vitals.FieldInt:
			if n, err := strconv.Atoi(raw); err == nil {
				out[f.Name] = n
			} else {
				out[f.Name] = nil
			}
		case vitals.FieldDecimal:
			if raw == "" {
				out[f.Name] = nil
			} else {
				out[f.Name] = raw
			}
		}
	}
	return out
}

func renderDocuments(docs []document.Document) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		out = append(out, renderDocument(d))
	}
	return out
}

func renderDocument(d document.Document) map[string]interface{} {
	return map[string]interface{}{
		"id":         d.ID,
		"entry_date": d.EntryDate,
		"doc_type":   d.DocType,
		"file_name":  d.FileName,
		"file_url":   d.FileURL,
		"file_size":  d.FileSize,
		"notes":      nullableString(d.Notes),
		"created_at": d.CreatedAt,
	}
}

func nullableString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// inputFromPayload lifts a decoded JSON object into a service input. Numeric
// fields arrive as JSON numbers or strings depending on the client; both are
// accepted.
func inputFromPayload(kind vitals.Kind, payload map[string]interface{}) records.Input {
	sch, _ := vitals.SchemaFor(kind)

	input := records.Input{
		EntryDate: stringField(payload, "entry_date"),
		Notes:     stringField(payload, "notes"),
		Values:    make(map[string]string, len(sch.Fields)),
	}
	for _, f := range sch.Fields {
		switch v := payload[f.Name].(type) {
		case string:
			input.Values[f.Name] = v
		case float64:
			input.Values[f.Name] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return input
}

func inputsFromPayloads(kind vitals.Kind, payloads []map[string]interface{}) []records.Input {
	out := make([]records.Input, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, inputFromPayload(kind, p))
	}
	return out
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func renderExport(export syncsvc.Export) map[string]interface{} {
	return map[string]interface{}{
		"bp":     renderEntries(vitals.KindBloodPressure, export.BloodPressure),
		"weight": renderEntries(vitals.KindWeight, export.Weight),
		"temp":   renderEntries(vitals.KindTemperature, export.Temperature),
		"docs":   renderDocuments(export.Documents),
	}
}
