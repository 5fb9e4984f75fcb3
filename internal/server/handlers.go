package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mhartley/claim-audit/internal/export"
	"github.com/mhartley/claim-audit/internal/extraction"
	"github.com/mhartley/claim-audit/internal/models"
	"github.com/mhartley/claim-audit/internal/reconcile"
	"github.com/mhartley/claim-audit/internal/report"
	"github.com/mhartley/claim-audit/internal/repository"
	"github.com/mhartley/claim-audit/internal/session"
)

// Analyzer is the external extraction collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, parts []extraction.Part) (string, error)
}

// RecordStore is the external persistence collaborator. The core only needs
// read-your-writes by refetch.
type RecordStore interface {
	Create(record *models.ReimbursementRecord) (string, error)
	ListAll() ([]*models.ReimbursementRecord, error)
	GetByID(id string) (*models.ReimbursementRecord, error)
	Update(id string, update repository.RecordUpdate) error
	BulkDelete(ids []string) error
}

// ReportNotifier pushes rendered report text to the office chat.
type ReportNotifier interface {
	SendReport(ctx context.Context, text string) (string, error)
}

// Handlers bundles the audit core behind HTTP endpoints.
type Handlers struct {
	analyzer     Analyzer
	parser       *extraction.Parser
	engine       *reconcile.Engine
	registry     *session.Registry
	store        RecordStore
	reports      *report.Engine
	anchors      report.Anchors
	formatter    *export.Formatter
	workbooks    *export.WorkbookWriter
	notifier     ReportNotifier // nil when notification is disabled
	extractionTO time.Duration
	logger       *zap.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(
	analyzer Analyzer,
	parser *extraction.Parser,
	engine *reconcile.Engine,
	registry *session.Registry,
	store RecordStore,
	reports *report.Engine,
	anchors report.Anchors,
	formatter *export.Formatter,
	workbooks *export.WorkbookWriter,
	notifier ReportNotifier,
	extractionTimeout time.Duration,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		analyzer:     analyzer,
		parser:       parser,
		engine:       engine,
		registry:     registry,
		store:        store,
		reports:      reports,
		anchors:      anchors,
		formatter:    formatter,
		workbooks:    workbooks,
		notifier:     notifier,
		extractionTO: extractionTimeout,
		logger:       logger,
	}
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "claim-audit",
		"time":    time.Now().Format(time.RFC3339),
	})
}

// auditResponse is the outcome of one audit run.
type auditResponse struct {
	Analysis     *models.RawAnalysis  `json:"analysis"`
	Transactions []models.Transaction `json:"transactions"`
	Results      []reconcile.Result   `json:"results"`
	Insufficient bool                 `json:"insufficient_evidence"`
}

// RunAudit ingests uploaded receipts plus an optional claim form, runs
// extraction, parses the analysis and reconciles the proposal set into the
// working registry.
func (h *Handlers) RunAudit(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid multipart form: %v", err)})
		return
	}

	parts, err := collectParts(form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(parts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one receipt is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.extractionTO)
	defer cancel()

	blob, err := h.analyzer.Analyze(ctx, parts)
	if err != nil {
		h.logger.Error("Extraction failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("extraction failed: %v", err)})
		return
	}

	raw := h.parser.Parse(blob)
	transactions := h.parser.ProposedTransactions(raw)
	evidence := reconcile.EvidenceStatus(h.parser.EvidenceStatus(raw))
	formAmount, receiptAmount := h.parser.ClaimAmounts(raw)

	now := time.Now()
	results := make([]reconcile.Result, 0, len(transactions))

	for i := range transactions {
		tx := &transactions[i]

		in := reconcile.Input{
			FormAmount:    tx.Amount,
			ReceiptAmount: tx.Amount,
			Evidence:      evidence,
			Store:         tx.Store,
			ReceiptDate:   tx.ReceiptDate,
			ProcessedAt:   now,
		}
		if formAmount != nil {
			in.FormAmount = *formAmount
		}
		if receiptAmount != nil {
			in.ReceiptAmount = *receiptAmount
		}

		result := h.engine.Reconcile(in, h.registry.Ledger())
		if result.Disposition != reconcile.CriticalDiscrepancy {
			tx.Amount = result.FinalAmount
		}
		results = append(results, result)
	}

	h.registry.ReplaceAll(transactions)

	c.JSON(http.StatusOK, auditResponse{
		Analysis:     raw,
		Transactions: transactions,
		Results:      results,
		Insufficient: len(transactions) == 0,
	})
}

func collectParts(form *multipart.Form) ([]extraction.Part, error) {
	var parts []extraction.Part

	appendFiles := func(headers []*multipart.FileHeader) error {
		for _, header := range headers {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open upload %s: %w", header.Filename, err)
			}
			data, err := io.ReadAll(file)
			file.Close()
			if err != nil {
				return fmt.Errorf("failed to read upload %s: %w", header.Filename, err)
			}
			parts = append(parts, extraction.Part{
				MimeType: header.Header.Get("Content-Type"),
				Data:     data,
				Name:     header.Filename,
			})
		}
		return nil
	}

	if err := appendFiles(form.File["receipts"]); err != nil {
		return nil, err
	}
	if err := appendFiles(form.File["form"]); err != nil {
		return nil, err
	}
	return parts, nil
}

// UpdateTransaction corrects one field of one working-set proposal.
func (h *Handlers) UpdateTransaction(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction index"})
		return
	}

	var body struct {
		Field string `json:"field" binding:"required"`
		Value string `json:"value"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.registry.UpdateField(index, body.Field, body.Value); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transactions": h.registry.Transactions()})
}

// ConfirmAudit persists the working set. A store failure is surfaced as a
// saved:false flag and the working set stays intact for manual retry; the
// core itself never retries.
func (h *Handlers) ConfirmAudit(c *gin.Context) {
	transactions := h.registry.Transactions()
	if len(transactions) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no transactions to confirm"})
		return
	}

	ids := make([]string, 0, len(transactions))
	for _, tx := range transactions {
		record, err := models.NewRecord(tx.FormattedName, tx.Amount, tx.ClientLocation, tx.Category, tx.ReceiptDate, tx.SourceText)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"saved": false, "error": err.Error()})
			return
		}
		if tx.CurrentReference != "" {
			record.Reference = tx.CurrentReference
		}

		id, err := h.store.Create(record)
		if err != nil {
			h.logger.Error("Persistence failed, working set preserved", zap.Error(err))
			c.JSON(http.StatusOK, gin.H{
				"saved": false,
				"error": fmt.Sprintf("persistence failed: %v", err),
				"ids":   ids,
			})
			return
		}
		ids = append(ids, id)
	}

	h.registry.ClearTransactions()
	c.JSON(http.StatusOK, gin.H{"saved": true, "ids": ids})
}

// ResetAudit discards the session working set and duplicate ledger.
func (h *Handlers) ResetAudit(c *gin.Context) {
	h.registry.Reset()
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// ListRecords returns the full persisted collection.
func (h *Handlers) ListRecords(c *gin.Context) {
	records, err := h.store.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

// BulkDeleteRecords removes the given record ids.
func (h *Handlers) BulkDeleteRecords(c *gin.Context) {
	var body struct {
		IDs []string `json:"ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.store.BulkDelete(body.IDs); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": len(body.IDs)})
}

// SettleRecord records a settlement reference and moves the record to PAID.
func (h *Handlers) SettleRecord(c *gin.Context) {
	id := c.Param("id")

	var body struct {
		Reference string `json:"reference" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := h.store.GetByID(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "record not found"})
		return
	}

	if err := record.MarkPaid(body.Reference); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}

	err = h.store.Update(id, repository.RecordUpdate{
		Status:    &record.Status,
		Reference: &record.Reference,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": record})
}

// ExportRecords bulk-exports the full collection as CSV or a workbook.
func (h *Handlers) ExportRecords(c *gin.Context) {
	records, err := h.store.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch c.DefaultQuery("format", "csv") {
	case "csv":
		c.Data(http.StatusOK, "text/csv", []byte(export.WriteCSV(records)))
	case "xlsx":
		data, err := h.workbooks.WriteWorkbook(records)
		if err != nil {
			// Workbook generation failing still leaves the flat export.
			h.logger.Error("Workbook export failed, falling back to CSV", zap.Error(err))
			c.Data(http.StatusOK, "text/csv", []byte(export.WriteCSV(records)))
			return
		}
		c.Header("Content-Disposition", `attachment; filename="records.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format"})
	}
}

// reportFor recomputes the requested report over a fresh fetch of the full
// collection.
func (h *Handlers) reportFor(c *gin.Context) (report.Kind, []*models.ReimbursementRecord, time.Time, bool) {
	kind, err := report.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", nil, time.Time{}, false
	}

	var target time.Time
	if dateStr := c.Query("date"); dateStr != "" {
		target, err = time.Parse("2006-01-02", dateStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid date %q", dateStr)})
			return "", nil, time.Time{}, false
		}
	}

	records, err := h.store.ListAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return "", nil, time.Time{}, false
	}

	return kind, records, target, true
}

// GetReport computes a report snapshot, or the synthesized schedule for the
// end-of-day kind. An empty window is an explicit no-data answer, never a
// zero-total snapshot.
func (h *Handlers) GetReport(c *gin.Context) {
	kind, records, target, ok := h.reportFor(c)
	if !ok {
		return
	}
	now := time.Now()

	if kind == report.KindEODSchedule {
		window := report.WindowFor(kind, now, target)
		entries, err := report.SynthesizeSchedule(window.Filter(records), window.Target, h.anchors, nil)
		if err != nil {
			h.respondReportError(c, kind, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"kind": kind, "entries": entries})
		return
	}

	snapshot, err := h.reports.Aggregate(records, kind, now, target)
	if err != nil {
		h.respondReportError(c, kind, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "snapshot": snapshot})
}

// ExportReport renders a report in one of the paste formats.
func (h *Handlers) ExportReport(c *gin.Context) {
	kind, records, target, ok := h.reportFor(c)
	if !ok {
		return
	}
	now := time.Now()

	if kind == report.KindEODSchedule {
		window := report.WindowFor(kind, now, target)
		entries, err := report.SynthesizeSchedule(window.Filter(records), window.Target, h.anchors, nil)
		if err != nil {
			h.respondReportError(c, kind, err)
			return
		}
		title := "End of Day Schedule — " + window.Target.Format("Mon 02 Jan 2006")
		c.String(http.StatusOK, h.formatter.ScheduleTable(title, entries))
		return
	}

	snapshot, err := h.reports.Aggregate(records, kind, now, target)
	if err != nil {
		h.respondReportError(c, kind, err)
		return
	}

	switch c.DefaultQuery("format", "markdown") {
	case "markdown":
		c.String(http.StatusOK, h.formatter.Preview(snapshot))
	case "html":
		c.Data(http.StatusOK, "text/html", []byte(h.formatter.RichTable(snapshot)))
	case "tsv":
		c.String(http.StatusOK, h.formatter.FlatTable(snapshot))
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format"})
	}
}

// NotifyReport pushes the rendered report to the office chat.
func (h *Handlers) NotifyReport(c *gin.Context) {
	if h.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notification is not configured"})
		return
	}

	kind, records, target, ok := h.reportFor(c)
	if !ok {
		return
	}
	now := time.Now()

	var text string
	if kind == report.KindEODSchedule {
		window := report.WindowFor(kind, now, target)
		entries, err := report.SynthesizeSchedule(window.Filter(records), window.Target, h.anchors, nil)
		if err != nil {
			h.respondReportError(c, kind, err)
			return
		}
		title := "End of Day Schedule — " + window.Target.Format("Mon 02 Jan 2006")
		text = h.formatter.ScheduleTable(title, entries)
	} else {
		snapshot, err := h.reports.Aggregate(records, kind, now, target)
		if err != nil {
			h.respondReportError(c, kind, err)
			return
		}
		text = h.formatter.FlatTable(snapshot)
	}

	messageID, err := h.notifier.SendReport(c.Request.Context(), text)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message_id": messageID})
}

func (h *Handlers) respondReportError(c *gin.Context, kind report.Kind, err error) {
	if errorsIsNoData(err) {
		c.JSON(http.StatusOK, gin.H{"kind": kind, "no_data": true, "message": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func errorsIsNoData(err error) bool {
	return errors.Is(err, report.ErrNoData)
}
