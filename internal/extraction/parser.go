package extraction

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mhartley/claim-audit/internal/models"
)

// Phase marker pairs emitted by the extraction collaborator. The analysis
// blob contains the four sections delimited by these, in any order.
var phaseMarkers = [4][2]string{
	{"[PHASE1]", "[/PHASE1]"},
	{"[PHASE2]", "[/PHASE2]"},
	{"[PHASE3]", "[/PHASE3]"},
	{"[PHASE4]", "[/PHASE4]"},
}

var (
	// Currency token: $ followed by digits, optional thousands commas and
	// decimal part. First match in the decision section wins.
	amountPattern = regexp.MustCompile(`\$\s*([\d,]+(?:\.\d+)?)`)

	// Labelled fields in the decision section.
	staffPattern    = regexp.MustCompile(`(?im)^\s*Staff:\s*(.+)$`)
	locationPattern = regexp.MustCompile(`(?im)^\s*Location:\s*(.+)$`)
	categoryPattern = regexp.MustCompile(`(?im)^\s*Category:\s*(.+)$`)
	datePattern     = regexp.MustCompile(`(?im)^\s*Receipt date:\s*(\d{4}-\d{2}-\d{2})`)
)

// Parser slices a single extraction result blob into its phase sections
// and scrapes the proposed transaction out of the decision section.
//
// Scraping a free-text response is inherently fragile; the parser therefore
// never fails on absent content. A missing marker pair yields an empty
// section and a missing amount yields an empty transaction set.
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new extraction result parser.
func NewParser(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse extracts the four phase sections from the blob. Absent sections
// come back empty, never as an error.
func (p *Parser) Parse(blob string) *models.RawAnalysis {
	raw := &models.RawAnalysis{}
	sections := [4]*string{&raw.Phase1, &raw.Phase2, &raw.Phase3, &raw.Phase4}

	for i, pair := range phaseMarkers {
		section, ok := sliceBetween(blob, pair[0], pair[1])
		if !ok {
			p.logger.Warn("Phase section missing from extraction result",
				zap.String("marker", pair[0]))
			continue
		}
		*sections[i] = strings.TrimSpace(section)
	}

	return raw
}

// ProposedTransactions derives the proposal set from the decision section.
// No extractable amount means no proposals, which the caller surfaces as
// insufficient evidence rather than a failure.
func (p *Parser) ProposedTransactions(raw *models.RawAnalysis) []models.Transaction {
	decision := raw.Phase4

	amountMatch := amountPattern.FindStringSubmatch(decision)
	if amountMatch == nil {
		p.logger.Warn("No currency token found in decision section")
		return nil
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(amountMatch[1], ",", ""))
	if err != nil {
		p.logger.Warn("Unparseable currency token in decision section",
			zap.String("token", amountMatch[0]), zap.Error(err))
		return nil
	}

	tx := models.Transaction{
		FormattedName:    labelValue(staffPattern, decision, models.StaffUnknown),
		Amount:           amount.Round(2),
		CurrentReference: models.ReferencePending,
		ClientLocation:   labelValue(locationPattern, decision, models.LocationUnknown),
		Category:         labelValue(categoryPattern, decision, ""),
		SourceText:       decision,
	}
	if store := p.Store(raw); store != "" {
		tx.Store = store
	} else {
		tx.Store = tx.ClientLocation
	}

	if dateMatch := datePattern.FindStringSubmatch(decision); dateMatch != nil {
		if d, err := time.Parse("2006-01-02", dateMatch[1]); err == nil {
			tx.ReceiptDate = d
		}
	}

	p.logger.Info("Proposed transaction scraped from decision section",
		zap.String("staff", tx.FormattedName),
		zap.String("amount", tx.Amount.String()))

	return []models.Transaction{tx}
}

// sliceBetween returns the substring between the first occurrence of start
// and the following occurrence of end. Both markers must be present.
func sliceBetween(s, start, end string) (string, bool) {
	i := strings.Index(s, start)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

// labelValue returns the first labelled value matched by re, or fallback.
func labelValue(re *regexp.Regexp, s, fallback string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return fallback
}
