package extraction

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mhartley/claim-audit/internal/models"
)

// Evidence status strings surfaced by the cross-check section. These align
// with the reconciliation engine's evidence values.
const (
	EvidenceOK        = "OK"
	EvidenceMissing   = "MISSING"
	EvidenceIllegible = "ILLEGIBLE"
	EvidenceUnrelated = "UNRELATED"
)

var (
	formAmountPattern    = regexp.MustCompile(`(?im)^\s*Form amount:\s*\$\s*([\d,]+(?:\.\d+)?)`)
	receiptAmountPattern = regexp.MustCompile(`(?im)^\s*Receipt amount:\s*\$\s*([\d,]+(?:\.\d+)?)`)
	storePattern         = regexp.MustCompile(`(?im)^\s*Store:\s*(.+)$`)
)

// ClaimAmounts scrapes the form-vs-receipt amounts out of the cross-check
// section. A missing label leaves its amount nil; callers fall back to the
// decision amount for both sides.
func (p *Parser) ClaimAmounts(raw *models.RawAnalysis) (form, receipt *decimal.Decimal) {
	source := raw.Phase2 + "\n" + raw.Phase4

	if m := formAmountPattern.FindStringSubmatch(source); m != nil {
		if d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			d = d.Round(2)
			form = &d
		}
	}
	if m := receiptAmountPattern.FindStringSubmatch(source); m != nil {
		if d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "")); err == nil {
			d = d.Round(2)
			receipt = &d
		}
	}
	return form, receipt
}

// Store scrapes the merchant name used in the duplicate triple, falling
// back to the client location when no store line is present.
func (p *Parser) Store(raw *models.RawAnalysis) string {
	if m := storePattern.FindStringSubmatch(raw.Phase1 + "\n" + raw.Phase4); m != nil {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return ""
}

// EvidenceStatus classifies the receipt evidence from the cross-check and
// policy sections. Anything not flagged is treated as usable.
func (p *Parser) EvidenceStatus(raw *models.RawAnalysis) string {
	source := strings.ToLower(raw.Phase2 + "\n" + raw.Phase3)

	switch {
	case strings.Contains(source, "no receipt") || strings.Contains(source, "receipt missing") ||
		strings.Contains(source, "missing receipt"):
		return EvidenceMissing
	case strings.Contains(source, "illegible") || strings.Contains(source, "unreadable"):
		return EvidenceIllegible
	case strings.Contains(source, "unrelated"):
		return EvidenceUnrelated
	}
	return EvidenceOK
}
