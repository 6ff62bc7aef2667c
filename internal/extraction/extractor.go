package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

// Evidence is the structured result of extracting one document.
type Evidence struct {
	Method        string
	Text          string
	OCRConfidence float64
	PageCount     int
	Warnings      []string
	Fields        domain.ExtractedFields
}

// Extractor converts document bytes into an evidence record by routing
// through the digital text layer or the OCR provider, then running entity
// extraction over whatever text came out.
type Extractor struct {
	ocr     OCRProvider
	nlp     EntityProvider
	timeout time.Duration
	log     *logger.Logger
}

// NewExtractor creates a new evidence extractor. The timeout bounds each
// OCR invocation so a slow provider cannot stall a processing job.
func NewExtractor(ocr OCRProvider, nlp EntityProvider, timeout time.Duration, log *logger.Logger) *Extractor {
	return &Extractor{
		ocr:     ocr,
		nlp:     nlp,
		timeout: timeout,
		log:     log.WithComponent("extractor"),
	}
}

// Extract produces the evidence record for one document. OCR outages degrade
// to a valid empty record with the ocr_unavailable warning. The PDF text-layer
// scan never fails; an error is returned only when the OCR provider fails for
// a reason other than unavailability or the timeout.
func (e *Extractor) Extract(ctx context.Context, data []byte, contentType string) (*Evidence, error) {
	evidence := &Evidence{Method: domain.MethodNone}

	if strings.EqualFold(contentType, "application/pdf") && IsPDF(data) {
		text, pages := pdfTextLayer(data)
		if text != "" {
			evidence.Method = domain.MethodDigitalText
			evidence.Text = text
			evidence.PageCount = pages
			e.finish(evidence)
			return evidence, nil
		}
		// No text layer: treat as a scanned document and fall through to OCR.
	}

	ocrCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	result, err := e.ocr.Recognize(ocrCtx, data, contentType)
	if err != nil {
		if errors.Is(err, ErrOCRUnavailable) || ocrCtx.Err() != nil {
			e.log.Warn().Err(err).Str("content_type", contentType).Msg("ocr unavailable, returning empty evidence")
			evidence.Warnings = append(evidence.Warnings, domain.WarningOCRUnavailable)
			e.finish(evidence)
			return evidence, nil
		}
		return nil, errors.Extraction(err)
	}

	evidence.Method = domain.MethodImageOCR
	evidence.Text = result.Text
	evidence.OCRConfidence = result.Confidence
	evidence.PageCount = result.PageCount
	evidence.Warnings = append(evidence.Warnings, result.Warnings...)

	e.finish(evidence)
	return evidence, nil
}

// finish runs entity extraction and normalizes warnings.
func (e *Extractor) finish(evidence *Evidence) {
	if strings.TrimSpace(evidence.Text) == "" {
		evidence.Warnings = appendUnique(evidence.Warnings, domain.WarningEmptyText)
		evidence.Fields = domain.ExtractedFields{}
		return
	}
	evidence.Fields = e.nlp.Entities(evidence.Text)
}

// HasDurationPhrase exposes the NLP provider's residency-duration check. The
// rule engine does not call it; it runs its own check over merged signals.
func (e *Extractor) HasDurationPhrase(text string) bool {
	if p, ok := e.nlp.(*RegexEntityProvider); ok {
		return p.HasDurationPhrase(text)
	}
	return false
}

func appendUnique(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}
