package extraction

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlinduldulao/citizenship-application/internal/application/domain"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

func digitalPDF(text string) []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Page >>\nendobj\nstream\nBT (" + text + ") Tj ET\nendstream\n%%EOF")
}

type stubOCR struct {
	result *TextResult
	err    error
	calls  int
}

func (s *stubOCR) Name() string { return "stub" }

func (s *stubOCR) Recognize(ctx context.Context, data []byte, contentType string) (*TextResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newTestExtractor(ocr OCRProvider) *Extractor {
	log := logger.New("test", "development")
	return NewExtractor(ocr, NewRegexEntityProvider(DefaultDictionaries()), 5*time.Second, log)
}

func TestExtract_DigitalTextLayer(t *testing.T) {
	ocr := &stubOCR{}
	extractor := newTestExtractor(ocr)

	evidence, err := extractor.Extract(context.Background(), digitalPDF("Navn: Ola Nordmann passnummer NO1234567"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, domain.MethodDigitalText, evidence.Method)
	assert.Contains(t, evidence.Text, "Ola Nordmann")
	assert.Contains(t, evidence.Fields.PassportNumbers, "NO1234567")
	assert.Zero(t, ocr.calls, "digital path should not touch the OCR provider")
}

func TestExtract_ScannedPDFFallsThroughToOCR(t *testing.T) {
	ocr := &stubOCR{result: &TextResult{
		Text:       "statsborgerskap politiattest",
		PageCount:  1,
		Confidence: 0.82,
	}}
	extractor := newTestExtractor(ocr)

	// A PDF without any text-showing operators behaves like a scan.
	scanned := []byte("%PDF-1.4\n1 0 obj\n<< /Type /Page >>\nendobj\n%%EOF")
	evidence, err := extractor.Extract(context.Background(), scanned, "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, domain.MethodImageOCR, evidence.Method)
	assert.Equal(t, 0.82, evidence.OCRConfidence)
	assert.Equal(t, 1, ocr.calls)
	assert.Contains(t, evidence.Fields.CitizenshipKeywords, "statsborgerskap")
}

func TestExtract_ImageGoesStraightToOCR(t *testing.T) {
	ocr := &stubOCR{result: &TextResult{Text: "residence permit", PageCount: 1, Confidence: 0.9}}
	extractor := newTestExtractor(ocr)

	evidence, err := extractor.Extract(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0x00}, "image/jpeg")
	require.NoError(t, err)

	assert.Equal(t, domain.MethodImageOCR, evidence.Method)
	assert.Contains(t, evidence.Fields.CitizenshipKeywords, "residence permit")
}

func TestExtract_OCRUnavailableDegradesGracefully(t *testing.T) {
	extractor := newTestExtractor(DisabledOCR{})

	evidence, err := extractor.Extract(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0x00}, "image/png")
	require.NoError(t, err, "an OCR outage must not fail the document")

	assert.Equal(t, domain.MethodNone, evidence.Method)
	assert.Empty(t, evidence.Text)
	assert.Contains(t, evidence.Warnings, domain.WarningOCRUnavailable)
	assert.Contains(t, evidence.Warnings, domain.WarningEmptyText)
	assert.Zero(t, evidence.Fields.EntityRichness)
}

func TestExtract_HardOCRErrorFailsDocument(t *testing.T) {
	ocr := &stubOCR{err: fmt.Errorf("ocr: service returned 500")}
	extractor := newTestExtractor(ocr)

	_, err := extractor.Extract(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0x00}, "image/jpeg")
	require.Error(t, err)
}

func TestExtract_EmptyOCRTextWarnsButSucceeds(t *testing.T) {
	ocr := &stubOCR{result: &TextResult{Text: "", PageCount: 1}}
	extractor := newTestExtractor(ocr)

	evidence, err := extractor.Extract(context.Background(), []byte{0xFF, 0xD8, 0xFF, 0x00}, "image/webp")
	require.NoError(t, err)
	assert.Contains(t, evidence.Warnings, domain.WarningEmptyText)
	assert.Zero(t, evidence.Fields.TotalEntities())
}

func TestPDFTextLayer_DecodesEscapes(t *testing.T) {
	text, pages := pdfTextLayer([]byte("%PDF-1.4\nstream\nBT (Linje \\(en\\)) Tj (to) Tj ET\nendstream"))
	assert.Contains(t, text, "Linje (en)")
	assert.Contains(t, text, "to")
	assert.Equal(t, 1, pages)
}

func TestIsPDF(t *testing.T) {
	assert.True(t, IsPDF([]byte("%PDF-1.7\n")))
	assert.False(t, IsPDF([]byte{0xFF, 0xD8, 0xFF}))
}
