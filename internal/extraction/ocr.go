package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// TextResult is what an OCR provider produces for one document.
type TextResult struct {
	Text       string
	PageCount  int
	Confidence float64
	Warnings   []string
}

// ErrOCRUnavailable is returned by providers that cannot run at all (engine
// disabled or unreachable). The extractor degrades to an empty evidence
// record instead of failing the document.
var ErrOCRUnavailable = fmt.Errorf("ocr provider unavailable")

// OCRProvider turns image (or scanned-PDF) bytes into text.
type OCRProvider interface {
	// Recognize runs OCR over the document bytes.
	Recognize(ctx context.Context, data []byte, contentType string) (*TextResult, error)

	// Name returns the provider name for logging/audit
	Name() string
}

// DisabledOCR is the provider used when OCR is switched off.
type DisabledOCR struct{}

func (DisabledOCR) Name() string { return "disabled" }

func (DisabledOCR) Recognize(ctx context.Context, data []byte, contentType string) (*TextResult, error) {
	return nil, ErrOCRUnavailable
}

// RemoteOCR calls an external OCR service over HTTP. The service receives the
// raw bytes as multipart form data and answers with recognized text.
type RemoteOCR struct {
	baseURL    string
	httpClient *http.Client
}

// NewRemoteOCR creates an OCR provider backed by the given service URL.
func NewRemoteOCR(baseURL string, timeout time.Duration) *RemoteOCR {
	return &RemoteOCR{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *RemoteOCR) Name() string { return "remote" }

type remoteOCRResponse struct {
	Text       string   `json:"text"`
	PageCount  int      `json:"page_count"`
	Confidence float64  `json:"confidence"`
	Warnings   []string `json:"warnings"`
}

func (p *RemoteOCR) Recognize(ctx context.Context, data []byte, contentType string) (*TextResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "document.bin")
	if err != nil {
		return nil, fmt.Errorf("ocr: create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("ocr: write document data: %w", err)
	}
	if err := writer.WriteField("content_type", contentType); err != nil {
		return nil, fmt.Errorf("ocr: write content_type field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ocr: close multipart writer: %w", err)
	}

	url := p.baseURL + "/api/v1/recognize"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("ocr: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOCRUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ocr: read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr: service returned %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed remoteOCRResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("ocr: parse response: %w", err)
	}

	return &TextResult{
		Text:       parsed.Text,
		PageCount:  parsed.PageCount,
		Confidence: parsed.Confidence,
		Warnings:   parsed.Warnings,
	}, nil
}

// --- PDF digital text layer ---

var (
	pdfMagic = []byte("%PDF-")

	// Text-showing operators inside uncompressed content streams:
	// (string) Tj  and  [(a) (b)] TJ
	pdfTjPattern = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
	pdfTJPattern = regexp.MustCompile(`\[((?:[^\[\]\\]|\\.)*)\]\s*TJ`)
	pdfStrings   = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)`)
	pdfPageCount = regexp.MustCompile(`/Type\s*/Page[^s]`)
)

// IsPDF reports whether the bytes look like a PDF document.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, pdfMagic)
}

// pdfTextLayer pulls text from a PDF's uncompressed text-showing operators.
// It covers digitally-produced PDFs; scanned PDFs (image-only or compressed
// streams) yield no text and fall through to the OCR provider.
func pdfTextLayer(data []byte) (string, int) {
	var parts []string

	for _, match := range pdfTjPattern.FindAllSubmatch(data, -1) {
		if text := decodePDFString(match[1]); text != "" {
			parts = append(parts, text)
		}
	}
	for _, match := range pdfTJPattern.FindAllSubmatch(data, -1) {
		for _, inner := range pdfStrings.FindAllSubmatch(match[1], -1) {
			if text := decodePDFString(inner[1]); text != "" {
				parts = append(parts, text)
			}
		}
	}

	pages := len(pdfPageCount.FindAll(data, -1))
	if pages == 0 && len(parts) > 0 {
		pages = 1
	}

	return strings.TrimSpace(strings.Join(parts, " ")), pages
}

func decodePDFString(raw []byte) string {
	var b strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(raw) {
			break
		}
		switch raw[i] {
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(raw[i])
		}
	}
	return strings.TrimSpace(b.String())
}
