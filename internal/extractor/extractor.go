package extractor

import (
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog/log"

	"document-chat/internal/models"
)

// DocumentReadError marks a PDF that cannot be opened or parsed at all.
// During batch ingestion it is scoped to the one document that failed.
type DocumentReadError struct {
	Path string
	Err  error
}

func (e *DocumentReadError) Error() string {
	return fmt.Sprintf("cannot read document %s: %v", e.Path, e.Err)
}

func (e *DocumentReadError) Unwrap() error { return e.Err }

// OCR converts a rasterized page image into text.
type OCR interface {
	ImageToText(img image.Image) (string, error)
	Close() error
}

// Extractor pulls per-page text out of a PDF, falling back to rasterization
// plus OCR for pages without a text layer (scanned documents).
type Extractor struct {
	ocr OCR
	dpi float64
}

func New(ocr OCR, dpi float64) *Extractor {
	if dpi <= 0 {
		dpi = models.DefaultOCRDPI
	}
	return &Extractor{ocr: ocr, dpi: dpi}
}

// Extract returns the text of every page that yields any, keyed by the
// original 1-based page number, plus the page numbers that yielded nothing.
// Pages keep their original numbers even when earlier pages are skipped.
func (e *Extractor) Extract(filePath string) ([]models.PageText, []int, error) {
	doc, err := fitz.New(filePath)
	if err != nil {
		return nil, nil, &DocumentReadError{Path: filePath, Err: err}
	}
	defer doc.Close()

	textLayer, closeText := openTextLayer(filePath)
	defer closeText()

	pages, skipped := collectPages(doc.NumPage(), textLayer, func(pageNum int) string {
		return e.ocrPage(doc, pageNum-1, filePath)
	})
	return pages, skipped, nil
}

// collectPages walks all pages in document order: text layer first, OCR as
// fallback, nothing emitted for pages that yield neither. Returned entries
// carry the original page number so downstream metadata stays accurate when
// blank pages leave gaps.
func collectPages(numPages int, textLayer, ocr func(int) string) ([]models.PageText, []int) {
	var pages []models.PageText
	var skipped []int
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		text := strings.TrimSpace(textLayer(pageNum))
		if text == "" {
			text = strings.TrimSpace(ocr(pageNum))
		}
		if text == "" {
			skipped = append(skipped, pageNum)
			continue
		}
		pages = append(pages, models.PageText{Page: pageNum, Text: text})
	}
	return pages, skipped
}

// openTextLayer prepares per-page text-layer access. A PDF the text-layer
// parser cannot open is not fatal: every page then goes through OCR.
func openTextLayer(filePath string) (func(int) string, func()) {
	noop := func(int) string { return "" }

	f, err := os.Open(filePath)
	if err != nil {
		return noop, func() {}
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return noop, func() {}
	}
	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Msg("No parseable text layer, using OCR for all pages")
		f.Close()
		return noop, func() {}
	}

	numPages := reader.NumPage()
	return func(pageNum int) string {
		if pageNum > numPages {
			return ""
		}
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			return ""
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Treat an unreadable text layer like an empty one.
			return ""
		}
		return text
	}, func() { f.Close() }
}

func (e *Extractor) ocrPage(doc *fitz.Document, pageIdx int, filePath string) string {
	if e.ocr == nil {
		return ""
	}
	img, err := doc.ImageDPI(pageIdx, e.dpi)
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Int("page", pageIdx+1).Msg("Error rasterizing page")
		return ""
	}
	text, err := e.ocr.ImageToText(img)
	if err != nil {
		log.Warn().Err(err).Str("file", filePath).Int("page", pageIdx+1).Msg("Error running OCR")
		return ""
	}
	return text
}
