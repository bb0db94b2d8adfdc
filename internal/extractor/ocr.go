package extractor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// TesseractOCR runs Tesseract against rasterized page images. Not safe for
// concurrent use; the pipeline is strictly sequential.
type TesseractOCR struct {
	client *gosseract.Client
}

func NewTesseractOCR(language string) (*TesseractOCR, error) {
	client := gosseract.NewClient()
	if language != "" {
		if err := client.SetLanguage(language); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set OCR language: %w", err)
		}
	}
	return &TesseractOCR{client: client}, nil
}

func (t *TesseractOCR) ImageToText(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("failed to encode page image: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("failed to load page image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("failed to run OCR: %w", err)
	}
	return text, nil
}

func (t *TesseractOCR) Close() error {
	return t.client.Close()
}
