package extraction

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/gen2brain/go-fitz"
)

// maxPDFPages caps how many pages of a PDF receipt are uploaded per run.
const maxPDFPages = 4

// pdfToJPEGPages rasterizes up to limit pages of a PDF into JPEG images
// suitable for the vision model.
func pdfToJPEGPages(data []byte, limit int) ([][]byte, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if pageCount > limit {
		pageCount = limit
	}

	pages := make([][]byte, 0, pageCount)
	for n := 0; n < pageCount; n++ {
		img, err := doc.Image(n)
		if err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", n+1, err)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("failed to encode page %d: %w", n+1, err)
		}
		pages = append(pages, buf.Bytes())
	}

	return pages, nil
}
