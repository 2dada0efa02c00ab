package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

// Text converts an uploaded attachment into plain text for prompt inclusion.
// The format is sniffed from the filename extension. Unsupported formats and
// extraction failures both yield "" so that a bad attachment never blocks the
// rest of the triage request.
func Text(filename string, data []byte) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return plaintext(filename, data)
	case ".pdf":
		return pdfText(filename, data)
	case ".docx":
		return docxText(filename, data)
	default:
		slog.Warn("unsupported attachment type, skipping extraction", "filename", filename)
		return ""
	}
}

func plaintext(filename string, data []byte) string {
	if !utf8.Valid(data) {
		slog.Warn("attachment is not valid UTF-8, skipping extraction", "filename", filename)
		return ""
	}
	return string(data)
}

// pdfText concatenates page text in page order. Pages with no extractable
// text are skipped.
func pdfText(filename string, data []byte) string {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		slog.Warn("error opening pdf attachment", "filename", filename, "error", err)
		return ""
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		pageText, err := doc.Text(i)
		if err != nil {
			slog.Warn("error reading pdf page", "filename", filename, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		pages = append(pages, pageText)
	}

	return strings.Join(pages, "\n")
}

// docxText reads word/document.xml from the zip container and joins
// paragraph text in document order. A docx paragraph is a <w:p> element;
// its text lives in <w:t> runs.
func docxText(filename string, data []byte) string {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		slog.Warn("error opening docx attachment", "filename", filename, "error", err)
		return ""
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		slog.Warn("docx attachment has no word/document.xml", "filename", filename)
		return ""
	}

	rc, err := doc.Open()
	if err != nil {
		slog.Warn("error reading docx document part", "filename", filename, "error", err)
		return ""
	}
	defer rc.Close()

	paragraphs, err := docxParagraphs(rc)
	if err != nil {
		slog.Warn("error parsing docx document part", "filename", filename, "error", err)
		return ""
	}

	return strings.Join(paragraphs, "\n")
}

func docxParagraphs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)

	var paragraphs []string
	var current strings.Builder
	inParagraph := false
	inText := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = inParagraph
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					paragraphs = append(paragraphs, current.String())
				}
				inParagraph = false
			}
		}
	}

	return paragraphs, nil
}
