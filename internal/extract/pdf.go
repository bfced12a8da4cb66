// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfInfoKeys are the document information entries copied to properties.
var pdfInfoKeys = []string{"Title", "Author", "Subject", "Creator", "Producer", "CreationDate", "ModDate"}

// extractPDF validates the file with pdfcpu and reads page text with
// ledongthuc/pdf, row by row.
func extractPDF(e *Extractor, path string, doc *Document) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return fmt.Errorf("invalid PDF file: %w", err)
	}
	pages, err := api.PageCountFile(path)
	if err != nil {
		return fmt.Errorf("failed to count pages: %w", err)
	}
	doc.Pages = pages

	f, r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("error opening PDF: %w", err)
	}
	defer f.Close()

	readInfo(r, doc.Properties)

	limit := r.NumPage()
	if e.MaxPages > 0 && limit > e.MaxPages {
		e.logger().Warn("pdf: page limit reached, truncating", "file", doc.Name, "pages", limit, "limit", e.MaxPages)
		limit = e.MaxPages
		doc.Properties["truncated_at_page"] = fmt.Sprint(limit)
	}

	var b strings.Builder
	for i := 1; i <= limit; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := pageText(p)
		if err != nil {
			e.logger().Debug("pdf: skipping unreadable page", "file", doc.Name, "page", i, "err", err)
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	doc.Text = b.String()
	return nil
}

func readInfo(r *pdf.Reader, props map[string]string) {
	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return
	}
	for _, key := range pdfInfoKeys {
		if v := info.Key(key); v.Kind() == pdf.String {
			if s := strings.TrimSpace(v.Text()); s != "" {
				props[strings.ToLower(key)] = s
			}
		}
	}
}

// pageText joins the rows of a page top to bottom, and the runs of a row
// left to right.
func pageText(p pdf.Page) (string, error) {
	rows, err := p.GetTextByRow()
	if err != nil {
		return p.GetPlainText(nil)
	}

	kept := make([]*pdf.Row, 0, len(rows))
	for _, row := range rows {
		if row != nil && len(row.Content) > 0 {
			kept = append(kept, row)
		}
	}
	// PDF y grows upwards.
	sort.SliceStable(kept, func(i, j int) bool {
		return averageY(kept[i].Content) > averageY(kept[j].Content)
	})

	var b strings.Builder
	for _, row := range kept {
		b.WriteString(rowText(row.Content))
		b.WriteString("\n")
	}
	return b.String(), nil
}

func averageY(texts []pdf.Text) float64 {
	var total float64
	for _, t := range texts {
		total += t.Y
	}
	return total / float64(len(texts))
}

// rowText inserts a space where the gap between two runs exceeds a fifth of
// the font size.
func rowText(texts []pdf.Text) string {
	sorted := append([]pdf.Text(nil), texts...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].X < sorted[j].X })

	var b strings.Builder
	for i, t := range sorted {
		b.WriteString(t.S)
		if i == len(sorted)-1 {
			break
		}
		fontSize := t.FontSize
		if fontSize <= 0 {
			fontSize = 12
		}
		if sorted[i+1].X-(t.X+t.W) > fontSize*0.2 {
			b.WriteString(" ")
		}
	}
	return b.String()
}
