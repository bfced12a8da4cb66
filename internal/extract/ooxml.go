// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

// maxPartSize bounds how much of one archive member is read.
const maxPartSize = 64 * 1024 * 1024

// zipPackage is an opened OOXML or HWPX container.
type zipPackage struct {
	r *zip.ReadCloser
}

func openPackage(p string) (*zipPackage, error) {
	r, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("not a valid zip package: %w", err)
	}
	return &zipPackage{r: r}, nil
}

func (z *zipPackage) Close() error { return z.r.Close() }

// parts returns the members under dir whose base name starts with prefix,
// in numeric order.
func (z *zipPackage) parts(dir, prefix string) []*zip.File {
	var out []*zip.File
	for _, f := range z.r.File {
		if !strings.EqualFold(path.Dir(f.Name), dir) {
			continue
		}
		base := strings.ToLower(path.Base(f.Name))
		if strings.HasPrefix(base, prefix) && strings.HasSuffix(base, ".xml") {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return partIndex(out[i].Name) < partIndex(out[j].Name)
	})
	return out
}

func (z *zipPackage) part(name string) *zip.File {
	for _, f := range z.r.File {
		if strings.EqualFold(f.Name, name) {
			return f
		}
	}
	return nil
}

// partIndex pulls the trailing number out of names like slide12.xml so
// parts sort in document order rather than lexically.
func partIndex(name string) int {
	base := strings.TrimSuffix(strings.ToLower(path.Base(name)), ".xml")
	digits := strings.TrimLeftFunc(base, func(r rune) bool { return r < '0' || r > '9' })
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}

// xmlText collects character data inside elements whose local name is in
// textElems and emits a newline at the end of every element in breakElems.
func xmlText(f *zip.File, textElems, breakElems map[string]bool) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, maxPartSize))
	var b strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return b.String(), fmt.Errorf("%s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if textElems[t.Name.Local] {
				depth++
			}
			if t.Name.Local == "tab" {
				b.WriteString(" ")
			}
		case xml.EndElement:
			if textElems[t.Name.Local] && depth > 0 {
				depth--
			}
			if breakElems[t.Name.Local] {
				b.WriteString("\n")
			}
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

var (
	textRuns   = map[string]bool{"t": true}
	chartText  = map[string]bool{"t": true, "v": true}
	paragraphs = map[string]bool{"p": true, "si": true, "pt": true}
)

// appendParts extracts each part, logging and skipping unreadable ones.
func appendParts(e *Extractor, b *strings.Builder, files []*zip.File, textElems map[string]bool) {
	for _, f := range files {
		text, err := xmlText(f, textElems, paragraphs)
		if err != nil {
			e.logger().Debug("ooxml: partial part", "part", f.Name, "err", err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
}

func extractDOCX(e *Extractor, p string, doc *Document) error {
	z, err := openPackage(p)
	if err != nil {
		return err
	}
	defer z.Close()

	body := z.part("word/document.xml")
	if body == nil {
		return errors.New("word/document.xml not found")
	}

	var b strings.Builder
	appendParts(e, &b, z.parts("word", "header"), textRuns)
	appendParts(e, &b, []*zip.File{body}, textRuns)
	appendParts(e, &b, z.parts("word", "footnotes"), textRuns)
	appendParts(e, &b, z.parts("word", "footer"), textRuns)
	appendParts(e, &b, z.parts("word/charts", "chart"), chartText)
	doc.Text = b.String()

	readCoreProperties(z, doc)
	if doc.Pages == 0 {
		doc.Pages = 1
	}
	return nil
}

func extractPPTX(e *Extractor, p string, doc *Document) error {
	z, err := openPackage(p)
	if err != nil {
		return err
	}
	defer z.Close()

	slides := z.parts("ppt/slides", "slide")
	var b strings.Builder
	appendParts(e, &b, slides, textRuns)
	appendParts(e, &b, z.parts("ppt/notesSlides", "notesslide"), textRuns)
	appendParts(e, &b, z.parts("ppt/charts", "chart"), chartText)
	doc.Text = b.String()

	readCoreProperties(z, doc)
	doc.Pages = len(slides)
	return nil
}

func extractXLSX(e *Extractor, p string, doc *Document) error {
	z, err := openPackage(p)
	if err != nil {
		return err
	}
	defer z.Close()

	var b strings.Builder
	if shared := z.part("xl/sharedStrings.xml"); shared != nil {
		appendParts(e, &b, []*zip.File{shared}, textRuns)
	}
	sheets := z.parts("xl/worksheets", "sheet")
	for _, sheet := range sheets {
		text, err := sheetValues(sheet)
		if err != nil {
			e.logger().Debug("xlsx: partial sheet", "part", sheet.Name, "err", err)
		}
		b.WriteString(text)
	}
	doc.Text = b.String()

	readCoreProperties(z, doc)
	doc.Pages = len(sheets)
	return nil
}

// sheetValues returns inline strings and literal cell values of a
// worksheet. Shared-string cells hold indexes and are skipped; their text
// comes from sharedStrings.xml.
func sheetValues(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, maxPartSize))
	var b strings.Builder
	cellType := ""
	inValue := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return b.String(), fmt.Errorf("%s: %w", f.Name, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "c":
				cellType = ""
				for _, a := range t.Attr {
					if a.Name.Local == "t" {
						cellType = a.Value
					}
				}
			case "v", "t":
				inValue = cellType != "s"
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v", "t":
				inValue = false
			case "c":
				b.WriteString(" ")
			case "row":
				b.WriteString("\n")
			}
		case xml.CharData:
			if inValue {
				b.Write(t)
			}
		}
	}
	return b.String(), nil
}

// extractHWPX reads the section parts of a Hangul (HWPX) document.
func extractHWPX(e *Extractor, p string, doc *Document) error {
	z, err := openPackage(p)
	if err != nil {
		return err
	}
	defer z.Close()

	sections := z.parts("Contents", "section")
	if len(sections) == 0 {
		return errors.New("no Contents/section*.xml parts found")
	}
	var b strings.Builder
	appendParts(e, &b, sections, textRuns)
	appendParts(e, &b, z.parts("Chart", "chart"), chartText)
	appendParts(e, &b, z.parts("Charts", "chart"), chartText)
	doc.Text = b.String()
	doc.Pages = len(sections)
	return nil
}

type coreProperties struct {
	Title          string `xml:"title"`
	Subject        string `xml:"subject"`
	Creator        string `xml:"creator"`
	LastModifiedBy string `xml:"lastModifiedBy"`
	Created        string `xml:"created"`
	Modified       string `xml:"modified"`
}

type appProperties struct {
	Pages int `xml:"Pages"`
}

// readCoreProperties copies docProps/core.xml and the page count from
// docProps/app.xml into doc. Missing or broken parts are ignored.
func readCoreProperties(z *zipPackage, doc *Document) {
	var core coreProperties
	if decodePart(z.part("docProps/core.xml"), &core) == nil {
		for k, v := range map[string]string{
			"title":            core.Title,
			"subject":          core.Subject,
			"author":           core.Creator,
			"last_modified_by": core.LastModifiedBy,
			"created":          core.Created,
			"modified":         core.Modified,
		} {
			if v = strings.TrimSpace(v); v != "" {
				doc.Properties[k] = v
			}
		}
	}
	var app appProperties
	if decodePart(z.part("docProps/app.xml"), &app) == nil && app.Pages > 0 {
		doc.Pages = app.Pages
	}
}

func decodePart(f *zip.File, v any) error {
	if f == nil {
		return errors.New("missing part")
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(io.LimitReader(rc, maxPartSize)).Decode(v)
}
