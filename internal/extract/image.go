// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// exifWalker copies every EXIF tag into a property map.
type exifWalker struct {
	props map[string]string
}

func (w *exifWalker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if tag == nil {
		return nil
	}
	if v := strings.Trim(strings.TrimSpace(tag.String()), `"`); v != "" {
		w.props["exif."+string(name)] = v
	}
	return nil
}

// extractImage yields no text. Text recognition is outside this tool; the
// EXIF block still describes the file and may itself carry personal data.
func extractImage(e *Extractor, path string, doc *Document) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	doc.Pages = 1
	x, err := exif.Decode(f)
	if err != nil {
		e.logger().Debug("image: no EXIF data", "file", doc.Name, "err", err)
		return nil
	}
	if err := x.Walk(&exifWalker{props: doc.Properties}); err != nil {
		return fmt.Errorf("failed to read EXIF: %w", err)
	}
	if lat, long, err := x.LatLong(); err == nil {
		doc.Properties["gps"] = fmt.Sprintf("%.6f,%.6f", lat, long)
	}

	// Free-text EXIF fields are scanned like document text.
	var b strings.Builder
	for _, field := range []exif.FieldName{exif.ImageDescription, exif.Artist, exif.Copyright, exif.UserComment} {
		if v, ok := doc.Properties["exif."+string(field)]; ok {
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	doc.Text = b.String()
	return nil
}
