// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"unicode/utf16"
)

const hwpSignature = "HWP Document File"

// FileHeader property bits.
const (
	hwpCompressed   = 1 << 0
	hwpPassword     = 1 << 1
	hwpDistribution = 1 << 2
)

const hwpTagParaText = 67

// extractHWP reads the BodyText sections of a Hangul 5 (HWP) document.
func extractHWP(e *Extractor, p string, doc *Document) error {
	ole, err := readOLE(p)
	if err != nil {
		return err
	}

	header := ole.streams["FileHeader"]
	if len(header) < 40 || !bytes.HasPrefix(header, []byte(hwpSignature)) {
		return errors.New("missing HWP FileHeader stream")
	}
	flags := binary.LittleEndian.Uint32(header[36:40])
	switch {
	case flags&hwpPassword != 0:
		return errors.New("password protected HWP documents are not supported")
	case flags&hwpDistribution != 0:
		return errors.New("distribution protected HWP documents are not supported")
	}

	sections := ole.numbered("BodyText/Section")
	if len(sections) == 0 {
		return errors.New("no BodyText/Section streams found")
	}

	var paragraphs []string
	for _, name := range sections {
		data := ole.streams[name]
		if flags&hwpCompressed != 0 {
			if data, err = inflate(data); err != nil {
				e.logger().Warn("skipping unreadable HWP section", "section", name, "error", err)
				continue
			}
		}
		paragraphs = append(paragraphs, hwpParagraphs(data)...)
	}

	doc.Text = strings.Join(paragraphs, "\n")
	doc.Pages = len(sections)
	ole.copyProperties(doc)
	return nil
}

// hwpParagraphs walks the records of a decompressed section stream and
// returns the text of every paragraph text record, table cells included.
func hwpParagraphs(section []byte) []string {
	var out []string
	for off := 0; off+4 <= len(section); {
		hdr := binary.LittleEndian.Uint32(section[off:])
		off += 4
		tag := hdr & 0x3FF
		size := int(hdr >> 20 & 0xFFF)
		if size == 0xFFF {
			if off+4 > len(section) {
				break
			}
			size = int(binary.LittleEndian.Uint32(section[off:]))
			off += 4
		}
		if size > len(section)-off {
			break
		}
		if tag == hwpTagParaText {
			if text := hwpText(section[off : off+size]); text != "" {
				out = append(out, text)
			}
		}
		off += size
	}
	return out
}

// hwpText decodes a paragraph text payload. Code units below 32 are
// controls: line and paragraph breaks become newlines, the fixed and
// non-breaking spaces become spaces, tabs survive, and inline or extended
// controls (eight units each) are dropped.
func hwpText(payload []byte) string {
	units := make([]uint16, 0, len(payload)/2)
	for i := 0; i+1 < len(payload); i += 2 {
		c := binary.LittleEndian.Uint16(payload[i:])
		units = append(units, c)
	}

	text := make([]uint16, 0, len(units))
	for i := 0; i < len(units); i++ {
		c := units[i]
		if c >= 32 {
			text = append(text, c)
			continue
		}
		switch c {
		case 10, 13:
			text = append(text, '\n')
		case 30, 31:
			text = append(text, ' ')
		case 0, 24, 25, 26, 27, 28, 29:
		case 9:
			text = append(text, '\t')
			i += 7
		default:
			i += 7
		}
	}
	return strings.TrimRight(string(utf16.Decode(text)), "\n")
}
