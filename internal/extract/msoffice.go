// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	regexp "github.com/wasilibs/go-re2"
	"golang.org/x/text/encoding/charmap"
)

// Word 97 FIB fields.
const (
	wordIdent           = 0xA5EC
	fibFlagsOffset      = 0x000A
	fibEncrypted        = 0x0100
	fibWhichTableStream = 0x0200
	fibClxOffset        = 0x01A2
	fibClxSizeOffset    = 0x01A6
	pieceCompressed     = 0x40000000
	pieceOffsetMask     = 0x3FFFFFFF
)

// extractDOC reads the piece table of a Word 97-2003 document.
func extractDOC(e *Extractor, p string, doc *Document) error {
	ole, err := readOLE(p)
	if err != nil {
		return err
	}

	word := ole.streams["WordDocument"]
	if len(word) < fibClxSizeOffset+4 {
		return errors.New("missing or truncated WordDocument stream")
	}
	if ident := binary.LittleEndian.Uint16(word); ident != wordIdent {
		return fmt.Errorf("unsupported Word format (ident 0x%04X)", ident)
	}
	flags := binary.LittleEndian.Uint16(word[fibFlagsOffset:])
	if flags&fibEncrypted != 0 {
		return errors.New("encrypted Word documents are not supported")
	}
	tableName := "0Table"
	if flags&fibWhichTableStream != 0 {
		tableName = "1Table"
	}
	table, ok := ole.streams[tableName]
	if !ok {
		return fmt.Errorf("missing %s stream", tableName)
	}

	text, err := wordText(word, table)
	if err != nil {
		return err
	}
	doc.Text = text
	doc.Pages = 1
	ole.copyProperties(doc)
	return nil
}

// wordText assembles the document text from the pieces listed in the Clx.
// Compressed pieces are Windows-1252, the rest UTF-16LE.
func wordText(word, table []byte) (string, error) {
	fcClx := binary.LittleEndian.Uint32(word[fibClxOffset:])
	lcbClx := binary.LittleEndian.Uint32(word[fibClxSizeOffset:])
	if lcbClx == 0 || uint64(fcClx)+uint64(lcbClx) > uint64(len(table)) {
		return "", errors.New("piece table out of range")
	}
	plc, err := pieceTable(table[fcClx : fcClx+lcbClx])
	if err != nil {
		return "", err
	}
	if len(plc) < 16 || (len(plc)-4)%12 != 0 {
		return "", fmt.Errorf("malformed piece table (%d bytes)", len(plc))
	}

	n := (len(plc) - 4) / 12
	pcds := plc[4*(n+1):]
	decoder := charmap.Windows1252.NewDecoder()

	var b strings.Builder
	for k := 0; k < n; k++ {
		cpStart := binary.LittleEndian.Uint32(plc[4*k:])
		cpEnd := binary.LittleEndian.Uint32(plc[4*(k+1):])
		if cpEnd <= cpStart {
			continue
		}
		count := int(cpEnd - cpStart)
		fc := binary.LittleEndian.Uint32(pcds[8*k+2:])

		if fc&pieceCompressed != 0 {
			off := int(fc&pieceOffsetMask) / 2
			if off+count > len(word) {
				continue
			}
			decoded, err := decoder.Bytes(word[off : off+count])
			if err != nil {
				continue
			}
			b.Write(decoded)
			continue
		}

		off := int(fc & pieceOffsetMask)
		if off+2*count > len(word) {
			continue
		}
		units := make([]uint16, count)
		for i := range units {
			units[i] = binary.LittleEndian.Uint16(word[off+2*i:])
		}
		b.WriteString(string(utf16.Decode(units)))
	}
	return wordPlainText(b.String()), nil
}

// pieceTable returns the PlcPcd inside a Clx, skipping any Prc blocks.
func pieceTable(clx []byte) ([]byte, error) {
	for i := 0; i < len(clx); {
		switch clx[i] {
		case 0x01:
			if i+3 > len(clx) {
				return nil, errors.New("truncated Prc in Clx")
			}
			i += 3 + int(binary.LittleEndian.Uint16(clx[i+1:]))
		case 0x02:
			if i+5 > len(clx) {
				return nil, errors.New("truncated Pcdt in Clx")
			}
			size := int(binary.LittleEndian.Uint32(clx[i+1:]))
			start := i + 5
			if size > len(clx)-start {
				return nil, errors.New("Pcdt exceeds Clx")
			}
			return clx[start : start+size], nil
		default:
			return nil, fmt.Errorf("unexpected Clx block 0x%02X", clx[i])
		}
	}
	return nil, errors.New("no piece table in Clx")
}

// wordPlainText maps Word's special characters to plain text. Field
// instructions (between 0x13 and 0x14) are dropped and field results kept;
// paragraph, line and page breaks become newlines and cell marks tabs.
func wordPlainText(s string) string {
	var b strings.Builder
	var fields []bool // true while the field is still in its instruction part
	for _, r := range s {
		switch r {
		case 0x13:
			fields = append(fields, true)
			continue
		case 0x14:
			if len(fields) > 0 {
				fields[len(fields)-1] = false
			}
			continue
		case 0x15:
			if len(fields) > 0 {
				fields = fields[:len(fields)-1]
			}
			continue
		}
		if inFieldInstruction(fields) {
			continue
		}
		switch {
		case r == '\r' || r == 0x0B || r == 0x0C:
			b.WriteByte('\n')
		case r == 0x07 || r == '\t':
			b.WriteByte('\t')
		case r >= 0x20:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func inFieldInstruction(fields []bool) bool {
	for _, instr := range fields {
		if instr {
			return true
		}
	}
	return false
}

// PowerPoint 97 record types.
const (
	pptSlide         = 0x03EE
	pptTextCharsAtom = 0x0FA0
	pptTextBytesAtom = 0x0FA8
	pptMaxDepth      = 32
)

// extractPPT reads the text atoms of a PowerPoint 97-2003 presentation.
func extractPPT(e *Extractor, p string, doc *Document) error {
	ole, err := readOLE(p)
	if err != nil {
		return err
	}
	stream, ok := ole.streams["PowerPoint Document"]
	if !ok {
		return errors.New("missing PowerPoint Document stream")
	}

	var w pptWalker
	w.walk(stream, 0)

	doc.Text = dropTemplateLines(strings.Join(w.chunks, "\n"))
	doc.Pages = max(1, w.slides)
	ole.copyProperties(doc)
	return nil
}

type pptWalker struct {
	chunks []string
	slides int
}

// walk visits the records in buf, descending into containers.
func (w *pptWalker) walk(buf []byte, depth int) {
	for off := 0; off+8 <= len(buf); {
		verInst := binary.LittleEndian.Uint16(buf[off:])
		recType := binary.LittleEndian.Uint16(buf[off+2:])
		size := int(binary.LittleEndian.Uint32(buf[off+4:]))
		body := off + 8
		if size > len(buf)-body {
			return
		}
		data := buf[body : body+size]

		switch {
		case verInst&0x0F == 0x0F:
			if recType == pptSlide {
				w.slides++
			}
			if depth < pptMaxDepth {
				w.walk(data, depth+1)
			}
		case recType == pptTextCharsAtom:
			units := make([]uint16, len(data)/2)
			for i := range units {
				units[i] = binary.LittleEndian.Uint16(data[2*i:])
			}
			w.add(string(utf16.Decode(units)))
		case recType == pptTextBytesAtom:
			if decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data); err == nil {
				w.add(string(decoded))
			}
		}
		off = body + size
	}
}

func (w *pptWalker) add(text string) {
	text = strings.NewReplacer("\r", "\n", "\v", "\n").Replace(text)
	if strings.TrimSpace(text) != "" {
		w.chunks = append(w.chunks, text)
	}
}

// Master slides carry placeholder prompts such as "마스터 제목 스타일 편집"
// or "Click to edit Master text styles" and the outline level labels.
var templateLine = regexp.MustCompile(`(?i)^(?:` +
	`.*마스터.*스타일.*|.*편집하려면 클릭.*|click to edit master.*|` +
	`(?:첫|두|둘|세|셋|네|넷|다섯)\s*(?:째|번째)?\s*수준|(?:second|third|fourth|fifth) level` +
	`)$`)

func dropTemplateLines(text string) string {
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if templateLine.MatchString(strings.TrimSpace(line)) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
