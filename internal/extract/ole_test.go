// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cfbSectorSize = 512
	cfbCutoff     = 4096
	cfbFree       = 0xFFFFFFFF
	cfbEnd        = 0xFFFFFFFE
	cfbFATSector  = 0xFFFFFFFD
	cfbNoStream   = 0xFFFFFFFF
)

type cfbEntry struct {
	name  string
	kind  byte // 1 storage, 2 stream, 5 root
	data  []byte
	child uint32
	right uint32
	start uint32
	size  uint32
}

// writeCFB lays out a version 3 compound file holding streams keyed by
// slash-joined path. Streams are padded to the mini stream cutoff so they
// all live in regular sectors.
func writeCFB(t *testing.T, name string, streams map[string][]byte) string {
	t.Helper()
	le := binary.LittleEndian

	entries := []*cfbEntry{{name: "Root Entry", kind: 5, start: cfbEnd}}
	index := map[string]int{}
	children := map[int][]int{}

	paths := make([]string, 0, len(streams))
	for p := range streams {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		parts := strings.Split(p, "/")
		parent := 0
		for i, part := range parts {
			key := strings.Join(parts[:i+1], "/")
			id, ok := index[key]
			if !ok {
				e := &cfbEntry{name: part, kind: 1}
				if i == len(parts)-1 {
					e.kind = 2
					e.data = streams[p]
				}
				entries = append(entries, e)
				id = len(entries) - 1
				index[key] = id
				children[parent] = append(children[parent], id)
			}
			parent = id
		}
	}

	for _, e := range entries {
		e.child, e.right = cfbNoStream, cfbNoStream
	}
	for parent, kids := range children {
		sort.Slice(kids, func(i, j int) bool {
			a, b := entries[kids[i]].name, entries[kids[j]].name
			if len(a) != len(b) {
				return len(a) < len(b)
			}
			return strings.ToUpper(a) < strings.ToUpper(b)
		})
		entries[parent].child = uint32(kids[0])
		for j := 0; j+1 < len(kids); j++ {
			entries[kids[j]].right = uint32(kids[j+1])
		}
	}

	dirSectors := (len(entries) + 3) / 4
	next := 1 + dirSectors
	for _, e := range entries {
		if e.kind != 2 {
			continue
		}
		padded := max(cfbCutoff, (len(e.data)+cfbSectorSize-1)/cfbSectorSize*cfbSectorSize)
		e.start = uint32(next)
		e.size = uint32(padded)
		next += padded / cfbSectorSize
	}
	require.LessOrEqual(t, next, cfbSectorSize/4, "test file needs a single FAT sector")

	buf := make([]byte, cfbSectorSize*(next+1))
	copy(buf, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	le.PutUint16(buf[24:], 0x003E)
	le.PutUint16(buf[26:], 3)
	le.PutUint16(buf[28:], 0xFFFE)
	le.PutUint16(buf[30:], 9)
	le.PutUint16(buf[32:], 6)
	le.PutUint32(buf[44:], 1)
	le.PutUint32(buf[48:], 1)
	le.PutUint32(buf[56:], cfbCutoff)
	le.PutUint32(buf[60:], cfbEnd)
	le.PutUint32(buf[68:], cfbEnd)
	le.PutUint32(buf[76:], 0)
	for i := 1; i < 109; i++ {
		le.PutUint32(buf[76+4*i:], cfbFree)
	}

	sector := func(n int) []byte {
		return buf[cfbSectorSize*(n+1) : cfbSectorSize*(n+2)]
	}

	fat := sector(0)
	for i := 0; i < cfbSectorSize/4; i++ {
		le.PutUint32(fat[4*i:], cfbFree)
	}
	le.PutUint32(fat, cfbFATSector)
	for s := 1; s <= dirSectors; s++ {
		link := uint32(s + 1)
		if s == dirSectors {
			link = cfbEnd
		}
		le.PutUint32(fat[4*s:], link)
	}

	for i := 0; i < dirSectors*4; i++ {
		d := buf[cfbSectorSize*2+128*i : cfbSectorSize*2+128*(i+1)]
		le.PutUint32(d[68:], cfbNoStream)
		le.PutUint32(d[72:], cfbNoStream)
		le.PutUint32(d[76:], cfbNoStream)
		if i >= len(entries) {
			continue
		}
		e := entries[i]
		units := utf16.Encode([]rune(e.name))
		for j, u := range units {
			le.PutUint16(d[2*j:], u)
		}
		le.PutUint16(d[64:], uint16(2*(len(units)+1)))
		d[66] = e.kind
		d[67] = 1
		le.PutUint32(d[72:], e.right)
		le.PutUint32(d[76:], e.child)
		le.PutUint32(d[116:], e.start)
		le.PutUint32(d[120:], e.size)

		if e.kind == 2 {
			copy(buf[cfbSectorSize*(int(e.start)+1):], e.data)
			sectors := int(e.size) / cfbSectorSize
			for s := 0; s < sectors; s++ {
				link := e.start + uint32(s) + 1
				if s == sectors-1 {
					link = cfbEnd
				}
				le.PutUint32(fat[4*(int(e.start)+s):], link)
			}
		}
	}

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, buf, 0o600))
	return p
}

func utf16LE(units []uint16) []byte {
	out := make([]byte, 2*len(units))
	for i, u := range units {
		binary.LittleEndian.PutUint16(out[2*i:], u)
	}
	return out
}

func textUnits(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func hwpRecord(tag uint32, payload []byte) []byte {
	var b bytes.Buffer
	if len(payload) >= 0xFFF {
		_ = binary.Write(&b, binary.LittleEndian, tag|0xFFF<<20)
		_ = binary.Write(&b, binary.LittleEndian, uint32(len(payload)))
	} else {
		_ = binary.Write(&b, binary.LittleEndian, tag|uint32(len(payload))<<20)
	}
	b.Write(payload)
	return b.Bytes()
}

func hwpFileHeader(flags uint32) []byte {
	header := make([]byte, 256)
	copy(header, hwpSignature)
	binary.LittleEndian.PutUint32(header[32:], 0x05000000)
	binary.LittleEndian.PutUint32(header[36:], flags)
	return header
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var b bytes.Buffer
	w, err := flate.NewWriter(&b, flate.BestCompression)
	require.NoError(t, err)
	_, err = w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return b.Bytes()
}

func TestHWPText_Controls(t *testing.T) {
	// section definition control, text, tab, fixed space, paragraph break
	units := []uint16{2, 's', 'e', 'c', 'd', 0, 0, 2}
	units = append(units, textUnits("담당자")...)
	units = append(units, 9, 0, 0, 0, 0, 0, 0, 9)
	units = append(units, textUnits("홍길동")...)
	units = append(units, 31)
	units = append(units, textUnits("님")...)
	units = append(units, 13)

	assert.Equal(t, "담당자\t홍길동 님", hwpText(utf16LE(units)))
}

func TestHWPParagraphs_SkipsOtherRecordsAndReadsLongOnes(t *testing.T) {
	long := strings.Repeat("가", 2100)
	var section []byte
	section = append(section, hwpRecord(66, []byte{1, 2, 3, 4})...)
	section = append(section, hwpRecord(hwpTagParaText, utf16LE(append(textUnits("첫 문단"), 13)))...)
	section = append(section, hwpRecord(hwpTagParaText, utf16LE(textUnits(long)))...)
	section = append(section, hwpRecord(68, nil)...)

	assert.Equal(t, []string{"첫 문단", long}, hwpParagraphs(section))
	// a truncated trailing record stops the walk without panicking
	assert.Equal(t, []string{"첫 문단"}, hwpParagraphs(section[:40]))
}

func TestExtract_HWP(t *testing.T) {
	section0 := append(hwpRecord(66, make([]byte, 22)),
		hwpRecord(hwpTagParaText, utf16LE(append(textUnits("담당자 홍길동"), 13)))...)
	section1 := hwpRecord(hwpTagParaText, utf16LE(append(textUnits("010-1234-5678"), 13)))

	p := writeCFB(t, "report.hwp", map[string][]byte{
		"FileHeader":        hwpFileHeader(hwpCompressed),
		"BodyText/Section0": deflate(t, section0),
		"BodyText/Section1": deflate(t, section1),
	})

	doc, err := New().Extract(p)
	require.NoError(t, err)
	assert.Equal(t, "담당자 홍길동\n010-1234-5678", doc.Text)
	assert.Equal(t, "application/x-hwp", doc.Type)
	assert.Equal(t, 2, doc.Pages)
}

func TestExtract_HWPUncompressed(t *testing.T) {
	p := writeCFB(t, "plain.hwp", map[string][]byte{
		"FileHeader":        hwpFileHeader(0),
		"BodyText/Section0": hwpRecord(hwpTagParaText, utf16LE(textUnits("hong@example.com"))),
	})
	doc, err := New().Extract(p)
	require.NoError(t, err)
	assert.Equal(t, "hong@example.com", doc.Text)
}

func TestExtract_HWPRejected(t *testing.T) {
	cases := []struct {
		name    string
		streams map[string][]byte
		want    string
	}{
		{"password", map[string][]byte{"FileHeader": hwpFileHeader(hwpPassword), "BodyText/Section0": {0}}, "password"},
		{"distribution", map[string][]byte{"FileHeader": hwpFileHeader(hwpDistribution), "BodyText/Section0": {0}}, "distribution"},
		{"no header", map[string][]byte{"BodyText/Section0": {0}}, "FileHeader"},
		{"no sections", map[string][]byte{"FileHeader": hwpFileHeader(0)}, "BodyText"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New().Extract(writeCFB(t, "x.hwp", tc.streams))
			assert.ErrorContains(t, err, tc.want)
		})
	}
}

// wordStreams builds a WordDocument and 1Table pair with one Unicode piece
// and one compressed piece.
func wordStreams(unicodeText, ansiText string, flags uint16) (word, table []byte) {
	word = make([]byte, 0x600)
	binary.LittleEndian.PutUint16(word, wordIdent)
	binary.LittleEndian.PutUint16(word[fibFlagsOffset:], flags|fibWhichTableStream)

	units := textUnits(unicodeText)
	copy(word[0x200:], utf16LE(units))
	copy(word[0x400:], ansiText)

	cps := []uint32{0, uint32(len(units)), uint32(len(units) + len(ansiText))}
	fcs := []uint32{0x200, 0x400*2 | pieceCompressed}

	var plc bytes.Buffer
	for _, cp := range cps {
		_ = binary.Write(&plc, binary.LittleEndian, cp)
	}
	for _, fc := range fcs {
		_ = binary.Write(&plc, binary.LittleEndian, uint16(0))
		_ = binary.Write(&plc, binary.LittleEndian, fc)
		_ = binary.Write(&plc, binary.LittleEndian, uint16(0))
	}

	var clx bytes.Buffer
	clx.Write([]byte{0x01, 0x02, 0x00, 0xAA, 0xBB}) // a Prc to skip
	clx.WriteByte(0x02)
	_ = binary.Write(&clx, binary.LittleEndian, uint32(plc.Len()))
	clx.Write(plc.Bytes())

	binary.LittleEndian.PutUint32(word[fibClxOffset:], 0)
	binary.LittleEndian.PutUint32(word[fibClxSizeOffset:], uint32(clx.Len()))
	return word, clx.Bytes()
}

func TestWordText(t *testing.T) {
	word, table := wordStreams("담당자 \x13 MERGEFIELD name \x14홍길동\x15\r", "hong@example.com\r", 0)
	text, err := wordText(word, table)
	require.NoError(t, err)
	assert.Equal(t, "담당자 홍길동\nhong@example.com\n", text)

	binary.LittleEndian.PutUint32(word[fibClxSizeOffset:], uint32(len(table)+10))
	_, err = wordText(word, table)
	assert.ErrorContains(t, err, "out of range")
}

func TestWordPlainText(t *testing.T) {
	assert.Equal(t, "a\tb\nc", wordPlainText("a\x07b\x0bc\x01"))
	assert.Equal(t, "result", wordPlainText("\x13 IF \x13 REF x \x14inner\x15 \x14result\x15"))
}

func TestExtract_DOC(t *testing.T) {
	word, table := wordStreams("고객 홍길동\r", "010-1234-5678\r", 0)
	p := writeCFB(t, "letter.doc", map[string][]byte{
		"WordDocument": word,
		"1Table":       table,
	})

	doc, err := New().Extract(p)
	require.NoError(t, err)
	assert.Equal(t, "고객 홍길동\n010-1234-5678", doc.Text)
	assert.Equal(t, "application/msword", doc.Type)
	assert.Equal(t, 1, doc.Pages)
}

func TestExtract_DOCEncrypted(t *testing.T) {
	word, table := wordStreams("secret", "", fibEncrypted)
	p := writeCFB(t, "locked.doc", map[string][]byte{"WordDocument": word, "1Table": table})
	_, err := New().Extract(p)
	assert.ErrorContains(t, err, "encrypted")
}

func pptRecord(verInst, recType uint16, data []byte) []byte {
	out := make([]byte, 8, 8+len(data))
	binary.LittleEndian.PutUint16(out, verInst)
	binary.LittleEndian.PutUint16(out[2:], recType)
	binary.LittleEndian.PutUint32(out[4:], uint32(len(data)))
	return append(out, data...)
}

func TestExtract_PPT(t *testing.T) {
	const container = 0x000F
	master := pptRecord(container, 0x03F8, pptRecord(0, pptTextCharsAtom, utf16LE(textUnits("마스터 제목 스타일 편집"))))
	slides := pptRecord(container, 0x0FF0, append(
		pptRecord(0, pptTextCharsAtom, utf16LE(textUnits("고객 홍길동\r010-1234-5678"))),
		pptRecord(0, pptTextBytesAtom, []byte("hong@example.com"))...,
	))
	slide := pptRecord(container, pptSlide, nil)

	var document []byte
	document = append(document, master...)
	document = append(document, slides...)
	document = append(document, slide...)
	document = append(document, slide...)
	stream := pptRecord(container, 0x03E8, document)

	p := writeCFB(t, "deck.ppt", map[string][]byte{"PowerPoint Document": stream})
	doc, err := New().Extract(p)
	require.NoError(t, err)
	assert.Equal(t, "고객 홍길동\n010-1234-5678\nhong@example.com", doc.Text)
	assert.Equal(t, "application/vnd.ms-powerpoint", doc.Type)
	assert.Equal(t, 2, doc.Pages)
}

func TestDropTemplateLines(t *testing.T) {
	in := "마스터 텍스트 스타일을 편집합니다\n둘째 수준\nSecond level\nClick to edit Master title style\n홍길동"
	assert.Equal(t, "홍길동", dropTemplateLines(in))
}

func TestExtract_LegacyNotOLE(t *testing.T) {
	for _, name := range []string{"fake.doc", "fake.hwp", "fake.ppt"} {
		_, err := New().Extract(writeFile(t, name, []byte("plain text pretending to be binary")))
		assert.ErrorContains(t, err, "not an OLE compound file", name)
	}
}
