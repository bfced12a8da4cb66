// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/richardlehane/mscfb"
	"github.com/richardlehane/msoleps"
)

// oleFile is an opened OLE compound file (HWP 5, Word 97, PowerPoint 97).
// Streams are keyed by their slash-joined path, e.g. "BodyText/Section0".
type oleFile struct {
	streams map[string][]byte
	props   map[string]string
}

func readOLE(p string) (*oleFile, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := mscfb.New(f)
	if err != nil {
		return nil, fmt.Errorf("not an OLE compound file: %w", err)
	}

	ole := &oleFile{
		streams: make(map[string][]byte),
		props:   make(map[string]string),
	}
	for {
		entry, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read OLE directory: %w", err)
		}
		if entry.Size <= 0 {
			continue
		}
		name := strings.Join(append(append([]string(nil), entry.Path...), entry.Name), "/")
		if entry.Size > maxPartSize {
			return nil, fmt.Errorf("stream %s exceeds %d bytes", name, maxPartSize)
		}
		if msoleps.IsMSOLEPS(entry.Initial) {
			readPropertySet(entry, ole.props)
			continue
		}
		buf := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, buf); err != nil {
			return nil, fmt.Errorf("failed to read stream %s: %w", name, err)
		}
		ole.streams[name] = buf
	}
	return ole, nil
}

// readPropertySet copies a SummaryInformation style property set into props.
// Broken property sets are ignored.
func readPropertySet(r io.Reader, props map[string]string) {
	set := msoleps.New()
	if err := set.Reset(r); err != nil {
		return
	}
	for _, prop := range set.Property {
		value := strings.TrimSpace(fmt.Sprint(prop))
		if prop.Name == "" || value == "" {
			continue
		}
		props[strings.ToLower(prop.Name)] = value
	}
}

// numbered returns the stream names starting with prefix in numeric order,
// e.g. BodyText/Section0, BodyText/Section1, BodyText/Section10.
func (o *oleFile) numbered(prefix string) []string {
	var names []string
	for name := range o.streams {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := partIndex(names[i]), partIndex(names[j])
		if a != b {
			return a < b
		}
		return names[i] < names[j]
	})
	return names
}

func (o *oleFile) copyProperties(doc *Document) {
	for k, v := range o.props {
		doc.Properties[k] = v
	}
}

// inflate decompresses a raw deflate stream, falling back to a zlib wrapped
// one.
func inflate(data []byte) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(flate.NewReader(bytes.NewReader(data)), maxPartSize))
	if err == nil {
		return out, nil
	}
	zr, zerr := zlib.NewReader(bytes.NewReader(data))
	if zerr != nil {
		return nil, errors.Join(err, zerr)
	}
	defer zr.Close()
	out, zerr = io.ReadAll(io.LimitReader(zr, maxPartSize))
	if zerr != nil {
		return nil, errors.Join(err, zerr)
	}
	return out, nil
}
