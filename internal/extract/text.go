// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// extractPlainText reads UTF-8 text. Files that are not valid UTF-8 are
// decoded as EUC-KR (CP949), the common legacy Korean encoding.
func extractPlainText(e *Extractor, path string, doc *Document) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if utf8.Valid(data) {
		doc.Text = string(data)
		doc.Properties["encoding"] = "utf-8"
	} else {
		decoded, err := korean.EUCKR.NewDecoder().Bytes(data)
		if err != nil {
			return fmt.Errorf("text is neither UTF-8 nor EUC-KR: %w", err)
		}
		doc.Text = string(decoded)
		doc.Properties["encoding"] = "euc-kr"
	}
	doc.Pages = 1
	return nil
}
