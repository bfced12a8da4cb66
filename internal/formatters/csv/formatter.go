// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package csv

import (
	"fmt"
	"strconv"
	"strings"

	"ferret-risk/internal/formatters"
	"ferret-risk/internal/formatters/shared"
	"ferret-risk/internal/report"
)

var headers = []string{"Document", "Source", "Rule", "Kind", "Label", "Start", "End", "Score", "Valid", "Text"}

// Formatter writes the reconciled entity list, one row per entity
type Formatter struct{}

// NewFormatter creates a new CSV formatter
func NewFormatter() *Formatter {
	return &Formatter{}
}

func (f *Formatter) Name() string {
	return "csv"
}

func (f *Formatter) Description() string {
	return "Entity list as comma-separated values for spreadsheet import"
}

func (f *Formatter) FileExtension() string {
	return ".csv"
}

func (f *Formatter) Format(result *report.Result, options formatters.FormatterOptions) (string, error) {
	rows := []string{strings.Join(headers, ",")}
	docName := result.Report.Document.Name

	for _, e := range shared.Entities(result.Entities, options.ShowMatch) {
		score := ""
		if e.Score != nil {
			score = strconv.FormatFloat(*e.Score, 'f', 2, 64)
		}
		valid := ""
		if e.Valid != nil {
			valid = strconv.FormatBool(*e.Valid)
		}
		row := []string{
			f.escapeCSVField(docName),
			e.Source.String(),
			f.escapeCSVField(e.Rule),
			f.escapeCSVField(e.Kind),
			f.escapeCSVField(string(e.Label)),
			fmt.Sprintf("%d", e.Start),
			fmt.Sprintf("%d", e.End),
			score,
			valid,
			f.escapeCSVField(e.Text),
		}
		rows = append(rows, strings.Join(row, ","))
	}

	return strings.Join(rows, "\n") + "\n", nil
}

// escapeCSVField properly escapes a field for CSV format and prevents CSV injection
func (f *Formatter) escapeCSVField(field string) string {
	field = f.sanitizeFormulaInjection(field)

	if strings.ContainsAny(field, ",\"\n\r") {
		escaped := strings.ReplaceAll(field, "\"", "\"\"")
		return fmt.Sprintf("\"%s\"", escaped)
	}
	return field
}

// sanitizeFormulaInjection prefixes values a spreadsheet would evaluate as a formula
func (f *Formatter) sanitizeFormulaInjection(field string) string {
	if len(field) == 0 {
		return field
	}
	switch field[0] {
	case '=', '+', '-', '@':
		return "'" + field
	}
	return field
}

// Register the formatter during package initialization
func init() {
	formatters.Register(NewFormatter())
}
