// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package failure explains why the pattern matcher rejected a candidate.
package failure

import (
	"strings"

	"ferret-risk/internal/validators"
)

// Reason is a human-readable failure cause.
type Reason string

const (
	ReasonResidentIDFormat Reason = "resident registration number format/length mismatch"
	ReasonForeignIDFormat  Reason = "foreign registration number format/length mismatch"
	ReasonCardFormat       Reason = "card number format/length mismatch"
	ReasonEmailFormat      Reason = "email format mismatch"
	ReasonPhoneFormat      Reason = "phone number format/length mismatch"
	ReasonChecksum         Reason = "checksum mismatch"
	ReasonUnclassified     Reason = "failed validation, cause unclassified"
)

// family groups the rules a shape validator applies to.
type family struct {
	keys        []string
	shape       validators.Check
	shapeReason Reason
	checksum    validators.Check // nil when the family carries no checksum
}

func (f family) matches(rule string) bool {
	for _, k := range f.keys {
		if strings.Contains(rule, k) {
			return true
		}
	}
	return false
}

// families is evaluated in order; the first matching family wins. It is
// independent of the display-kind table in package taxonomy: that table
// checks passport, driver and bank keys before the phone keys, so a rule
// such as "passport_tel" displays as a passport number while its failures
// are explained by the phone validator. Only the families below carry shape
// validators; every other kind stays unclassified.
var families = []family{
	{keys: []string{"rrn"}, shape: validators.NationalIDFormatValid, shapeReason: ReasonResidentIDFormat},
	{keys: []string{"fgn", "foreign"}, shape: validators.ForeignIDFormatValid, shapeReason: ReasonForeignIDFormat},
	{keys: []string{"card"}, shape: validators.CardFormatValid, shapeReason: ReasonCardFormat, checksum: validators.LuhnValid},
	{keys: []string{"email"}, shape: validators.EmailShapeValid, shapeReason: ReasonEmailFormat},
	{keys: []string{"phone", "mobile", "tel"}, shape: validators.PhoneFormatValid, shapeReason: ReasonPhoneFormat},
}

// Classify infers why value, matched by rule and rejected by the matcher,
// failed validation. It only explains the matcher's verdict and never
// overrides it.
func Classify(rule, value string) Reason {
	lower := strings.ToLower(rule)
	for _, f := range families {
		if !f.matches(lower) {
			continue
		}
		if !f.shape(value) {
			return f.shapeReason
		}
		if f.checksum != nil && !f.checksum(value) {
			return ReasonChecksum
		}
		return ReasonUnclassified
	}
	return ReasonUnclassified
}
