// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package taxonomy maps matcher rule identifiers and recognizer labels to
// display kinds and holds the risk-weight table used for scoring.
package taxonomy

import (
	"strings"

	"ferret-risk/internal/detector"
)

// Kind is the display category of a pattern-matcher rule.
type Kind string

const (
	KindResidentRegistration Kind = "resident-registration-number"
	KindForeignRegistration  Kind = "foreign-registration-number"
	KindCardNumber           Kind = "card-number"
	KindEmail                Kind = "email"
	KindPassport             Kind = "passport-number"
	KindDriverLicense        Kind = "driver-license-number"
	KindBankAccount          Kind = "bank-account-number"
	KindPhone                Kind = "phone-number"
	KindUnknown              Kind = "unknown"
)

// kindRule pairs a predicate over a lower-cased rule identifier with the kind
// it selects.
type kindRule struct {
	match func(rule string) bool
	kind  Kind
}

func containsAny(subs ...string) func(string) bool {
	return func(rule string) bool {
		for _, s := range subs {
			if strings.Contains(rule, s) {
				return true
			}
		}
		return false
	}
}

// kindTable is evaluated in order; the first matching entry wins.
var kindTable = []kindRule{
	{containsAny("rrn"), KindResidentRegistration},
	{containsAny("fgn", "foreign"), KindForeignRegistration},
	{containsAny("card"), KindCardNumber},
	{containsAny("email"), KindEmail},
	{containsAny("passport"), KindPassport},
	{containsAny("driver", "license"), KindDriverLicense},
	{containsAny("bank", "account"), KindBankAccount},
	{containsAny("phone", "mobile", "tel"), KindPhone},
}

// RuleToKind maps a rule identifier to its display kind. Empty identifiers
// map to KindUnknown; identifiers no entry recognizes are echoed back.
func RuleToKind(rule string) Kind {
	trimmed := strings.TrimSpace(rule)
	if trimmed == "" {
		return KindUnknown
	}
	lower := strings.ToLower(trimmed)
	for _, entry := range kindTable {
		if entry.match(lower) {
			return entry.kind
		}
	}
	return Kind(trimmed)
}

// Kinds returns the known kinds in table order.
func Kinds() []Kind {
	kinds := make([]Kind, 0, len(kindTable))
	for _, entry := range kindTable {
		kinds = append(kinds, entry.kind)
	}
	return kinds
}

var labelNames = map[detector.Label]string{
	detector.LabelPerson:       "person-entity",
	detector.LabelLocation:     "location-entity",
	detector.LabelOrganization: "organization-entity",
}

// LabelName returns the display name of a recognizer label; labels outside
// the built-in set are echoed.
func LabelName(label detector.Label) string {
	if name, ok := labelNames[label]; ok {
		return name
	}
	return string(label)
}
