// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validators

import (
	"sort"
	"strings"
)

// Check is a format/checksum predicate over a raw matched value.
type Check func(v string) bool

// checks maps the names used in rule configuration to predicates.
var checks = map[string]Check{
	"luhn":        func(v string) bool { return CardFormatValid(v) && LuhnValid(v) },
	"card":        CardFormatValid,
	"email":       EmailShapeValid,
	"national_id": NationalIDFormatValid,
	"foreign_id":  ForeignIDFormatValid,
	"phone":       PhoneFormatValid,
	"none":        func(v string) bool { return v != "" },
}

// Lookup returns the named check. Names are case-insensitive.
func Lookup(name string) (Check, bool) {
	c, ok := checks[strings.ToLower(strings.TrimSpace(name))]
	return c, ok
}

// Names lists the registered check names in sorted order.
func Names() []string {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
