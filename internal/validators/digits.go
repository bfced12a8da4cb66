// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validators

import "strings"

// DigitsOnly strips every character that is not an ASCII digit.
// It normalizes values for the other validators and is never a validity
// check on its own.
func DigitsOnly(v string) string {
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		if v[i] >= '0' && v[i] <= '9' {
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

// digitCountBetween reports whether v normalizes to lo..hi digits.
func digitCountBetween(v string, lo, hi int) bool {
	n := len(DigitsOnly(v))
	return n >= lo && n <= hi
}
