// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validators

const (
	minPhoneDigits = 9
	maxPhoneDigits = 11
)

// PhoneFormatValid reports whether v normalizes to 9..11 digits.
// This is a loose length heuristic, not a numbering-plan check.
func PhoneFormatValid(v string) bool {
	return digitCountBetween(v, minPhoneDigits, maxPhoneDigits)
}
