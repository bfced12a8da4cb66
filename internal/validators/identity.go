// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validators

const registrationNumberDigits = 13

// NationalIDFormatValid reports whether v normalizes to exactly 13 digits,
// the length of a resident registration number. Birth-date and check-digit
// rules are not applied.
func NationalIDFormatValid(v string) bool {
	return len(DigitsOnly(v)) == registrationNumberDigits
}

// ForeignIDFormatValid reports whether v normalizes to exactly 13 digits,
// the length of a foreigner registration number.
func ForeignIDFormatValid(v string) bool {
	return len(DigitsOnly(v)) == registrationNumberDigits
}
