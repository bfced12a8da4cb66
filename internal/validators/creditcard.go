// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validators

const (
	minCardDigits = 12
	maxCardDigits = 19
)

// LuhnValid runs the mod-10 checksum over the digits of v.
// At least 12 digits are required.
func LuhnValid(v string) bool {
	number := DigitsOnly(v)
	if len(number) < minCardDigits {
		return false
	}

	sum := 0
	isDouble := false

	for i := len(number) - 1; i >= 0; i-- {
		if number[i] < '0' || number[i] > '9' {
			return false
		}
		digit := int(number[i] - '0')

		if isDouble {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}

		sum += digit
		isDouble = !isDouble
	}

	return sum%10 == 0
}

// CardFormatValid reports whether v has a plausible card-number length
// (12 to 19 digits). It does not run the checksum.
func CardFormatValid(v string) bool {
	return digitCountBetween(v, minCardDigits, maxCardDigits)
}
