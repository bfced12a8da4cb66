// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package validators

import "strings"

// EmailShapeValid checks the coarse shape local@domain.tld: exactly one
// '@', non-empty parts, a '.' in the domain, and no leading or trailing '.'
// on the domain. No DNS or MX lookups are made.
func EmailShapeValid(v string) bool {
	if strings.Count(v, "@") != 1 {
		return false
	}

	local, domain, _ := strings.Cut(v, "@")
	if local == "" || domain == "" {
		return false
	}

	if !strings.Contains(domain, ".") {
		return false
	}

	return !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
