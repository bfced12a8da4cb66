// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package taxonomy

import (
	"fmt"

	"ferret-risk/internal/detector"
)

// Weights is the risk weight per kind or entity-label name. Absent keys
// weigh zero.
type Weights map[string]int

// DefaultWeights returns the shipped weight table.
func DefaultWeights() Weights {
	return Weights{
		string(KindResidentRegistration): 30,
		string(KindForeignRegistration):  30,
		string(KindCardNumber):           25,
		string(KindBankAccount):          20,
		string(KindDriverLicense):        18,
		string(KindPassport):             18,
		string(KindPhone):                10,
		string(KindEmail):                8,
		"person-entity":                  2,
		"location-entity":                5,
		"organization-entity":            3,
	}
}

// Weight returns the weight of a kind or label name.
func (w Weights) Weight(key string) int {
	return w[key]
}

// KindWeight returns the weight of a pattern kind.
func (w Weights) KindWeight(kind Kind) int {
	return w[string(kind)]
}

// LabelWeight returns the weight of a recognizer label, looking the raw
// label code up first and its display name second.
func (w Weights) LabelWeight(label detector.Label) int {
	if v, ok := w[string(label)]; ok {
		return v
	}
	return w[LabelName(label)]
}

// With returns a copy of w with overrides applied. The receiver is not
// modified.
func (w Weights) With(overrides map[string]int) Weights {
	out := make(Weights, len(w)+len(overrides))
	for k, v := range w {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Validate rejects negative weights; scores must be monotone in counts.
func (w Weights) Validate() error {
	for k, v := range w {
		if v < 0 {
			return fmt.Errorf("risk weight for %q must not be negative, got %d", k, v)
		}
	}
	return nil
}
