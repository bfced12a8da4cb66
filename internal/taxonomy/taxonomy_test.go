// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package taxonomy

import (
	"testing"

	"ferret-risk/internal/detector"

	"github.com/stretchr/testify/assert"
)

func TestRuleToKind(t *testing.T) {
	cases := []struct {
		rule string
		want Kind
	}{
		{"rrn", KindResidentRegistration},
		{"kr_RRN_strict", KindResidentRegistration},
		{"fgn", KindForeignRegistration},
		{"foreigner_id", KindForeignRegistration},
		{"card_number", KindCardNumber},
		{"EMAIL", KindEmail},
		{"passport", KindPassport},
		{"driver_license", KindDriverLicense},
		{"bank_account", KindBankAccount},
		{"phone_mobile", KindPhone},
		{"mobile", KindPhone},
		{"", KindUnknown},
		{"   ", KindUnknown},
		{"iban", Kind("iban")},
	}
	for _, tc := range cases {
		t.Run(tc.rule, func(t *testing.T) {
			assert.Equal(t, tc.want, RuleToKind(tc.rule))
		})
	}
}

func TestRuleToKind_FirstMatchWins(t *testing.T) {
	// Matches both "rrn" and "foreign"; the earlier entry decides.
	assert.Equal(t, KindResidentRegistration, RuleToKind("foreign_rrn"))
	// Matches both "card" and "account".
	assert.Equal(t, KindCardNumber, RuleToKind("card_account"))
	// "license" sits ahead of "bank".
	assert.Equal(t, KindDriverLicense, RuleToKind("bank_license"))
}

func TestKindsOrder(t *testing.T) {
	kinds := Kinds()
	assert.Equal(t, KindResidentRegistration, kinds[0])
	assert.Equal(t, KindPhone, kinds[len(kinds)-1])
}

func TestLabelName(t *testing.T) {
	assert.Equal(t, "person-entity", LabelName(detector.LabelPerson))
	assert.Equal(t, "location-entity", LabelName(detector.LabelLocation))
	assert.Equal(t, "organization-entity", LabelName(detector.LabelOrganization))
	assert.Equal(t, "DT", LabelName("DT"))
}

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 30, w.KindWeight(KindResidentRegistration))
	assert.Equal(t, 30, w.KindWeight(KindForeignRegistration))
	assert.Equal(t, 25, w.KindWeight(KindCardNumber))
	assert.Equal(t, 20, w.KindWeight(KindBankAccount))
	assert.Equal(t, 18, w.KindWeight(KindDriverLicense))
	assert.Equal(t, 18, w.KindWeight(KindPassport))
	assert.Equal(t, 10, w.KindWeight(KindPhone))
	assert.Equal(t, 8, w.KindWeight(KindEmail))
	assert.Equal(t, 2, w.LabelWeight(detector.LabelPerson))
	assert.Equal(t, 5, w.LabelWeight(detector.LabelLocation))
	assert.Equal(t, 3, w.LabelWeight(detector.LabelOrganization))
	assert.Equal(t, 0, w.Weight("missing"))
	assert.Equal(t, 0, w.KindWeight(KindUnknown))
	assert.NoError(t, w.Validate())
}

func TestWeightsWith(t *testing.T) {
	base := DefaultWeights()
	over := base.With(map[string]int{"email": 12, "PS": 4, "iban": 22})

	assert.Equal(t, 12, over.KindWeight(KindEmail))
	assert.Equal(t, 4, over.LabelWeight(detector.LabelPerson), "label code overrides display name")
	assert.Equal(t, 22, over.Weight("iban"))
	assert.Equal(t, 8, base.KindWeight(KindEmail), "base table must be untouched")
}

func TestWeightsValidate(t *testing.T) {
	assert.Error(t, Weights{"email": -1}.Validate())
}
