// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// NoConfidence is rendered for a label with no scored predictions.
const NoConfidence = "—"

// AvgConfidence is the mean recognizer score of one label. It encodes as a
// JSON number, or as NoConfidence when no prediction carried a score.
type AvgConfidence struct {
	Value float64
	Valid bool
}

// Confidence returns a present average.
func Confidence(v float64) AvgConfidence {
	return AvgConfidence{Value: v, Valid: true}
}

func (a AvgConfidence) String() string {
	if !a.Valid {
		return NoConfidence
	}
	return strconv.FormatFloat(a.Value, 'f', 2, 64)
}

func (a AvgConfidence) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return json.Marshal(NoConfidence)
	}
	return json.Marshal(a.Value)
}

func (a *AvgConfidence) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != NoConfidence {
			return fmt.Errorf("invalid confidence %q", s)
		}
		*a = AvgConfidence{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid confidence: %w", err)
	}
	*a = Confidence(v)
	return nil
}

func (a AvgConfidence) MarshalYAML() (interface{}, error) {
	if !a.Valid {
		return NoConfidence, nil
	}
	return a.Value, nil
}
