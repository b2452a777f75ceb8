// Encore Feed Engine - Unified Feed Aggregation and Personalization
// Copyright 2026 Encore Live
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/encorelive/feedengine

package validation

import (
	"strings"
	"testing"
)

func TestGetValidatorSingleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()

	if v1 != v2 {
		t.Error("GetValidator() should return the same singleton instance")
	}
	if v1 == nil {
		t.Error("GetValidator() should not return nil")
	}
}

type feedQuery struct {
	ViewerID string  `validate:"required,uuid"`
	Mode     string  `validate:"omitempty,oneof=all friends friends_plus_one public_only"`
	Limit    int     `validate:"min=1,max=100"`
	Offset   int     `validate:"min=0"`
	Lat      float64 `validate:"omitempty,latitude"`
	Lng      float64 `validate:"omitempty,longitude"`
}

func TestValidateStructValid(t *testing.T) {
	q := feedQuery{
		ViewerID: "7f9c24e5-2f3a-4b5c-9d1e-8a7b6c5d4e3f",
		Mode:     "friends",
		Limit:    20,
		Offset:   0,
		Lat:      40.7128,
		Lng:      -74.0060,
	}
	if err := ValidateStruct(&q); err != nil {
		t.Errorf("expected valid struct, got: %v", err)
	}
}

func TestValidateStructErrors(t *testing.T) {
	tests := []struct {
		name      string
		input     feedQuery
		wantField string
	}{
		{
			name:      "missing viewer",
			input:     feedQuery{Limit: 20},
			wantField: "ViewerID",
		},
		{
			name: "bad mode",
			input: feedQuery{
				ViewerID: "7f9c24e5-2f3a-4b5c-9d1e-8a7b6c5d4e3f",
				Mode:     "everything",
				Limit:    20,
			},
			wantField: "Mode",
		},
		{
			name: "limit too high",
			input: feedQuery{
				ViewerID: "7f9c24e5-2f3a-4b5c-9d1e-8a7b6c5d4e3f",
				Limit:    500,
			},
			wantField: "Limit",
		},
		{
			name: "bad latitude",
			input: feedQuery{
				ViewerID: "7f9c24e5-2f3a-4b5c-9d1e-8a7b6c5d4e3f",
				Limit:    20,
				Lat:      120.0,
			},
			wantField: "Lat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.input)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}

			found := false
			for _, fe := range err.Errors() {
				if fe.Field() == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("expected error on field %q, got: %v", tt.wantField, err)
			}
		})
	}
}

func TestToAPIErrorSingle(t *testing.T) {
	q := feedQuery{ViewerID: "7f9c24e5-2f3a-4b5c-9d1e-8a7b6c5d4e3f", Limit: 0}
	err := ValidateStruct(&q)
	if err == nil {
		t.Fatal("expected validation error")
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR code, got %q", apiErr.Code)
	}
	if apiErr.Details["field"] != "Limit" {
		t.Errorf("expected Limit in details, got %v", apiErr.Details)
	}
}

func TestToAPIErrorMultiple(t *testing.T) {
	q := feedQuery{Limit: 0, Lat: 200}
	err := ValidateStruct(&q)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(err.Errors()) < 2 {
		t.Fatalf("expected multiple errors, got %d", len(err.Errors()))
	}

	apiErr := err.ToAPIError()
	if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("expected VALIDATION_ERROR code, got %q", apiErr.Code)
	}
	if _, ok := apiErr.Details["fields"]; !ok {
		t.Errorf("expected fields list in details, got %v", apiErr.Details)
	}
	if !strings.Contains(apiErr.Message, ";") {
		t.Errorf("expected combined message, got %q", apiErr.Message)
	}
}
