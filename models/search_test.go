package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredSearchUnmarshal(t *testing.T) {
	raw := `{"search_params": [{"openfda.brand_name": "xarelto", "openfda.route": "ORAL"}, {"openfda.rxcui": 1114198}],
		"fields_to_return": ["questions", "stop_use"], "limit": 10}`

	var s StructuredSearch
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	assert.Equal(t, []Constraint{
		{Field: "openfda.brand_name", Term: "xarelto"},
		{Field: "openfda.route", Term: "ORAL"},
		{Field: "openfda.rxcui", Term: "1114198"},
	}, s.Constraints)
	assert.Equal(t, []Field{"questions", "stop_use"}, s.Fields)
	assert.Equal(t, 10, s.Limit)
	assert.NoError(t, s.Validate())
}

func TestStructuredSearchUnmarshalRejectsNonObjectParams(t *testing.T) {
	var s StructuredSearch
	err := json.Unmarshal([]byte(`{"search_params": ["xarelto"], "fields_to_return": ["warnings"]}`), &s)
	assert.Error(t, err)
}

func TestStructuredSearchMarshalKeepsOrder(t *testing.T) {
	s := StructuredSearch{
		Constraints: []Constraint{{Field: "openfda.generic_name", Term: "morphine"}, {Field: "abuse", Term: "opioid"}},
		Fields:      []Field{"abuse"},
		Limit:       5,
	}
	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"search_params":[{"openfda.generic_name":"morphine","abuse":"opioid"}],"fields_to_return":["abuse"],"limit":5}`, string(out))
	assert.True(t, strings.Index(string(out), "openfda.generic_name") < strings.Index(string(out), `"abuse":"opioid"`))
}

func TestStructuredSearchValidate(t *testing.T) {
	valid := StructuredSearch{
		Constraints: []Constraint{{Field: "openfda.brand_name.exact", Term: "ELIQUIS"}},
		Fields:      []Field{"contraindications"},
		Limit:       10,
	}

	tests := []struct {
		name    string
		mutate  func(s *StructuredSearch)
		wantErr bool
	}{
		{name: "valid", mutate: func(s *StructuredSearch) {}},
		{name: "unknown return field", mutate: func(s *StructuredSearch) { s.Fields = []Field{"side_effects"} }, wantErr: true},
		{name: "unknown search field", mutate: func(s *StructuredSearch) { s.Constraints[0].Field = "drug" }, wantErr: true},
		{name: "openfda prefix on label-only field", mutate: func(s *StructuredSearch) { s.Constraints[0].Field = "openfda.warnings" }, wantErr: true},
		{name: "empty term", mutate: func(s *StructuredSearch) { s.Constraints[0].Term = "" }, wantErr: true},
		{name: "no constraints", mutate: func(s *StructuredSearch) { s.Constraints = nil }, wantErr: true},
		{name: "no fields", mutate: func(s *StructuredSearch) { s.Fields = nil }, wantErr: true},
		{name: "limit too large", mutate: func(s *StructuredSearch) { s.Limit = 5000 }, wantErr: true},
		{name: "zero limit uses default", mutate: func(s *StructuredSearch) { s.Limit = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			s.Constraints = append([]Constraint(nil), valid.Constraints...)
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidSearch), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIsKnownField(t *testing.T) {
	assert.True(t, IsKnownField("warnings"))
	assert.True(t, IsKnownField("openfda.brand_name"))
	assert.True(t, IsKnownField("brand_name"))
	assert.False(t, IsKnownField("openfda.boxed_warning"))
	assert.False(t, IsKnownField(""))
	assert.True(t, IsSearchableField("openfda.generic_name.exact"))
	assert.False(t, IsKnownField("openfda.generic_name.exact"))
}
