package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field is a drug-label field name understood by openFDA.
type Field string

// Constraint is one field:term equality. Constraints in a search are ANDed.
type Constraint struct {
	Field Field  `validate:"required,fdasearchfield"`
	Term  string `validate:"required"`
}

// StructuredSearch is the machine-readable form of a user's question.
// Its JSON shape is the one the translation prompt asks the model for:
//
//	{"search_params": [{"openfda.brand_name": "xarelto"}], "fields_to_return": ["warnings"], "limit": 10}
type StructuredSearch struct {
	Constraints []Constraint `validate:"required,min=1,dive"`
	Fields      []Field      `validate:"required,min=1,dive,fdafield"`
	Limit       int          `validate:"gte=0,lte=1000"`
	Sort        string
	Count       string
	Skip        int `validate:"gte=0,lte=25000"`
}

type structuredSearchJSON struct {
	SearchParams   []constraintGroup `json:"search_params"`
	FieldsToReturn []Field           `json:"fields_to_return"`
	Limit          int               `json:"limit"`
	Sort           string            `json:"sort,omitempty"`
	Count          string            `json:"count,omitempty"`
	Skip           int               `json:"skip,omitempty"`
}

// constraintGroup is one object of search_params. Key order is kept as
// written by the model.
type constraintGroup []Constraint

func (g *constraintGroup) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("search_params entry must be an object, got %s", string(data))
	}
	var out constraintGroup
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		out = append(out, Constraint{Field: Field(key), Term: termString(raw)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*g = out
	return nil
}

func (g constraintGroup) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(string(c.Field))
		v, _ := json.Marshal(c.Term)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// termString renders a JSON value as search text: strings unquoted, any
// other value as its literal JSON.
func termString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func (s *StructuredSearch) UnmarshalJSON(data []byte) error {
	var wire structuredSearchJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	var constraints []Constraint
	for _, group := range wire.SearchParams {
		constraints = append(constraints, group...)
	}
	*s = StructuredSearch{
		Constraints: constraints,
		Fields:      wire.FieldsToReturn,
		Limit:       wire.Limit,
		Sort:        wire.Sort,
		Count:       wire.Count,
		Skip:        wire.Skip,
	}
	return nil
}

func (s StructuredSearch) MarshalJSON() ([]byte, error) {
	wire := structuredSearchJSON{
		FieldsToReturn: s.Fields,
		Limit:          s.Limit,
		Sort:           s.Sort,
		Count:          s.Count,
		Skip:           s.Skip,
	}
	if len(s.Constraints) > 0 {
		wire.SearchParams = []constraintGroup{constraintGroup(s.Constraints)}
	}
	return json.Marshal(wire)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("fdafield", func(fl validator.FieldLevel) bool {
		return IsKnownField(fl.Field().String())
	})
	_ = v.RegisterValidation("fdasearchfield", func(fl validator.FieldLevel) bool {
		return IsSearchableField(fl.Field().String())
	})
	return v
}

// ErrInvalidSearch reports a structured search that failed validation.
var ErrInvalidSearch = errors.New("invalid structured search")

// Validate checks the search against the drug-label vocabulary and the
// openFDA paging limits.
func (s StructuredSearch) Validate() error {
	if err := validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSearch, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSearch, err)
	}
	return nil
}
