// Package webform decodes url-encoded search page submissions into forms.
//
// Field names follow the search page: nested sections are dotted
// ("construction.formula") and repeated sections are indexed
// ("changes.0.duration").
package webform

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"

	"github.com/gorilla/schema"

	"github.com/diachronicon/searchql"
)

// Construction is the construction (anchor) section of the search page.
type Construction struct {
	Formula               string `schema:"formula"`
	Meaning               string `schema:"meaning"`
	SyntFunctionsOfAnchor string `schema:"synt_functions_of_anchor"`
	AnchorSchema          string `schema:"anchor_schema"`
	AnchorRu              string `schema:"anchor_ru"`
	AnchorEng             string `schema:"anchor_eng"`
	InRusConstructicon    *bool  `schema:"in_rus_constructicon"`
	NumChanges            *int   `schema:"num_changes"`
	NumChangesSign        string `schema:"num_changes_sign"`
	NumChangesFrom        *int   `schema:"num_changes__from"`
	NumChangesTo          *int   `schema:"num_changes__to"`
	AnchorLengthFrom      *int   `schema:"anchor_length__from"`
	AnchorLengthTo        *int   `schema:"anchor_length__to"`
	NumCapitalizedFrom    *int   `schema:"num_capitalized__from"`
	NumCapitalizedTo      *int   `schema:"num_capitalized__to"`
}

// GeneralInfo is the bibliographic section.
type GeneralInfo struct {
	Name          string `schema:"name"`
	AuthorName    string `schema:"author_name"`
	AuthorSurname string `schema:"author_surname"`
	GroupNumber   string `schema:"group_number"`
	Status        string `schema:"status"`
}

// Change is one entry of the repeated change section.
type Change struct {
	Formula           string `schema:"formula"`
	Level             string `schema:"level"`
	TypeOfChange      string `schema:"type_of_change"`
	Duration          *int   `schema:"duration"`
	DurationSign      string `schema:"duration_sign"`
	DurationFrom      *int   `schema:"duration__from"`
	DurationTo        *int   `schema:"duration__to"`
	FirstAttestedFrom *int   `schema:"first_attested__from"`
	FirstAttestedTo   *int   `schema:"first_attested__to"`
	LastAttestedFrom  *int   `schema:"last_attested__from"`
	LastAttestedTo    *int   `schema:"last_attested__to"`
}

// Search is a complete submission.
type Search struct {
	Construction Construction `schema:"construction"`
	Info         GeneralInfo  `schema:"general_info"`
	Changes      []Change     `schema:"changes"`
}

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	d.ZeroEmpty(true)
	// Checkboxes submit "on".
	d.RegisterConverter(false, func(s string) reflect.Value {
		switch strings.ToLower(s) {
		case "on", "true", "1", "yes":
			return reflect.ValueOf(true)
		case "off", "false", "0", "no":
			return reflect.ValueOf(false)
		}
		return reflect.Value{}
	})
	return d
}

// Decode decodes submitted values into a Search.
func Decode(values url.Values) (*Search, error) {
	var s Search
	if err := newDecoder().Decode(&s, dropEmpty(values)); err != nil {
		return nil, fmt.Errorf("decoding search form: %w", err)
	}
	return &s, nil
}

// ParseQuery decodes a url-encoded query string straight into a form.
func ParseQuery(raw string) (*searchql.Form, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return nil, fmt.Errorf("parsing query string: %w", err)
	}
	s, err := Decode(values)
	if err != nil {
		return nil, err
	}
	return s.ToForm(), nil
}

// dropEmpty removes blank values so that untouched numeric inputs do not
// fail conversion.
func dropEmpty(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vs := range values {
		var kept []string
		for _, v := range vs {
			if strings.TrimSpace(v) != "" {
				kept = append(kept, v)
			}
		}
		if len(kept) > 0 {
			out[key] = kept
		}
	}
	return out
}

// ToForm converts the submission to a form in field declaration order.
// Unset fields and empty sections are left out.
func (s *Search) ToForm() *searchql.Form {
	return structForm(reflect.ValueOf(s).Elem())
}

func structForm(v reflect.Value) *searchql.Form {
	form := searchql.NewForm()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("schema"), ",")
		if name == "" || name == "-" {
			continue
		}
		if value, ok := formValue(v.Field(i)); ok {
			form.Set(name, value)
		}
	}
	return form
}

func formValue(v reflect.Value) (any, bool) {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() {
			return nil, false
		}
		return formValue(v.Elem())
	case reflect.String:
		s := strings.TrimSpace(v.String())
		return s, s != ""
	case reflect.Bool:
		return v.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), true
	case reflect.Struct:
		sub := structForm(v)
		return sub, sub.Len() > 0
	case reflect.Slice:
		var list searchql.FormList
		for i := 0; i < v.Len(); i++ {
			if entry, ok := formValue(v.Index(i)); ok {
				if f, isForm := entry.(*searchql.Form); isForm {
					list = append(list, f)
				}
			}
		}
		return list, len(list) > 0
	}
	return nil, false
}
