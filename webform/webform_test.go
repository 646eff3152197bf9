package webform_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diachronicon/searchql"
	"github.com/diachronicon/searchql/webform"
)

func submission() url.Values {
	return url.Values{
		"construction.formula":              {"np*"},
		"construction.num_changes":          {"2"},
		"construction.num_changes_sign":     {"ge"},
		"construction.in_rus_constructicon": {"on"},
		"construction.anchor_length__from":  {""},
		"general_info.status":               {"  "},
		"changes.0.formula":                 {"Cop"},
		"changes.0.duration__from":          {"100"},
		"changes.1.level":                   {"syntax"},
		"csrf_token":                        {"abc"},
	}
}

func TestDecode(t *testing.T) {
	s, err := webform.Decode(submission())
	require.NoError(t, err)

	assert.Equal(t, "np*", s.Construction.Formula)
	require.NotNil(t, s.Construction.NumChanges)
	assert.Equal(t, 2, *s.Construction.NumChanges)
	require.NotNil(t, s.Construction.InRusConstructicon)
	assert.True(t, *s.Construction.InRusConstructicon)
	assert.Nil(t, s.Construction.AnchorLengthFrom, "blank inputs stay unset")
	require.Len(t, s.Changes, 2)
	assert.Equal(t, "Cop", s.Changes[0].Formula)
	assert.Equal(t, "syntax", s.Changes[1].Level)
}

func TestDecode_Checkbox(t *testing.T) {
	for value, want := range map[string]bool{"on": true, "TRUE": true, "off": false, "0": false} {
		s, err := webform.Decode(url.Values{"construction.in_rus_constructicon": {value}})
		require.NoError(t, err, value)
		require.NotNil(t, s.Construction.InRusConstructicon, value)
		assert.Equal(t, want, *s.Construction.InRusConstructicon, value)
	}
}

func TestDecode_InvalidNumber(t *testing.T) {
	_, err := webform.Decode(url.Values{"construction.num_changes": {"many"}})
	assert.ErrorContains(t, err, "decoding search form")
}

func TestToForm(t *testing.T) {
	s, err := webform.Decode(submission())
	require.NoError(t, err)

	form := s.ToForm()
	assert.Equal(t, []string{"construction", "changes"}, form.Keys())

	v, _ := form.Get("construction")
	construction := v.(*searchql.Form)
	assert.Equal(t, []string{"formula", "in_rus_constructicon", "num_changes", "num_changes_sign"}, construction.Keys())
	n, _ := construction.Get("num_changes")
	assert.Equal(t, int64(2), n)

	v, _ = form.Get("changes")
	changes := v.(searchql.FormList)
	require.Len(t, changes, 2)
	assert.Equal(t, []string{"formula", "duration__from"}, changes[0].Keys())
	assert.Equal(t, []string{"level"}, changes[1].Keys())
}

func TestParseQuery(t *testing.T) {
	form, err := webform.ParseQuery("?construction.formula=%D0%BD%D0%B8+%D0%BD%D0%B0&general_info.status=done")
	require.NoError(t, err)
	assert.Equal(t, []string{"construction", "general_info"}, form.Keys())

	v, _ := form.Get("construction")
	formula, _ := v.(*searchql.Form).Get("formula")
	assert.Equal(t, "ни на", formula)

	_, err = webform.ParseQuery("construction.formula=%zz")
	assert.ErrorContains(t, err, "parsing query string")
}

func TestParseQuery_Empty(t *testing.T) {
	form, err := webform.ParseQuery("")
	require.NoError(t, err)
	assert.Zero(t, form.Len())
}
