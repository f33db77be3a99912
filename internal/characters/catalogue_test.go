package characters

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogue(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "zh-TW", cat.DefaultLanguage())
	ids := make([]string, 0)
	for _, ch := range cat.List() {
		ids = append(ids, ch.ID)
	}
	assert.Equal(t, []string{"ethan", "alex", "kaito"}, ids)
}

func TestGetUnknownCharacter(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)

	_, err = cat.Get("nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestResponsesFollowLanguageChain(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	ethan, err := cat.Get("ethan")
	require.NoError(t, err)

	assert.Equal(t, ethan.Responses["en"], ethan.ResponsesFor("en"))
	assert.Equal(t, ethan.Responses["zh-CN"], ethan.ResponsesFor("zh-CN"))
	assert.Equal(t, ethan.Responses["zh-TW"], ethan.ResponsesFor("zh"))
	assert.Equal(t, ethan.Responses["zh-TW"], ethan.ResponsesFor("fr"))
	assert.Equal(t, ethan.Responses["en"], ethan.ResponsesFor("en-GB"))
}

func TestRandomResponseComesFromTable(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	alex, err := cat.Get("alex")
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		assert.Contains(t, alex.Responses["en"], alex.RandomResponse("en"))
	}
}

func TestGreeting(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	ethan, err := cat.Get("ethan")
	require.NoError(t, err)
	kaito, err := cat.Get("kaito")
	require.NoError(t, err)

	assert.Equal(t, "You messaged me. What do you want?", ethan.Greeting("en", false))
	assert.Equal(t, ethan.InitialMessageAdult["en"], ethan.Greeting("en", true))
	// no adult variant: plain greeting
	assert.Equal(t, kaito.InitialMessage["en"], kaito.Greeting("en", true))
}

func TestParseRejectsInvalidCatalogues(t *testing.T) {
	cases := map[string]string{
		"empty":        "characters: []",
		"missing id":   "characters:\n  - name: A\n    responses: {en: [hi]}",
		"missing name": "characters:\n  - id: a\n    responses: {en: [hi]}",
		"no responses": "characters:\n  - id: a\n    name: A",
		"empty table":  "characters:\n  - id: a\n    name: A\n    responses: {en: []}",
		"duplicate id": "characters:\n  - {id: a, name: A, responses: {en: [hi]}}\n  - {id: a, name: B, responses: {en: [hi]}}",
		"bad yaml":     "characters: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLanguageName(t *testing.T) {
	assert.Equal(t, "Traditional Chinese", LanguageName("zh-TW"))
	assert.Equal(t, "Simplified Chinese", LanguageName("zh-CN"))
	assert.Equal(t, "English", LanguageName("en"))
}
