package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `["a","b"]`, StripCodeFences("```json\n[\"a\",\"b\"]\n```"))
	assert.Equal(t, `["a"]`, StripCodeFences("```\n[\"a\"]\n```"))
	assert.Equal(t, `["a"]`, StripCodeFences("```[\"a\"]```"))
	assert.Equal(t, "plain text", StripCodeFences("  plain text  "))
}

func TestParseStringList_JSONArray(t *testing.T) {
	items := ParseStringList("```json\n[\"remote teams\", \"Remote Teams\", \"freelancers\"]\n```")
	assert.Equal(t, []string{"remote teams", "freelancers"}, items)
}

func TestParseStringList_EmbeddedArray(t *testing.T) {
	items := ParseStringList("Here you go: [\"budget travel\", \"backpacking\"] hope it helps")
	assert.Equal(t, []string{"budget travel", "backpacking"}, items)
}

func TestParseStringList_FallbackSplitting(t *testing.T) {
	items := ParseStringList("1. meal prep\n2. keto recipes, \"low carb snacks\"\n- grocery lists")
	assert.Equal(t, []string{"meal prep", "keto recipes", "low carb snacks", "grocery lists"}, items)
}

func TestParseStringList_Garbage(t *testing.T) {
	assert.Empty(t, ParseStringList(""))
	assert.Empty(t, ParseStringList("```\n```"))
	assert.NotPanics(t, func() { ParseStringList("[{\"broken\": ") })
}

func TestParseCompetitors_JSON(t *testing.T) {
	text := "```json\n[{\"name\":\"Acme\",\"description\":\"Widgets\",\"url\":\"https://acme.test\"},{\"name\":\"\"}]\n```"
	competitors := ParseCompetitors(text)
	require.Len(t, competitors, 1)
	assert.Equal(t, Competitor{Name: "Acme", Description: "Widgets", URL: "https://acme.test"}, competitors[0])
}

func TestParseCompetitors_FallsBackToNames(t *testing.T) {
	competitors := ParseCompetitors("Acme, Globex\nInitech")
	require.Len(t, competitors, 3)
	assert.Equal(t, "Globex", competitors[1].Name)
	assert.Empty(t, competitors[1].URL)
}
