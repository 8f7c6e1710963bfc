package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_Substitution(t *testing.T) {
	vars := map[string]string{
		"firstName":       "Dana",
		"agentName":       "Sam Rivera",
		"propertyAddress": "12 Elm St",
	}

	result := Render("Hi {{firstName}}, {{agentName}} listed {{propertyAddress}}", vars)
	assert.Equal(t, "Hi Dana, Sam Rivera listed 12 Elm St", result)
}

func TestRender_MissingVariableRendersEmpty(t *testing.T) {
	result := Render("Hi {{firstName}}", map[string]string{})
	assert.Equal(t, "Hi ", result)

	result = Render("Hi {{firstName}}", nil)
	assert.Equal(t, "Hi ", result)
}

func TestRender_DottedIdentifiers(t *testing.T) {
	result := Render("{{contact.stage}}", map[string]string{"contact.stage": "hot"})
	assert.Equal(t, "hot", result)
}

func TestRender_NoPlaceholders(t *testing.T) {
	result := Render("plain text", map[string]string{"firstName": "Dana"})
	assert.Equal(t, "plain text", result)
}

func TestRender_MalformedPlaceholderLeftAlone(t *testing.T) {
	result := Render("{{ spaced }} and {{firstName}}", map[string]string{"firstName": "Dana"})
	assert.Equal(t, "{{ spaced }} and Dana", result)
}

func TestNewlinesToParagraphs(t *testing.T) {
	assert.Equal(t, "<p>one</p><p>two</p>", NewlinesToParagraphs("one\ntwo"))
	assert.Equal(t, "<p>one</p><p>two</p>", NewlinesToParagraphs("one\r\ntwo"))
	assert.Equal(t, "<p>solo</p>", NewlinesToParagraphs("solo"))
}
