package stringutils_test

import (
	"testing"

	"github.com/chayo-ai/memoryd/internal/stringutils"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeUnicodeString(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "string with null byte",
			input:    "title\u0000with null",
			expected: "titlewith null",
		},
		{
			name:     "string with multiple control characters",
			input:    "test\u0000\u0001\u001f\u007fstring",
			expected: "teststring",
		},
		{
			name:     "string with valid whitespace",
			input:    "normal\tstring\nwith\rwhitespace",
			expected: "normal\tstring\nwith\rwhitespace",
		},
		{
			name:     "clean string",
			input:    "completely normal string",
			expected: "completely normal string",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stringutils.SanitizeUnicodeString(tc.input))
		})
	}
}

func TestCollapseWhitespace(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "multiline transcript excerpt",
			input:    "Our clinic is open\n\n  9am-5pm\tMon-Fri",
			expected: "Our clinic is open 9am-5pm Mon-Fri",
		},
		{
			name:     "leading and trailing whitespace",
			input:    "  hello world  ",
			expected: "hello world",
		},
		{
			name:     "only whitespace",
			input:    " \n\t ",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, stringutils.CollapseWhitespace(tc.input))
		})
	}
}
