package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"":                         "",
		"/dashboard":               "/dashboard",
		" /dashboard/recipe/3 ":    "/dashboard/recipe/3",
		"/search?q=cake":           "/search?q=cake",
		"dashboard":                "",
		"//evil.example.com":       "",
		`/\evil.example.com`:       "",
		"https://evil.example.com": "",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeNext(in), in)
	}
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "/login", loginURL(""))
	assert.Equal(t, "/login?next=%2Fdashboard%3Fpage%3D2", loginURL("/dashboard?page=2"))
}
