package site

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioos/internal/catalog"
)

var seedPattern = regexp.MustCompile(`(?s)<script id="seed-projects" type="application/json">(.*?)</script>`)

func seed(t *testing.T, page []byte) []catalog.Project {
	t.Helper()
	m := seedPattern.FindSubmatch(page)
	require.NotNil(t, m, "seed script not found")

	var projects []catalog.Project
	require.NoError(t, json.Unmarshal(m[1], &projects))
	return projects
}

func TestRender_Deterministic(t *testing.T) {
	reg := catalog.Default()

	first, err := Render(reg)
	require.NoError(t, err)
	second, err := Render(reg)
	require.NoError(t, err)

	assert.True(t, bytes.Equal(first, second), "renders differ")
}

func TestRender_SeedMatchesCatalog(t *testing.T) {
	reg := catalog.Default()

	page, err := Render(reg)
	require.NoError(t, err)

	assert.Equal(t, reg.All(), seed(t, page))
}

func TestRender_ProfileAndCategories(t *testing.T) {
	page, err := Render(catalog.Default())
	require.NoError(t, err)
	html := string(page)

	assert.True(t, strings.HasPrefix(html, "<!doctype html>"))
	assert.Contains(t, html, "Omar Maher — AI &amp; Automation Engineer")
	assert.Contains(t, html, `href="mailto:omarmaher23942@gmail.com"`)
	assert.Contains(t, html, `<option value="HealthTech">HealthTech</option>`)
	assert.Contains(t, html, `<span class="chip">n8n</span>`)
}

func TestRender_EscapesCatalogContent(t *testing.T) {
	reg := catalog.NewRegistry(catalog.Profile{
		Name:  `<img src=x onerror=alert(1)>`,
		Links: []catalog.Link{{Label: "bad", URL: "javascript:alert(1)"}},
	}, []catalog.Project{{
		ID:       "xss",
		Title:    `</script><script>alert(1)</script>`,
		Category: `"><b>`,
		Summary:  "s",
		Stack:    []string{},
	}})

	page, err := Render(reg)
	require.NoError(t, err)
	html := string(page)

	assert.NotContains(t, html, `<img src=x`)
	assert.NotContains(t, html, `</script><script>alert(1)`)
	assert.NotContains(t, html, `href="javascript:`)
	assert.NotContains(t, html, `<b>`)

	// the seed still decodes to the original strings
	projects := seed(t, page)
	require.Len(t, projects, 1)
	assert.Equal(t, `</script><script>alert(1)</script>`, projects[0].Title)
}
