package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSitemap_URLSet(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`

	urls, err := parseSitemap([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestParseSitemap_Index(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-1.xml</loc></sitemap>
</sitemapindex>`

	urls, err := parseSitemap([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/sitemap-1.xml"}, urls)
}

func TestParseSitemap_Malformed(t *testing.T) {
	_, err := parseSitemap([]byte("not xml at all"))
	assert.Error(t, err)
}
