package chunker

import "regexp"

// Section is one llms.txt / llms-full.txt section, keyed by its heading.
type Section struct {
	Title   string
	Content string
}

// llmsTxtHeading matches an H1 or H2 markdown heading, the section
// marker convention the llms.txt spec uses to delimit linked resources
// and their descriptions.
var llmsTxtHeading = regexp.MustCompile(`(?m)^(#{1,2})\s+(.+)$`)

// SplitLLMsTxt splits an llms.txt or llms-full.txt document into
// sections by its heading markers, so each section can become a
// synthetic page chunked independently of the others. A document with no
// headings becomes a single section titled "root".
func SplitLLMsTxt(text string) []Section {
	locs := llmsTxtHeading.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		if Normalize(text) == "" {
			return nil
		}
		return []Section{{Title: "root", Content: text}}
	}

	var sections []Section
	for i, loc := range locs {
		titleStart, titleEnd := loc[4], loc[5]
		title := text[titleStart:titleEnd]

		contentStart := loc[1]
		contentEnd := len(text)
		if i+1 < len(locs) {
			contentEnd = locs[i+1][0]
		}

		sections = append(sections, Section{
			Title:   title,
			Content: text[contentStart:contentEnd],
		})
	}
	return sections
}
