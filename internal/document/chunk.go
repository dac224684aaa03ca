// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package document

import (
	"fmt"
	"strings"
)

// chunk is one indexed passage of a document.
type chunk struct {
	heading string
	text    string
	page    int
}

// section is a heading-delimited part of a Markdown document.
type section struct {
	heading string
	body    string
	page    int
}

// chunkMarkdown splits content at ## and ### headings and then splits
// sections longer than size on paragraph boundaries. Page markers of the
// form <!-- page N --> set the page of the text that follows; without any
// marker every chunk has page 0.
func chunkMarkdown(content string, size int) []chunk {
	var chunks []chunk
	for _, sec := range splitSections(content) {
		for _, part := range splitParagraphs(sec.body, size) {
			chunks = append(chunks, chunk{heading: sec.heading, text: part, page: sec.page})
		}
	}
	return chunks
}

func splitSections(content string) []section {
	var (
		sections  []section
		heading   string
		page      int
		bodyLines []string
	)

	flush := func() {
		body := strings.TrimSpace(strings.Join(bodyLines, "\n"))
		if body != "" {
			sections = append(sections, section{heading: heading, body: body, page: page})
		}
		bodyLines = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		if p, ok := parsePageMarker(trimmed); ok {
			flush()
			page = p
			continue
		}
		if isHeading(trimmed) {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			continue
		}
		bodyLines = append(bodyLines, line)
	}
	flush()
	return sections
}

// splitParagraphs packs paragraphs into parts of at most size characters.
// A single paragraph longer than size is split on word boundaries.
func splitParagraphs(body string, size int) []string {
	if len(body) <= size {
		return []string{body}
	}

	var (
		parts []string
		cur   strings.Builder
	)
	emit := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
	}

	for _, para := range strings.Split(body, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > size {
			emit()
			parts = append(parts, splitWords(para, size)...)
			continue
		}
		if cur.Len() > 0 && cur.Len()+2+len(para) > size {
			emit()
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	emit()
	return parts
}

func splitWords(s string, size int) []string {
	var (
		parts []string
		cur   strings.Builder
	)
	for _, w := range strings.Fields(s) {
		if cur.Len() > 0 && cur.Len()+1+len(w) > size {
			parts = append(parts, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		parts = append(parts, cur.String())
	}
	return parts
}

func isHeading(line string) bool {
	return strings.HasPrefix(line, "## ") || strings.HasPrefix(line, "### ")
}

// parsePageMarker extracts the page number from an HTML comment like <!-- page 3 -->.
func parsePageMarker(line string) (int, bool) {
	if !strings.HasPrefix(line, "<!-- page ") || !strings.HasSuffix(line, " -->") {
		return 0, false
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(line, "<!-- page "), " -->")
	var page int
	if _, err := fmt.Sscanf(inner, "%d", &page); err != nil || page < 1 {
		return 0, false
	}
	return page, true
}

// documentTitle returns the first level-one heading, or fallback.
func documentTitle(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			if t := strings.TrimSpace(line[2:]); t != "" {
				return t
			}
		}
	}
	return fallback
}
