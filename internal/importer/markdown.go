// Package importer converts directories of Markdown notes (Obsidian vaults,
// wikis, plain note folders) into work units for the ingest pipeline. Notes
// are user-generated text, so imported units carry the user-generated
// extraction tier.
package importer

import (
	"bufio"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// note is one parsed Markdown file, frontmatter stripped.
type note struct {
	RelativePath string
	Title        string
	Body         string
	Tags         []string
	Links        []string
	Timestamp    time.Time
}

// parseNote parses a Markdown file. relativePath locates the title fallback
// and the source bucket derivation in loadUnit.
func parseNote(content []byte, relativePath string) (*note, error) {
	fm, body, err := splitFrontmatter(string(content))
	if err != nil {
		return nil, fmt.Errorf("importer: bad frontmatter in %s: %w", relativePath, err)
	}

	title := frontmatterString(fm, "title")
	if title == "" {
		title = headingTitle(body)
	}
	if title == "" {
		title = titleFromPath(relativePath)
	}

	return &note{
		RelativePath: relativePath,
		Title:        title,
		Body:         stripWikiLinks(body),
		Tags:         mergeTags(frontmatterTags(fm), inlineTags(body)),
		Links:        wikiLinkTargets(body),
		Timestamp:    frontmatterTimestamp(fm),
	}, nil
}

// text assembles the unit text sent to extraction: title heading, body with
// wiki links flattened to plain text, then tag and link context lines so the
// model sees the note's own vocabulary.
func (n *note) text() string {
	body := strings.TrimSpace(n.Body)

	var parts []string
	if n.Title != "" && !strings.HasPrefix(body, "# ") {
		parts = append(parts, "# "+n.Title)
	}
	if body != "" {
		parts = append(parts, body)
	}
	if len(n.Tags) > 0 {
		parts = append(parts, "Tags: "+strings.Join(n.Tags, ", "))
	}
	if len(n.Links) > 0 {
		parts = append(parts, "Linked notes: "+strings.Join(n.Links, ", "))
	}
	return strings.Join(parts, "\n\n")
}

// splitFrontmatter separates YAML frontmatter (between --- delimiters on
// their own lines) from the body. A file without frontmatter returns an
// empty map and the full text.
func splitFrontmatter(text string) (map[string]interface{}, string, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}

	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return map[string]interface{}{}, text, nil
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closeIdx = i
			break
		}
	}
	if closeIdx == -1 {
		return map[string]interface{}{}, text, nil
	}

	fm := make(map[string]interface{})
	raw := strings.Join(lines[1:closeIdx], "\n")
	if err := yaml.Unmarshal([]byte(raw), &fm); err != nil {
		return nil, "", fmt.Errorf("invalid YAML: %w", err)
	}
	return fm, strings.Join(lines[closeIdx+1:], "\n"), nil
}

// headingTitle returns the text of the first H1 heading, or "".
func headingTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// titleFromPath derives a readable title from the file name.
func titleFromPath(rel string) string {
	name := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

func frontmatterString(fm map[string]interface{}, key string) string {
	if s, ok := fm[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// frontmatterTags reads tags from frontmatter, accepting both YAML list and
// comma-separated string forms.
func frontmatterTags(fm map[string]interface{}) []string {
	switch v := fm["tags"].(type) {
	case []interface{}:
		var tags []string
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				tags = append(tags, s)
			}
		}
		return tags
	case string:
		var tags []string
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		return tags
	}
	return nil
}

// timestampLayouts are the date formats accepted in note frontmatter.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// frontmatterTimestamp reads the first parseable date field. YAML already
// decodes unquoted dates as time.Time.
func frontmatterTimestamp(fm map[string]interface{}) time.Time {
	for _, key := range []string{"date", "created", "updated"} {
		raw, ok := fm[key]
		if !ok {
			continue
		}
		if t, ok := raw.(time.Time); ok {
			return t
		}
		s := strings.TrimSpace(fmt.Sprintf("%v", raw))
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// inlineTagRe finds #hashtag markers in body text.
var inlineTagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

func inlineTags(body string) []string {
	var tags []string
	for _, m := range inlineTagRe.FindAllStringSubmatch(body, -1) {
		tags = append(tags, strings.TrimSpace(m[1]))
	}
	return dedupeFold(tags)
}

// mergeTags combines tag slices deduplicating case-insensitively, first
// spelling wins.
func mergeTags(a, b []string) []string {
	return dedupeFold(append(append([]string{}, a...), b...))
}

func dedupeFold(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}

// wikilinkRe matches [[target]] and [[target|alias]].
var wikilinkRe = regexp.MustCompile(`\[\[([^\[\]|]+?)(?:\|([^\[\]]+?))?\]\]`)

// wikiLinkTargets returns the link targets referenced by the body,
// deduplicated case-insensitively in order of first appearance.
func wikiLinkTargets(body string) []string {
	var targets []string
	for _, m := range wikilinkRe.FindAllStringSubmatch(body, -1) {
		targets = append(targets, strings.TrimSpace(m[1]))
	}
	return dedupeFold(targets)
}

// stripWikiLinks flattens [[wiki-links]] to their display text so the unit
// body reads as prose. Aliased links keep the alias.
func stripWikiLinks(body string) string {
	return wikilinkRe.ReplaceAllStringFunc(body, func(match string) string {
		parts := wikilinkRe.FindStringSubmatch(match)
		if alias := strings.TrimSpace(parts[2]); alias != "" {
			return alias
		}
		return strings.TrimSpace(parts[1])
	})
}
