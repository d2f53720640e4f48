package configsrc

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"courier/internal/tagexpr"
	"courier/internal/target"
)

var urlLinePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// textEntry is one tagged URL line from a text document.
// Params: entry tags and raw URL.
// Returns: pending instantiation record.
type textEntry struct {
	tags []string
	url  string
}

// textDocument is the assembled parse state of a text config tree.
// Params: URL entries and ordered group bindings in document order.
// Returns: merged view across include directives.
type textDocument struct {
	entries []textEntry
	groups  tagexpr.OrderedGroups
}

// parseText parses the line-oriented text configuration format.
// Params: document content and remaining include depth.
// Returns: instantiated targets and union-merged ordered groups.
//
// Grammar per line: `# comment`, `; comment`, `schema://url`,
// `tag1,tag2=schema://url`, `group = tag, other`, `include <path>`.
func (s *Source) parseText(content string, depth int) parseResult {
	document := s.parseTextDocument(content, depth)

	var groups tagexpr.GroupDefs
	if len(document.groups) > 0 {
		groups = document.groups
	}

	result := parseResult{groups: groups}
	for _, entry := range document.entries {
		if instance := s.instantiate(entry.url, entry.tags, groups); instance != nil {
			result.targets = append(result.targets, instance)
		}
	}
	return result
}

// parseTextDocument walks lines accumulating entries and group bindings.
// Params: document content and remaining include depth.
// Returns: document state with includes already merged in.
func (s *Source) parseTextDocument(content string, depth int) textDocument {
	var document textDocument

	for number, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		if included, ok := strings.CutPrefix(line, "include "); ok {
			s.mergeInclude(&document, strings.TrimSpace(included), depth)
			continue
		}

		if urlLinePattern.MatchString(line) {
			document.entries = append(document.entries, textEntry{url: line})
			continue
		}

		lhs, rhs, found := strings.Cut(line, "=")
		if !found {
			s.warn("config source line is unparseable",
				"source", s.name, "line", number+1)
			continue
		}
		rhs = strings.TrimSpace(rhs)
		lhsTokens := target.SplitTags(lhs)

		if urlLinePattern.MatchString(rhs) {
			document.entries = append(document.entries, textEntry{tags: lhsTokens, url: rhs})
			continue
		}

		// Group assignment: every lhs token names a group accumulating
		// the rhs tokens; repeats union-merge in document order.
		rhsTokens := target.SplitTags(rhs)
		if len(lhsTokens) == 0 || len(rhsTokens) == 0 {
			// All-blank side; the binding is inert, not an error.
			s.warn("config source assignment has no usable tokens",
				"source", s.name, "line", number+1)
			continue
		}
		for _, name := range lhsTokens {
			tokens := make([]string, 0, len(rhsTokens))
			for _, token := range rhsTokens {
				if token == name {
					// A group bound to itself is a no-op.
					continue
				}
				tokens = append(tokens, token)
			}
			document.groups = append(document.groups, tagexpr.GroupBinding{
				Name:   name,
				Tokens: tokens,
			})
		}
	}
	return document
}

// mergeInclude loads one include directive into the document.
// Params: document under construction, include path, remaining depth.
// Returns: included entries and groups appended in order.
func (s *Source) mergeInclude(document *textDocument, path string, depth int) {
	if depth <= 0 {
		s.warn("config source include ignored; recursion disabled",
			"source", s.name, "include", path)
		return
	}
	if path == "" {
		return
	}
	if !filepath.IsAbs(path) && s.baseDir != "" {
		path = filepath.Join(s.baseDir, path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		s.warn("config source include failed",
			"source", s.name, "include", path, "error", err.Error())
		return
	}
	included := s.parseTextDocument(string(raw), depth-1)
	document.entries = append(document.entries, included.entries...)
	document.groups = append(document.groups, included.groups...)
}
