package configsrc

import (
	"courier/internal/target"

	"github.com/pelletier/go-toml/v2"
)

// tomlDocument is the TOML configuration root shape.
// Params: global tag directive, group table, and URL table array.
// Returns: decoded document; groups use map-style overwrite merging.
type tomlDocument struct {
	Tag    string              `toml:"tag"`
	Groups map[string][]string `toml:"groups"`
	URLs   []tomlEntry         `toml:"urls"`
}

// tomlEntry is one [[urls]] table.
// Params: target URL and optional delimited tag list.
// Returns: one pending URL entry.
type tomlEntry struct {
	URL string `toml:"url"`
	Tag string `toml:"tag"`
}

// parseTOML parses the TOML configuration format.
// Params: document content.
// Returns: instantiated targets and map-style group definitions.
func (s *Source) parseTOML(content string) parseResult {
	var document tomlDocument
	if err := toml.Unmarshal([]byte(content), &document); err != nil {
		s.warn("config source toml parse failed", "source", s.name, "error", err.Error())
		return parseResult{}
	}

	rawGroups := make(map[string]groupTokens, len(document.Groups))
	for name, values := range document.Groups {
		var tokens []string
		for _, value := range values {
			tokens = append(tokens, target.SplitTags(value)...)
		}
		rawGroups[name] = tokens
	}

	return s.buildStructured(document.Tag, rawGroups, func(visit func(url, tag string)) {
		for _, entry := range document.URLs {
			visit(entry.URL, entry.Tag)
		}
	})
}
