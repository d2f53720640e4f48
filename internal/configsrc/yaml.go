package configsrc

import (
	"fmt"

	"courier/internal/tagexpr"
	"courier/internal/target"

	"gopkg.in/yaml.v3"
)

// yamlDocument is the YAML configuration root shape.
// Params: global tag directive, group map, and URL list.
// Returns: decoded document; groups use map-style overwrite merging.
type yamlDocument struct {
	Tag    string                 `yaml:"tag"`
	Groups map[string]groupTokens `yaml:"groups"`
	URLs   []yamlEntry            `yaml:"urls"`
}

// groupTokens accepts either a delimited scalar or a token sequence.
// Params: YAML node in `a, b` or `[a, b]` form.
// Returns: flat token list.
type groupTokens []string

// UnmarshalYAML decodes scalar or sequence group member syntax.
// Params: YAML node.
// Returns: token list or decode error.
func (g *groupTokens) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var raw string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		*g = target.SplitTags(raw)
		return nil
	case yaml.SequenceNode:
		var raw []string
		if err := node.Decode(&raw); err != nil {
			return err
		}
		var tokens []string
		for _, value := range raw {
			tokens = append(tokens, target.SplitTags(value)...)
		}
		*g = tokens
		return nil
	default:
		return fmt.Errorf("groups entry must be a string or a list (line %d)", node.Line)
	}
}

// yamlEntry accepts either a bare URL scalar or a url/tag mapping.
// Params: YAML node in `schema://...` or `{url: ..., tag: ...}` form.
// Returns: one pending URL entry.
type yamlEntry struct {
	URL string
	Tag string
}

// UnmarshalYAML decodes scalar or mapping URL entry syntax.
// Params: YAML node.
// Returns: entry fields or decode error.
func (e *yamlEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&e.URL)
	case yaml.MappingNode:
		var decoded struct {
			URL string `yaml:"url"`
			Tag string `yaml:"tag"`
		}
		if err := node.Decode(&decoded); err != nil {
			return err
		}
		e.URL = decoded.URL
		e.Tag = decoded.Tag
		return nil
	default:
		return fmt.Errorf("urls entry must be a string or a mapping (line %d)", node.Line)
	}
}

// parseYAML parses the YAML configuration format.
// Params: document content.
// Returns: instantiated targets and map-style group definitions.
func (s *Source) parseYAML(content string) parseResult {
	var document yamlDocument
	if err := yaml.Unmarshal([]byte(content), &document); err != nil {
		s.warn("config source yaml parse failed", "source", s.name, "error", err.Error())
		return parseResult{}
	}
	return s.buildStructured(document.Tag, document.Groups, func(visit func(url, tag string)) {
		for _, entry := range document.URLs {
			visit(entry.URL, entry.Tag)
		}
	})
}

// buildStructured assembles targets for map-shaped documents.
// Params: global tag directive, raw group map, and entry walker.
// Returns: parse result shared by the YAML and TOML paths.
func (s *Source) buildStructured(globalTag string, rawGroups map[string]groupTokens, each func(func(url, tag string))) parseResult {
	var groups tagexpr.GroupDefs
	if len(rawGroups) > 0 {
		mapped := tagexpr.MapGroups{}
		for name, tokens := range rawGroups {
			kept := make([]string, 0, len(tokens))
			for _, token := range tokens {
				if token == name {
					// A group bound to itself is a no-op.
					continue
				}
				kept = append(kept, token)
			}
			mapped[name] = kept
		}
		groups = mapped
	}

	defaultTags := target.SplitTags(globalTag)
	result := parseResult{groups: groups}
	each(func(url, tag string) {
		entryTags := target.SplitTags(tag)
		if len(entryTags) == 0 {
			entryTags = defaultTags
		}
		if instance := s.instantiate(url, entryTags, groups); instance != nil {
			result.targets = append(result.targets, instance)
		}
	})
	return result
}
