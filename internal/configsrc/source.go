// Package configsrc loads notification targets from tagged configuration
// documents. A source parses lazily, caches its results, and exposes the
// tag-group aliases its document defined.
package configsrc

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"courier/internal/clock"
	"courier/internal/registry"
	"courier/internal/tagexpr"
	"courier/internal/target"
)

// Syntax selects the configuration document format.
// Params: text/yaml/toml constants.
// Returns: parser selection key.
type Syntax string

const (
	// SyntaxText parses line-oriented `tags=url` documents.
	SyntaxText Syntax = "text"
	// SyntaxYAML parses YAML documents with urls/tag/groups directives.
	SyntaxYAML Syntax = "yaml"
	// SyntaxTOML parses TOML documents with urls/tag/groups directives.
	SyntaxTOML Syntax = "toml"
)

// DetectSyntax guesses document syntax from a file extension.
// Params: file path.
// Returns: syntax constant; unknown extensions fall back to text.
func DetectSyntax(path string) Syntax {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return SyntaxYAML
	case ".toml":
		return SyntaxTOML
	default:
		return SyntaxText
	}
}

// parseResult carries one parsed document.
// Params: instantiated targets and extracted group definitions.
// Returns: cacheable parse output.
type parseResult struct {
	targets []target.Target
	groups  tagexpr.GroupDefs
}

// Source is one named, tagged, lazily parsed target producer.
// Params: reader, syntax, registry for URL instantiation, and cache policy.
// Returns: multi-entry container pluggable into a flattened collection.
type Source struct {
	name      string
	tags      []string
	syntax    Syntax
	read      func() (string, error)
	registry  *registry.Registry
	logger    *slog.Logger
	clock     clock.Clock
	maxAge    time.Duration
	recursion int
	baseDir   string

	mu       sync.Mutex
	parsed   bool
	parsedAt time.Time
	cached   []target.Target
	groups   tagexpr.GroupDefs
}

// SourceOption mutates optional source settings.
// Params: source under construction.
// Returns: applied option side effect.
type SourceOption func(*Source)

// WithTags sets source-level routing tags.
// Params: tag list filtering whether this source contributes.
// Returns: option assigning tags.
func WithTags(tags ...string) SourceOption {
	return func(s *Source) { s.tags = tags }
}

// WithSyntax overrides the detected document syntax.
// Params: syntax constant.
// Returns: option forcing the parser.
func WithSyntax(syntax Syntax) SourceOption {
	return func(s *Source) { s.syntax = syntax }
}

// WithLogger attaches a logger for parse diagnostics.
// Params: slog logger.
// Returns: option attaching the logger.
func WithLogger(logger *slog.Logger) SourceOption {
	return func(s *Source) { s.logger = logger }
}

// WithClock overrides the cache-expiry clock.
// Params: clock implementation.
// Returns: option used by deterministic tests.
func WithClock(c clock.Clock) SourceOption {
	return func(s *Source) { s.clock = c }
}

// WithMaxAge bounds how long parsed results stay cached.
// Params: cache lifetime; zero keeps results until Refresh.
// Returns: option setting cache expiry.
func WithMaxAge(age time.Duration) SourceOption {
	return func(s *Source) { s.maxAge = age }
}

// WithRecursion allows text include directives up to a depth.
// Params: maximum include depth; zero ignores includes.
// Returns: option enabling nested documents.
func WithRecursion(depth int) SourceOption {
	return func(s *Source) { s.recursion = depth }
}

// NewFileSource creates a source reading one configuration file.
// Params: registry for URL instantiation, file path, and options.
// Returns: lazily parsed source; the file is not read until needed.
func NewFileSource(reg *registry.Registry, path string, opts ...SourceOption) *Source {
	source := &Source{
		name:     path,
		syntax:   DetectSyntax(path),
		registry: reg,
		clock:    clock.RealClock{},
		baseDir:  filepath.Dir(path),
		read: func() (string, error) {
			raw, err := os.ReadFile(path)
			if err != nil {
				return "", fmt.Errorf("read config source %q: %w", path, err)
			}
			return string(raw), nil
		},
	}
	for _, opt := range opts {
		opt(source)
	}
	return source
}

// NewContentSource creates a source over in-memory document content.
// Params: registry for URL instantiation, name, syntax, content, options.
// Returns: lazily parsed source.
func NewContentSource(reg *registry.Registry, name string, syntax Syntax, content string, opts ...SourceOption) *Source {
	source := &Source{
		name:     name,
		syntax:   syntax,
		registry: reg,
		clock:    clock.RealClock{},
		read:     func() (string, error) { return content, nil },
	}
	for _, opt := range opts {
		opt(source)
	}
	return source
}

// Name returns the source identifier.
// Params: none.
// Returns: file path or registered name.
func (s *Source) Name() string {
	return s.name
}

// Tags returns source-level routing tags.
// Params: none.
// Returns: tag list configured for the whole source.
func (s *Source) Tags() []string {
	return s.tags
}

// Servers returns the current target list, parsing on first use.
// Params: none.
// Returns: cached targets; parse failures yield an empty list, never panic.
func (s *Source) Servers() []target.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureParsed()
	return s.cached
}

// Groups returns the tag-group definitions the document declared.
// Params: none.
// Returns: group defs or nil before any groups were parsed.
func (s *Source) Groups() tagexpr.GroupDefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureParsed()
	return s.groups
}

// Refresh drops cached results forcing a re-parse on next access.
// Params: none.
// Returns: cache invalidation side effect.
func (s *Source) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsed = false
	s.cached = nil
	s.groups = nil
}

// Pop removes and returns the target at one local index.
// Params: local index within this source's current results.
// Returns: removed target or an out-of-range error.
func (s *Source) Pop(index int) (target.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureParsed()
	if index < 0 || index >= len(s.cached) {
		return nil, fmt.Errorf("config source %q: index %d out of range", s.name, index)
	}
	entry := s.cached[index]
	s.cached = append(s.cached[:index], s.cached[index+1:]...)
	return entry, nil
}

// Len returns the current number of parsed targets.
// Params: none.
// Returns: live length after lazy parse.
func (s *Source) Len() int {
	return len(s.Servers())
}

// ensureParsed loads and parses the document once. Caller holds mu.
// Params: none.
// Returns: cached targets and groups populated.
func (s *Source) ensureParsed() {
	if s.parsed && !s.expired() {
		return
	}
	s.parsed = true
	s.parsedAt = s.clock.Now()
	s.cached = nil
	s.groups = nil

	content, err := s.read()
	if err != nil {
		s.warn("config source read failed", "source", s.name, "error", err.Error())
		return
	}

	var result parseResult
	switch s.syntax {
	case SyntaxYAML:
		result = s.parseYAML(content)
	case SyntaxTOML:
		result = s.parseTOML(content)
	default:
		result = s.parseText(content, s.recursion)
	}
	s.cached = result.targets
	s.groups = result.groups
}

// expired reports whether cached results outlived the max age.
// Params: none.
// Returns: true when a re-parse is due.
func (s *Source) expired() bool {
	if s.maxAge <= 0 {
		return false
	}
	return s.clock.Now().Sub(s.parsedAt) > s.maxAge
}

// instantiate builds one target from a URL with config-level tags.
// Params: raw URL, per-entry tags, and extracted group definitions.
// Returns: wrapped target or nil on soft failure (logged, line skipped).
func (s *Source) instantiate(rawURL string, entryTags []string, groups tagexpr.GroupDefs) target.Target {
	instance, err := s.registry.Instantiate(rawURL)
	if err != nil {
		s.warn("config source entry skipped", "source", s.name, "error", err.Error())
		return nil
	}

	tags := entryTags
	if len(tags) == 0 {
		// Untagged entries inherit the source-level tags.
		tags = s.tags
	}
	if len(tags) == 0 {
		// URL-level tags still participate in group annotation.
		tags = instance.Tags()
	}
	tags = applyGroups(groups, tags)
	return target.Retag(instance, tags)
}

// applyGroups annotates entry tags with matching group names.
// Params: group definitions and entry tag list.
// Returns: tags extended with every group whose expanded members
// intersect the entry tags, so filters may address the group directly.
func applyGroups(groups tagexpr.GroupDefs, tags []string) []string {
	if groups == nil || len(tags) == 0 {
		return tags
	}
	have := tagexpr.TagSet(tags)
	result := slices.Clone(tags)
	for _, name := range groups.Names() {
		if _, ok := have[name]; ok {
			continue
		}
		for member := range tagexpr.Expand(groups, name) {
			if _, ok := have[member]; ok {
				result = append(result, name)
				break
			}
		}
	}
	return result
}

// warn logs one source diagnostic when a logger is attached.
// Params: message and key/value attrs.
// Returns: nothing.
func (s *Source) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
