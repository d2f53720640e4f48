package target

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	schemaPattern    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*$`)
	tagSplitPattern  = regexp.MustCompile(`[\s,;|]+`)
	errEmptyURL      = fmt.Errorf("target URL is empty")
	errMissingSchema = fmt.Errorf("target URL has no schema")
)

// ParsedURL carries decomposed target URL tokens.
// Params: schema, authority, path, and query-driven overrides.
// Returns: pure parse result with no I/O side effects.
type ParsedURL struct {
	Schema   string
	User     string
	Password string
	Host     string
	Port     string
	Path     string
	Query    url.Values

	// Tags holds routing tags pulled from the ?tag= query override.
	Tags []string
	// Format holds the ?format= override when present.
	Format Format
	// HasFormat reports whether the URL carried a format override.
	HasFormat bool

	raw string
}

// Raw returns the original URL string this parse came from.
// Params: none.
// Returns: unmodified input URL.
func (u *ParsedURL) Raw() string {
	return u.raw
}

// ParseURL decomposes one target URL without touching the network.
// Params: raw URL string in schema://... form.
// Returns: parsed token set or parse error.
func ParseURL(raw string) (*ParsedURL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errEmptyURL
	}

	schema, _, found := strings.Cut(trimmed, "://")
	if !found || !schemaPattern.MatchString(schema) {
		return nil, fmt.Errorf("%w: %q", errMissingSchema, raw)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse target URL %q: %w", raw, err)
	}

	result := &ParsedURL{
		Schema: strings.ToLower(parsed.Scheme),
		Host:   parsed.Hostname(),
		Port:   parsed.Port(),
		Path:   parsed.Path,
		Query:  parsed.Query(),
		raw:    trimmed,
	}
	if parsed.User != nil {
		result.User = parsed.User.Username()
		result.Password, _ = parsed.User.Password()
	}

	result.Tags = SplitTags(result.Query.Get("tag"))
	if rawFormat := result.Query.Get("format"); rawFormat != "" {
		format, ok := ParseFormat(rawFormat)
		if !ok {
			return nil, fmt.Errorf("unsupported format %q in URL %q", rawFormat, raw)
		}
		result.Format = format
		result.HasFormat = true
	}
	return result, nil
}

// SplitTags splits one delimited tag expression into clean tags.
// Params: raw value with comma/space/semicolon/pipe delimiters.
// Returns: ordered tag list without blanks or duplicates.
func SplitTags(raw string) []string {
	var (
		tags []string
		seen = map[string]struct{}{}
	)
	for _, token := range tagSplitPattern.Split(raw, -1) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		tags = append(tags, token)
	}
	return tags
}

// normalizeToken lowers and trims one enum-ish config token.
// Params: raw configured value.
// Returns: comparable token.
func normalizeToken(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
