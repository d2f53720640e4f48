package tagexpr

import "courier/internal/target"

// Term is one OR member of a tag expression.
// Params: single tag or AND-group member list.
// Returns: one disjunct evaluated against a candidate tag set.
type Term struct {
	tag string
	all []string
}

// Tag builds a single-tag term.
// Params: literal tag.
// Returns: term matching when the tag is present.
func Tag(tag string) Term {
	return Term{tag: tag}
}

// AllOf builds an AND-group term.
// Params: tags that must all be present.
// Returns: term matching only complete subsets.
func AllOf(tags ...string) Term {
	return Term{all: tags}
}

// Expr is an OR-of-AND tag filter.
// Params: ordered term list; nil or empty means match-all.
// Returns: boolean routing filter for dispatch.
type Expr []Term

// MatchAll returns the unfiltered expression.
// Params: none.
// Returns: nil expression accepted by Matches as always-true.
func MatchAll() Expr {
	return nil
}

// ParseExpr splits a delimited tag filter into an OR expression.
// Params: raw value with comma/space/semicolon/pipe delimiters.
// Returns: single-tag OR terms; blank input yields match-all.
func ParseExpr(raw string) Expr {
	tags := target.SplitTags(raw)
	if len(tags) == 0 {
		return nil
	}
	expr := make(Expr, 0, len(tags))
	for _, tag := range tags {
		expr = append(expr, Tag(tag))
	}
	return expr
}

// ParseTerms builds an expression from repeated filter values.
// Params: raw values, one per filter occurrence; delimited tags inside
// one value must all be present (AND), while separate values alternate.
// Returns: OR-of-AND expression; blank input yields match-all.
func ParseTerms(values ...string) Expr {
	var expr Expr
	for _, value := range values {
		tags := target.SplitTags(value)
		switch len(tags) {
		case 0:
			continue
		case 1:
			expr = append(expr, Tag(tags[0]))
		default:
			expr = append(expr, AllOf(tags...))
		}
	}
	return expr
}

// Matches evaluates the expression against a candidate tag set.
// Params: candidate tags owned by one target.
// Returns: true when any term matches; nil/empty filter always matches.
func (e Expr) Matches(candidate map[string]struct{}) bool {
	if len(e) == 0 {
		return true
	}
	for _, term := range e {
		if term.matches(candidate) {
			return true
		}
	}
	return false
}

// MatchesTags evaluates the expression against a candidate tag list.
// Params: candidate tag slice.
// Returns: same result as Matches over the equivalent set.
func (e Expr) MatchesTags(tags []string) bool {
	return e.Matches(TagSet(tags))
}

// matches evaluates one term with exact string comparison.
// Params: candidate tag set.
// Returns: true when the single tag or every AND member is present.
func (t Term) matches(candidate map[string]struct{}) bool {
	if t.tag != "" {
		_, ok := candidate[t.tag]
		return ok
	}
	if len(t.all) == 0 {
		return false
	}
	for _, tag := range t.all {
		if _, ok := candidate[tag]; !ok {
			return false
		}
	}
	return true
}

// TagSet converts a tag slice into a membership set.
// Params: tag slice, possibly with duplicates.
// Returns: set keyed by exact tag strings.
func TagSet(tags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		set[tag] = struct{}{}
	}
	return set
}
