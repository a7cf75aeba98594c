package glue

import (
	"fmt"
	"strings"

	tagexpressions "github.com/cucumber/tag-expressions/go/v6"
)

// TagPredicate decides whether a hook applies to a scenario's tag set.
// The expression language itself is the Cucumber tag-expression grammar;
// this package consumes it, it does not own it.
type TagPredicate interface {
	Matches(tags []string) bool
}

type tagExpression struct {
	source string
	expr   tagexpressions.Evaluatable
}

func (p *tagExpression) Matches(tags []string) bool {
	return p.expr.Evaluate(tags)
}

func (p *tagExpression) String() string { return p.source }

// ParseTagExpression parses a boolean tag expression such as
// "@smoke and not @wip" into a predicate. An empty expression yields nil,
// which every definition treats as match-all.
func ParseTagExpression(source string) (TagPredicate, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, nil
	}
	expr, err := tagexpressions.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("tag expression %q: %w", source, err)
	}
	return &tagExpression{source: source, expr: expr}, nil
}
