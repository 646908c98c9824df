package config

import (
	"fmt"

	"github.com/yinetd/yinetd/internal/errs"
)

// parseFile parses the whole config document into an ordered list of
// top-level blocks. Position of `default` relative to `service` blocks
// is not enforced here — that is a two-pass concern handled by the
// aggregator.
func parseFile(src string) ([]block, error) {
	s := newScanner(src)
	var blocks []block

	s.skipWS()
	for !s.eof() {
		b, err := parseTop(s)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
		s.skipWS()
	}

	return blocks, nil
}

func parseTop(s *scanner) (block, error) {
	startLine, startCol := s.here()

	kw, kwSpan, ok := s.readIdent()
	if !ok {
		return block{}, errs.NewParse(fmt.Sprintf("expected %q or %q", "default", "service"), spanAt(s))
	}

	switch kw {
	case "default":
		s.skipWS()
		props, bodyEndSpan, err := parseBody(s)
		if err != nil {
			return block{}, err
		}
		_ = kwSpan
		return block{
			kind:  "default",
			props: props,
			span:  joinSpan(startLine, startCol, bodyEndSpan),
		}, nil

	case "service":
		if !isHSpaceOrWS(s) {
			return block{}, errs.NewParse("expected whitespace after \"service\"", kwSpan)
		}
		s.skipWS()
		name, nameSpan, ok := s.readIdent()
		if !ok {
			return block{}, errs.NewParse("expected service name", spanAt(s))
		}
		s.skipWS()
		props, bodyEndSpan, err := parseBody(s)
		if err != nil {
			return block{}, err
		}
		return block{
			kind:     "service",
			name:     name,
			nameSpan: nameSpan,
			props:    props,
			span:     joinSpan(startLine, startCol, bodyEndSpan),
		}, nil

	default:
		return block{}, errs.NewParse(fmt.Sprintf("unexpected token %q, expected %q or %q", kw, "default", "service"), kwSpan)
	}
}

func isHSpaceOrWS(s *scanner) bool {
	r := s.peek()
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '#'
}

// parseBody parses "{" { WS } { property } "}" and returns the parsed
// properties plus the span of the closing brace (used to compute the
// whole-block span for MissingRequiredOption diagnostics).
func parseBody(s *scanner) ([]property, errs.Span, error) {
	if s.eof() || s.peek() != '{' {
		return nil, errs.Span{}, errs.NewParse("expected '{'", spanAt(s))
	}
	s.advance()
	s.skipWS()

	var props []property
	for {
		if s.eof() {
			return nil, errs.Span{}, errs.NewParse("unexpected end of file, expected '}'", spanAt(s))
		}
		if s.peek() == '}' {
			closeLine, closeCol := s.here()
			s.advance()
			return props, errs.Span{StartLine: closeLine, StartCol: closeCol, EndLine: closeLine, EndCol: closeCol + 1, Text: "}"}, nil
		}

		prop, err := parseProperty(s)
		if err != nil {
			return nil, errs.Span{}, err
		}
		props = append(props, prop)
		s.skipWS()
	}
}

func parseProperty(s *scanner) (property, error) {
	name, nameSpan, ok := s.readIdent()
	if !ok {
		return property{}, errs.NewParse("expected option name", spanAt(s))
	}
	s.skipWS()
	if s.eof() || s.peek() != '=' {
		return property{}, errs.NewParse(fmt.Sprintf("expected '=' after option %q", name), spanAt(s))
	}
	s.advance()

	value, valueSpan := s.readValue()

	return property{
		name:      name,
		nameSpan:  nameSpan,
		value:     value,
		valueSpan: valueSpan,
	}, nil
}

func spanAt(s *scanner) errs.Span {
	line, col := s.here()
	text := ""
	if !s.eof() {
		text = string(s.peek())
	}
	return errs.Span{StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1, Text: text}
}

func joinSpan(startLine, startCol int, last errs.Span) errs.Span {
	return errs.Span{
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   last.EndLine,
		EndCol:    last.EndCol,
	}
}
