package repository

import (
	"fmt"
	"strings"
	"unicode"
)

// LanguageSQL2 is the only query language sessions accept.
const LanguageSQL2 = "JCR-SQL2"

// NodeTypeBase matches every node regardless of primary type.
const NodeTypeBase = "nt:base"

// EscapeLiteral doubles every single quote so s can sit inside a quoted literal.
func EscapeLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// QuoteLiteral returns s as a quoted JCR-SQL2 string literal.
func QuoteLiteral(s string) string {
	return "'" + EscapeLiteral(s) + "'"
}

// Constraint is a node predicate from a WHERE clause.
type Constraint interface {
	Match(n *Node) bool
	String() string
}

// And matches when every constraint matches.
type And []Constraint

func (a And) Match(n *Node) bool {
	for _, c := range a {
		if !c.Match(n) {
			return false
		}
	}
	return true
}

func (a And) String() string {
	parts := make([]string, len(a))
	for i, c := range a {
		if _, ok := c.(Or); ok {
			parts[i] = "(" + c.String() + ")"
		} else {
			parts[i] = c.String()
		}
	}
	return strings.Join(parts, " AND ")
}

// Or matches when any constraint matches.
type Or []Constraint

func (o Or) Match(n *Node) bool {
	for _, c := range o {
		if c.Match(n) {
			return true
		}
	}
	return false
}

func (o Or) String() string {
	parts := make([]string, len(o))
	for i, c := range o {
		if _, ok := c.(And); ok {
			parts[i] = "(" + c.String() + ")"
		} else {
			parts[i] = c.String()
		}
	}
	return strings.Join(parts, " OR ")
}

// Descendant matches nodes strictly below Root.
type Descendant struct {
	Root string
}

func (d Descendant) Match(n *Node) bool {
	return IsDescendant(d.Root, n.Path)
}

func (d Descendant) String() string {
	return "ISDESCENDANTNODE([" + d.Root + "])"
}

// PropertyEquals matches nodes whose property, formatted as a string, equals Value.
type PropertyEquals struct {
	Name  string
	Value string
}

func (p PropertyEquals) Match(n *Node) bool {
	if _, ok := n.Property(p.Name); !ok {
		return false
	}
	return n.StringProperty(p.Name) == p.Value
}

func (p PropertyEquals) String() string {
	return "[" + p.Name + "]=" + QuoteLiteral(p.Value)
}

// Statement is a parsed SELECT * FROM [type] WHERE ... query.
type Statement struct {
	NodeType string
	Where    Constraint
}

// Match reports whether n satisfies the node type and WHERE clause.
func (s *Statement) Match(n *Node) bool {
	if s.NodeType != NodeTypeBase && s.NodeType != n.PrimaryType {
		return false
	}
	return s.Where == nil || s.Where.Match(n)
}

func (s *Statement) String() string {
	q := "SELECT * FROM [" + s.NodeType + "]"
	if s.Where != nil {
		q += " WHERE " + s.Where.String()
	}
	return q
}

// DescendantRoots returns the ISDESCENDANTNODE roots the statement requires a
// node to be under, or nil when the WHERE clause does not restrict the tree.
func (s *Statement) DescendantRoots() []string {
	return requiredRoots(s.Where)
}

func requiredRoots(c Constraint) []string {
	switch c := c.(type) {
	case Descendant:
		return []string{c.Root}
	case Or:
		var roots []string
		for _, child := range c {
			r := requiredRoots(child)
			if r == nil {
				return nil
			}
			roots = append(roots, r...)
		}
		return roots
	case And:
		for _, child := range c {
			if r := requiredRoots(child); r != nil {
				return r
			}
		}
	}
	return nil
}

// ParseStatement parses the supported JCR-SQL2 subset:
//
//	SELECT * FROM [type] [WHERE constraint]
//
// where a constraint combines ISDESCENDANTNODE([path]) and [prop]='value'
// with AND, OR and parentheses.
func ParseStatement(q string) (*Statement, error) {
	toks, err := lex(q)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}

	if err := p.keyword("SELECT"); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokStar); err != nil {
		return nil, err
	}
	if err := p.keyword("FROM"); err != nil {
		return nil, err
	}
	nodeType, err := p.expect(tokBracket)
	if err != nil {
		return nil, err
	}

	stmt := &Statement{NodeType: nodeType.text}
	if p.peekKeyword("WHERE") {
		p.next()
		if stmt.Where, err = p.or(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(tokEOF); err != nil {
		return nil, err
	}
	return stmt, nil
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokBracket
	tokString
	tokLParen
	tokRParen
	tokEquals
	tokStar
)

func (k tokenKind) String() string {
	switch k {
	case tokIdent:
		return "identifier"
	case tokBracket:
		return "bracketed name"
	case tokString:
		return "string literal"
	case tokLParen:
		return "'('"
	case tokRParen:
		return "')'"
	case tokEquals:
		return "'='"
	case tokStar:
		return "'*'"
	default:
		return "end of statement"
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

func lex(q string) ([]token, error) {
	var toks []token
	for i := 0; i < len(q); {
		c := q[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "(", i})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")", i})
			i++
		case c == '=':
			toks = append(toks, token{tokEquals, "=", i})
			i++
		case c == '*':
			toks = append(toks, token{tokStar, "*", i})
			i++
		case c == '[':
			end := strings.IndexByte(q[i+1:], ']')
			if end < 0 {
				return nil, fmt.Errorf("%w: unterminated name at %d", ErrInvalidStatement, i)
			}
			toks = append(toks, token{tokBracket, q[i+1 : i+1+end], i})
			i += end + 2
		case c == '\'':
			var sb strings.Builder
			j := i + 1
			for {
				if j >= len(q) {
					return nil, fmt.Errorf("%w: unterminated literal at %d", ErrInvalidStatement, i)
				}
				if q[j] == '\'' {
					if j+1 < len(q) && q[j+1] == '\'' {
						sb.WriteByte('\'')
						j += 2
						continue
					}
					break
				}
				sb.WriteByte(q[j])
				j++
			}
			toks = append(toks, token{tokString, sb.String(), i})
			i = j + 1
		case isIdentStart(c):
			j := i
			for j < len(q) && (isIdentStart(q[j]) || unicode.IsDigit(rune(q[j]))) {
				j++
			}
			toks = append(toks, token{tokIdent, q[i:j], i})
			i = j
		default:
			return nil, fmt.Errorf("%w: unexpected %q at %d", ErrInvalidStatement, c, i)
		}
	}
	return append(toks, token{tokEOF, "", len(q)}), nil
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind tokenKind) (token, error) {
	t := p.next()
	if t.kind != kind {
		return t, fmt.Errorf("%w: expected %s at %d, found %s", ErrInvalidStatement, kind, t.pos, t.kind)
	}
	return t, nil
}

func (p *parser) peekKeyword(kw string) bool {
	t := p.peek()
	return t.kind == tokIdent && strings.EqualFold(t.text, kw)
}

func (p *parser) keyword(kw string) error {
	if !p.peekKeyword(kw) {
		t := p.peek()
		return fmt.Errorf("%w: expected %s at %d", ErrInvalidStatement, kw, t.pos)
	}
	p.next()
	return nil
}

func (p *parser) or() (Constraint, error) {
	first, err := p.and()
	if err != nil {
		return nil, err
	}
	terms := Or{first}
	for p.peekKeyword("OR") {
		p.next()
		c, err := p.and()
		if err != nil {
			return nil, err
		}
		terms = append(terms, c)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return terms, nil
}

func (p *parser) and() (Constraint, error) {
	first, err := p.primary()
	if err != nil {
		return nil, err
	}
	terms := And{first}
	for p.peekKeyword("AND") {
		p.next()
		c, err := p.primary()
		if err != nil {
			return nil, err
		}
		terms = append(terms, c)
	}
	if len(terms) == 1 {
		return first, nil
	}
	return terms, nil
}

func (p *parser) primary() (Constraint, error) {
	t := p.peek()
	switch {
	case t.kind == tokLParen:
		p.next()
		c, err := p.or()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return c, nil

	case p.peekKeyword("ISDESCENDANTNODE"):
		p.next()
		if _, err := p.expect(tokLParen); err != nil {
			return nil, err
		}
		root, err := p.expect(tokBracket)
		if err != nil {
			return nil, err
		}
		clean, err := CleanPath(root.text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidStatement, err)
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return Descendant{Root: clean}, nil

	case t.kind == tokBracket:
		p.next()
		if _, err := p.expect(tokEquals); err != nil {
			return nil, err
		}
		value, err := p.expect(tokString)
		if err != nil {
			return nil, err
		}
		return PropertyEquals{Name: t.text, Value: value.text}, nil
	}
	return nil, fmt.Errorf("%w: unexpected %s at %d", ErrInvalidStatement, t.kind, t.pos)
}
