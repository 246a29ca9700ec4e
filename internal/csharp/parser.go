package csharp

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_csharp "github.com/tree-sitter/tree-sitter-c-sharp/bindings/go"

	"github.com/standardbeagle/lcr/internal/annotate"
	"github.com/standardbeagle/lcr/internal/debug"
	"github.com/standardbeagle/lcr/internal/document"
	lcrerrors "github.com/standardbeagle/lcr/internal/errors"
	"github.com/standardbeagle/lcr/internal/syntax"
)

// fieldNames are the grammar fields copied onto converted nodes. Only these
// are looked up because the binder and reducers never ask for others.
var fieldNames = []string{
	"name", "qualifier", "alias", "expression", "type", "function",
	"arguments", "left", "right", "body", "value", "condition",
	"parameters", "returns", "initializer", "operator",
}

// Parser converts C# source into syntax trees. It is safe for concurrent
// use; tree-sitter parsers are not, so each Parse borrows one from a pool.
type Parser struct {
	// Strict makes Parse fail on syntax errors instead of keeping ERROR nodes.
	Strict bool

	language *tree_sitter.Language
	pool     sync.Pool
}

// NewParser creates a parser for the C# grammar
func NewParser() *Parser {
	p := &Parser{language: tree_sitter.NewLanguage(tree_sitter_csharp.Language())}
	p.pool.New = func() any {
		tsp := tree_sitter.NewParser()
		if err := tsp.SetLanguage(p.language); err != nil {
			debug.LogParse("failed to set C# language: %v\n", err)
		}
		return tsp
	}
	return p
}

// Parse parses src into a Source Unit with an empty tag store. The text of
// the returned tree is always exactly src.
func (p *Parser) Parse(ctx context.Context, path string, src []byte) (*document.Unit, error) {
	return p.ParseWithTags(ctx, path, src, annotate.NewStore())
}

// ParseWithTags is Parse with a caller-supplied tag store
func (p *Parser) ParseWithTags(ctx context.Context, path string, src []byte, tags *annotate.Store) (*document.Unit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tsp := p.pool.Get().(*tree_sitter.Parser)
	defer p.pool.Put(tsp)

	tree := tsp.Parse(src, nil)
	if tree == nil {
		return nil, lcrerrors.NewParseError(path, 0, 0, "", fmt.Errorf("tree-sitter returned no tree"))
	}
	defer tree.Close()

	root := tree.RootNode()
	if p.Strict {
		if bad := firstError(root); bad != nil {
			pos := bad.StartPosition()
			near := string(src[bad.StartByte():min(bad.EndByte(), bad.StartByte()+16)])
			return nil, lcrerrors.NewParseError(path, int(pos.Row)+1, int(pos.Column)+1, near,
				fmt.Errorf("syntax error"))
		}
	}

	c := &converter{src: src}
	c.collect(root)
	c.assignTrivia()
	node, ok := c.build(root).(*syntax.Node)
	if !ok || node == nil {
		node = syntax.NewNode(CompilationUnit, nil, nil)
	}
	if len(c.leaves) == 0 {
		// Whitespace or comments only: keep the text on an empty end token.
		eof := syntax.NewToken("end_of_file", "", string(src), "")
		node = syntax.NewNode(node.Kind(), []syntax.Element{eof}, nil)
	}

	debug.LogParse("parsed %s: %d tokens\n", path, len(c.leaves))
	return document.New(path, node, tags), nil
}

// ParseString is a convenience wrapper used by tests and the MCP server
func (p *Parser) ParseString(ctx context.Context, path, src string) (*document.Unit, error) {
	return p.Parse(ctx, path, []byte(src))
}

func firstError(n *tree_sitter.Node) *tree_sitter.Node {
	if n.Kind() == string(ErrorKind) {
		return n
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		if bad := firstError(n.Child(i)); bad != nil {
			return bad
		}
	}
	return nil
}

type leaf struct {
	kind       string
	start, end uint
	leading    string
	trailing   string
}

// converter turns a tree-sitter tree into syntax elements in two passes:
// collect finds the leaves, build assembles nodes once trivia is known.
type converter struct {
	src    []byte
	leaves []leaf
	next   int
}

func isTrivia(n *tree_sitter.Node) bool {
	return n.Kind() == string(Comment) || n.StartByte() == n.EndByte()
}

func (c *converter) collect(n *tree_sitter.Node) {
	if n.ChildCount() == 0 {
		if !isTrivia(n) {
			c.leaves = append(c.leaves, leaf{kind: n.Kind(), start: n.StartByte(), end: n.EndByte()})
		}
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		c.collect(n.Child(i))
	}
}

// assignTrivia splits each gap between two tokens: up to and including the
// first newline trails the earlier token, the rest leads the later one.
func (c *converter) assignTrivia() {
	if len(c.leaves) == 0 {
		return
	}
	c.leaves[0].leading = string(c.src[:c.leaves[0].start])
	for i := 0; i < len(c.leaves)-1; i++ {
		gap := string(c.src[c.leaves[i].end:c.leaves[i+1].start])
		if nl := strings.IndexByte(gap, '\n'); nl >= 0 {
			c.leaves[i].trailing = gap[:nl+1]
			c.leaves[i+1].leading = gap[nl+1:]
		} else {
			c.leaves[i].trailing = gap
		}
	}
	last := &c.leaves[len(c.leaves)-1]
	last.trailing = string(c.src[last.end:])
}

func (c *converter) build(n *tree_sitter.Node) syntax.Element {
	if n.ChildCount() == 0 {
		if isTrivia(n) {
			return nil
		}
		l := c.leaves[c.next]
		c.next++
		return syntax.NewToken(syntax.Kind(l.kind), string(c.src[l.start:l.end]), l.leading, l.trailing)
	}

	fieldIDs := make(map[uintptr]string)
	for _, name := range fieldNames {
		if f := n.ChildByFieldName(name); f != nil {
			fieldIDs[f.Id()] = name
		}
	}

	children := make([]syntax.Element, 0, n.ChildCount())
	var fields map[string]int
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		el := c.build(child)
		if el == nil {
			continue
		}
		if name, ok := fieldIDs[child.Id()]; ok {
			if fields == nil {
				fields = make(map[string]int)
			}
			if _, dup := fields[name]; !dup {
				fields[name] = len(children)
			}
		}
		children = append(children, el)
	}
	if len(children) == 0 {
		return nil
	}
	return syntax.NewNode(syntax.Kind(n.Kind()), children, fields)
}
