// Package pycheck parses synthesized scripts with the tree-sitter Python
// grammar and reports the places the grammar could not make sense of.
// It never rejects a script; callers decide whether to warn.
package pycheck

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Issue is one syntax problem, 1-indexed.
type Issue struct {
	Line    int
	Column  int
	Missing bool   // the parser inserted a token that was not there
	Node    string // grammar node type at the issue
}

func (i Issue) String() string {
	if i.Missing {
		return fmt.Sprintf("%d:%d: missing %s", i.Line, i.Column, i.Node)
	}
	return fmt.Sprintf("%d:%d: syntax error", i.Line, i.Column)
}

// Check parses src and returns its syntax issues in source order.
func Check(ctx context.Context, src []byte) ([]Issue, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return nil, nil
	}

	var issues []Issue
	collect(root, &issues)
	return issues, nil
}

// Valid reports whether src parses without issues.
func Valid(ctx context.Context, src []byte) (bool, error) {
	issues, err := Check(ctx, src)
	return len(issues) == 0, err
}

func collect(node *sitter.Node, issues *[]Issue) {
	if node == nil {
		return
	}
	if node.IsError() || node.IsMissing() {
		p := node.StartPoint()
		*issues = append(*issues, Issue{
			Line:    int(p.Row) + 1,
			Column:  int(p.Column) + 1,
			Missing: node.IsMissing(),
			Node:    node.Type(),
		})
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collect(node.Child(i), issues)
	}
}
