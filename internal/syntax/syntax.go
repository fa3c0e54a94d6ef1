// Package syntax implements the parser adapter of spec.md §4.4: a
// hand-rolled recursive-descent parser over the lexer's token stream,
// since no SourcePawn grammar exists for the tree-sitter bindings available
// in this pack (see DESIGN.md). It exposes a closed NodeKind enumeration so
// the rest of the engine never depends on grammar internals, and preserves
// malformed input as NodeKindError nodes rather than aborting.
//
// Grounded on original_source/crates/syntax's "closed kind enum describing
// a syntax tree, with stable pointer-based references" shape (there TSKind
// wraps tree-sitter's node-kind ids; here NodeKind is the whole grammar
// since there is no external grammar to wrap).
package syntax

import "github.com/sourcepawn-studio/spls/internal/ids"

// NodeKind is the closed set of syntax node kinds spec.md §4.4 requires.
type NodeKind int

const (
	NodeError NodeKind = iota
	NodeRoot

	// Top-level items.
	NodeFunctionDecl
	NodeGlobalVarDecl
	NodeEnumDecl
	NodeEnumVariant
	NodeEnumStructDecl
	NodeEnumStructField
	NodeMethodmapDecl
	NodeMethodmapProperty
	NodeMethodmapPropertyAccessor
	NodeMethodmapMethod
	NodeTypedefDecl
	NodeTypesetDecl
	NodeTypesetAlternative
	NodeFunctagDecl
	NodeFuncenumDecl

	// Signature pieces.
	NodeParamList
	NodeParam
	NodeDeclarator

	// Statements.
	NodeBlock
	NodeIfStmt
	NodeWhileStmt
	NodeDoWhileStmt
	NodeForStmt
	NodeSwitchStmt
	NodeSwitchCase
	NodeReturnStmt
	NodeBreakStmt
	NodeContinueStmt
	NodeDeleteStmt
	NodeVarDeclStmt
	NodeExprStmt

	// Expressions.
	NodeIdentExpr
	NodeLiteralExpr
	NodeThisExpr
	NodeParenExpr
	NodeCallExpr
	NodeArgList
	NodeNamedArg
	NodeIndexExpr
	NodeFieldExpr
	NodeScopeExpr
	NodeUnaryExpr
	NodeBinaryExpr
	NodeAssignExpr
	NodeTernaryExpr
	NodeNewExpr
	NodeViewAsExpr
	NodeSizeofExpr
)

// Node is one syntax tree node. Leaf nodes (identifiers, literals,
// operators) carry no children; interior nodes carry no token text of
// their own, only Range (the byte span of everything beneath them) and
// Children.
type Node struct {
	Kind     NodeKind
	Range    ids.ByteRange
	Children []*Node
	// Text is set only on leaf nodes, where it is the exact source text —
	// avoids needing the preprocessed buffer to re-render an identifier or
	// literal's spelling.
	Text string
	// TypeText is set on NodeParam and NodeDeclarator when the declaration's
	// type token was itself a bare identifier (an enum-struct or methodmap
	// name, e.g. "Player g_player;") — the only case the resolver's
	// qualified-name lookup (spec.md §4.8: "first resolve a, obtain its
	// type") can determine without a full type checker. Builtin types
	// (int/float/bool/char/void) leave this empty.
	TypeText string
}

// Tree is a parsed syntax tree over one file's preprocessed text, plus the
// ERROR nodes collected instead of aborting (spec.md §4.4).
type Tree struct {
	Root   *Node
	Errors []Error
}

// Error is one syntax diagnostic recovered from a NodeError node.
type Error struct {
	Range   ids.ByteRange
	Message string
}

// AstPtr is a stable, content-independent reference to a node: its byte
// range. Spec.md §3 invariant 4 requires AstPtr to resolve to "the same
// syntactic node across any two parses of identical text" — true here
// because parsing identical text always produces identical ranges.
type AstPtr struct {
	Start uint32
	End   uint32
}

// PtrOf captures n's range as an AstPtr.
func PtrOf(n *Node) AstPtr {
	return AstPtr{Start: n.Range.Start, End: n.Range.End}
}

// Resolve descends tree looking for the node whose range exactly matches
// p, preferring the most specific (last-visited, smallest-range) match —
// used when p names a node nested arbitrarily deep (e.g. an expression).
func (p AstPtr) Resolve(tree *Tree) *Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	return resolveIn(tree.Root, p)
}

func resolveIn(n *Node, p AstPtr) *Node {
	if uint32(p.Start) < n.Range.Start || uint32(p.End) > n.Range.End {
		return nil
	}
	for _, c := range n.Children {
		if found := resolveIn(c, p); found != nil {
			return found
		}
	}
	if n.Range.Start == p.Start && n.Range.End == p.End {
		return n
	}
	return nil
}

// NodeAt descends tree to the innermost node containing byte offset pos —
// used by the resolver to find "the identifier under the cursor" (spec.md
// §4.8).
func NodeAt(tree *Tree, pos uint32) *Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	return deepestContaining(tree.Root, pos)
}

func deepestContaining(n *Node, pos uint32) *Node {
	if !n.Range.ContainsInclusive(pos) {
		return nil
	}
	for _, c := range n.Children {
		if found := deepestContaining(c, pos); found != nil {
			return found
		}
	}
	return n
}

// PathTo returns the chain of nodes from the root to the innermost node
// containing byte offset pos, root first. The resolver uses this to inspect
// a node's syntactic parent — distinguishing field access, method calls,
// scope access, and constructor calls from a free identifier (spec.md
// §4.8) — and to find the nearest enclosing function/method by scanning the
// chain for a NodeFunctionDecl.
func PathTo(tree *Tree, pos uint32) []*Node {
	if tree == nil || tree.Root == nil {
		return nil
	}
	var path []*Node
	n := tree.Root
	for {
		if !n.Range.ContainsInclusive(pos) {
			return path
		}
		path = append(path, n)
		var next *Node
		for _, c := range n.Children {
			if c.Range.ContainsInclusive(pos) {
				next = c
				break
			}
		}
		if next == nil {
			return path
		}
		n = next
	}
}
