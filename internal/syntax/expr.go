package syntax

import (
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/lexer"
)

// assignOps recognizes the assignment-family operators as equal-precedence,
// right-associative (spec.md §4.4 expression kinds).
var assignOps = map[lexer.Kind]bool{
	lexer.Assign: true, lexer.AssignAdd: true, lexer.AssignSub: true,
	lexer.AssignMul: true, lexer.AssignDiv: true, lexer.AssignMod: true,
	lexer.AssignBitAnd: true, lexer.AssignBitOr: true, lexer.AssignBitXor: true,
	lexer.AssignShl: true, lexer.AssignShr: true, lexer.AssignUshl: true,
}

var exprBinaryPrecedence = map[lexer.Kind]int{
	lexer.Or:  1,
	lexer.And: 2,
	lexer.Bitor: 3,
	lexer.Bitxor: 4,
	lexer.Ampersand: 5,
	lexer.Equals: 6, lexer.NotEquals: 6,
	lexer.Lt: 7, lexer.Le: 7, lexer.Gt: 7, lexer.Ge: 7,
	lexer.Shl: 8, lexer.Shr: 8, lexer.Ushr: 8,
	lexer.Plus: 9, lexer.Minus: 9,
	lexer.Star: 10, lexer.Slash: 10, lexer.Percent: 10,
}

func (p *parser) parseExpr() *Node { return p.parseAssignExpr() }

func (p *parser) parseAssignExpr() *Node {
	start := p.curStart()
	left := p.parseTernary()
	if assignOps[p.peekKind()] {
		p.next()
		right := p.parseAssignExpr()
		return &Node{Kind: NodeAssignExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{left, right}}
	}
	return left
}

func (p *parser) parseTernary() *Node {
	start := p.curStart()
	cond := p.parseBinary(0)
	if p.atKind(lexer.Qmark) {
		p.next()
		then := p.parseAssignExpr()
		p.expect(lexer.Colon, "':'")
		els := p.parseAssignExpr()
		return &Node{Kind: NodeTernaryExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{cond, then, els}}
	}
	return cond
}

func (p *parser) parseBinary(minPrec int) *Node {
	start := p.curStart()
	left := p.parseUnary()
	for {
		prec, ok := exprBinaryPrecedence[p.peekKind()]
		if !ok || prec < minPrec {
			return left
		}
		p.next()
		right := p.parseBinary(prec + 1)
		left = &Node{Kind: NodeBinaryExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{left, right}}
	}
}

func (p *parser) parseUnary() *Node {
	start := p.curStart()
	switch p.peekKind() {
	case lexer.Not, lexer.Minus, lexer.Tilde, lexer.Increment, lexer.Decrement:
		p.next()
		operand := p.parseUnary()
		return &Node{Kind: NodeUnaryExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{operand}}
	case lexer.KwSizeof:
		p.next()
		operand := p.parseUnary()
		return &Node{Kind: NodeSizeofExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{operand}}
	case lexer.KwViewAs:
		return p.parseViewAs(start)
	case lexer.KwNew:
		return p.parseNew(start)
	default:
		return p.parsePostfix()
	}
}

func (p *parser) parseViewAs(start uint32) *Node {
	p.next()
	p.expect(lexer.Lt, "'<'")
	for !p.atEOF() && !p.atKind(lexer.Gt) {
		p.next()
	}
	p.expect(lexer.Gt, "'>'")
	p.expect(lexer.LParen, "'('")
	inner := p.parseAssignExpr()
	p.expect(lexer.RParen, "')'")
	return &Node{Kind: NodeViewAsExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{inner}}
}

func (p *parser) parseNew(start uint32) *Node {
	p.next()
	callee := p.parsePostfix()
	return &Node{Kind: NodeNewExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{callee}}
}

func (p *parser) parsePostfix() *Node {
	start := p.curStart()
	expr := p.parsePrimary()
	for {
		switch p.peekKind() {
		case lexer.LParen:
			expr = p.parseCall(start, expr)
		case lexer.LBracket:
			p.next()
			idx := p.parseAssignExpr()
			p.expect(lexer.RBracket, "']'")
			expr = &Node{Kind: NodeIndexExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{expr, idx}}
		case lexer.Dot:
			p.next()
			name, ok := p.expect(lexer.Identifier, "field name")
			field := &Node{Kind: NodeIdentExpr}
			if ok {
				field.Text = p.text(name)
				field.Range = name.Range
			}
			expr = &Node{Kind: NodeFieldExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{expr, field}}
		case lexer.Scope:
			p.next()
			name, ok := p.expect(lexer.Identifier, "scoped name")
			field := &Node{Kind: NodeIdentExpr}
			if ok {
				field.Text = p.text(name)
				field.Range = name.Range
			}
			expr = &Node{Kind: NodeScopeExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{expr, field}}
		case lexer.Increment, lexer.Decrement:
			p.next()
			expr = &Node{Kind: NodeUnaryExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{expr}}
		default:
			return expr
		}
	}
}

func (p *parser) parseCall(start uint32, callee *Node) *Node {
	p.next() // '('
	var args []*Node
	for !p.atEOF() && !p.atKind(lexer.RParen) {
		argStart := p.curStart()
		if p.atKind(lexer.Dot) {
			p.next()
			name, _ := p.expect(lexer.Identifier, "named argument")
			p.expect(lexer.Assign, "'='")
			val := p.parseAssignExpr()
			args = append(args, &Node{Kind: NodeNamedArg, Range: ids.ByteRange{Start: argStart, End: p.prevEnd()}, Text: p.text(name), Children: []*Node{val}})
		} else {
			args = append(args, p.parseAssignExpr())
		}
		if p.atKind(lexer.Comma) {
			p.next()
		}
	}
	p.expect(lexer.RParen, "')'")
	argList := &Node{Kind: NodeArgList, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: args}
	return &Node{Kind: NodeCallExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{callee, argList}}
}

func (p *parser) parsePrimary() *Node {
	start := p.curStart()
	switch p.peekKind() {
	case lexer.LParen:
		p.next()
		inner := p.parseAssignExpr()
		p.expect(lexer.RParen, "')'")
		return &Node{Kind: NodeParenExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{inner}}
	case lexer.KwThis:
		p.next()
		return &Node{Kind: NodeThisExpr, Range: ids.ByteRange{Start: start, End: p.prevEnd()}}
	case lexer.IntegerLiteral, lexer.HexLiteral, lexer.BinaryLiteral, lexer.OctodecimalLiteral,
		lexer.FloatLiteral, lexer.StringLiteral, lexer.CharLiteral, lexer.KwTrue, lexer.KwFalse, lexer.KwNull:
		t, _ := p.next()
		return &Node{Kind: NodeLiteralExpr, Range: t.Range, Text: p.text(t)}
	case lexer.Identifier:
		t, _ := p.next()
		return &Node{Kind: NodeIdentExpr, Range: t.Range, Text: p.text(t)}
	default:
		t, ok := p.next()
		if !ok {
			p.errorAt(start, "expected expression")
			return &Node{Kind: NodeError, Range: ids.ByteRange{Start: start, End: start}}
		}
		p.errorAt(t.Range.Start, "unexpected token in expression")
		return &Node{Kind: NodeError, Range: t.Range}
	}
}
