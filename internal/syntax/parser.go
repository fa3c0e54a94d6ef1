package syntax

import (
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/lexer"
)

// Parse builds a Tree from preprocessed source text. It never panics on
// malformed input: unrecognized constructs become NodeError nodes and a
// collected Error, and the parser resynchronizes at the next statement or
// declaration boundary (spec.md §4.4).
func Parse(src string) *Tree {
	toks := lexer.Tokenize(src)
	filtered := make([]lexer.Token, 0, len(toks))
	for _, t := range toks {
		if t.Kind.IsTrivia() || t.Kind == lexer.Newline {
			continue
		}
		filtered = append(filtered, t)
	}
	p := &parser{toks: filtered, src: src}
	root := p.parseRoot(uint32(len(src)))
	return &Tree{Root: root, Errors: p.errs}
}

type parser struct {
	toks []lexer.Token
	src  string
	pos  int
	errs []Error
}

func (p *parser) atEOF() bool { return p.pos >= len(p.toks) }

func (p *parser) peekKind() lexer.Kind {
	if p.atEOF() {
		return lexer.EOF
	}
	return p.toks[p.pos].Kind
}

func (p *parser) cur() lexer.Token { return p.toks[p.pos] }

func (p *parser) atKind(k lexer.Kind) bool { return p.peekKind() == k }

func (p *parser) text(t lexer.Token) string { return t.Text(p.src) }

func (p *parser) next() (lexer.Token, bool) {
	if p.atEOF() {
		return lexer.Token{}, false
	}
	t := p.toks[p.pos]
	p.pos++
	return t, true
}

// prevEnd returns the byte offset just past the most recently consumed
// token, used as a node's end range after a loop that may have consumed
// zero or more tokens.
func (p *parser) prevEnd() uint32 {
	if p.pos == 0 {
		return 0
	}
	return p.toks[p.pos-1].Range.End
}

func (p *parser) curStart() uint32 {
	if p.atEOF() {
		return p.prevEnd()
	}
	return p.toks[p.pos].Range.Start
}

// expect consumes a token of kind k, or records a syntax error and leaves
// the cursor in place.
func (p *parser) expect(k lexer.Kind, what string) (lexer.Token, bool) {
	if p.atKind(k) {
		return p.next()
	}
	p.errorAt(p.curStart(), "expected "+what)
	return lexer.Token{}, false
}

func (p *parser) errorAt(pos uint32, msg string) {
	p.errs = append(p.errs, Error{Range: ids.ByteRange{Start: pos, End: pos}, Message: msg})
}

// recoverTo advances past tokens until one of the given kinds is found (and
// consumes it) or EOF, used to resynchronize after a malformed
// declaration/statement.
func (p *parser) recoverTo(kinds ...lexer.Kind) {
	for !p.atEOF() {
		k := p.peekKind()
		for _, want := range kinds {
			if k == want {
				p.next()
				return
			}
		}
		p.next()
	}
}

func (p *parser) parseRoot(srcLen uint32) *Node {
	root := &Node{Kind: NodeRoot, Range: ids.ByteRange{Start: 0, End: srcLen}}
	for !p.atEOF() {
		item := p.parseTopLevelItem()
		if item != nil {
			root.Children = append(root.Children, item)
		}
	}
	return root
}

func (p *parser) parseTopLevelItem() *Node {
	start := p.curStart()
	switch p.peekKind() {
	case lexer.KwEnum:
		return p.parseEnumOrEnumStruct()
	case lexer.KwMethodmap:
		return p.parseMethodmap()
	case lexer.KwTypedef:
		return p.parseTypedef()
	case lexer.KwTypeset:
		return p.parseTypeset()
	case lexer.KwFunctag:
		return p.parseFunctag()
	case lexer.Semicolon:
		p.next() // stray semicolon, ignore
		return nil
	case lexer.Identifier:
		if p.text(p.cur()) == "funcenum" {
			return p.parseFuncenum()
		}
	}
	return p.parseFunctionOrVarDecl(start)
}

// lookaheadIsFunction reports whether the declaration starting at the
// current position is a function (its first depth-0 special token is '(')
// rather than a variable declaration (whose first depth-0 special token is
// '=' or ';').
func (p *parser) lookaheadIsFunction() bool {
	depth := 0
	for i := p.pos; i < len(p.toks); i++ {
		k := p.toks[i].Kind
		if depth == 0 {
			switch k {
			case lexer.LParen:
				return true
			case lexer.Semicolon, lexer.Assign, lexer.LBrace:
				return false
			}
		}
		switch k {
		case lexer.LParen, lexer.LBracket:
			depth++
		case lexer.RParen, lexer.RBracket:
			depth--
		}
	}
	return false
}

func (p *parser) parseFunctionOrVarDecl(start uint32) *Node {
	if p.atEOF() {
		return nil
	}
	if p.lookaheadIsFunction() {
		return p.parseFunctionDecl(start)
	}
	return p.parseGlobalVarDecl(start)
}

func (p *parser) parseFunctionDecl(start uint32) *Node {
	var nameTok lexer.Token
	haveName := false
	for !p.atEOF() && !p.atKind(lexer.LParen) {
		if p.atKind(lexer.Identifier) {
			nameTok = p.cur()
			haveName = true
		}
		p.next()
	}
	nameNode := &Node{Kind: NodeIdentExpr, Range: nameTok.Range}
	if haveName {
		nameNode.Text = p.text(nameTok)
	} else {
		p.errorAt(p.curStart(), "expected function name")
	}

	params := p.parseParamList()

	var body *Node
	switch {
	case p.atKind(lexer.LBrace):
		body = p.parseBlock()
	case p.atKind(lexer.Semicolon):
		p.next() // native/forward prototype
	default:
		p.errorAt(p.curStart(), "expected '{' or ';' after function signature")
		p.recoverTo(lexer.Semicolon, lexer.RBrace)
	}

	children := []*Node{nameNode, params}
	if body != nil {
		children = append(children, body)
	}
	return &Node{Kind: NodeFunctionDecl, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: children}
}

func (p *parser) parseParamList() *Node {
	start := p.curStart()
	if _, ok := p.expect(lexer.LParen, "'('"); !ok {
		return &Node{Kind: NodeParamList, Range: ids.ByteRange{Start: start, End: start}}
	}
	var params []*Node
	for !p.atEOF() && !p.atKind(lexer.RParen) {
		paramStart := p.curStart()
		depth := 0
		var nameTok, typeTok lexer.Token
		haveName, haveType := false, false
		for !p.atEOF() {
			k := p.peekKind()
			if depth == 0 && (k == lexer.Comma || k == lexer.RParen) {
				break
			}
			switch k {
			case lexer.LBracket:
				depth++
			case lexer.RBracket:
				depth--
			case lexer.Identifier:
				// Each new identifier demotes the previous one (if any)
				// from "assumed name" to "type" — e.g. in "Player player"
				// the first identifier is only confirmed to be a type once
				// the second arrives.
				if haveName {
					typeTok, haveType = nameTok, true
				}
				nameTok = p.cur()
				haveName = true
			}
			p.next()
		}
		node := &Node{Kind: NodeParam, Range: ids.ByteRange{Start: paramStart, End: p.prevEnd()}}
		if haveName {
			node.Text = p.text(nameTok)
		}
		if haveType {
			node.TypeText = p.text(typeTok)
		}
		params = append(params, node)
		if p.atKind(lexer.Comma) {
			p.next()
		}
	}
	p.expect(lexer.RParen, "')'")
	return &Node{Kind: NodeParamList, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: params}
}

func (p *parser) parseGlobalVarDecl(start uint32) *Node {
	return p.parseVarDeclLike(start, NodeGlobalVarDecl)
}

func (p *parser) parseVarDeclLike(start uint32, kind NodeKind) *Node {
	// Skip modifiers/type tokens until reaching the first identifier that
	// begins a declarator (i.e. is directly followed by '=', ',', ';' or
	// '['), remembering the last identifier seen along the way as the
	// declaration's type name (e.g. "Player" in "Player g_player;") — empty
	// for builtin types, which are keywords rather than identifiers.
	var typeTok lexer.Token
	haveType := false
	for !p.atEOF() {
		if p.atKind(lexer.Identifier) {
			if p.pos+1 < len(p.toks) {
				switch p.toks[p.pos+1].Kind {
				case lexer.Assign, lexer.Comma, lexer.Semicolon, lexer.LBracket:
					goto declarators
				}
			}
			typeTok = p.cur()
			haveType = true
		}
		if p.atKind(lexer.Semicolon) {
			break
		}
		p.next()
	}
declarators:
	typeText := ""
	if haveType {
		typeText = p.text(typeTok)
	}
	var decls []*Node
	for {
		d := p.parseDeclarator(typeText)
		if d != nil {
			decls = append(decls, d)
		}
		if p.atKind(lexer.Comma) {
			p.next()
			continue
		}
		break
	}
	p.expect(lexer.Semicolon, "';'")
	return &Node{Kind: kind, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: decls}
}

func (p *parser) parseDeclarator(typeText string) *Node {
	start := p.curStart()
	nameTok, ok := p.expect(lexer.Identifier, "declarator name")
	if !ok {
		p.recoverTo(lexer.Comma, lexer.Semicolon)
		return nil
	}
	for p.atKind(lexer.LBracket) {
		p.next()
		depth := 1
		for !p.atEOF() && depth > 0 {
			switch p.peekKind() {
			case lexer.LBracket:
				depth++
			case lexer.RBracket:
				depth--
			}
			p.next()
		}
	}
	var children []*Node
	if p.atKind(lexer.Assign) {
		p.next()
		children = append(children, p.parseAssignExpr())
	}
	return &Node{Kind: NodeDeclarator, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Text: p.text(nameTok), TypeText: typeText, Children: children}
}

func (p *parser) parseBlock() *Node {
	start := p.curStart()
	p.expect(lexer.LBrace, "'{'")
	var stmts []*Node
	for !p.atEOF() && !p.atKind(lexer.RBrace) {
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
	}
	p.expect(lexer.RBrace, "'}'")
	return &Node{Kind: NodeBlock, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: stmts}
}

func (p *parser) parseStatement() *Node {
	start := p.curStart()
	switch p.peekKind() {
	case lexer.LBrace:
		return p.parseBlock()
	case lexer.KwIf:
		return p.parseIf(start)
	case lexer.KwWhile:
		return p.parseWhile(start)
	case lexer.KwDo:
		return p.parseDoWhile(start)
	case lexer.KwFor:
		return p.parseFor(start)
	case lexer.KwSwitch:
		return p.parseSwitch(start)
	case lexer.KwReturn:
		p.next()
		var children []*Node
		if !p.atKind(lexer.Semicolon) {
			children = append(children, p.parseExpr())
		}
		p.expect(lexer.Semicolon, "';'")
		return &Node{Kind: NodeReturnStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: children}
	case lexer.KwBreak:
		p.next()
		p.expect(lexer.Semicolon, "';'")
		return &Node{Kind: NodeBreakStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}}
	case lexer.KwContinue:
		p.next()
		p.expect(lexer.Semicolon, "';'")
		return &Node{Kind: NodeContinueStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}}
	case lexer.KwDelete:
		p.next()
		expr := p.parseExpr()
		p.expect(lexer.Semicolon, "';'")
		return &Node{Kind: NodeDeleteStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{expr}}
	case lexer.Semicolon:
		p.next()
		return nil
	case lexer.KwNew, lexer.KwDecl, lexer.KwStatic, lexer.KwConst:
		return p.parseLocalVarDecl(start)
	}
	if p.isLocalVarDeclStart() {
		return p.parseLocalVarDecl(start)
	}
	expr := p.parseExpr()
	p.expect(lexer.Semicolon, "';'")
	return &Node{Kind: NodeExprStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{expr}}
}

// isLocalVarDeclStart heuristically detects "Type name ..." local
// declarations (as opposed to an expression statement), by checking
// whether a declarator-starting identifier appears before the first
// statement-ending ';' or a top-level '(' (which would indicate a call
// expression statement instead).
func (p *parser) isLocalVarDeclStart() bool {
	if !p.atKind(lexer.Identifier) && !isBuiltinTypeKeyword(p.peekKind()) {
		return false
	}
	depth := 0
	sawFirst := false
	for i := p.pos; i < len(p.toks); i++ {
		k := p.toks[i].Kind
		if depth == 0 {
			switch k {
			case lexer.Semicolon:
				return false
			case lexer.LParen:
				if !sawFirst {
					return false // `name(` — a call expression statement
				}
			case lexer.Assign:
				return true
			}
		}
		if k == lexer.Identifier {
			if sawFirst {
				return true // two bare identifiers in a row: "Type name"
			}
			sawFirst = true
		}
		switch k {
		case lexer.LParen, lexer.LBracket:
			depth++
		case lexer.RParen, lexer.RBracket:
			depth--
		}
	}
	return false
}

func isBuiltinTypeKeyword(k lexer.Kind) bool {
	switch k {
	case lexer.KwInt, lexer.KwFloat, lexer.KwBool, lexer.KwChar, lexer.KwVoid, lexer.KwObject:
		return true
	default:
		return false
	}
}

func (p *parser) parseLocalVarDecl(start uint32) *Node {
	return p.parseVarDeclLike(start, NodeVarDeclStmt)
}

func (p *parser) parseIf(start uint32) *Node {
	p.next()
	p.expect(lexer.LParen, "'('")
	cond := p.parseExpr()
	p.expect(lexer.RParen, "')'")
	then := p.parseStatement()
	children := []*Node{cond, then}
	if p.atKind(lexer.KwElse) {
		p.next()
		els := p.parseStatement()
		children = append(children, els)
	}
	return &Node{Kind: NodeIfStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: children}
}

func (p *parser) parseWhile(start uint32) *Node {
	p.next()
	p.expect(lexer.LParen, "'('")
	cond := p.parseExpr()
	p.expect(lexer.RParen, "')'")
	body := p.parseStatement()
	return &Node{Kind: NodeWhileStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{cond, body}}
}

func (p *parser) parseDoWhile(start uint32) *Node {
	p.next()
	body := p.parseStatement()
	p.expect(lexer.KwWhile, "'while'")
	p.expect(lexer.LParen, "'('")
	cond := p.parseExpr()
	p.expect(lexer.RParen, "')'")
	p.expect(lexer.Semicolon, "';'")
	return &Node{Kind: NodeDoWhileStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: []*Node{body, cond}}
}

func (p *parser) parseFor(start uint32) *Node {
	p.next()
	p.expect(lexer.LParen, "'('")
	var initN, condN, stepN *Node
	if !p.atKind(lexer.Semicolon) {
		if p.isLocalVarDeclStart() {
			initN = p.parseVarDeclLike(p.curStart(), NodeVarDeclStmt)
		} else {
			e := p.parseExpr()
			initN = &Node{Kind: NodeExprStmt, Range: e.Range, Children: []*Node{e}}
			p.expect(lexer.Semicolon, "';'")
		}
	} else {
		p.next()
	}
	if !p.atKind(lexer.Semicolon) {
		condN = p.parseExpr()
	}
	p.expect(lexer.Semicolon, "';'")
	if !p.atKind(lexer.RParen) {
		stepN = p.parseExpr()
	}
	p.expect(lexer.RParen, "')'")
	body := p.parseStatement()
	var children []*Node
	for _, n := range []*Node{initN, condN, stepN, body} {
		if n != nil {
			children = append(children, n)
		}
	}
	return &Node{Kind: NodeForStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: children}
}

func (p *parser) parseSwitch(start uint32) *Node {
	p.next()
	p.expect(lexer.LParen, "'('")
	subject := p.parseExpr()
	p.expect(lexer.RParen, "')'")
	p.expect(lexer.LBrace, "'{'")
	children := []*Node{subject}
	for !p.atEOF() && !p.atKind(lexer.RBrace) {
		caseStart := p.curStart()
		switch p.peekKind() {
		case lexer.KwCase:
			p.next()
			var labels []*Node
			labels = append(labels, p.parseExpr())
			for p.atKind(lexer.Comma) {
				p.next()
				labels = append(labels, p.parseExpr())
			}
			p.expect(lexer.Colon, "':'")
			body := p.parseStatement()
			children = append(children, &Node{Kind: NodeSwitchCase, Range: ids.ByteRange{Start: caseStart, End: p.prevEnd()}, Children: append(labels, body)})
		case lexer.KwDefault:
			p.next()
			p.expect(lexer.Colon, "':'")
			body := p.parseStatement()
			children = append(children, &Node{Kind: NodeSwitchCase, Range: ids.ByteRange{Start: caseStart, End: p.prevEnd()}, Children: []*Node{body}})
		default:
			p.errorAt(p.curStart(), "expected 'case' or 'default'")
			p.recoverTo(lexer.RBrace)
			goto closeSwitch
		}
	}
closeSwitch:
	p.expect(lexer.RBrace, "'}'")
	return &Node{Kind: NodeSwitchStmt, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: children}
}
