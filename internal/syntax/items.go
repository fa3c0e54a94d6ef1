package syntax

import (
	"github.com/sourcepawn-studio/spls/internal/ids"
	"github.com/sourcepawn-studio/spls/internal/lexer"
)

func (p *parser) parseEnumOrEnumStruct() *Node {
	start := p.curStart()
	p.next() // 'enum'
	if p.atKind(lexer.KwStruct) {
		return p.parseEnumStruct(start)
	}
	return p.parseEnum(start)
}

func (p *parser) parseEnum(start uint32) *Node {
	var nameTok lexer.Token
	haveName := false
	if p.atKind(lexer.Identifier) {
		nameTok, _ = p.next()
		haveName = true
	}
	var children []*Node
	if p.atKind(lexer.LBrace) {
		p.next()
		for !p.atEOF() && !p.atKind(lexer.RBrace) {
			variantStart := p.curStart()
			name, ok := p.expect(lexer.Identifier, "enum variant name")
			if !ok {
				p.recoverTo(lexer.Comma, lexer.RBrace)
				continue
			}
			var variantChildren []*Node
			if p.atKind(lexer.Assign) {
				p.next()
				variantChildren = append(variantChildren, p.parseAssignExpr())
			}
			children = append(children, &Node{Kind: NodeEnumVariant, Range: ids.ByteRange{Start: variantStart, End: p.prevEnd()}, Text: p.text(name), Children: variantChildren})
			if p.atKind(lexer.Comma) {
				p.next()
			}
		}
		p.expect(lexer.RBrace, "'}'")
	}
	p.skipOptionalSemicolon()
	n := &Node{Kind: NodeEnumDecl, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: children}
	if haveName {
		n.Text = p.text(nameTok)
	}
	return n
}

func (p *parser) parseEnumStruct(start uint32) *Node {
	p.next() // 'struct'
	nameTok, _ := p.expect(lexer.Identifier, "enum struct name")
	p.expect(lexer.LBrace, "'{'")
	var children []*Node
	for !p.atEOF() && !p.atKind(lexer.RBrace) {
		children = append(children, p.parseEnumStructMember())
	}
	p.expect(lexer.RBrace, "'}'")
	p.skipOptionalSemicolon()
	return &Node{Kind: NodeEnumStructDecl, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Text: p.text(nameTok), Children: children}
}

func (p *parser) parseEnumStructMember() *Node {
	start := p.curStart()
	if p.lookaheadIsFunction() {
		return p.parseFunctionDecl(start)
	}
	// Field declaration: Type name[;] or Type name[N]; — remember the last
	// identifier seen before the name as the field's type (e.g. "Weapon" in
	// "Weapon held;"), same heuristic as parseVarDeclLike's type capture.
	var typeTok lexer.Token
	haveType := false
	for !p.atEOF() {
		if p.atKind(lexer.Identifier) && p.pos+1 < len(p.toks) {
			switch p.toks[p.pos+1].Kind {
			case lexer.Semicolon, lexer.LBracket:
				goto fieldName
			}
			typeTok = p.cur()
			haveType = true
		}
		if p.atKind(lexer.Semicolon) {
			break
		}
		p.next()
	}
fieldName:
	nameTok, ok := p.expect(lexer.Identifier, "field name")
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
	p.expect(lexer.Semicolon, "';'")
	n := &Node{Kind: NodeEnumStructField, Range: ids.ByteRange{Start: start, End: p.prevEnd()}}
	if ok {
		n.Text = p.text(nameTok)
	}
	if haveType {
		n.TypeText = p.text(typeTok)
	}
	return n
}

func (p *parser) parseMethodmap() *Node {
	start := p.curStart()
	p.next() // 'methodmap'
	nameTok, _ := p.expect(lexer.Identifier, "methodmap name")
	var inheritText string
	if p.atKind(lexer.Lt) {
		p.next()
		if inherit, ok := p.expect(lexer.Identifier, "parent methodmap name"); ok {
			inheritText = p.text(inherit)
		}
	}
	p.expect(lexer.LBrace, "'{'")
	var children []*Node
	for !p.atEOF() && !p.atKind(lexer.RBrace) {
		children = append(children, p.parseMethodmapMember())
	}
	p.expect(lexer.RBrace, "'}'")
	p.skipOptionalSemicolon()
	n := &Node{Kind: NodeMethodmapDecl, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Text: p.text(nameTok), Children: children}
	if inheritText != "" {
		n.Children = append([]*Node{{Kind: NodeIdentExpr, Text: inheritText}}, n.Children...)
	}
	return n
}

func (p *parser) parseMethodmapMember() *Node {
	start := p.curStart()
	if p.atKind(lexer.KwProperty) {
		return p.parseMethodmapProperty(start)
	}
	// consume modifiers (public, static, native, forward) before dispatching
	// to the general function-decl parser — methods are just function
	// declarations inside the methodmap body.
	if p.lookaheadIsFunction() {
		return p.parseFunctionDecl(start)
	}
	p.errorAt(start, "expected methodmap member")
	p.recoverTo(lexer.Semicolon, lexer.RBrace)
	return &Node{Kind: NodeError, Range: ids.ByteRange{Start: start, End: p.prevEnd()}}
}

func (p *parser) parseMethodmapProperty(start uint32) *Node {
	p.next() // 'property'
	// skip type tokens up to the name
	var nameTok lexer.Token
	haveName := false
	for !p.atEOF() && !p.atKind(lexer.LBrace) {
		if p.atKind(lexer.Identifier) {
			nameTok = p.cur()
			haveName = true
		}
		p.next()
	}
	var children []*Node
	if p.atKind(lexer.LBrace) {
		p.next()
		for !p.atEOF() && !p.atKind(lexer.RBrace) {
			accStart := p.curStart()
			// `get` / `set` accessor, each a function-like body.
			if p.atKind(lexer.Identifier) {
				p.next()
			}
			params := p.parseParamList()
			var body *Node
			if p.atKind(lexer.LBrace) {
				body = p.parseBlock()
			} else {
				p.expect(lexer.Semicolon, "';'")
			}
			accChildren := []*Node{params}
			if body != nil {
				accChildren = append(accChildren, body)
			}
			children = append(children, &Node{Kind: NodeMethodmapPropertyAccessor, Range: ids.ByteRange{Start: accStart, End: p.prevEnd()}, Children: accChildren})
		}
		p.expect(lexer.RBrace, "'}'")
	}
	n := &Node{Kind: NodeMethodmapProperty, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: children}
	if haveName {
		n.Text = p.text(nameTok)
	}
	return n
}

func (p *parser) parseTypedef() *Node {
	start := p.curStart()
	p.next() // 'typedef'
	nameTok, _ := p.expect(lexer.Identifier, "typedef name")
	p.expect(lexer.Assign, "'='")
	var children []*Node
	if p.atKind(lexer.LParen) {
		children = append(children, p.parseParamList())
	} else {
		p.recoverTo(lexer.Semicolon)
	}
	p.skipOptionalSemicolon()
	return &Node{Kind: NodeTypedefDecl, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Text: p.text(nameTok), Children: children}
}

func (p *parser) parseTypeset() *Node {
	start := p.curStart()
	p.next() // 'typeset'
	nameTok, _ := p.expect(lexer.Identifier, "typeset name")
	p.expect(lexer.LBrace, "'{'")
	var children []*Node
	for !p.atEOF() && !p.atKind(lexer.RBrace) {
		altStart := p.curStart()
		if p.atKind(lexer.LParen) {
			params := p.parseParamList()
			p.skipOptionalSemicolon()
			children = append(children, &Node{Kind: NodeTypesetAlternative, Range: ids.ByteRange{Start: altStart, End: p.prevEnd()}, Children: []*Node{params}})
		} else {
			p.recoverTo(lexer.Semicolon, lexer.RBrace)
		}
	}
	p.expect(lexer.RBrace, "'}'")
	p.skipOptionalSemicolon()
	return &Node{Kind: NodeTypesetDecl, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Text: p.text(nameTok), Children: children}
}

func (p *parser) parseFunctag() *Node {
	start := p.curStart()
	p.next() // 'functag'
	var nameTok lexer.Token
	haveName := false
	if p.atKind(lexer.Identifier) && p.pos+1 < len(p.toks) && p.toks[p.pos+1].Kind != lexer.LParen {
		nameTok, _ = p.next()
		haveName = true
	}
	var children []*Node
	if p.atKind(lexer.LParen) {
		children = append(children, p.parseParamList())
	}
	p.skipOptionalSemicolon()
	n := &Node{Kind: NodeFunctagDecl, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Children: children}
	if haveName {
		n.Text = p.text(nameTok)
	}
	return n
}

func (p *parser) parseFuncenum() *Node {
	start := p.curStart()
	p.next() // identifier "funcenum"
	nameTok, _ := p.expect(lexer.Identifier, "funcenum name")
	p.expect(lexer.LBrace, "'{'")
	var children []*Node
	for !p.atEOF() && !p.atKind(lexer.RBrace) {
		altStart := p.curStart()
		if p.atKind(lexer.LParen) {
			params := p.parseParamList()
			p.skipOptionalSemicolon()
			children = append(children, &Node{Kind: NodeTypesetAlternative, Range: ids.ByteRange{Start: altStart, End: p.prevEnd()}, Children: []*Node{params}})
		} else {
			p.recoverTo(lexer.Semicolon, lexer.RBrace)
		}
	}
	p.expect(lexer.RBrace, "'}'")
	p.skipOptionalSemicolon()
	return &Node{Kind: NodeFuncenumDecl, Range: ids.ByteRange{Start: start, End: p.prevEnd()}, Text: p.text(nameTok), Children: children}
}

func (p *parser) skipOptionalSemicolon() {
	if p.atKind(lexer.Semicolon) {
		p.next()
	}
}
