// Package parser (continued): the recursive-descent parser itself. Grounded
// on the teacher's parser.go shape (precedence-climbing binary/unary chain,
// match/consume/check/advance cursor helpers) but generalized to Thorn's
// grammar: lambda/function sigil `$`, `@immut` bindings, `%` type aliases,
// match expressions with Ok/Error/literal/bind/wildcard patterns, slicing,
// try/catch/finally, and import/export with per-name aliasing.
//
// Errors do not abort parsing. A malformed statement records a ParseError
// into the shared Diagnostics sink and the parser synchronizes to the next
// statement boundary (spec §4.2: "a malformed statement is skipped to the
// next statement boundary; parsing continues to find further errors").
package parser

import (
	"fmt"
	"strings"

	thornerrors "thorn/internal/errors"
	"thorn/internal/lexer"
)

type Parser struct {
	tokens    []lexer.Token
	file      string
	lines     []string
	current   int
	diags     *thornerrors.Diagnostics
	lastError *thornerrors.ThornError
}

func NewParser(tokens []lexer.Token) *Parser {
	return NewParserWithFile(tokens, "", nil)
}

func NewParserWithFile(tokens []lexer.Token, file string, diags *thornerrors.Diagnostics) *Parser {
	if diags == nil {
		diags = &thornerrors.Diagnostics{}
	}
	return &Parser{tokens: tokens, file: file, diags: diags}
}

func (p *Parser) Diagnostics() *thornerrors.Diagnostics { return p.diags }

// parseError is used internally to unwind to synchronize() without
// panicking the whole Parse call; it mirrors the teacher's pattern of
// panicking on consume() failures and recovering at each declaration.
type parseError struct{ err *thornerrors.ThornError }

func (e parseError) Error() string { return e.err.Error() }

// Parse parses the whole token stream into a program (a flat list of
// top-level statements, spec §4.2's Program := declaration*).
func (p *Parser) Parse() []Stmt {
	var stmts []Stmt
	for !p.isAtEnd() {
		stmt := p.declarationRecovering()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

func (p *Parser) declarationRecovering() (stmt Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); ok {
				p.synchronize()
				stmt = nil
				return
			}
			panic(r)
		}
	}()
	return p.declaration()
}

func (p *Parser) declaration() Stmt {
	if p.match(lexer.TokenExport) {
		inner := p.declaration()
		return &Export{base: base{S: p.spanFrom(inner.Span())}, Decl: inner}
	}
	if p.match(lexer.TokenImport) {
		return p.importStmt()
	}
	if p.check(lexer.TokenPercent) {
		return p.typeAliasStmt()
	}
	if p.check(lexer.TokenClass) {
		return p.classDecl()
	}
	if p.checkFunctionDeclAhead() {
		return p.functionDecl()
	}
	return p.statement()
}

// checkFunctionDeclAhead distinguishes a named function declaration
// (`$ name(...) ...`) from a lambda used in expression position (`$(...)
// => ...`): a declaration always names the function before the parameter
// list.
func (p *Parser) checkFunctionDeclAhead() bool {
	return p.check(lexer.TokenDollar) && p.checkNext(lexer.TokenIdent)
}

func (p *Parser) importStmt() Stmt {
	start := p.previous()
	var names []ImportName
	if p.match(lexer.TokenLBrace) {
		if !p.check(lexer.TokenRBrace) {
			for {
				nameTok := p.consume(lexer.TokenIdent, "expect imported name")
				alias := nameTok.Lexeme
				if p.match(lexer.TokenAs) {
					alias = p.consume(lexer.TokenIdent, "expect alias after 'as'").Lexeme
				}
				names = append(names, ImportName{Name: nameTok.Lexeme, Alias: alias})
				if !p.match(lexer.TokenComma) {
					break
				}
			}
		}
		p.consume(lexer.TokenRBrace, "expect '}' after import list")
	}
	p.consume(lexer.TokenFrom, "expect 'from' after import list")
	pathTok := p.consume(lexer.TokenString, "expect module path string")
	p.consumeStmtEnd()
	path, _ := pathTok.Literal.(string)
	return &Import{base: base{S: p.spanOf(start)}, Path: path, Names: names}
}

func (p *Parser) typeAliasStmt() Stmt {
	start := p.advance() // consume '%'
	name := p.consume(lexer.TokenIdent, "expect type alias name").Lexeme
	p.consume(lexer.TokenEqual, "expect '=' in type alias")
	ty := p.parseTypeAnnot()
	p.consumeStmtEnd()
	return &TypeAlias{base: base{S: p.spanOf(start)}, Name: name, Type: ty}
}

func (p *Parser) classDecl() Stmt {
	start := p.advance() // 'class'
	name := p.consume(lexer.TokenIdent, "expect class name").Lexeme
	var typeParams []string
	if p.match(lexer.TokenLBracket) {
		typeParams = p.parseTypeParamList()
	}
	p.consume(lexer.TokenLBrace, "expect '{' before class body")
	var methods []*Function
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		if !p.check(lexer.TokenDollar) {
			p.errorAt(p.peek(), "expect method declaration in class body")
			p.advance()
			continue
		}
		methods = append(methods, p.functionDecl().(*Function))
	}
	p.consume(lexer.TokenRBrace, "expect '}' after class body")
	return &Class{base: base{S: p.spanOf(start)}, Name: name, Methods: methods, TypeParams: typeParams}
}

func (p *Parser) parseTypeParamList() []string {
	var out []string
	if !p.check(lexer.TokenRBracket) {
		for {
			out = append(out, p.consume(lexer.TokenIdent, "expect type parameter name").Lexeme)
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRBracket, "expect ']' after type parameter list")
	return out
}

func (p *Parser) functionDecl() Stmt {
	start := p.advance() // '$'
	name := p.consume(lexer.TokenIdent, "expect function name").Lexeme
	var typeParams []string
	if p.match(lexer.TokenLBracket) {
		typeParams = p.parseTypeParamList()
	}
	params := p.paramList()
	var ret *TypeAnnot
	if p.match(lexer.TokenColon) {
		ret = p.parseTypeAnnot()
	}
	p.consume(lexer.TokenLBrace, "expect '{' before function body")
	body := p.blockStmts()
	return &Function{base: base{S: p.spanOf(start)}, Name: name, Params: params, ReturnType: ret, Body: body, TypeParams: typeParams}
}

func (p *Parser) paramList() []Param {
	p.consume(lexer.TokenLParen, "expect '(' after function name")
	var params []Param
	if !p.check(lexer.TokenRParen) {
		for {
			nameTok := p.consume(lexer.TokenIdent, "expect parameter name")
			var ty *TypeAnnot
			if p.match(lexer.TokenColon) {
				ty = p.parseTypeAnnot()
			}
			params = append(params, Param{Name: nameTok.Lexeme, Type: ty})
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRParen, "expect ')' after parameter list")
	return params
}

// parseTypeAnnot parses a structural type: Array[T], Dict[K,V],
// Function[(Ts),R], a bare identifier (class or alias name), a primitive
// keyword spelled as an identifier ("number","string","boolean","null",
// "Any"), or a union `a|b|c`.
func (p *Parser) parseTypeAnnot() *TypeAnnot {
	first := p.parseTypeAnnotPrimary()
	if !p.check(lexer.TokenOr) {
		return first
	}
	union := []*TypeAnnot{first}
	for p.match(lexer.TokenOr) {
		union = append(union, p.parseTypeAnnotPrimary())
	}
	return &TypeAnnot{Kind: "Union", Union: union}
}

func (p *Parser) parseTypeAnnotPrimary() *TypeAnnot {
	nameTok := p.consume(lexer.TokenIdent, "expect type name")
	switch nameTok.Lexeme {
	case "number", "string", "boolean", "null", "Any":
		return &TypeAnnot{Kind: nameTok.Lexeme}
	case "Array":
		p.consume(lexer.TokenLBracket, "expect '[' after Array")
		elem := p.parseTypeAnnot()
		p.consume(lexer.TokenRBracket, "expect ']' after Array element type")
		return &TypeAnnot{Kind: "Array", Elem: elem}
	case "Dict":
		p.consume(lexer.TokenLBracket, "expect '[' after Dict")
		key := p.parseTypeAnnot()
		p.consume(lexer.TokenComma, "expect ',' between Dict key and value types")
		val := p.parseTypeAnnot()
		p.consume(lexer.TokenRBracket, "expect ']' after Dict value type")
		return &TypeAnnot{Kind: "Dict", Key: key, Val: val}
	case "Function":
		p.consume(lexer.TokenLBracket, "expect '[' after Function")
		p.consume(lexer.TokenLParen, "expect '(' for Function parameter types")
		var params []*TypeAnnot
		if !p.check(lexer.TokenRParen) {
			for {
				params = append(params, p.parseTypeAnnot())
				if !p.match(lexer.TokenComma) {
					break
				}
			}
		}
		p.consume(lexer.TokenRParen, "expect ')' after Function parameter types")
		p.consume(lexer.TokenComma, "expect ',' before Function result type")
		result := p.parseTypeAnnot()
		p.consume(lexer.TokenRBracket, "expect ']' after Function type")
		return &TypeAnnot{Kind: "Function", Params: params, Result: result}
	default:
		return &TypeAnnot{Kind: "Alias", Name: nameTok.Lexeme}
	}
}

// ---- statements ----

func (p *Parser) statement() Stmt {
	switch {
	case p.match(lexer.TokenImmut):
		return p.varDecl(true)
	case p.looksLikePlainVarDecl():
		return p.varDecl(false)
	case p.match(lexer.TokenIf):
		return p.ifStmt()
	case p.match(lexer.TokenWhile):
		return p.whileStmt()
	case p.match(lexer.TokenFor):
		return p.forStmt()
	case p.match(lexer.TokenReturn):
		return p.returnStmt()
	case p.match(lexer.TokenBreak):
		start := p.previous()
		p.consumeStmtEnd()
		return &Break{base{S: p.spanOf(start)}}
	case p.match(lexer.TokenCont):
		start := p.previous()
		p.consumeStmtEnd()
		return &Continue{base{S: p.spanOf(start)}}
	case p.match(lexer.TokenTry):
		return p.tryStmt()
	case p.check(lexer.TokenLBrace):
		return p.blockStmt()
	default:
		return p.exprStmt()
	}
}

// looksLikePlainVarDecl peeks past `IDENT (':' Type)? '='` without
// consuming anything on failure; implements the declare-or-mutate rule:
// a bare `name = expr` statement is sugar that the evaluator
// resolves dynamically (assign an existing enclosing binding, else declare
// fresh in the current scope), so the parser only needs to recognize the
// shape, not decide scoping.
func (p *Parser) looksLikePlainVarDecl() (ok bool) {
	if !p.check(lexer.TokenIdent) {
		return false
	}
	save := p.current
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
		if !ok {
			p.current = save
		}
	}()
	p.advance()
	if p.match(lexer.TokenColon) {
		p.parseTypeAnnot()
	}
	ok = p.check(lexer.TokenEqual)
	return ok
}

func (p *Parser) varDecl(immutable bool) Stmt {
	start := p.peek()
	nameTok := p.consume(lexer.TokenIdent, "expect variable name")
	var ty *TypeAnnot
	if p.match(lexer.TokenColon) {
		ty = p.parseTypeAnnot()
	}
	p.consume(lexer.TokenEqual, "expect '=' after variable name")
	val := p.expression()
	p.consumeStmtEnd()
	return &Var{base: base{S: p.spanOf(start)}, Name: nameTok.Lexeme, Type: ty, Initializer: val, Immutable: immutable}
}

func (p *Parser) ifStmt() Stmt {
	start := p.previous()
	p.consume(lexer.TokenLParen, "expect '(' after 'if'")
	cond := p.expression()
	p.consume(lexer.TokenRParen, "expect ')' after if condition")
	then := p.blockStmt().(*Block)
	var els Stmt
	if p.match(lexer.TokenElse) {
		if p.check(lexer.TokenIf) {
			p.advance()
			els = p.ifStmt()
		} else {
			els = p.blockStmt()
		}
	}
	return &If{base: base{S: p.spanOf(start)}, Condition: cond, Then: then, Else: els}
}

func (p *Parser) whileStmt() Stmt {
	start := p.previous()
	p.consume(lexer.TokenLParen, "expect '(' after 'while'")
	cond := p.expression()
	p.consume(lexer.TokenRParen, "expect ')' after while condition")
	body := p.blockStmt().(*Block)
	return &While{base: base{S: p.spanOf(start)}, Condition: cond, Body: body}
}

// forStmt parses both the for-in form `for (name in iterable) {}` and the
// C-style form `for (init; cond; update) {}`, desugaring the latter to a
// While wrapped in a Block so the evaluator only ever sees For/While
// (spec §3 lists only For and While; C-style is a SPEC_FULL.md supplement).
func (p *Parser) forStmt() Stmt {
	start := p.previous()
	p.consume(lexer.TokenLParen, "expect '(' after 'for'")
	if p.check(lexer.TokenIdent) && p.checkNext(lexer.TokenIn) {
		name := p.advance().Lexeme
		p.advance() // 'in'
		iterable := p.expression()
		p.consume(lexer.TokenRParen, "expect ')' after for-in clause")
		body := p.blockStmt().(*Block)
		return &For{base: base{S: p.spanOf(start)}, Var: name, Iterable: iterable, Body: body}
	}
	var init Stmt
	if !p.check(lexer.TokenSemicolon) {
		init = p.cStyleInitClause()
	} else {
		p.advance()
	}
	var cond Expr
	if !p.check(lexer.TokenSemicolon) {
		cond = p.expression()
	} else {
		cond = &Literal{Value: true}
	}
	p.consume(lexer.TokenSemicolon, "expect ';' after loop condition")
	var update Expr
	if !p.check(lexer.TokenRParen) {
		update = p.expression()
	}
	p.consume(lexer.TokenRParen, "expect ')' after for clauses")
	body := p.blockStmt().(*Block)
	if update != nil {
		body = &Block{base: body.base, Stmts: append(append([]Stmt{}, body.Stmts...), &ExpressionStmt{Expr: update})}
	}
	loop := &While{base: base{S: p.spanOf(start)}, Condition: cond, Body: body}
	if init == nil {
		return loop
	}
	return &Block{base: base{S: p.spanOf(start)}, Stmts: []Stmt{init, loop}}
}

func (p *Parser) cStyleInitClause() Stmt {
	if p.looksLikePlainVarDecl() {
		s := p.varDeclNoTerminator()
		p.consume(lexer.TokenSemicolon, "expect ';' after for-loop initializer")
		return s
	}
	e := p.expression()
	p.consume(lexer.TokenSemicolon, "expect ';' after for-loop initializer")
	return &ExpressionStmt{base: base{S: e.Span()}, Expr: e}
}

func (p *Parser) varDeclNoTerminator() Stmt {
	start := p.peek()
	nameTok := p.consume(lexer.TokenIdent, "expect variable name")
	var ty *TypeAnnot
	if p.match(lexer.TokenColon) {
		ty = p.parseTypeAnnot()
	}
	p.consume(lexer.TokenEqual, "expect '=' after variable name")
	val := p.expression()
	return &Var{base: base{S: p.spanOf(start)}, Name: nameTok.Lexeme, Type: ty, Initializer: val}
}

func (p *Parser) returnStmt() Stmt {
	start := p.previous()
	var val Expr
	if !p.check(lexer.TokenSemicolon) && !p.check(lexer.TokenRBrace) {
		val = p.expression()
	}
	p.consumeStmtEnd()
	return &Return{base: base{S: p.spanOf(start)}, Value: val}
}

func (p *Parser) tryStmt() Stmt {
	start := p.previous()
	body := p.blockStmt().(*Block)
	var catchVar string
	var catchBody *Block
	if p.match(lexer.TokenCatch) {
		if p.match(lexer.TokenLParen) {
			catchVar = p.consume(lexer.TokenIdent, "expect catch binding name").Lexeme
			p.consume(lexer.TokenRParen, "expect ')' after catch binding")
		}
		catchBody = p.blockStmt().(*Block)
	}
	var finallyBody *Block
	if p.match(lexer.TokenFinally) {
		finallyBody = p.blockStmt().(*Block)
	}
	return &Try{base: base{S: p.spanOf(start)}, Body: body, CatchVar: catchVar, CatchBody: catchBody, FinallyBody: finallyBody}
}

func (p *Parser) blockStmt() Stmt {
	if !p.check(lexer.TokenLBrace) {
		start := p.peek()
		return &Block{base: base{S: p.spanOf(start)}, Stmts: []Stmt{p.statement()}}
	}
	start := p.consume(lexer.TokenLBrace, "expect '{'")
	stmts := p.blockStmts()
	return &Block{base: base{S: p.spanOf(start)}, Stmts: stmts}
}

// blockStmts parses statements up to (and consuming) the closing '}';
// TokenLBrace must already have been consumed by the caller.
func (p *Parser) blockStmts() []Stmt {
	var stmts []Stmt
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		stmt := p.declarationRecovering()
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.consume(lexer.TokenRBrace, "expect '}' after block")
	return stmts
}

func (p *Parser) exprStmt() Stmt {
	start := p.peek()
	e := p.expression()
	p.consumeStmtEnd()
	return &ExpressionStmt{base: base{S: p.spanOf(start)}, Expr: e}
}

// consumeStmtEnd accepts a ';' if present; Thorn does not require
// statement terminators before '}' or EOF (matches the teacher's
// permissive statement-end handling).
func (p *Parser) consumeStmtEnd() {
	p.match(lexer.TokenSemicolon)
}

// ---- expressions (precedence-climbing) ----
//
// assignment -> nullCoalesce -> logicalOr -> logicalAnd -> equality ->
// comparison -> addition -> multiplication -> power -> unary -> call -> primary

func (p *Parser) expression() Expr {
	return p.assignment()
}

func (p *Parser) assignment() Expr {
	target := p.nullCoalesce()
	if p.match(lexer.TokenEqual) {
		eq := p.previous()
		value := p.assignment()
		switch t := target.(type) {
		case *Variable:
			return &Assign{base: base{S: p.spanOf(eq)}, Name: t.Name, Value: value}
		case *Get:
			return &Set{base: base{S: p.spanOf(eq)}, Object: t.Object, Name: t.Name, Value: value}
		case *Index:
			return &IndexSet{base: base{S: p.spanOf(eq)}, Object: t.Object, Key: t.Key, Value: value}
		default:
			p.errorAt(eq, "invalid assignment target")
			return target
		}
	}
	return target
}

func (p *Parser) nullCoalesce() Expr {
	left := p.logicalOr()
	for p.match(lexer.TokenQQ) {
		op := p.previous()
		right := p.logicalOr()
		left = &Logical{base: base{S: p.spanOf(op)}, Left: left, Operator: "??", Right: right}
	}
	return left
}

func (p *Parser) logicalOr() Expr {
	left := p.logicalAnd()
	for p.match(lexer.TokenOr) {
		op := p.previous()
		right := p.logicalAnd()
		left = &Logical{base: base{S: p.spanOf(op)}, Left: left, Operator: "||", Right: right}
	}
	return left
}

func (p *Parser) logicalAnd() Expr {
	left := p.equality()
	for p.match(lexer.TokenAnd) {
		op := p.previous()
		right := p.equality()
		left = &Logical{base: base{S: p.spanOf(op)}, Left: left, Operator: "&&", Right: right}
	}
	return left
}

func (p *Parser) equality() Expr {
	left := p.comparison()
	for p.match(lexer.TokenDoubleEqual, lexer.TokenNotEqual) {
		op := p.previous()
		right := p.comparison()
		left = &Binary{base: base{S: p.spanOf(op)}, Left: left, Operator: string(op.Type), Right: right}
	}
	return left
}

func (p *Parser) comparison() Expr {
	left := p.addition()
	for p.match(lexer.TokenLT, lexer.TokenLE, lexer.TokenGT, lexer.TokenGE) {
		op := p.previous()
		right := p.addition()
		left = &Binary{base: base{S: p.spanOf(op)}, Left: left, Operator: string(op.Type), Right: right}
	}
	return left
}

func (p *Parser) addition() Expr {
	left := p.multiplication()
	for p.match(lexer.TokenPlus, lexer.TokenMinus) {
		op := p.previous()
		right := p.multiplication()
		left = &Binary{base: base{S: p.spanOf(op)}, Left: left, Operator: string(op.Type), Right: right}
	}
	return left
}

func (p *Parser) multiplication() Expr {
	left := p.power()
	for p.match(lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent) {
		op := p.previous()
		right := p.power()
		left = &Binary{base: base{S: p.spanOf(op)}, Left: left, Operator: string(op.Type), Right: right}
	}
	return left
}

// power is right-associative: 2 ** 3 ** 2 == 2 ** (3 ** 2).
func (p *Parser) power() Expr {
	left := p.unary()
	if p.match(lexer.TokenStarStar) {
		op := p.previous()
		right := p.power()
		return &Binary{base: base{S: p.spanOf(op)}, Left: left, Operator: "**", Right: right}
	}
	return left
}

func (p *Parser) unary() Expr {
	if p.match(lexer.TokenNot, lexer.TokenMinus) {
		op := p.previous()
		operand := p.unary()
		return &Unary{base: base{S: p.spanOf(op)}, Operator: string(op.Type), Operand: operand}
	}
	return p.callOrPostfix()
}

func (p *Parser) callOrPostfix() Expr {
	e := p.primary()
	for {
		switch {
		case p.match(lexer.TokenLParen):
			e = p.finishCall(e)
		case p.match(lexer.TokenDot):
			name := p.consume(lexer.TokenIdent, "expect property name after '.'").Lexeme
			e = &Get{base: base{S: e.Span()}, Object: e, Name: name}
		case p.match(lexer.TokenLBracket):
			e = p.finishIndexOrSlice(e)
		default:
			return e
		}
	}
}

func (p *Parser) finishCall(callee Expr) Expr {
	var args []Expr
	if !p.check(lexer.TokenRParen) {
		for {
			args = append(args, p.expression())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRParen, "expect ')' after arguments")
	return &Call{base: base{S: callee.Span()}, Callee: callee, Args: args}
}

// finishIndexOrSlice parses `[key]` or `[start:end]` (either bound
// optional, spec §4.3), with '[' already consumed.
func (p *Parser) finishIndexOrSlice(object Expr) Expr {
	var start, end Expr
	if !p.check(lexer.TokenColon) {
		start = p.expression()
	}
	if p.match(lexer.TokenColon) {
		if !p.check(lexer.TokenRBracket) {
			end = p.expression()
		}
		p.consume(lexer.TokenRBracket, "expect ']' after slice")
		return &Slice{base: base{S: object.Span()}, Object: object, Start: start, End: end}
	}
	p.consume(lexer.TokenRBracket, "expect ']' after index")
	return &Index{base: base{S: object.Span()}, Object: object, Key: start}
}

func (p *Parser) primary() Expr {
	tok := p.peek()
	switch {
	case p.match(lexer.TokenTrue):
		return &Literal{base: base{S: p.spanOf(tok)}, Value: true}
	case p.match(lexer.TokenFalse):
		return &Literal{base: base{S: p.spanOf(tok)}, Value: false}
	case p.match(lexer.TokenNull):
		return &Literal{base: base{S: p.spanOf(tok)}, Value: nil}
	case p.match(lexer.TokenNumber):
		return &Literal{base: base{S: p.spanOf(tok)}, Value: p.previous().Literal}
	case p.match(lexer.TokenString):
		return &Literal{base: base{S: p.spanOf(tok)}, Value: p.previous().Literal}
	case p.match(lexer.TokenInterpString):
		return p.interpStringExpr(p.previous())
	case p.match(lexer.TokenThis):
		return &This{base: base{S: p.spanOf(tok)}}
	case p.match(lexer.TokenIdent):
		return &Variable{base: base{S: p.spanOf(tok)}, Name: p.previous().Lexeme}
	case p.match(lexer.TokenLParen):
		inner := p.expression()
		p.consume(lexer.TokenRParen, "expect ')' after expression")
		return &Grouping{base: base{S: p.spanOf(tok)}, Inner: inner}
	case p.match(lexer.TokenLBracket):
		return p.listExpr(tok)
	case p.match(lexer.TokenLBrace):
		return p.dictExpr(tok)
	case p.match(lexer.TokenDollar):
		return p.lambdaExpr(tok)
	case p.match(lexer.TokenMatch):
		return p.matchExpr(tok)
	default:
		p.errorAt(tok, fmt.Sprintf("unexpected token %q", tok.Lexeme))
		panic(parseError{err: p.lastError})
	}
}

func (p *Parser) listExpr(start lexer.Token) Expr {
	var elems []Expr
	if !p.check(lexer.TokenRBracket) {
		for {
			elems = append(elems, p.expression())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRBracket, "expect ']' after list elements")
	return &ListExpr{base: base{S: p.spanOf(start)}, Elements: elems}
}

func (p *Parser) dictExpr(start lexer.Token) Expr {
	var keys, vals []Expr
	if !p.check(lexer.TokenRBrace) {
		for {
			keys = append(keys, p.expression())
			p.consume(lexer.TokenColon, "expect ':' after dict key")
			vals = append(vals, p.expression())
			if !p.match(lexer.TokenComma) {
				break
			}
		}
	}
	p.consume(lexer.TokenRBrace, "expect '}' after dict entries")
	return &Dict{base: base{S: p.spanOf(start)}, Keys: keys, Values: vals}
}

// lambdaExpr parses `$ (params) => expr` or `$ (params) => { block }`,
// with '$' already consumed.
func (p *Parser) lambdaExpr(start lexer.Token) Expr {
	params := p.paramList()
	p.consume(lexer.TokenArrow, "expect '=>' after lambda parameters")
	var body []Stmt
	if p.match(lexer.TokenLBrace) {
		body = p.blockStmts()
	} else {
		e := p.expression()
		body = []Stmt{&Return{base: base{S: e.Span()}, Value: e}}
	}
	return &Lambda{base: base{S: p.spanOf(start)}, Params: params, Body: body}
}

// matchExpr parses `match (scrutinee) { pattern (if guard)? => body, ... }`.
func (p *Parser) matchExpr(start lexer.Token) Expr {
	p.consume(lexer.TokenLParen, "expect '(' after 'match'")
	scrutinee := p.expression()
	p.consume(lexer.TokenRParen, "expect ')' after match scrutinee")
	p.consume(lexer.TokenLBrace, "expect '{' before match arms")
	var arms []MatchArm
	for !p.check(lexer.TokenRBrace) && !p.isAtEnd() {
		pat := p.parsePattern()
		var guard Expr
		if p.match(lexer.TokenIf) {
			guard = p.expression()
		}
		p.consume(lexer.TokenArrow, "expect '=>' after match pattern")
		var body []Stmt
		if p.match(lexer.TokenLBrace) {
			body = p.blockStmts()
		} else {
			e := p.expression()
			body = []Stmt{&ExpressionStmt{base: base{S: e.Span()}, Expr: e}}
		}
		arms = append(arms, MatchArm{Pattern: pat, Guard: guard, Body: body})
		p.match(lexer.TokenComma)
	}
	p.consume(lexer.TokenRBrace, "expect '}' after match arms")
	return &Match{base: base{S: p.spanOf(start)}, Scrutinee: scrutinee, Arms: arms}
}

func (p *Parser) parsePattern() Pattern {
	switch {
	case p.check(lexer.TokenIdent) && p.peek().Lexeme == "_":
		p.advance()
		return WildcardPattern{}
	case p.check(lexer.TokenIdent) && p.peek().Lexeme == "Ok":
		p.advance()
		p.consume(lexer.TokenLParen, "expect '(' after Ok")
		inner := p.parsePattern()
		p.consume(lexer.TokenRParen, "expect ')' after Ok pattern")
		return OkPattern{Inner: inner}
	case p.check(lexer.TokenIdent) && p.peek().Lexeme == "Error":
		p.advance()
		p.consume(lexer.TokenLParen, "expect '(' after Error")
		inner := p.parsePattern()
		p.consume(lexer.TokenRParen, "expect ')' after Error pattern")
		return ErrorPattern{Inner: inner}
	case p.check(lexer.TokenNumber), p.check(lexer.TokenString), p.check(lexer.TokenTrue), p.check(lexer.TokenFalse), p.check(lexer.TokenNull):
		p.advance()
		return LiteralPattern{Value: p.previous().Literal}
	case p.match(lexer.TokenIdent):
		return BindPattern{Name: p.previous().Lexeme}
	default:
		p.errorAt(p.peek(), "expect pattern")
		p.advance()
		return WildcardPattern{}
	}
}

// interpStringExpr splits a backtick-interpolated string literal into a
// concatenation expression (SPEC_FULL.md "string interpolation"
// supplement; desugars to Binary("+") chains so no new AST node is
// needed, spec §3's expression list stays closed).
func (p *Parser) interpStringExpr(tok lexer.Token) Expr {
	raw, _ := tok.Literal.(string)
	parts := splitInterpolation(raw)
	var result Expr
	for _, part := range parts {
		var piece Expr
		if part.isExpr {
			sub := NewParserWithFile(part.tokens, p.file, p.diags)
			piece = sub.expression()
		} else {
			piece = &Literal{base: base{S: p.spanOf(tok)}, Value: part.text}
		}
		if result == nil {
			result = piece
		} else {
			result = &Binary{base: base{S: p.spanOf(tok)}, Left: result, Operator: "+", Right: piece}
		}
	}
	if result == nil {
		return &Literal{base: base{S: p.spanOf(tok)}, Value: ""}
	}
	return result
}

type interpPart struct {
	isExpr bool
	text   string
	tokens []lexer.Token
}

// splitInterpolation walks a backtick string's raw literal, splitting on
// `${...}` spans; the lexer preserves these spans verbatim in the token
// literal (see internal/lexer's interpString), so each sub-expression is
// re-lexed and re-parsed independently here.
func splitInterpolation(raw string) []interpPart {
	var parts []interpPart
	var text strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == '$' && i+1 < len(raw) && raw[i+1] == '{' {
			if text.Len() > 0 {
				parts = append(parts, interpPart{text: text.String()})
				text.Reset()
			}
			depth := 1
			j := i + 2
			for j < len(raw) && depth > 0 {
				switch raw[j] {
				case '{':
					depth++
				case '}':
					depth--
				}
				if depth > 0 {
					j++
				}
			}
			exprSrc := raw[i+2 : j]
			sub := lexer.NewScanner(exprSrc)
			toks := sub.ScanTokens()
			parts = append(parts, interpPart{isExpr: true, tokens: toks})
			i = j + 1
		} else {
			text.WriteByte(raw[i])
			i++
		}
	}
	if text.Len() > 0 {
		parts = append(parts, interpPart{text: text.String()})
	}
	return parts
}

// ---- cursor helpers ----

func (p *Parser) match(types ...lexer.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) check(t lexer.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == t
}

func (p *Parser) checkNext(t lexer.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() lexer.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == lexer.TokenEOF
}

func (p *Parser) peek() lexer.Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() lexer.Token {
	return p.tokens[p.current-1]
}

func (p *Parser) consume(t lexer.TokenType, message string) lexer.Token {
	if p.check(t) {
		return p.advance()
	}
	p.errorAt(p.peek(), message)
	panic(parseError{err: p.lastError})
}

// errorAt records a ParseError at tok without unwinding; callers that need
// to unwind (consume) panic separately so declarationRecovering can
// synchronize.
func (p *Parser) errorAt(tok lexer.Token, message string) {
	loc := thornerrors.Location{File: p.file, Line: tok.Line, Column: tok.Column}
	e := thornerrors.New(thornerrors.ParseError, fmt.Sprintf("%s (got %q)", message, tok.Lexeme), loc)
	if line := p.sourceLine(tok.Line); line != "" {
		e.WithSource(line)
	}
	p.diags.Add(e)
	p.lastError = e
}

func (p *Parser) sourceLine(n int) string {
	if n-1 < 0 || n-1 >= len(p.lines) {
		return ""
	}
	return p.lines[n-1]
}

func (p *Parser) spanOf(tok lexer.Token) Span {
	return Span{File: p.file, Line: tok.Line, Col: tok.Column}
}

func (p *Parser) spanFrom(s Span) Span { return s }

// synchronize discards tokens until it reaches a plausible statement
// boundary, so one malformed statement does not cascade into spurious
// errors for the rest of the file (spec §4.2).
func (p *Parser) synchronize() {
	p.advance()
	for !p.isAtEnd() {
		if p.previous().Type == lexer.TokenSemicolon {
			return
		}
		switch p.peek().Type {
		case lexer.TokenClass, lexer.TokenDollar, lexer.TokenIf, lexer.TokenWhile,
			lexer.TokenFor, lexer.TokenReturn, lexer.TokenImport, lexer.TokenExport,
			lexer.TokenTry, lexer.TokenRBrace:
			return
		}
		p.advance()
	}
}
