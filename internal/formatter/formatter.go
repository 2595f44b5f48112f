// Package formatter pretty-prints a parsed Thorn program back into
// source text (spec §8 property 4, "parse(format(parse(src))) ==
// parse(src)": formatting and re-parsing a program must not change its
// AST in any way that changes behavior). Used by the CLI's `--ast` flag
// (spec §6) to render a program's tree for inspection.
//
// Grounded on the teacher's internal/formatter/formatter.go Formatter:
// a strings.Builder output buffer, an indent counter, and a
// formatStmt/formatExpr pair of big type switches. Thorn's AST exposes a
// full Visitor interface (unlike the teacher's raw type assertions), so
// the switches are replaced by implementing parser.StmtVisitor and
// parser.ExprVisitor directly — the same dispatch shape internal/eval
// and internal/compiler already use over this tree.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"thorn/internal/parser"
)

// Formatter renders a Thorn program as indented source text.
type Formatter struct {
	indent int
	out    strings.Builder
}

// New builds a Formatter ready for one Format call.
func New() *Formatter {
	return &Formatter{}
}

const indentUnit = "    "

// Format renders stmts as a complete program, one statement per line
// with a blank line between top-level function/class declarations
// (mirroring the teacher's needsBlankLine spacing rule).
func Format(stmts []parser.Stmt) string {
	f := New()
	for i, s := range stmts {
		f.writeStmt(s)
		if i < len(stmts)-1 && needsBlankLine(s, stmts[i+1]) {
			f.out.WriteString("\n")
		}
	}
	return f.out.String()
}

func needsBlankLine(curr, next parser.Stmt) bool {
	_, currFn := curr.(*parser.Function)
	_, nextFn := next.(*parser.Function)
	_, currClass := curr.(*parser.Class)
	_, nextClass := next.(*parser.Class)
	if currFn || nextFn || currClass || nextClass {
		return true
	}
	_, currImport := curr.(*parser.Import)
	_, nextImport := next.(*parser.Import)
	return currImport && !nextImport
}

func (f *Formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.out.WriteString(indentUnit)
	}
}

func (f *Formatter) line(s string) {
	f.writeIndent()
	f.out.WriteString(s)
	f.out.WriteString("\n")
}

func (f *Formatter) writeStmt(s parser.Stmt) {
	if s == nil {
		return
	}
	s.Accept(f)
}

func (f *Formatter) writeBlock(b *parser.Block) {
	f.out.WriteString("{\n")
	f.indent++
	for _, s := range b.Stmts {
		f.writeStmt(s)
	}
	f.indent--
	f.writeIndent()
	f.out.WriteString("}")
}

func (f *Formatter) expr(e parser.Expr) string {
	if e == nil {
		return ""
	}
	return e.Accept(f).(string)
}

// ---- StmtVisitor ----

func (f *Formatter) VisitExpressionStmt(s *parser.ExpressionStmt) interface{} {
	f.line(f.expr(s.Expr))
	return nil
}

func (f *Formatter) VisitVar(s *parser.Var) interface{} {
	var b strings.Builder
	if s.Immutable {
		b.WriteString("@immut ")
	}
	b.WriteString(s.Name)
	if s.Type != nil {
		b.WriteString(": ")
		b.WriteString(formatType(s.Type))
	}
	if s.Initializer != nil {
		b.WriteString(" = ")
		b.WriteString(f.expr(s.Initializer))
	}
	f.line(b.String())
	return nil
}

func (f *Formatter) VisitBlock(s *parser.Block) interface{} {
	f.writeIndent()
	f.writeBlock(s)
	f.out.WriteString("\n")
	return nil
}

func (f *Formatter) VisitIf(s *parser.If) interface{} {
	f.writeIndent()
	f.out.WriteString("if (")
	f.out.WriteString(f.expr(s.Condition))
	f.out.WriteString(") ")
	f.writeBlock(s.Then)
	if s.Else != nil {
		f.out.WriteString(" else ")
		switch e := s.Else.(type) {
		case *parser.If:
			// Render the chained else-if inline rather than nested under
			// another indent level, matching how it was written.
			savedIndent := f.indent
			f.indent = 0
			head := f.renderElseIf(e)
			f.indent = savedIndent
			f.out.WriteString(head)
		case *parser.Block:
			f.writeBlock(e)
			f.out.WriteString("\n")
		}
		return nil
	}
	f.out.WriteString("\n")
	return nil
}

// renderElseIf formats an `else if` chain head without the line's own
// leading indent/newline, since VisitIf already wrote "} else ".
func (f *Formatter) renderElseIf(s *parser.If) string {
	var b strings.Builder
	b.WriteString("if (")
	b.WriteString(f.expr(s.Condition))
	b.WriteString(") ")
	inner := New()
	inner.indent = f.indent
	inner.writeBlock(s.Then)
	b.WriteString(inner.out.String())
	if s.Else != nil {
		b.WriteString(" else ")
		switch e := s.Else.(type) {
		case *parser.If:
			b.WriteString(f.renderElseIf(e))
		case *parser.Block:
			inner2 := New()
			inner2.indent = f.indent
			inner2.writeBlock(e)
			b.WriteString(inner2.out.String())
		}
	} else {
		b.WriteString("\n")
	}
	return b.String()
}

func (f *Formatter) VisitWhile(s *parser.While) interface{} {
	f.writeIndent()
	f.out.WriteString("while (")
	f.out.WriteString(f.expr(s.Condition))
	f.out.WriteString(") ")
	f.writeBlock(s.Body)
	f.out.WriteString("\n")
	return nil
}

func (f *Formatter) VisitFor(s *parser.For) interface{} {
	f.writeIndent()
	f.out.WriteString("for (")
	f.out.WriteString(s.Var)
	f.out.WriteString(" in ")
	f.out.WriteString(f.expr(s.Iterable))
	f.out.WriteString(") ")
	f.writeBlock(s.Body)
	f.out.WriteString("\n")
	return nil
}

func (f *Formatter) VisitFunction(s *parser.Function) interface{} {
	f.writeIndent()
	f.out.WriteString("$ ")
	f.out.WriteString(s.Name)
	f.writeTypeParams(s.TypeParams)
	f.out.WriteString(formatParams(s.Params))
	if s.ReturnType != nil {
		f.out.WriteString(": ")
		f.out.WriteString(formatType(s.ReturnType))
	}
	f.out.WriteString(" ")
	f.writeBlock(&parser.Block{Stmts: s.Body})
	f.out.WriteString("\n")
	return nil
}

func (f *Formatter) writeTypeParams(params []string) {
	if len(params) == 0 {
		return
	}
	f.out.WriteString("[")
	f.out.WriteString(strings.Join(params, ", "))
	f.out.WriteString("]")
}

func formatParams(params []parser.Param) string {
	var b strings.Builder
	b.WriteString("(")
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.Name)
		if p.Type != nil {
			b.WriteString(": ")
			b.WriteString(formatType(p.Type))
		}
	}
	b.WriteString(")")
	return b.String()
}

func (f *Formatter) VisitReturn(s *parser.Return) interface{} {
	if s.Value == nil {
		f.line("return")
		return nil
	}
	f.line("return " + f.expr(s.Value))
	return nil
}

func (f *Formatter) VisitClass(s *parser.Class) interface{} {
	f.writeIndent()
	f.out.WriteString("class ")
	f.out.WriteString(s.Name)
	f.writeTypeParams(s.TypeParams)
	f.out.WriteString(" {\n")
	f.indent++
	for _, m := range s.Methods {
		f.writeStmt(m)
	}
	f.indent--
	f.writeIndent()
	f.out.WriteString("}\n")
	return nil
}

func (f *Formatter) VisitExport(s *parser.Export) interface{} {
	f.writeIndent()
	f.out.WriteString("export ")
	// The inner declaration writes its own indent; rewind so "export "
	// and the declaration land on one line.
	inner := New()
	inner.indent = 0
	s.Decl.Accept(inner)
	f.out.WriteString(strings.TrimLeft(inner.out.String(), " "))
	return nil
}

func (f *Formatter) VisitImport(s *parser.Import) interface{} {
	var b strings.Builder
	b.WriteString("import { ")
	for i, n := range s.Names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(n.Name)
		if n.Alias != "" && n.Alias != n.Name {
			b.WriteString(" as ")
			b.WriteString(n.Alias)
		}
	}
	b.WriteString(" } from ")
	b.WriteString(strconv.Quote(s.Path))
	f.line(b.String())
	return nil
}

func (f *Formatter) VisitTypeAlias(s *parser.TypeAlias) interface{} {
	f.line(fmt.Sprintf("%% %s = %s", s.Name, formatType(s.Type)))
	return nil
}

func (f *Formatter) VisitBreak(s *parser.Break) interface{} {
	f.line("break")
	return nil
}

func (f *Formatter) VisitContinue(s *parser.Continue) interface{} {
	f.line("continue")
	return nil
}

func (f *Formatter) VisitTry(s *parser.Try) interface{} {
	f.writeIndent()
	f.out.WriteString("try ")
	f.writeBlock(s.Body)
	if s.CatchBody != nil {
		f.out.WriteString(" catch (")
		f.out.WriteString(s.CatchVar)
		f.out.WriteString(") ")
		f.writeBlock(s.CatchBody)
	}
	if s.FinallyBody != nil {
		f.out.WriteString(" finally ")
		f.writeBlock(s.FinallyBody)
	}
	f.out.WriteString("\n")
	return nil
}

// ---- ExprVisitor ----

func (f *Formatter) VisitLiteral(e *parser.Literal) interface{} {
	return formatLiteral(e.Value)
}

func formatLiteral(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case string:
		return strconv.Quote(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (f *Formatter) VisitVariable(e *parser.Variable) interface{} { return e.Name }

func (f *Formatter) VisitAssign(e *parser.Assign) interface{} {
	return e.Name + " = " + f.expr(e.Value)
}

func (f *Formatter) VisitBinary(e *parser.Binary) interface{} {
	return fmt.Sprintf("%s %s %s", f.expr(e.Left), e.Operator, f.expr(e.Right))
}

func (f *Formatter) VisitUnary(e *parser.Unary) interface{} {
	return e.Operator + f.expr(e.Operand)
}

func (f *Formatter) VisitLogical(e *parser.Logical) interface{} {
	return fmt.Sprintf("%s %s %s", f.expr(e.Left), e.Operator, f.expr(e.Right))
}

func (f *Formatter) VisitCall(e *parser.Call) interface{} {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = f.expr(a)
	}
	return fmt.Sprintf("%s(%s)", f.expr(e.Callee), strings.Join(args, ", "))
}

func (f *Formatter) VisitGet(e *parser.Get) interface{} {
	return f.expr(e.Object) + "." + e.Name
}

func (f *Formatter) VisitSet(e *parser.Set) interface{} {
	return fmt.Sprintf("%s.%s = %s", f.expr(e.Object), e.Name, f.expr(e.Value))
}

func (f *Formatter) VisitIndex(e *parser.Index) interface{} {
	return fmt.Sprintf("%s[%s]", f.expr(e.Object), f.expr(e.Key))
}

func (f *Formatter) VisitIndexSet(e *parser.IndexSet) interface{} {
	return fmt.Sprintf("%s[%s] = %s", f.expr(e.Object), f.expr(e.Key), f.expr(e.Value))
}

func (f *Formatter) VisitSlice(e *parser.Slice) interface{} {
	start, end := "", ""
	if e.Start != nil {
		start = f.expr(e.Start)
	}
	if e.End != nil {
		end = f.expr(e.End)
	}
	return fmt.Sprintf("%s[%s:%s]", f.expr(e.Object), start, end)
}

func (f *Formatter) VisitGrouping(e *parser.Grouping) interface{} {
	return "(" + f.expr(e.Inner) + ")"
}

func (f *Formatter) VisitLambda(e *parser.Lambda) interface{} {
	inner := New()
	inner.indent = f.indent
	var b strings.Builder
	b.WriteString("$")
	b.WriteString(formatParams(e.Params))
	b.WriteString(" => ")
	inner.writeBlock(&parser.Block{Stmts: e.Body})
	b.WriteString(strings.TrimLeft(inner.out.String(), " "))
	return b.String()
}

func (f *Formatter) VisitListExpr(e *parser.ListExpr) interface{} {
	items := make([]string, len(e.Elements))
	for i, el := range e.Elements {
		items[i] = f.expr(el)
	}
	return "[" + strings.Join(items, ", ") + "]"
}

func (f *Formatter) VisitDict(e *parser.Dict) interface{} {
	pairs := make([]string, len(e.Keys))
	for i := range e.Keys {
		pairs[i] = fmt.Sprintf("%s: %s", f.expr(e.Keys[i]), f.expr(e.Values[i]))
	}
	return "{" + strings.Join(pairs, ", ") + "}"
}

func (f *Formatter) VisitThis(e *parser.This) interface{} { return "this" }

func (f *Formatter) VisitMatch(e *parser.Match) interface{} {
	var b strings.Builder
	b.WriteString("match (")
	b.WriteString(f.expr(e.Scrutinee))
	b.WriteString(") {\n")
	inner := New()
	inner.indent = f.indent + 1
	for _, arm := range e.Arms {
		inner.writeIndent()
		inner.out.WriteString(formatPattern(arm.Pattern))
		if arm.Guard != nil {
			inner.out.WriteString(" if ")
			inner.out.WriteString(inner.expr(arm.Guard))
		}
		inner.out.WriteString(" => ")
		if len(arm.Body) == 1 {
			if es, ok := arm.Body[0].(*parser.ExpressionStmt); ok {
				inner.out.WriteString(inner.expr(es.Expr))
				inner.out.WriteString(",\n")
				continue
			}
		}
		inner.writeBlock(&parser.Block{Stmts: arm.Body})
		inner.out.WriteString(",\n")
	}
	b.WriteString(inner.out.String())
	b.WriteString(strings.Repeat(indentUnit, f.indent))
	b.WriteString("}")
	return b.String()
}

func formatPattern(p parser.Pattern) string {
	switch pat := p.(type) {
	case parser.WildcardPattern:
		return "_"
	case parser.LiteralPattern:
		return formatLiteral(pat.Value)
	case parser.BindPattern:
		return pat.Name
	case parser.OkPattern:
		return "Ok(" + formatPattern(pat.Inner) + ")"
	case parser.ErrorPattern:
		return "Error(" + formatPattern(pat.Inner) + ")"
	default:
		return "_"
	}
}

// formatType renders a TypeAnnot back to its surface syntax.
func formatType(t *parser.TypeAnnot) string {
	if t == nil {
		return "Any"
	}
	switch t.Kind {
	case "Array":
		return "Array[" + formatType(t.Elem) + "]"
	case "Dict":
		return "Dict[" + formatType(t.Key) + ", " + formatType(t.Val) + "]"
	case "Function":
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = formatType(p)
		}
		return "Function[(" + strings.Join(params, ", ") + "), " + formatType(t.Result) + "]"
	case "Class", "Alias":
		return t.Name
	case "Union":
		parts := make([]string, len(t.Union))
		for i, u := range t.Union {
			parts[i] = formatType(u)
		}
		return strings.Join(parts, "|")
	default:
		return t.Kind
	}
}
