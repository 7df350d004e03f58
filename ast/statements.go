// statements.go contains the statement AST nodes and the Program root.

package ast

import (
	"strings"

	"tarn/token"
)

// Program is the root of the tree: an ordered list of statements.
type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) == 0 {
		return ""
	}
	return p.Statements[0].TokenLiteral()
}

func (p *Program) String() string {
	var b strings.Builder
	for i, s := range p.Statements {
		// a ';' after an expression statement keeps the next statement
		// from re-parsing as a call or index on it
		if i > 0 {
			if _, ok := p.Statements[i-1].(*ExpressionStatement); ok {
				b.WriteString(";")
			}
		}
		b.WriteString(s.String())
	}
	return b.String()
}

// LetStatement binds the value of an expression to a name:
// `let x = 5;`
type LetStatement struct {
	Token token.Token // the LET token
	Name  *Identifier
	Value Expression
}

func (ls *LetStatement) statementNode()       {}
func (ls *LetStatement) TokenLiteral() string { return ls.Token.Literal }

func (ls *LetStatement) String() string {
	var b strings.Builder
	b.WriteString(ls.TokenLiteral() + " ")
	b.WriteString(ls.Name.String())
	b.WriteString(" = ")
	if ls.Value != nil {
		b.WriteString(ls.Value.String())
	}
	b.WriteString(";")
	return b.String()
}

// ReturnStatement carries the value a function call produces:
// `return x + 1;`
type ReturnStatement struct {
	Token       token.Token // the RETURN token
	ReturnValue Expression
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Literal }

func (rs *ReturnStatement) String() string {
	var b strings.Builder
	b.WriteString(rs.TokenLiteral() + " ")
	if rs.ReturnValue != nil {
		b.WriteString(rs.ReturnValue.String())
	}
	b.WriteString(";")
	return b.String()
}

// ExpressionStatement is an expression in statement position; its value
// is discarded unless it is the last statement of a program or block.
type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Literal }

func (es *ExpressionStatement) String() string {
	if es.Expression == nil {
		return ""
	}
	return es.Expression.String()
}

// BlockStatement is a braced sequence of statements, the body form of
// if expressions and function literals.
type BlockStatement struct {
	Token      token.Token // the LBRACE token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Literal }

func (bs *BlockStatement) String() string {
	var b strings.Builder
	for i, s := range bs.Statements {
		if i > 0 {
			if _, ok := bs.Statements[i-1].(*ExpressionStatement); ok {
				b.WriteString(";")
			}
		}
		b.WriteString(s.String())
	}
	return b.String()
}
