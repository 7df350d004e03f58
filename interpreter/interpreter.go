// Package interpreter executes programs by walking the AST directly.
// Runtime errors are object.Error values, not Go errors: every
// evaluation step that sees an Error operand hands it back unchanged,
// so the first failure surfaces at the top of the program.
package interpreter

import (
	"fmt"
	"io"
	"os"

	"tarn/ast"
	"tarn/object"
)

// TreeWalkInterpreter evaluates AST nodes against an Environment. Each
// instance holds its own true/false/null sentinels and builtin set, so
// independent interpreters share no state.
type TreeWalkInterpreter struct {
	trueObj  *object.Boolean
	falseObj *object.Boolean
	nullObj  *object.Null

	builtins []object.NamedBuiltin
}

// Make creates an interpreter whose puts builtin writes to stdout.
func Make() *TreeWalkInterpreter {
	return MakeWithWriter(os.Stdout)
}

// MakeWithWriter creates an interpreter whose puts builtin writes to w.
func MakeWithWriter(w io.Writer) *TreeWalkInterpreter {
	return &TreeWalkInterpreter{
		trueObj:  &object.Boolean{Value: true},
		falseObj: &object.Boolean{Value: false},
		nullObj:  &object.Null{},
		builtins: object.StandardBuiltins(w),
	}
}

// Evaluate walks the given node in env and returns its value. For a
// Program the top-level ReturnValue marker, if any, is unwrapped.
func (i *TreeWalkInterpreter) Evaluate(node ast.Node, env *object.Environment) object.Object {
	switch node := node.(type) {
	case *ast.Program:
		return i.evalProgram(node, env)

	case *ast.ExpressionStatement:
		return i.Evaluate(node.Expression, env)

	case *ast.BlockStatement:
		return i.evalBlockStatement(node, env)

	case *ast.LetStatement:
		value := i.Evaluate(node.Value, env)
		if object.IsError(value) {
			return value
		}
		env.Set(node.Name.Value, value)
		return i.nullObj

	case *ast.ReturnStatement:
		value := i.Evaluate(node.ReturnValue, env)
		if object.IsError(value) {
			return value
		}
		return &object.ReturnValue{Value: value}

	case *ast.IntegerLiteral:
		return &object.Integer{Value: node.Value}

	case *ast.BooleanLiteral:
		return i.boolObj(node.Value)

	case *ast.StringLiteral:
		return &object.String{Value: node.Value}

	case *ast.Identifier:
		return i.evalIdentifier(node, env)

	case *ast.PrefixExpression:
		right := i.Evaluate(node.Right, env)
		if object.IsError(right) {
			return right
		}
		return i.evalPrefixExpression(node.Operator, right)

	case *ast.InfixExpression:
		left := i.Evaluate(node.Left, env)
		if object.IsError(left) {
			return left
		}
		right := i.Evaluate(node.Right, env)
		if object.IsError(right) {
			return right
		}
		return i.evalInfixExpression(node.Operator, left, right)

	case *ast.IfExpression:
		return i.evalIfExpression(node, env)

	case *ast.FunctionLiteral:
		return &object.Function{Parameters: node.Parameters, Body: node.Body, Env: env}

	case *ast.CallExpression:
		fn := i.Evaluate(node.Function, env)
		if object.IsError(fn) {
			return fn
		}
		args, errObj := i.evalExpressions(node.Arguments, env)
		if errObj != nil {
			return errObj
		}
		return i.applyFunction(fn, args)

	case *ast.ArrayLiteral:
		elements, errObj := i.evalExpressions(node.Elements, env)
		if errObj != nil {
			return errObj
		}
		return &object.Array{Elements: elements}

	case *ast.DictLiteral:
		return i.evalDictLiteral(node, env)

	case *ast.IndexExpression:
		left := i.Evaluate(node.Left, env)
		if object.IsError(left) {
			return left
		}
		index := i.Evaluate(node.Index, env)
		if object.IsError(index) {
			return index
		}
		return i.evalIndexExpression(left, index)
	}

	return i.nullObj
}

func (i *TreeWalkInterpreter) evalProgram(program *ast.Program, env *object.Environment) object.Object {
	var result object.Object = i.nullObj

	for _, stmt := range program.Statements {
		result = i.Evaluate(stmt, env)

		switch result := result.(type) {
		case *object.ReturnValue:
			return result.Value
		case *object.Error:
			return result
		}
	}

	return result
}

// evalBlockStatement propagates ReturnValue and Error without
// unwrapping so the enclosing program or call observes the marker.
func (i *TreeWalkInterpreter) evalBlockStatement(block *ast.BlockStatement, env *object.Environment) object.Object {
	var result object.Object = i.nullObj

	for _, stmt := range block.Statements {
		result = i.Evaluate(stmt, env)

		if result != nil {
			typ := result.Type()
			if typ == object.RETURN_OBJ || typ == object.ERROR_OBJ {
				return result
			}
		}
	}

	return result
}

func (i *TreeWalkInterpreter) evalIdentifier(node *ast.Identifier, env *object.Environment) object.Object {
	if value, ok := env.Get(node.Value); ok {
		return value
	}
	if builtin, ok := object.LookupBuiltin(i.builtins, node.Value); ok {
		return builtin
	}
	return newError("identifier not found: %s", node.Value)
}

func (i *TreeWalkInterpreter) evalPrefixExpression(op string, right object.Object) object.Object {
	switch op {
	case "!":
		return i.boolObj(!object.IsTruthy(right))
	case "-":
		integer, ok := right.(*object.Integer)
		if !ok {
			return newError("unknown operator: -%s", right.Type())
		}
		return &object.Integer{Value: -integer.Value}
	default:
		return newError("unknown operator: %s%s", op, right.Type())
	}
}

func (i *TreeWalkInterpreter) evalInfixExpression(op string, left, right object.Object) object.Object {
	switch {
	case left.Type() == object.INT_OBJ && right.Type() == object.INT_OBJ:
		return i.evalIntegerInfix(op, left.(*object.Integer), right.(*object.Integer))
	case left.Type() == object.STR_OBJ && right.Type() == object.STR_OBJ:
		return i.evalStringInfix(op, left.(*object.String), right.(*object.String))
	case left.Type() == object.BOOL_OBJ && right.Type() == object.BOOL_OBJ:
		return i.evalBooleanInfix(op, left.(*object.Boolean), right.(*object.Boolean))
	default:
		return newError("type mismatch: %s %s %s", left.Type(), op, right.Type())
	}
}

func (i *TreeWalkInterpreter) evalIntegerInfix(op string, left, right *object.Integer) object.Object {
	lv, rv := left.Value, right.Value

	switch op {
	case "+":
		return &object.Integer{Value: lv + rv}
	case "-":
		return &object.Integer{Value: lv - rv}
	case "*":
		return &object.Integer{Value: lv * rv}
	case "/":
		if rv == 0 {
			return newError("division by zero")
		}
		return &object.Integer{Value: lv / rv}
	case "<":
		return i.boolObj(lv < rv)
	case "<=":
		return i.boolObj(lv <= rv)
	case ">":
		return i.boolObj(lv > rv)
	case ">=":
		return i.boolObj(lv >= rv)
	case "==":
		return i.boolObj(lv == rv)
	case "!=":
		return i.boolObj(lv != rv)
	default:
		return newError("unknown operator: %s %s %s", left.Type(), op, right.Type())
	}
}

func (i *TreeWalkInterpreter) evalStringInfix(op string, left, right *object.String) object.Object {
	if op != "+" {
		return newError("unknown operator: %s %s %s", left.Type(), op, right.Type())
	}
	return &object.String{Value: left.Value + right.Value}
}

func (i *TreeWalkInterpreter) evalBooleanInfix(op string, left, right *object.Boolean) object.Object {
	switch op {
	case "==":
		return i.boolObj(left.Value == right.Value)
	case "!=":
		return i.boolObj(left.Value != right.Value)
	default:
		return newError("unknown operator: %s %s %s", left.Type(), op, right.Type())
	}
}

func (i *TreeWalkInterpreter) evalIfExpression(ie *ast.IfExpression, env *object.Environment) object.Object {
	cond := i.Evaluate(ie.Condition, env)
	if object.IsError(cond) {
		return cond
	}

	if object.IsTruthy(cond) {
		return i.evalBlockStatement(ie.Consequence, env)
	}
	if ie.Alternative != nil {
		return i.evalBlockStatement(ie.Alternative, env)
	}
	return i.nullObj
}

// evalExpressions evaluates exprs left to right. On the first error it
// returns (nil, the error).
func (i *TreeWalkInterpreter) evalExpressions(exprs []ast.Expression, env *object.Environment) ([]object.Object, object.Object) {
	result := make([]object.Object, 0, len(exprs))

	for _, expr := range exprs {
		value := i.Evaluate(expr, env)
		if object.IsError(value) {
			return nil, value
		}
		result = append(result, value)
	}

	return result, nil
}

func (i *TreeWalkInterpreter) applyFunction(fn object.Object, args []object.Object) object.Object {
	switch fn := fn.(type) {
	case *object.Function:
		if len(args) != len(fn.Parameters) {
			return newError("wrong number of arguments. got=%d, want=%d", len(args), len(fn.Parameters))
		}
		inner := object.NewEnclosedEnvironment(fn.Env)
		for idx, param := range fn.Parameters {
			inner.Set(param.Value, args[idx])
		}
		result := i.evalBlockStatement(fn.Body, inner)
		if rv, ok := result.(*object.ReturnValue); ok {
			return rv.Value
		}
		return result

	case *object.Builtin:
		if result := fn.Fn(args...); result != nil {
			return result
		}
		return i.nullObj

	default:
		return newError("not a function: %s", fn.Type())
	}
}

func (i *TreeWalkInterpreter) evalDictLiteral(node *ast.DictLiteral, env *object.Environment) object.Object {
	pairs := make(map[object.HashKey]object.DictPair, len(node.Pairs))

	for _, pair := range node.Pairs {
		key := i.Evaluate(pair.Key, env)
		if object.IsError(key) {
			return key
		}
		hashable, ok := key.(object.Hashable)
		if !ok {
			return newError("unusable as dict key: %s", key.Type())
		}

		value := i.Evaluate(pair.Value, env)
		if object.IsError(value) {
			return value
		}
		pairs[hashable.HashKey()] = object.DictPair{Key: key, Value: value}
	}

	return &object.Dict{Pairs: pairs}
}

func (i *TreeWalkInterpreter) evalIndexExpression(left, index object.Object) object.Object {
	switch left := left.(type) {
	case *object.Array:
		idx, ok := index.(*object.Integer)
		if !ok {
			return newError("index operator not supported: %s", index.Type())
		}
		if idx.Value < 0 || idx.Value > int64(len(left.Elements)-1) {
			return i.nullObj
		}
		return left.Elements[idx.Value]

	case *object.Dict:
		key, ok := index.(object.Hashable)
		if !ok {
			return newError("unusable as dict key: %s", index.Type())
		}
		pair, ok := left.Pairs[key.HashKey()]
		if !ok {
			return i.nullObj
		}
		return pair.Value

	default:
		return newError("index operator not supported: %s", left.Type())
	}
}

func (i *TreeWalkInterpreter) boolObj(value bool) *object.Boolean {
	if value {
		return i.trueObj
	}
	return i.falseObj
}

func newError(format string, args ...interface{}) *object.Error {
	return &object.Error{Message: fmt.Sprintf(format, args...)}
}
