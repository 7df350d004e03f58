package object

import (
	"fmt"
	"io"
)

// NamedBuiltin pairs a builtin with the name user programs call it by.
// The slice order is the contract between the compiler (which addresses
// builtins by index) and the VM (which holds the functions at the same
// indices), so it must never be reordered, only appended to.
type NamedBuiltin struct {
	Name    string
	Builtin *Builtin
}

// BuiltinNames lists the builtins in their canonical index order.
var BuiltinNames = []string{"len", "puts", "first", "last", "rest", "push"}

// StandardBuiltins constructs the builtin set with puts writing to w.
// Each execution engine holds its own copy so nothing global is shared
// between instances.
func StandardBuiltins(w io.Writer) []NamedBuiltin {
	return []NamedBuiltin{
		{"len", &Builtin{Fn: builtinLen}},
		{"puts", &Builtin{Fn: makePuts(w)}},
		{"first", &Builtin{Fn: builtinFirst}},
		{"last", &Builtin{Fn: builtinLast}},
		{"rest", &Builtin{Fn: builtinRest}},
		{"push", &Builtin{Fn: builtinPush}},
	}
}

// LookupBuiltin finds a builtin by name in a StandardBuiltins slice.
func LookupBuiltin(builtins []NamedBuiltin, name string) (*Builtin, bool) {
	for _, b := range builtins {
		if b.Name == name {
			return b.Builtin, true
		}
	}
	return nil, false
}

func wrongNumArgs(got, want int) *Error {
	return &Error{Message: fmt.Sprintf("wrong number of arguments. got=%d, want=%d", got, want)}
}

func builtinLen(args ...Object) Object {
	if len(args) != 1 {
		return wrongNumArgs(len(args), 1)
	}

	switch arg := args[0].(type) {
	case *String:
		return &Integer{Value: int64(len(arg.Value))}
	case *Array:
		return &Integer{Value: int64(len(arg.Elements))}
	default:
		return &Error{Message: fmt.Sprintf("argument to `len` not supported, got %s", arg.Type())}
	}
}

func makePuts(w io.Writer) BuiltinFunction {
	return func(args ...Object) Object {
		for _, arg := range args {
			fmt.Fprintln(w, arg.Inspect())
		}
		return nil
	}
}

func builtinFirst(args ...Object) Object {
	if len(args) != 1 {
		return wrongNumArgs(len(args), 1)
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return &Error{Message: fmt.Sprintf("argument to `first` must be ARRAY, got %s", args[0].Type())}
	}
	if len(arr.Elements) > 0 {
		return arr.Elements[0]
	}
	return nil
}

func builtinLast(args ...Object) Object {
	if len(args) != 1 {
		return wrongNumArgs(len(args), 1)
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return &Error{Message: fmt.Sprintf("argument to `last` must be ARRAY, got %s", args[0].Type())}
	}
	if len(arr.Elements) > 0 {
		return arr.Elements[len(arr.Elements)-1]
	}
	return nil
}

func builtinRest(args ...Object) Object {
	if len(args) != 1 {
		return wrongNumArgs(len(args), 1)
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return &Error{Message: fmt.Sprintf("argument to `rest` must be ARRAY, got %s", args[0].Type())}
	}
	if len(arr.Elements) > 0 {
		rest := make([]Object, len(arr.Elements)-1)
		copy(rest, arr.Elements[1:])
		return &Array{Elements: rest}
	}
	return nil
}

func builtinPush(args ...Object) Object {
	if len(args) != 2 {
		return wrongNumArgs(len(args), 2)
	}
	arr, ok := args[0].(*Array)
	if !ok {
		return &Error{Message: fmt.Sprintf("argument to `push` must be ARRAY, got %s", args[0].Type())}
	}

	elements := make([]Object, len(arr.Elements)+1)
	copy(elements, arr.Elements)
	elements[len(arr.Elements)] = args[1]
	return &Array{Elements: elements}
}
