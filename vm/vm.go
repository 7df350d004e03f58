// Package vm executes compiled bytecode on an operand stack with call
// frames. One VM runs one program; runtime failures come back from Run
// as errors and leave the machine unusable until reset with fresh
// bytecode.
package vm

import (
	"fmt"
	"io"
	"os"

	"tarn/compiler"
	"tarn/object"
)

// Default capacities. The operand stack and the frame stack are hard
// bounds; overflowing either is a fatal runtime error.
const (
	DefaultStackSize   = 2048
	DefaultGlobalsSize = 65536
	DefaultMaxFrames   = 1024
)

// RuntimeError is a fatal execution failure reported by Run.
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

func runtimeError(format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

// Options sizes a VM and directs the output of the puts builtin.
// The zero value of any field selects its default.
type Options struct {
	StackSize   int
	GlobalsSize int
	MaxFrames   int
	Output      io.Writer
}

func (o Options) withDefaults() Options {
	if o.StackSize <= 0 {
		o.StackSize = DefaultStackSize
	}
	if o.GlobalsSize <= 0 {
		o.GlobalsSize = DefaultGlobalsSize
	}
	if o.MaxFrames <= 0 {
		o.MaxFrames = DefaultMaxFrames
	}
	if o.Output == nil {
		o.Output = os.Stdout
	}
	return o
}

// VM is the stack machine. sp always points at the next free stack
// slot; the value on top of the stack is stack[sp-1].
type VM struct {
	constants []object.Object

	stack []object.Object
	sp    int

	globals []object.Object

	frames      []*Frame
	framesIndex int

	builtins []object.NamedBuiltin

	trueObj  *object.Boolean
	falseObj *object.Boolean
	nullObj  *object.Null
}

// New creates a VM for the given bytecode with default options.
func New(bytecode *compiler.Bytecode) *VM {
	return NewWithOptions(bytecode, Options{})
}

// NewWithOptions creates a VM with explicit capacities and output.
func NewWithOptions(bytecode *compiler.Bytecode, opts Options) *VM {
	opts = opts.withDefaults()

	mainFn := &object.CompiledFunction{Instructions: bytecode.Instructions}
	frames := make([]*Frame, opts.MaxFrames)
	frames[0] = NewFrame(mainFn, 0)

	return &VM{
		constants:   bytecode.Constants,
		stack:       make([]object.Object, opts.StackSize),
		globals:     make([]object.Object, opts.GlobalsSize),
		frames:      frames,
		framesIndex: 1,
		builtins:    object.StandardBuiltins(opts.Output),
		trueObj:     &object.Boolean{Value: true},
		falseObj:    &object.Boolean{Value: false},
		nullObj:     &object.Null{},
	}
}

// NewWithGlobalsStore creates a VM sharing a globals array with earlier
// runs, the way the REPL keeps bindings alive across lines.
func NewWithGlobalsStore(bytecode *compiler.Bytecode, globals []object.Object, opts Options) *VM {
	vm := NewWithOptions(bytecode, opts)
	vm.globals = globals
	return vm
}

// Globals exposes the globals array for sharing with a successor VM.
func (vm *VM) Globals() []object.Object { return vm.globals }

// LastPopped returns the value most recently popped off the stack. A
// trailing expression statement compiles to OP_POP, so this is how its
// result stays observable after Run.
func (vm *VM) LastPopped() object.Object {
	return vm.stack[vm.sp]
}

// Run drives the fetch-decode-execute loop until the main frame's
// instructions are exhausted or a runtime error occurs.
func (vm *VM) Run() error {
	for vm.currentFrame().ip < len(vm.currentFrame().Instructions())-1 {
		vm.currentFrame().ip++

		frame := vm.currentFrame()
		ip := frame.ip
		ins := frame.Instructions()
		op := compiler.Opcode(ins[ip])

		switch op {
		case compiler.OP_CONSTANT:
			constIndex := compiler.ReadUint16(ins[ip+1:])
			frame.ip += 2
			if err := vm.push(vm.constants[constIndex]); err != nil {
				return err
			}

		case compiler.OP_POP:
			vm.pop()

		case compiler.OP_ADD, compiler.OP_SUB, compiler.OP_MUL, compiler.OP_DIV:
			if err := vm.executeBinaryOperation(op); err != nil {
				return err
			}

		case compiler.OP_TRUE:
			if err := vm.push(vm.trueObj); err != nil {
				return err
			}

		case compiler.OP_FALSE:
			if err := vm.push(vm.falseObj); err != nil {
				return err
			}

		case compiler.OP_EQUAL, compiler.OP_NOT_EQUAL, compiler.OP_GREATER, compiler.OP_GREATER_EQUAL:
			if err := vm.executeComparison(op); err != nil {
				return err
			}

		case compiler.OP_MINUS:
			if err := vm.executeMinusOperator(); err != nil {
				return err
			}

		case compiler.OP_BANG:
			operand := vm.pop()
			if err := vm.push(vm.boolObj(!object.IsTruthy(operand))); err != nil {
				return err
			}

		case compiler.OP_JUMP:
			target := int(compiler.ReadUint16(ins[ip+1:]))
			frame.ip = target - 1

		case compiler.OP_JUMP_NOT_TRUTHY:
			target := int(compiler.ReadUint16(ins[ip+1:]))
			frame.ip += 2
			condition := vm.pop()
			if !object.IsTruthy(condition) {
				frame.ip = target - 1
			}

		case compiler.OP_SET_GLOBAL:
			index := compiler.ReadUint16(ins[ip+1:])
			frame.ip += 2
			vm.globals[index] = vm.pop()

		case compiler.OP_GET_GLOBAL:
			index := compiler.ReadUint16(ins[ip+1:])
			frame.ip += 2
			if err := vm.push(vm.globals[index]); err != nil {
				return err
			}

		case compiler.OP_SET_LOCAL:
			index := int(compiler.ReadUint8(ins[ip+1:]))
			frame.ip++
			vm.stack[frame.basePointer+index] = vm.pop()

		case compiler.OP_GET_LOCAL:
			index := int(compiler.ReadUint8(ins[ip+1:]))
			frame.ip++
			if err := vm.push(vm.stack[frame.basePointer+index]); err != nil {
				return err
			}

		case compiler.OP_ARRAY:
			numElements := int(compiler.ReadUint16(ins[ip+1:]))
			frame.ip += 2

			array := vm.buildArray(vm.sp-numElements, vm.sp)
			vm.sp -= numElements
			if err := vm.push(array); err != nil {
				return err
			}

		case compiler.OP_HASH:
			numElements := int(compiler.ReadUint16(ins[ip+1:]))
			frame.ip += 2

			dict, err := vm.buildDict(vm.sp-numElements, vm.sp)
			if err != nil {
				return err
			}
			vm.sp -= numElements
			if err := vm.push(dict); err != nil {
				return err
			}

		case compiler.OP_INDEX:
			index := vm.pop()
			left := vm.pop()
			if err := vm.executeIndexExpression(left, index); err != nil {
				return err
			}

		case compiler.OP_CALL:
			numArgs := int(compiler.ReadUint8(ins[ip+1:]))
			frame.ip++
			if err := vm.executeCall(numArgs); err != nil {
				return err
			}

		case compiler.OP_RETURN_VALUE:
			returnValue := vm.pop()

			finished := vm.popFrame()
			vm.sp = finished.basePointer - 1

			if err := vm.push(returnValue); err != nil {
				return err
			}

		case compiler.OP_RETURN:
			finished := vm.popFrame()
			vm.sp = finished.basePointer - 1

			if err := vm.push(vm.nullObj); err != nil {
				return err
			}

		case compiler.OP_GET_BUILTIN:
			index := int(compiler.ReadUint8(ins[ip+1:]))
			frame.ip++
			if err := vm.push(vm.builtins[index].Builtin); err != nil {
				return err
			}

		case compiler.OP_CLOSURE:
			constIndex := int(compiler.ReadUint16(ins[ip+1:]))
			// the free-variable count is reserved and currently always 0
			frame.ip += 3
			if err := vm.push(vm.constants[constIndex]); err != nil {
				return err
			}

		default:
			return runtimeError("unknown opcode %d at ip %d", op, ip)
		}
	}

	return nil
}

func (vm *VM) executeBinaryOperation(op compiler.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch {
	case left.Type() == object.INT_OBJ && right.Type() == object.INT_OBJ:
		return vm.executeBinaryIntegerOperation(op, left.(*object.Integer), right.(*object.Integer))
	case left.Type() == object.STR_OBJ && right.Type() == object.STR_OBJ && op == compiler.OP_ADD:
		return vm.push(&object.String{Value: left.(*object.String).Value + right.(*object.String).Value})
	default:
		return runtimeError("unsupported types for binary operation: %s %s", left.Type(), right.Type())
	}
}

func (vm *VM) executeBinaryIntegerOperation(op compiler.Opcode, left, right *object.Integer) error {
	lv, rv := left.Value, right.Value

	var result int64
	switch op {
	case compiler.OP_ADD:
		result = lv + rv
	case compiler.OP_SUB:
		result = lv - rv
	case compiler.OP_MUL:
		result = lv * rv
	case compiler.OP_DIV:
		if rv == 0 {
			return runtimeError("divide by zero")
		}
		result = lv / rv
	default:
		return runtimeError("unknown integer operator %d", op)
	}

	return vm.push(&object.Integer{Value: result})
}

// executeComparison pops two operands and pushes a bool. Equality is
// structural; ordering is defined for integers only.
func (vm *VM) executeComparison(op compiler.Opcode) error {
	right := vm.pop()
	left := vm.pop()

	switch op {
	case compiler.OP_EQUAL:
		return vm.push(vm.boolObj(object.Equals(left, right)))
	case compiler.OP_NOT_EQUAL:
		return vm.push(vm.boolObj(!object.Equals(left, right)))
	}

	leftInt, lok := left.(*object.Integer)
	rightInt, rok := right.(*object.Integer)
	if !lok || !rok {
		return runtimeError("unsupported types for binary operation: %s %s", left.Type(), right.Type())
	}

	switch op {
	case compiler.OP_GREATER:
		return vm.push(vm.boolObj(leftInt.Value > rightInt.Value))
	case compiler.OP_GREATER_EQUAL:
		return vm.push(vm.boolObj(leftInt.Value >= rightInt.Value))
	default:
		return runtimeError("unknown comparison operator %d", op)
	}
}

func (vm *VM) executeMinusOperator() error {
	operand := vm.pop()

	integer, ok := operand.(*object.Integer)
	if !ok {
		return runtimeError("unsupported type for negation: %s", operand.Type())
	}
	return vm.push(&object.Integer{Value: -integer.Value})
}

func (vm *VM) buildArray(start, end int) object.Object {
	elements := make([]object.Object, end-start)
	copy(elements, vm.stack[start:end])
	return &object.Array{Elements: elements}
}

func (vm *VM) buildDict(start, end int) (object.Object, error) {
	pairs := make(map[object.HashKey]object.DictPair, (end-start)/2)

	for i := start; i < end; i += 2 {
		key := vm.stack[i]
		value := vm.stack[i+1]

		hashable, ok := key.(object.Hashable)
		if !ok {
			return nil, runtimeError("unusable as dict key: %s", key.Type())
		}
		pairs[hashable.HashKey()] = object.DictPair{Key: key, Value: value}
	}

	return &object.Dict{Pairs: pairs}, nil
}

func (vm *VM) executeIndexExpression(left, index object.Object) error {
	switch left := left.(type) {
	case *object.Array:
		idx, ok := index.(*object.Integer)
		if !ok {
			return runtimeError("index operator not supported: %s", index.Type())
		}
		max := int64(len(left.Elements) - 1)
		if idx.Value < 0 || idx.Value > max {
			return vm.push(vm.nullObj)
		}
		return vm.push(left.Elements[idx.Value])

	case *object.Dict:
		key, ok := index.(object.Hashable)
		if !ok {
			return runtimeError("unusable as dict key: %s", index.Type())
		}
		pair, ok := left.Pairs[key.HashKey()]
		if !ok {
			return vm.push(vm.nullObj)
		}
		return vm.push(pair.Value)

	default:
		return runtimeError("index operator not supported: %s", left.Type())
	}
}

// executeCall dispatches on the callee sitting below the arguments on
// the stack.
func (vm *VM) executeCall(numArgs int) error {
	callee := vm.stack[vm.sp-1-numArgs]

	switch callee := callee.(type) {
	case *object.CompiledFunction:
		if numArgs != callee.NumParameters {
			return runtimeError("wrong number of arguments: want=%d, got=%d", callee.NumParameters, numArgs)
		}
		frame := NewFrame(callee, vm.sp-numArgs)
		if err := vm.pushFrame(frame); err != nil {
			return err
		}
		// grow the stack over the local slots
		vm.sp = frame.basePointer + callee.NumLocals
		return nil

	case *object.Builtin:
		args := vm.stack[vm.sp-numArgs : vm.sp]
		result := callee.Fn(args...)

		// drop callee and arguments
		vm.sp = vm.sp - numArgs - 1
		if result != nil {
			return vm.push(result)
		}
		return vm.push(vm.nullObj)

	default:
		return runtimeError("calling non-function: %s", callee.Type())
	}
}

func (vm *VM) push(obj object.Object) error {
	if vm.sp >= len(vm.stack) {
		return runtimeError("stack overflow")
	}
	vm.stack[vm.sp] = obj
	vm.sp++
	return nil
}

func (vm *VM) pop() object.Object {
	obj := vm.stack[vm.sp-1]
	vm.sp--
	return obj
}

func (vm *VM) currentFrame() *Frame {
	return vm.frames[vm.framesIndex-1]
}

func (vm *VM) pushFrame(frame *Frame) error {
	if vm.framesIndex >= len(vm.frames) {
		return runtimeError("frame overflow")
	}
	vm.frames[vm.framesIndex] = frame
	vm.framesIndex++
	return nil
}

func (vm *VM) popFrame() *Frame {
	vm.framesIndex--
	return vm.frames[vm.framesIndex]
}

func (vm *VM) boolObj(value bool) *object.Boolean {
	if value {
		return vm.trueObj
	}
	return vm.falseObj
}
