// code.go defines the bytecode encoding shared by the compiler and the
// virtual machine: the opcode set, the operand width table, instruction
// assembly and decoding, and a disassembler for diagnostics and tests.

package compiler

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Instructions is a flat byte stream of (opcode, operands) records.
// Operands are big-endian with widths fixed by the definition table.
type Instructions []byte

// Opcode selects the operation of a bytecode instruction.
type Opcode byte

const (
	// OP_CONSTANT pushes constants[operand] onto the stack.
	OP_CONSTANT Opcode = iota
	OP_POP

	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV

	OP_TRUE
	OP_FALSE

	OP_EQUAL
	OP_NOT_EQUAL
	OP_GREATER
	OP_GREATER_EQUAL

	OP_MINUS
	OP_BANG

	OP_JUMP_NOT_TRUTHY
	OP_JUMP

	OP_GET_GLOBAL
	OP_SET_GLOBAL
	OP_GET_LOCAL
	OP_SET_LOCAL

	OP_ARRAY
	OP_HASH
	OP_INDEX

	OP_CALL
	OP_RETURN_VALUE
	OP_RETURN

	OP_GET_BUILTIN
	OP_CLOSURE
)

// Definition describes one opcode: its mnemonic and the byte width of
// each operand. The width table is authoritative for encode and decode.
type Definition struct {
	Name          string
	OperandWidths []int
}

var definitions = map[Opcode]*Definition{
	OP_CONSTANT:        {"OP_CONSTANT", []int{2}},
	OP_POP:             {"OP_POP", []int{}},
	OP_ADD:             {"OP_ADD", []int{}},
	OP_SUB:             {"OP_SUB", []int{}},
	OP_MUL:             {"OP_MUL", []int{}},
	OP_DIV:             {"OP_DIV", []int{}},
	OP_TRUE:            {"OP_TRUE", []int{}},
	OP_FALSE:           {"OP_FALSE", []int{}},
	OP_EQUAL:           {"OP_EQUAL", []int{}},
	OP_NOT_EQUAL:       {"OP_NOT_EQUAL", []int{}},
	OP_GREATER:         {"OP_GREATER", []int{}},
	OP_GREATER_EQUAL:   {"OP_GREATER_EQUAL", []int{}},
	OP_MINUS:           {"OP_MINUS", []int{}},
	OP_BANG:            {"OP_BANG", []int{}},
	OP_JUMP_NOT_TRUTHY: {"OP_JUMP_NOT_TRUTHY", []int{2}},
	OP_JUMP:            {"OP_JUMP", []int{2}},
	OP_GET_GLOBAL:      {"OP_GET_GLOBAL", []int{2}},
	OP_SET_GLOBAL:      {"OP_SET_GLOBAL", []int{2}},
	OP_GET_LOCAL:       {"OP_GET_LOCAL", []int{1}},
	OP_SET_LOCAL:       {"OP_SET_LOCAL", []int{1}},
	OP_ARRAY:           {"OP_ARRAY", []int{2}},
	OP_HASH:            {"OP_HASH", []int{2}},
	OP_INDEX:           {"OP_INDEX", []int{}},
	OP_CALL:            {"OP_CALL", []int{1}},
	OP_RETURN_VALUE:    {"OP_RETURN_VALUE", []int{}},
	OP_RETURN:          {"OP_RETURN", []int{}},
	OP_GET_BUILTIN:     {"OP_GET_BUILTIN", []int{1}},
	OP_CLOSURE:         {"OP_CLOSURE", []int{2, 1}},
}

// Lookup returns the definition of op.
func Lookup(op Opcode) (*Definition, error) {
	def, ok := definitions[op]
	if !ok {
		return nil, fmt.Errorf("opcode %d undefined", op)
	}
	return def, nil
}

// AssembleInstruction encodes an opcode and its operands into
// 1 + sum(widths) bytes, operands big-endian in their fixed widths.
func AssembleInstruction(op Opcode, operands ...int) (Instructions, error) {
	def, err := Lookup(op)
	if err != nil {
		return nil, err
	}
	if len(operands) != len(def.OperandWidths) {
		return nil, fmt.Errorf("opcode %s wants %d operands, got %d",
			def.Name, len(def.OperandWidths), len(operands))
	}

	instructionLen := 1
	for _, w := range def.OperandWidths {
		instructionLen += w
	}

	instruction := make(Instructions, instructionLen)
	instruction[0] = byte(op)

	offset := 1
	for i, operand := range operands {
		width := def.OperandWidths[i]
		switch width {
		case 2:
			binary.BigEndian.PutUint16(instruction[offset:], uint16(operand))
		case 1:
			instruction[offset] = byte(operand)
		}
		offset += width
	}

	return instruction, nil
}

// ReadOperands decodes the operands following an opcode according to
// its definition and reports how many bytes they occupied.
func ReadOperands(def *Definition, ins Instructions) ([]int, int) {
	operands := make([]int, len(def.OperandWidths))
	offset := 0

	for i, width := range def.OperandWidths {
		switch width {
		case 2:
			operands[i] = int(ReadUint16(ins[offset:]))
		case 1:
			operands[i] = int(ReadUint8(ins[offset:]))
		}
		offset += width
	}

	return operands, offset
}

// ReadUint16 reads a big-endian uint16 from the start of ins.
func ReadUint16(ins Instructions) uint16 {
	return binary.BigEndian.Uint16(ins)
}

// ReadUint8 reads a single operand byte from the start of ins.
func ReadUint8(ins Instructions) uint8 {
	return ins[0]
}

// String disassembles the stream, one "%04d mnemonic operands" line per
// instruction.
func (ins Instructions) String() string {
	var b strings.Builder

	i := 0
	for i < len(ins) {
		def, err := Lookup(Opcode(ins[i]))
		if err != nil {
			fmt.Fprintf(&b, "ERROR: %s\n", err)
			i++
			continue
		}

		operands, read := ReadOperands(def, ins[i+1:])
		fmt.Fprintf(&b, "%04d %s\n", i, formatInstruction(def, operands))
		i += 1 + read
	}

	return b.String()
}

func formatInstruction(def *Definition, operands []int) string {
	if len(operands) != len(def.OperandWidths) {
		return fmt.Sprintf("ERROR: operand len %d does not match defined %d",
			len(operands), len(def.OperandWidths))
	}

	switch len(operands) {
	case 0:
		return def.Name
	case 1:
		return fmt.Sprintf("%s %d", def.Name, operands[0])
	case 2:
		return fmt.Sprintf("%s %d %d", def.Name, operands[0], operands[1])
	}
	return fmt.Sprintf("ERROR: unhandled operand count for %s", def.Name)
}
