// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Predefined system equates
var sysEquate = map[string]string{
	"LINENO":      "0",
	"WORD_SIZE":   fmt.Sprintf("%v", WORD_SIZE),
	"LOCALS_MAX":  fmt.Sprintf("%v", LOCALS_MAX),
	"GLOBALS_MAX": fmt.Sprintf("%v", GLOBALS_MAX),
}

// Assembler is a single pass macro assembler for the ZM2 machine.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Statement []Statement // List of assembled statements.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to code offsets.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value uint64, err error) {
	invert := false
	if len(word) > 1 && word[0] == '~' {
		invert = true
		word = word[1:]
	}
	if len(word) > 0 && word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		err = ErrParseCharacter(strings.Trim(word, "'"))
		return
	}

	v64, err := strconv.ParseInt(word, 0, 64)
	if err == nil {
		value = uint64(v64)
	} else {
		value, err = strconv.ParseUint(word, 0, 64)
		if err != nil {
			err = ErrParseNumber(word)
			return
		}
	}

	if invert {
		value = ^value
	}

	return
}

// variableOf decodes sp, l0-l14 and g0-g239.
func variableOf(word string) (v Variable, ok bool, err error) {
	if word == "sp" {
		v, ok = StackVariable(), true
		return
	}

	if len(word) < 2 || (word[0] != 'l' && word[0] != 'g') {
		return
	}

	index, perr := strconv.Atoi(word[1:])
	if perr != nil {
		return
	}

	ok = true
	if word[0] == 'l' {
		v = LocalVariable(index)
	} else {
		v = GlobalVariable(index)
	}
	if !v.Valid() {
		err = ErrVariableInvalid
	}

	return
}

// specifierOf encodes a destination variable specifier.
func (asm *Assembler) specifierOf(word string) (spec uint8, err error) {
	v, ok, err := variableOf(word)
	if err != nil {
		return
	}
	if ok {
		spec = v.Specifier()
		return
	}

	value, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if value > 0xff {
		err = ErrVariableInvalid
		return
	}

	spec = uint8(value)
	return
}

// operandOf encodes a type byte and operand. A packed address operand
// returns the label it must be linked to.
func (asm *Assembler) operandOf(word string) (data []byte, label string, err error) {
	v, ok, err := variableOf(word)
	if err != nil {
		return
	}
	if ok {
		data = []byte{byte(OPERAND_VARIABLE), v.Specifier()}
		return
	}

	if strings.HasPrefix(word, "&") {
		label = word[1:]
		if len(label) == 0 {
			err = ErrTargetInvalid
			return
		}
		data = []byte{byte(OPERAND_PACKED), 0, 0, 0, 0}
		return
	}

	value, err := asm.valueOf(word)
	if err != nil {
		return
	}

	if value <= 0xff {
		data = []byte{byte(OPERAND_SMALL), uint8(value)}
	} else {
		data = binary.BigEndian.AppendUint64([]byte{byte(OPERAND_LARGE)}, value)
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value uint64, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var value64 uint64
		value64, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be variables
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeUint64(value64)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	if st_int64, ok := st_int.Int64(); ok {
		value = uint64(st_int64)
		return
	}
	value, ok = st_int.Uint64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	return
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	re := regexp.MustCompile(`'\\?[^']'`)
	line = re.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	re = regexp.MustCompile(`\$\([^\$]*\)`)
	line = re.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%#x", value)
	})
	if err != nil {
		return
	}

	words = slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		err = asm.defineLabel(words[0][:len(words[0])-1])
		if err != nil {
			return
		}
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// Local labels are unique per expansion.
		mangle := fmt.Sprintf("%v_%v_", name, lineno)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", mangle)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// defineLabel sets label to the current address.
func (asm *Assembler) defineLabel(label string) (err error) {
	_, ok := asm.Label[label]
	if ok || len(label) == 0 {
		err = ErrLabelDuplicate
		return
	}

	if asm.Label == nil {
		asm.Label = make(map[string]int, 16)
	}
	asm.Label[label] = asm.currentAddr()
	return
}

// currentAddr gets the current code offset.
func (asm *Assembler) currentAddr() int {
	if len(asm.Statement) == 0 {
		return 0
	}

	last := asm.Statement[len(asm.Statement)-1]

	return last.Addr + len(last.Bytes)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.Statement = asm.Statement[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	for attr, val := range asm.predefine {
		asm.Equate[attr] = val
	}

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(strings.ReplaceAll(text_comment[0], "\t", " "))
		words := slices.DeleteFunc(strings.Split(line, " "), func(a string) bool { return len(a) == 0 })

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of labels.
	for n := range asm.Statement {
		op := &asm.Statement[n]

		if op.Link == LINK_NONE {
			continue
		}
		err = asm.link(op)
		if err != nil {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			return
		}
	}

	prog = &Program{
		Statements: slices.Clone(asm.Statement),
		Labels:     maps.Clone(asm.Label),
	}
	if prog.Labels == nil {
		prog.Labels = map[string]int{}
	}

	return
}

// link resolves the label fixup of a statement.
func (asm *Assembler) link(op *Statement) (err error) {
	addr, ok := asm.Label[op.LinkLabel]
	if !ok {
		err = ErrLabelMissing(op.LinkLabel)
		return
	}

	field := op.Bytes[op.LinkAt:]
	switch op.Link {
	case LINK_PACKED:
		binary.BigEndian.PutUint32(field, uint32(addr))
	case LINK_RELATIVE:
		offset := addr - (op.Addr + op.LinkAt + 2)
		if offset < math.MinInt16 || offset > math.MaxInt16 {
			err = ErrJumpRange
			return
		}
		binary.BigEndian.PutUint16(field, uint16(int16(offset)))
	}

	return
}

// mnemonicMap maps instruction names to opcodes.
var mnemonicMap = map[string]Opcode{
	"rtrue":  OP_RTRUE,
	"rfalse": OP_RFALSE,
	"quit":   OP_QUIT,
	"nop":    OP_NOP,
	"ret":    OP_RET,
	"jump":   OP_JUMP,
	"load":   OP_LOAD,
	"add":    OP_ADD,
	"sub":    OP_SUB,
	"call":   OP_CALL,
	"store":  OP_STORE,
	"push":   OP_PUSH,
	"pull":   OP_PULL,
}

// operandCount is the number of source words each instruction takes.
var operandCount = map[Opcode]int{
	OP_RTRUE:  0,
	OP_RFALSE: 0,
	OP_QUIT:   0,
	OP_NOP:    0,
	OP_RET:    1,
	OP_JUMP:   1,
	OP_LOAD:   2,
	OP_ADD:    3,
	OP_SUB:    3,
	OP_CALL:   2,
	OP_STORE:  2,
	OP_PUSH:   1,
	OP_PULL:   1,
}

// parseDirective evaluates the data and layout directives.
func (asm *Assembler) parseDirective(words []string) (data []byte, err error) {
	switch words[0] {
	case ".routine":
		// .routine NAME LOCALS
		if len(words) != 3 {
			err = ErrRoutineSyntax
			return
		}
		var locals uint64
		locals, err = asm.valueOf(words[2])
		if err != nil {
			return
		}
		if locals > 0xff {
			err = ErrValueRange
			return
		}
		err = asm.defineLabel(words[1])
		if err != nil {
			return
		}
		data = []byte{uint8(locals)}
	case ".align":
		if len(words) != 2 {
			err = ErrAlignSyntax
			return
		}
		var size uint64
		size, err = asm.valueOf(words[1])
		if err != nil {
			return
		}
		if size == 0 || size > 0x1000 {
			err = ErrAlignSyntax
			return
		}
		pad := (size - uint64(asm.currentAddr())%size) % size
		data = make([]byte, pad)
	case ".byte":
		for _, word := range words[1:] {
			var value uint64
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			if value > 0xff {
				err = ErrValueRange
				return
			}
			data = append(data, uint8(value))
		}
	case ".word":
		for _, word := range words[1:] {
			var value uint64
			value, err = asm.valueOf(word)
			if err != nil {
				return
			}
			data = binary.BigEndian.AppendUint64(data, value)
		}
	default:
		err = ErrInstructionInvalid
	}

	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	// no-op
	if len(words) == 0 {
		return
	}

	opcode := Statement{LineNo: lineno, Words: words}

	defer func() {
		if err != nil || len(opcode.Bytes) == 0 {
			return
		}
		opcode.Addr = asm.currentAddr()
		asm.Statement = append(asm.Statement, opcode)
	}()

	if strings.HasPrefix(words[0], ".") {
		opcode.Bytes, err = asm.parseDirective(words)
		return
	}

	op, ok := mnemonicMap[words[0]]
	if !ok {
		err = ErrOpcodeInvalid
		return
	}

	args := words[1:]
	need := operandCount[op]
	if len(args) < need {
		err = ErrOpcodeMissing
		return
	}
	if len(args) > need {
		err = ErrOpcodeExtraArgs
		return
	}

	code := binary.BigEndian.AppendUint64(nil, uint64(op))

	// operand appends a type byte and operand.
	operand := func(word string) (err error) {
		data, label, err := asm.operandOf(word)
		if err != nil {
			return
		}
		if len(label) != 0 {
			opcode.LinkLabel = label
			opcode.Link = LINK_PACKED
			opcode.LinkAt = len(code) + 1
		}
		code = append(code, data...)
		return
	}

	// variable appends a variable specifier.
	variable := func(word string) (err error) {
		spec, err := asm.specifierOf(word)
		if err != nil {
			return
		}
		code = append(code, spec)
		return
	}

	switch op {
	case OP_RTRUE, OP_RFALSE, OP_QUIT, OP_NOP:
		// No operands.
	case OP_PUSH, OP_RET:
		err = operand(args[0])
	case OP_PULL:
		err = variable(args[0])
	case OP_STORE:
		err = variable(args[0])
		if err == nil {
			err = operand(args[1])
		}
	case OP_LOAD:
		err = variable(args[0])
		if err == nil {
			err = variable(args[1])
		}
	case OP_ADD, OP_SUB:
		err = operand(args[0])
		if err == nil {
			err = operand(args[1])
		}
		if err == nil {
			err = variable(args[2])
		}
	case OP_JUMP:
		target := args[0]
		value, verr := asm.valueOf(target)
		if verr == nil {
			offset := int64(value)
			if offset < math.MinInt16 || offset > math.MaxInt16 {
				err = ErrJumpRange
				return
			}
			code = binary.BigEndian.AppendUint16(code, uint16(int16(offset)))
		} else {
			opcode.LinkLabel = target
			opcode.Link = LINK_RELATIVE
			opcode.LinkAt = len(code)
			code = append(code, 0, 0)
		}
	case OP_CALL:
		target := args[0]
		if value, verr := asm.valueOf(target); verr == nil {
			if value > math.MaxUint32 {
				err = ErrValueRange
				return
			}
			code = append(code, byte(OPERAND_PACKED))
			code = binary.BigEndian.AppendUint32(code, uint32(value))
		} else {
			err = operand("&" + strings.TrimPrefix(target, "&"))
			if err != nil {
				return
			}
		}
		err = variable(args[1])
		if err != nil {
			return
		}
		// The return address is rounded up to the next word.
		end := asm.currentAddr() + len(code)
		code = append(code, make([]byte, (WORD_SIZE-end%WORD_SIZE)%WORD_SIZE)...)
	}
	if err != nil {
		return
	}

	opcode.Bytes = code
	return
}
