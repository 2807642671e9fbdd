// Package cpu implements the processor and assembler for the ZM2 machine.
//
// The CPU consists of a program counter (PC), a stack pointer (SP), and a
// frame pointer (FP). The stack lives at the top of the story's dynamic data
// section, grows toward lower addresses, and holds 64-bit words. Call frames
// are built on the stack from the push and pop primitives alone.
//
// The assembler provides an assembly language for the ZM2 instruction set,
// supporting macros, labels, equates, routines, and compile-time expression
// evaluation, and can emit complete story files.
package cpu
