/*

Process of compilation

Serialized Syntax Tree ->
	ast.Decode ->
Abstract Syntax Tree (ast) ->
	irgen ->
Intermediate Representation (ir) ->
	dump ->
IR Text

Type checking, layout, and constant evaluation happen inside irgen
backed by the ctype package. Code generation and linking are separate
tools consuming the IR text.

*/
package compiler
