// Package jsonmc implements the JSON-with-Multiline-strings-and-Comments
// dialect: ordinary JSON plus "//" and "/* */" comments, backtick-delimited
// multiline strings, and "@{VAR}"/"@{VAR:-DEFAULT}" environment expansion.
//
// Parse is a pure function apart from the environment variable lookups it
// performs during expansion; it never touches the filesystem or network.
package jsonmc
