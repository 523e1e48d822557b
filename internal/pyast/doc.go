// Package pyast is the structural tree of a Python source file.
//
// Only statements are modeled: logical lines, decorators, def/class headers,
// import statements and indented blocks. Expressions stay as token slices;
// expr.go offers the small set of helpers needed to read calls, literal
// containers and dotted names out of them. Every node keeps its tokens so
// rewrites can be expressed as edits over the original bytes.
package pyast
