// Package irtext is a small textual front end for pkg/ir: a demo/test
// entry point standing in for the bitcode reader a full toolchain would
// front this backend with. It reads a parenthesized, s-expression-like
// notation for modules, functions, blocks, and instructions and builds
// the same ir.Module values a caller could otherwise only construct in
// Go.
//
// It is not a replacement for pkg/ir's own contract: nothing downstream
// of the parser treats this grammar as authoritative, and a caller is
// always free to build ir.Function values directly instead.
package irtext

// TokenType identifies one lexical token kind.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal

	TokenLParen // (
	TokenRParen // )

	TokenIdent  // bare words: module, func, add, i32, entry, ...
	TokenGlobal // @name
	TokenReg    // %123
	TokenInt    // 42, -7
	TokenFloat  // 1.5, -0.25
)

var tokenNames = map[TokenType]string{
	TokenEOF:     "EOF",
	TokenIllegal: "ILLEGAL",
	TokenLParen:  "(",
	TokenRParen:  ")",
	TokenIdent:   "IDENT",
	TokenGlobal:  "GLOBAL",
	TokenReg:     "REG",
	TokenInt:     "INT",
	TokenFloat:   "FLOAT",
}

func (t TokenType) String() string {
	if n, ok := tokenNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// Token is one lexical unit plus its source position, for error messages.
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}
