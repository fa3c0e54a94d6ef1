// Package lexer implements the restartable, byte-oriented tokenizer that
// both the preprocessor and the parser adapter drive. It recognizes the
// closed token set laid out in spec.md §4.1: identifiers, literals,
// operators, keywords, preprocessor-directive keywords, and the
// whitespace-adjacent tokens (newline, line continuation, comments) the
// preprocessor needs to preserve line discipline across macro expansion.
//
// Grounded on original_source/src/sourcepawn_lexer (token_kind.rs, lexer.rs):
// the original drives logos, a regex-table-compiled lexer generator with no
// Go equivalent in the teacher's stack, so TokenKind's closed enum is kept
// but the matching engine here is a hand-rolled scanner over a byte slice.
package lexer

// Kind is the closed set of lexical token kinds.
type Kind int

const (
	Unknown Kind = iota

	Identifier
	IntegerLiteral
	HexLiteral
	BinaryLiteral
	OctodecimalLiteral
	StringLiteral
	CharLiteral
	FloatLiteral

	Newline
	LineContinuation
	LineComment
	BlockComment

	// Keywords.
	KwBool
	KwBreak
	KwCase
	KwChar
	KwClass
	KwConst
	KwContinue
	KwDecl
	KwDefault
	KwDefined
	KwDelete
	KwDo
	KwElse
	KwEnum
	KwFalse
	KwFloat
	KwFor
	KwForward
	KwFunctag
	KwFunction
	KwIf
	KwInt
	KwInvalidFunction
	KwMethodmap
	KwNative
	KwNull
	KwNew
	KwObject
	KwProperty
	KwPublic
	KwReturn
	KwSizeof
	KwStatic
	KwStock
	KwStruct
	KwSwitch
	KwThis
	KwTrue
	KwTypedef
	KwTypeset
	KwUnion
	KwUsing
	KwViewAs
	KwVoid
	KwWhile
	KwNullable

	// Preprocessor directive keywords (only recognized right after a '#' at the start of a line).
	MDefine
	MDeprecate
	MElse
	MElseif
	MEndif
	MEndinput
	MFile
	MIf
	MInclude
	MLeaving
	MLine
	MOptionalNewdecls
	MOptionalSemi
	MPragma
	MRequireNewdecls
	MRequireSemi
	MTryinclude
	MUndef
	MAssert
	MError
	MWarning

	Intrinsics
	Ellipses

	Plus
	Minus
	Star
	Slash
	Percent
	Ampersand
	Bitor
	Bitxor
	Shr
	Ushr
	Shl
	Assign
	Semicolon
	LBrace
	RBrace
	LParen
	RParen
	LBracket
	RBracket

	AssignAdd
	AssignSub
	AssignMul
	AssignDiv
	AssignMod
	AssignBitAnd
	AssignBitOr
	AssignBitXor
	AssignShr
	AssignUshl
	AssignShl

	Increment
	Decrement

	Equals
	NotEquals
	Lt
	Le
	Gt
	Ge
	And
	Or
	Comma
	Not
	Tilde
	Qmark
	Colon
	Scope
	Dot

	EOF
)

var keywords = map[string]Kind{
	"bool":            KwBool,
	"break":           KwBreak,
	"case":            KwCase,
	"char":            KwChar,
	"class":           KwClass,
	"const":           KwConst,
	"continue":        KwContinue,
	"decl":            KwDecl,
	"default":         KwDefault,
	"defined":         KwDefined,
	"delete":          KwDelete,
	"do":              KwDo,
	"else":            KwElse,
	"enum":            KwEnum,
	"false":           KwFalse,
	"float":           KwFloat,
	"for":             KwFor,
	"forward":         KwForward,
	"functag":         KwFunctag,
	"function":        KwFunction,
	"if":              KwIf,
	"int":             KwInt,
	"INVALID_FUNCTION": KwInvalidFunction,
	"methodmap":       KwMethodmap,
	"native":          KwNative,
	"null":            KwNull,
	"new":             KwNew,
	"object":          KwObject,
	"property":        KwProperty,
	"public":          KwPublic,
	"return":          KwReturn,
	"sizeof":          KwSizeof,
	"static":          KwStatic,
	"stock":           KwStock,
	"struct":          KwStruct,
	"switch":          KwSwitch,
	"this":            KwThis,
	"true":            KwTrue,
	"typedef":         KwTypedef,
	"typeset":         KwTypeset,
	"union":           KwUnion,
	"using":           KwUsing,
	"view_as":         KwViewAs,
	"void":            KwVoid,
	"while":           KwWhile,
	"__nullable__":    KwNullable,
}

var directiveKeywords = map[string]Kind{
	"define":            MDefine,
	"deprecate":         MDeprecate,
	"else":              MElse,
	"elseif":            MElseif,
	"endif":             MEndif,
	"endinput":          MEndinput,
	"file":              MFile,
	"if":                MIf,
	"include":           MInclude,
	"leaving":           MLeaving,
	"line":               MLine,
	"optional_newdecls": MOptionalNewdecls,
	"optional_semicolon": MOptionalSemi,
	"pragma":            MPragma,
	"require_newdecls":  MRequireNewdecls,
	"require_semicolon": MRequireSemi,
	"tryinclude":        MTryinclude,
	"undef":             MUndef,
	"assert":            MAssert,
	"error":             MError,
	"warning":           MWarning,
}

// LookupKeyword reports whether ident is a reserved word and its Kind.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

// LookupDirective reports whether name (without the leading '#') is a known
// preprocessor directive and its Kind.
func LookupDirective(name string) (Kind, bool) {
	k, ok := directiveKeywords[name]
	return k, ok
}

// IsTrivia reports whether a token kind carries no syntactic weight but must
// still be preserved for source-map fidelity (comments, continuations).
func (k Kind) IsTrivia() bool {
	switch k {
	case LineComment, BlockComment, LineContinuation:
		return true
	default:
		return false
	}
}
