package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// lexical
	LexInfo               Code = 1000
	LexUnknownChar        Code = 1001
	LexUnterminatedString Code = 1002
	LexBadNumber          Code = 1003
	LexInvalidUTF8        Code = 1004
	LexNulByte            Code = 1005
	LexInconsistentDedent Code = 1006
	LexTabSpaceMix        Code = 1007
	LexUnbalancedBracket  Code = 1008
	LexTokenTooLong       Code = 1009

	// structural
	SynInfo            Code = 2000
	SynUnexpectedToken Code = 2001
	SynExpectColon     Code = 2002
	SynExpectBlock     Code = 2003
	SynExpectName      Code = 2004
	SynStrayIndent     Code = 2005
	SynDanglingDecor   Code = 2006

	// migration
	MigInfo               Code = 3000
	MigNonLiteralCases    Code = 3001
	MigMixedYieldShapes   Code = 3002
	MigDynamicScope       Code = 3003
	MigUnsupportedRaises  Code = 3004
	MigUnsupportedSetup   Code = 3005
	MigImportStillUsed    Code = 3006
	MigUnsupportedAssert  Code = 3007
	MigInvalidRewrite     Code = 3008
	MigAsyncUnsupported   Code = 3009
	MigCaseArityMismatch  Code = 3010
	MigNameCollision      Code = 3011
	MigNotCollected       Code = 3012
	MigResidualNoseUsage  Code = 3100
	MigResidualNoseImport Code = 3101

	// io
	IOLoadFileError  Code = 4001
	IOWriteFileError Code = 4002
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	LexInfo:               "Lexical information",
	LexUnknownChar:        "Unknown character",
	LexUnterminatedString: "Unterminated string literal",
	LexBadNumber:          "Malformed number literal",
	LexInvalidUTF8:        "Invalid UTF-8 sequence",
	LexNulByte:            "NUL byte in source",
	LexInconsistentDedent: "Dedent does not match any outer indentation level",
	LexTabSpaceMix:        "Inconsistent use of tabs and spaces in indentation",
	LexUnbalancedBracket:  "Unbalanced bracket",
	LexTokenTooLong:       "Token too long",
	SynInfo:               "Syntax information",
	SynUnexpectedToken:    "Unexpected token",
	SynExpectColon:        "Expected ':'",
	SynExpectBlock:        "Expected an indented block",
	SynExpectName:         "Expected a name",
	SynStrayIndent:        "Unexpected indent",
	SynDanglingDecor:      "Decorator without a definition",
	MigInfo:               "Migration information",
	MigNonLiteralCases:    "Generator sub-cases are not statically enumerable",
	MigMixedYieldShapes:   "Generator yields sub-cases of different shapes",
	MigDynamicScope:       "Hook relies on dynamic scope that the rewrite would change",
	MigUnsupportedRaises:  "Unsupported @raises form",
	MigUnsupportedSetup:   "Unsupported setup/teardown form",
	MigImportStillUsed:    "Imported nose name is still referenced",
	MigUnsupportedAssert:  "Unsupported nose assertion form",
	MigInvalidRewrite:     "Rewrite produced unparsable source",
	MigAsyncUnsupported:   "Async test is not supported by this pattern",
	MigCaseArityMismatch:  "Sub-case arity does not match the target signature",
	MigNameCollision:      "Rewrite would shadow an existing name",
	MigNotCollected:       "Rewritten test would not be collected by pytest",
	MigResidualNoseUsage:  "Residual nose construct",
	MigResidualNoseImport: "Residual nose import",
	IOLoadFileError:       "I/O load file error",
	IOWriteFileError:      "I/O write file error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("MIG%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
