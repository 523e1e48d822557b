package lexer

import (
	"nosemig/internal/diag"
	"nosemig/internal/source"
)

type Options struct {
	Reporter diag.Reporter // may be nil: errors are dropped but lexing continues
	// TabSize is the tab stop used for indentation columns; 8 when zero.
	TabSize int
}

func (lx *Lexer) errLex(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		lx.opts.Reporter.Report(code, diag.SevError, sp, msg, nil, nil)
	}
}
