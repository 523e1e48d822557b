package source

type (
	// FileID names one revision of a file in a FileSet. Each rewrite round
	// adds a revision, so a path can own several ids.
	FileID uint32
	// FileFlags record what was normalized away on load, so Encode can put
	// it back when the file is written.
	FileFlags uint8
)

const (
	// FileVirtual marks content that never came from disk: test input or a
	// rewritten revision.
	FileVirtual FileFlags = 1 << iota
	// FileHadBOM is set when a UTF-8 byte order mark was stripped.
	FileHadBOM
	// FileNormalizedCRLF is set when CRLF line endings became LF.
	FileNormalizedCRLF
)

// File is one revision of a Python source file. Content carries no BOM and
// uses LF line endings; LineIdx holds the offset of each line start and Hash
// the SHA-256 of Content, which file-level ledger identities use.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   FileFlags
}

// LineCol is a 1-based line and column.
type LineCol struct {
	Line uint32
	Col  uint32
}
