package scanner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"nosemig/internal/token"
)

const (
	// ModuleScope is the scope of file-level entries such as parse errors.
	ModuleScope = "<module>"
	// ImportsScope is the scope of the file-phase import fragment.
	ImportsScope = "<imports>"

	shortShape = 12
)

// Identity names one fragment stably across runs. Path is slash-separated and
// relative to the migration root; Scope is the qualified name of the
// enclosing construct; Ordinal separates redefinitions of the same name;
// Shape is the hex SHA-256 of the normalized token stream.
type Identity struct {
	Path    string `msgpack:"p" json:"path" yaml:"path"`
	Scope   string `msgpack:"s" json:"scope" yaml:"scope"`
	Ordinal int    `msgpack:"o" json:"ordinal" yaml:"ordinal"`
	Shape   string `msgpack:"h" json:"shape" yaml:"shape"`
}

// Key is the serialized form "path::scope#ordinal@shape12".
func (id Identity) Key() string {
	shape := id.Shape
	if len(shape) > shortShape {
		shape = shape[:shortShape]
	}
	return id.Slot() + "@" + shape
}

// Slot identifies the construct regardless of its current shape.
func (id Identity) Slot() string {
	return id.Path + "::" + id.Scope + "#" + strconv.Itoa(id.Ordinal)
}

func (id Identity) String() string {
	return id.Key()
}

// ParseKey splits a key produced by Key. The Shape of the result is the
// 12-character prefix stored in the key.
func ParseKey(key string) (Identity, error) {
	at := strings.LastIndexByte(key, '@')
	hash := strings.LastIndexByte(key[:max(at, 0)], '#')
	sep := strings.Index(key, "::")
	if at < 0 || hash < 0 || sep < 0 || sep > hash {
		return Identity{}, fmt.Errorf("malformed fragment key %q", key)
	}
	ord, err := strconv.Atoi(key[hash+1 : at])
	if err != nil {
		return Identity{}, fmt.Errorf("malformed ordinal in fragment key %q: %w", key, err)
	}
	return Identity{
		Path:    key[:sep],
		Scope:   key[sep+2 : hash],
		Ordinal: ord,
		Shape:   key[at+1:],
	}, nil
}

// ShapeOf hashes the token stream: kinds and texts only, so whitespace,
// comments, blank lines and uniform re-indentation do not change it.
func ShapeOf(toks []token.Token) string {
	h := sha256.New()
	var buf [2]byte
	for _, tok := range toks {
		buf[0] = byte(tok.Kind)
		buf[1] = 0
		h.Write(buf[:1])
		h.Write([]byte(tok.Text))
		h.Write(buf[1:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// FileIdentity is the identity of file-level entries (parse errors), keyed by
// the content hash so an edited file gets a fresh entry.
func FileIdentity(path string, content [32]byte) Identity {
	return Identity{Path: path, Scope: ModuleScope, Shape: hex.EncodeToString(content[:])}
}
