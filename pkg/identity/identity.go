// Package identity implements the Identity Minter: it assigns the
// three stable identities — physical, semantic, content — to a
// Function Record.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/funcqc/funcqc/pkg/model"
)

// Mint assigns PhysicalID, SemanticID, and ContentID on rec in place.
// Mint is idempotent on the inputs that feed semantic/content ids: the
// same role and implementation always produce the same two ids, only
// the physical id is freshly minted on every call.
func Mint(rec *model.Record) {
	rec.PhysicalID = uuid.NewString()
	rec.SemanticID = semanticID(rec)
	rec.ContentID = contentID(rec)
}

// semanticID hashes the canonicalized role tuple: normalized file
// path, context path, function kind, name-or-positional-tag, modifier
// set, parameter arity, and signature shape. Two functions occupying
// the same role across two snapshots (same file, scope, kind, name,
// arity) always share a semantic id even when their bodies differ.
func semanticID(rec *model.Record) string {
	tag := roleTag(rec)

	var modifiers []string
	if rec.Exported {
		modifiers = append(modifiers, "exported")
	}
	if rec.Async {
		modifiers = append(modifiers, "async")
	}
	if rec.Generator {
		modifiers = append(modifiers, "generator")
	}
	if rec.Static {
		modifiers = append(modifiers, "static")
	}
	if rec.Constructor {
		modifiers = append(modifiers, "constructor")
	}
	if rec.Accessor {
		modifiers = append(modifiers, "accessor")
	}
	if rec.AccessModifier != "" {
		modifiers = append(modifiers, string(rec.AccessModifier))
	}

	tuple := strings.Join([]string{
		normalizePath(rec.FilePath),
		strings.Join(rec.ContextPath, "/"),
		string(rec.Kind),
		tag,
		strings.Join(modifiers, ","),
		strconv.Itoa(len(rec.Parameters)),
		signatureShape(rec),
	}, "|")

	return hash(tuple)
}

// roleTag is the name used to key the semantic id: the variable name
// for arrows bound to a variable, or a positional tag of the form
// anon@<line>:<column> for truly anonymous callbacks. extract already
// synthesizes the positional tag as rec.Name for bare callbacks, so
// this is mostly a passthrough that documents the invariant.
func roleTag(rec *model.Record) string {
	if rec.Name != "" {
		return rec.Name
	}
	return fmt.Sprintf("anon@%d:%d", rec.StartLine, rec.StartColumn)
}

// signatureShape reduces a signature to its structural skeleton
// (ordered parameter type-simples plus return type) so that renaming
// a parameter does not change the semantic id but changing its type
// or arity does.
func signatureShape(rec *model.Record) string {
	parts := make([]string, 0, len(rec.Parameters)+1)
	for _, p := range rec.Parameters {
		shape := p.TypeSimple
		if shape == "" {
			shape = "_"
		}
		if p.Optional {
			shape += "?"
		}
		if p.Rest {
			shape = "..." + shape
		}
		parts = append(parts, shape)
	}
	parts = append(parts, "->"+rec.ReturnType)
	return strings.Join(parts, ",")
}

// contentID hashes the AST hash plus parameter shapes. Two functions
// with identical normalized implementations and parameter shapes
// share a content id regardless of location.
func contentID(rec *model.Record) string {
	tuple := rec.ASTHash + "|" + signatureShape(rec)
	return hash(tuple)
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// normalizePath mirrors the Source Walker's path normalization so
// that the same file always contributes the same path component to
// the semantic id regardless of how it was invoked.
func normalizePath(path string) string {
	path = strings.TrimPrefix(path, "./")
	path = filepath.ToSlash(filepath.Clean(path))
	return strings.TrimPrefix(path, "/")
}
