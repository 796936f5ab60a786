// Package signature fingerprints error records so that occurrences differing only in
// literal values, numbers, or quoted identifiers share one key.
package signature

import (
	"encoding/hex"
	"regexp"

	"golang.org/x/crypto/blake2b"

	"github.com/miradorstack/mirador-resolver/internal/models"
)

// Placeholder tokens substituted into normalized messages.
const (
	ValueToken      = "'<VALUE>'"
	NumberToken     = "<NUMBER>"
	IdentifierToken = "`<IDENTIFIER>`"
)

// Size is the digest width in bytes; signatures are twice as many hex characters.
const Size = 16

var (
	quotedLiteral    = regexp.MustCompile(`'[^']*'`)
	digitRun         = regexp.MustCompile(`\d+`)
	quotedIdentifier = regexp.MustCompile("`[^`]*`")
)

// NormalizeMessage replaces quoted literals, digit runs and backtick identifiers
// with placeholder tokens, in that order.
func NormalizeMessage(message string) string {
	if message == "" {
		return message
	}
	out := quotedLiteral.ReplaceAllLiteralString(message, ValueToken)
	out = digitRun.ReplaceAllLiteralString(out, NumberToken)
	out = quotedIdentifier.ReplaceAllLiteralString(out, IdentifierToken)
	return out
}

// Compute derives the signature of rec from its type, code and normalized message.
func Compute(rec models.ErrorRecord) models.Signature {
	return Of(rec.Type, rec.Code, rec.Message)
}

// Of hashes the structural key type:code:normalizedMessage.
func Of(errorType models.ErrorType, code, message string) models.Signature {
	h, _ := blake2b.New(Size, nil) // error only reported for oversized keys
	h.Write([]byte(string(errorType)))
	h.Write([]byte{':'})
	h.Write([]byte(code))
	h.Write([]byte{':'})
	h.Write([]byte(NormalizeMessage(message)))
	return models.Signature(hex.EncodeToString(h.Sum(nil)))
}
