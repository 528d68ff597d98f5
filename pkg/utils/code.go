package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// CodeLength is the number of symbols in a signalling session code
const CodeLength = 8

// codeAlphabet leaves out 0/O and 1/I so a code read aloud survives retyping
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewSessionCode returns a random session code of CodeLength symbols
func NewSessionCode() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))

	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw session code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// NormalizeCode uppercases code and drops the separators people type,
// so "abcd-efgh" and "ABCD EFGH" name the same session
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		if 'a' <= r && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, code)
}

// IsValidCode reports whether code, once normalized, is a session code
func IsValidCode(code string) bool {
	code = NormalizeCode(code)
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// FormatCode splits a code in two halves for display
func FormatCode(code string) string {
	code = NormalizeCode(code)
	if len(code) != CodeLength {
		return code
	}
	return code[:CodeLength/2] + "-" + code[CodeLength/2:]
}
