package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTree     = "sqlhint/tree/v1"
	DomainComments = "sqlhint/comments/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TreeFingerprint computes the content-addressed identity of a query tree
// together with its attached hints. Two inputs with the same fingerprint
// must render byte-identical comments.
func TreeFingerprint(tree IRObject) (string, error) {
	canonical, err := MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("TreeFingerprint: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTree, canonical), nil
}

// CommentsDigest hashes rendered comments in render-level order.
// Used to compare a re-render against a stored one without loading text.
func CommentsDigest(comments []BlockComment) (string, error) {
	arr := make(IRArray, 0, len(comments))
	for _, c := range comments {
		arr = append(arr, IRObject{
			"block":   IRString(c.Block),
			"comment": IRString(c.Comment),
		})
	}
	canonical, err := MarshalCanonical(arr)
	if err != nil {
		return "", fmt.Errorf("CommentsDigest: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainComments, canonical), nil
}

// MustTreeFingerprint is like TreeFingerprint but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustTreeFingerprint(tree IRObject) string {
	fp, err := TreeFingerprint(tree)
	if err != nil {
		panic(err)
	}
	return fp
}
