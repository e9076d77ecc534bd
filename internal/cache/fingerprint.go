package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/fyrsmithlabs/autoreply/internal/similarity"
)

// Fingerprint derives the similarity key for a query.
//
// With a vector available the key is embedding-derived; without one it is
// a lexical hash over the sorted token set, so the same wording always
// maps to the same key regardless of punctuation or case.
func Fingerprint(query string, vector []float32) string {
	if len(vector) > 0 {
		h := sha256.New()
		buf := make([]byte, 4)
		for _, v := range vector {
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			h.Write(buf)
		}
		return fmt.Sprintf("emb:%x", h.Sum(nil)[:16])
	}

	tokens := similarity.Tokenize(query)
	sorted := make([]string, 0, len(tokens))
	for tok := range tokens {
		sorted = append(sorted, tok)
	}
	sort.Strings(sorted)

	h := sha256.New()
	for _, tok := range sorted {
		h.Write([]byte(tok))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("lex:%x", h.Sum(nil)[:16])
}
