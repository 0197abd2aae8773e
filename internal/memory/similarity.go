package memory

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
)

// Cosine returns the cosine similarity of a and b. ok is false when the
// vectors differ in length or either has zero magnitude.
func Cosine(a, b []float32) (score float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

// ranker keeps candidate matches and returns the best n.
type ranker struct {
	query   []float32
	model   string
	matches []Match
}

func newRanker(query []float32, model string) *ranker {
	return &ranker{query: query, model: model}
}

// add scores rec against the query. Records of another embedding model or of
// a different dimension are skipped.
func (r *ranker) add(rec Record) {
	if r.model != "" && rec.Model != "" && rec.Model != r.model {
		return
	}
	score, ok := Cosine(r.query, rec.Embedding)
	if !ok {
		return
	}
	r.matches = append(r.matches, Match{
		MessageID: rec.MessageID,
		Feedback:  rec.Feedback,
		Draft:     rec.Draft,
		Score:     score,
	})
}

// top returns at most n matches by decreasing score, ties by message id.
func (r *ranker) top(n int) []Match {
	slices.SortFunc(r.matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.MessageID, b.MessageID)
	})
	if n >= 0 && len(r.matches) > n {
		r.matches = r.matches[:n]
	}
	if r.matches == nil {
		return []Match{}
	}
	return r.matches
}

// encodeVector packs v as little-endian float32.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid vector encoding: %d bytes", len(buf))
	}
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return v, nil
}
