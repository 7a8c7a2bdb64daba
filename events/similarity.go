package events

import "math"

// Cosine returns the cosine similarity of a and b. Vectors of different
// length or zero magnitude score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// RankBySimilarity scores evs against vector and orders them most similar
// first, ties newest first. Events without an embedding are dropped.
func RankBySimilarity(evs []Event, vector []float32) []Event {
	out := evs[:0]
	for _, ev := range evs {
		if !ev.HasEmbedding() {
			continue
		}
		ev.Similarity = Cosine(vector, ev.Embedding)
		out = append(out, ev)
	}
	sortSimilar(out)
	return out
}
