package evaluation

import "github.com/zatekoja/keywordscout/pkg/utils"

// RecallAtK computes Recall@K: the fraction of relevant keywords found in the
// top-K retrieved keywords. Keywords compare after normalization.
// Returns 0.0 if relevant is empty.
func RecallAtK(relevant, retrieved []string, k int) float64 {
	if len(relevant) == 0 {
		return 0.0
	}

	relevantSet := utils.KeywordSet(relevant)
	total := len(relevantSet)
	if total == 0 {
		return 0.0
	}

	found := 0
	for _, r := range topK(retrieved, k) {
		key := utils.NormalizeKeyword(r)
		if _, ok := relevantSet[key]; ok {
			found++
			delete(relevantSet, key)
		}
	}

	return float64(found) / float64(total)
}

// MRRAtK computes the reciprocal of the rank of the first relevant keyword in
// the top-K retrieved keywords. Returns 0.0 if none is found in top-K.
func MRRAtK(relevant, retrieved []string, k int) float64 {
	if len(relevant) == 0 || len(retrieved) == 0 {
		return 0.0
	}

	relevantSet := utils.KeywordSet(relevant)
	for i, r := range topK(retrieved, k) {
		if _, ok := relevantSet[utils.NormalizeKeyword(r)]; ok {
			return 1.0 / float64(i+1)
		}
	}

	return 0.0
}

func topK(retrieved []string, k int) []string {
	if k >= 0 && k < len(retrieved) {
		return retrieved[:k]
	}
	return retrieved
}
