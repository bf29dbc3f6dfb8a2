package fuzzy

import "strings"

// LevenshteinDistance is the minimum number of single-character edits needed
// to turn s1 into s2.
func LevenshteinDistance(s1, s2 string) int {
	s1 = normalize(s1)
	s2 = normalize(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}
	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,
				d[i][j-1]+1,
				d[i-1][j-1]+cost,
			)
		}
	}
	return d[m][n]
}

// Match reports whether query fuzzy-matches text within threshold edits.
func Match(query, text string, threshold int) bool {
	query = normalize(query)
	text = normalize(text)

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
		if strings.HasPrefix(word, query) {
			return true
		}
	}
	return false
}

// MatchEmail checks the query against the searchable fields of an email.
// Typo tolerance scales with query length.
func MatchEmail(query, subject, from, fromName, body string) bool {
	threshold := 2
	if len(query) <= 3 {
		threshold = 1
	} else if len(query) >= 8 {
		threshold = 3
	}

	if Match(query, subject, threshold) {
		return true
	}
	if Match(query, fromName, threshold) {
		return true
	}
	if Match(query, from, threshold) {
		return true
	}

	// Only the head of the body, search stays cheap.
	if len(body) > 500 {
		body = body[:500]
	}
	return body != "" && Match(query, body, threshold)
}

// Score ranks how relevant an email is to a query. Subject beats sender name
// beats sender address.
func Score(query, subject, from, fromName string) float64 {
	query = normalize(query)
	score := 0.0

	subjectNorm := normalize(subject)
	if strings.Contains(subjectNorm, query) {
		score += 100.0
		if containsWord(subjectNorm, query) {
			score += 50.0
		}
	} else {
		for _, word := range strings.Fields(subjectNorm) {
			if dist := LevenshteinDistance(query, word); dist <= 2 {
				score += 50.0 - float64(dist)*15
			}
			if strings.HasPrefix(word, query) {
				score += 40.0
			}
		}
	}

	nameNorm := normalize(fromName)
	if strings.Contains(nameNorm, query) {
		score += 80.0
		if containsWord(nameNorm, query) {
			score += 30.0
		}
	} else {
		for _, word := range strings.Fields(nameNorm) {
			if dist := LevenshteinDistance(query, word); dist <= 2 {
				score += 40.0 - float64(dist)*12
			}
			if strings.HasPrefix(word, query) {
				score += 35.0
			}
		}
	}

	fromNorm := normalize(from)
	if strings.Contains(fromNorm, query) {
		score += 60.0
	} else {
		localPart := fromNorm
		if idx := strings.Index(fromNorm, "@"); idx > 0 {
			localPart = fromNorm[:idx]
		}
		if strings.HasPrefix(localPart, query) {
			score += 30.0
		}
	}

	return score
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

func normalize(s string) string {
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}
