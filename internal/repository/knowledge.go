package repository

import (
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"saccobot/internal/entities"
)

var wordPattern = regexp.MustCompile(`\w+`)

func tokenize(s string) []string {
	return wordPattern.FindAllString(strings.ToLower(s), -1)
}

// Similarity scores a query against the fitted candidate questions.
// Two strategies exist on purpose: they can pick different best matches
// for the same query, and both behaviors are preserved behind this
// interface.
type Similarity interface {
	Fit(questions []string)
	Scores(query string) []float64
}

// TFIDFSimilarity is a term-frequency / inverse-document-frequency
// weighted cosine similarity with smoothed IDF and l2-normalized vectors.
type TFIDFSimilarity struct {
	vocab map[string]int
	idf   []float64
	docs  []map[int]float64
}

func NewTFIDFSimilarity() *TFIDFSimilarity {
	return &TFIDFSimilarity{}
}

func (t *TFIDFSimilarity) Fit(questions []string) {
	t.vocab = make(map[string]int)
	tokenized := make([][]string, len(questions))
	df := []int{}

	for i, q := range questions {
		tokens := tokenize(q)
		tokenized[i] = tokens
		seen := map[int]bool{}
		for _, tok := range tokens {
			idx, ok := t.vocab[tok]
			if !ok {
				idx = len(t.vocab)
				t.vocab[tok] = idx
				df = append(df, 0)
			}
			if !seen[idx] {
				df[idx]++
				seen[idx] = true
			}
		}
	}

	n := float64(len(questions))
	t.idf = make([]float64, len(df))
	for i, d := range df {
		t.idf[i] = math.Log((1+n)/(1+float64(d))) + 1
	}

	t.docs = make([]map[int]float64, len(questions))
	for i, tokens := range tokenized {
		t.docs[i] = t.vectorize(tokens)
	}
}

// vectorize builds an l2-normalized tf-idf vector for known terms.
func (t *TFIDFSimilarity) vectorize(tokens []string) map[int]float64 {
	vec := make(map[int]float64)
	for _, tok := range tokens {
		if idx, ok := t.vocab[tok]; ok {
			vec[idx]++
		}
	}
	var norm float64
	for idx := range vec {
		vec[idx] *= t.idf[idx]
		norm += vec[idx] * vec[idx]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range vec {
			vec[idx] /= norm
		}
	}
	return vec
}

func (t *TFIDFSimilarity) Scores(query string) []float64 {
	qvec := t.vectorize(tokenize(query))
	scores := make([]float64, len(t.docs))
	for i, doc := range t.docs {
		var dot float64
		for idx, w := range qvec {
			dot += w * doc[idx]
		}
		scores[i] = dot
	}
	return scores
}

// OverlapSimilarity is the dependency-free fallback matcher: the share
// of a candidate's words that also appear in the query.
type OverlapSimilarity struct {
	candidates []map[string]bool
}

func NewOverlapSimilarity() *OverlapSimilarity {
	return &OverlapSimilarity{}
}

func (o *OverlapSimilarity) Fit(questions []string) {
	o.candidates = make([]map[string]bool, len(questions))
	for i, q := range questions {
		set := make(map[string]bool)
		for _, tok := range tokenize(q) {
			set[tok] = true
		}
		o.candidates[i] = set
	}
}

func (o *OverlapSimilarity) Scores(query string) []float64 {
	qset := make(map[string]bool)
	for _, tok := range tokenize(query) {
		qset[tok] = true
	}

	scores := make([]float64, len(o.candidates))
	for i, cand := range o.candidates {
		overlap := 0
		for w := range cand {
			if qset[w] {
				overlap++
			}
		}
		denom := len(cand)
		if denom < 1 {
			denom = 1
		}
		scores[i] = float64(overlap) / float64(denom)
	}
	return scores
}

// KnowledgeStore holds the loaded FAQ entries and scores queries against
// them. Safe for concurrent reads; Reload swaps the content atomically.
type KnowledgeStore struct {
	mu      sync.RWMutex
	entries []entities.KnowledgeEntry
	sim     Similarity
}

func NewKnowledgeStore(entries []entities.KnowledgeEntry, sim Similarity) *KnowledgeStore {
	s := &KnowledgeStore{sim: sim}
	s.Reload(entries)
	return s
}

func (s *KnowledgeStore) Reload(entries []entities.KnowledgeEntry) {
	questions := make([]string, len(entries))
	for i, e := range entries {
		questions[i] = e.Question
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.sim.Fit(questions)
}

func (s *KnowledgeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *KnowledgeStore) Entry(i int) entities.KnowledgeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[i]
}

// BestMatch returns the index and score of the highest-scoring entry,
// breaking ties by lowest index. Index is -1 for an empty store.
func (s *KnowledgeStore) BestMatch(query string) (int, float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return -1, 0
	}

	scores := s.sim.Scores(query)
	bestIdx := 0
	bestScore := scores[0]
	for i := 1; i < len(scores); i++ {
		if scores[i] > bestScore {
			bestScore = scores[i]
			bestIdx = i
		}
	}
	return bestIdx, bestScore
}

type faqFile struct {
	FAQ []struct {
		Q string `yaml:"q"`
		A string `yaml:"a"`
	} `yaml:"faq"`
}

// LoadFAQ reads the YAML knowledge file. Entries with an empty question
// or answer are skipped; a missing file is an error for the caller to
// decide on.
func LoadFAQ(path string) ([]entities.KnowledgeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read faq file: %w", err)
	}

	var parsed faqFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse faq file: %w", err)
	}

	entries := []entities.KnowledgeEntry{}
	for _, item := range parsed.FAQ {
		q := strings.TrimSpace(item.Q)
		a := strings.TrimSpace(item.A)
		if q == "" || a == "" {
			continue
		}
		entries = append(entries, entities.KnowledgeEntry{Question: q, Answer: a})
	}
	return entries, nil
}
