package usecases

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"saccobot/internal/interfaces"
	"saccobot/internal/repository"
)

// DefaultThreshold is the minimum similarity score for a confident answer.
const DefaultThreshold = 0.2

// Fixed user-facing fallback texts. These are the only failure strings
// the resolver ever shows; internal errors never leak into replies.
const (
	replyEmptyQuery    = "I didn't get a message — please type your question."
	replyGreeting      = "Hello — tell me what you need help with or ask a question."
	replyNoKnowledge   = "I don't have any FAQ loaded yet. Please add entries to faq.yml."
	replyLowConfidence = "I couldn't find a confident answer. Can you rephrase or give more details?"
)

var greetings = map[string]bool{
	"hi":           true,
	"hello":        true,
	"hey":          true,
	"good morning": true,
	"good evening": true,
}

// AnswerResult is the outcome of a knowledge-base lookup. Index is nil
// when no entry was confidently matched; Score still carries the true
// best score in that case.
type AnswerResult struct {
	Answer string
	Score  float64
	Index  *int
}

// Answerer resolves free text against the knowledge store with a
// confidence threshold and deterministic fallbacks.
type Answerer struct {
	store     *repository.KnowledgeStore
	threshold float64
}

func NewAnswerer(store *repository.KnowledgeStore, threshold float64) *Answerer {
	return &Answerer{store: store, threshold: threshold}
}

func (a *Answerer) Threshold() float64 {
	return a.threshold
}

func (a *Answerer) Answer(query string) AnswerResult {
	q := strings.TrimSpace(query)
	if q == "" {
		return AnswerResult{Answer: replyEmptyQuery, Score: 0}
	}

	// Greetings never attribute to a knowledge entry.
	if greetings[strings.ToLower(q)] {
		return AnswerResult{Answer: replyGreeting, Score: 1.0}
	}

	if a.store.Len() == 0 {
		return AnswerResult{Answer: replyNoKnowledge, Score: 0}
	}

	idx, score := a.store.BestMatch(q)
	if score < a.threshold {
		return AnswerResult{Answer: replyLowConfidence, Score: score}
	}
	return AnswerResult{Answer: a.store.Entry(idx).Answer, Score: score, Index: &idx}
}

// AnswerEngine layers an optional generative fallback over the Answerer.
// A missing or failing backend degrades silently to the deterministic
// low-confidence reply.
type AnswerEngine struct {
	answerer *Answerer
	ai       interfaces.AIClient
	memory   interfaces.MemoryStore
}

func NewAnswerEngine(answerer *Answerer, ai interfaces.AIClient, memory interfaces.MemoryStore) *AnswerEngine {
	return &AnswerEngine{answerer: answerer, ai: ai, memory: memory}
}

// Resolve answers a query, consulting the generative backend only for
// low-confidence matches. channel and chatID select the conversation
// memory used as prompt context; the exchange is recorded there too.
func (e *AnswerEngine) Resolve(channel, chatID, query string) string {
	reply := e.resolve(channel, chatID, query)
	if e.memory != nil {
		e.memory.Push(channel, chatID, "user", query)
		e.memory.Push(channel, chatID, "assistant", reply)
	}
	return reply
}

func (e *AnswerEngine) resolve(channel, chatID, query string) string {
	qa := e.answerer.Answer(query)
	if qa.Score >= e.answerer.threshold {
		return qa.Answer
	}

	if e.ai != nil {
		prompt := e.buildPrompt(channel, chatID, query)
		reply, err := e.ai.GenerateResponse(prompt)
		if err != nil {
			log.Debug().Err(err).Msg("generative fallback failed, using deterministic answer")
		} else if strings.TrimSpace(reply) != "" {
			return strings.TrimSpace(reply)
		}
	}

	return qa.Answer
}

func (e *AnswerEngine) buildPrompt(channel, chatID, query string) string {
	var sb strings.Builder
	if e.memory != nil {
		for _, turn := range e.memory.Recent(channel, chatID) {
			sb.WriteString(fmt.Sprintf("%s: %s\n", turn.Role, turn.Text))
		}
	}
	return fmt.Sprintf("User: %s\nContext:\n%sProvide a helpful, concise answer.", query, sb.String())
}
