package usecases

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saccobot/internal/entities"
	"saccobot/internal/repository"
)

func testKnowledge() *repository.KnowledgeStore {
	return repository.NewKnowledgeStore([]entities.KnowledgeEntry{
		{Question: "How do I set up Twilio?", Answer: "Follow the Twilio docs to configure a WhatsApp sandbox."},
		{Question: "How do I check my balance?", Answer: "Send /balance after registering."},
	}, repository.NewTFIDFSimilarity())
}

func TestAnswer_EmptyQuery(t *testing.T) {
	a := NewAnswerer(testKnowledge(), DefaultThreshold)

	res := a.Answer("   ")
	assert.Equal(t, replyEmptyQuery, res.Answer)
	assert.Equal(t, 0.0, res.Score)
	assert.Nil(t, res.Index)
}

func TestAnswer_GreetingIsCaseInsensitive(t *testing.T) {
	a := NewAnswerer(testKnowledge(), DefaultThreshold)

	for _, q := range []string{"hi", "HELLO", "Good Morning"} {
		res := a.Answer(q)
		assert.Equal(t, replyGreeting, res.Answer, q)
		assert.Equal(t, 1.0, res.Score, q)
		assert.Nil(t, res.Index, q)
	}
}

func TestAnswer_EmptyKnowledgeBase(t *testing.T) {
	store := repository.NewKnowledgeStore(nil, repository.NewTFIDFSimilarity())
	a := NewAnswerer(store, DefaultThreshold)

	res := a.Answer("what can you do")
	assert.Equal(t, replyNoKnowledge, res.Answer)
	assert.Nil(t, res.Index)
}

func TestAnswer_ConfidentMatch(t *testing.T) {
	a := NewAnswerer(testKnowledge(), DefaultThreshold)

	res := a.Answer("How do I set up Twilio?")
	require.NotNil(t, res.Index)
	assert.Equal(t, 0, *res.Index)
	assert.Equal(t, "Follow the Twilio docs to configure a WhatsApp sandbox.", res.Answer)
	assert.InDelta(t, 1.0, res.Score, 1e-9)
}

func TestAnswer_LowConfidencePreservesScore(t *testing.T) {
	a := NewAnswerer(testKnowledge(), 0.99)

	res := a.Answer("twilio")
	assert.Equal(t, replyLowConfidence, res.Answer)
	assert.Nil(t, res.Index)
	assert.Greater(t, res.Score, 0.0)
	assert.Less(t, res.Score, 0.99)
}

type fakeAI struct {
	reply  string
	err    error
	called bool
}

func (f *fakeAI) GenerateResponse(prompt string) (string, error) {
	f.called = true
	return f.reply, f.err
}

type fakeMemory struct {
	turns []entities.MemoryTurn
}

func (f *fakeMemory) Push(channel, chatID, role, text string) {
	f.turns = append(f.turns, entities.MemoryTurn{Role: role, Text: text})
}

func (f *fakeMemory) Recent(channel, chatID string) []entities.MemoryTurn {
	return f.turns
}

func TestResolve_GenerativeFallback(t *testing.T) {
	ai := &fakeAI{reply: "A generated answer."}
	engine := NewAnswerEngine(NewAnswerer(testKnowledge(), DefaultThreshold), ai, nil)

	reply := engine.Resolve("telegram", "1", "xyzzy quux")
	assert.True(t, ai.called)
	assert.Equal(t, "A generated answer.", reply)
}

func TestResolve_FallbackFailureDegradesSilently(t *testing.T) {
	ai := &fakeAI{err: errors.New("backend down")}
	engine := NewAnswerEngine(NewAnswerer(testKnowledge(), DefaultThreshold), ai, nil)

	reply := engine.Resolve("telegram", "1", "xyzzy quux")
	assert.Equal(t, replyLowConfidence, reply)
}

func TestResolve_ConfidentMatchSkipsFallback(t *testing.T) {
	ai := &fakeAI{reply: "should not be used"}
	engine := NewAnswerEngine(NewAnswerer(testKnowledge(), DefaultThreshold), ai, nil)

	reply := engine.Resolve("telegram", "1", "How do I check my balance?")
	assert.False(t, ai.called)
	assert.Equal(t, "Send /balance after registering.", reply)
}

func TestResolve_NoBackendUsesDeterministicAnswer(t *testing.T) {
	engine := NewAnswerEngine(NewAnswerer(testKnowledge(), DefaultThreshold), nil, nil)

	reply := engine.Resolve("telegram", "1", "xyzzy quux")
	assert.Equal(t, replyLowConfidence, reply)
}

func TestResolve_RecordsConversationTurns(t *testing.T) {
	mem := &fakeMemory{}
	engine := NewAnswerEngine(NewAnswerer(testKnowledge(), DefaultThreshold), nil, mem)

	engine.Resolve("whatsapp", "254700000000", "How do I check my balance?")
	require.Len(t, mem.turns, 2)
	assert.Equal(t, "user", mem.turns[0].Role)
	assert.Equal(t, "How do I check my balance?", mem.turns[0].Text)
	assert.Equal(t, "assistant", mem.turns[1].Role)
	assert.Equal(t, "Send /balance after registering.", mem.turns[1].Text)
}
