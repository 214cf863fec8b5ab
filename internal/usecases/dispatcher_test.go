package usecases

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"saccobot/internal/entities"
	"saccobot/internal/infrastructure"
	"saccobot/internal/interfaces"
)

type sentMessage struct {
	To      string
	Content string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendMessage(to, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{To: to, Content: content})
	return nil
}

func (f *fakeSender) all() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func newDispatcherFixture(t *testing.T, workers int) (*infrastructure.DispatchQueue, *Dispatcher) {
	t.Helper()
	queue := infrastructure.NewDispatchQueue(infrastructure.DefaultAvgJobSeconds)
	engine := NewAnswerEngine(NewAnswerer(testKnowledge(), DefaultThreshold), nil, nil)
	d := NewDispatcher(queue, engine, workers)
	d.Start()
	t.Cleanup(d.Stop)
	return queue, d
}

func TestDispatcherDeliversPrecomputed(t *testing.T) {
	queue, _ := newDispatcherFixture(t, 2)
	sender := &fakeSender{}

	queue.Enqueue(entities.DispatchJob{
		Platform: "whatsapp",
		To:       "+254700000001",
		Kind:     entities.PayloadPrecomputed,
		Text:     "Your SACCO OTP: 123456",
		Sender:   sender,
	})

	waitFor(t, func() bool { return len(sender.all()) == 1 })
	got := sender.all()[0]
	assert.Equal(t, "+254700000001", got.To)
	assert.Equal(t, "Your SACCO OTP: 123456", got.Content)
}

func TestDispatcherResolvesFreeText(t *testing.T) {
	queue, _ := newDispatcherFixture(t, 1)
	sender := &fakeSender{}

	queue.Enqueue(entities.DispatchJob{
		Platform: "whatsapp",
		To:       "+254700000002",
		Kind:     entities.PayloadNeedsResolution,
		Text:     "How do I check my balance?",
		Sender:   sender,
	})

	waitFor(t, func() bool { return len(sender.all()) == 1 })
	assert.Equal(t, "Send /balance after registering.", sender.all()[0].Content)
}

func TestDispatcherFailedSendIsDropped(t *testing.T) {
	queue, _ := newDispatcherFixture(t, 1)
	failing := &fakeSender{err: errors.New("provider down")}
	sender := &fakeSender{}

	queue.Enqueue(entities.DispatchJob{
		Platform: "whatsapp",
		To:       "+254700000003",
		Kind:     entities.PayloadPrecomputed,
		Text:     "first",
		Sender:   failing,
	})
	queue.Enqueue(entities.DispatchJob{
		Platform: "whatsapp",
		To:       "+254700000004",
		Kind:     entities.PayloadPrecomputed,
		Text:     "second",
		Sender:   sender,
	})

	// The failed job is dropped, not retried, and the worker survives.
	waitFor(t, func() bool { return len(sender.all()) == 1 })
	assert.Equal(t, "second", sender.all()[0].Content)
	assert.Zero(t, queue.Len())
}

type alwaysRetry struct{ max int }

func (a alwaysRetry) ShouldRetry(job entities.DispatchJob, err error) bool {
	return job.Attempts < a.max
}

func TestDispatcherRetryPolicy(t *testing.T) {
	queue := infrastructure.NewDispatchQueue(infrastructure.DefaultAvgJobSeconds)
	engine := NewAnswerEngine(NewAnswerer(testKnowledge(), DefaultThreshold), nil, nil)
	d := NewDispatcher(queue, engine, 1)
	d.SetRetryPolicy(alwaysRetry{max: 2})
	d.Start()
	t.Cleanup(d.Stop)

	var mu sync.Mutex
	attempts := 0
	sender := &countingSender{onSend: func() error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	}}

	queue.Enqueue(entities.DispatchJob{
		Platform: "whatsapp",
		To:       "+254700000005",
		Kind:     entities.PayloadPrecomputed,
		Text:     "eventually delivered",
		Sender:   sender,
	})

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts == 2
	})
}

type countingSender struct {
	onSend func() error
}

func (c *countingSender) SendMessage(to, content string) error {
	return c.onSend()
}

func TestDispatcherNilSenderDropsJob(t *testing.T) {
	queue, _ := newDispatcherFixture(t, 1)

	queue.Enqueue(entities.DispatchJob{
		Platform: "whatsapp",
		To:       "+254700000006",
		Kind:     entities.PayloadPrecomputed,
		Text:     "nowhere to go",
	})

	waitFor(t, func() bool { return queue.Len() == 0 })
}

func TestDispatcherStopIsIdempotent(t *testing.T) {
	queue := infrastructure.NewDispatchQueue(infrastructure.DefaultAvgJobSeconds)
	engine := NewAnswerEngine(NewAnswerer(testKnowledge(), DefaultThreshold), nil, nil)
	d := NewDispatcher(queue, engine, 2)
	d.Start()

	d.Stop()
	d.Stop()
}

var _ interfaces.RetryPolicy = alwaysRetry{}
