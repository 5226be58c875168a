package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"metro/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func (w *fakeWriter) written() []kafka.Message {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]kafka.Message(nil), w.messages...)
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed chan kafka.Message
}

func newFakeReader(msgs ...kafka.Message) *fakeReader {
	return &fakeReader{pending: msgs, committed: make(chan kafka.Message, len(msgs))}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.pending) > 0 {
		m := r.pending[0]
		r.pending = r.pending[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed <- m
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func discardLogger() *logger.Logger {
	return logger.New(logger.Config{Output: io.Discard})
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("ticket-1").
		WithValue(map[string]int{"seats": 2}).
		WithEventType("booking.committed").
		WithSource("metro").
		WithCorrelationID("req-42").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if string(msg.Value) != `{"seats":2}` {
		t.Errorf("Value = %s", msg.Value)
	}
	if msg.GetEventID() == "" {
		t.Error("event id should be generated")
	}
	if msg.GetEventType() != "booking.committed" || msg.GetCorrelationID() != "req-42" {
		t.Errorf("headers = %v", msg.Headers)
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Error("timestamp header should be set")
	}
}

func TestMessageBuilder_EncodingError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestMessage_RetryCount(t *testing.T) {
	msg := Message{}
	for i := 1; i <= 12; i++ {
		msg.IncrementRetryCount()
		if got := msg.GetRetryCount(); got != i {
			t.Fatalf("retry count = %d, want %d", got, i)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"explicit transient", NewTransientError("broker busy", nil), ErrorTypeTransient},
		{"explicit business", NewBusinessError("too many seats", nil), ErrorTypeBusiness},
		{"wrapped deadline", context.DeadlineExceeded, ErrorTypeTransient},
		{"connection refused text", errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{"unknown", errors.New("json: cannot unmarshal"), ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %v, want %v", got, tt.want)
			}
		})
	}

	if ShouldRetry(NewTransientError("x", nil), 3, 3) {
		t.Error("ShouldRetry should stop at max retries")
	}
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "metro.bookings"}

	var order []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "outer")
		return next(ctx, msg)
	})
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		order = append(order, "inner:"+msg.Topic)
		return next(ctx, msg)
	})

	msg, _ := NewMessage().WithKey("t-1").WithValue("x").WithEventType("booking.committed").Build()
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner:metro.bookings" {
		t.Errorf("middleware order = %v", order)
	}
	out := w.written()
	if len(out) != 1 || string(out[0].Key) != "t-1" {
		t.Fatalf("written = %v", out)
	}
	if headerValue(out[0], HeaderEventType) != "booking.committed" {
		t.Errorf("event type header missing")
	}
}

func TestProducer_PublishValidation(t *testing.T) {
	p := &Producer{writer: &fakeWriter{}, topic: "t"}

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}

	_ = p.Close()
	if err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestProducer_FailedWriteGoesToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	dlq := &fakeWriter{}
	p := &Producer{writer: &fakeWriter{err: writeErr}, dlqWriter: dlq, topic: "metro.bookings"}

	msg, _ := NewMessage().WithKey("t-1").WithValue("x").Build()
	err := p.Publish(context.Background(), msg)
	if !errors.Is(err, writeErr) {
		t.Fatalf("expected write error, got %v", err)
	}

	out := dlq.written()
	if len(out) != 1 {
		t.Fatalf("dlq messages = %d", len(out))
	}
	if headerValue(out[0], HeaderOriginalTopic) != "metro.bookings" {
		t.Error("original topic header missing")
	}
	if headerValue(out[0], HeaderDLQError) != writeErr.Error() {
		t.Error("dlq error header missing")
	}
	if _, ok := msg.Headers[HeaderDLQError]; ok {
		t.Error("original message headers should not be modified")
	}
}

func runConsumer(t *testing.T, c *Consumer, r *fakeReader, want int) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	for i := 0; i < want; i++ {
		select {
		case <-r.committed:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d messages committed", i, want)
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Start() = %v, want context.Canceled", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
}

func TestConsumer_RetriesTransientErrors(t *testing.T) {
	r := newFakeReader(kafka.Message{Key: []byte("a"), Value: []byte(`{"seats":1}`)})
	calls := 0
	c := &Consumer{
		reader:     r,
		topic:      "metro.capacity.release",
		maxRetries: 3,
		log:        discardLogger(),
		handler: func(ctx context.Context, msg Message) error {
			calls++
			if calls < 3 {
				return NewTransientError("busy", nil)
			}
			return nil
		},
	}

	runConsumer(t, c, r, 1)
	if calls != 3 {
		t.Errorf("handler calls = %d, want 3", calls)
	}
}

func TestConsumer_PermanentErrorGoesToDLQAndCommits(t *testing.T) {
	r := newFakeReader(
		kafka.Message{Key: []byte("bad"), Value: []byte(`nope`)},
		kafka.Message{Key: []byte("good"), Value: []byte(`{"seats":1}`)},
	)
	dlq := &fakeWriter{}
	var handled []string
	c := &Consumer{
		reader:     r,
		dlqWriter:  dlq,
		topic:      "metro.capacity.release",
		groupID:    "metro",
		maxRetries: 3,
		log:        discardLogger(),
		handler: func(ctx context.Context, msg Message) error {
			handled = append(handled, msg.Key)
			if msg.Key == "bad" {
				return NewPermanentError("decode", errors.New("invalid json"))
			}
			return nil
		},
	}

	runConsumer(t, c, r, 2)
	if len(handled) != 2 || handled[0] != "bad" || handled[1] != "good" {
		t.Errorf("handled = %v", handled)
	}
	out := dlq.written()
	if len(out) != 1 || string(out[0].Key) != "bad" {
		t.Fatalf("dlq = %v", out)
	}
	if headerValue(out[0], HeaderDLQGroup) != "metro" {
		t.Error("dlq group header missing")
	}
	if !dlq.closed {
		t.Error("dlq writer should be closed")
	}
}
