package delivery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/goRecover/mail"
)

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return m.err
}

func TestDispatcherDeliversAndReports(t *testing.T) {
	mailer := &recordingMailer{}
	var (
		mu      sync.Mutex
		results []Result
	)
	d := NewDispatcher(Config{BufferSize: 4}, mailer, func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})

	if !d.Enqueue(context.Background(), mail.Message{To: "onlyone@boom.com", Subject: "s"}) {
		t.Fatal("expected message to be accepted")
	}
	d.Close()

	if len(mailer.sent) != 1 || mailer.sent[0].To != "onlyone@boom.com" {
		t.Fatalf("unexpected sent messages: %+v", mailer.sent)
	}
	if len(results) != 1 || results[0].Err != nil {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestDispatcherReportsFailure(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("relay down")}
	var got error
	d := NewDispatcher(Config{BufferSize: 1}, mailer, func(r Result) { got = r.Err })

	d.Enqueue(context.Background(), mail.Message{To: "a@b.co", Subject: "s"})
	d.Close()

	if got == nil || got.Error() != "relay down" {
		t.Fatalf("expected relay failure to be reported, got %v", got)
	}
	if d.Enqueue(context.Background(), mail.Message{To: "a@b.co", Subject: "s"}) {
		t.Fatal("closed dispatcher must reject")
	}
}
