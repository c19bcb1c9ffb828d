package pipeline

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/wikithread/talkparse/internal/config"
	"github.com/wikithread/talkparse/internal/permastore"
	"github.com/wikithread/talkparse/internal/thread"
)

const signedPage = `<div class="mw-parser-output">
	<h2>Topic</h2>
	<p>Hello. <a href="/wiki/User:Alice">Alice</a> 04:00, 1 January 2020 (UTC)</p>
</div>`

func testParser(t *testing.T) *thread.Parser {
	t.Helper()
	p, err := thread.NewParser(thread.DefaultConfig())
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	return p
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerProcess(t *testing.T) {
	w := NewWorker(testParser(t), nil, discardLogger())
	job := NewJob([]Document{
		{RevisionID: 1, Title: "Talk:Alpha", HTML: []byte(signedPage)},
		{RevisionID: 2, Title: "Talk:Beta", HTML: []byte(`<p>nothing signed</p>`)},
	})

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Errorf("expected %s, got %s", StatusCompleted, snap.Status)
	}
	if snap.Progress.DocsParsed != 2 {
		t.Errorf("expected 2 docs parsed, got %d", snap.Progress.DocsParsed)
	}
	if snap.Progress.Comments != 1 || snap.Progress.Threads != 1 {
		t.Errorf("expected 1 comment and 1 thread, got %d and %d",
			snap.Progress.Comments, snap.Progress.Threads)
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("unexpected errors: %v", snap.Progress.Errors)
	}
}

func TestWorkerProcessWithStore(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("unexpected method %s", r.Method)
		}
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
	}))
	defer srv.Close()

	w := NewWorker(testParser(t), permastore.NewClient(srv.URL, "key"), discardLogger())
	job := NewJob([]Document{
		{RevisionID: 7, Title: "Talk:Alpha", HTML: []byte(signedPage)},
		{RevisionID: 8, Title: "Talk:Beta", HTML: []byte(`<p>nothing signed</p>`)},
	})

	w.Process(context.Background(), job)

	snap := job.Snapshot()
	if snap.Status != StatusCompleted {
		t.Errorf("expected %s, got %s", StatusCompleted, snap.Status)
	}
	if snap.Progress.DocsParsed != 2 {
		t.Errorf("expected 2 docs parsed, got %d", snap.Progress.DocsParsed)
	}
	// The empty document is parsed but has no identities to store.
	if snap.Progress.DocsStored != 1 {
		t.Errorf("expected 1 doc stored, got %d", snap.Progress.DocsStored)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(paths) != 1 || paths[0] != "/revisions/7/items" {
		t.Errorf("unexpected store calls: %v", paths)
	}
}

func TestWorkerProcessCanceled(t *testing.T) {
	w := NewWorker(testParser(t), nil, discardLogger())
	job := NewJob([]Document{{RevisionID: 1, Title: "Talk:Alpha", HTML: []byte(signedPage)}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w.Process(ctx, job)

	snap := job.Snapshot()
	if snap.Status != StatusPartial {
		t.Errorf("expected %s after cancellation, got %s", StatusPartial, snap.Status)
	}
	if len(snap.Progress.Errors) == 0 {
		t.Error("expected a cancellation error recorded")
	}
}

func TestOrchestratorEnqueueAndProcess(t *testing.T) {
	cfg := config.Config{WorkerCount: 2, MaxQueueSize: 4, JobTTL: time.Minute}
	o := NewOrchestrator(cfg, testParser(t), nil, discardLogger())
	o.Start(context.Background())
	defer o.Stop()

	job, err := o.Enqueue([]Document{{RevisionID: 1, Title: "Talk:Alpha", HTML: []byte(signedPage)}})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatalf("expected the job to be registered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		snap := o.GetJob(job.ID).Snapshot()
		if snap.Status == StatusCompleted {
			if snap.Progress.Comments != 1 {
				t.Errorf("expected 1 comment, got %d", snap.Progress.Comments)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job did not complete, status %s", snap.Status)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestOrchestratorQueueFull(t *testing.T) {
	cfg := config.Config{WorkerCount: 1, MaxQueueSize: 1, JobTTL: time.Minute}
	o := NewOrchestrator(cfg, testParser(t), nil, discardLogger())
	// Not started: nothing drains the queue.

	if _, err := o.Enqueue(nil); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if _, err := o.Enqueue(nil); err == nil {
		t.Error("expected an error once the queue is full")
	}
}
