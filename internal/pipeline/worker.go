package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/net/html"

	"github.com/wikithread/talkparse/internal/permastore"
	"github.com/wikithread/talkparse/internal/thread"
)

// Worker processes a single batch parse job. Each document gets its own
// independent parse; a failed document marks the job partial without
// touching its siblings.
type Worker struct {
	parser *thread.Parser
	store  *permastore.Client // nil when identity persistence is disabled
	log    *slog.Logger
}

func NewWorker(parser *thread.Parser, store *permastore.Client, log *slog.Logger) *Worker {
	return &Worker{parser: parser, store: store, log: log}
}

// Process runs the full parse pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID)

	job.SetStatus(StatusParsing)
	failed := 0
	for _, doc := range job.docs {
		if ctx.Err() != nil {
			job.AddError("canceled: " + ctx.Err().Error())
			job.SetStatus(StatusPartial)
			return
		}
		if err := w.processDoc(ctx, job, doc); err != nil {
			log.Error("document failed", "title", doc.Title, "revision", doc.RevisionID, "error", err)
			job.AddError(fmt.Sprintf("%s@%d: %s", doc.Title, doc.RevisionID, err))
			failed++
		}
	}

	switch {
	case failed == 0:
		job.SetStatus(StatusCompleted)
	case failed == len(job.docs):
		job.SetStatus(StatusFailed)
	default:
		job.SetStatus(StatusPartial)
	}
	log.Info("batch parse finished", "docs", len(job.docs), "failed", failed)
}

func (w *Worker) processDoc(ctx context.Context, job *Job, doc Document) error {
	tree, err := html.Parse(bytes.NewReader(doc.HTML))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}

	set, err := w.parser.Parse(tree)
	if err != nil {
		return fmt.Errorf("parse threads: %w", err)
	}
	job.RecordParsed(len(set.Comments()), len(set.Threads()))

	if w.store == nil || set.IsEmpty() {
		return nil
	}
	if err := w.store.PutItems(ctx, doc.RevisionID, permastore.RecordsForSet(set)); err != nil {
		return fmt.Errorf("store identities: %w", err)
	}
	job.RecordStored()
	return nil
}
