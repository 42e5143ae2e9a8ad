// Package batch ingests many inbound files through the pipeline with a
// bounded number of workers and summarizes the outcome.
package batch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"invoiceagent/internal/logger"
	"invoiceagent/internal/pipeline"
	"invoiceagent/pkg/models"
)

// StatusErrored marks a file the pipeline could not process at all.
const StatusErrored = pipeline.StatusErrored

// Processor runs one file. *pipeline.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, path string) (*pipeline.Result, error)
}

// Item is the outcome of one file.
type Item struct {
	Index    int
	FilePath string
	Result   *pipeline.Result
	Err      error
}

// Status is the pipeline status, or StatusErrored when processing failed.
func (i Item) Status() string {
	if i.Err != nil || i.Result == nil || i.Result.Status == "" {
		return StatusErrored
	}
	return i.Result.Status
}

// Runner processes files with at most Jobs concurrent workers.
type Runner struct {
	proc     Processor
	jobs     int
	progress io.Writer
	log      zerolog.Logger
}

// NewRunner creates a runner. jobs below 1 means one worker. A nil progress
// writer disables the progress bar.
func NewRunner(proc Processor, jobs int, progress io.Writer) *Runner {
	if jobs < 1 {
		jobs = 1
	}
	return &Runner{
		proc:     proc,
		jobs:     jobs,
		progress: progress,
		log:      logger.WithComponent("batch"),
	}
}

// Run processes files and returns one item per file in input order. A file
// that fails does not stop the others. Files not started before ctx is
// cancelled are reported with the context error.
func (r *Runner) Run(ctx context.Context, files []string) []Item {
	batchID := uuid.NewString()
	log := r.log.With().Str("batch_id", batchID).Logger()
	log.Info().Int("files", len(files)).Int("workers", r.jobs).Msg("Starting batch")

	items := make([]Item, len(files))
	bar := r.newBar(len(files))

	var g errgroup.Group
	g.SetLimit(r.jobs)
	for i, path := range files {
		g.Go(func() error {
			item := Item{Index: i, FilePath: path}
			if err := ctx.Err(); err != nil {
				item.Err = err
			} else {
				item.Result, item.Err = r.proc.Process(ctx, path)
			}
			if item.Err != nil {
				log.Error().Err(item.Err).Str("file", path).Msg("File failed")
			}

			// Each goroutine owns its slot, so no lock is needed.
			items[i] = item
			if bar != nil {
				bar.Describe(fmt.Sprintf("%-9s %s", item.Status(), filepath.Base(path)))
				_ = bar.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}

	s := Summarize(items)
	log.Info().
		Int("total", s.Total).
		Int("posted", s.Posted).
		Int("rejected", s.Rejected).
		Int("errored", s.Errored).
		Msg("Batch completed")

	return items
}

func (r *Runner) newBar(total int) *progressbar.ProgressBar {
	if r.progress == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.progress),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Ingesting invoices...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(r.progress)
		}),
	)
}

// Summary counts batch outcomes.
type Summary struct {
	Total    int `json:"total"`
	Posted   int `json:"posted"`
	Rejected int `json:"rejected"`
	Errored  int `json:"errored"`
}

// Summarize counts items by status.
func Summarize(items []Item) Summary {
	s := Summary{Total: len(items)}
	for _, it := range items {
		switch it.Status() {
		case models.StatusPosted:
			s.Posted++
		case models.StatusRejected:
			s.Rejected++
		default:
			s.Errored++
		}
	}
	return s
}

// OK reports whether every file was posted.
func (s Summary) OK() bool {
	return s.Rejected == 0 && s.Errored == 0
}
