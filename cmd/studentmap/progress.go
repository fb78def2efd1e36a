package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/student-map/internal/domain"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

// logEvery spaces progress log lines when there is no terminal to draw on.
const logEvery = 10

// progressReporter renders pipeline snapshots as a bar on a terminal and as
// periodic log lines otherwise.
type progressReporter struct {
	bar    *progressbar.ProgressBar
	logger *slog.Logger
}

func newProgressReporter(w io.Writer, total int, logger *slog.Logger) *progressReporter {
	r := &progressReporter{logger: logger}
	if isTerminal(w) {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription(domain.StartMessage()),
			progressbar.OptionSetWriter(w),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	return r
}

func (r *progressReporter) update(p domain.Progress) {
	if r.bar == nil {
		if p.Processed%logEvery == 0 || p.Done() {
			r.logger.Info(p.StatusMessage, "resolved", p.Resolved, "failed", p.Failed, "skipped", p.Skipped)
		}
		return
	}
	r.bar.Describe(p.StatusMessage)
	if err := r.bar.Set(p.Processed); err != nil {
		r.logger.Debug("progress bar", "error", err)
	}
}

func (r *progressReporter) finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
