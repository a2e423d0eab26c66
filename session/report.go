package session

import (
	"context"
	"errors"
	"strings"

	"github.com/Bee1002/Odin-Flash/firmware"
)

// Verdict is the session-level outcome of a flash plan.
type Verdict int

const (
	// VerdictCompleted means every image was flashed
	VerdictCompleted Verdict = iota + 1

	// VerdictPartial means some images failed but the session survived
	VerdictPartial

	// VerdictAborted means the session faulted or was cancelled
	VerdictAborted
)

// Report is the final verdict of a FlashAll run.
type Report struct {
	Verdict Verdict

	// Flashed lists the images that completed
	Flashed []string

	// Failed lists the images that did not
	Failed []string

	// Err is the terminating error for an aborted run
	Err error
}

func (r *Report) String() string {
	switch r.Verdict {
	case VerdictCompleted:
		return "completed"
	case VerdictPartial:
		return "partial: images " + strings.Join(r.Failed, ",") + " failed"
	default:
		return "aborted"
	}
}

// FlashAll streams a sequence of images and produces the session
// verdict. A per-image failure on a giant image is recorded and the
// plan continues; any other error aborts the plan.
func (s *Session) FlashAll(ctx context.Context, images []*firmware.ImageStream) *Report {
	report := &Report{}

	for _, img := range images {
		err := s.Flash(ctx, img)
		if err == nil {
			report.Flashed = append(report.Flashed, img.Name)
			continue
		}

		var ie *ImageError
		if errors.As(err, &ie) {
			report.Failed = append(report.Failed, img.Name)
			continue
		}

		report.Failed = append(report.Failed, img.Name)
		report.Verdict = VerdictAborted
		report.Err = err
		s.logError("flash plan aborted", "image", img.Name, "error", err)
		return report
	}

	if len(report.Failed) > 0 {
		report.Verdict = VerdictPartial
	} else {
		report.Verdict = VerdictCompleted
	}
	s.logSuccess("flash plan "+report.String(), "flashed", len(report.Flashed), "failed", len(report.Failed))
	return report
}
