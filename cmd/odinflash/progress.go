package main

import (
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/Bee1002/Odin-Flash/session"
)

// progressBars renders one bar per image from the core's progress
// callback.
type progressBars struct {
	p       *mpb.Progress
	current *mpb.Bar
	image   string
}

func newProgressBars() *progressBars {
	return &progressBars{p: mpb.New(mpb.WithWidth(64))}
}

// observe is the session.ProgressCallback. It must return quickly;
// mpb buffers internally, so SetCurrent never blocks on the terminal.
func (b *progressBars) observe(p session.Progress) {
	if b.current == nil || b.image != p.Image {
		b.image = p.Image
		b.current = b.p.AddBar(p.Total,
			mpb.PrependDecorators(
				decor.Name(p.Image+" "),
				decor.CountersKibiByte("% .2f / % .2f"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
	}
	b.current.SetCurrent(p.BytesSent)
}

// wait flushes the remaining bar output.
func (b *progressBars) wait() {
	if b.current != nil {
		b.p.Wait()
	}
}
