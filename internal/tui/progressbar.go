package tui

/* Adapted from https://code.rocket9labs.com/tslocum/cview/src/branch/master/progressbar.go
 * MIT License, Copyright (c) 2020 Trevor Slocum <trevor@rocketnine.space>
 */

import (
	"math"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ProgressBar indicates the progress of an operation, filling from left to right.
type ProgressBar struct {
	*tview.Box
	sync.RWMutex

	emptyRune   rune
	emptyColor  tcell.Color
	filledRune  rune
	filledColor tcell.Color

	// Current progress.
	progress int64

	// Progress required to fill the bar.
	max int64
}

// NewProgressBar returns a new progress bar.
func NewProgressBar() *ProgressBar {
	p := &ProgressBar{
		Box:         tview.NewBox(),
		emptyRune:   tcell.RuneBlock,
		emptyColor:  tcell.ColorDarkSlateGray,
		filledRune:  tcell.RuneBlock,
		filledColor: tview.Styles.PrimaryTextColor,
		max:         100,
	}
	p.SetBackgroundColor(tview.Styles.PrimitiveBackgroundColor)

	return p
}

// SetFilledColor sets the color of the filled area of the progress bar.
func (p *ProgressBar) SetFilledColor(filled tcell.Color) {
	p.Lock()
	defer p.Unlock()

	p.filledColor = filled
}

// SetMax sets the progress required to fill the bar.
func (p *ProgressBar) SetMax(maxVal int64) {
	p.Lock()
	defer p.Unlock()

	if maxVal <= 0 {
		maxVal = 1
	}

	p.max = maxVal
}

// SetProgress sets the current progress, clamped to the bar's range.
func (p *ProgressBar) SetProgress(progress int64) {
	p.Lock()
	defer p.Unlock()

	p.progress = max(0, min(progress, p.max))
}

// GetProgress gets the current progress.
func (p *ProgressBar) GetProgress() int64 {
	p.RLock()
	defer p.RUnlock()

	return p.progress
}

// Complete returns whether the progress bar has been filled.
func (p *ProgressBar) Complete() bool {
	p.RLock()
	defer p.RUnlock()

	return p.progress >= p.max
}

// Draw draws this primitive onto the screen.
func (p *ProgressBar) Draw(screen tcell.Screen) {
	p.Box.DrawForSubclass(screen, p)

	p.RLock()
	defer p.RUnlock()

	x, y, width, height := p.GetInnerRect()

	barLength := min(int(math.RoundToEven(float64(width)*(float64(p.progress)/float64(p.max)))), width)

	filled := tcell.StyleDefault.Foreground(p.filledColor).Background(p.GetBackgroundColor())
	empty := tcell.StyleDefault.Foreground(p.emptyColor).Background(p.GetBackgroundColor())

	for i := range height {
		for j := range barLength {
			screen.SetContent(x+j, y+i, p.filledRune, nil, filled)
		}

		for j := barLength; j < width; j++ {
			screen.SetContent(x+j, y+i, p.emptyRune, nil, empty)
		}
	}
}
