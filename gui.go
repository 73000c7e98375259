package main

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"
	"time"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/nf/nic/intcode"
)

// runGUI runs the program described by c and shows its screen in a
// window. Each time the program reads input it is given the joystick
// position: -1 while the left arrow is held, 1 for the right arrow and
// 0 otherwise. The final screen is written to w when the program halts.
func runGUI(c *runConfig, w io.Writer) error {
	c.Screen.Enabled = true
	s, err := newSession(c, w, nil)
	if err != nil {
		return err
	}
	g := &gui{session: s}
	driver.Main(g.main)
	if g.err != nil {
		return g.err
	}
	if !s.m.Halted() {
		return errors.New("window closed before the program halted")
	}
	if s.png != "" {
		if err := writePNG(s.png, s.scr, s.scale); err != nil {
			return err
		}
	}
	if s.m.Err() != nil {
		return errFaulted
	}
	return nil
}

type gui struct {
	*session

	left, right bool
	started     bool
	score       int64

	buf   screen.Buffer
	tex   screen.Texture
	ops   int // updated to match g.scr.Ops() after uploading
	dirty bool
	err   error
}

func (g *gui) joystick() int64 {
	switch {
	case g.left && !g.right:
		return -1
	case g.right && !g.left:
		return 1
	}
	return 0
}

func (g *gui) main(s screen.Screen) {
	w, err := s.NewWindow(&screen.NewWindowOptions{Title: "nic", Width: 640, Height: 480})
	if err != nil {
		g.err = err
		return
	}
	defer w.Release()
	defer g.release()

	type update struct{}
	done := make(chan bool)
	defer close(done)
	go func() {
		t := time.NewTicker(time.Second / 60)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				w.Send(update{})
			case <-done:
				return
			}
		}
	}()

	var sz size.Event
	for {
		switch e := w.NextEvent().(type) {
		case size.Event:
			sz = e
			if sz.WidthPx+sz.HeightPx == 0 {
				return
			}
			g.dirty = true

		case lifecycle.Event:
			if e.To == lifecycle.StageDead {
				return
			}

		case paint.Event:
			g.dirty = true

		case key.Event:
			held := e.Direction != key.DirRelease
			switch e.Code {
			case key.CodeLeftArrow:
				g.left = held
			case key.CodeRightArrow:
				g.right = held
			case key.CodeEscape:
				return
			}

		case update:
			if err := g.step(); err != nil {
				g.err = err
				return
			}
			if err := g.upload(s); err != nil {
				g.err = fmt.Errorf("update: %v", err)
				return
			}
			if g.dirty && g.tex != nil {
				w.Fill(sz.Bounds(), color.Black, draw.Src)
				w.Scale(fit(sz.Bounds(), g.tex.Bounds()), g.tex, g.tex.Bounds(), draw.Src, nil)
				w.Publish()
				g.dirty = false
			}

		case error:
			logger.Errorf("%v", e)
		}
	}
}

// step runs the program until it next needs input.
func (g *gui) step() error {
	if g.m.Halted() {
		return nil
	}
	if g.started {
		g.m.PushInput(g.joystick())
	}
	g.started = true
	halted := g.m.Run(intcode.UntilInput)
	if err := g.flush(halted); err != nil {
		return err
	}
	if sc := g.scr.Score; sc != g.score {
		g.score = sc
		logger.Infof("score: %d", sc)
	}
	if halted {
		logger.Noticef("halted with score %d", g.score)
	}
	return nil
}

// upload copies the screen to the texture if it has changed.
func (g *gui) upload(s screen.Screen) (err error) {
	if o := g.scr.Ops(); g.ops == o {
		return nil
	}
	m := g.scr.Image(1)
	sz := m.Bounds().Size()
	if sz.X == 0 || sz.Y == 0 {
		return nil
	}
	if g.tex == nil || g.tex.Size() != sz {
		g.release()
		g.buf, err = s.NewBuffer(sz)
		if err != nil {
			return
		}
		g.tex, err = s.NewTexture(sz)
		if err != nil {
			return
		}
	}
	draw.Draw(g.buf.RGBA(), g.buf.Bounds(), m, image.Point{}, draw.Src)
	g.tex.Upload(image.Point{}, g.buf, g.buf.Bounds())
	g.ops = g.scr.Ops()
	g.dirty = true
	return nil
}

func (g *gui) release() {
	if g.tex != nil {
		g.tex.Release()
		g.tex = nil
	}
	if g.buf != nil {
		g.buf.Release()
		g.buf = nil
	}
}

// fit returns the largest rectangle centred in dst with the aspect
// ratio of src.
func fit(dst, src image.Rectangle) image.Rectangle {
	dw, dh := dst.Dx(), dst.Dy()
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 {
		return dst
	}
	w, h := dw, dw*sh/sw
	if h > dh {
		w, h = dh*sw/sh, dh
	}
	p := dst.Min.Add(image.Pt((dw-w)/2, (dh-h)/2))
	return image.Rectangle{p, p.Add(image.Pt(w, h))}
}
