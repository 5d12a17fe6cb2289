package terminal

import (
	"context"
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"peerball/arena"
	"peerball/logging"
	"peerball/physics"
	"peerball/protocol"
	"peerball/session"
)

// Controller is the part of session.Controller the terminal drives.
type Controller interface {
	State() session.View
	SetLocalInput(k protocol.Keyboard)
	Start()
	Stop()
	SplitTeams()
	ChangeTeam(playerID string, team arena.Team)
}

type Options struct {
	Arena *arena.Arena
	// HoldWindow is how long a key counts as held after its last repeat.
	HoldWindow time.Duration
	InputHz    int
	DrawHz     int
	// Clock is used for key timing. Nil means time.Now.
	Clock func() time.Time
}

// UI reads the keyboard into the local Input State and draws the match.
type UI struct {
	screen tcell.Screen
	ctrl   Controller
	arena  *arena.Arena
	keys   *HeldKeys
	now    func() time.Time

	inputEvery time.Duration
	drawEvery  time.Duration

	// last Input State handed to the controller
	sent protocol.Keyboard
}

// New wraps an initialised screen. The caller owns the screen and calls Fini.
func New(screen tcell.Screen, ctrl Controller, opts Options) *UI {
	a := opts.Arena
	if a == nil {
		a = arena.Classic()
	}
	hold := opts.HoldWindow
	if hold <= 0 {
		hold = 400 * time.Millisecond
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &UI{
		screen:     screen,
		ctrl:       ctrl,
		arena:      a,
		keys:       NewHeldKeys(hold),
		now:        now,
		inputEvery: every(opts.InputHz, protocol.ForceHz),
		drawEvery:  every(opts.DrawHz, 30),
	}
}

func every(hz, fallback int) time.Duration {
	if hz <= 0 {
		hz = fallback
	}
	return time.Second / time.Duration(hz)
}

// Run handles key events and redraws until the user quits or ctx is done.
func (u *UI) Run(ctx context.Context) error {
	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	defer close(quit)
	go func() {
		for {
			ev := u.screen.PollEvent()
			if ev == nil {
				close(events)
				return
			}
			select {
			case events <- ev:
			case <-quit:
				return
			}
		}
	}()

	input := time.NewTicker(u.inputEvery)
	defer input.Stop()
	draw := time.NewTicker(u.drawEvery)
	defer draw.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if u.handle(ev) {
				logging.Log.Infow("terminal quit")
				return nil
			}
		case <-input.C:
			u.pushInput()
		case <-draw.C:
			u.draw()
		}
	}
}

// handle applies one terminal event and reports whether the user quit.
func (u *UI) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventResize:
		u.screen.Sync()
	case *tcell.EventKey:
		now := u.now()
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return true
		case tcell.KeyUp:
			u.keys.Press(KeyUp, now)
		case tcell.KeyDown:
			u.keys.Press(KeyDown, now)
		case tcell.KeyLeft:
			u.keys.Press(KeyLeft, now)
		case tcell.KeyRight:
			u.keys.Press(KeyRight, now)
		case tcell.KeyRune:
			return u.command(ev.Rune(), now)
		}
		u.pushInput()
	}
	return false
}

func (u *UI) command(r rune, now time.Time) bool {
	switch r {
	case ' ':
		u.keys.Press(KeyKick, now)
		u.pushInput()
	case 'q':
		return true
	case 's':
		if u.ctrl.State().Running {
			u.ctrl.Stop()
		} else {
			u.ctrl.Start()
		}
	case 'x':
		u.ctrl.SplitTeams()
	case 't':
		v := u.ctrl.State()
		for _, p := range v.Game.Players {
			if p.ID == v.LocalID {
				u.ctrl.ChangeTeam(p.ID, nextTeam(p.Team))
				break
			}
		}
	}
	return false
}

func nextTeam(t arena.Team) arena.Team {
	switch t {
	case arena.TeamSpectator:
		return arena.TeamRed
	case arena.TeamRed:
		return arena.TeamBlue
	default:
		return arena.TeamSpectator
	}
}

// pushInput hands the held Input State to the controller when it changed.
func (u *UI) pushInput() {
	k := u.keys.State(u.now())
	if k == u.sent {
		return
	}
	u.sent = k
	u.ctrl.SetLocalInput(k)
}

const helpLine = "arrows move  space kick  s start/stop  x split  t team  q quit"

func (u *UI) draw() {
	v := u.ctrl.State()
	u.screen.Clear()
	w, h := u.screen.Size()
	if w < 20 || h < 8 {
		drawText(u.screen, 0, 0, tcell.StyleDefault, "window too small")
		u.screen.Show()
		return
	}

	drawText(u.screen, 0, 0, tcell.StyleDefault.Bold(true), statusLine(v))
	drawText(u.screen, 0, h-1, tcell.StyleDefault.Dim(true), helpLine)

	// field occupies rows 1..h-2
	top, rows := 1, h-2
	drawBox(u.screen, 0, top, w-1, top+rows-1)
	for _, b := range v.Bodies {
		col, row := u.cell(b, w, top, rows)
		style := tcell.StyleDefault.Foreground(tcell.GetColor(b.Color))
		u.screen.SetContent(col, row, glyph(b, v.LocalID), nil, style)
	}
	u.screen.Show()
}

// cell maps arena coordinates inside the box drawn at (0, top).
func (u *UI) cell(b physics.BodyState, w, top, rows int) (int, int) {
	col := 1 + int(b.X/u.arena.Width*float64(w-3))
	row := top + 1 + int(b.Y/u.arena.Height*float64(rows-3))
	return col, row
}

func glyph(b physics.BodyState, localID string) rune {
	switch {
	case b.Kind == physics.KindBall:
		return 'o'
	case b.ID == localID:
		return '@'
	case b.KickIndicator:
		return '*'
	case b.Team == arena.TeamRed:
		return 'R'
	default:
		return 'B'
	}
}

func statusLine(v session.View) string {
	role := "guest"
	if v.Host {
		role = "host"
	}
	state := "stopped"
	if v.Running {
		state = "running"
	}
	return fmt.Sprintf("%s (%s) %s %s | red %d : %d blue | to %d | players %d | frame %d (+%d)",
		v.Name, v.LocalID, role, state,
		v.Game.Score.Red, v.Game.Score.Blue, v.Game.ScoreLimit,
		len(v.Game.Players), v.Frame, v.FramesSinceSync)
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for i, r := range text {
		s.SetContent(x+i, y, r, nil, style)
	}
}

func drawBox(s tcell.Screen, x1, y1, x2, y2 int) {
	for x := x1; x <= x2; x++ {
		s.SetContent(x, y1, tcell.RuneHLine, nil, tcell.StyleDefault)
		s.SetContent(x, y2, tcell.RuneHLine, nil, tcell.StyleDefault)
	}
	for y := y1; y <= y2; y++ {
		s.SetContent(x1, y, tcell.RuneVLine, nil, tcell.StyleDefault)
		s.SetContent(x2, y, tcell.RuneVLine, nil, tcell.StyleDefault)
	}
	s.SetContent(x1, y1, tcell.RuneULCorner, nil, tcell.StyleDefault)
	s.SetContent(x2, y1, tcell.RuneURCorner, nil, tcell.StyleDefault)
	s.SetContent(x1, y2, tcell.RuneLLCorner, nil, tcell.StyleDefault)
	s.SetContent(x2, y2, tcell.RuneLRCorner, nil, tcell.StyleDefault)
}
