package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"ratedemo/monitor"
	"ratedemo/tasks"
	"ratedemo/trace"
	"ratedemo/utils"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
)

type Button struct{ ID, Label string }

var (
	NoneButton = Button{"", ""}

	NormalButton    = Button{"normal", "Normal"}
	ThrottledButton = Button{"throttled", "Throttled"}
	DebouncedButton = Button{"debounced", "Debounced"}

	AllButton         = Button{"all", "Click All"}
	BurstButton       = Button{"burst", "Fire Burst"}
	CancelBurstButton = Button{"cancel-burst", "Cancel Burst"}
	ResetButton       = Button{"reset", "Reset"}

	buttons = []*Button{
		&NormalButton, &ThrottledButton, &DebouncedButton,
		&AllButton, &BurstButton, &CancelBurstButton, &ResetButton,
	}

	timerFiredChan   = make(chan func())
	burstClickChan   = make(chan int)
	burstRunningChan = make(chan bool)
	setProgressChan  = make(chan float64)
	warnChan         = make(chan error)
	watchPathChan    = make(chan string)

	burstCtx, burstCancel = context.WithCancel(context.Background())
)

const historySize = 8

// Click is the argument every strategy forwards to its counter.
type Click struct {
	Seq    int
	Source string
	At     time.Time
}

type Lane struct {
	Button *Button
	Hint   string
	Count  int
	Last   Click

	invoke  func(Click)
	pending func() bool
}

// Board holds what the strategies' actions mutate. Actions run from inside
// Update, but they outlive any single copy of MainModel.
type Board struct {
	lanes   []*Lane
	history []string
}

func (b *Board) note(line string) {
	b.history = append(b.history, line)
	if len(b.history) > historySize {
		b.history = b.history[len(b.history)-historySize:]
	}
}

type MainModel struct {
	cfg          Config
	clock        utils.Clock
	board        *Board
	seq          int
	clicked      *Button
	hovered      *Button
	burstRunning bool

	spinner  spinner.Model
	progress progress.Model

	accumulatedWarns []error
}

func NewMainModel(cfg Config, sched utils.Scheduler, clock utils.Clock) MainModel {
	board := &Board{}

	record := func(lane *Lane) func(Click) {
		return func(c Click) {
			lane.Count++
			lane.Last = c
			board.note(fmt.Sprintf("%s  %-9s #%d  %s",
				clock.Now().Format("15:04:05.000"), lane.Button.ID, c.Seq, c.Source))
			slog.Debug("executed", "lane", lane.Button.ID, "count", lane.Count, "seq", c.Seq, "source", c.Source)
		}
	}

	normal := &Lane{Button: &NormalButton, Hint: "every click", pending: func() bool { return false }}
	normal.invoke = record(normal)

	throttled := &Lane{Button: &ThrottledButton, Hint: "at most once / " + cfg.Throttle.String()}
	throttler := utils.NewThrottler(sched, clock, cfg.Throttle, record(throttled))
	throttled.invoke, throttled.pending = throttler.Invoke, throttler.Pending

	debounced := &Lane{Button: &DebouncedButton, Hint: cfg.Debounce.String() + " after last click"}
	debouncer := utils.NewDebouncer(sched, cfg.Debounce, record(debounced))
	debounced.invoke, debounced.pending = debouncer.Invoke, debouncer.Pending

	board.lanes = []*Lane{normal, throttled, debounced}

	return MainModel{
		cfg:     cfg,
		clock:   clock,
		board:   board,
		clicked: &NoneButton,
		hovered: &NoneButton,

		spinner: spinner.New(func(m *spinner.Model) {
			m.Spinner = spinner.MiniDot
		}),
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(76)),

		accumulatedWarns: []error{},
	}
}

func (m *MainModel) lane(b *Button) *Lane {
	for _, l := range m.board.lanes {
		if *l.Button == *b {
			return l
		}
	}
	return nil
}

// fire hands one click to each of lanes. Clicks share a sequence number so
// the board shows which click a strategy finally let through.
func (m *MainModel) fire(source string, lanes ...*Lane) {
	m.seq++
	c := Click{Seq: m.seq, Source: source, At: m.clock.Now()}
	for _, l := range lanes {
		l.invoke(c)
	}
}

func (m *MainModel) reset() {
	for _, l := range m.board.lanes {
		l.Count = 0
		l.Last = Click{}
	}
	m.board.history = nil
	m.seq = 0
}

func (m *MainModel) SpawnBurst() {
	if m.burstRunning {
		return
	}
	m.burstRunning = true
	m.accumulatedWarns = []error{}
	burstCancel()
	burstCtx, burstCancel = context.WithCancel(context.Background())

	ctx := burstCtx
	count, every := m.cfg.BurstCount, m.cfg.BurstEvery
	go func() {
		slog.Debug("burst started", "count", count, "every", every)
		err := tasks.Burst(ctx, count, every,
			func(i int) {
				select {
				case burstClickChan <- i:
				case <-ctx.Done():
				}
			},
			func(p float64) {
				select {
				case setProgressChan <- p:
				case <-ctx.Done():
				}
			},
		)
		slog.Debug("burst finished", "err", err)
		if err != nil && !errors.Is(err, context.Canceled) {
			warnChan <- err
		}
		burstRunningChan <- false
		setProgressChan <- 0
	}()
}

// press runs whatever b stands for. Mouse clicks and keys both end up here.
func (m *MainModel) press(b *Button) {
	switch *b {
	case NormalButton, ThrottledButton, DebouncedButton:
		m.fire(b.ID, m.lane(b))
	case AllButton:
		m.fire("all", m.board.lanes...)
	case BurstButton:
		if m.burstRunning {
			return
		}
		m.SpawnBurst()
	case CancelBurstButton:
		if !m.burstRunning {
			return
		}
		burstCancel()
	case ResetButton:
		m.reset()
	default:
		return
	}
	m.clicked = b
}

type TimerFiredMsg struct{ fn func() }
type BurstClickMsg struct{ i int }
type BurstRunningMsg struct{ running bool }
type SetProgressPercentMsg struct{ value float64 }
type WarnMsg struct{ warn error }
type WatchPathMsg struct{ path string }

func FetchTimerFired() tea.Msg         { return TimerFiredMsg{<-timerFiredChan} }
func FetchBurstClick() tea.Msg         { return BurstClickMsg{<-burstClickChan} }
func FetchBurstRunning() tea.Msg       { return BurstRunningMsg{<-burstRunningChan} }
func FetchSetProgressPercent() tea.Msg { return SetProgressPercentMsg{<-setProgressChan} }
func FetchWarn() tea.Msg               { return WarnMsg{<-warnChan} }
func FetchWatchPath() tea.Msg          { return WatchPathMsg{<-watchPathChan} }

func (m MainModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		FetchTimerFired,
		FetchBurstClick,
		FetchBurstRunning,
		FetchSetProgressPercent,
		FetchWarn,
		FetchWatchPath,
	)
}

// Every strategy call and every timer callback runs here, on bubbletea's
// event loop. Never block in Update: hand blocking sends to a goroutine.
func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd
	case TimerFiredMsg:
		msg.fn()
		return m, FetchTimerFired
	case BurstClickMsg:
		m.fire("burst", m.board.lanes...)
		return m, FetchBurstClick
	case WatchPathMsg:
		m.fire("watch:"+msg.path, m.board.lanes...)
		return m, FetchWatchPath
	case SetProgressPercentMsg:
		cmd := m.progress.SetPercent(msg.value)
		return m, tea.Batch(cmd, FetchSetProgressPercent)
	case BurstRunningMsg:
		m.burstRunning = msg.running
		return m, FetchBurstRunning
	case WarnMsg:
		m.accumulatedWarns = append(m.accumulatedWarns, msg.warn)
		return m, FetchWarn
	case tea.MouseMsg:
		m.hovered = &NoneButton
		if msg.Action == tea.MouseActionMotion { // aka hover
			if b := buttonAt(msg); b != nil {
				m.hovered = b
			}
		}
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft { // aka onClick
			m.clicked = &NoneButton
			if b := buttonAt(msg); b != nil {
				m.press(b)
			}
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			burstCancel()
			return m, tea.Quit
		case "n":
			m.press(&NormalButton)
		case "t":
			m.press(&ThrottledButton)
		case "d":
			m.press(&DebouncedButton)
		case "a":
			m.press(&AllButton)
		case "b":
			m.press(&BurstButton)
		case "c":
			m.press(&CancelBurstButton)
		case "r":
			m.press(&ResetButton)
		}
	}
	return m, nil
}

func buttonAt(msg tea.MouseMsg) *Button {
	for _, b := range buttons {
		if zone.Get(b.ID).InBounds(msg) {
			return b
		}
	}
	return nil
}

func (m MainModel) View() string {
	divider := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666565")).
		SetString(fmt.Sprintf("<%s>", strings.Repeat("─", 76))).
		String()
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("#949494"))

	btnStyle := func(b *Button, disabled bool) string {
		btnFrame := lipgloss.NewStyle().
			Width(22).
			Align(lipgloss.Center).
			Padding(0, 1).
			Border(lipgloss.NormalBorder())

		style := btnFrame.
			Foreground(lipgloss.Color("#FFF7DB"))
		if disabled {
			style = btnFrame.
				BorderForeground(lipgloss.Color("#525252")).
				Foreground(lipgloss.Color("#525252"))
		} else {
			if *m.hovered == *b {
				style = btnFrame.
					Border(lipgloss.DoubleBorder()).
					Foreground(lipgloss.Color("#FFF7DB"))
			}
			if *m.clicked == *b {
				style = btnFrame.
					Background(lipgloss.Color("#F25D94")).
					Foreground(lipgloss.Color("#FFF7DB")).
					Bold(true)
			}
		}
		return zone.Mark(b.ID, style.Render(b.Label))
	}

	laneView := func(l *Lane) string {
		status := "  "
		if l.pending() {
			status = m.spinner.View() + " "
		}
		last := "-"
		if l.Last.Seq != 0 {
			last = fmt.Sprintf("#%d %s", l.Last.Seq, l.Last.Source)
		}
		return lipgloss.NewStyle().Width(26).Render(lipgloss.JoinVertical(
			lipgloss.Center,
			btnStyle(l.Button, false),
			lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25D94")).Render(strconv.Itoa(l.Count)),
			muted.Render(l.Hint),
			muted.Render(status+last),
		))
	}

	lanes := make([]string, 0, len(m.board.lanes))
	for _, l := range m.board.lanes {
		lanes = append(lanes, laneView(l))
	}

	return zone.Scan(lipgloss.JoinVertical(
		lipgloss.Top,
		muted.PaddingLeft(2).Render("Click the buttons rapidly and compare the counters."),
		divider,
		lipgloss.NewStyle().Margin(0, 0, 0, 2).Render(lipgloss.JoinHorizontal(lipgloss.Top, lanes...)),
		divider,
		lipgloss.NewStyle().Margin(0, 0, 0, 2).Render(lipgloss.JoinHorizontal(
			lipgloss.Top,
			btnStyle(&AllButton, false),
			btnStyle(&BurstButton, m.burstRunning),
			btnStyle(&CancelBurstButton, !m.burstRunning),
		)),
		lipgloss.NewStyle().Margin(0, 0, 0, 2).Render(btnStyle(&ResetButton, false)),
		divider,
		muted.PaddingLeft(2).
			Render("q, ctrl+c: Quit | n/t/d: Click one | a: Click all | b: Burst | c: Cancel | r: Reset"),
		divider,
		"  "+m.progress.View(),
		divider,
		func() string {
			var sb strings.Builder
			for _, line := range m.board.history {
				sb.WriteString("  " + line + "\n")
			}
			for _, warn := range m.accumulatedWarns {
				if warn != nil {
					sb.WriteString("- " + warn.Error() + "\n")
				}
			}
			return sb.String()
		}(),
	))
}

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Printf("invalid flags: %v\n", err)
		os.Exit(2)
	}

	if cfg.Trace != "" {
		offsets, err := trace.ParseOffsets(cfg.Trace)
		if err != nil {
			fmt.Printf("invalid trace: %v\n", err)
			os.Exit(2)
		}
		fmt.Println(trace.Render(trace.Run(offsets, cfg.Throttle, cfg.Debounce)))
		return
	}

	logFile, err := setupLogging(cfg.LogPath)
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	sched := utils.NewEventScheduler(func(fn func()) { timerFiredChan <- fn })
	defer sched.Stop()

	if cfg.WatchDir != "" {
		watchCtx, watchCancel := context.WithCancel(context.Background())
		defer watchCancel()
		sendWarning := func(err error) { warnChan <- err }
		if err := monitor.WatchDir(watchCtx, cfg.WatchDir, watchPathChan, sendWarning); err != nil {
			fmt.Printf("%v\n", err)
			os.Exit(1)
		}
	}

	zone.NewGlobal()
	defer zone.Close()

	p := tea.NewProgram(NewMainModel(cfg, sched, utils.SystemClock), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Alas, there's been an error: %v", err)
		os.Exit(1)
	}
}
