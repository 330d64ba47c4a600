// Package trace replays a timeline of calls through the three strategies on
// virtual time and reports when each one actually executed.
package trace

import (
	"errors"
	"fmt"
	"ratedemo/utils"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

const (
	Normal    = "normal"
	Throttled = "throttled"
	Debounced = "debounced"
)

var ErrBadOffset = errors.New("bad call offset")

var start = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// Row is one execution of a strategy's action.
type Row struct {
	Strategy string
	At       time.Duration
	Call     int
	CallAt   time.Duration
}

// ParseOffsets reads a comma separated list of call offsets. Bare integers
// are milliseconds; anything else must parse as a time.Duration. Offsets
// may not go backwards.
func ParseOffsets(s string) ([]time.Duration, error) {
	var offsets []time.Duration
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}

		var off time.Duration
		if n, err := strconv.Atoi(field); err == nil {
			off = time.Duration(n) * time.Millisecond
		} else if off, err = time.ParseDuration(field); err != nil {
			return nil, fmt.Errorf("%w '%s': %w", ErrBadOffset, field, err)
		}

		if off < 0 {
			return nil, fmt.Errorf("%w '%s': negative", ErrBadOffset, field)
		}
		if len(offsets) > 0 && off < offsets[len(offsets)-1] {
			return nil, fmt.Errorf("%w '%s': earlier than the call before it", ErrBadOffset, field)
		}
		offsets = append(offsets, off)
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("%w: no offsets given", ErrBadOffset)
	}
	return offsets, nil
}

// Run calls every strategy at each offset, then lets pending timers drain.
func Run(offsets []time.Duration, throttle, debounce time.Duration) []Row {
	clock := utils.NewManualClock(start)
	var rows []Row

	record := func(strategy string) func(int) {
		return func(call int) {
			rows = append(rows, Row{
				Strategy: strategy,
				At:       clock.Now().Sub(start),
				Call:     call,
				CallAt:   offsets[call],
			})
		}
	}

	normal := record(Normal)
	throttled := utils.Throttle(clock, clock, throttle, record(Throttled))
	debounced := utils.Debounce(clock, debounce, record(Debounced))

	for i, off := range offsets {
		clock.AdvanceTo(start.Add(off))
		normal(i)
		throttled(i)
		debounced(i)
	}
	clock.Flush()

	return rows
}

func Count(rows []Row, strategy string) int {
	n := 0
	for _, r := range rows {
		if r.Strategy == strategy {
			n++
		}
	}
	return n
}

func Render(rows []Row) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25D94")).Align(lipgloss.Center)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#666565"))).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers("STRATEGY", "AT", "CALL", "CALL AT")

	for _, r := range rows {
		t.Row(r.Strategy, ms(r.At), strconv.Itoa(r.Call), ms(r.CallAt))
	}

	summary := fmt.Sprintf("normal: %d | throttled: %d | debounced: %d",
		Count(rows, Normal), Count(rows, Throttled), Count(rows, Debounced))

	return lipgloss.JoinVertical(lipgloss.Left, t.Render(), summary)
}

func ms(d time.Duration) string {
	return strconv.FormatInt(d.Milliseconds(), 10) + "ms"
}
