// Package prompt derives the active event prompt from the clock.
//
// Nothing here is stored: the current prompt, its deadline and the event
// phase are recomputed from the configured schedule on every call.
package prompt

import (
	"fmt"
	"strings"
	"time"

	"github.com/BlobEmoji/Artemis/model"
)

// Phase is the event phase for a given day.
type Phase int

const (
	BeforeEvent Phase = iota
	DuringEvent
	AfterEvent
)

func (p Phase) String() string {
	switch p {
	case BeforeEvent:
		return "before_event"
	case DuringEvent:
		return "during_event"
	case AfterEvent:
		return "after_event"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Prompt is one themed cue from the ordered prompt list.
type Prompt struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Schedule maps the clock onto the prompt list.
type Schedule struct {
	start         time.Time
	end           time.Time
	loc           *time.Location
	daysPerPrompt int
	prompts       []string
	now           func() time.Time
}

// NewSchedule builds a schedule from the event config. A nil clock uses
// time.Now.
func NewSchedule(ev model.Event, now func() time.Time) *Schedule {
	if now == nil {
		now = time.Now
	}
	loc := ev.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Schedule{
		start:         civil(ev.StartDay.In(loc)),
		end:           civil(ev.EndDay.In(loc)),
		loc:           loc,
		daysPerPrompt: ev.DaysPerPrompt,
		prompts:       append([]string(nil), ev.Prompts...),
		now:           now,
	}
}

// civil truncates t to its calendar date, expressed in UTC so that day
// arithmetic is not disturbed by DST shifts.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *Schedule) today() time.Time {
	return civil(s.now().In(s.loc))
}

// Day is the number of days since the start day; negative before the event.
func (s *Schedule) Day() int {
	return int(s.today().Sub(s.start).Hours() / 24)
}

// CurrentID is the index of the prompt for today. It uses floor division,
// so every day before the start maps to a negative index.
func (s *Schedule) CurrentID() int {
	day := s.Day()
	id := day / s.daysPerPrompt
	if day%s.daysPerPrompt != 0 && day < 0 {
		id--
	}
	return id
}

// Current returns the active prompt. ok is false before the event and once
// the prompt list has been exhausted; both are normal states.
func (s *Schedule) Current() (Prompt, bool) {
	id := s.CurrentID()
	if !s.InRange(id) {
		return Prompt{}, false
	}
	return Prompt{ID: id, Name: s.prompts[id]}, true
}

// Deadline is the moment the current prompt stops being current: the start
// of the next prompt window, capped at the end day.
func (s *Schedule) Deadline() time.Time {
	next := s.start.AddDate(0, 0, s.daysPerPrompt*(s.CurrentID()+1))
	if s.end.Before(next) {
		next = s.end
	}
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, s.loc)
}

// Phase reports where today falls relative to the event window. The start
// and end days both belong to DuringEvent.
func (s *Schedule) Phase() Phase {
	today := s.today()
	switch {
	case today.Before(s.start):
		return BeforeEvent
	case today.After(s.end):
		return AfterEvent
	default:
		return DuringEvent
	}
}

// Len is the number of prompts in the event.
func (s *Schedule) Len() int {
	return len(s.prompts)
}

// InRange reports whether id indexes the prompt list.
func (s *Schedule) InRange(id int) bool {
	return id >= 0 && id < len(s.prompts)
}

// Name returns the prompt name for id, or "" when out of range.
func (s *Schedule) Name(id int) string {
	if !s.InRange(id) {
		return ""
	}
	return s.prompts[id]
}

// Text renders a prompt as `"Name" (#n)` with a one-based number.
func (s *Schedule) Text(id int) string {
	return fmt.Sprintf("%q (#%d)", s.Name(id), id+1)
}

// Shift moves id by delta, wrapping around the prompt list.
func (s *Schedule) Shift(id, delta int) int {
	n := len(s.prompts)
	if n == 0 {
		return 0
	}
	return ((id+delta)%n + n) % n
}

// Past lists the prompts revealed before the current one.
func (s *Schedule) Past() []Prompt {
	var past []Prompt
	for id := 0; id < s.CurrentID() && id < len(s.prompts); id++ {
		past = append(past, Prompt{ID: id, Name: s.prompts[id]})
	}
	return past
}

// Topic is the submission channel topic for the current phase.
func (s *Schedule) Topic() string {
	var b strings.Builder
	switch s.Phase() {
	case BeforeEvent:
		fmt.Fprintf(&b, "Event starts on %s.", s.start.Format("2006-01-02"))
	case DuringEvent:
		if _, ok := s.Current(); ok {
			fmt.Fprintf(&b, "Newest Prompt: %s.\n", s.Text(s.CurrentID()))
		}
		fmt.Fprintf(&b, "The next prompt reveal is at <t:%d>", s.Deadline().Unix())
	default:
		b.WriteString("The event has ended. Thanks for participating!")
	}
	b.WriteString("\nCheck pins for more info.")
	return b.String()
}

// Snapshot is the schedule state at one instant, as reported by /prompt and
// the ops API.
type Snapshot struct {
	Phase    string    `json:"phase"`
	Current  *Prompt   `json:"current,omitempty"`
	Number   int       `json:"number,omitempty"`
	Deadline time.Time `json:"deadline"`
	Total    int       `json:"total"`
	Past     []Prompt  `json:"past"`
	Topic    string    `json:"topic"`
}

func (s *Schedule) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:    s.Phase().String(),
		Deadline: s.Deadline(),
		Total:    len(s.prompts),
		Past:     s.Past(),
		Topic:    s.Topic(),
	}
	if p, ok := s.Current(); ok {
		snap.Current = &p
		snap.Number = p.ID + 1
	}
	if snap.Past == nil {
		snap.Past = []Prompt{}
	}
	return snap
}
