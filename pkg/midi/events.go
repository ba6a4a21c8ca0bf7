// Package midi carries timestamped MIDI messages through a processing
// block. Messages are gomidi byte messages; the buffer is preallocated so
// the audio goroutine can fill and drain it without allocating.
package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

const (
	CCModWheel    uint8 = 1
	CCVolume      uint8 = 7
	CCPan         uint8 = 10
	CCExpression  uint8 = 11
	CCSustain     uint8 = 64
	CCAllSoundOff uint8 = 120
	CCResetAll    uint8 = 121
	CCAllNotesOff uint8 = 123
)

// Event is a MIDI message scheduled at a sample offset within a block.
type Event struct {
	Offset  int32
	Message gomidi.Message
}

// NoteOn builds a note-on event.
func NoteOn(offset int32, channel, key, velocity uint8) Event {
	return Event{Offset: offset, Message: gomidi.NoteOn(channel, key, velocity)}
}

// NoteOff builds a note-off event.
func NoteOff(offset int32, channel, key uint8) Event {
	return Event{Offset: offset, Message: gomidi.NoteOff(channel, key)}
}

// ControlChange builds a control change event.
func ControlChange(offset int32, channel, controller, value uint8) Event {
	return Event{Offset: offset, Message: gomidi.ControlChange(channel, controller, value)}
}

func (e Event) String() string {
	return fmt.Sprintf("%s @%d", e.Message.String(), e.Offset)
}

// Buffer is a fixed-capacity list of events kept in offset order.
type Buffer struct {
	events []Event
}

// NewBuffer allocates a buffer able to hold capacity events.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{events: make([]Event, 0, capacity)}
}

// Add inserts e after any event with the same or earlier offset. It reports
// false and drops the event when the buffer is full.
func (b *Buffer) Add(e Event) bool {
	n := len(b.events)
	if n == cap(b.events) {
		return false
	}
	b.events = b.events[:n+1]
	i := n
	for i > 0 && b.events[i-1].Offset > e.Offset {
		b.events[i] = b.events[i-1]
		i--
	}
	b.events[i] = e
	return true
}

// Len returns the number of buffered events.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.events)
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return cap(b.events)
}

// Events returns the buffered events. The slice is only valid until the
// next Add or Clear.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	return b.events
}

// InRange returns the events with start <= Offset < end without copying.
func (b *Buffer) InRange(start, end int32) []Event {
	if b == nil {
		return nil
	}
	lo := 0
	for lo < len(b.events) && b.events[lo].Offset < start {
		lo++
	}
	hi := lo
	for hi < len(b.events) && b.events[hi].Offset < end {
		hi++
	}
	return b.events[lo:hi]
}

// CopyFrom replaces the contents with src, truncated to capacity. It
// returns the number of events dropped.
func (b *Buffer) CopyFrom(src *Buffer) int {
	b.events = b.events[:0]
	if src == nil {
		return 0
	}
	n := copy(b.events[:cap(b.events)], src.events)
	b.events = b.events[:n]
	return len(src.events) - n
}

// Clear empties the buffer, keeping its storage.
func (b *Buffer) Clear() {
	if b != nil {
		b.events = b.events[:0]
	}
}
