package builtin

import (
	"strconv"
	"sync/atomic"

	"github.com/justyntemme/nesthost/pkg/framework/bus"
	"github.com/justyntemme/nesthost/pkg/framework/param"
	fwplugin "github.com/justyntemme/nesthost/pkg/framework/plugin"
	"github.com/justyntemme/nesthost/pkg/framework/process"
	"github.com/justyntemme/nesthost/pkg/plugin"
)

// Monitor passes audio through and counts the notes it sees. It exposes
// the count as a read-only parameter.
type Monitor struct{}

// Monitor parameter IDs
const (
	ParamNotes uint32 = iota
	ParamChannel
)

// monitorScale is the largest note count the parameter can show
const monitorScale = 1 << 20

func (Monitor) GetInfo() fwplugin.Info {
	return fwplugin.Info{
		ID:       "com.nesthost.midimonitor",
		Name:     "MIDI Monitor",
		Version:  "1.0.0",
		Vendor:   "nesthost",
		Category: "Fx|Analyzer",
	}
}

func (Monitor) CreateProcessor() plugin.Processor {
	return NewMonitorProcessor()
}

// MonitorProcessor counts note-on and note-off messages.
type MonitorProcessor struct {
	*fwplugin.BaseProcessor
	noteOns  atomic.Int64
	noteOffs atomic.Int64
	held     [16][128]bool
}

// NewMonitorProcessor creates a monitor with zeroed counts.
func NewMonitorProcessor() *MonitorProcessor {
	p := &MonitorProcessor{BaseProcessor: fwplugin.NewBaseProcessor(nil)}
	p.Parameters().Add(
		param.New(ParamNotes, "Notes").
			Range(0, monitorScale).
			Steps(monitorScale).
			Formatter(param.CountFormatter("notes"), nil).
			ReadOnly().
			Build(),
		param.New(ParamChannel, "Channel").List(channelLabels()...).Build(),
	)
	p.GetBuses().AddEventBus(bus.DirectionInput, "MIDI In")
	return p
}

func channelLabels() []string {
	labels := []string{"All"}
	for ch := 1; ch <= 16; ch++ {
		labels = append(labels, strconv.Itoa(ch))
	}
	return labels
}

// NoteOns returns the number of note-on messages seen.
func (p *MonitorProcessor) NoteOns() int64 {
	return p.noteOns.Load()
}

// NoteOffs returns the number of note-off messages seen.
func (p *MonitorProcessor) NoteOffs() int64 {
	return p.noteOffs.Load()
}

// Held reports whether key on channel is currently down.
func (p *MonitorProcessor) Held(channel, key uint8) bool {
	return p.held[channel&0x0f][key&0x7f]
}

// ProcessAudio implements plugin.Processor. Only notes on the selected
// channel are counted; every event is passed on.
func (p *MonitorProcessor) ProcessAudio(ctx *process.Context) {
	// 0 is all channels, otherwise the 1-based channel
	want := int(ctx.ParamPlain(ParamChannel) + 0.5)

	var ch, key, vel uint8
	for _, e := range ctx.InputEvents.Events() {
		if want > 0 && e.Message.GetChannel(&ch) && int(ch)+1 != want {
			continue
		}
		switch {
		case e.Message.GetNoteStart(&ch, &key, &vel):
			p.noteOns.Add(1)
			p.held[ch&0x0f][key&0x7f] = true
		case e.Message.GetNoteEnd(&ch, &key):
			p.noteOffs.Add(1)
			p.held[ch&0x0f][key&0x7f] = false
		}
	}
	if count := p.GetParameters().Get(ParamNotes); count != nil {
		count.SetPlainValue(float64(min(p.noteOns.Load(), monitorScale)))
	}
	ctx.PassThrough()
}
