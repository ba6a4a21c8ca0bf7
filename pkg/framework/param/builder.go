package param

import "fmt"

// Builder configures a Parameter before it is registered.
type Builder struct {
	p *Parameter
}

// New starts an automatable parameter with a 0-1 range.
func New(id uint32, name string) *Builder {
	return &Builder{p: &Parameter{
		ID:        id,
		Name:      name,
		ShortName: name,
		Max:       1,
		Flags:     CanAutomate,
	}}
}

func (b *Builder) ShortName(name string) *Builder {
	b.p.ShortName = name
	return b
}

// Range sets the plain range. A default set earlier is kept in plain
// terms.
func (b *Builder) Range(min, max float64) *Builder {
	plain := b.p.Denormalize(b.p.DefaultValue)
	b.p.Min, b.p.Max = min, max
	b.p.DefaultValue = b.p.Normalize(plain)
	return b
}

// Default sets the default as a plain value.
func (b *Builder) Default(plain float64) *Builder {
	b.p.DefaultValue = b.p.Normalize(plain)
	return b
}

func (b *Builder) Unit(unit string) *Builder {
	b.p.Unit = unit
	return b
}

// Steps makes the parameter discrete with count steps.
func (b *Builder) Steps(count int32) *Builder {
	b.p.StepCount = count
	return b
}

// Toggle makes an off/on switch that defaults to off.
func (b *Builder) Toggle() *Builder {
	b.p.Min, b.p.Max = 0, 1
	b.p.StepCount = 1
	b.p.DefaultValue = 0
	return b.Formatter(OnOffFormatter, nil)
}

// List makes a discrete parameter choosing one of labels. The plain value
// is the label index.
func (b *Builder) List(labels ...string) *Builder {
	b.p.Min = 0
	b.p.Max = float64(max(len(labels)-1, 0))
	b.p.StepCount = int32(max(len(labels)-1, 0))
	b.p.Flags |= IsList
	return b.Formatter(ListFormatter(labels), ListParser(labels))
}

// ReadOnly makes the parameter an output the host may display but not set.
func (b *Builder) ReadOnly() *Builder {
	b.p.Flags = b.p.Flags&^CanAutomate | IsReadOnly
	return b
}

func (b *Builder) Hidden() *Builder {
	b.p.Flags |= IsHidden
	return b
}

// Bypass marks the parameter as the plugin's bypass switch.
func (b *Builder) Bypass() *Builder {
	b.p.Flags |= IsBypass
	return b
}

// Formatter sets how plain values are shown and parsed. A nil parse
// falls back to parsing a number.
func (b *Builder) Formatter(format func(float64) string, parse func(string) (float64, error)) *Builder {
	b.p.formatFunc = format
	b.p.parseFunc = parse
	return b
}

// Build returns the parameter set to its default.
func (b *Builder) Build() *Parameter {
	b.p.SetValue(b.p.DefaultValue)
	return b.p
}

// BuildChecked is Build for parameters made from untrusted input.
func (b *Builder) BuildChecked() (*Parameter, error) {
	if b.p.Max < b.p.Min {
		return nil, fmt.Errorf("parameter %d %q: min %g above max %g", b.p.ID, b.p.Name, b.p.Min, b.p.Max)
	}
	if b.p.StepCount < 0 {
		return nil, fmt.Errorf("parameter %d %q: negative step count", b.p.ID, b.p.Name)
	}
	return b.Build(), nil
}
