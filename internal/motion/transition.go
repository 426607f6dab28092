package motion

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrInvalidEasing indicates an easing identifier outside the recognised set.
	ErrInvalidEasing = errors.New("motion: invalid easing")
	// ErrInvalidTiming indicates a non-finite, non-positive duration or a negative delay.
	ErrInvalidTiming = errors.New("motion: invalid timing")
)

// Transition is the normalized per-animation descriptor. Two transitions
// built from the same inputs compare equal.
type Transition struct {
	Duration float64
	Delay    float64
	Ease     Easing
	// Loop repeats the animation forever, used by ambient floating motion.
	Loop bool
}

// Build validates the inputs and returns the transition descriptor.
func Build(duration, delay float64, ease Easing) (Transition, error) {
	if !ease.Valid() {
		return Transition{}, fmt.Errorf("%w: %q", ErrInvalidEasing, ease)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return Transition{}, fmt.Errorf("%w: duration %v", ErrInvalidTiming, duration)
	}
	if math.IsNaN(delay) || math.IsInf(delay, 0) || delay < 0 {
		return Transition{}, fmt.Errorf("%w: delay %v", ErrInvalidTiming, delay)
	}
	return Transition{Duration: duration, Delay: delay, Ease: ease}, nil
}

// MustBuild is Build for package-level tables; it panics on invalid input.
func MustBuild(duration, delay float64, ease Easing) Transition {
	t, err := Build(duration, delay, ease)
	if err != nil {
		panic(err)
	}
	return t
}

// End is the time, relative to the shared epoch, at which the transition settles.
func (t Transition) End() float64 {
	return t.Delay + t.Duration
}

// Looped returns a copy that repeats forever.
func (t Transition) Looped() Transition {
	t.Loop = true
	return t
}

// WithDelay returns a copy with the delay replaced.
func (t Transition) WithDelay(delay float64) Transition {
	t.Delay = delay
	return t
}

// MarshalJSON emits the shape the page driver consumes: easing as a bezier array.
func (t Transition) MarshalJSON() ([]byte, error) {
	curve, ok := t.Ease.Curve()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEasing, t.Ease)
	}
	payload := struct {
		Duration float64    `json:"duration"`
		Delay    float64    `json:"delay"`
		Ease     [4]float64 `json:"ease"`
		Repeat   *string    `json:"repeat,omitempty"`
	}{Duration: t.Duration, Delay: t.Delay, Ease: curve}
	if t.Loop {
		inf := "Infinity"
		payload.Repeat = &inf
	}
	return json.Marshal(payload)
}

// Orchestration controls how a parent variant schedules its children.
type Orchestration struct {
	StaggerChildren float64
	DelayChildren   float64
}

// Descriptor is the transition attached to a variant state. It carries either
// one uniform transition or per-property transitions, never both.
type Descriptor struct {
	uniform       Transition
	hasUniform    bool
	perProperty   map[Property]Transition
	Orchestration Orchestration
}

// Uniform applies one transition to every animated property.
func Uniform(t Transition) Descriptor {
	return Descriptor{uniform: t, hasUniform: true}
}

// PerProperty gives each listed property its own transition.
func PerProperty(m map[Property]Transition) Descriptor {
	cp := make(map[Property]Transition, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Descriptor{perProperty: cp}
}

// Orchestrated returns a descriptor that only schedules children.
func Orchestrated(o Orchestration) Descriptor {
	return Descriptor{Orchestration: o}
}

// WithOrchestration returns a copy carrying the given child scheduling.
func (d Descriptor) WithOrchestration(o Orchestration) Descriptor {
	d.Orchestration = o
	return d
}

// IsZero reports whether the descriptor carries no timing at all.
func (d Descriptor) IsZero() bool {
	return !d.hasUniform && len(d.perProperty) == 0 && d.Orchestration == (Orchestration{})
}

// For returns the transition governing a property.
func (d Descriptor) For(p Property) (Transition, bool) {
	if t, ok := d.perProperty[p]; ok {
		return t, true
	}
	if d.hasUniform {
		return d.uniform, true
	}
	return Transition{}, false
}

// Properties lists the properties with a dedicated transition, sorted.
func (d Descriptor) Properties() []Property {
	out := make([]Property, 0, len(d.perProperty))
	for p := range d.perProperty {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Span returns the earliest delay and latest settle time over all transitions.
func (d Descriptor) Span() (start, end float64, ok bool) {
	visit := func(t Transition) {
		if !ok || t.Delay < start {
			start = t.Delay
		}
		if !ok || t.End() > end {
			end = t.End()
		}
		ok = true
	}
	if d.hasUniform {
		visit(d.uniform)
	}
	for _, p := range d.Properties() {
		visit(d.perProperty[p])
	}
	return start, end, ok
}

func (d Descriptor) clone() Descriptor {
	if d.perProperty != nil {
		d.perProperty = PerProperty(d.perProperty).perProperty
	}
	return d
}

// MarshalJSON flattens the descriptor the way the page driver expects it:
// uniform timing at the top level, per-property timings keyed by property.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if d.hasUniform {
		raw, err := json.Marshal(d.uniform)
		if err != nil {
			return nil, err
		}
		var flat map[string]any
		if err := json.Unmarshal(raw, &flat); err != nil {
			return nil, err
		}
		for k, v := range flat {
			out[k] = v
		}
	}
	for p, t := range d.perProperty {
		out[string(p)] = t
	}
	if d.Orchestration.StaggerChildren > 0 {
		out["staggerChildren"] = d.Orchestration.StaggerChildren
	}
	if d.Orchestration.DelayChildren > 0 {
		out["delayChildren"] = d.Orchestration.DelayChildren
	}
	return json.Marshal(out)
}
