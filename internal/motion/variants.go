package motion

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

var (
	// ErrUnknownVariant indicates a lookup for a name that was never registered.
	ErrUnknownVariant = errors.New("motion: unknown variant")
	// ErrMalformedVariant indicates initial and animate states that animate
	// different properties, or a transition for a property the state lacks.
	ErrMalformedVariant = errors.New("motion: malformed variant")
)

// Property is an animatable visual property.
type Property string

const (
	Opacity Property = "opacity"
	Y       Property = "y"
	Scale   Property = "scale"
	ScaleY  Property = "scaleY"
	Filter  Property = "filter"
	Color   Property = "color"
	Height  Property = "height"
)

type valueKind uint8

const (
	kindNumber valueKind = iota
	kindKeyword
	kindKeyframes
)

// Value is a target for one property: a number, a CSS keyword such as
// "auto" or "blur(10px)", or a keyframe list.
type Value struct {
	kind      valueKind
	number    float64
	keyword   string
	keyframes []float64
}

// Num is a numeric target.
func Num(v float64) Value { return Value{kind: kindNumber, number: v} }

// Keyword is a CSS string target.
func Keyword(s string) Value { return Value{kind: kindKeyword, keyword: s} }

// Auto is the intrinsic-size keyword.
func Auto() Value { return Keyword("auto") }

// Keyframes animates through each value in turn.
func Keyframes(values ...float64) Value {
	cp := append([]float64(nil), values...)
	return Value{kind: kindKeyframes, keyframes: cp}
}

// String renders the value for logs and CLI dumps.
func (v Value) String() string {
	switch v.kind {
	case kindKeyword:
		return v.keyword
	case kindKeyframes:
		raw, _ := json.Marshal(v.keyframes)
		return string(raw)
	default:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
}

// Number returns the numeric target when the value is a plain number.
func (v Value) Number() (float64, bool) {
	return v.number, v.kind == kindNumber
}

// Equal compares two values structurally.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind || v.number != other.number || v.keyword != other.keyword {
		return false
	}
	if len(v.keyframes) != len(other.keyframes) {
		return false
	}
	for i := range v.keyframes {
		if v.keyframes[i] != other.keyframes[i] {
			return false
		}
	}
	return true
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindKeyword:
		return json.Marshal(v.keyword)
	case kindKeyframes:
		return json.Marshal(v.keyframes)
	default:
		return json.Marshal(v.number)
	}
}

// Values maps properties to their targets.
type Values map[Property]Value

// Keys returns the animated properties in sorted order.
func (vs Values) Keys() []Property {
	out := make([]Property, 0, len(vs))
	for p := range vs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// State is one pose of a variant plus the transition used to reach it.
type State struct {
	Values     Values
	Transition Descriptor
}

func (s State) clone() State {
	cp := make(Values, len(s.Values))
	for k, v := range s.Values {
		cp[k] = v
	}
	return State{Values: cp, Transition: s.Transition.clone()}
}

func (s State) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Values)+1)
	for p, v := range s.Values {
		out[string(p)] = v
	}
	if !s.Transition.IsZero() {
		out["transition"] = s.Transition
	}
	return json.Marshal(out)
}

// Trigger says what moves an element from initial to animate.
type Trigger string

const (
	TriggerMount  Trigger = "mount"
	TriggerHover  Trigger = "hover"
	TriggerInView Trigger = "inView"
)

// Variant is a named initial, animate and optional exit pose set.
type Variant struct {
	Initial State
	Animate State
	Exit    *State
	Trigger Trigger
}

// Validate checks that initial and animate animate the same properties and
// that per-property transitions only reference animated properties.
func (v Variant) Validate() error {
	initial := v.Initial.Values.Keys()
	animate := v.Animate.Values.Keys()
	if len(initial) != len(animate) {
		return fmt.Errorf("%w: initial animates %v, animate animates %v", ErrMalformedVariant, initial, animate)
	}
	for i := range initial {
		if initial[i] != animate[i] {
			return fmt.Errorf("%w: initial animates %v, animate animates %v", ErrMalformedVariant, initial, animate)
		}
	}
	states := []State{v.Initial, v.Animate}
	if v.Exit != nil {
		states = append(states, *v.Exit)
	}
	for _, s := range states {
		for _, p := range s.Transition.Properties() {
			if _, ok := s.Values[p]; !ok {
				return fmt.Errorf("%w: transition for %q which the state does not animate", ErrMalformedVariant, p)
			}
		}
	}
	return nil
}

// Span is the active window of the animate pose relative to the shared epoch.
func (v Variant) Span() (start, end float64, ok bool) {
	return v.Animate.Transition.Span()
}

func (v Variant) clone() Variant {
	out := Variant{Initial: v.Initial.clone(), Animate: v.Animate.clone(), Trigger: v.Trigger}
	if v.Exit != nil {
		exit := v.Exit.clone()
		out.Exit = &exit
	}
	return out
}

func (v Variant) MarshalJSON() ([]byte, error) {
	trigger := v.Trigger
	if trigger == "" {
		trigger = TriggerMount
	}
	payload := struct {
		Initial State   `json:"initial"`
		Animate State   `json:"animate"`
		Exit    *State  `json:"exit,omitempty"`
		Trigger Trigger `json:"trigger"`
	}{Initial: v.Initial, Animate: v.Animate, Exit: v.Exit, Trigger: trigger}
	return json.Marshal(payload)
}

// Name identifies a registered variant, e.g. "intro.overlay".
type Name string

// Entry pairs a name with its variant for registration.
type Entry struct {
	Name    Name
	Variant Variant
}

// Registry is an immutable set of validated variants. It is safe for
// concurrent use once constructed.
type Registry struct {
	order    []Name
	variants map[Name]Variant
}

// NewRegistry validates every entry. Names must be unique.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{variants: make(map[Name]Variant, len(entries))}
	for _, e := range entries {
		if e.Name == "" {
			return nil, fmt.Errorf("%w: empty name", ErrMalformedVariant)
		}
		if _, dup := r.variants[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrMalformedVariant, e.Name)
		}
		if err := e.Variant.Validate(); err != nil {
			return nil, fmt.Errorf("variant %q: %w", e.Name, err)
		}
		r.variants[e.Name] = e.Variant.clone()
		r.order = append(r.order, e.Name)
	}
	return r, nil
}

// Lookup returns a copy of the named variant.
func (r *Registry) Lookup(name Name) (Variant, error) {
	v, ok := r.variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return v.clone(), nil
}

// Names lists registered names in registration order.
func (r *Registry) Names() []Name {
	return append([]Name(nil), r.order...)
}

// Len returns the number of registered variants.
func (r *Registry) Len() int {
	return len(r.order)
}

// Cue is one scheduled phase of a sequence.
type Cue struct {
	Name  Name    `json:"name"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Sequence resolves the named variants into cues in the order given. Cues
// keep that order even when their windows overlap.
func (r *Registry) Sequence(names ...Name) ([]Cue, error) {
	cues := make([]Cue, 0, len(names))
	for _, name := range names {
		v, ok := r.variants[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
		}
		start, end, _ := v.Span()
		cues = append(cues, Cue{Name: name, Start: start, End: end})
	}
	return cues, nil
}
