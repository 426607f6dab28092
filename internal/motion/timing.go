// Package motion describes the site's entrance choreography as immutable data.
//
// Nothing in this package animates anything. It produces timing tables,
// transition descriptors and named variants that an animation driver on the
// page interpolates against a shared start epoch.
package motion

import (
	"fmt"
	"strings"
)

// Easing names a cubic-bezier curve understood by the animation driver.
type Easing string

const (
	EaseLinear      Easing = "linear"
	EaseInOut       Easing = "easeInOut"
	EaseOutExpo     Easing = "easeOutExpo"
	EaseInOutExpo   Easing = "easeInOutExpo"
	EaseOutQuart    Easing = "easeOutQuart"
	EaseInOutQuart  Easing = "easeInOutQuart"
	EaseOutBackSoft Easing = "easeOutBackSoft"
	EaseInOutCirc   Easing = "easeInOutCirc"
)

var curves = map[Easing][4]float64{
	EaseLinear:      {0, 0, 1, 1},
	EaseInOut:       {0.42, 0, 0.58, 1},
	EaseOutExpo:     {0.16, 1, 0.3, 1},
	EaseInOutExpo:   {0.87, 0, 0.13, 1},
	EaseOutQuart:    {0.25, 1, 0.5, 1},
	EaseInOutQuart:  {0.76, 0, 0.24, 1},
	EaseOutBackSoft: {0.34, 1.3, 0.64, 1},
	EaseInOutCirc:   {0.85, 0, 0.15, 1},
}

// Curve returns the four cubic-bezier control values for the easing.
func (e Easing) Curve() ([4]float64, bool) {
	c, ok := curves[e]
	return c, ok
}

// Valid reports whether the easing is one of the recognised curves.
func (e Easing) Valid() bool {
	_, ok := curves[e]
	return ok
}

// ParseEasing resolves a case-insensitive easing identifier.
func ParseEasing(raw string) (Easing, error) {
	trimmed := strings.TrimSpace(raw)
	for name := range curves {
		if strings.EqualFold(string(name), trimmed) {
			return name, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidEasing, raw)
}

// TimingSpec is one duration/delay/easing triple, in seconds.
type TimingSpec struct {
	Duration float64
	Delay    float64
	Ease     Easing
}

// Transition builds the descriptor for this spec.
func (s TimingSpec) Transition() (Transition, error) {
	return Build(s.Duration, s.Delay, s.Ease)
}

// IntroTimeline holds the landing page timings. Delays share one epoch: the
// moment the page mounts.
type IntroTimeline struct {
	Overlay    TimingSpec
	Background TimingSpec
	Logo       LogoTiming
	Title      TitleTiming
	Content    ContentTiming
	Events     TimingSpec
	Footer     TimingSpec
	// ScrollLockMs is how long page scrolling stays locked while the intro plays.
	ScrollLockMs int
}

// LogoTiming splits the logo reveal and hide delays around one duration.
type LogoTiming struct {
	Duration  float64
	ShowDelay float64
	HideDelay float64
	Ease      Easing
}

// TitleTiming carries independent curves for the title container height,
// its vertical offset and the text colour.
type TitleTiming struct {
	Height TimingSpec
	Y      TimingSpec
	Color  TimingSpec
}

// ContentTiming carries the content container and call-to-action button timings.
type ContentTiming struct {
	Height TimingSpec
	Y      TimingSpec
	Button TimingSpec
}

// StaggerTimeline configures list and form cascades.
type StaggerTimeline struct {
	ListChildren  float64
	ListDelay     float64
	ListChild     TimingSpec
	FormChildren  float64
	FormChild     TimingSpec
	SlideUp       TimingSpec
	CardDuration  float64
	CardStep      float64
	FloatDuration float64
	FloatOffset   float64
}

// HoverTimeline configures pointer-driven transitions.
type HoverTimeline struct {
	PosterCTA TimingSpec
	Card      TimingSpec
}

// Timeline is the complete timing table, grouped by UI phase.
type Timeline struct {
	Intro   IntroTimeline
	Stagger StaggerTimeline
	Hover   HoverTimeline
}

var defaultTimeline = Timeline{
	Intro: IntroTimeline{
		Overlay:    TimingSpec{Duration: 1.0, Delay: 0.2, Ease: EaseInOutExpo},
		Background: TimingSpec{Duration: 1.6, Delay: 0.6, Ease: EaseOutExpo},
		Logo:       LogoTiming{Duration: 0.8, ShowDelay: 0.9, HideDelay: 0, Ease: EaseOutExpo},
		Title: TitleTiming{
			Height: TimingSpec{Duration: 0.8, Delay: 1.2, Ease: EaseInOutQuart},
			Y:      TimingSpec{Duration: 1.0, Delay: 1.2, Ease: EaseOutExpo},
			Color:  TimingSpec{Duration: 0.6, Delay: 1.6, Ease: EaseInOut},
		},
		Content: ContentTiming{
			Height: TimingSpec{Duration: 0.8, Delay: 1.5, Ease: EaseInOutQuart},
			Y:      TimingSpec{Duration: 0.9, Delay: 1.5, Ease: EaseOutExpo},
			Button: TimingSpec{Duration: 0.6, Delay: 1.8, Ease: EaseOutQuart},
		},
		Events:       TimingSpec{Duration: 0.8, Delay: 2.0, Ease: EaseOutExpo},
		Footer:       TimingSpec{Duration: 0.6, Delay: 2.3, Ease: EaseOutExpo},
		ScrollLockMs: 2500,
	},
	Stagger: StaggerTimeline{
		ListChildren:  0.1,
		ListDelay:     0.2,
		ListChild:     TimingSpec{Duration: 0.5, Delay: 0, Ease: EaseOutExpo},
		FormChildren:  0.05,
		FormChild:     TimingSpec{Duration: 0.4, Delay: 0, Ease: EaseOutExpo},
		SlideUp:       TimingSpec{Duration: 0.8, Delay: 0, Ease: EaseOutExpo},
		CardDuration:  0.3,
		CardStep:      0.1,
		FloatDuration: 5,
		FloatOffset:   12,
	},
	Hover: HoverTimeline{
		PosterCTA: TimingSpec{Duration: 0.8, Delay: 0, Ease: EaseOutExpo},
		Card:      TimingSpec{Duration: 0.1, Delay: 0, Ease: EaseOutExpo},
	},
}

// DefaultTimeline returns a copy of the process-wide timing table.
func DefaultTimeline() Timeline {
	return defaultTimeline
}
