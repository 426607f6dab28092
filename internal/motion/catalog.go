package motion

import "fmt"

// Registered variant names.
const (
	IntroOverlay          Name = "intro.overlay"
	IntroBackground       Name = "intro.background"
	IntroLogo             Name = "intro.logo"
	IntroTitleContainer   Name = "intro.title.container"
	IntroTitleText        Name = "intro.title.text"
	IntroContentContainer Name = "intro.content.container"
	IntroContentButton    Name = "intro.content.button"
	IntroEvents           Name = "intro.events"
	IntroFooter           Name = "intro.footer"

	StaggerList     Name = "stagger.list"
	StaggerListItem Name = "stagger.listItem"
	StaggerForm     Name = "stagger.form"
	StaggerFormItem Name = "stagger.formItem"

	BaseSlideUp Name = "base.slideUp"
	BaseFadeUp  Name = "base.fadeUp"

	HoverPosterCTA Name = "hover.posterCTA"
	AmbientFloat   Name = "ambient.float"
)

// PosterCTAOffset is the height of the poster's register button, which
// slides up into view on hover.
const PosterCTAOffset = 48

// IntroOrder is the fixed enqueue order of the landing page phases.
func IntroOrder() []Name {
	return []Name{
		IntroOverlay,
		IntroBackground,
		IntroLogo,
		IntroTitleContainer,
		IntroTitleText,
		IntroContentContainer,
		IntroContentButton,
		IntroEvents,
		IntroFooter,
	}
}

// Catalog builds every named variant from a timing table.
func Catalog(tl Timeline) ([]Entry, error) {
	b := &catalogBuilder{}
	in := tl.Intro
	st := tl.Stagger

	overlay := b.uniform(in.Overlay)
	background := b.uniform(in.Background)
	logoShow := b.transition(in.Logo.Duration, in.Logo.ShowDelay, in.Logo.Ease)
	logoHide := b.transition(in.Logo.Duration, in.Logo.HideDelay, in.Logo.Ease)
	titleBox := b.perProperty(map[Property]TimingSpec{Height: in.Title.Height, Y: in.Title.Y})
	titleText := b.uniform(in.Title.Color)
	contentBox := b.perProperty(map[Property]TimingSpec{Height: in.Content.Height, Y: in.Content.Y})
	button := b.uniform(in.Content.Button)
	events := b.uniform(in.Events)
	footer := b.uniform(in.Footer)
	listChild := b.uniform(st.ListChild)
	formChild := b.uniform(st.FormChild)
	slideUp := b.uniform(st.SlideUp)
	posterCTA := b.uniform(tl.Hover.PosterCTA)
	float := b.transition(st.FloatDuration, 0, EaseInOut).Looped()
	if b.err != nil {
		return nil, b.err
	}

	entries := []Entry{
		{IntroOverlay, Variant{
			Initial: State{Values: Values{ScaleY: Num(1)}},
			Animate: State{Values: Values{ScaleY: Num(0)}, Transition: overlay},
		}},
		{IntroBackground, Variant{
			Initial: State{Values: Values{Opacity: Num(0), Y: Num(-1), Scale: Num(1.5), Filter: Keyword("blur(10px)")}},
			Animate: State{Values: Values{Opacity: Num(1), Y: Num(0), Scale: Num(1), Filter: Keyword("blur(0px)")}, Transition: background},
		}},
		{IntroLogo, Variant{
			Initial: State{Values: Values{Height: Num(0), Y: Num(100)}},
			Animate: State{Values: Values{Height: Auto(), Y: Num(0)}, Transition: Uniform(logoShow)},
			Exit:    &State{Values: Values{Height: Num(0), Y: Num(10)}, Transition: Uniform(logoHide)},
		}},
		{IntroTitleContainer, Variant{
			Initial: State{Values: Values{Y: Num(350), Height: Num(0)}},
			Animate: State{Values: Values{Y: Num(0), Height: Auto()}, Transition: titleBox},
		}},
		{IntroTitleText, Variant{
			Initial: State{Values: Values{Color: Keyword("#000000")}},
			Animate: State{Values: Values{Color: Keyword("#FFFFFF")}, Transition: titleText},
		}},
		{IntroContentContainer, Variant{
			Initial: State{Values: Values{Height: Num(0), Y: Num(100)}},
			Animate: State{Values: Values{Height: Auto(), Y: Num(0)}, Transition: contentBox},
		}},
		{IntroContentButton, Variant{
			Initial: State{Values: Values{Y: Num(50)}},
			Animate: State{Values: Values{Y: Num(0)}, Transition: button},
		}},
		{IntroEvents, Variant{
			Initial: State{Values: Values{Opacity: Num(0), Y: Num(40)}},
			Animate: State{Values: Values{Opacity: Num(1), Y: Num(0)}, Transition: events},
		}},
		{IntroFooter, Variant{
			Initial: State{Values: Values{Opacity: Num(0)}},
			Animate: State{Values: Values{Opacity: Num(1)}, Transition: footer},
		}},
		{StaggerList, Variant{
			Initial: State{Values: Values{}},
			Animate: State{Values: Values{}, Transition: Orchestrated(Orchestration{StaggerChildren: st.ListChildren, DelayChildren: st.ListDelay})},
		}},
		{StaggerListItem, Variant{
			Initial: State{Values: Values{Opacity: Num(0), Y: Num(20)}},
			Animate: State{Values: Values{Opacity: Num(1), Y: Num(0)}, Transition: listChild},
		}},
		{StaggerForm, Variant{
			Initial: State{Values: Values{}},
			Animate: State{Values: Values{}, Transition: Orchestrated(Orchestration{StaggerChildren: st.FormChildren})},
		}},
		{StaggerFormItem, Variant{
			Initial: State{Values: Values{Opacity: Num(0), Y: Num(10)}},
			Animate: State{Values: Values{Opacity: Num(1), Y: Num(0)}, Transition: formChild},
		}},
		{BaseSlideUp, Variant{
			Initial: State{Values: Values{Opacity: Num(0), Y: Num(40)}},
			Animate: State{Values: Values{Opacity: Num(1), Y: Num(0)}, Transition: slideUp},
		}},
		{BaseFadeUp, Variant{
			Initial: State{Values: Values{Opacity: Num(0), Y: Num(20)}},
			Animate: State{Values: Values{Opacity: Num(1), Y: Num(0)}, Transition: slideUp},
			Trigger: TriggerInView,
		}},
		{HoverPosterCTA, Variant{
			Initial: State{Values: Values{Y: Num(0)}, Transition: posterCTA},
			Animate: State{Values: Values{Y: Num(-PosterCTAOffset)}, Transition: posterCTA},
			Trigger: TriggerHover,
		}},
		{AmbientFloat, Variant{
			Initial: State{Values: Values{Y: Num(0)}},
			Animate: State{Values: Values{Y: Keyframes(0, st.FloatOffset, 0)}, Transition: Uniform(float)},
		}},
	}
	return entries, nil
}

// NewDefaultRegistry builds the registry from the default timing table.
func NewDefaultRegistry() (*Registry, error) {
	entries, err := Catalog(DefaultTimeline())
	if err != nil {
		return nil, err
	}
	return NewRegistry(entries...)
}

// CardVariant describes the entrance of the poster at position index in the
// catalogue grid. Passed events settle dimmed.
func CardVariant(tl Timeline, index int, passed bool) (Variant, error) {
	if index < 0 {
		return Variant{}, fmt.Errorf("%w: card index %d", ErrInvalidTiming, index)
	}
	t, err := Build(tl.Stagger.CardDuration, float64(index)*tl.Stagger.CardStep, EaseOutExpo)
	if err != nil {
		return Variant{}, err
	}
	settled := 1.0
	if passed {
		settled = 0.6
	}
	v := Variant{
		Initial: State{Values: Values{Opacity: Num(0), Y: Num(20)}},
		Animate: State{Values: Values{Opacity: Num(settled), Y: Num(0)}, Transition: Uniform(t)},
		Exit:    &State{Values: Values{Opacity: Num(0), Y: Num(-20)}, Transition: Uniform(t.WithDelay(0))},
	}
	return v, v.Validate()
}

// CardHoverVariant brightens a card under the pointer.
func CardHoverVariant(tl Timeline, passed bool) (Variant, error) {
	t, err := tl.Hover.Card.Transition()
	if err != nil {
		return Variant{}, err
	}
	rest := 1.0
	if passed {
		rest = 0.6
	}
	return Variant{
		Initial: State{Values: Values{Opacity: Num(rest)}, Transition: Uniform(t)},
		Animate: State{Values: Values{Opacity: Num(1)}, Transition: Uniform(t)},
		Trigger: TriggerHover,
	}, nil
}

type catalogBuilder struct {
	err error
}

func (b *catalogBuilder) transition(duration, delay float64, ease Easing) Transition {
	if b.err != nil {
		return Transition{}
	}
	t, err := Build(duration, delay, ease)
	if err != nil {
		b.err = err
	}
	return t
}

func (b *catalogBuilder) uniform(s TimingSpec) Descriptor {
	return Uniform(b.transition(s.Duration, s.Delay, s.Ease))
}

func (b *catalogBuilder) perProperty(specs map[Property]TimingSpec) Descriptor {
	m := make(map[Property]Transition, len(specs))
	for p, s := range specs {
		m[p] = b.transition(s.Duration, s.Delay, s.Ease)
	}
	return PerProperty(m)
}
