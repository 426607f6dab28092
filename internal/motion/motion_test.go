package motion

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIsDeterministic(t *testing.T) {
	a, err := Build(0.8, 1.2, EaseOutExpo)
	require.NoError(t, err)
	b, err := Build(0.8, 1.2, EaseOutExpo)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, a == b)
	assert.InDelta(t, 2.0, a.End(), 1e-9)
}

func TestBuildRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name     string
		duration float64
		delay    float64
		ease     Easing
		want     error
	}{
		{"unknown easing", 1, 0, Easing("bounce"), ErrInvalidEasing},
		{"empty easing", 1, 0, "", ErrInvalidEasing},
		{"zero duration", 0, 0, EaseLinear, ErrInvalidTiming},
		{"negative delay", 1, -0.1, EaseLinear, ErrInvalidTiming},
		{"nan duration", math.NaN(), 0, EaseLinear, ErrInvalidTiming},
		{"infinite delay", 1, math.Inf(1), EaseLinear, ErrInvalidTiming},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Build(tc.duration, tc.delay, tc.ease)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestMustBuildPanics(t *testing.T) {
	assert.Panics(t, func() { MustBuild(1, 0, "nope") })
	assert.NotPanics(t, func() { MustBuild(1, 0, EaseInOut) })
}

func TestParseEasingIgnoresCase(t *testing.T) {
	e, err := ParseEasing(" EASEOUTEXPO ")
	require.NoError(t, err)
	assert.Equal(t, EaseOutExpo, e)

	_, err = ParseEasing("spring")
	assert.ErrorIs(t, err, ErrInvalidEasing)
}

func TestTransitionJSONUsesBezier(t *testing.T) {
	raw, err := json.Marshal(MustBuild(0.5, 0.1, EaseOutExpo))
	require.NoError(t, err)
	assert.JSONEq(t, `{"duration":0.5,"delay":0.1,"ease":[0.16,1,0.3,1]}`, string(raw))

	raw, err = json.Marshal(MustBuild(5, 0, EaseInOut).Looped())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"repeat":"Infinity"`)
}

func TestDescriptorPerPropertyWinsOverUniform(t *testing.T) {
	height := MustBuild(0.8, 1.2, EaseInOutQuart)
	y := MustBuild(1.0, 1.2, EaseOutExpo)
	d := PerProperty(map[Property]Transition{Height: height, Y: y})

	got, ok := d.For(Height)
	require.True(t, ok)
	assert.Equal(t, height, got)
	_, ok = d.For(Opacity)
	assert.False(t, ok)

	start, end, ok := d.Span()
	require.True(t, ok)
	assert.InDelta(t, 1.2, start, 1e-9)
	assert.InDelta(t, 2.2, end, 1e-9)
}

func TestDefaultRegistryVariantsAreWellFormed(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	require.NotZero(t, r.Len())

	for _, name := range r.Names() {
		v, err := r.Lookup(name)
		require.NoError(t, err, name)
		assert.Equal(t, v.Initial.Values.Keys(), v.Animate.Values.Keys(), "variant %s", name)
	}
}

func TestRegistryRejectsMismatchedKeys(t *testing.T) {
	_, err := NewRegistry(Entry{Name: "broken", Variant: Variant{
		Initial: State{Values: Values{Opacity: Num(0)}},
		Animate: State{Values: Values{Opacity: Num(1), Y: Num(0)}},
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedVariant)
}

func TestRegistryRejectsTransitionForUnanimatedProperty(t *testing.T) {
	_, err := NewRegistry(Entry{Name: "stray", Variant: Variant{
		Initial: State{Values: Values{Y: Num(10)}},
		Animate: State{
			Values:     Values{Y: Num(0)},
			Transition: PerProperty(map[Property]Transition{Height: MustBuild(1, 0, EaseLinear)}),
		},
	}})
	assert.ErrorIs(t, err, ErrMalformedVariant)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	v := Variant{Initial: State{Values: Values{}}, Animate: State{Values: Values{}}}
	_, err := NewRegistry(Entry{Name: "a", Variant: v}, Entry{Name: "a", Variant: v})
	assert.ErrorIs(t, err, ErrMalformedVariant)
}

func TestLookupUnknownVariant(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	_, err = r.Lookup("intro.nope")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestLookupReturnsIsolatedCopy(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	v, err := r.Lookup(IntroOverlay)
	require.NoError(t, err)
	v.Animate.Values[ScaleY] = Num(42)

	again, err := r.Lookup(IntroOverlay)
	require.NoError(t, err)
	n, ok := again.Animate.Values[ScaleY].Number()
	require.True(t, ok)
	assert.Equal(t, 0.0, n)
}

func TestIntroTransforms(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	bg, err := r.Lookup(IntroBackground)
	require.NoError(t, err)
	assert.Equal(t, "blur(10px)", bg.Initial.Values[Filter].String())
	assert.Equal(t, "blur(0px)", bg.Animate.Values[Filter].String())
	assert.Equal(t, "1.5", bg.Initial.Values[Scale].String())

	logo, err := r.Lookup(IntroLogo)
	require.NoError(t, err)
	require.NotNil(t, logo.Exit)
	assert.Equal(t, "auto", logo.Animate.Values[Height].String())
	assert.Equal(t, "10", logo.Exit.Values[Y].String())

	title, err := r.Lookup(IntroTitleContainer)
	require.NoError(t, err)
	assert.Equal(t, []Property{Height, Y}, title.Animate.Transition.Properties())

	text, err := r.Lookup(IntroTitleText)
	require.NoError(t, err)
	assert.Equal(t, "#000000", text.Initial.Values[Color].String())
	assert.Equal(t, "#FFFFFF", text.Animate.Values[Color].String())
}

func TestIntroSequenceKeepsOrderAndAllowsOverlap(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	cues, err := r.Sequence(IntroOrder()...)
	require.NoError(t, err)
	require.Len(t, cues, len(IntroOrder()))
	for i, name := range IntroOrder() {
		assert.Equal(t, name, cues[i].Name)
	}

	byName := map[Name]Cue{}
	for _, c := range cues {
		byName[c.Name] = c
	}
	assert.Less(t, byName[IntroOverlay].Start, byName[IntroTitleContainer].Start)
	assert.Less(t, byName[IntroTitleContainer].Start, byName[IntroContentContainer].Start)
	// title begins while the logo is still growing
	assert.Less(t, byName[IntroTitleContainer].Start, byName[IntroLogo].End)
}

func TestCardVariantStaggersByIndex(t *testing.T) {
	tl := DefaultTimeline()
	first, err := CardVariant(tl, 0, false)
	require.NoError(t, err)
	third, err := CardVariant(tl, 2, true)
	require.NoError(t, err)

	t0, _ := first.Animate.Transition.For(Opacity)
	t2, _ := third.Animate.Transition.For(Opacity)
	assert.InDelta(t, 0.0, t0.Delay, 1e-9)
	assert.InDelta(t, 0.2, t2.Delay, 1e-9)
	assert.InDelta(t, 0.3, t2.Duration, 1e-9)
	assert.Equal(t, "0.6", third.Animate.Values[Opacity].String())

	_, err = CardVariant(tl, -1, false)
	assert.ErrorIs(t, err, ErrInvalidTiming)
}

func TestCatalogPropagatesInvalidTimeline(t *testing.T) {
	tl := DefaultTimeline()
	tl.Intro.Overlay.Ease = "wobble"
	_, err := Catalog(tl)
	assert.ErrorIs(t, err, ErrInvalidEasing)
}

func TestManifestDriverRecordsIntro(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	c := NewChoreographer(r, DefaultTimeline())
	d := NewManifestDriver()

	err = c.Intro(d, map[Name]string{IntroOverlay: "overlay", IntroLogo: "logo"})
	require.NoError(t, err)

	m := d.Manifest()
	assert.Equal(t, 2500, m.ScrollLockMs)
	require.Len(t, m.Bindings, 2)
	assert.Equal(t, "overlay", m.Bindings[0].Element)
	assert.Equal(t, IntroOverlay, m.Bindings[0].Name)

	raw, err := d.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"scaleY":0`)
}

func TestManifestDriverRejectsMissingExit(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)
	c := NewChoreographer(r, DefaultTimeline())
	d := NewManifestDriver()

	assert.ErrorIs(t, c.Bind(d, "overlay", IntroOverlay, PoseExit), ErrNoExit)
	assert.NoError(t, c.Bind(d, "logo", IntroLogo, PoseExit))
	assert.ErrorIs(t, c.Bind(d, "x", "nope", PoseAnimate), ErrUnknownVariant)
}
