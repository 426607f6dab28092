package motion

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Pose selects which state of a variant an element is driven to.
type Pose string

const (
	PoseInitial Pose = "initial"
	PoseAnimate Pose = "animate"
	PoseExit    Pose = "exit"
)

// Driver applies variants to rendered elements. Implementations interpolate
// property values against a shared start epoch.
type Driver interface {
	Apply(element string, v Variant, pose Pose) error
}

// ErrNoExit is returned when an exit pose is requested for a variant without one.
var ErrNoExit = errors.New("motion: variant has no exit state")

// Binding attaches a registered variant to a page element.
type Binding struct {
	Element string  `json:"element"`
	Name    Name    `json:"variant,omitempty"`
	Pose    Pose    `json:"pose"`
	Variant Variant `json:"definition"`
}

// Manifest is the serialised choreography embedded into a page.
type Manifest struct {
	ScrollLockMs int       `json:"scrollLockMs,omitempty"`
	Cues         []Cue     `json:"cues,omitempty"`
	Bindings     []Binding `json:"bindings"`
}

// ManifestDriver records applied variants so the page script can replay them.
// It is not safe for concurrent use; build one per rendered page.
type ManifestDriver struct {
	manifest Manifest
}

// NewManifestDriver returns an empty recorder.
func NewManifestDriver() *ManifestDriver {
	return &ManifestDriver{manifest: Manifest{Bindings: []Binding{}}}
}

// Apply records the variant against the element.
func (d *ManifestDriver) Apply(element string, v Variant, pose Pose) error {
	if element == "" {
		return fmt.Errorf("motion: empty element id")
	}
	switch pose {
	case PoseInitial, PoseAnimate:
	case PoseExit:
		if v.Exit == nil {
			return fmt.Errorf("%w: %s", ErrNoExit, element)
		}
	default:
		return fmt.Errorf("motion: unknown pose %q", pose)
	}
	if err := v.Validate(); err != nil {
		return err
	}
	d.manifest.Bindings = append(d.manifest.Bindings, Binding{Element: element, Pose: pose, Variant: v.clone()})
	return nil
}

// Manifest returns what has been recorded so far.
func (d *ManifestDriver) Manifest() Manifest {
	out := d.manifest
	out.Cues = append([]Cue(nil), d.manifest.Cues...)
	out.Bindings = append([]Binding(nil), d.manifest.Bindings...)
	return out
}

// JSON serialises the manifest for embedding.
func (d *ManifestDriver) JSON() ([]byte, error) {
	return json.Marshal(d.Manifest())
}

// Choreographer binds registry variants to elements and drives them in order.
type Choreographer struct {
	registry *Registry
	timeline Timeline
}

// NewChoreographer wires a registry and its timing table.
func NewChoreographer(registry *Registry, timeline Timeline) *Choreographer {
	return &Choreographer{registry: registry, timeline: timeline}
}

// Registry exposes the underlying registry.
func (c *Choreographer) Registry() *Registry {
	return c.registry
}

// Timeline returns the timing table.
func (c *Choreographer) Timeline() Timeline {
	return c.timeline
}

// Intro drives every intro phase to its animate pose in the fixed intro order.
// elements maps variant names to element ids; phases without an element are skipped.
func (c *Choreographer) Intro(d *ManifestDriver, elements map[Name]string) error {
	order := IntroOrder()
	cues, err := c.registry.Sequence(order...)
	if err != nil {
		return err
	}
	d.manifest.ScrollLockMs = c.timeline.Intro.ScrollLockMs
	d.manifest.Cues = cues
	for _, name := range order {
		element, ok := elements[name]
		if !ok {
			continue
		}
		if err := c.Bind(d, element, name, PoseAnimate); err != nil {
			return err
		}
	}
	return nil
}

// Bind applies one named variant to an element.
func (c *Choreographer) Bind(d Driver, element string, name Name, pose Pose) error {
	v, err := c.registry.Lookup(name)
	if err != nil {
		return err
	}
	if md, ok := d.(*ManifestDriver); ok {
		if err := md.Apply(element, v, pose); err != nil {
			return err
		}
		md.manifest.Bindings[len(md.manifest.Bindings)-1].Name = name
		return nil
	}
	return d.Apply(element, v, pose)
}
