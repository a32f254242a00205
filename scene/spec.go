package scene

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Vec is a 2D vector in scene files, written as {x: 1, y: 2}.
type Vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Spec is a scene file. Cross-references are by name and resolved when the
// referencing entity initializes.
type Spec struct {
	Name        string           `yaml:"name"`
	Materials   []MaterialSpec   `yaml:"materials"`
	Bodies      []BodySpec       `yaml:"bodies"`
	Constraints []ConstraintSpec `yaml:"constraints"`
	Wires       []WireSpec       `yaml:"wires"`
	Controllers []ControllerSpec `yaml:"controllers"`

	origin string
	read   func(path string) ([]byte, error)
}

type MaterialSpec struct {
	Name       string   `yaml:"name"`
	Friction   *float64 `yaml:"friction"`
	Elasticity float64  `yaml:"elasticity"`
}

type BodySpec struct {
	Name            string      `yaml:"name"`
	Parent          string      `yaml:"parent"`
	Motion          string      `yaml:"motion"`
	Position        Vec         `yaml:"position"`
	Rotation        float64     `yaml:"rotation"`
	Mass            *float64    `yaml:"mass"`
	Moment          float64     `yaml:"moment"`
	FixedRotation   bool        `yaml:"fixed_rotation"`
	Velocity        Vec         `yaml:"velocity"`
	AngularVelocity float64     `yaml:"angular_velocity"`
	Shapes          []ShapeSpec `yaml:"shapes"`
}

type ShapeSpec struct {
	Name     string  `yaml:"name"`
	Geometry string  `yaml:"geometry"`
	Offset   Vec     `yaml:"offset"`
	Rotation float64 `yaml:"rotation"`
	Width    float64 `yaml:"width"`
	Height   float64 `yaml:"height"`
	Radius   float64 `yaml:"radius"`
	Length   float64 `yaml:"length"`
	Sensor   bool    `yaml:"sensor"`
	Material string  `yaml:"material"`
}

type ConstraintSpec struct {
	Name  string `yaml:"name"`
	Type  string `yaml:"type"`
	BodyA string `yaml:"body_a"`
	BodyB string `yaml:"body_b"`
	// AnchorA is local to body A.
	AnchorA Vec `yaml:"anchor_a"`
	// AnchorB is local to body B, or a world point without body B.
	AnchorB Vec `yaml:"anchor_b"`
	// Pivot places a hinge in world space.
	Pivot         *Vec     `yaml:"pivot"`
	Min           float64  `yaml:"min"`
	Max           float64  `yaml:"max"`
	RestLength    float64  `yaml:"rest_length"`
	Stiffness     *float64 `yaml:"stiffness"`
	Damping       *float64 `yaml:"damping"`
	MaxForce      *float64 `yaml:"max_force"`
	CollideBodies bool     `yaml:"collide_bodies"`
}

type WireSpec struct {
	Name          string     `yaml:"name"`
	Material      string     `yaml:"material"`
	Radius        *float64   `yaml:"radius"`
	Resolution    *float64   `yaml:"resolution"`
	MassPerLength *float64   `yaml:"mass_per_length"`
	MinSeparation *float64   `yaml:"min_separation"`
	Nodes         []NodeSpec `yaml:"nodes"`
}

type NodeSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Body string `yaml:"body"`
	// Position is in world space.
	Position Vec     `yaml:"position"`
	Payout   float64 `yaml:"payout"`
}

type ControllerSpec struct {
	Name    string   `yaml:"name"`
	Script  string   `yaml:"script"`
	Source  string   `yaml:"source"`
	Targets []string `yaml:"targets"`
}

// Origin is where the scene was read from.
func (s *Spec) Origin() string {
	return s.origin
}

// Parse decodes a scene. Script paths cannot be resolved for parsed scenes
// unless the controller source is inline.
func Parse(data []byte, origin string) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("scene: unmarshal %s: %w", origin, err)
	}
	spec.origin = origin
	if spec.Name == "" {
		spec.Name = trimExt(filepath.Base(origin))
	}
	return &spec, nil
}

// Load reads a scene file from disk. Script paths resolve relative to it.
func Load(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scene: load %s: %w", path, err)
	}
	spec, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	spec.read = func(p string) ([]byte, error) {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, p)
		}
		return os.ReadFile(p)
	}
	return spec, nil
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
