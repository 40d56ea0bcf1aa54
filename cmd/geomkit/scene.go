package main

import (
	"encoding/json"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"github.com/kinemotion/geomkit/collider"
	"github.com/kinemotion/geomkit/shape"
	"github.com/kinemotion/geomkit/spatialmath"
)

// sceneConfig is the on-disk description of a set of colliders.
type sceneConfig struct {
	Colliders []colliderConfig `json:"colliders"`
}

type colliderConfig struct {
	Label       string      `json:"label"`
	Shape       shapeConfig `json:"shape"`
	Translation []float64   `json:"translation,omitempty"`
	// rotation as [w, x, y, z]; identity when omitted
	Rotation []float64 `json:"rotation,omitempty"`
}

type shapeConfig struct {
	Type string `json:"type"`

	Radius       float64   `json:"radius,omitempty"`
	HalfHeight   float64   `json:"half_height,omitempty"`
	BorderRadius float64   `json:"border_radius,omitempty"`
	HalfExtents  []float64 `json:"half_extents,omitempty"`
	Normal       []float64 `json:"normal,omitempty"`
	Vertices     []float64 `json:"vertices,omitempty"`
	Indices      []uint32  `json:"indices,omitempty"`
	VoxelSize    []float64 `json:"voxel_size,omitempty"`
	GridCoords   []int32   `json:"grid_coords,omitempty"`
}

func loadScene(path string) (*sceneConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read scene file")
	}
	var scene sceneConfig
	if err := json.Unmarshal(raw, &scene); err != nil {
		return nil, errors.Wrap(err, "cannot parse scene file")
	}
	if len(scene.Colliders) == 0 {
		return nil, errors.New("scene has no colliders")
	}
	return &scene, nil
}

// populate builds every collider of the scene into the store, returning the
// handles keyed by label.
func (sc *sceneConfig) populate(store *collider.Store) (map[string]collider.Handle, error) {
	handles := make(map[string]collider.Handle, len(sc.Colliders))
	for i, cfg := range sc.Colliders {
		s, err := cfg.Shape.build()
		if err != nil {
			return nil, errors.Wrapf(err, "collider %q", cfg.Label)
		}
		pose, err := poseFromConfig(cfg.Translation, cfg.Rotation)
		if err != nil {
			return nil, errors.Wrapf(err, "collider %q", cfg.Label)
		}
		h := store.Insert(s, pose)
		label := cfg.Label
		if label == "" {
			c, err := store.Resolve(h)
			if err != nil {
				return nil, err
			}
			label = c.Label()
			sc.Colliders[i].Label = label
		} else if c, err := store.Resolve(h); err == nil {
			c.SetLabel(label)
		}
		if _, dup := handles[label]; dup {
			return nil, errors.Errorf("duplicate collider label %q", label)
		}
		handles[label] = h
	}
	return handles, nil
}

func (cfg shapeConfig) build() (shape.Shape, error) {
	switch cfg.Type {
	case "ball":
		return shape.NewBall(cfg.Radius)
	case "cuboid":
		he, err := vecFromSlice(cfg.HalfExtents, "half_extents")
		if err != nil {
			return nil, err
		}
		return shape.NewCuboid(he)
	case "capsule":
		return shape.NewCapsule(cfg.HalfHeight, cfg.Radius)
	case "cylinder":
		return shape.NewCylinder(cfg.HalfHeight, cfg.Radius)
	case "cone":
		return shape.NewCone(cfg.HalfHeight, cfg.Radius)
	case "round_cylinder":
		return shape.NewRoundCylinder(cfg.HalfHeight, cfg.Radius, cfg.BorderRadius)
	case "halfspace":
		n, err := vecFromSlice(cfg.Normal, "normal")
		if err != nil {
			return nil, err
		}
		return shape.NewHalfSpace(n)
	case "polyline":
		return shape.NewPolyline(cfg.Vertices, cfg.Indices)
	case "trimesh":
		return shape.NewTriMesh(cfg.Vertices, cfg.Indices, 0)
	case "convex_hull":
		return shape.NewConvexHull(cfg.Vertices)
	case "heightfield":
		return nil, errors.New("heightfield scenes are not supported yet")
	case "voxels":
		size, err := vecFromSlice(cfg.VoxelSize, "voxel_size")
		if err != nil {
			return nil, err
		}
		return shape.NewVoxels(size, cfg.GridCoords)
	default:
		return nil, errors.Errorf("unknown shape type %q", cfg.Type)
	}
}

func poseFromConfig(translation, rotation []float64) (spatialmath.Pose, error) {
	pose := spatialmath.NewZeroPose()
	if translation != nil {
		pt, err := vecFromSlice(translation, "translation")
		if err != nil {
			return pose, err
		}
		pose = pose.WithPoint(pt)
	}
	if rotation != nil {
		if len(rotation) != 4 {
			return pose, errors.Errorf("rotation needs 4 components, got %d", len(rotation))
		}
		q := quat.Number{Real: rotation[0], Imag: rotation[1], Jmag: rotation[2], Kmag: rotation[3]}
		normalized, ok := spatialmath.NormalizeQuat(q)
		if !ok {
			return pose, errors.New("rotation quaternion is unnormalizable")
		}
		pose = pose.WithRotation(normalized)
	}
	return pose, nil
}

func vecFromSlice(v []float64, field string) (r3.Vector, error) {
	if len(v) != 3 {
		return r3.Vector{}, errors.Errorf("%s needs 3 components, got %d", field, len(v))
	}
	return r3.Vector{X: v[0], Y: v[1], Z: v[2]}, nil
}
