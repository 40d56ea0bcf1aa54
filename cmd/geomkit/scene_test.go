package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/kinemotion/geomkit/collider"
)

func writeScene(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scene.json")
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

func TestLoadScene(t *testing.T) {
	path := writeScene(t, `{
		"colliders": [
			{"label": "floor", "shape": {"type": "halfspace", "normal": [0, 1, 0]}},
			{"label": "crate", "shape": {"type": "cuboid", "half_extents": [1, 1, 1]}, "translation": [0, 3, 0]},
			{"label": "marble", "shape": {"type": "ball", "radius": 0.5}, "translation": [0, 10, 0]}
		]
	}`)

	scene, err := loadScene(path)
	test.That(t, err, test.ShouldBeNil)

	store := collider.NewStore(golog.NewTestLogger(t))
	handles, err := scene.populate(store)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, store.Len(), test.ShouldEqual, 3)

	toi, err := store.CastRay(handles["crate"], r3.Vector{Y: 10}, r3.Vector{Y: -1}, 100, true)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, toi, test.ShouldAlmostEqual, 6, 1e-9)

	c, err := store.Resolve(handles["marble"])
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c.Label(), test.ShouldEqual, "marble")
}

func TestLoadSceneRejectsBadInput(t *testing.T) {
	_, err := loadScene(filepath.Join(t.TempDir(), "missing.json"))
	test.That(t, err, test.ShouldNotBeNil)

	path := writeScene(t, `{"colliders": []}`)
	_, err = loadScene(path)
	test.That(t, err, test.ShouldNotBeNil)

	path = writeScene(t, `{"colliders": [{"label": "x", "shape": {"type": "teapot"}}]}`)
	scene, err := loadScene(path)
	test.That(t, err, test.ShouldBeNil)
	_, err = scene.populate(collider.NewStore(golog.NewTestLogger(t)))
	test.That(t, err, test.ShouldNotBeNil)

	path = writeScene(t, `{"colliders": [
		{"label": "a", "shape": {"type": "ball", "radius": 1}},
		{"label": "a", "shape": {"type": "ball", "radius": 2}}
	]}`)
	scene, err = loadScene(path)
	test.That(t, err, test.ShouldBeNil)
	_, err = scene.populate(collider.NewStore(golog.NewTestLogger(t)))
	test.That(t, err, test.ShouldNotBeNil)
}

func TestParseVector(t *testing.T) {
	v, err := parseVector("1, -2.5, 3")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, v, test.ShouldResemble, r3.Vector{X: 1, Y: -2.5, Z: 3})

	_, err = parseVector("1,2")
	test.That(t, err, test.ShouldNotBeNil)
	_, err = parseVector("1,2,potato")
	test.That(t, err, test.ShouldNotBeNil)
}
