// The geomkit command runs geometric queries against a JSON scene of posed
// colliders.
package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/kinemotion/geomkit/collider"
	"github.com/kinemotion/geomkit/collision"
)

func main() {
	logger := golog.NewLogger("geomkit")

	app := &cli.App{
		Name:  "geomkit",
		Usage: "geometric queries over a scene of posed colliders",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "scene",
				Usage:    "path to the JSON scene file",
				Required: true,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "ray",
				Usage: "cast a ray against one collider",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "target", Usage: "label of the collider to query", Required: true},
					&cli.StringFlag{Name: "origin", Usage: "ray origin as x,y,z", Required: true},
					&cli.StringFlag{Name: "dir", Usage: "ray direction as x,y,z", Required: true},
					&cli.Float64Flag{Name: "max-toi", Value: 1000},
					&cli.BoolFlag{Name: "solid", Value: true},
				},
				Action: func(c *cli.Context) error { return runRay(c, logger) },
			},
			{
				Name:  "project",
				Usage: "project a point onto one collider",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "target", Usage: "label of the collider to query", Required: true},
					&cli.StringFlag{Name: "point", Usage: "query point as x,y,z", Required: true},
					&cli.BoolFlag{Name: "solid", Value: true},
				},
				Action: func(c *cli.Context) error { return runProject(c, logger) },
			},
			{
				Name:  "contact",
				Usage: "compute the contact between two colliders",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first", Required: true},
					&cli.StringFlag{Name: "second", Required: true},
					&cli.Float64Flag{Name: "prediction", Value: 0.1},
				},
				Action: func(c *cli.Context) error { return runContact(c, logger) },
			},
			{
				Name:  "cast",
				Usage: "sweep two colliders along linear velocities",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first", Required: true},
					&cli.StringFlag{Name: "second", Required: true},
					&cli.StringFlag{Name: "vel1", Value: "0,0,0"},
					&cli.StringFlag{Name: "vel2", Value: "0,0,0"},
					&cli.Float64Flag{Name: "max-toi", Value: 1000},
					&cli.Float64Flag{Name: "target-distance"},
					&cli.BoolFlag{Name: "stop-at-penetration"},
				},
				Action: func(c *cli.Context) error { return runCast(c, logger) },
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

func loadStore(c *cli.Context, logger golog.Logger) (*collider.Store, map[string]collider.Handle, error) {
	scene, err := loadScene(c.String("scene"))
	if err != nil {
		return nil, nil, err
	}
	store := collider.NewStore(logger)
	handles, err := scene.populate(store)
	if err != nil {
		return nil, nil, err
	}
	logger.Debugw("scene loaded", "colliders", store.Len())
	return store, handles, nil
}

func lookup(handles map[string]collider.Handle, label string) (collider.Handle, error) {
	h, ok := handles[label]
	if !ok {
		return collider.Handle{}, errors.Errorf("no collider labeled %q in the scene", label)
	}
	return h, nil
}

func runRay(c *cli.Context, logger golog.Logger) error {
	store, handles, err := loadStore(c, logger)
	if err != nil {
		return err
	}
	target, err := lookup(handles, c.String("target"))
	if err != nil {
		return err
	}
	origin, err := parseVector(c.String("origin"))
	if err != nil {
		return err
	}
	dir, err := parseVector(c.String("dir"))
	if err != nil {
		return err
	}

	hit, ok, err := store.CastRayAndGetNormal(target, origin, dir, c.Float64("max-toi"), c.Bool("solid"))
	if err != nil {
		return err
	}
	if !ok {
		logger.Infow("no hit")
		return nil
	}
	logger.Infow("hit",
		"toi", hit.TOI,
		"point", origin.Add(dir.Mul(hit.TOI)),
		"normal", hit.Normal,
		"feature", hit.Feature,
	)
	return nil
}

func runProject(c *cli.Context, logger golog.Logger) error {
	store, handles, err := loadStore(c, logger)
	if err != nil {
		return err
	}
	target, err := lookup(handles, c.String("target"))
	if err != nil {
		return err
	}
	point, err := parseVector(c.String("point"))
	if err != nil {
		return err
	}

	proj, err := store.ProjectPoint(target, point, c.Bool("solid"))
	if err != nil {
		return err
	}
	logger.Infow("projected", "point", proj.Point, "inside", proj.IsInside)
	return nil
}

func runContact(c *cli.Context, logger golog.Logger) error {
	store, handles, err := loadStore(c, logger)
	if err != nil {
		return err
	}
	first, err := lookup(handles, c.String("first"))
	if err != nil {
		return err
	}
	second, err := lookup(handles, c.String("second"))
	if err != nil {
		return err
	}

	contact, ok, err := store.ContactCollider(first, second, c.Float64("prediction"))
	if err != nil {
		return err
	}
	if !ok {
		logger.Infow("no contact within prediction", "prediction", c.Float64("prediction"))
		return nil
	}
	logger.Infow("contact",
		"dist", contact.Dist,
		"point1", contact.Point1,
		"point2", contact.Point2,
		"normal1", contact.Normal1,
	)
	return nil
}

func runCast(c *cli.Context, logger golog.Logger) error {
	store, handles, err := loadStore(c, logger)
	if err != nil {
		return err
	}
	first, err := lookup(handles, c.String("first"))
	if err != nil {
		return err
	}
	second, err := lookup(handles, c.String("second"))
	if err != nil {
		return err
	}
	vel1, err := parseVector(c.String("vel1"))
	if err != nil {
		return err
	}
	vel2, err := parseVector(c.String("vel2"))
	if err != nil {
		return err
	}

	hit, ok, err := store.CastCollider(first, vel1, second, vel2, collision.ShapeCastOptions{
		TargetDistance:    c.Float64("target-distance"),
		MaxTOI:            c.Float64("max-toi"),
		StopAtPenetration: c.Bool("stop-at-penetration"),
	})
	if err != nil {
		return err
	}
	if !ok {
		logger.Infow("no impact within max-toi", "max-toi", c.Float64("max-toi"))
		return nil
	}
	logger.Infow("impact",
		"toi", hit.TOI,
		"status", hit.Status,
		"point1", hit.Point1,
		"point2", hit.Point2,
		"normal1", hit.Normal1,
	)
	return nil
}

func parseVector(s string) (r3.Vector, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return r3.Vector{}, errors.Errorf("vector %q needs 3 comma-separated components", s)
	}
	var out [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vector{}, errors.Wrapf(err, "vector component %q", p)
		}
		out[i] = v
	}
	return r3.Vector{X: out[0], Y: out[1], Z: out[2]}, nil
}
