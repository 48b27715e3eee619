package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxyframe/engine/config"
	"github.com/Carmen-Shannon/oxyframe/engine/ecs"
	"github.com/Carmen-Shannon/oxyframe/engine/logging"
	"github.com/Carmen-Shannon/oxyframe/engine/scene"
	"github.com/Carmen-Shannon/oxyframe/engine/serializer"
	"github.com/spf13/cobra"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <scene.yaml>",
		Short: "Load a saved scene headless and print its hierarchy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return err
			}
			return inspectScene(cmd.OutOrStdout(), cfgPath, args[0])
		},
	}
}

// inspectScene loads path into a headless stack with the demo assets and prints the
// entity tree to w.
func inspectScene(w io.Writer, cfgPath, path string) (err error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	cfg.Renderer.Backend = "headless"
	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	st, err := newStack(cfg, log, "")
	if err != nil {
		return err
	}
	defer st.joinClose(&err)
	if err := createDemoAssets(st.assets); err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	defer f.Close()
	if _, err := serializer.Load(f, st.scene, st.assets, serializer.WithLogger(log.Named("serializer"))); err != nil {
		return err
	}
	printHierarchy(w, st.scene)
	return nil
}

func printHierarchy(w io.Writer, s scene.Scene) {
	fmt.Fprintf(w, "scene %q: %d entities\n", s.Name(), s.Len())
	var walk func(e ecs.Entity, depth int)
	walk = func(e ecs.Entity, depth int) {
		fmt.Fprintf(w, "%*s%s\n", 2+depth*2, "", describe(s, e))
		for _, child := range s.Children(e) {
			walk(child, depth+1)
		}
	}
	for _, e := range s.Entities() {
		if s.Parent(e) == nil {
			walk(e, 0)
		}
	}
}

func describe(s scene.Scene, e ecs.Entity) string {
	name := e.String()
	if tag := s.Tag(e); tag != nil && tag.Name != "" {
		name = tag.Name
	}
	out := name
	if t := s.Transform(e); t != nil {
		p := t.World().Position
		out += fmt.Sprintf(" pos=(%.2f, %.2f, %.2f)", p[0], p[1], p[2])
	}
	if mr := s.MeshRenderer(e); mr != nil && mr.Mesh != nil {
		out += " mesh=" + mr.Mesh.Name()
		if mr.Material != nil {
			out += " material=" + mr.Material.Name()
		}
	}
	if rb := s.RigidBody(e); rb != nil {
		out += " body=" + rb.Shape.String()
		if rb.Static {
			out += "(static)"
		}
	}
	if sc := s.Script(e); sc != nil {
		out += " script=" + sc.Script
	}
	return out
}
