// posetool is a CLI utility for inspecting skeletal animation assets.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/knightfall/internal/assets"
	"github.com/Faultbox/knightfall/internal/config"
	"github.com/Faultbox/knightfall/internal/engine/animator"
	"github.com/Faultbox/knightfall/internal/engine/character"
	"github.com/Faultbox/knightfall/internal/engine/model"
	"github.com/Faultbox/knightfall/internal/engine/skeleton"
	"github.com/Faultbox/knightfall/internal/logger"
	"github.com/Faultbox/knightfall/pkg/math"
)

var errUsage = errors.New("usage")

func main() {
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	args := config.Args()
	if len(args) < 1 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if err := run(cfg, args[0], args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			logger.Error("command failed", zap.String("command", args[0]), zap.Error(err))
		}
		logger.Sync()
		os.Exit(1)
	}
}

type tool struct {
	cfg    *config.Config
	assets *assets.Manager
}

func run(cfg *config.Config, command string, args []string, w io.Writer) error {
	t := &tool{
		cfg: cfg,
		assets: assets.NewManager(model.Options{
			TicksPerSecond: cfg.Animation.DefaultTicksPerSecond,
			FrameEpsilon:   cfg.Animation.FrameEpsilon,
		}),
	}
	defer t.assets.Close()

	switch command {
	case "info":
		return t.cmdInfo(args, w)
	case "bones":
		return t.cmdBones(args, w)
	case "clips":
		return t.cmdClips(args, w)
	case "sample":
		return t.cmdSample(args, w)
	case "weapon":
		return t.cmdWeapon(args, w)
	case "characters", "chars":
		return t.cmdCharacters(args, w)
	case "help", "-h", "--help":
		printUsage(w)
		return nil
	default:
		printUsage(os.Stderr)
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `posetool - skeletal animation inspector

Usage:
  posetool [flags] <command> [options]

Commands:
  info <file>                              Show hierarchy, meshes and bounds
  bones <file>                             List the bone registry
  clips <file>                             List animation clips
  sample <file> <clip> <seconds> [mode]    Pose a clip and print bone matrices
  weapon [-n steps] <file> <clip> <node> <seconds>
                                           Track a node's world position
  characters                               Load every configured character

Flags:
  -config <path>    Config file
  -tps <rate>       Ticks per second for clips that declare none
  -debug            Debug logging
  -log-file <path>  Also log to file

Modes: forward, backward, pingpong

Examples:
  posetool info assets/knight.glb
  posetool sample assets/hornet.glb lunge 0.5 pingpong
  posetool weapon -n 20 assets/knight.glb Knight_Attack nail 1.2`)
}

func (t *tool) cmdInfo(args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: posetool info <file>", errUsage)
	}
	m, err := t.assets.Model(args[0])
	if err != nil {
		return err
	}
	skel := m.Skeleton

	fmt.Fprintf(w, "Model:   %s\n", args[0])
	fmt.Fprintf(w, "Nodes:   %d\n", skel.Len())
	fmt.Fprintf(w, "Bones:   %d\n", skel.BoneCount())
	fmt.Fprintf(w, "Meshes:  %d\n", len(m.Meshes))
	fmt.Fprintf(w, "Clips:   %d\n", m.Clips.Len())
	fmt.Fprintf(w, "Bounds:  %s .. %s\n", fmtVec(m.Bounds.Min), fmtVec(m.Bounds.Max))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Hierarchy:")

	nodes := skel.Nodes()
	depth := make([]int, len(nodes))
	for i, n := range nodes {
		if n.Parent != skeleton.InvalidNode {
			depth[i] = depth[n.Parent] + 1
		}
		marker := ""
		if b := skel.BoneOfNode(skeleton.NodeID(i)); b != skeleton.InvalidBone {
			marker = fmt.Sprintf(" [bone %d]", b)
		}
		fmt.Fprintf(w, "  %s%s%s\n", strings.Repeat("  ", depth[i]), n.Name, marker)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Meshes:")
	for _, mesh := range m.Meshes {
		node := "-"
		if n := skel.Node(mesh.Node); n != nil {
			node = n.Name
		}
		kind := "rigid"
		if mesh.Skinned() {
			kind = fmt.Sprintf("skinned, %d vertices", len(mesh.Influences))
		}
		fmt.Fprintf(w, "  %-20s on %-16s (%s)\n", mesh.Name, node, kind)
	}
	return nil
}

func (t *tool) cmdBones(args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: posetool bones <file>", errUsage)
	}
	m, err := t.assets.Model(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-4s %-24s %-6s %s\n", "ID", "NAME", "NODE", "OFFSET TRANSLATION")
	for _, b := range m.Skeleton.Bones() {
		node := "-"
		if b.Node != skeleton.InvalidNode {
			node = strconv.Itoa(int(b.Node))
		}
		over := ""
		if int(b.ID) >= animator.MaxBones {
			over = "  (over capacity)"
		}
		fmt.Fprintf(w, "%-4d %-24s %-6s %s%s\n", b.ID, b.Name, node, fmtVec(b.Offset.Translation()), over)
	}
	return nil
}

func (t *tool) cmdClips(args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: posetool clips <file>", errUsage)
	}
	m, err := t.assets.Model(args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "%-24s %10s %8s %9s %s\n", "NAME", "TICKS", "TPS", "SECONDS", "CHANNELS")
	for _, name := range m.Clips.Names() {
		clip, _ := m.Clips.Get(name)
		tps := t.cfg.Animation.DefaultTicksPerSecond
		fmt.Fprintf(w, "%-24s %10.2f %8.2f %9.3f %d\n",
			name, clip.Duration, clip.Rate(tps), clip.Seconds(tps), len(clip.Channels()))
	}
	return nil
}

func (t *tool) cmdSample(args []string, w io.Writer) error {
	if len(args) < 3 {
		return fmt.Errorf("%w: posetool sample <file> <clip> <seconds> [mode]", errUsage)
	}
	seconds, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("%w: invalid seconds %q", errUsage, args[2])
	}
	mode := animator.Forward
	if len(args) > 3 {
		if mode, err = animator.ParsePlayMode(args[3]); err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
	}

	m, err := t.assets.Model(args[0])
	if err != nil {
		return err
	}
	clip, ok := m.Clip(args[1])
	if !ok {
		return fmt.Errorf("clip %q not found (have %s)", args[1], strings.Join(m.Clips.Names(), ", "))
	}

	a := m.NewAnimator()
	a.Play(clip, mode, false)
	a.Advance(seconds)

	fmt.Fprintf(w, "Clip:    %s (%s)\n", clip.Name, mode)
	fmt.Fprintf(w, "Elapsed: %.3f ticks\n", a.Elapsed())
	fmt.Fprintf(w, "Frame:   %.3f / %.3f\n", a.Frame(), a.Duration())
	fmt.Fprintf(w, "State:   %s\n", a.State())
	fmt.Fprintln(w)

	for _, b := range m.Skeleton.Bones() {
		mat, ok := a.BoneMatrix(b.ID)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "bone %d %s\n", b.ID, b.Name)
		writeMat(w, mat)
	}
	return nil
}

func (t *tool) cmdWeapon(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("weapon", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	steps := fs.Int("n", 10, "Number of samples")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() < 4 || *steps < 1 {
		return fmt.Errorf("%w: posetool weapon [-n steps] <file> <clip> <node> <seconds>", errUsage)
	}
	seconds, err := strconv.ParseFloat(fs.Arg(3), 64)
	if err != nil || seconds < 0 {
		return fmt.Errorf("%w: invalid seconds %q", errUsage, fs.Arg(3))
	}

	m, err := t.assets.Model(fs.Arg(0))
	if err != nil {
		return err
	}
	clip, ok := m.Clip(fs.Arg(1))
	if !ok {
		return fmt.Errorf("clip %q not found", fs.Arg(1))
	}
	node := fs.Arg(2)
	if _, ok := m.Skeleton.NodeByName(node); !ok {
		return fmt.Errorf("node %q not found", node)
	}

	a := m.NewAnimator()
	a.Play(clip, animator.Forward, false)

	dt := seconds / float64(*steps)
	fmt.Fprintf(w, "%-8s %-10s %s\n", "TIME", "FRAME", "POSITION")
	var step float64
	for i := 0; i <= *steps; i++ {
		a.Advance(step)
		step = dt
		world, ok := a.WorldTransform(node)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%-8.3f %-10.3f %s\n", dt*float64(i), a.Frame(), fmtVec(world.Translation()))
	}
	return nil
}

// cmdCharacters loads every configured character in parallel. Characters
// naming the same file share one model.
func (t *tool) cmdCharacters(_ []string, w io.Writer) error {
	cfg := t.cfg
	if len(cfg.Characters) == 0 {
		fmt.Fprintln(w, "No characters configured")
		return nil
	}

	models := make([]*model.Model, len(cfg.Characters))
	errs := make([]error, len(cfg.Characters))
	var g errgroup.Group
	for i, cc := range cfg.Characters {
		g.Go(func() error {
			models[i], errs[i] = t.assets.Model(cc.Model)
			return errs[i]
		})
	}
	firstErr := g.Wait()

	for i, cc := range cfg.Characters {
		if errs[i] != nil {
			logger.Warn("character failed to load", zap.String("character", cc.Name), zap.Error(errs[i]))
			fmt.Fprintf(w, "%-12s ERROR %v\n", cc.Name, errs[i])
			continue
		}
		c := character.FromModel(cc, cfg.Animation, models[i])
		c.Update(0)
		weapon := "-"
		if pos, ok := c.WeaponPosition(); ok {
			weapon = fmtVec(pos)
		}
		fmt.Fprintf(w, "%-12s clip=%-16q size=%s weapon=%s\n",
			c.Name, c.CurrentClip(), fmtVec(c.Size()), weapon)
	}
	if firstErr != nil {
		return fmt.Errorf("loading characters: %w", firstErr)
	}
	return nil
}

func fmtVec(v math.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v.X, v.Y, v.Z)
}

// writeMat prints m row by row.
func writeMat(w io.Writer, m math.Mat4) {
	for r := 0; r < 4; r++ {
		fmt.Fprintf(w, "  [%8.3f %8.3f %8.3f %8.3f]\n", m[r], m[4+r], m[8+r], m[12+r])
	}
}
