package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/arjournal/pkg/adapter"
	"github.com/m-mizutani/arjournal/pkg/engine"
	"github.com/m-mizutani/arjournal/pkg/geo"
	"github.com/m-mizutani/arjournal/pkg/interaction"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/scene"
	"github.com/m-mizutani/arjournal/pkg/sim"
	"github.com/m-mizutani/arjournal/pkg/tracking"
	"github.com/m-mizutani/arjournal/pkg/usecase/memory"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// cameraPitch tilts the simulated camera down toward the floor.
const cameraPitch = -math.Pi / 4

const simHelp = `commands:
  mode add|explore         switch mode and relocalize
  tap X Y                  tap the screen at point (X, Y)
  save TITLE [| DESC]      save the pending memory
  cancel                   discard the pending memory
  dismiss                  close the opened memory
  delete                   delete the opened memory
  camera X Y Z [YAW]       move the camera, YAW in degrees
  plane Y                  add a detected floor at height Y
  locate LAT LON | none    move the device
  tracking normal|limited  report a tracking state
  state                    show the interaction state
  visible                  list memories in the scene
  quit
`

func simCommand() *cli.Command {
	var (
		cfg      config
		mode     string
		lat, lon float64
		features int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "mode",
			Aliases:     []string{"m"},
			Usage:       "Initial mode (add, explore)",
			Value:       string(model.ModeAdd),
			Destination: &mode,
		},
		&cli.FloatFlag{
			Name:        "lat",
			Usage:       "Initial device latitude in degrees",
			Destination: &lat,
		},
		&cli.FloatFlag{
			Name:        "lon",
			Usage:       "Initial device longitude in degrees",
			Destination: &lon,
		},
		&cli.IntFlag{
			Name:        "features",
			Usage:       "Number of tracked features; snapshots need at least 100",
			Value:       500,
			Destination: &features,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)
	flags = append(flags, narrationFlags(&cfg)...)
	flags = append(flags, engineFlags(&cfg)...)

	return &cli.Command{
		Name:  "sim",
		Usage: "Drive the engine interactively over a simulated AR scene",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			store, closeStore, err := cfg.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			narrator, closeNarrator, err := cfg.newNarrator(ctx)
			if err != nil {
				return err
			}
			defer closeNarrator()

			ec, err := cfg.newEngineConfig()
			if err != nil {
				return err
			}

			var loc *model.Coordinate
			if c.IsSet("lat") || c.IsSet("lon") {
				loc = &model.Coordinate{Latitude: lat, Longitude: lon}
			}

			shell, err := newSimShell(simInput{
				Store:    store,
				Narrator: narrator,
				Locator:  geo.NewStatic(loc),
				Mode:     model.Mode(mode),
				Config:   ec,
				Features: int(features),
				Writer:   c.Root().Writer,
			})
			if err != nil {
				return err
			}

			reader := c.Root().Reader
			if reader == nil {
				reader = os.Stdin
			}
			return shell.run(ctx, reader)
		},
	}
}

type simInput struct {
	Store    *memory.Store
	Narrator adapter.Narrator
	Locator  *geo.Static
	Mode     model.Mode
	Config   engine.Config
	Features int
	Writer   io.Writer
}

type simShell struct {
	engine  *engine.Engine
	scene   *sim.Scene
	store   *memory.Store
	locator *geo.Static
	w       io.Writer
}

func newSimShell(in simInput) (*simShell, error) {
	s := sim.New()
	s.AddPlane(sim.Floor(0, 5))
	s.SetFeatures(in.Features)
	cam := sim.LookFrom(model.Vec3{Y: 1.5}, 0, cameraPitch)
	s.SetCamera(&cam)

	input := engine.Input{
		Store:     in.Store,
		Locator:   in.Locator,
		Renderer:  s,
		Session:   s,
		Snapshots: s,
		Narrator:  in.Narrator,
		Mode:      in.Mode,
		Config:    in.Config,
	}

	e, err := engine.New(input)
	if err != nil {
		return nil, err
	}

	return &simShell{
		engine:  e,
		scene:   s,
		store:   in.Store,
		locator: in.Locator,
		w:       in.Writer,
	}, nil
}

// start runs the engine until the returned stop function is called
func (s *simShell) start(ctx context.Context) func() error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.engine.Run(ctx) }()
	return func() error {
		cancel()
		return <-done
	}
}

func (s *simShell) run(ctx context.Context, r io.Reader) error {
	stop := s.start(ctx)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "arjournal> ",
		Stdin:           io.NopCloser(r),
		Stdout:          s.w,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		_ = stop()
		return goerr.Wrap(err, "failed to start prompt")
	}
	defer rl.Close()

	fmt.Fprint(s.w, simHelp)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				break
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			_ = stop()
			return goerr.Wrap(err, "failed to read command")
		}

		quit, err := s.exec(ctx, line)
		if err != nil {
			fmt.Fprintf(s.w, "error: %v\n", err)
		}
		if quit {
			break
		}
	}

	return stop()
}

// exec runs one shell command. It reports true when the shell should exit.
func (s *simShell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	args := fields[1:]

	switch fields[0] {
	case "quit", "exit":
		return true, nil

	case "help":
		fmt.Fprint(s.w, simHelp)
		return false, nil

	case "mode":
		if len(args) != 1 {
			return false, goerr.New("usage: mode add|explore")
		}
		if err := s.engine.EnterMode(ctx, model.Mode(args[0])); err != nil {
			return false, err
		}
		fmt.Fprintf(s.w, "mode: %s\n", args[0])
		return false, s.printVisible(ctx)

	case "tap":
		v, err := parseFloats(args, 2, 2)
		if err != nil {
			return false, goerr.Wrap(err, "usage: tap X Y")
		}
		return false, s.tap(ctx, scene.ScreenPoint{X: float32(v[0]), Y: float32(v[1])})

	case "save":
		rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "save"))
		title, description, _ := strings.Cut(rest, "|")
		return false, s.save(ctx, strings.TrimSpace(title), strings.TrimSpace(description))

	case "cancel":
		if err := s.engine.Cancel(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(s.w, "canceled")
		return false, nil

	case "dismiss":
		if err := s.engine.Dismiss(ctx); err != nil {
			return false, err
		}
		fmt.Fprintln(s.w, "closed")
		return false, nil

	case "delete":
		id, err := s.engine.Delete(ctx)
		if id != "" {
			fmt.Fprintf(s.w, "deleted %s\n", id)
		}
		return false, err

	case "camera":
		v, err := parseFloats(args, 3, 4)
		if err != nil {
			return false, goerr.Wrap(err, "usage: camera X Y Z [YAW]")
		}
		yaw := 0.0
		if len(v) == 4 {
			yaw = v[3] * math.Pi / 180
		}
		pose := sim.LookFrom(model.Vec3{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}, yaw, cameraPitch)
		s.scene.SetCamera(&pose)
		s.engine.OnFrame(pose)
		return false, nil

	case "plane":
		v, err := parseFloats(args, 1, 1)
		if err != nil {
			return false, goerr.Wrap(err, "usage: plane Y")
		}
		s.scene.AddPlane(sim.Floor(float32(v[0]), 5))
		return false, nil

	case "locate":
		if len(args) == 1 && args[0] == "none" {
			s.locator.Set(nil)
		} else {
			v, err := parseFloats(args, 2, 2)
			if err != nil {
				return false, goerr.Wrap(err, "usage: locate LAT LON | none")
			}
			s.locator.Set(&model.Coordinate{Latitude: v[0], Longitude: v[1]})
		}
		if _, err := s.engine.Refresh(ctx); err != nil {
			return false, err
		}
		return false, s.printVisible(ctx)

	case "tracking":
		if len(args) != 1 {
			return false, goerr.New("usage: tracking normal|limited")
		}
		state := tracking.State(args[0])
		switch state {
		case tracking.StateNormal, tracking.StateLimited, tracking.StateNotAvailable:
		default:
			return false, goerr.New("unknown tracking state", goerr.V("state", args[0]))
		}
		return false, s.engine.OnTrackingState(ctx, state)

	case "state":
		return false, s.printState(ctx)

	case "visible":
		return false, s.printVisible(ctx)

	default:
		return false, goerr.New("unknown command, type help", goerr.V("command", fields[0]))
	}
}

func (s *simShell) tap(ctx context.Context, p scene.ScreenPoint) error {
	out, err := s.engine.Tap(ctx, p)
	if err != nil {
		return err
	}

	switch out.Action {
	case interaction.ActionPendingCreate:
		fmt.Fprintf(s.w, "new memory at (%.2f, %.2f, %.2f)", out.Position.X, out.Position.Y, out.Position.Z)
		if out.Fallback {
			fmt.Fprint(s.w, " in front of the camera")
		}
		fmt.Fprintln(s.w, "; save TITLE [| DESC] or cancel")

	case interaction.ActionOpen:
		m, ok := s.store.Get(out.MemoryID)
		if !ok {
			return goerr.Wrap(model.ErrMemoryNotFound, "opened memory is gone", goerr.V("memory_id", out.MemoryID))
		}
		fmt.Fprintf(s.w, "opened %q (%s)\n", m.Title, m.ID)
		if m.Description != "" {
			fmt.Fprintf(s.w, "  %s\n", m.Description)
		}
		fmt.Fprintln(s.w, "dismiss or delete")

	default:
		fmt.Fprintln(s.w, "nothing happened")
	}
	return nil
}

func (s *simShell) save(ctx context.Context, title, description string) error {
	ch, err := s.engine.Save(ctx, title, description)
	if err != nil {
		return err
	}

	res := <-ch
	if res.Memory != nil {
		fmt.Fprintf(s.w, "saved %q (%s), snapshot: %t\n", res.Memory.Title, res.Memory.ID, res.Memory.HasSnapshot())
	}
	return res.Err
}

func (s *simShell) printState(ctx context.Context) error {
	mode, err := s.engine.Mode(ctx)
	if err != nil {
		return err
	}
	state, err := s.engine.State(ctx)
	if err != nil {
		return err
	}
	ts, err := s.engine.TrackingState(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(s.w, "mode: %s\nstate: %s\ntracking: %s\nrelocalizing: %t\n",
		mode, state.Kind, ts, s.engine.Relocalizing())

	switch state.Kind {
	case interaction.KindPendingCreate:
		fmt.Fprintf(s.w, "position: (%.2f, %.2f, %.2f)\n", state.Position.X, state.Position.Y, state.Position.Z)
	case interaction.KindViewing:
		fmt.Fprintf(s.w, "memory: %s\n", state.MemoryID)
		n, err := s.engine.Narration(ctx)
		if err != nil {
			return err
		}
		switch {
		case n.Pending:
			fmt.Fprintln(s.w, "narration: ...")
		case n.Err != nil:
			fmt.Fprintf(s.w, "narration unavailable: %v\n", n.Err)
		case n.Text != "":
			fmt.Fprintf(s.w, "narration: %s\n", n.Text)
		}
	}
	return nil
}

func (s *simShell) printVisible(ctx context.Context) error {
	ids, err := s.engine.Visible(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.w, "%d visible\n", len(ids))
	for _, id := range ids {
		if m, ok := s.store.Get(id); ok {
			p, onScreen := s.scene.Project(m.Position)
			where := "off screen"
			if onScreen {
				where = fmt.Sprintf("at screen (%.0f, %.0f)", p.X, p.Y)
			}
			fmt.Fprintf(s.w, "  %s\t%s\t%s\n", id, m.Title, where)
		}
	}
	return nil
}

func parseFloats(args []string, minN, maxN int) ([]float64, error) {
	if len(args) < minN || len(args) > maxN {
		return nil, goerr.New("wrong number of arguments", goerr.V("got", len(args)))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, goerr.Wrap(err, "not a number", goerr.V("arg", a))
		}
		out[i] = v
	}
	return out, nil
}
