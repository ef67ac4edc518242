package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/usecase/memory"
	"github.com/m-mizutani/arjournal/pkg/usecase/proximity"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// openStore loads the memory store of the configured backend
func (cfg *config) openStore(ctx context.Context) (*memory.Store, func(), error) {
	repo, closeRepo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	return memory.New(ctx, repo), closeRepo, nil
}

func printMemory(w io.Writer, m *model.Memory) {
	location := "-"
	if m.Location != nil {
		location = fmt.Sprintf("%.6f,%.6f", m.Location.Latitude, m.Location.Longitude)
	}
	snapshot := "no"
	if m.HasSnapshot() {
		snapshot = "yes"
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		m.ID, m.Title, m.Color, m.CreatedAt.Format(time.DateTime), location, snapshot)
}

func listCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "list",
		Usage: "List stored memories",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)

			store, closeStore, err := cfg.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			for _, m := range store.List() {
				printMemory(c.Root().Writer, m)
			}
			return nil
		},
	}
}

func nearbyCommand() *cli.Command {
	var (
		cfg      config
		lat, lon float64
		radius   float64
	)

	flags := []cli.Flag{
		&cli.FloatFlag{
			Name:        "lat",
			Usage:       "Current latitude in degrees",
			Required:    true,
			Destination: &lat,
		},
		&cli.FloatFlag{
			Name:        "lon",
			Usage:       "Current longitude in degrees",
			Required:    true,
			Destination: &lon,
		},
		&cli.FloatFlag{
			Name:        "radius",
			Aliases:     []string{"r"},
			Usage:       "Visibility radius in meters",
			Value:       proximity.DefaultRadiusMeters,
			Sources:     cli.EnvVars("ARJOURNAL_RADIUS"),
			Destination: &radius,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "nearby",
		Usage: "List memories visible from a location",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			if radius < 0 {
				return goerr.New("radius must not be negative", goerr.V("radius", radius))
			}

			store, closeStore, err := cfg.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			here := &model.Coordinate{Latitude: lat, Longitude: lon}
			for _, m := range proximity.Filter(store.List(), here, radius, nil) {
				printMemory(c.Root().Writer, m)
			}
			return nil
		},
	}
}

// memoryView shows the size of the world snapshot instead of its bytes
type memoryView struct {
	*model.Memory
	WorldSnapshot int `json:"world_snapshot"`
}

func showCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "show",
		Usage:     "Show one memory in detail",
		ArgsUsage: "<memory-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			id := model.MemoryID(c.Args().First())
			if id == "" {
				return goerr.New("memory ID is required")
			}

			store, closeStore, err := cfg.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			m, ok := store.Get(id)
			if !ok {
				return goerr.Wrap(model.ErrMemoryNotFound, "failed to show memory", goerr.V("memory_id", id))
			}

			data, err := json.MarshalIndent(memoryView{Memory: m, WorldSnapshot: len(m.WorldSnapshot)}, "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to marshal memory")
			}

			fmt.Fprintf(c.Root().Writer, "%s\n", string(data))
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete one memory",
		ArgsUsage: "<memory-id>",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			id := model.MemoryID(c.Args().First())
			if id == "" {
				return goerr.New("memory ID is required")
			}

			store, closeStore, err := cfg.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			removed, err := store.Delete(ctx, id)
			if err != nil {
				return goerr.Wrap(err, "failed to delete memory")
			}
			if !removed {
				return goerr.Wrap(model.ErrMemoryNotFound, "failed to delete memory", goerr.V("memory_id", id))
			}

			fmt.Fprintf(c.Root().Writer, "Memory deleted: %s\n", id)
			return nil
		},
	}
}

func clearCommand() *cli.Command {
	var (
		cfg config
		yes bool
	)

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:        "yes",
			Aliases:     []string{"y"},
			Usage:       "Confirm deleting every memory",
			Destination: &yes,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "clear",
		Usage: "Delete all memories",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx = cfg.setupLogger(ctx)
			if !yes {
				return goerr.New("refusing to delete all memories without --yes")
			}

			store, closeStore, err := cfg.openStore(ctx)
			if err != nil {
				return err
			}
			defer closeStore()

			count := store.Len()
			if err := store.Clear(ctx); err != nil {
				return goerr.Wrap(err, "failed to clear memories")
			}

			fmt.Fprintf(c.Root().Writer, "%d memories deleted\n", count)
			return nil
		},
	}
}
