package cli

import (
	"context"

	"github.com/urfave/cli/v3"
)

type Error struct {
	Code    int
	Message string
}

func Run(ctx context.Context, argv []string) *Error {
	cmd := &cli.Command{
		Name:  "arjournal",
		Usage: "Spatial memory journal: anchor notes to places and reopen them later",
		Commands: []*cli.Command{
			listCommand(),
			nearbyCommand(),
			showCommand(),
			deleteCommand(),
			clearCommand(),
			simCommand(),
		},
	}

	if err := cmd.Run(ctx, argv); err != nil {
		return &Error{
			Code:    1,
			Message: err.Error(),
		}
	}

	return nil
}
