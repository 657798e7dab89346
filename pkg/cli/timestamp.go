package cli

import (
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/aseriousbiz/abbot/pkg/domain/model/slack"
)

func cmdTimestamp() *cli.Command {
	var sortOutput bool

	return &cli.Command{
		Name:      "timestamp",
		Aliases:   []string{"ts"},
		Usage:     "Parse Slack message timestamps and show their instant",
		ArgsUsage: "TS [TS...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "sort",
				Usage:       "Print timestamps in chronological order",
				Destination: &sortOutput,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			if c.Args().Len() == 0 {
				return goerr.New("at least one timestamp is required")
			}
			return printTimestamps(c.Root().Writer, c.Args().Slice(), sortOutput)
		},
	}
}

// printTimestamps writes one line per input. Invalid inputs are listed after
// the valid ones and make the command fail.
func printTimestamps(w io.Writer, inputs []string, sortOutput bool) error {
	var parsed []slack.Timestamp
	var invalid []string

	for _, in := range inputs {
		ts, ok := slack.TryParseTimestamp(in)
		if !ok {
			invalid = append(invalid, in)
			continue
		}
		parsed = append(parsed, ts)
	}

	if sortOutput {
		slices.SortStableFunc(parsed, slack.Timestamp.Compare)
	}

	for _, ts := range parsed {
		fmt.Fprintf(w, "%s\t%s\tsuffix=%s\n",
			ts.String(),
			ts.Time().UTC().Format(time.RFC3339),
			ts.Suffix())
	}
	for _, in := range invalid {
		color.New(color.FgRed).Fprintf(w, "%s\tinvalid\n", in)
	}

	if len(invalid) > 0 {
		return goerr.New("invalid timestamps", goerr.V("count", len(invalid)))
	}
	return nil
}
