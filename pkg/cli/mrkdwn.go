package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/aseriousbiz/abbot/pkg/domain/model/mrkdwn"
)

var (
	spanKindColor = color.New(color.FgCyan, color.Bold)
	spanAttrColor = color.New(color.FgYellow)
	spanTextColor = color.New(color.FgGreen)
)

func cmdMrkdwn() *cli.Command {
	return &cli.Command{
		Name:      "mrkdwn",
		Usage:     "Parse Slack mrkdwn and print the span tree",
		ArgsUsage: "[TEXT] (reads stdin when omitted)",
		Action: func(ctx context.Context, c *cli.Command) error {
			text := strings.Join(c.Args().Slice(), " ")
			if c.Args().Len() == 0 {
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return goerr.Wrap(err, "failed to read stdin")
				}
				text = strings.TrimRight(string(data), "\n")
			}

			printSpans(c.Root().Writer, mrkdwn.Parse(text), 0)
			return nil
		},
	}
}

func printSpans(w io.Writer, spans []mrkdwn.Span, depth int) {
	indent := strings.Repeat("  ", depth)

	for _, s := range spans {
		fmt.Fprint(w, indent)
		switch v := s.(type) {
		case mrkdwn.PlainText:
			spanKindColor.Fprint(w, "text ")
			spanTextColor.Fprintf(w, "%q\n", v.Text)
		case mrkdwn.Emoji:
			spanKindColor.Fprint(w, "emoji ")
			spanAttrColor.Fprintf(w, "name=%s\n", v.Name)
		case mrkdwn.Mention:
			spanKindColor.Fprint(w, "mention ")
			spanAttrColor.Fprintf(w, "kind=%s", v.Kind)
			if v.ID != "" {
				spanAttrColor.Fprintf(w, " id=%s", v.ID)
			}
			if v.Label != "" {
				spanAttrColor.Fprintf(w, " label=%q", v.Label)
			}
			fmt.Fprintln(w)
		case mrkdwn.Link:
			spanKindColor.Fprint(w, "link ")
			spanAttrColor.Fprintf(w, "url=%s\n", v.URL)
			printSpans(w, v.Children, depth+1)
		case mrkdwn.Formatted:
			spanKindColor.Fprint(w, "formatted ")
			spanAttrColor.Fprintf(w, "format=%s\n", v.Format)
			printSpans(w, v.Children, depth+1)
		}
	}
}
