package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aretw0/graff"
	"github.com/aretw0/graff/internal/presentation/tui"
	"github.com/aretw0/graff/pkg/codec"
	"github.com/spf13/cobra"
)

// Query kinds for the query command.
const (
	kindKDE  = "kde"
	kindMax  = "max"
	kindMean = "mean"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend counters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return withClient(cmd, func(ctx context.Context, c *graff.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), st)
			}
			return printMarkdown(cmd.OutOrStdout(), tui.StatusMarkdown(st))
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Register the robot and session with the backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graff.Client) error {
			if err := c.Register(ctx); err != nil {
				return err
			}
			s, err := c.Session(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), ">>> Robot '%s' registered, session '%s' active.\n", c.Robot().Name(), s.Name())
			return nil
		})
	},
}

var lsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the variables and factors the backend holds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		variables, _ := cmd.Flags().GetBool("variables")
		factors, _ := cmd.Flags().GetBool("factors")
		if !variables && !factors {
			variables, factors = true, true
		}
		return withClient(cmd, func(ctx context.Context, c *graff.Client) error {
			l, err := c.List(ctx, variables, factors)
			if err != nil {
				return err
			}
			printListing(cmd.OutOrStdout(), l, variables, factors)
			return nil
		})
	},
}

var tagCmd = &cobra.Command{
	Use:   "tag <tag>",
	Short: "List the elements carrying a tag, e.g. POSE or LANDMARK",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graff.Client) error {
			l, err := c.ByTag(ctx, args[0])
			if err != nil {
				return err
			}
			printListing(cmd.OutOrStdout(), l, true, true)
			return nil
		})
	},
}

var queryCmd = &cobra.Command{
	Use:   "query <variable>",
	Short: "Read a variable estimate after a solve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, _ := cmd.Flags().GetString("kind")
		name := args[0]
		return withClient(cmd, func(ctx context.Context, c *graff.Client) error {
			out := cmd.OutOrStdout()
			switch strings.ToLower(kind) {
			case kindKDE:
				d, err := c.KDE(ctx, name)
				if err != nil {
					return err
				}
				return printJSON(out, d.ToDocument())
			case kindMax:
				p, err := c.MAPMax(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatVector(p))
			case kindMean:
				p, err := c.MAPMean(ctx, name)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, formatVector(p))
			default:
				return fmt.Errorf("unknown kind %q (want kde, max or mean)", kind)
			}
			return nil
		})
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Request a batch solve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graff.Client) error {
			res, err := c.Solve(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), ">>> Solve %s\n", tui.StatusText(cmd.OutOrStdout(), res.Reply.Status()))
			return nil
		})
	},
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Ask the backend to stop",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd, func(ctx context.Context, c *graff.Client) error {
			if err := c.Shutdown(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ">>> Shutdown requested.")
			return nil
		})
	},
}

var mockCmd = &cobra.Command{
	Use:       "mock on|off",
	Short:     "Switch backend mock mode",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE: func(cmd *cobra.Command, args []string) error {
		on := args[0] == "on"
		return withClient(cmd, func(ctx context.Context, c *graff.Client) error {
			if err := c.SetMock(ctx, on); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), ">>> Mock mode %s.\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd, registerCmd, lsCmd, tagCmd, queryCmd, solveCmd, shutdownCmd, mockCmd)

	statusCmd.Flags().Bool("json", false, "Print the counters as JSON")
	lsCmd.Flags().Bool("variables", false, "List variables")
	lsCmd.Flags().Bool("factors", false, "List factors")
	queryCmd.Flags().String("kind", kindMean, "Estimate kind: kde, max or mean")
}

func printListing(w io.Writer, l codec.Listing, variables, factors bool) {
	if variables {
		fmt.Fprintf(w, "Variables (%d):\n", len(l.Variables))
		for _, v := range l.Variables {
			fmt.Fprintln(w, "- "+v)
		}
	}
	if factors {
		fmt.Fprintf(w, "Factors (%d):\n", len(l.Factors))
		for _, f := range l.Factors {
			fmt.Fprintln(w, "- "+f)
		}
	}
}

func formatVector(v []float64) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%g", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printMarkdown renders through glamour when w is a terminal.
func printMarkdown(w io.Writer, markdown string) error {
	render := func(s string) (string, error) { return s, nil }
	if f, ok := w.(*os.File); ok {
		render = tui.NewRenderer(f)
	}
	text, err := render(markdown)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}
