package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"conferencia/painel/internal/auth"
	"conferencia/painel/internal/control"
	"conferencia/painel/internal/types"
)

type globalOpts struct {
	addr    string
	token   string
	timeout time.Duration
}

func bindGlobal(root *cobra.Command) *globalOpts {
	o := &globalOpts{}
	root.PersistentFlags().StringVar(&o.addr, "addr", envOr("ALERTCTL_ADDR", "localhost:9090"), "control gRPC address")
	root.PersistentFlags().StringVar(&o.token, "token", os.Getenv("ALERTCTL_TOKEN"), "operator token for clear/reset/scan")
	root.PersistentFlags().DurationVar(&o.timeout, "timeout", 10*time.Second, "request timeout")
	return o
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// withClient dials, runs fn and closes the connection.
func (o *globalOpts) withClient(fn func(ctx context.Context, c *control.Client) error) error {
	c, err := control.Dial(o.addr, o.token)
	if err != nil {
		return fmt.Errorf("dial %s: %w", o.addr, err)
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	return fn(ctx, c)
}

func stateCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Show the alert session: playing clip, pending queue, queued and played orders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(func(ctx context.Context, c *control.Client) error {
				snap, err := c.Snapshot(ctx)
				if err != nil {
					return err
				}
				renderSnapshot(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
}

func clearCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Stop the current clip and drop pending alerts (played orders stay played)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withClient(func(ctx context.Context, c *control.Client) error {
				snap, err := c.ClearQueue(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint("queue cleared"))
				renderSnapshot(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
}

func resetCmd(o *globalOpts) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every queued and played order so alerts can fire again",
		Long: `Reset clears the queue and the played set of the running session. Every
order that still has a cut will alert again on the next poll.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Every alert of this session will play again. Type RESET to continue: ", "RESET")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgYellow).Sprint("aborted"))
					return nil
				}
			}
			return o.withClient(func(ctx context.Context, c *control.Client) error {
				snap, err := c.ResetSession(ctx, true)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint("session reset"))
				renderSnapshot(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func scanCmd(o *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <orders.json|->",
		Short: "Run one scan over a pending-list file (same JSON as the backend)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orders, err := readOrders(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			return o.withClient(func(ctx context.Context, c *control.Client) error {
				submitted, snap, err := c.Scan(ctx, orders)
				if err != nil {
					return err
				}
				if submitted {
					fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgGreen).Sprint("alert submitted"))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), color.New(color.FgYellow).Sprint("no new alert"))
				}
				renderSnapshot(cmd.OutOrStdout(), snap)
				return nil
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		secret   string
		operator string
		scope    string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an operator token (offline, needs the service secret)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("--secret or CONTROL_TOKEN_SECRET is required")
			}
			if operator == "" || strings.Contains(operator, ".") {
				return fmt.Errorf("operator name %q must be non-empty and contain no '.'; pass --operator (e.g. first_last)", operator)
			}
			switch scope {
			case auth.ScopeAll, "clear", "reset", "scan":
			default:
				return fmt.Errorf("unknown scope %q (want clear, reset, scan or *)", scope)
			}
			tok, err := auth.GenerateOperatorToken(secret, operator, scope, time.Now().Add(ttl).Unix())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("CONTROL_TOKEN_SECRET"), "service token secret")
	cmd.Flags().StringVar(&operator, "operator", envOr("USER", "operator"), "operator name recorded in the service log")
	cmd.Flags().StringVar(&scope, "scope", auth.ScopeAll, "action the token allows: clear, reset, scan or *")
	cmd.Flags().DurationVar(&ttl, "ttl", 15*time.Minute, "token lifetime")
	return cmd
}

func confirm(in io.Reader, out io.Writer, prompt, want string) (bool, error) {
	fmt.Fprint(out, color.New(color.FgRed).Sprint(prompt))
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	return strings.TrimSpace(line) == want, nil
}

func readOrders(stdin io.Reader, path string) ([]types.Order, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var orders []types.Order
	if err := json.NewDecoder(r).Decode(&orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

func renderSnapshot(w io.Writer, s types.Snapshot) {
	fmt.Fprintf(w, "Instance: %s\n", s.InstanceID)
	if s.Playing != nil {
		fmt.Fprintf(w, "Playing:  %s order %d (%s) %s\n",
			color.New(color.FgGreen).Sprint("▶"), s.Playing.OrderID, s.Playing.DisplayName, s.Playing.AssetRef)
	} else {
		fmt.Fprintf(w, "Playing:  %s\n", color.New(color.FgHiBlack).Sprint("(idle)"))
	}
	fmt.Fprintf(w, "Pending:  %s\n", ids(s.Pending))
	fmt.Fprintf(w, "Queued:   %s\n", ids(s.Queued))
	fmt.Fprintf(w, "Played:   %s\n", ids(s.Played))
}

func ids(v []int64) string {
	if len(v) == 0 {
		return color.New(color.FgHiBlack).Sprint("-")
	}
	parts := make([]string, len(v))
	for i, id := range v {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ", ")
}
