// Command arcctl is the operator CLI for the agent platform.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/alphaarc/platform/pkg/client"
)

var serverURL string

func main() {
	root := &cobra.Command{
		Use:           "arcctl",
		Short:         "Operator CLI for the agent platform",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3000", "platform server URL")

	root.AddCommand(runCmd(), watchCmd(), modelsCmd(), agentsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config.json>",
		Short: "Run an agent from a config file and stream its events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var cfg map[string]any
			if err := json.Unmarshal(raw, &cfg); err != nil {
				return fmt.Errorf("invalid config file: %w", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			stream, err := client.New(serverURL).RunAgent(ctx, cfg)
			if err != nil {
				return err
			}
			defer stream.Close()

			fmt.Fprintf(cmd.ErrOrStderr(), "run id: %s\n", stream.RunID)
			return printStream(cmd.OutOrStdout(), stream)
		},
	}
	return cmd
}

func printStream(out io.Writer, stream *client.Stream) error {
	for {
		ev, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		printEvent(out, ev.Type, ev.Message, ev.Data)
	}
}

func printEvent(out io.Writer, typ client.LogType, message string, data json.RawMessage) {
	switch typ {
	case client.LogTypeResult:
		fmt.Fprintf(out, "[%s] %s\n", typ, message)
		if len(data) > 0 {
			fmt.Fprintln(out, string(data))
		}
	case client.LogTypeTrace:
		// Message histories are bulky; summarize.
		fmt.Fprintf(out, "[%s] %d bytes of message history\n", typ, len(data))
	default:
		fmt.Fprintf(out, "[%s] %s\n", typ, message)
	}
}

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <run-id>",
		Short: "Watch a running agent's events over WebSocket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wsURL := strings.Replace(serverURL, "http", "ws", 1) +
				"/rpc/agents/runs/" + args[0] + "/watch"
			ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
			if err != nil {
				return fmt.Errorf("connect %s: %w", wsURL, err)
			}
			defer ws.Close()

			for {
				_, data, err := ws.ReadMessage()
				if err != nil {
					return nil
				}
				var ev struct {
					Type    client.LogType  `json:"type"`
					Message string          `json:"message"`
					Data    json.RawMessage `json:"data"`
				}
				if err := json.Unmarshal(data, &ev); err != nil {
					continue
				}
				printEvent(cmd.OutOrStdout(), ev.Type, ev.Message, ev.Data)
			}
		},
	}
}

func modelsCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List models available for a provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(serverURL + "/rpc/models?provider=" + provider)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			var body struct {
				Models []struct {
					Name   string `json:"name"`
					Model  string `json:"model"`
					Status string `json:"status"`
				} `json:"models"`
				Error string `json:"error"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return err
			}
			if body.Error != "" {
				return fmt.Errorf("%s", body.Error)
			}
			for _, m := range body.Models {
				fmt.Fprintf(cmd.OutOrStdout(), "%-30s %s\n", m.Model, m.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "mock", "model provider")
	return cmd
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "List stored agents",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := http.Get(serverURL + "/rpc/agents")
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			var body struct {
				Agents []struct {
					ID         string `json:"id"`
					IsDeployed bool   `json:"isDeployed"`
					Info       struct {
						Name string `json:"name"`
					} `json:"info"`
				} `json:"agents"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				return err
			}
			for _, a := range body.Agents {
				state := "draft"
				if a.IsDeployed {
					state = "deployed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-40s %-20s %s\n", a.ID, a.Info.Name, state)
			}
			return nil
		},
	}
}
