// Command cli is a terminal client for the chat service.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("chat")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "cli",
		Short:         "Talk to the chat service from a terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("url", "http://localhost:5000", "chat service base URL (CHAT_URL)")
	flags.String("token", "", "session token (CHAT_TOKEN)")
	flags.Duration("timeout", 90*time.Second, "request timeout")
	flags.String("style", "dark", "markdown style for replies (dark, light, notty)")
	_ = v.BindPFlags(flags)

	newClient := func() (*Client, error) {
		token := v.GetString("token")
		if token == "" {
			return nil, fmt.Errorf("a session token is required, set CHAT_TOKEN or --token")
		}
		return NewClient(v.GetString("url"), token, v.GetDuration("timeout")), nil
	}
	style := func() string { return v.GetString("style") }

	root.AddCommand(
		newSendCommand(newClient, style),
		newHistoryCommand(newClient),
		newShowCommand(newClient, style),
		newReplCommand(newClient, style),
	)
	return root
}

func newSendCommand(newClient func() (*Client, error), style func() string) *cobra.Command {
	var chatID string
	cmd := &cobra.Command{
		Use:   "send MESSAGE",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			conv, err := client.Send(cmd.Context(), strings.Join(args, " "), chatID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Chat %s\n\n", conv.ID)
			if reply, ok := lastReply(conv); ok {
				fmt.Fprintln(out, renderMarkdown(reply.Content, style()))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&chatID, "chat", "", "continue an existing chat")
	return cmd
}

func newHistoryCommand(newClient func() (*Client, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your chats, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			summaries, err := client.History(cmd.Context())
			if err != nil {
				return err
			}
			printSummaries(cmd.OutOrStdout(), summaries)
			return nil
		},
	}
}

func newShowCommand(newClient func() (*Client, error), style func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print a chat with all its messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			conv, err := client.Show(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printConversation(cmd.OutOrStdout(), conv, style())
			return nil
		},
	}
}
