package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	assist "github.com/notelens/assist-client"
)

var (
	apiFlag     string
	tokenFlag   string
	stateFlag   string
	verboseFlag bool
	rootCmd     = &cobra.Command{
		Use:   "assistctl",
		Short: "CLI client for the assist gateway",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Gateway base URL")
	rootCmd.PersistentFlags().StringVarP(&tokenFlag, "token", "t", "", "Bearer token (falls back to ASSIST_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&stateFlag, "state", "", "Path to the sqlite state file (in-memory when empty)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Log client internals to stderr")

	// chat subcommand
	chatCmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send one prompt and print the reply",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, _ := cmd.Flags().GetString("model")
			streaming, _ := cmd.Flags().GetBool("stream")
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			return runChat(cmd.Context(), c, model, args[0], streaming, os.Stdout)
		},
	}
	chatCmd.Flags().StringP("model", "m", "gpt-4o-mini", "Model ID, optionally provider-prefixed")
	chatCmd.Flags().Bool("stream", false, "Stream the reply chunk by chunk")
	rootCmd.AddCommand(chatCmd)

	// usage subcommand
	usageCmd := &cobra.Command{
		Use:   "usage",
		Short: "Print today's and this month's usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			return runUsage(cmd.Context(), c, os.Stdout)
		},
	}
	rootCmd.AddCommand(usageCmd)

	// sync subcommand
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local usage to the remote authority now",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()
			if err := c.SyncNow(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("synced")
			return nil
		},
	}
	rootCmd.AddCommand(syncCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newClient() (*assist.Client, error) {
	opts := []assist.Option{assist.WithoutSyncer()}
	if tokenFlag != "" {
		opts = append(opts, assist.WithCredentialProvider(assist.StaticCredential{Token: tokenFlag}))
	}
	if stateFlag != "" {
		opts = append(opts, assist.WithSQLiteStore(stateFlag))
	}
	if verboseFlag {
		log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		opts = append(opts, assist.WithLogger(log))
	}
	return assist.New(apiFlag, opts...)
}
