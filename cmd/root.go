/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay Telegram messages to the bot service",
	Long: `Receives Telegram messages by long polling, forwards each one to the bot
service over HTTP, and sends the service's answer back to the chat.

Running relay without a subcommand is the same as relay run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRelay,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "relay: %v\n", err)
		os.Exit(1)
	}
}
