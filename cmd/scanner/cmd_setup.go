package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Scanner Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.Telegram.Token = prompt(scanner, "Telegram bot token", cfg.Telegram.Token)

		authorIDStr := prompt(scanner, "Own account id to ignore (optional)", strconv.FormatInt(cfg.Self.AuthorID, 10))
		if n, err := strconv.ParseInt(authorIDStr, 10, 64); err == nil {
			cfg.Self.AuthorID = n
		}
		cfg.Self.AuthorName = prompt(scanner, "Own account name to ignore (optional)", cfg.Self.AuthorName)

		cfg.DataDir = prompt(scanner, "Data directory", cfg.DataDir)

		intervalStr := prompt(scanner, "Poll interval in seconds", strconv.Itoa(cfg.Reposter.PollIntervalSeconds))
		if n, err := strconv.Atoi(intervalStr); err == nil && n > 0 {
			cfg.Reposter.PollIntervalSeconds = n
		}

		chatIDStr := prompt(scanner, "Notification chat id to auto-subscribe (optional)", strconv.FormatInt(cfg.Reposter.AutoSubscribeChatID, 10))
		if n, err := strconv.ParseInt(chatIDStr, 10, 64); err == nil {
			cfg.Reposter.AutoSubscribeChatID = n
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
