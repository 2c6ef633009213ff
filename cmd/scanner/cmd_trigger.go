package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/store"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/trigger"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

func init() {
	rootCmd.AddCommand(triggerCmd)
	triggerCmd.AddCommand(triggerAddCmd, triggerListCmd, triggerUpdateCmd, triggerRemoveCmd, triggerEnableCmd, triggerDisableCmd)

	triggerAddCmd.Flags().String("name", "", "trigger name (defaults to the text)")
	triggerAddCmd.Flags().Int64("scope", 0, "restrict matches to this target id")
	triggerAddCmd.Flags().Int64("flags", 0, "pattern flag bits")

	triggerUpdateCmd.Flags().String("name", "", "new trigger name")
	triggerUpdateCmd.Flags().String("text", "", "new trigger text")
	triggerUpdateCmd.Flags().Int64("flags", -1, "new pattern flag bits")
}

func openStore() (*store.Store, error) {
	cfg := loadConfig()
	return store.Open(cfg.DBPath())
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Manage triggers",
}

var triggerAddCmd = &cobra.Command{
	Use:   "add <text>",
	Short: "Add a new trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		name, _ := cmd.Flags().GetString("name")
		scope, _ := cmd.Flags().GetInt64("scope")
		flags, _ := cmd.Flags().GetInt64("flags")

		text := args[0]
		if name == "" {
			name = text
		}
		t := &types.Trigger{
			Name:    name,
			RawText: text,
			Pattern: trigger.Derive(text),
			Flags:   flags,
			Enabled: true,
		}
		if scope != 0 {
			t.ScopeTargetID = &scope
		}

		created, err := st.CreateTrigger(cmd.Context(), t)
		if err != nil {
			return fmt.Errorf("add trigger: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Trigger %d (%s) added with pattern %s\n", created.ID, created.Name, created.Pattern)
		return nil
	},
}

var triggerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all triggers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		triggers, err := st.ListTriggers(cmd.Context())
		if err != nil {
			return fmt.Errorf("list triggers: %w", err)
		}
		if len(triggers) == 0 {
			fmt.Println("No triggers configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tPATTERN\tENABLED\tSCOPE")
		for _, t := range triggers {
			scope := "-"
			if t.ScopeTargetID != nil {
				scope = strconv.FormatInt(*t.ScopeTargetID, 10)
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%s\n",
				t.ID,
				t.Name,
				t.Pattern,
				t.Enabled,
				scope,
			)
		}
		return w.Flush()
	},
}

var triggerUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update a trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid trigger id %q", args[0])
		}

		st, err := openStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		t, err := st.GetTrigger(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get trigger %d: %w", id, err)
		}

		if text, _ := cmd.Flags().GetString("text"); text != "" {
			t.RawText = text
			t.Pattern = trigger.Derive(text)
		}
		if name, _ := cmd.Flags().GetString("name"); name != "" {
			t.Name = name
		}
		if flags, _ := cmd.Flags().GetInt64("flags"); flags >= 0 {
			t.Flags = flags
		}

		updated, err := st.UpdateTrigger(cmd.Context(), t)
		if err != nil {
			return fmt.Errorf("update trigger %d: %w", id, err)
		}
		fmt.Fprintf(os.Stdout, "Trigger %d updated, pattern %s\n", updated.ID, updated.Pattern)
		return nil
	},
}

var triggerRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid trigger id %q", args[0])
		}

		st, err := openStore()
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		if err := st.DeleteTrigger(cmd.Context(), id); err != nil {
			return fmt.Errorf("remove trigger %d: %w", id, err)
		}
		fmt.Fprintf(os.Stdout, "Trigger %d removed.\n", id)
		return nil
	},
}

var triggerEnableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTriggerEnabled(cmd, args[0], true)
	},
}

var triggerDisableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a trigger",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTriggerEnabled(cmd, args[0], false)
	},
}

func setTriggerEnabled(cmd *cobra.Command, arg string, enabled bool) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid trigger id %q", arg)
	}

	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	t, err := st.GetTrigger(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("get trigger %d: %w", id, err)
	}
	t.Enabled = enabled
	if _, err := st.UpdateTrigger(cmd.Context(), t); err != nil {
		return fmt.Errorf("update trigger %d: %w", id, err)
	}

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	fmt.Fprintf(os.Stdout, "Trigger %d %s.\n", id, state)
	return nil
}
