package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/freeslot/internal/config"
)

func (a *App) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `Interactive configuration management.

If no config file exists, creates one with default values.
Otherwise, displays current config and allows editing.

Example:
  freeslot config`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), config.DefaultConfigPath())
		},
	}
}

func runConfigInteractive(in io.Reader, w io.Writer, configPath string) error {
	fmt.Fprintf(w, "Config file: %s\n\n", configPath)

	// Load existing config or create defaults
	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Check if file exists
	_, fileErr := os.Stat(configPath)
	isNew := os.IsNotExist(fileErr)

	if isNew {
		fmt.Fprintln(w, "No config file found. Creating with default values...")
		if err := cfg.SaveTo(configPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(w, "Created %s\n\n", configPath)
	}

	// Display current config
	printConfig(w, cfg)

	reader := bufio.NewReader(in)

	// Ask if user wants to edit
	if !promptYesNo(reader, w, "\nWould you like to edit the configuration?") {
		return nil
	}

	// Interactive editing
	s := &cfg.Search
	s.PreferStartHour = promptInt(reader, w, "Preferred start hour (0-23)", s.PreferStartHour)
	s.PreferEndHour = promptInt(reader, w, "Preferred end hour (1-24, exclusive)", s.PreferEndHour)
	s.Workdays = promptSlice(reader, w, "Workdays (comma-separated)", s.Workdays)
	s.RangeDays = promptInt(reader, w, "Search range in days", s.RangeDays)
	s.PadDays = promptInt(reader, w, "Days either side replaced on rebooking", s.PadDays)
	cfg.Calendar.Provider = promptValue(reader, w, "Calendar provider (sqlite, ics, memory)", cfg.Calendar.Provider)
	if cfg.Calendar.Provider == config.ProviderICS {
		cfg.Calendar.ICSDir = promptValue(reader, w, "Calendar directory", cfg.Calendar.ICSDir)
	}
	cfg.Calendar.DefaultCalendar = promptValue(reader, w, "Default calendar", cfg.Calendar.DefaultCalendar)
	cfg.Storage.DBPath = promptValue(reader, w, "Database path", cfg.Storage.DBPath)

	// Validate before saving
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Save
	if err := cfg.SaveTo(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(w, "\nConfiguration saved!")
	return nil
}

func printConfig(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Current configuration:")
	fmt.Fprintln(w, "──────────────────────")
	fmt.Fprintln(w, "[search]")
	fmt.Fprintf(w, "  prefer_start_hour   = %d\n", cfg.Search.PreferStartHour)
	fmt.Fprintf(w, "  prefer_end_hour     = %d\n", cfg.Search.PreferEndHour)
	fmt.Fprintf(w, "  workdays            = %s\n", strings.Join(cfg.Search.Workdays, ", "))
	fmt.Fprintf(w, "  range_days          = %d\n", cfg.Search.RangeDays)
	fmt.Fprintf(w, "  pad_days            = %d\n", cfg.Search.PadDays)
	fmt.Fprintf(w, "  count_partial_hours = %t\n", cfg.Search.CountPartialHours)
	fmt.Fprintln(w, "\n[calendar]")
	fmt.Fprintf(w, "  provider            = %s\n", cfg.Calendar.Provider)
	if cfg.Calendar.Provider == config.ProviderICS {
		fmt.Fprintf(w, "  ics_dir             = %s\n", cfg.Calendar.ICSDir)
	}
	fmt.Fprintf(w, "  default_calendar    = %s\n", cfg.Calendar.DefaultCalendar)
	fmt.Fprintf(w, "  access              = %s\n", cfg.Calendar.Access)
	fmt.Fprintln(w, "\n[storage]")
	fmt.Fprintf(w, "  db_path             = %s\n", cfg.Storage.DBPath)
	fmt.Fprintln(w, "\n[log]")
	fmt.Fprintf(w, "  level               = %s\n", cfg.Log.Level)
}

func promptYesNo(reader *bufio.Reader, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", question)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func promptValue(reader *bufio.Reader, w io.Writer, label, current string) string {
	if current == "" {
		fmt.Fprintf(w, "  %s: ", label)
	} else {
		fmt.Fprintf(w, "  %s [%s]: ", label, current)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}

func promptInt(reader *bufio.Reader, w io.Writer, label string, current int) int {
	for {
		value := promptValue(reader, w, label, strconv.Itoa(current))
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
		fmt.Fprintf(w, "  Invalid number %q.\n", value)
	}
}

func promptSlice(reader *bufio.Reader, w io.Writer, label string, current []string) []string {
	currentStr := strings.Join(current, ", ")
	fmt.Fprintf(w, "  %s [%s]: ", label, currentStr)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
