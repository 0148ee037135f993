package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cardgraph/internal/api"
	"cardgraph/internal/config"
	"cardgraph/internal/sessions"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and edit the global recording settings",
	}

	settingsCmd.AddCommand(newSettingsShowCommand(ctx))
	settingsCmd.AddCommand(newSettingsSetCommand(ctx))

	return settingsCmd
}

func newSettingsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the current settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *sessions.Store) error {
				settings, err := store.GetSettings(cmd.Context())
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, api.SettingsResponse{Settings: settings})
				}
				rows := make([][]string, 0, len(settingsFields))
				for _, field := range settingsFields {
					rows = append(rows, []string{field.name, field.get(settings)})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Setting", "Value"}, rows))
				return nil
			})
		},
	}

	addJSONFlag(cmd, &asJSON)
	return cmd
}

func newSettingsSetCommand(ctx *commandContext) *cobra.Command {
	var updatedBy string

	cmd := &cobra.Command{
		Use:   "set <field>=<value> [<field>=<value> ...]",
		Short: "Change one or more settings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *sessions.Store) error {
				settings, err := store.GetSettings(cmd.Context())
				if err != nil {
					return err
				}
				for _, arg := range args {
					name, value, ok := strings.Cut(arg, "=")
					if !ok {
						return fmt.Errorf("expected field=value, got %q", arg)
					}
					if err := assignSetting(settings, strings.TrimSpace(name), strings.TrimSpace(value)); err != nil {
						return err
					}
				}
				if updatedBy != "" {
					settings.UpdatedBy = updatedBy
				}
				if err := store.ReplaceSettings(cmd.Context(), settings); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated %d setting(s)\n", len(args))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&updatedBy, "updated-by", "", "Operator name to record")
	return cmd
}

// settingsFields maps database column names to struct accessors so show
// and set stay in lockstep.
var settingsFields = []struct {
	name string
	get  func(*sessions.Settings) string
	set  func(*sessions.Settings, string) error
}{
	{"segment_length_minutes", intGetter(func(s *sessions.Settings) *int { return &s.SegmentLengthMinutes }),
		intSetter(func(s *sessions.Settings) *int { return &s.SegmentLengthMinutes })},
	{"sample_rate", strGetter(func(s *sessions.Settings) *string { return &s.SampleRate }),
		strSetter(func(s *sessions.Settings) *string { return &s.SampleRate })},
	{"audio_channels", strGetter(func(s *sessions.Settings) *string { return &s.AudioChannels }),
		strSetter(func(s *sessions.Settings) *string { return &s.AudioChannels })},
	{"audio_format", strGetter(func(s *sessions.Settings) *string { return &s.AudioFormat }),
		strSetter(func(s *sessions.Settings) *string { return &s.AudioFormat })},
	{"silence_threshold_dbfs", intGetter(func(s *sessions.Settings) *int { return &s.SilenceThresholdDBFS }),
		intSetter(func(s *sessions.Settings) *int { return &s.SilenceThresholdDBFS })},
	{"silence_timeout_minutes", intGetter(func(s *sessions.Settings) *int { return &s.SilenceTimeoutMinutes }),
		intSetter(func(s *sessions.Settings) *int { return &s.SilenceTimeoutMinutes })},
	{"max_session_hours", intGetter(func(s *sessions.Settings) *int { return &s.MaxSessionHours }),
		intSetter(func(s *sessions.Settings) *int { return &s.MaxSessionHours })},
	{"max_cpu_cores", intGetter(func(s *sessions.Settings) *int { return &s.MaxCPUCores }),
		intSetter(func(s *sessions.Settings) *int { return &s.MaxCPUCores })},
	{"whisper_model", strGetter(func(s *sessions.Settings) *string { return &s.WhisperModel }),
		strSetter(func(s *sessions.Settings) *string { return &s.WhisperModel })},
	{"priority_mode", strGetter(func(s *sessions.Settings) *string { return &s.PriorityMode }),
		strSetter(func(s *sessions.Settings) *string { return &s.PriorityMode })},
	{"base_archive_dir", strGetter(func(s *sessions.Settings) *string { return &s.BaseArchiveDir }),
		strSetter(func(s *sessions.Settings) *string { return &s.BaseArchiveDir })},
	{"folder_structure", strGetter(func(s *sessions.Settings) *string { return &s.FolderStructure }),
		strSetter(func(s *sessions.Settings) *string { return &s.FolderStructure })},
	{"min_free_disk_gb", intGetter(func(s *sessions.Settings) *int { return &s.MinFreeDiskGB }),
		intSetter(func(s *sessions.Settings) *int { return &s.MinFreeDiskGB })},
	{"acquisition_mode",
		func(s *sessions.Settings) string { return string(s.AcquisitionMode) },
		func(s *sessions.Settings, v string) error {
			s.AcquisitionMode = sessions.AcquisitionMode(v)
			return nil
		}},
	{"audio_retention_days", intGetter(func(s *sessions.Settings) *int { return &s.AudioRetentionDays }),
		intSetter(func(s *sessions.Settings) *int { return &s.AudioRetentionDays })},
}

func assignSetting(settings *sessions.Settings, name, value string) error {
	for _, field := range settingsFields {
		if field.name == name {
			return field.set(settings, value)
		}
	}
	return fmt.Errorf("unknown setting %q", name)
}

func intGetter(ptr func(*sessions.Settings) *int) func(*sessions.Settings) string {
	return func(s *sessions.Settings) string {
		return strconv.Itoa(*ptr(s))
	}
}

func intSetter(ptr func(*sessions.Settings) *int) func(*sessions.Settings, string) error {
	return func(s *sessions.Settings, value string) error {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("expected an integer, got %q", value)
		}
		*ptr(s) = parsed
		return nil
	}
}

func strGetter(ptr func(*sessions.Settings) *string) func(*sessions.Settings) string {
	return func(s *sessions.Settings) string {
		return *ptr(s)
	}
}

func strSetter(ptr func(*sessions.Settings) *string) func(*sessions.Settings, string) error {
	return func(s *sessions.Settings, value string) error {
		*ptr(s) = value
		return nil
	}
}
