package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HammerMeetNail/dailydoodle/internal/models"
	"github.com/HammerMeetNail/dailydoodle/internal/services"
)

// themeFile is the import format:
//
//	themes:
//	  - title: Boats
//	    date: "2024-06-01"
//	    active: true
type themeFile struct {
	Themes []themeEntry `yaml:"themes"`
}

type themeEntry struct {
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	Date            string   `yaml:"date"`
	Active          bool     `yaml:"active"`
	ReferenceImages []string `yaml:"reference_images"`
}

func (e themeEntry) params() models.CreateThemeParams {
	return models.CreateThemeParams{
		Title:           e.Title,
		Description:     e.Description,
		Date:            e.Date,
		IsActive:        e.Active,
		ReferenceImages: e.ReferenceImages,
	}
}

func newThemesCmd(env *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "List and schedule daily themes",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List every theme by date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withStore(cmd, func(ctx context.Context, s *store) error {
				themes, err := s.themes.List(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tACTIVE\tTITLE\tID")
				for _, t := range themes {
					fmt.Fprintf(tw, "%s\t%t\t%s\t%s\n", t.Date, t.IsActive, t.Title, t.ID)
				}
				return tw.Flush()
			})
		},
	}

	var entry themeEntry
	create := &cobra.Command{
		Use:   "create",
		Short: "Schedule a theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return env.withStore(cmd, func(ctx context.Context, s *store) error {
				theme, err := s.themes.Create(ctx, entry.params())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created theme %s for %s\n", theme.ID, theme.Date)
				return nil
			})
		},
	}
	create.Flags().StringVar(&entry.Title, "title", "", "Theme title")
	create.Flags().StringVar(&entry.Description, "description", "", "Theme description")
	create.Flags().StringVar(&entry.Date, "date", "", "Theme date (YYYY-MM-DD)")
	create.Flags().BoolVar(&entry.Active, "active", false, "Publish the theme")
	create.Flags().StringSliceVar(&entry.ReferenceImages, "ref", nil, "Reference image URL (repeatable)")
	_ = create.MarkFlagRequired("title")
	_ = create.MarkFlagRequired("date")

	importCmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Schedule every theme listed in a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readThemeFile(args[0])
			if err != nil {
				return err
			}
			for i, e := range entries {
				if _, err := services.ValidateThemeParams(e.params()); err != nil {
					return fmt.Errorf("theme %d (%q): %w", i+1, e.Title, err)
				}
			}
			return env.withStore(cmd, func(ctx context.Context, s *store) error {
				for _, e := range entries {
					if _, err := s.themes.Create(ctx, e.params()); err != nil {
						return fmt.Errorf("creating %q: %w", e.Title, err)
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d themes\n", len(entries))
				return nil
			})
		},
	}

	cmd.AddCommand(list, create, importCmd, newSetActiveCmd(env, "activate", true), newSetActiveCmd(env, "deactivate", false))
	return cmd
}

func newSetActiveCmd(env *cliEnv, use string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: fmt.Sprintf("Set a theme's active flag to %t", active),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid theme id %q", args[0])
			}
			return env.withStore(cmd, func(ctx context.Context, s *store) error {
				theme, err := s.themes.SetActive(ctx, id, active)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "theme %s (%s) active=%t\n", theme.ID, theme.Date, theme.IsActive)
				return nil
			})
		},
	}
}

func readThemeFile(path string) ([]themeEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading theme file: %w", err)
	}
	var file themeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing theme file: %w", err)
	}
	if len(file.Themes) == 0 {
		return nil, fmt.Errorf("no themes in %s", path)
	}
	return file.Themes, nil
}
