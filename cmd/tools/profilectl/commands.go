package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/cvdeck/cv-deck/backend/internal/profileseed"
	"github.com/cvdeck/cv-deck/backend/internal/repository"
	"github.com/cvdeck/cv-deck/backend/internal/service/ai"
	profileService "github.com/cvdeck/cv-deck/backend/internal/service/profile"
)

var errAlreadySeeded = errors.New("profile tables already hold data; pass --replace to overwrite them")

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer repository.Close(db)

			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", a.cfg.Database.Driver)
			return nil
		},
	}
}

func newSeedCmd(a *app) *cobra.Command {
	var (
		file    string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the profile from a YAML document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := profileseed.LoadFile(file)
			if err != nil {
				return err
			}

			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer repository.Close(db)

			repo := repository.NewProfileRepository(db)
			ctx := cmd.Context()
			if !replace {
				empty, err := repo.IsEmpty(ctx)
				if err != nil {
					return err
				}
				if !empty {
					return errAlreadySeeded
				}
			}
			if err := repo.ReplaceAll(ctx, data); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded profile %q: %d skills, %d positions, %d education entries, %d notes\n",
				data.Profile.Name, len(data.Skills), len(data.WorkExperience), len(data.Education), len(data.Notes))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML profile document")
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite existing profile data")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newPromptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the chat agent's system prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer repository.Close(db)

			data, err := profileService.NewService(repository.NewProfileRepository(db)).Load(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ai.BuildSystemPrompt(a.cfg.AI.AgentName, data))
			return nil
		},
	}
}

func newContactsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "List the newest contact submissions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer repository.Close(db)

			records, err := repository.NewContactRepository(db).Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no contact submissions")
				return nil
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				Headers("RECEIVED", "NAME", "EMAIL")
			for _, rec := range records {
				t.Row(rec.CreatedAt.Format(time.RFC3339), rec.Name, rec.Email)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of submissions to show")
	return cmd
}
