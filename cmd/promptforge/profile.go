package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/promptforge/promptforge/internal/config"
	"github.com/promptforge/promptforge/internal/profile"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage context profiles",
	}
	cmd.AddCommand(newProfileListCmd())
	cmd.AddCommand(newProfileCreateCmd())
	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileDeleteCmd())
	return cmd
}

// withStore handles the store open/close boilerplate shared by the profile
// subcommands. CLI invocations keep the logger quiet.
func withStore(fn func(store *profile.Store) error) error {
	cfg := config.FromEnv()
	store, err := openStore(cfg, zap.NewNop().Sugar())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newProfileListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all context profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *profile.Store) error {
				summaries := store.List()
				if len(summaries) == 0 {
					fmt.Println("no profiles")
					return nil
				}
				for _, s := range summaries {
					fmt.Printf("%s\t%s\tv%s\t%d generations\n",
						s.ID, s.Name, s.Version, s.TotalGenerations)
				}
				return nil
			})
		},
	}
}

func newProfileCreateCmd() *cobra.Command {
	var (
		description string
		style       string
		mood        string
		colors      []string
		avoid       []string
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a context profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *profile.Store) error {
				p, err := store.Create(profile.CreateInput{
					Name:        args[0],
					Description: description,
					Context: &profile.Context{
						UserPreferences: profile.UserPreferences{
							Style:        style,
							Mood:         mood,
							ColorPalette: colors,
							Avoid:        avoid,
						},
					},
				})
				if err != nil {
					return err
				}
				fmt.Printf("created %s (v%s)\n", p.Meta.ID, p.Meta.Version)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "profile description")
	cmd.Flags().StringVar(&style, "style", "", "preferred style")
	cmd.Flags().StringVar(&mood, "mood", "", "preferred mood")
	cmd.Flags().StringSliceVar(&colors, "colors", nil, "color palette")
	cmd.Flags().StringSliceVar(&avoid, "avoid", nil, "terms to avoid")
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a profile document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *profile.Store) error {
				p, err := store.Load(args[0])
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("profile not found: %s", args[0])
				}
				data, err := profile.Encode(p)
				if err != nil {
					return err
				}
				fmt.Println(strings.TrimSpace(string(data)))
				return nil
			})
		},
	}
}

func newProfileDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *profile.Store) error {
				if err := store.Delete(args[0]); err != nil {
					return err
				}
				fmt.Printf("deleted %s\n", args[0])
				return nil
			})
		},
	}
}
