package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/promptforge/promptforge/internal/enhance"
	"github.com/promptforge/promptforge/internal/profile"
)

func newEnhanceCmd() *cobra.Command {
	var (
		detailed    bool
		negatives   bool
		separator   string
		advanced    bool
		targetModel string
	)

	cmd := &cobra.Command{
		Use:   "enhance <profile-id> <prompt>",
		Short: "Apply a context profile to a prompt",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *profile.Store) error {
				enhancer := enhance.NewEnhancer(store, zap.NewNop().Sugar())
				result, err := enhancer.EnhanceWithContext(args[1], args[0], enhance.EnhanceOptions{
					Compose: enhance.Options{
						Separator:        separator,
						Detailed:         detailed,
						IncludeNegatives: negatives,
					},
					Advanced:    advanced,
					TargetModel: targetModel,
				})
				if err != nil {
					return err
				}
				fmt.Println(result.EnhancedPrompt)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&detailed, "detailed", false, "use the detailed merge variant")
	cmd.Flags().BoolVar(&negatives, "negatives", false, "append the avoid-list clause")
	cmd.Flags().StringVar(&separator, "separator", "", "clause separator (default \", \")")
	cmd.Flags().BoolVar(&advanced, "advanced", false, "apply the relationship-driven enhancement layer")
	cmd.Flags().StringVar(&targetModel, "target-model", "", "model name for per-model emphasis")
	return cmd
}

func newScoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <profile-id> <prompt>",
		Short: "Score a prompt's compatibility with a profile",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(store *profile.Store) error {
				p, err := store.Load(args[0])
				if err != nil {
					return err
				}
				if p == nil {
					return fmt.Errorf("profile not found: %s", args[0])
				}

				c := enhance.Score(args[1], p)
				fmt.Printf("score: %d/100\n", c.Score)
				for _, m := range c.Matches {
					fmt.Printf("  + %s\n", m)
				}
				for _, m := range c.Conflicts {
					fmt.Printf("  - %s\n", m)
				}
				for _, m := range c.Suggestions {
					fmt.Printf("  ? %s\n", m)
				}
				return nil
			})
		},
	}
}
