package cli

import (
	"fmt"
	"log"

	"group-quiz-bot/internal/config"
	"group-quiz-bot/internal/infra/files"
	"group-quiz-bot/internal/infra/postgres"
	"github.com/spf13/cobra"
)

// NewSeedCmd copies question files into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load question files into the Postgres question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Quiz.QuestionsDir
			}
			ctx := cmd.Context()

			if err := runMigrations(ctx, cfg); err != nil {
				return err
			}
			bank, err := files.NewQuestionLoader(dir).LoadQuestions(ctx)
			if err != nil {
				return err
			}
			if len(bank) == 0 {
				return fmt.Errorf("no questions found in %s", dir)
			}

			db, err := openBun(cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := postgres.NewQuestionSeeder(db).Seed(ctx, bank)
			if err != nil {
				return err
			}
			log.Printf("seeded %d questions across %d subjects from %s", n, len(bank), dir)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "questions directory (defaults to quiz.questions_dir)")
	return cmd
}
