package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lshigami/bandscore/database"
	"github.com/lshigami/bandscore/internal/dto"
	"github.com/lshigami/bandscore/internal/service"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(database.Migrate)
		},
	}
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import exams from JSON files",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := cmd.Flags().GetStringSlice("file")
			if err != nil {
				return err
			}
			return runTask(func(db *gorm.DB, importer service.ExamImportService) error {
				if err := database.Migrate(db); err != nil {
					return err
				}
				for _, file := range files {
					if err := seedFile(cmd.Context(), importer, file); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringSliceP("file", "f", nil, "Exam JSON file (repeatable)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func seedFile(ctx context.Context, importer service.ExamImportService, file string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("reading %s: %w", file, err)
	}
	var req dto.ExamImportDTO
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parsing %s: %w", file, err)
	}
	exam, err := importer.ImportExam(ctx, req)
	if err != nil {
		return fmt.Errorf("importing %s: %w", file, err)
	}
	log.Info().Str("file", file).Uint("examID", exam.ID).Str("title", exam.Title).Msg("Exam seeded")
	return nil
}

func expireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Complete every in-progress attempt whose deadline has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTask(func(attempts service.AttemptService) error {
				n, err := attempts.ExpireOverdue(cmd.Context())
				log.Info().Int("expired", n).Msg("Expire sweep finished")
				return err
			})
		},
	}
}
