// Package cmd defines the sagefy command line interface.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagefy-edu/sagefy/internal/log"
)

var (
	flagDebug bool
	flagJSON  bool
)

var rootCmd = &cobra.Command{
	Use:   "sagefy",
	Short: "Sagefy - assistente de estudos com RAG",
	Long: `Sagefy é um assistente de curso baseado em RAG.

Ele indexa materiais de aula em um banco vetorial e responde perguntas
de alunos usando apenas o conteúdo indexado, respeitando o escopo de
cada turma.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from the global flags.
func newLogger() log.Logger {
	level := slog.LevelInfo
	if flagDebug {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level, JSON: flagJSON})
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "log in JSON format")
}
