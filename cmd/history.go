package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/yz4230/dpw-deploy/internal/config"
	"github.com/yz4230/dpw-deploy/internal/entity"
	"github.com/yz4230/dpw-deploy/internal/usecase"
)

func newHistoryCmd(a *app) *cobra.Command {
	var flags struct {
		dir   string
		limit int
	}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent deployments",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.LoadHistoryPath(a.viper)
			if path != "" && !fileExists(path) {
				fmt.Fprintln(cmd.OutOrStdout(), "No deployments recorded.")
				return nil
			}
			injectDependencies(a.injector, cmd.OutOrStdout(), path)
			uc, err := do.Invoke[usecase.ListDeploymentsUsecase](a.injector)
			if err != nil {
				return err
			}

			dir := flags.dir
			if dir != "" {
				dir = lo.Must(filepath.Abs(dir))
			}
			deps, err := uc.Execute(cmd.Context(), dir, flags.limit)
			if err != nil {
				return fmt.Errorf("list deployments: %w", err)
			}
			if len(deps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No deployments recorded.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(deps))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.dir, "dir", "", "Only show deployments of this directory")
	cmd.Flags().IntVarP(&flags.limit, "limit", "n", usecase.DefaultListLimit, "Maximum number of deployments to show")
	return cmd
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func renderHistory(deps []*entity.Deployment) string {
	dash := func(s string) string { return lo.Ternary(s == "", "-", s) }
	rows := lo.Map(deps, func(d *entity.Deployment, _ int) []string {
		return []string{
			d.ID.String(),
			d.CreatedAt.Local().Format(time.DateTime),
			d.Dir,
			d.Branch,
			dash(d.ShortSHA()),
			string(d.Status),
			dash(d.FailedStep),
		}
	})
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "STARTED", "DIR", "BRANCH", "COMMIT", "STATUS", "FAILED STEP").
		Rows(rows...).
		Render()
}
