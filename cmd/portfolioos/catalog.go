package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"portfolioos/internal/catalog"
	"portfolioos/internal/config"
)

var (
	catalogPath  string
	listCategory string
	syncOutput   string
	syncTimeout  time.Duration
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and maintain the project catalog",
	Long: `Work with the project catalog served on the portfolio page.

Without --catalog the default locations are searched for catalog.yaml:
./catalog.yaml, ./config/catalog.yaml and /etc/portfolioos/catalog.yaml.
When none exists the built-in catalog is used.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadEnvFile(envFile)
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog projects",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a catalog file",
	Long:  `Validate a catalog file and report every problem found, not only the first.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCatalogValidate,
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Refresh repository metadata from GitHub",
	Long: `Fetch stars, topics, description and URL from GitHub for every project
that has a repo, and print the updated catalog as YAML.

Set GITHUB_TOKEN to use the authenticated API rate limit.`,
	Example: `  portfolioos catalog sync -o catalog.yaml`,
	Args:    cobra.NoArgs,
	RunE:    runCatalogSync,
}

func init() {
	catalogCmd.PersistentFlags().StringVarP(&catalogPath, "catalog", "c", "", "Path to catalog.yaml (default $CATALOG_FILE)")

	catalogListCmd.Flags().StringVar(&listCategory, "category", "", "Only list projects in this category")

	catalogSyncCmd.Flags().StringVarP(&syncOutput, "output", "o", "", "Write the updated catalog to this file instead of stdout")
	catalogSyncCmd.Flags().DurationVar(&syncTimeout, "timeout", 30*time.Second, "Overall timeout for GitHub requests")

	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogValidateCmd)
	catalogCmd.AddCommand(catalogSyncCmd)
}

// catalogFlagOrEnv returns --catalog, falling back to CATALOG_FILE.
func catalogFlagOrEnv() string {
	if catalogPath != "" {
		return catalogPath
	}
	return os.Getenv("CATALOG_FILE")
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	registry, source, err := loadCatalog(catalogFlagOrEnv())
	if err != nil {
		return err
	}

	projects := registry.Filter(listCategory)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Catalog: %s (%d projects)\n\n", source, registry.Count())

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tYEAR\tSTARS\tSTACK")
	for _, p := range projects {
		year := "-"
		if p.Year > 0 {
			year = fmt.Sprint(p.Year)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.ID, p.Title, p.Category, year, p.Stars, strings.Join(p.Stack, ", "))
	}
	return w.Flush()
}

func runCatalogValidate(cmd *cobra.Command, args []string) error {
	path := catalogFlagOrEnv()
	if len(args) == 1 {
		path = args[0]
	}

	registry, source, err := loadCatalog(path)
	if err != nil {
		return err
	}
	if source == "built-in" {
		return fmt.Errorf("no catalog file found; pass a path or --catalog")
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d projects, categories: %s)\n",
		source, registry.Count(), strings.Join(registry.Categories(), ", "))
	return nil
}

func runCatalogSync(cmd *cobra.Command, args []string) error {
	registry, source, err := loadCatalog(catalogFlagOrEnv())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), syncTimeout)
	defer cancel()

	client := catalog.NewGitHubClient(ctx, os.Getenv("GITHUB_TOKEN"))
	projects, results, syncErr := catalog.Sync(ctx, client.Repositories, registry.All())

	report := cmd.ErrOrStderr()
	fmt.Fprintf(report, "Syncing %s\n", source)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(report, "  ✗ %s (%s): %v\n", r.ID, r.Repo, r.Err)
			continue
		}
		fmt.Fprintf(report, "  ✓ %s (%s)\n", r.ID, r.Repo)
	}
	if len(results) == 0 {
		fmt.Fprintln(report, "  no projects with a repo")
	}

	out := cmd.OutOrStdout()
	if syncOutput != "" {
		file, err := os.Create(syncOutput)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	if err := catalog.Write(out, registry.Profile(), projects); err != nil {
		return err
	}

	if syncErr != nil {
		return fmt.Errorf("sync finished with errors: %w", syncErr)
	}
	return nil
}
