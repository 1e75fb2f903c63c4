package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"proteinagent/matcher"
	"proteinagent/nutrition"

	"github.com/spf13/cobra"
)

var foodsCmd = &cobra.Command{
	Use:   "foods [query]",
	Short: "List reference foods, or search them",
	Long: `Without arguments, lists every reference food with its protein density and
portions. With a query, shows the ranked matches the pipeline would consider.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFoods,
}

func init() {
	foodsCmd.Flags().String("category", "", "only list foods in this category")
}

func runFoods(cmd *cobra.Command, args []string) error {
	table := nutrition.Default()
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 1 {
		fmt.Fprintln(w, "FOOD ID\tNAME\tSCORE")
		for _, c := range matcher.New(table).Search(args[0]) {
			fmt.Fprintf(w, "%s\t%s\t%.2f\n", c.Entry.ID, c.Entry.DisplayName, c.Score)
		}
		return nil
	}

	category, _ := cmd.Flags().GetString("category")
	fmt.Fprintln(w, "FOOD ID\tNAME\tCATEGORY\tPROTEIN/100G\tPORTIONS")
	for _, e := range table.Entries() {
		if category != "" && string(e.Category) != category {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\n",
			e.ID, e.DisplayName, e.Category, e.ProteinPer100g, strings.Join(e.PortionLabels(), ", "))
	}
	return nil
}
