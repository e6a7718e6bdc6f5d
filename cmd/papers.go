package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lukemcguire/hubcrawl/harvest"
)

var paperFlags struct {
	baseURL   string
	area      string
	query     string
	sort      string
	listAreas bool
}

var papersCmd = &cobra.Command{
	Use:   "papers",
	Short: "Harvest paper records from the papers index",
	Long: `Fetches the papers index front page (trending), a research area
listing, or a keyword search, and extracts one record per paper card. With
--details each paper's page is fetched for its abstract, repositories, and
implementation table.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if paperFlags.listAreas {
			for _, area := range harvest.ResearchAreas() {
				fmt.Println(area)
			}
			return nil
		}

		if paperFlags.area != "" && !harvest.ValidArea(paperFlags.area) {
			return fmt.Errorf("unknown research area %q; valid areas: %s",
				paperFlags.area, strings.Join(harvest.ResearchAreas(), ", "))
		}

		return runHarvest(harvest.NewPaperIndex(paperFlags.baseURL), harvest.Target{
			Task:  paperFlags.area,
			Sort:  paperFlags.sort,
			Query: paperFlags.query,
			TopK:  rootFlags.top,
		})
	},
}

func init() {
	f := papersCmd.Flags()
	f.StringVar(&paperFlags.baseURL, "base-url", "https://paperswithcode.com", "papers index base URL")
	f.StringVarP(&paperFlags.area, "area", "a", "", "research area slug (empty crawls the trending front page)")
	f.StringVarP(&paperFlags.query, "query", "q", "", "keyword search instead of an area listing")
	f.StringVarP(&paperFlags.sort, "sort", "s", "trending", "listing order: trending or newest")
	f.BoolVar(&paperFlags.listAreas, "list-areas", false, "print the known research areas and exit")
}
