package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lukemcguire/hubcrawl/catalog"
	"github.com/lukemcguire/hubcrawl/harvest"
)

var modelFlags struct {
	baseURL string
	task    string
	query   string
	sort    string
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Harvest model records from the model hub",
	Long: `Fetches the hub's model listing filtered by task tag (or a keyword
search) and extracts one record per model card. With --details each model's
own page is fetched concurrently for its card text, metadata, and files.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if modelFlags.task == "" && modelFlags.query == "" {
			return fmt.Errorf("either --task or --query is required; see 'hubcrawl tasks' for valid tags")
		}

		cat, err := catalog.Load()
		if err != nil {
			return fmt.Errorf("load task catalog: %w", err)
		}
		if modelFlags.task != "" {
			if _, ok := cat.ByTag(modelFlags.task); !ok {
				return fmt.Errorf("unknown task tag %q; run 'hubcrawl tasks' to list valid tags%s",
					modelFlags.task, suggestTasks(cat, modelFlags.task))
			}
		}

		return runHarvest(harvest.NewModelHub(modelFlags.baseURL), harvest.Target{
			Task:  modelFlags.task,
			Sort:  modelFlags.sort,
			Query: modelFlags.query,
			TopK:  rootFlags.top,
		})
	},
}

// suggestTasks offers close matches for a mistyped tag.
func suggestTasks(cat *catalog.Catalog, tag string) string {
	matches := cat.Search(tag)
	if len(matches) == 0 {
		return ""
	}
	tags := make([]string, 0, min(len(matches), 3))
	for _, task := range matches[:min(len(matches), 3)] {
		tags = append(tags, task.Tag)
	}
	return fmt.Sprintf(" (did you mean %s?)", strings.Join(tags, ", "))
}

func init() {
	f := modelsCmd.Flags()
	f.StringVar(&modelFlags.baseURL, "base-url", "https://hf-mirror.com", "model hub base URL")
	f.StringVarP(&modelFlags.task, "task", "t", "", "task tag to filter by (see 'hubcrawl tasks')")
	f.StringVarP(&modelFlags.query, "query", "q", "", "keyword search instead of a task filter")
	f.StringVarP(&modelFlags.sort, "sort", "s", "trending", "listing sort order, passed through to the hub")
}
