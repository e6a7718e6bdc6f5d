package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lukemcguire/hubcrawl/catalog"
	"github.com/lukemcguire/hubcrawl/store"
)

var taskFlags struct {
	file   string
	search string
}

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the known task tags and sort options",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := loadCatalog()
		if err != nil {
			return err
		}

		if taskFlags.search != "" {
			matches := cat.Search(taskFlags.search)
			if len(matches) == 0 {
				return fmt.Errorf("no task matches %q", taskFlags.search)
			}
			for _, task := range matches {
				fmt.Printf("%-32s %s\n", task.Tag, task.Name)
			}
			return nil
		}

		fmt.Print(cat.Format())
		return nil
	},
}

func loadCatalog() (*catalog.Catalog, error) {
	if taskFlags.file != "" {
		cat, err := catalog.LoadFile(taskFlags.file)
		if err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", taskFlags.file, err)
		}
		return cat, nil
	}
	cat, err := catalog.Load()
	if err != nil {
		return nil, fmt.Errorf("load built-in catalog: %w", err)
	}
	return cat, nil
}

var batchesCmd = &cobra.Command{
	Use:   "batches",
	Short: "List previously saved batch files",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := store.New(rootFlags.out)
		if err != nil {
			return err
		}
		paths, err := s.ListBatches()
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			fmt.Printf("no batches under %s\n", s.Root())
			return nil
		}
		for _, path := range paths {
			fmt.Println(path)
		}
		return nil
	},
}

func init() {
	tasksCmd.Flags().StringVar(&taskFlags.file, "file", "", "load the catalog from a YAML file instead of the built-in set")
	tasksCmd.Flags().StringVar(&taskFlags.search, "search", "", "filter tasks by keyword")
}
