// Package catalog provides the static task catalog: a versioned mapping from
// stable task tags to display metadata, loaded once from a declarative YAML
// source. The catalog is immutable after load and safe for unsynchronized
// concurrent reads from fetch workers.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed tasks.yaml
var defaultSource []byte

// Task describes one crawlable task type.
type Task struct {
	Tag         string `yaml:"tag"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Category    string `yaml:"-"`
}

// SortOption describes one listing sort mode the target site understands.
type SortOption struct {
	Value       string `yaml:"value"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Catalog holds the loaded task set. All lookups are read-only.
type Catalog struct {
	tasks map[string]Task
	order []string // tag declaration order across the whole source
	sorts []SortOption
}

// Load builds a Catalog from the embedded default source.
func Load() (*Catalog, error) {
	return parse(defaultSource)
}

// LoadFile builds a Catalog from a YAML file on disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task catalog %s: %w", path, err)
	}
	return parse(data)
}

// parse walks the document as a yaml.Node so category declaration order is
// preserved; a plain map decode would shuffle it.
func parse(data []byte) (*Catalog, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse task catalog: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse task catalog: top level must be a mapping of categories")
	}

	c := &Catalog{tasks: make(map[string]Task)}
	root := doc.Content[0]
	for i := 0; i+1 < len(root.Content); i += 2 {
		category := root.Content[i].Value
		entry := root.Content[i+1]

		if category == "sort_options" {
			if err := entry.Decode(&c.sorts); err != nil {
				return nil, fmt.Errorf("parse sort options: %w", err)
			}
			continue
		}

		var tasks []Task
		if err := entry.Decode(&tasks); err != nil {
			return nil, fmt.Errorf("parse category %q: %w", category, err)
		}
		for _, task := range tasks {
			if task.Tag == "" || task.Name == "" {
				return nil, fmt.Errorf("category %q: task entries need both tag and name", category)
			}
			task.Category = category
			if _, dup := c.tasks[task.Tag]; dup {
				return nil, fmt.Errorf("duplicate task tag %q", task.Tag)
			}
			c.tasks[task.Tag] = task
			c.order = append(c.order, task.Tag)
		}
	}

	if len(c.tasks) == 0 {
		return nil, fmt.Errorf("parse task catalog: no tasks declared")
	}
	return c, nil
}

// ByTag returns the task declared under tag, if any.
func (c *Catalog) ByTag(tag string) (Task, bool) {
	task, ok := c.tasks[tag]
	return task, ok
}

// ByCategory returns the tasks of one category in declaration order.
func (c *Catalog) ByCategory(category string) []Task {
	var tasks []Task
	for _, tag := range c.order {
		if task := c.tasks[tag]; task.Category == category {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

// Search returns tasks whose name, tag, or description contains the keyword,
// case-insensitively, in declaration order.
func (c *Catalog) Search(keyword string) []Task {
	keyword = strings.ToLower(keyword)
	var matches []Task
	for _, tag := range c.order {
		task := c.tasks[tag]
		if strings.Contains(strings.ToLower(task.Name), keyword) ||
			strings.Contains(strings.ToLower(task.Tag), keyword) ||
			strings.Contains(strings.ToLower(task.Description), keyword) {
			matches = append(matches, task)
		}
	}
	return matches
}

// Categories returns the sorted set of declared categories.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var categories []string
	for _, task := range c.tasks {
		if !seen[task.Category] {
			seen[task.Category] = true
			categories = append(categories, task.Category)
		}
	}
	sort.Strings(categories)
	return categories
}

// SortOptions returns the declared sort modes in declaration order.
func (c *Catalog) SortOptions() []SortOption {
	return append([]SortOption(nil), c.sorts...)
}

// Len returns the number of declared tasks.
func (c *Catalog) Len() int {
	return len(c.tasks)
}

// Format renders the full catalog as an indented listing grouped by category,
// for CLI display.
func (c *Catalog) Format() string {
	var b strings.Builder
	for _, category := range c.Categories() {
		fmt.Fprintf(&b, "\n## %s\n", titleCase(category))
		for _, task := range c.ByCategory(category) {
			fmt.Fprintf(&b, "  - %s (%s)\n", task.Name, task.Tag)
			if task.Description != "" {
				fmt.Fprintf(&b, "    %s\n", task.Description)
			}
		}
	}
	if len(c.sorts) > 0 {
		fmt.Fprintf(&b, "\n## Sort Options\n")
		for _, opt := range c.sorts {
			fmt.Fprintf(&b, "  - %s (%s)\n", opt.Name, opt.Value)
			if opt.Description != "" {
				fmt.Fprintf(&b, "    %s\n", opt.Description)
			}
		}
	}
	return b.String()
}

// titleCase converts a snake_case category key to a display heading.
func titleCase(s string) string {
	words := strings.Split(s, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
