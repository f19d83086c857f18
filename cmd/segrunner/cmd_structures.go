package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"segrunner/pkg/tasks"
	"segrunner/pkg/terminology"
)

var structuresTask string

var structuresCmd = &cobra.Command{
	Use:   "structures",
	Short: "List a task's structures with their terminology codes",
	RunE:  runStructures,
}

func init() {
	structuresCmd.Flags().StringVarP(&structuresTask, "task", "t", tasks.DefaultTaskName, "task to list")
}

func runStructures(cmd *cobra.Command, args []string) error {
	registry := tasks.Default()
	task, ok := registry.Get(structuresTask)
	if !ok {
		return fmt.Errorf("unknown task %q", structuresTask)
	}

	terms, err := terminology.Load()
	if err != nil {
		return err
	}

	labels := make([]int, 0, len(task.ClassMap))
	for l := range task.ClassMap {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tSTRUCTURE\tCODE\tMEANING")
	for _, label := range labels {
		name := task.ClassMap[label]
		code, meaning := "-", "-"
		if entry, ok := terms.Lookup(name); ok {
			code = entry.Type.Scheme + ":" + entry.Type.Value
			meaning = entry.Type.Meaning
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", label, name, code, meaning)
	}
	return w.Flush()
}
