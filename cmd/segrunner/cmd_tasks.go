package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"segrunner/pkg/tasks"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List the registered segmentation tasks and their capabilities",
	RunE:  runTasks,
}

func runTasks(cmd *cobra.Command, args []string) error {
	registry := tasks.Default()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTRUCTURES\tFAST\tMULTI-LABEL\tPRE-PASS\tLICENSE\tMODALITIES")
	for _, name := range registry.Names() {
		t, _ := registry.Get(name)
		mods := ""
		for i, m := range t.Modalities {
			if i > 0 {
				mods += ","
			}
			mods += string(m)
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			t.Name, len(t.ClassMap),
			yesNo(t.SupportsFast), yesNo(t.SupportsMultiLabel),
			yesNo(t.RequiresPreSegmentation), yesNo(t.RequiresLicense), mods)
	}
	return w.Flush()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
