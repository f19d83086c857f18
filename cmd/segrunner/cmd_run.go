package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"segrunner/pkg/config"
	"segrunner/pkg/pipeline"
	"segrunner/pkg/scene"
	"segrunner/pkg/tasks"
	"segrunner/pkg/terminology"
)

var runFlags struct {
	input      string
	configPath string
	executable string
	task       string
	fast       bool
	fastest    bool
	cpu        bool
	subset     []string
	statsOut   string
	previewDir string
	keepTemp   bool
	verbose    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Segment an input volume and import the result",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.input, "input", "i", "", "input NIfTI volume (required)")
	f.StringVar(&runFlags.configPath, "config", "", "YAML configuration file")
	f.StringVar(&runFlags.executable, "executable", "", "segmentation tool executable (overrides config)")
	f.StringVarP(&runFlags.task, "task", "t", "", "segmentation task (default from config)")
	f.BoolVar(&runFlags.fast, "fast", false, "use the low-resolution fast model")
	f.BoolVar(&runFlags.fastest, "fastest", false, "use the 6mm model")
	f.BoolVar(&runFlags.cpu, "cpu", false, "force CPU-only execution")
	f.StringSliceVar(&runFlags.subset, "subset", nil, "restrict the run to these structures")
	f.StringVar(&runFlags.statsOut, "stats-out", "", "write per-segment statistics JSON to this path")
	f.StringVar(&runFlags.previewDir, "preview-dir", "", "write preview slices to this directory")
	f.BoolVar(&runFlags.keepTemp, "keep-temp", false, "keep the temporary run directory")
	f.BoolVarP(&runFlags.verbose, "verbose", "v", false, "enable debug logging")
	runCmd.MarkFlagRequired("input")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(runFlags.configPath)
	if err != nil {
		return err
	}

	registry := tasks.Default()
	terms, err := terminology.Load()
	if err != nil {
		return err
	}

	runCfg := pipeline.RunConfig{
		Executable:              cfg.Tool.Executable,
		Task:                    cfg.Defaults.Task,
		Fast:                    cfg.Defaults.Fast,
		LicenseConfigured:       cfg.Tool.LicenseKey != "",
		UseStandardSegmentNames: cfg.Defaults.UseStandardSegmentNames,
		ClearOutputFolder:       cfg.Output.ClearOutputFolder && !runFlags.keepTemp,
		KeepTempOnError:         cfg.Output.KeepTempOnError || runFlags.keepTemp,
		Statistics:              cfg.Output.Statistics,
		PreviewDir:              cfg.Output.PreviewDir,
	}
	if runFlags.executable != "" {
		runCfg.Executable = runFlags.executable
	}
	if runFlags.task != "" {
		runCfg.Task = runFlags.task
	}
	if runFlags.fast {
		runCfg.Fast = true
	}
	runCfg.Fastest = runFlags.fastest
	runCfg.CPU = runFlags.cpu || cfg.Tool.Device == "cpu"
	runCfg.Subset = runFlags.subset
	if runFlags.statsOut != "" {
		runCfg.Statistics = true
		runCfg.StatisticsPath = runFlags.statsOut
	}
	if runFlags.previewDir != "" {
		runCfg.PreviewDir = runFlags.previewDir
	}

	sink := scene.NewMemorySink()
	p := pipeline.New(registry, terms, sink, func(line string) {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	})
	if runFlags.verbose {
		p.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	result, err := p.RunFile(cmd.Context(), runFlags.input, runCfg)
	if err != nil {
		return err
	}

	res := sink.Result(result.Handle)
	fmt.Fprintf(cmd.OutOrStdout(), "\nImported %d segments into %q:\n", len(res.Segments), res.Name)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LABEL\tNAME\tVOXELS\tTAGGED")
	for _, s := range res.Segments {
		tagged := "no"
		if s.Terminology != "" {
			tagged = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", s.Label, s.Name, s.VoxelCount, tagged)
	}
	w.Flush()

	if result.TempDir != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Temporary files kept at %s\n", result.TempDir)
	}
	return nil
}
