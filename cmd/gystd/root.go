package main

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"GYST-Loop/internal/config"
	"GYST-Loop/internal/narrative"
)

var defaultConfigPath = filepath.Join("configs", "gyst.json")

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           "gystd",
		Short:         "Serve and simulate the GYST scroll narrative",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to the JSON config (default $GYST_CONFIG or configs/gyst.json)")

	load := func() (*config.Config, error) { return loadConfig(configPath) }
	root.AddCommand(newServeCmd(load), newFrameCmd(load), newSimulateCmd(load))
	return root
}

// loadConfig 依次使用 --config、GYST_CONFIG 与默认路径；默认文件不存在时使用内置默认值。
func loadConfig(flagPath string) (*config.Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	if path != "" {
		return config.Load(path)
	}
	if _, err := os.Stat(defaultConfigPath); errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return config.Load(defaultConfigPath)
}

// timelineFor 读取配置中的时间轴文件并应用完成阈值。
func timelineFor(cfg *config.Config) (narrative.Timeline, error) {
	tl := narrative.DefaultTimeline()
	if cfg.Narrative.TimelinePath != "" {
		loaded, err := narrative.LoadTimeline(cfg.Narrative.TimelinePath)
		if err != nil {
			return narrative.Timeline{}, err
		}
		tl = loaded
	}
	if cfg.Narrative.CompletionThreshold > 0 {
		tl.Completion = cfg.Narrative.CompletionThreshold
	}
	return tl, tl.Validate()
}
