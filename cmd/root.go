package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"promogen/settings"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:           "promogen",
	Short:         "宣传图生成服务",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, ".env 文件路径，可重复指定，缺省时读取当前目录的 .env")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// Execute main.go 的唯一入口
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*settings.Config, error) {
	return settings.Load(envFiles...)
}
