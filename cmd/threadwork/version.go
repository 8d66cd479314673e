package main

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/threadwork-cc/threadwork/internal/formatter"
	"github.com/threadwork-cc/threadwork/internal/storage"
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version     string `json:"version" yaml:"version"`
	Commit      string `json:"commit,omitempty" yaml:"commit,omitempty"`
	GoVersion   string `json:"goVersion" yaml:"goVersion"`
	Platform    string `json:"platform" yaml:"platform"`
	StateSchema string `json:"stateSchema" yaml:"stateSchema"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the threadwork version, the commit it was built from, the Go
runtime and the schema version of the state files it writes.

Works outside an initialized project. Honors -o json|yaml.`,
	Args: cobra.NoArgs,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func runVersion(cmd *cobra.Command, args []string) error {
	// No project is opened here, so only the flag selects the format.
	format, err := formatter.ParseFormat(output)
	if err != nil {
		return err
	}
	info := currentBuild()
	return formatter.Write(cmd.OutOrStdout(), format, info, func(w io.Writer) error {
		return printBuildInfo(w, info)
	})
}

func currentBuild() buildInfo {
	info := buildInfo{
		Version:     version,
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		StateSchema: storage.SchemaVersion,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				info.Commit = s.Value
			}
		}
	}
	return info
}

func printBuildInfo(w io.Writer, info buildInfo) error {
	fmt.Fprintf(w, "threadwork version %s\n", info.Version)
	if info.Commit != "" {
		fmt.Fprintf(w, "  Commit: %s\n", info.Commit)
	}
	fmt.Fprintf(w, "  Go version: %s\n", info.GoVersion)
	fmt.Fprintf(w, "  Platform: %s\n", info.Platform)
	_, err := fmt.Fprintf(w, "  State schema: v%s\n", info.StateSchema)
	return err
}
