package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

type versionOutput struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

var versionJSON bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE:  runVersion,
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "output version in JSON format")
	rootCmd.AddCommand(versionCmd)
}

func runVersion(_ *cobra.Command, _ []string) error {
	out := versionOutput{
		Version: Version,
		Commit:  Commit,
		Date:    BuildDate,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}

	if versionJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	version := out.Version
	if len(version) > 0 && version[0] != 'v' {
		version = "v" + version
	}
	fmt.Printf("mockman %s (%s, %s)\n", version, out.Commit, out.Date)
	fmt.Printf("%s %s/%s\n", out.Go, out.OS, out.Arch)
	return nil
}
