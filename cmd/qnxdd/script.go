package main

import (
	"os"

	"github.com/spf13/cobra"

	"qnxdd/internal/image"
	"qnxdd/internal/ramdisk"
	"qnxdd/internal/rdlog"
)

func newScriptCmd() *cobra.Command {
	var inputFile, scriptFile string

	cmd := &cobra.Command{
		Use:          "script",
		Short:        "Run a ramdisk command script",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := image.LoadFile(inputFile)
			if err != nil {
				return err
			}
			s := &session{
				eng:        ramdisk.Open(img),
				out:        os.Stdout,
				log:        rdlog.New(os.Stderr, rdlog.WarnLevel),
				inputPath:  inputFile,
				scriptMode: true,
			}

			f, err := os.Open(scriptFile)
			if err != nil {
				return err
			}
			defer f.Close()

			return runScript(s, f)
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "input ramdisk file")
	cmd.Flags().StringVarP(&scriptFile, "script", "s", "", "script file")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("script")

	return cmd
}
