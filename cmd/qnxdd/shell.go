package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"qnxdd/internal/image"
	"qnxdd/internal/ramdisk"
	"qnxdd/internal/rdlog"
)

func newShellCmd() *cobra.Command {
	var inputFile string

	cmd := &cobra.Command{
		Use:          "shell",
		Short:        "Interactive ramdisk shell",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := image.LoadFile(inputFile)
			if err != nil {
				return err
			}
			s := &session{
				eng:       ramdisk.Open(img),
				out:       os.Stdout,
				log:       rdlog.New(os.Stderr, rdlog.WarnLevel),
				inputPath: inputFile,
			}

			fmt.Fprintln(s.out, "QNX Ramdisk Terminal")
			fmt.Fprintln(s.out, "Type 'help' for list of available commands.")

			interactive := isatty.IsTerminal(os.Stdin.Fd())
			in := bufio.NewScanner(os.Stdin)
			for {
				if interactive {
					fmt.Fprintf(s.out, "ramdisk:%s$ ", s.eng.Pwd())
				}
				if !in.Scan() {
					break
				}
				exit, _ := s.runLine(strings.TrimSpace(in.Text()))
				if exit {
					break
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "input ramdisk file")
	cmd.MarkFlagRequired("input")

	return cmd
}
