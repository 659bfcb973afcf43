// Command qnxdd manipulates RD_v1.2 ramdisks extracted from a QNX 4.05
// Demodisk boot image: an interactive shell, a script runner, and a
// couple of standalone helpers for the surrounding XOR/boot-stage
// container.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"qnxdd/internal/rdlog"
	"qnxdd/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logFault(rdlog.New(os.Stderr, rdlog.WarnLevel), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "qnxdd",
		Short:   "qnxdd - QNX Demodisk ramdisk utility",
		Version: version.Get().String(),
	}

	root.AddCommand(newShellCmd())
	root.AddCommand(newScriptCmd())
	root.AddCommand(newXorCmd())
	root.AddCommand(newUnpackCmd())
	root.AddCommand(newRepackCmd())

	return root
}
