package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"qnxdd/internal/enigma"
	"qnxdd/internal/xorcipher"
)

// Fixed offsets within a QNX Demodisk boot image: everything before
// dataOffset is the untouched stage 1/2 bootloader; everything from
// dataOffset onward is XOR-obfuscated, and within the deciphered region
// the third-stage bootloader starts at bootloaderOffset while the
// RD_v1.2 ramdisk itself starts at ramdiskOffset.
const (
	dataOffset       = 0xc00
	bootloaderOffset = 0x80
	ramdiskOffset    = 0x2e000
)

func newXorCmd() *cobra.Command {
	var inFile, outFile string

	cmd := &cobra.Command{
		Use:          "xor",
		Short:        "Apply the involutive demodisk XOR cipher to a file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(inFile)
			if err != nil {
				return err
			}
			return os.WriteFile(outFile, xorcipher.Apply(data), 0o644)
		},
	}
	cmd.Flags().StringVarP(&inFile, "input", "i", "", "input file")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "output file")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func newUnpackCmd() *cobra.Command {
	var inFile, workDir string

	cmd := &cobra.Command{
		Use:          "unpack",
		Short:        "Split a demodisk image into its boot stages and ramdisk",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(workDir, 0o755); err != nil {
				return err
			}

			raw, err := os.ReadFile(inFile)
			if err != nil {
				return err
			}
			if len(raw) < dataOffset {
				return fmt.Errorf("image shorter than boot data offset")
			}

			if err := os.WriteFile(filepath.Join(workDir, "boot_stage_1_and_2.bin"), raw[:dataOffset], 0o644); err != nil {
				return err
			}

			deciphered := xorcipher.Apply(raw[dataOffset:])
			if err := os.WriteFile(filepath.Join(workDir, "deciphered.bin"), deciphered, 0o644); err != nil {
				return err
			}

			if len(deciphered) > bootloaderOffset {
				decompressed, err := enigma.Decode(deciphered[bootloaderOffset:])
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: couldn't decode stage 3 bootloader: %v\n", err)
				} else if err := os.WriteFile(filepath.Join(workDir, "boot_stage_3.bin"), decompressed, 0o644); err != nil {
					return err
				}
			}

			if len(deciphered) < ramdiskOffset {
				return fmt.Errorf("deciphered image shorter than ramdisk offset")
			}
			return os.WriteFile(filepath.Join(workDir, "boot_fs.ramdisk"), deciphered[ramdiskOffset:], 0o644)
		},
	}
	cmd.Flags().StringVarP(&inFile, "input", "i", "", "input demodisk image")
	cmd.Flags().StringVarP(&workDir, "dir", "w", "", "working directory")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("dir")
	return cmd
}

func newRepackCmd() *cobra.Command {
	var workDir, outFile string

	cmd := &cobra.Command{
		Use:          "repack",
		Short:        "Reassemble a demodisk image from a working directory",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := os.ReadFile(filepath.Join(workDir, "boot_stage_1_and_2.bin"))
			if err != nil {
				return err
			}

			deciphered, err := os.ReadFile(filepath.Join(workDir, "deciphered.bin"))
			if err != nil {
				return err
			}
			if len(deciphered) < ramdiskOffset {
				return fmt.Errorf("deciphered.bin shorter than ramdisk offset")
			}

			ramdisk, err := os.ReadFile(filepath.Join(workDir, "boot_fs.ramdisk"))
			if err != nil {
				return err
			}

			recipher := append(append([]byte{}, deciphered[:ramdiskOffset]...), ramdisk...)
			out := append(append([]byte{}, stages...), xorcipher.Apply(recipher)...)

			return os.WriteFile(outFile, out, 0o644)
		},
	}
	cmd.Flags().StringVarP(&workDir, "dir", "w", "", "working directory")
	cmd.Flags().StringVarP(&outFile, "output", "o", "", "output demodisk image")
	cmd.MarkFlagRequired("dir")
	cmd.MarkFlagRequired("output")
	return cmd
}
