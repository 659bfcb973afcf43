package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"qnxdd/internal/ramdisk"
	"qnxdd/internal/rderr"
	"qnxdd/internal/rdlog"
)

// session wraps an Engine with the bits the REPL/script loop needs:
// where to print output, where to log faults, and whether a fault
// should abort (script mode).
type session struct {
	eng        *ramdisk.Engine
	out        io.Writer
	log        *rdlog.Logger
	inputPath  string
	scriptMode bool
}

// logFault records err at the severity its Kind warrants. KindUser and
// KindCapacity are routine operator mistakes (bad name, full disk);
// everything else means the image or the tool itself is in trouble.
func (s *session) logFault(err error) {
	logFault(s.log, err)
}

func logFault(log *rdlog.Logger, err error) {
	if log == nil || err == nil {
		return
	}
	kind, ok := rderr.Of(err)
	if !ok {
		log.Errorf("%v", err)
		return
	}
	switch kind {
	case rderr.KindUser, rderr.KindCapacity:
		log.Warnf("%v", err)
	default:
		log.Errorf("%v", err)
	}
}

// runLine executes a single command line and reports whether the caller
// (script mode) should abort the session.
func (s *session) runLine(line string) (exit bool, fault bool) {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, false
	}

	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "exit":
		return true, false

	case "ls":
		fmt.Fprintf(s.out, "%-8s%-20s%8s%10s\n", "TYPE", "NAME", "SIZE", "OFFSET")
		fmt.Fprintln(s.out, strings.Repeat("-", 46))
		for _, l := range s.eng.Ls() {
			extra := ""
			switch l.Kind.String() {
			case "dir":
				extra = fmt.Sprintf(" CONTAINS: 0x%x FLAGS: 0x%x", l.Contains, l.Flags)
			case "file":
				extra = fmt.Sprintf(" FLAGS: 0x%x", l.Flags)
			}
			fmt.Fprintf(s.out, "%-8s%-20s%8d%10s%s\n", l.Kind, l.Name, l.Size, fmt.Sprintf("0x%x", l.FatOffset), extra)
		}

	case "dump":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "Usage:\n\t'dump <filename>'")
			return false, false
		}
		fmt.Fprintf(s.out, "Attempting to dump '%s'...\n", args[0])
		if err := s.eng.DumpToFile(args[0], args[0]); err != nil {
			fmt.Fprintf(s.out, "Unable to dump %s.\n", args[0])
			s.logFault(err)
			return false, true
		}

	case "cd":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "Usage:\n\t'cd <directory>'\n\t'cd .'\n\t'cd ..'\n\t'cd /'")
			return false, false
		}
		if err := s.eng.Cd(args[0]); err != nil {
			fmt.Fprintln(s.out, "Invalid directory.")
			s.logFault(err)
			return false, true
		}

	case "info":
		info := s.eng.Info()
		fmt.Fprintf(s.out, "%-10s%s\n", "Filename:", s.inputPath)
		fmt.Fprintf(s.out, "%-10s%8d bytes\n", "Size:", info.Size)
		fmt.Fprintf(s.out, "%-10s%8d bytes\n", "Sector:", info.SectorSize)
		fmt.Fprintf(s.out, "%-10s%8d bytes\n", "Free:", info.FreeBytes)
		fmt.Fprintf(s.out, "%-10s%s\n", "Map:", info.SectorMapHex)

	case "rm":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "Usage:\n\t'rm <filename>'")
			return false, false
		}
		if err := s.eng.Rm(args[0]); err != nil {
			fmt.Fprintf(s.out, "Invalid file %s.\n", args[0])
			s.logFault(err)
			return false, true
		}

	case "rmdir":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "Usage:\n\t'rmdir <dirname>'")
			return false, false
		}
		if err := s.eng.Rmdir(args[0]); err != nil {
			fmt.Fprintf(s.out, "Couldn't delete directory %s.\n", args[0])
			s.logFault(err)
			return false, true
		}

	case "inject":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "Usage:\n\t'inject <filename>'")
			return false, false
		}
		if err := s.eng.InjectFile(args[0]); err != nil {
			fmt.Fprintf(s.out, "Error injecting file %s.\n", args[0])
			s.logFault(err)
			return false, true
		}

	case "flags":
		if len(args) < 2 {
			fmt.Fprintln(s.out, "Usage:\n\t'flags <filename> <flag_string>'")
			return false, false
		}
		v, err := strconv.ParseUint(strings.TrimPrefix(args[1], "0x"), 16, 16)
		if err != nil {
			fmt.Fprintf(s.out, "Error setting flags for %s.\n", args[0])
			s.logFault(err)
			return false, true
		}
		if err := s.eng.Flags(args[0], uint16(v)); err != nil {
			fmt.Fprintf(s.out, "Error setting flags for %s.\n", args[0])
			s.logFault(err)
			return false, true
		}

	case "commit":
		if err := s.eng.Commit(s.inputPath); err != nil {
			fmt.Fprintf(s.out, "Unable to write file: %v.\n", err)
			s.logFault(err)
			return false, true
		}

	case "pwd":
		fmt.Fprintln(s.out, s.eng.Pwd())

	case "showfat":
		if len(args) == 0 {
			fmt.Fprintln(s.out, "Usage:\n\t'showfat <entry_name>'")
			return false, false
		}
		hexVal, err := s.eng.Showfat(args[0])
		if err != nil {
			fmt.Fprintf(s.out, "No entry '%s'.\n", args[0])
			s.logFault(err)
			return false, true
		}
		fmt.Fprintf(s.out, "'%s': %s\n", args[0], hexVal)

	case "listfree":
		fmt.Fprintf(s.out, "Free sectors: %v\n", s.eng.Listfree())

	case "welcome":
		fmt.Fprintln(s.out, "QNX Ramdisk Terminal")
		fmt.Fprintln(s.out, "Type 'help' for list of available commands.")

	case "help":
		printHelp(s.out)

	default:
		fmt.Fprintln(s.out, "Invalid command.")
		if s.log != nil {
			s.log.Warnf("invalid command: %s", cmd)
		}
		return false, true
	}

	return false, false
}

func printHelp(w io.Writer) {
	rows := [][2]string{
		{"ls:", "List directory contents."},
		{"cd:", "Change directory."},
		{"rm:", "Remove a file."},
		{"rmdir:", "Remove a directory."},
		{"dump:", "Dump a single file's contents."},
		{"inject:", "Inject a file into the ramdisk."},
		{"flags:", "Set the flags on a file or dir."},
		{"commit:", "Write ramdisk to output file."},
		{"info:", "Print ramdisk information."},
		{"showfat:", "Print the FAT entry for the specified file/dir/link."},
		{"help:", "Display this information."},
		{"exit:", "Exit the utility."},
	}
	for _, r := range rows {
		fmt.Fprintf(w, "%-9s%s\n", r[0], r[1])
	}
}

// runScript drives the session from a line-delimited reader, aborting on
// the first faulting command.
func runScript(s *session, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		exit, fault := s.runLine(strings.TrimSpace(scanner.Text()))
		if fault {
			return rderr.New(rderr.KindUser, "aborted: error executing the provided script")
		}
		if exit {
			return nil
		}
	}
	return scanner.Err()
}
