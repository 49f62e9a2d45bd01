package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/karasz/gtscale/tai64"
	"github.com/karasz/gtscale/timescale"
)

// labelToUTC converts the label of the given length at atpos, if there is
// a valid one.
func labelToUTC(conv *timescale.Converter, working string, atpos int, length int) (string, bool) {
	if len(working) < atpos+length {
		return working, false
	}
	lbl := working[atpos : atpos+length]
	l, err := tai64.Parse(lbl)
	if err != nil {
		return working, false
	}
	t, err := timescale.TAIFromLabel(l)
	if err != nil {
		return working, false
	}
	u, err := conv.ToUTC(t)
	if err != nil {
		return working, false
	}
	return working[:atpos] + u.String() + working[atpos+length:], true
}

// processline replaces the first TAI64N or TAI64 label in s with UTC text.
func processline(conv *timescale.Converter, s string) string {
	atpos := strings.Index(s, "@")
	if atpos == -1 {
		return s
	}
	if result, ok := labelToUTC(conv, s, atpos, 1+2*tai64.NLength); ok {
		return result
	}
	if result, ok := labelToUTC(conv, s, atpos, 1+2*tai64.Length); ok {
		return result
	}
	return s
}

// validateInputFile checks if the input file is suitable for processing.
func validateInputFile(file *os.File) error {
	info, err := file.Stat()
	if err != nil {
		return err
	}
	if info.Mode()&os.ModeNamedPipe == 0 {
		return errors.New("the command is intended to work with pipes.\nUsage: cat logfile | gtaiutc")
	}
	return nil
}

// filterLabels reads lines from in and writes them to out with labels
// converted. A final line without a newline is converted too.
func filterLabels(conv *timescale.Converter, in *bufio.Reader, out *bufio.Writer) error {
	for {
		line, err := in.ReadString('\n')
		if line != "" {
			if _, werr := out.WriteString(processline(conv, line)); werr != nil {
				return werr
			}
			if werr := out.Flush(); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// GTAIUTCRun converts TAI64N labels on standard input to UTC, printing
// leap seconds as :60.
func GTAIUTCRun(args []string) int {
	file := os.Stdin
	if len(args) > 0 && args[0] != "-" {
		_, _ = fmt.Println("we do not support calling filenames yet")
		return 111
	}
	if err := validateInputFile(file); err != nil {
		_, _ = fmt.Println(err)
		return 111
	}

	conv := timescale.NewConverter(timescale.System())
	out := bufio.NewWriter(os.Stdout)
	if err := filterLabels(conv, bufio.NewReader(file), out); err != nil {
		_, _ = fmt.Println(err)
		_ = out.Flush()
		return 111
	}
	return 0
}
