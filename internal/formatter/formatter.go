// package formatter renders search traces and the not-found report as plain text
package formatter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/plsync/internal/models"
)

// Rule separates trace blocks.
var Rule = strings.Repeat("=", 60)

const lineTimeFormat = "15:04:05.000"

// FormatTraceLine renders a line as "[HH:MM:SS.mmm] LEVEL: message".
func FormatTraceLine(l models.TraceLine) string {
	level := l.Level
	if level == "" {
		level = "INFO"
	}
	return fmt.Sprintf("[%s] %s: %s", l.At.Format(lineTimeFormat), strings.ToUpper(level), l.Message)
}

// WriteTrace writes one block:
//
//	============================================================
//	TRACK: <id>
//	============================================================
//	[HH:MM:SS.mmm] LEVEL: message
//	============================================================
func WriteTrace(w io.Writer, trace models.Trace) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\n%s\nTRACK: %s\n%s\n", Rule, trace.TrackID, Rule)
	for _, l := range trace.Lines {
		fmt.Fprintln(bw, FormatTraceLine(l))
	}
	fmt.Fprintf(bw, "%s\n", Rule)
	return bw.Flush()
}

// TraceHeader opens a run in the trace file.
func TraceHeader(runID string, at time.Time) string {
	return fmt.Sprintf("\n%s\nRUN: %s (%s)\n%s\n", Rule, runID, at.Format(time.RFC3339), Rule)
}

// AppendTraces appends a run header and every trace to the file at path, creating it if needed.
func AppendTraces(path, runID string, at time.Time, traces []models.Trace) error {
	if len(traces) == 0 {
		return nil
	}

	var buf bytes.Buffer
	buf.WriteString(TraceHeader(runID, at))
	for _, t := range traces {
		if err := WriteTrace(&buf, t); err != nil {
			return err
		}
	}
	return appendFile(path, buf.Bytes())
}

// NotFoundLine renders "<id>: <artist>,<artist> - <name>".
func NotFoundLine(t models.SourceTrack) string {
	return fmt.Sprintf("%s: %s - %s", t.ID, strings.Join(t.Artists, ","), t.Name)
}

// AppendNotFound appends one line per track to the report at path.
func AppendNotFound(path string, tracks []models.SourceTrack) error {
	if len(tracks) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for _, t := range tracks {
		buf.WriteString(NotFoundLine(t))
		buf.WriteByte('\n')
	}
	return appendFile(path, buf.Bytes())
}

func appendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
