package bgremove

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// ExecRemover pipes the source as PNG into an external segmentation command
// and reads the cut-out PNG from its stdout. Lines on stderr of the form
// "<key> <current> <total>" are forwarded as progress; anything else is kept
// for the error message.
type ExecRemover struct {
	Path string
	Args []string
}

// ParseExecRemover splits a command line such as "rembg i - -".
func ParseExecRemover(cmdline string) (ExecRemover, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return ExecRemover{}, fmt.Errorf("empty remover command")
	}
	return ExecRemover{Path: fields[0], Args: fields[1:]}, nil
}

// Cutout implements Remover.
func (e ExecRemover) Cutout(ctx context.Context, src image.Image, progress ProgressFunc) (image.Image, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, src); err != nil {
		return nil, fmt.Errorf("encode source: %w", err)
	}
	cmd := exec.CommandContext(ctx, e.Path, e.Args...)
	cmd.Stdin = &in
	var out bytes.Buffer
	cmd.Stdout = &out
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", e.Path, err)
	}
	diag := scanProgress(stderr, progress)
	if err := cmd.Wait(); err != nil {
		if diag != "" {
			return nil, fmt.Errorf("%s: %w: %s", e.Path, err, diag)
		}
		return nil, fmt.Errorf("%s: %w", e.Path, err)
	}
	img, err := png.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decode %s output: %w", e.Path, err)
	}
	return img, nil
}

func scanProgress(r io.Reader, progress ProgressFunc) string {
	var diag []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if key, cur, total, ok := parseProgressLine(line); ok {
			if progress != nil {
				progress(key, cur, total)
			}
			continue
		}
		if line != "" {
			diag = append(diag, line)
		}
	}
	if err := sc.Err(); err != nil {
		diag = append(diag, "stderr: "+err.Error())
	}
	// The child blocks if its stderr is left unread.
	_, _ = io.Copy(io.Discard, r)
	return strings.Join(diag, "; ")
}

func parseProgressLine(line string) (string, int64, int64, bool) {
	f := strings.Fields(line)
	if len(f) != 3 || !strings.Contains(f[0], ":") {
		return "", 0, 0, false
	}
	cur, err := strconv.ParseInt(f[1], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	total, err := strconv.ParseInt(f[2], 10, 64)
	if err != nil {
		return "", 0, 0, false
	}
	return f[0], cur, total, true
}
