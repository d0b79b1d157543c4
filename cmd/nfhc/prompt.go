package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/danmuck/netfilehub/internal/nfh"
	"github.com/danmuck/netfilehub/internal/protocol"
)

// consolePrompter asks on a terminal for anything the preset leaves open.
type consolePrompter struct {
	in     *bufio.Reader
	out    io.Writer
	preset nfh.Selections

	presetSaveUsed bool
}

var _ nfh.Prompter = (*consolePrompter)(nil)

func newConsolePrompter(in io.Reader, out io.Writer, preset nfh.Selections) *consolePrompter {
	return &consolePrompter{
		in:     bufio.NewReader(in),
		out:    out,
		preset: preset,
	}
}

func (p *consolePrompter) SelectMode(ctx context.Context) (protocol.Mode, error) {
	if p.preset.Mode != protocol.ModeNone {
		return p.preset.Mode, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return protocol.ModeNone, err
		}
		line, err := p.promptLine("Select mode ([1] DOWNLOAD, [2] UPLOAD)")
		if err != nil {
			return protocol.ModeNone, err
		}
		switch strings.TrimSpace(line) {
		case "1":
			return protocol.ModeDownload, nil
		case "2":
			return protocol.ModeUpload, nil
		}
		if mode, err := protocol.ParseMode(line); err == nil && mode != protocol.ModeNone {
			return mode, nil
		}
	}
}

func (p *consolePrompter) UploadPath(ctx context.Context) (string, error) {
	if p.preset.File != "" {
		return p.preset.File, nil
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := p.promptLine("File to upload")
		if err != nil {
			return "", err
		}
		path := strings.TrimSpace(line)
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			fmt.Fprintf(p.out, "Cannot open %s: %v\n", path, err)
			continue
		}
		if !info.Mode().IsRegular() {
			fmt.Fprintf(p.out, "%s is not a regular file\n", path)
			continue
		}
		return path, nil
	}
}

func (p *consolePrompter) SelectEntry(ctx context.Context, entries []protocol.FileEntry) (uint64, error) {
	p.printListing(entries)
	if p.preset.Name != "" || p.preset.Selection >= 0 {
		return p.preset.SelectEntry(ctx, entries)
	}
	id, err := p.promptInt(ctx, "Select file id", 0, int64(len(entries))-1)
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

func (p *consolePrompter) SaveAs(ctx context.Context, entry protocol.FileEntry) (string, error) {
	if p.preset.SaveTo != "" && !p.presetSaveUsed {
		p.presetSaveUsed = true
		return nfh.DefaultSavePath(p.preset.SaveTo, entry)
	}
	def, defErr := nfh.DefaultSavePath("", entry)
	label := "Save as"
	if defErr == nil {
		label += fmt.Sprintf(" (default=%s)", def)
	}
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		line, err := p.promptLine(label)
		if err != nil {
			return "", err
		}
		target := strings.TrimSpace(line)
		if target == "" {
			if defErr != nil {
				continue
			}
			return def, nil
		}
		path, err := nfh.DefaultSavePath(target, entry)
		if err != nil {
			fmt.Fprintf(p.out, "%v\n", err)
			continue
		}
		return path, nil
	}
}

func (p *consolePrompter) ConfirmOverwrite(_ context.Context, path string) (bool, error) {
	if p.preset.Overwrite {
		return true, nil
	}
	line, err := p.promptLine(fmt.Sprintf("Warning: file %s already exists. Overwrite? (y/N)", path))
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// promptDefault returns def when the answer is empty.
func (p *consolePrompter) promptDefault(label, def string) (string, error) {
	line, err := p.promptLine(fmt.Sprintf("%s (default=%s)", label, def))
	if err != nil {
		return "", err
	}
	if v := strings.TrimSpace(line); v != "" {
		return v, nil
	}
	return def, nil
}

func (p *consolePrompter) printListing(entries []protocol.FileEntry) {
	fmt.Fprintf(p.out, "Server offers %d file(s):\n", len(entries))
	w := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSIZE\tMODIFIED\tNAME")
	for _, e := range entries {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\n", e.ID, e.Size, e.Modified().Format(time.DateTime), e.Name)
	}
	_ = w.Flush()
}

func (p *consolePrompter) promptLine(label string) (string, error) {
	if strings.TrimSpace(label) != "" {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", fmt.Errorf("read answer: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (p *consolePrompter) promptInt(ctx context.Context, label string, min, max int64) (int64, error) {
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		line, err := p.promptLine(fmt.Sprintf("%s [%d-%d]", label, min, max))
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
		if err != nil || v < min || v > max {
			fmt.Fprintf(p.out, "Invalid choice %q\n", strings.TrimSpace(line))
			continue
		}
		return v, nil
	}
}
