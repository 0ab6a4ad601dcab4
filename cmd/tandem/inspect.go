package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/tandem-ml/tandem/internal/serialization"
)

func inspectCmd() *cli.Command {
	var (
		path        string
		showState   bool
		tensorLimit int64
	)

	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect the contents of a .tndm checkpoint",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "checkpoint",
				Aliases:     []string{"c"},
				Usage:       "path to .tndm file",
				Destination: &path,
				Required:    true,
			},
			&cli.BoolFlag{
				Name:        "state",
				Usage:       "print the raw training state document",
				Destination: &showState,
			},
			&cli.Int64Flag{
				Name:        "tensors-limit",
				Usage:       "limit tensor listing (0 = no limit)",
				Value:       50,
				Destination: &tensorLimit,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			r, err := serialization.OpenReader(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: open checkpoint: %v", err), 1)
			}
			defer func() { _ = r.Close() }()

			h := r.Header()
			fmt.Printf("Checkpoint: %s\n", path)
			fmt.Printf("Format: v%d, created %s\n", h.Version, h.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			fmt.Printf("Checksum: %x\n", r.Checksum())

			if len(h.Metadata) > 0 {
				section("Metadata")
				keys := make([]string, 0, len(h.Metadata))
				for k := range h.Metadata {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					row(k, h.Metadata[k])
				}
			}

			section("Tensors")
			var total int64
			for _, tm := range h.Tensors {
				total += tm.Size
			}
			row("count", fmt.Sprintf("%d", len(h.Tensors)))
			row("data_size", formatBytes(total))
			fmt.Println()
			printed := int64(0)
			for _, tm := range h.Tensors {
				fmt.Printf("%-24s dtype=%-9s shape=%v off=%-8d size=%s\n",
					tm.Name, tm.DType, tm.Shape, tm.Offset, formatBytes(tm.Size))
				printed++
				if tensorLimit > 0 && printed >= tensorLimit {
					break
				}
			}
			if tensorLimit > 0 && int(printed) < len(h.Tensors) {
				fmt.Printf("... (%d shown of %d)\n", printed, len(h.Tensors))
			}

			if showState && len(h.TrainingState) > 0 {
				section("Training State")
				fmt.Println(string(h.TrainingState))
			}

			return nil
		},
	}
}

func section(title string) {
	fmt.Printf("\n--- %s ---\n", title)
}

func row(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%-16s %s\n", label+":", value)
}

func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
