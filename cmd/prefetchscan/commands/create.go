package commands

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newCreateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Append random records to an archive",
		Long: `Append random records to an archive, creating it if needed.

The layout flags only apply to a new archive. An existing archive keeps the
record size, capacity and shard count it was created with.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runCreate(cmd)
		},
	}

	f := cmd.Flags()
	f.Int64("records", 1000, "number of records to append")
	f.Int("record-size", 32, "payload bytes per record")
	f.Int64("capacity", 1_000_000, "maximum number of records")
	f.Int("shards", 4, "number of shard files")
	f.Bool("mmap", true, "memory-map shard files")
	a.bind(f.Lookup("records"), "create.records")
	a.bind(f.Lookup("record-size"), "archive.record_size")
	a.bind(f.Lookup("capacity"), "archive.capacity")
	a.bind(f.Lookup("shards"), "archive.shards")
	a.bind(f.Lookup("mmap"), "archive.mmap")

	return cmd
}

func (a *app) runCreate(cmd *cobra.Command) error {
	ar, err := a.cfg.Archive.open()
	if err != nil {
		return err
	}
	defer ar.Close()

	n := a.cfg.Create.Records
	if n < 0 {
		return fmt.Errorf("records must not be negative, got %d", n)
	}
	if free := ar.Capacity() - ar.Size(); n > free {
		return fmt.Errorf("archive has room for %d more records, asked for %d", free, n)
	}

	ctx := cmd.Context()
	start := time.Now()
	payload := make([]byte, ar.RecordSize())
	for i := range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := rand.Read(payload); err != nil {
			return fmt.Errorf("generate record: %w", err)
		}
		if _, err := ar.Append(payload, i == n-1); err != nil {
			return fmt.Errorf("append record %d: %w", i, err)
		}
	}

	a.log.Info("records appended", "count", n, "size", ar.Size(), "elapsed", time.Since(start))
	fmt.Fprintf(cmd.OutOrStdout(), "created %d records (archive size %d, record size %d)\n",
		n, ar.Size(), ar.RecordSize())
	return nil
}
