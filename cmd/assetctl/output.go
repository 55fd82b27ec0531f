package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spec-kit/asset-gateway/internal/gateway"
	"github.com/spec-kit/asset-gateway/internal/observability"
)

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// saveBlob writes blob to out, the server-suggested name, or fallback, in that order.
// "-" writes to stdout.
func saveBlob(blob *gateway.Blob, out, fallback string) error {
	if out == "-" {
		_, err := os.Stdout.Write(blob.Data)
		return err
	}
	path := out
	if path == "" {
		path = blob.FileName
	}
	if path == "" {
		path = fallback
	}
	if err := os.WriteFile(path, blob.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(os.Stderr, "Saved %d bytes to %s\n", blob.Size(), path)
	return nil
}

func printStats(w io.Writer, metrics *observability.Metrics) {
	snap := metrics.Snapshot()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUEST\tCOUNT")
	for _, c := range snap.Requests {
		fmt.Fprintf(tw, "%s\t%d\n", c.Key, c.Count)
	}
	if len(snap.Errors) > 0 {
		fmt.Fprintln(tw, "ERROR\tCOUNT")
		for _, c := range snap.Errors {
			fmt.Fprintf(tw, "%s\t%d\n", c.Key, c.Count)
		}
	}
	_ = tw.Flush()
}
