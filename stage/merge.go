package stage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pithecene-io/genoa/iox"
	"github.com/pithecene-io/genoa/settings"
)

// mergeLibraries concatenates the modeled repeat families and the
// supplementary library into the merged library. The result appears
// atomically so an interrupted merge never leaves a truncated library.
func mergeLibraries(res *settings.Resolved) func(context.Context, io.Writer) error {
	sources := []string{res.Paths.ModeledFamilies, res.Paths.SupplementaryLibrary}
	dest := res.Paths.MergedLibrary

	return func(ctx context.Context, log io.Writer) error {
		return iox.WriteAtomic(dest, 0o644, func(w io.Writer) error {
			for _, src := range sources {
				if err := ctx.Err(); err != nil {
					return err
				}
				n, err := appendFile(w, src)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(log, "appended %s (%d bytes)\n", src, n)
			}
			_, _ = fmt.Fprintf(log, "wrote %s\n", dest)
			return nil
		})
	}
}

// appendFile copies src to w, adding a trailing newline when src lacks
// one so FASTA records from consecutive files never run together.
func appendFile(w io.Writer, src string) (int64, error) {
	data, err := os.ReadFile(src)
	if err != nil {
		return 0, fmt.Errorf("read repeat library: %w", err)
	}
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	n, err := w.Write(data)
	return int64(n), err
}
