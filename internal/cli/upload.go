package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Upload reads the file at path and registers it under name; an empty name
// defaults to the file's base name.
func (a *App) Upload(ctx context.Context, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if name == "" {
		name = filepath.Base(path)
	}

	rec, err := a.verifier.Upload(ctx, name, f)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "uploaded %s (%d bytes)\n", rec.Name, rec.SizeBytes)
	fmt.Fprintf(a.out, "  digest: %s\n", truncateDigest(rec.Digest))
	return nil
}
