package cli

import (
	"context"
	"fmt"

	"github.com/akulikov/driveguard/internal/server/models"
)

func (a *App) printRecords(list []*models.FileRecord) {
	if len(list) == 0 {
		fmt.Fprintln(a.out, "no files")
		return
	}
	for _, rec := range list {
		verified := "never verified"
		if rec.LastVerifiedAt != nil {
			verified = fmt.Sprintf("last verified %s, trust %d, %d checks",
				rec.LastVerifiedAt.Format("2006-01-02 15:04:05"), rec.LastTrustScore, rec.VerifyCount)
		}
		fmt.Fprintf(a.out, "%s  %s  %d bytes  (%s)\n",
			rec.Name, truncateDigest(rec.Digest), rec.SizeBytes, verified)
	}
}

func (a *App) List(ctx context.Context) error {
	list, err := a.verifier.List(ctx)
	if err != nil {
		return err
	}
	a.printRecords(list)
	return nil
}

func (a *App) Search(ctx context.Context, query string) error {
	list, err := a.verifier.Search(ctx, query)
	if err != nil {
		return err
	}
	a.printRecords(list)
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	stats, err := a.verifier.Stats(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "active files:  %d\n", stats.ActiveCount)
	fmt.Fprintf(a.out, "deleted files: %d\n", stats.DeletedCount)
	fmt.Fprintf(a.out, "active bytes:  %d\n", stats.TotalActiveBytes)
	return nil
}
