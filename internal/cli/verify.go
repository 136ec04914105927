package cli

import (
	"context"
	"fmt"
)

func (a *App) Verify(ctx context.Context, name string) error {
	res, err := a.verifier.Verify(ctx, name)
	if err != nil {
		return err
	}

	if res.Intact {
		fmt.Fprintf(a.out, "%s: OK (trust score %d)\n", res.Name, res.TrustScore)
	} else {
		fmt.Fprintf(a.out, "%s: TAMPERED (trust score %d)\n", res.Name, res.TrustScore)
		fmt.Fprintf(a.out, "  expected: %s\n", truncateDigest(res.OriginalDigest))
		fmt.Fprintf(a.out, "  actual:   %s\n", truncateDigest(res.CurrentDigest))
	}
	return nil
}

func (a *App) VerifyAll(ctx context.Context) error {
	batch, err := a.verifier.VerifyAll(ctx)
	if err != nil {
		return err
	}

	for _, item := range batch.Results {
		switch {
		case item.Result == nil:
			fmt.Fprintf(a.out, "%s: ERROR (%s)\n", item.Name, item.Error)
		case item.Result.Intact:
			fmt.Fprintf(a.out, "%s: OK\n", item.Name)
		default:
			fmt.Fprintf(a.out, "%s: TAMPERED\n", item.Name)
		}
	}

	fmt.Fprintf(a.out, "verified: %d, tampered: %d, failed: %d\n",
		batch.VerifiedCount, batch.TamperedCount, batch.FailedCount)
	fmt.Fprintf(a.out, "security: %.1f%%\n", batch.SecurityPercentage)
	return nil
}
