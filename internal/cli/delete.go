package cli

import (
	"context"
	"fmt"
)

func (a *App) Delete(ctx context.Context, name string) error {
	if err := a.verifier.Delete(ctx, name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %s\n", name)
	return nil
}
