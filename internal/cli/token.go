package cli

import (
	"fmt"

	"github.com/akulikov/driveguard/internal/server/auth"
)

// Token mints a bearer token for the HTTP API, signed with the configured
// secret key.
func (a *App) Token(client string) error {
	tok, err := auth.GenerateToken(client, []byte(a.config.SecretKey), a.config.AccessTokenValidityDuration)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, tok)
	return nil
}
