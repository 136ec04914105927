package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/akulikov/driveguard/internal/cli"
	"github.com/akulikov/driveguard/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := cli.NewApp(ctx, cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer app.Close()

	if err := app.Run(ctx, positionalArgs(os.Args[1:])); err != nil {
		log.Fatalf("%v", err)
	}
}

// positionalArgs strips configuration flags so only the subcommand and its
// arguments remain. Both flag spellings that flagx.FilterArgs accepts are
// recognized: "-flag=value" carries its value in the same argument, while
// "-flag value" consumes the next argument unless that argument is itself
// a flag.
func positionalArgs(args []string) []string {
	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		out = append(out, arg)
	}
	return out
}
