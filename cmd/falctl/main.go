// Command falctl calls fal applications from the command line and serves the
// request proxy used by browser apps.
//
//	falctl fal-ai/flux/dev -d '{"prompt":"a cat"}'
//	falctl -X GET https://queue.fal.run/fal-ai/flux/dev/requests/<id>/status
//	falctl --proxy-serve :8787
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
