// grouppolicy-gen renders the set and clear configs of a VPN group policy.
//
// Usage:
//
//	grouppolicy-gen -u users.txt -c nyc1 -s 10.20.0.0/24 -g GP-NYC \
//	    -a RADIUS-1 -b https://vpn.example.com [-l 10.20.0.17]
package main

import (
	"os"

	"github.com/zinrai/grouppolicy-gen/internal/interface/cli"
)

// Build-time variables set via ldflags
var version = "dev"

func main() {
	cli.Version = version
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
