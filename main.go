// wake sends Wake-on-LAN magic packets to hosts named in ~/.wol_hosts.xml,
// either directly over UDP or through an SSH relay.
//
// Usage:
//
//	wake <device-name>              wake a registered host
//	wake <device-name> --ssh ALIAS  run wakeonlan on ALIAS instead
//	wake --list                     list registered hosts
//	wake --ssh list                 list ssh config aliases
package main

import (
	"os"

	"wake/cmd/wake"
)

func main() {
	os.Exit(wake.Run(os.Args[1:]))
}
