// Command mailer sends messages through the configured transport and serves
// the collected messages for debugging.
package main

import (
	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}
