// Command ddr generates a Detailed Diagnostic Report from an inspection
// report and a thermal report.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrln(styles.Error.Render("error: " + err.Error()))
		os.Exit(exitCode(err))
	}
}
