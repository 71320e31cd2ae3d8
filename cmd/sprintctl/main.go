// Command sprintctl is the SkillSprint operator tool: migrations, seeding,
// backups, streak and progress inspection, sprint maintenance and reports.
package main

import (
	"os"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := a.rootCmd().Execute(); err != nil {
		a.out.Fail("%v", err)
		os.Exit(1)
	}
}
