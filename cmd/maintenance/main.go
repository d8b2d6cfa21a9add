// Command maintenance checks and repairs stored data.
package main

import (
	"log"
	"os"

	"tutorlink_go/config"
	"tutorlink_go/database"
	"tutorlink_go/database/seeders"
	"tutorlink_go/services"
)

func main() {
	logger := log.New(os.Stdout, "MAINT : ", log.LstdFlags)

	config.LoadConfig()
	// the CLI never migrates; seed relies on the server having done so
	config.AppConfig.SkipMigrate = true
	database.Connect()

	cli := commandLine{
		svc:  services.NewMaintenanceService(),
		seed: seeders.SeedAll,
		out:  os.Stdout,
	}
	err := cli.run(os.Args)
	database.Close()
	if err != nil {
		if err != errHelp && err != errIssues {
			logger.Printf("error: %s", err)
		}
		os.Exit(1)
	}
}
