//	@title			SCM LDAP Plugin API
//	@version		1.0
//	@description	LDAP / Active Directory authentication service with group resolution

//	@contact.name	API Support
//	@contact.url	https://github.com/robert0714/scm-ldap-plugin

//	@license.name	MIT
//	@license.url	https://github.com/robert0714/scm-ldap-plugin/blob/main/LICENSE

//	@host		localhost:8080
//	@BasePath	/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Type "Bearer" followed by a space and the admin token.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/robert0714/scm-ldap-plugin/internal/bootstrap"
	"github.com/robert0714/scm-ldap-plugin/internal/config"
	"github.com/robert0714/scm-ldap-plugin/internal/version"
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	// Check if command is provided
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Handle subcommands
	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("LDAP / Active Directory authentication server")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the authentication server")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	cfg := config.Load()

	if err := bootstrap.Run(cfg); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
