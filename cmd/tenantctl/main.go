// Command tenantctl provisions and maintains a simple-tenant database.
package main

import "os"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
