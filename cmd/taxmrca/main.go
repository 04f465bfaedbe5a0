// cmd/taxmrca/main.go
package main

import (
	"taxmrca/internal/app"
	"taxmrca/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
