package main

import (
	"context"
	"time"

	"github.com/shandysiswandi/credbite/internal/app"
)

// @title           Credbite API
// @version         1.0
// @description     Credbite issues verification credentials, MFA challenges, delegated access codes and OAuth2 access tokens.
// @contact.name    Contact Support
// @contact.email   support@credbite.dev
// @license.name    MIT
// @license.url     https://mit-license.org/
// @server          http://localhost:8080
// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT.
func main() {
	application := app.New()    // Initialize the application
	wait := application.Start() // Start the application and wait for the termination signal
	<-wait                      // Wait for the application to receive a termination signal
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	application.Stop(ctx) // Stop the application gracefully
}
