package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/prudhvinik1/parlourpunch/internal/config"
	"github.com/prudhvinik1/parlourpunch/internal/models"
	"github.com/prudhvinik1/parlourpunch/internal/services"
)

// issueToken prints a signed token for a kiosk or dashboard device. Logins
// live in a separate service; this is for provisioning devices.
func issueToken(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("issue-token", flag.ExitOnError)
	userID := fs.String("user", "kiosk", "user id carried in the token")
	email := fs.String("email", "", "email carried in the token")
	role := fs.String("role", string(models.RoleAdmin), `role claim ("Admin" or "Super Admin")`)
	fs.Parse(args)

	identity := models.Identity{UserID: *userID, Email: *email, Role: models.Role(*role)}
	if !identity.CanManageAttendance() {
		log.Fatalf("role %q cannot use the attendance channel", *role)
	}

	token, expiresAt, err := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiry).IssueToken(identity)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Println(token)
}
