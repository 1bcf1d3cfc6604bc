// Command token issues an operator access token signed with JWT_SECRET_KEY, for
// scripts and integrations that call the API without a login flow.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/cmlabs-hris/homecare-payroll/internal/config"
	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
)

func main() {
	userID := flag.String("user", "", "operator user id stamped on created_by/updated_by")
	orgID := flag.String("org", "", "organization id; empty grants access to all organizations")
	role := flag.String("role", string(jwt.RoleCoordinator), "admin, payroll_manager or coordinator")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	svc := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	op := jwt.Operator{UserID: *userID, OrganizationID: *orgID, Role: jwt.Role(*role)}
	if err := issueToken(os.Stdout, svc, op); err != nil {
		slog.Error("failed to issue token", "error", err)
		os.Exit(1)
	}
}

func issueToken(w io.Writer, svc jwt.Service, op jwt.Operator) error {
	if op.UserID == "" {
		return fmt.Errorf("-user is required")
	}
	switch op.Role {
	case jwt.RoleAdmin, jwt.RolePayrollManager, jwt.RoleCoordinator:
	default:
		return fmt.Errorf("unsupported role %q", op.Role)
	}

	token, expiresAt, err := svc.GenerateAccessToken(op)
	if err != nil {
		return fmt.Errorf("generate access token: %w", err)
	}
	slog.Info("token issued", "user_id", op.UserID, "role", op.Role, "expires_at", time.Unix(expiresAt, 0).UTC())
	_, err = fmt.Fprintln(w, token)
	return err
}
