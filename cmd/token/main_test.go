package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/cmlabs-hris/homecare-payroll/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueToken(t *testing.T) {
	svc := jwt.NewJWTService("test-secret", "1h")
	op := jwt.Operator{UserID: "u-sync", OrganizationID: "org-1", Role: jwt.RolePayrollManager}

	var out bytes.Buffer
	require.NoError(t, issueToken(&out, svc, op))

	token, err := svc.JWTAuth().Decode(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	got, err := jwt.OperatorFromContext(jwtauth.NewContext(context.Background(), token, nil))
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

func TestIssueTokenRejectsBadOperator(t *testing.T) {
	svc := jwt.NewJWTService("test-secret", "1h")

	tests := []struct {
		name string
		op   jwt.Operator
	}{
		{"missing user", jwt.Operator{Role: jwt.RoleAdmin}},
		{"unknown role", jwt.Operator{UserID: "u-1", Role: "nurse"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, issueToken(&out, svc, tt.op))
			assert.Empty(t, out.String())
		})
	}
}
