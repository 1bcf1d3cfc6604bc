package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type Role string

const (
	RoleAdmin          Role = "admin"
	RolePayrollManager Role = "payroll_manager"
	RoleCoordinator    Role = "coordinator"
)

var ErrMissingClaims = errors.New("operator claims missing from token")

// Operator is the identity stamped onto created_by/updated_by/approved_by columns.
// An empty OrganizationID means the operator works across all organizations.
type Operator struct {
	UserID         string
	OrganizationID string
	Role           Role
}

// CanApprove reports whether the operator may approve salary payments and advances.
func (o Operator) CanApprove() bool {
	return o.Role == RoleAdmin || o.Role == RolePayrollManager
}

// Allows reports whether the operator may see data of organizationID.
func (o Operator) Allows(organizationID string) bool {
	return o.OrganizationID == "" || o.OrganizationID == organizationID
}

// ScopeOrganization narrows a requested organization filter to the operator's own organization.
func (o Operator) ScopeOrganization(requested *string) *string {
	if o.OrganizationID != "" {
		org := o.OrganizationID
		return &org
	}
	return requested
}

type Service interface {
	GenerateAccessToken(op Operator) (token string, expiresAt int64, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	secretKey                 string
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		secretKey:                 secretKey,
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
	}
}

func (j *JWTService) GenerateAccessToken(op Operator) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = time.Now().Add(expDuration).Unix()

	claims := operatorClaims(op)
	claims["exp"] = expiresAt

	_, tokenString, err := j.tokenAuth.Encode(claims)
	return tokenString, expiresAt, err
}

func operatorClaims(op Operator) map[string]interface{} {
	return map[string]interface{}{
		"user_id":         op.UserID,
		"organization_id": op.OrganizationID,
		"role":            string(op.Role),
		"type":            "access",
	}
}

// OperatorFromContext extracts the operator from the jwtauth claims in ctx.
func OperatorFromContext(ctx context.Context) (Operator, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Operator{}, err
	}

	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return Operator{}, ErrMissingClaims
	}
	orgID, _ := claims["organization_id"].(string)
	role, _ := claims["role"].(string)

	return Operator{UserID: userID, OrganizationID: orgID, Role: Role(role)}, nil
}

// ContextWithOperator encodes op into a token without expiry and attaches it to ctx
// the way the verifier middleware would. Service tests use it to act as an operator.
func ContextWithOperator(ctx context.Context, ja *jwtauth.JWTAuth, op Operator) (context.Context, error) {
	token, _, err := ja.Encode(operatorClaims(op))
	if err != nil {
		return ctx, err
	}
	return jwtauth.NewContext(ctx, token, nil), nil
}
