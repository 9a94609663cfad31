package auth

import (
	"context"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/evaluation-service/internal/models"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

const (
	casdoorRoleProperty       = "role"
	casdoorDepartmentProperty = "department_id"
)

// CasdoorConfig mirrors the Casdoor application settings
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Certificate  string
	Organization string
	Application  string
}

// CasdoorProvider validates Casdoor-issued tokens. The workflow role and
// department are read from the user's properties, falling back to the tag.
type CasdoorProvider struct {
	parse func(token string) (*casdoorsdk.Claims, error)
}

func NewCasdoorProvider(cfg CasdoorConfig) *CasdoorProvider {
	client := casdoorsdk.NewClient(cfg.Endpoint, cfg.ClientID, cfg.ClientSecret,
		cfg.Certificate, cfg.Organization, cfg.Application)
	return &CasdoorProvider{parse: client.ParseJwtToken}
}

func (p *CasdoorProvider) Authenticate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	claims, err := p.parse(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user := claims.User
	role := strings.ToUpper(user.Properties[casdoorRoleProperty])
	if role == "" {
		role = strings.ToUpper(user.Tag)
	}
	if role == "" && user.IsAdmin {
		role = string(models.RoleAdmin)
	}

	var departmentID *uint
	if raw := user.Properties[casdoorDepartmentProperty]; raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, ErrInvalidToken
		}
		dept := uint(id)
		departmentID = &dept
	}

	userID := user.Id
	if userID == "" {
		userID = claims.RegisteredClaims.Subject
	}
	return newSession(userID, role, departmentID)
}
