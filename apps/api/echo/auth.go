package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/scholarlypay/core"
	"github.com/trezcool/scholarlypay/core/institution"
	"github.com/trezcool/scholarlypay/core/parent"
)

const (
	jwtContextKey    = "userToken"
	contextParentKey = "parent"
)

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt    int64  `json:"oriat,omitempty"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	AdmissionNumber string `json:"admission_number,omitempty"`
	IsParent        bool   `json:"is_parent,omitempty"` // -> FAMILY PORTAL
	IsAdmin         bool   `json:"is_admin,omitempty"`  // -> INSTITUTION PORTAL
}

func newStandardClaims(conf *core.Config, subject string, origIat []int64) (jwt.StandardClaims, int64) {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return jwt.StandardClaims{
		Issuer:    conf.AppName,
		Subject:   subject,
		Audience:  "SchoolFees",
		ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
		IssuedAt:  nownix,
	}, oriat
}

func GetParentClaims(conf *core.Config, p parent.Parent, origIat ...int64) *Claims {
	std, oriat := newStandardClaims(conf, p.ID, origIat)
	return &Claims{
		StandardClaims:  std,
		OrigIssuedAt:    oriat,
		Name:            p.FullName(),
		Email:           p.Email,
		AdmissionNumber: p.AdmissionNumber,
		IsParent:        true,
	}
}

func GetInstitutionClaims(conf *core.Config, inst institution.Institution, origIat ...int64) *Claims {
	std, oriat := newStandardClaims(conf, inst.ID, origIat)
	return &Claims{
		StandardClaims: std,
		OrigIssuedAt:   oriat,
		Name:           inst.SchoolName,
		Email:          inst.AdminEmail,
		IsAdmin:        true,
	}
}

func authenticateParent(ctx echo.Context, conf *core.Config, svc *parent.Service, email, pwd string) (*Claims, error) {
	p, err := svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == parent.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding parent by email")
	}
	if err = p.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	return GetParentClaims(conf, p), nil
}

func authenticateInstitution(ctx echo.Context, conf *core.Config, svc *institution.Service, email, pwd string) (*Claims, error) {
	inst, err := svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == institution.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding institution by email")
	}
	if err = inst.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	return GetInstitutionClaims(conf, inst), nil
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextParent(ctx echo.Context, svc *parent.Service) (parent.Parent, error) {
	if p, ok := ctx.Get(contextParentKey).(parent.Parent); ok {
		return p, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return parent.Parent{}, errors.Wrap(err, "getting context claims")
	}

	p, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return parent.Parent{}, errors.Wrap(err, "finding parent by ID")
	}
	ctx.Set(contextParentKey, p)
	return p, nil
}

func refreshTokenForClaims(conf *core.Config, claims Claims, renew func() *Claims) (string, error) {
	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}
	token, err := GenerateToken(conf, renew())
	return token, errors.Wrap(err, "generating token")
}
