package auth

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/domain/admin"
	"github.com/clinic/clinic/internal/platform/apierr"
	platformauth "github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/notification"
)

var (
	ErrTokenUsed   = errors.New("login token already used")
	ErrUnknownUser = errors.New("user not found or inactive")
)

// Session is the outcome of a redeemed login link.
type Session struct {
	Token    string `json:"-"`
	Tenant   string `json:"tenant"`
	Role     string `json:"role"`
	Redirect string `json:"redirect"`
}

type Service struct {
	issuer    *platformauth.Issuer
	redeemer  platformauth.Redeemer
	locator   *Locator
	mailer    notification.EmailSender
	templates *notification.TemplateEngine
	appURL    string
	logger    zerolog.Logger
}

func NewService(issuer *platformauth.Issuer, redeemer platformauth.Redeemer, locator *Locator,
	mailer notification.EmailSender, appURL string, logger zerolog.Logger) *Service {
	return &Service{
		issuer:    issuer,
		redeemer:  redeemer,
		locator:   locator,
		mailer:    mailer,
		templates: notification.NewTemplateEngine(),
		appURL:    strings.TrimRight(appURL, "/"),
		logger:    logger,
	}
}

// Login emails a single-use link for every clinic in which email belongs to
// an active user. With tenant set only that clinic is considered. Unknown
// emails and delivery failures are logged, never reported, so the caller
// cannot probe which addresses exist.
func (s *Service) Login(ctx context.Context, email, tenant string) error {
	email = admin.NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return apierr.Invalid("E-mail inválido")
	}

	var tenants []string
	if tenant = strings.TrimSpace(tenant); tenant != "" {
		if err := db.ValidateTenantID(tenant); err != nil {
			return apierr.Invalid("Clínica inválida")
		}
		active, err := s.locator.Active(ctx, tenant)
		if err != nil {
			s.logger.Error().Err(err).Msg("tenant directory unavailable")
			return nil
		}
		if active {
			tenants = []string{tenant}
		}
	} else {
		found, err := s.locator.Lookup(ctx, email)
		if err != nil {
			s.logger.Error().Err(err).Msg("login lookup failed")
			return nil
		}
		tenants = found
	}

	for _, t := range tenants {
		u, err := s.locator.FindUser(ctx, t, email)
		if err != nil || !u.Active {
			s.logger.Info().Str("tenant", t).Msg("login requested for unknown user")
			continue
		}
		if err := s.sendLink(ctx, u.Email, t); err != nil {
			s.logger.Error().Err(err).Str("tenant", t).Msg("login email failed")
		}
	}
	return nil
}

func (s *Service) sendLink(ctx context.Context, email, tenant string) error {
	token, _, err := s.issuer.IssueEmailToken(email, tenant)
	if err != nil {
		return err
	}
	subject, body, err := s.templates.Render(notification.TemplateLoginLink, map[string]string{
		"tenant":  tenant,
		"expires": strconv.Itoa(int(platformauth.EmailTokenTTL.Minutes())),
		"link":    s.appURL + "/api/auth/verify?token=" + url.QueryEscape(token),
	})
	if err != nil {
		return err
	}
	return s.mailer.SendEmail(ctx, email, subject, body)
}

// Verify redeems a login token exactly once and opens a session for the
// user it names, re-read from the token's clinic.
func (s *Service) Verify(ctx context.Context, token string) (*Session, error) {
	claims, err := s.issuer.ParseEmailToken(token)
	if err != nil {
		return nil, err
	}

	ttl := platformauth.EmailTokenTTL
	if claims.ExpiresAt != nil {
		if left := time.Until(claims.ExpiresAt.Time); left > 0 {
			ttl = left
		}
	}
	first, err := s.redeemer.Redeem(ctx, claims.ID, ttl)
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, ErrTokenUsed
	}

	u, err := s.locator.FindUser(ctx, claims.Tenant, claims.Email)
	if errors.Is(err, db.ErrNotFound) || (err == nil && !u.Active) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}

	session, _, err := s.issuer.IssueSession(u.Email, u.ID, claims.Tenant, u.Role)
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:    session,
		Tenant:   claims.Tenant,
		Role:     u.Role,
		Redirect: "/" + claims.Tenant,
	}, nil
}

// Lookup lists the clinics email can sign in to.
func (s *Service) Lookup(ctx context.Context, email string) ([]string, error) {
	email = admin.NormalizeEmail(email)
	if email == "" {
		return nil, apierr.Invalid("E-mail é obrigatório")
	}
	return s.locator.Lookup(ctx, email)
}
