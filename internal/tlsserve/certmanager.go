// Package tlsserve serves the API over HTTPS with automatic
// certificates.
package tlsserve

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/caddyserver/certmagic"
)

// CertManager manages automatic TLS certificates via certmagic for the
// service's own domain.
type CertManager struct {
	domain string
	logger *slog.Logger
	cfg    *certmagic.Config
}

// NewCertManager creates a CertManager for the given domain. Uses the
// Let's Encrypt staging CA unless SIGHTLINE_ENV=production.
func NewCertManager(domain string, logger *slog.Logger) *CertManager {
	certmagic.DefaultACME.Email = os.Getenv("ACME_EMAIL")
	certmagic.DefaultACME.Agreed = true

	if os.Getenv("SIGHTLINE_ENV") != "production" {
		certmagic.DefaultACME.CA = certmagic.LetsEncryptStagingCA
	}

	return &CertManager{domain: domain, logger: logger, cfg: certmagic.NewDefault()}
}

// ListenAndServe provisions the certificate for the configured domain
// and serves the handler over TLS on the standard HTTPS port.
func (cm *CertManager) ListenAndServe(handler http.Handler) error {
	cm.logger.Info("starting TLS server", "domain", cm.domain)

	if err := cm.cfg.ManageSync(context.Background(), []string{cm.domain}); err != nil {
		return fmt.Errorf("manage domain: %w", err)
	}

	tlsCfg := cm.cfg.TLSConfig()
	ln, err := tls.Listen("tcp", fmt.Sprintf(":%d", certmagic.HTTPSPort), tlsCfg)
	if err != nil {
		return fmt.Errorf("tls listen: %w", err)
	}

	cm.logger.Info("serving HTTPS", "port", certmagic.HTTPSPort)
	return http.Serve(ln, handler)
}

// TLSConfig returns the certmagic config for use with custom listeners.
func (cm *CertManager) TLSConfig() *certmagic.Config {
	return cm.cfg
}
