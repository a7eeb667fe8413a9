package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether URL hosts belong to trusted domains
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		if domain != "" {
			normalizedDomains = append(normalizedDomains, domain)
		}
	}

	if len(normalizedDomains) > 0 && logger != nil {
		logger.Info("Initialized whitelist checker", zap.Strings("domains", normalizedDomains))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// IsAllowed checks if the host is a whitelisted domain or one of its subdomains
func (c *Checker) IsAllowed(host string) bool {
	if len(c.domains) == 0 {
		return false
	}

	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, whitelisted := range c.domains {
		if host == whitelisted || strings.HasSuffix(host, "."+whitelisted) {
			if c.logger != nil {
				c.logger.Debug("Host is whitelisted",
					zap.String("host", host),
					zap.String("domain", whitelisted))
			}
			return true
		}
	}

	return false
}

// Domains returns the normalized whitelist
func (c *Checker) Domains() []string {
	return append([]string(nil), c.domains...)
}
