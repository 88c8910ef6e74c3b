package app

import (
	"github.com/TryOmar/LabShare-sub001/internal/auth"
)

// TokenServiceConfig converts AuthConfig into the parameters expected by the token service.
func (c AuthConfig) TokenServiceConfig() auth.TokenConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = auth.DefaultTokenTTL
	}

	return auth.TokenConfig{
		Secret:   c.JWT.Secret,
		Issuer:   c.JWT.Issuer,
		TokenTTL: ttl,
	}
}

// OTPServiceOptions converts the code settings into OTP service options.
// Zero values are omitted so the service keeps its own defaults.
func (c AuthConfig) OTPServiceOptions() []auth.OTPOption {
	var opts []auth.OTPOption
	if c.Code.TTL > 0 {
		opts = append(opts, auth.WithCodeTTL(c.Code.TTL))
	}
	if c.Code.MatchWindow > 0 {
		opts = append(opts, auth.WithCodeMatchWindow(c.Code.MatchWindow))
	}
	return opts
}
