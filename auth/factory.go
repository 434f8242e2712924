package auth

import "github.com/goliatone/go-vezgo/core"

// Factory wires the default authenticator and issuer onto the client's
// transport.
func Factory() core.AuthFactory {
	return func(cfg core.Config, transport core.Transport, deps core.FactoryDependencies) (core.ApplicationTokenSource, core.UserTokenIssuer, error) {
		application := NewApplicationAuthenticator(transport, ApplicationAuthenticatorConfig{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Margin:       cfg.TokenMargin,
			FallbackTTL:  cfg.TokenFallbackTTL,
			Now:          deps.Now,
			Logger:       deps.Logger,
		})
		issuer := NewUserTokenIssuer(transport, application, UserTokenIssuerConfig{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			FallbackTTL:  cfg.TokenFallbackTTL,
			Now:          deps.Now,
			Logger:       deps.Logger,
		})
		return application, issuer, nil
	}
}
