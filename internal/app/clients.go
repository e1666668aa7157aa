package app

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/radflow-backend/internal/platform/logger"
	"github.com/yungbote/radflow-backend/internal/signing"
)

// buildSigner returns the remote signing client, or an in-process signer with
// the configured development users provisioned.
func buildSigner(log *logger.Logger, cfg Config) (signing.Signer, error) {
	switch cfg.SigningMode {
	case SigningModeLocal:
		local := signing.NewLocalSigner()
		for _, entry := range cfg.SigningLocalUsers {
			userID, pin, err := parseLocalUser(entry)
			if err != nil {
				return nil, err
			}
			info, err := local.Provision(userID, pin)
			if err != nil {
				return nil, fmt.Errorf("provision signing key for %s: %w", userID, err)
			}
			log.Info("Provisioned local signing key", "user_id", userID, "certificate_serial", info.CertificateSerial)
		}
		log.Warn("Using in-process signer; not for production use", "users", len(cfg.SigningLocalUsers))
		return local, nil
	default:
		remote, err := signing.NewHTTPSigner(signing.HTTPOptions{
			BaseURL:    cfg.SigningBaseURL,
			APIKey:     cfg.SigningAPIKey,
			Timeout:    cfg.SigningTimeout,
			MaxRetries: cfg.SigningMaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("init signing client: %w", err)
		}
		log.Info("Signing service client ready", "base_url", cfg.SigningBaseURL, "max_retries", cfg.SigningMaxRetries)
		return remote, nil
	}
}

func parseLocalUser(entry string) (uuid.UUID, string, error) {
	idPart, pin, ok := strings.Cut(strings.TrimSpace(entry), ":")
	if !ok || strings.TrimSpace(pin) == "" {
		return uuid.Nil, "", fmt.Errorf("SIGNING_LOCAL_USERS entry must be userID:pin")
	}
	userID, err := uuid.Parse(strings.TrimSpace(idPart))
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("SIGNING_LOCAL_USERS entry %q: %w", idPart, err)
	}
	return userID, strings.TrimSpace(pin), nil
}
