package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"

	"thumbhash-placeholder-layer/internal/domain"
	"thumbhash-placeholder-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	shopSecretBytes = 32
	passwordLength  = 16
	passwordChars   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RegistrationConfig identifies this app towards the platform
type RegistrationConfig struct {
	AppName         string
	AppSecret       string
	ConfirmationURL string
}

// RegistrationProof is returned to the platform at the start of the handshake
type RegistrationProof struct {
	Proof           string `json:"proof"`
	Secret          string `json:"secret"`
	ConfirmationURL string `json:"confirmation_url"`
}

// registrationConfirmation is the body of the authorize callback
type registrationConfirmation struct {
	APIKey    string `json:"apiKey"`
	SecretKey string `json:"secretKey"`
	Timestamp string `json:"timestamp"`
	ShopURL   string `json:"shopUrl"`
	ShopID    string `json:"shopId"`
}

// RegistrationService runs the two-step install handshake with the platform
type RegistrationService struct {
	shops  ports.ShopRepository
	signer ports.RequestSigner
	config RegistrationConfig
	logger zerolog.Logger
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(
	shops ports.ShopRepository,
	signer ports.RequestSigner,
	config RegistrationConfig,
	logger zerolog.Logger,
) *RegistrationService {
	return &RegistrationService{
		shops:  shops,
		signer: signer,
		config: config,
		logger: logger,
	}
}

// Authorize verifies the app-signed registration request, stores the shop with
// a fresh secret and returns the proof the platform expects.
func (s *RegistrationService) Authorize(ctx context.Context, rawQuery string, signature string) (*RegistrationProof, error) {
	if err := s.signer.Verify(s.config.AppSecret, []byte(rawQuery), signature); err != nil {
		return nil, domain.NewAuthError("invalid app signature", err)
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, domain.NewAuthError("unreadable registration query", err)
	}

	shopID := query.Get("shop-id")
	shopURL := query.Get("shop-url")
	if shopID == "" || shopURL == "" || query.Get("timestamp") == "" {
		return nil, domain.NewAuthError("registration query is missing shop-id, shop-url or timestamp", nil)
	}

	secret, err := randomHex(shopSecretBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate shop secret: %w", err)
	}

	shop := &domain.Shop{
		ShopID:     shopID,
		ShopURL:    shopURL,
		ShopSecret: secret,
	}

	existing, err := s.shops.GetShop(ctx, shopID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing shop: %w", err)
	}
	if existing != nil {
		shop.CreatedAt = existing.CreatedAt
	}

	if err := s.shops.SaveShop(ctx, shop); err != nil {
		return nil, fmt.Errorf("failed to save shop: %w", err)
	}

	s.logger.Info().
		Str("shopId", shopID).
		Str("shopUrl", shopURL).
		Bool("reinstall", existing != nil).
		Msg("Shop registration started")

	return &RegistrationProof{
		Proof:           s.signer.Sign(s.config.AppSecret, []byte(shopID+shopURL+s.config.AppName)),
		Secret:          secret,
		ConfirmationURL: s.config.ConfirmationURL,
	}, nil
}

// ConfirmCallback stores the Admin API credentials sent by the platform once
// the shop accepted the registration. The shop then gets a fresh random
// password and stays inactive until it is activated.
func (s *RegistrationService) ConfirmCallback(ctx context.Context, body []byte, signature string) (*domain.Shop, error) {
	var confirmation registrationConfirmation
	if err := json.Unmarshal(body, &confirmation); err != nil {
		return nil, domain.NewAuthError("unreadable confirmation body", err)
	}
	if confirmation.ShopID == "" {
		return nil, domain.NewAuthError("missing shop id", nil)
	}

	shop, err := s.shops.GetShop(ctx, confirmation.ShopID)
	if err != nil {
		return nil, domain.NewAuthError("failed to load shop", err)
	}
	if shop == nil {
		return nil, domain.NewAuthError("shop "+confirmation.ShopID+" is not registered", domain.ErrShopNotFound)
	}

	if err := s.signer.Verify(shop.ShopSecret, body, signature); err != nil {
		return nil, domain.NewAuthError("invalid shop signature", err)
	}

	if confirmation.APIKey == "" || confirmation.SecretKey == "" {
		return nil, domain.NewAuthError("confirmation is missing api credentials", nil)
	}

	password, err := randomString(passwordLength)
	if err != nil {
		return nil, fmt.Errorf("failed to generate shop password: %w", err)
	}

	shop.APIKey = confirmation.APIKey
	shop.SecretKey = confirmation.SecretKey
	shop.CustomFields = domain.ShopCustomFields{
		Password: password,
		Active:   false,
	}

	if err := s.shops.SaveShop(ctx, shop); err != nil {
		return nil, fmt.Errorf("failed to save shop credentials: %w", err)
	}

	s.logger.Info().
		Str("shopId", shop.ShopID).
		Str("shopUrl", shop.ShopURL).
		Msg("Shop registration confirmed")

	return shop, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func randomString(length int) (string, error) {
	max := big.NewInt(int64(len(passwordChars)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordChars[n.Int64()]
	}
	return string(out), nil
}
