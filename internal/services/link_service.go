// Package services contains the business logic layer for the URL shortener application
package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/url"
	"regexp"
	"time"

	customerrors "github.com/axellelanca/linkshortener/internal/errors"
	"github.com/axellelanca/linkshortener/internal/logging"
	"github.com/axellelanca/linkshortener/internal/models"
	"github.com/axellelanca/linkshortener/internal/repository"
)

// charset defines the character set used for generating short codes.
// 62 symbols give 62^6 ≈ 5.7e10 combinations for 6-character codes.
const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const (
	DefaultCodeLength   = 6
	DefaultMaxAttempts  = 10
	DefaultStoreTimeout = 3 * time.Second
)

var codePattern = regexp.MustCompile(`^[A-Za-z0-9]{6,8}$`)

// reservedCodes collide with fixed routes served next to /:code.
var reservedCodes = map[string]bool{
	"health": true,
}

// ValidCode reports whether code has the shape of a short code.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// ValidateURL accepts absolute URLs only (scheme and host).
func ValidateURL(raw string) error {
	if raw == "" {
		return &customerrors.ValidationError{Field: "url", Message: "URL is required"}
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return &customerrors.ValidationError{Field: "url", Message: "Invalid URL format"}
	}
	return nil
}

// ValidateCustomCode checks a caller-supplied code against [A-Za-z0-9]{6,8}.
func ValidateCustomCode(code string) error {
	if !ValidCode(code) {
		return &customerrors.ValidationError{Field: "code", Message: "Custom code must be 6-8 alphanumeric characters"}
	}
	return nil
}

// CodeGenerator returns a fresh candidate code.
type CodeGenerator func() (string, error)

// Option configures a LinkService.
type Option func(*LinkService)

func WithMaxAttempts(n int) Option {
	return func(s *LinkService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

func WithStoreTimeout(d time.Duration) Option {
	return func(s *LinkService) { s.storeTimeout = d }
}

// WithCodeLength sets the random code length; values outside 6-8 are ignored.
func WithCodeLength(n int) Option {
	return func(s *LinkService) {
		if n >= 6 && n <= 8 {
			s.generate = func() (string, error) { return GenerateShortCode(n) }
		}
	}
}

func WithCodeGenerator(gen CodeGenerator) Option {
	return func(s *LinkService) { s.generate = gen }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *LinkService) { s.logger = logger }
}

// LinkService allocates codes and manages the lifecycle of links.
// It holds no state of its own; uniqueness is enforced by the repository.
type LinkService struct {
	linkRepo     repository.LinkRepository
	generate     CodeGenerator
	maxAttempts  int
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewLinkService creates and returns a new instance of LinkService.
func NewLinkService(linkRepo repository.LinkRepository, opts ...Option) *LinkService {
	s := &LinkService{
		linkRepo:     linkRepo,
		generate:     func() (string, error) { return GenerateShortCode(DefaultCodeLength) },
		maxAttempts:  DefaultMaxAttempts,
		storeTimeout: DefaultStoreTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateShortCode draws length characters uniformly from charset.
func GenerateShortCode(length int) (string, error) {
	code := make([]byte, length)
	max := big.NewInt(int64(len(charset)))
	for i := range code {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateLink reserves customCode when given, otherwise a random code.
func (s *LinkService) CreateLink(ctx context.Context, longURL, customCode string) (*models.Link, error) {
	if customCode != "" {
		return s.ReserveCustom(ctx, customCode, longURL)
	}
	return s.ReserveRandom(ctx, longURL)
}

// ReserveCustom stores longURL under a caller-chosen code. The atomic create is
// the only existence check.
func (s *LinkService) ReserveCustom(ctx context.Context, code, longURL string) (*models.Link, error) {
	if err := ValidateURL(longURL); err != nil {
		return nil, err
	}
	if err := ValidateCustomCode(code); err != nil {
		return nil, err
	}
	if reservedCodes[code] {
		return nil, fmt.Errorf("%w: %s is reserved", customerrors.ErrCodeTaken, code)
	}

	link, err := s.create(ctx, code, longURL)
	if err != nil {
		if errors.Is(err, customerrors.ErrDuplicateCode) {
			return nil, fmt.Errorf("%w: %s", customerrors.ErrCodeTaken, code)
		}
		return nil, err
	}

	logging.FromContext(ctx, s.logger).Info("link created", "code", link.Code, "custom", true)
	return link, nil
}

// ReserveRandom stores longURL under a generated code, regenerating on collision
// up to maxAttempts times.
func (s *LinkService) ReserveRandom(ctx context.Context, longURL string) (*models.Link, error) {
	if err := ValidateURL(longURL); err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx, s.logger)
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code, err := s.generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short code: %w", err)
		}
		if reservedCodes[code] {
			continue
		}

		link, err := s.create(ctx, code, longURL)
		if err == nil {
			logger.Info("link created", "code", link.Code, "custom", false, "attempts", attempt)
			return link, nil
		}
		if !errors.Is(err, customerrors.ErrDuplicateCode) {
			return nil, err
		}

		logger.Warn("short code collision, retrying", "code", code, "attempt", attempt, "max_attempts", s.maxAttempts)
	}

	return nil, fmt.Errorf("%w after %d attempts", customerrors.ErrAllocationExhausted, s.maxAttempts)
}

// GetLink retrieves a link by code without side effects.
func (s *LinkService) GetLink(ctx context.Context, code string) (*models.Link, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.linkRepo.GetLinkByCode(ctx, code)
}

// ListLinks returns every link, newest first.
func (s *LinkService) ListLinks(ctx context.Context) ([]models.Link, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.linkRepo.ListLinks(ctx)
}

// DeleteLink removes a link. Deleting twice reports ErrLinkNotFound.
func (s *LinkService) DeleteLink(ctx context.Context, code string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.linkRepo.DeleteLink(ctx, code); err != nil {
		return err
	}
	logging.FromContext(ctx, s.logger).Info("link deleted", "code", code)
	return nil
}

func (s *LinkService) create(ctx context.Context, code, longURL string) (*models.Link, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.linkRepo.CreateLink(ctx, code, longURL)
}

func (s *LinkService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}
