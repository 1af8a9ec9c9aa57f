package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	customerrors "github.com/axellelanca/linkshortener/internal/errors"
	"github.com/axellelanca/linkshortener/internal/models"
	"gorm.io/gorm"
)

// LinkRepository est une interface qui définit les méthodes d'accès aux données.
// Every implementation must be safe for concurrent callers and enforce code
// uniqueness itself: CreateLink is the only authoritative collision check.
type LinkRepository interface {
	CreateLink(ctx context.Context, code, url string) (*models.Link, error)
	GetLinkByCode(ctx context.Context, code string) (*models.Link, error)
	ListLinks(ctx context.Context) ([]models.Link, error)
	DeleteLink(ctx context.Context, code string) error
	IncrementClick(ctx context.Context, code string) error
	Ping(ctx context.Context) error
}

// GormLinkRepository est l'implémentation de LinkRepository utilisant GORM.
type GormLinkRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewLinkRepository crée et retourne une nouvelle instance de GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// CreateLink insère un nouveau lien dans la base de données.
// The unique index on code turns a concurrent duplicate into ErrDuplicateCode.
func (r *GormLinkRepository) CreateLink(ctx context.Context, code, url string) (*models.Link, error) {
	link := &models.Link{
		Code:      code,
		URL:       url,
		CreatedAt: r.now(),
	}
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, fmt.Errorf("%w: %s", customerrors.ErrDuplicateCode, code)
		}
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	return link, nil
}

// GetLinkByCode récupère un lien de la base de données en utilisant son code.
func (r *GormLinkRepository) GetLinkByCode(ctx context.Context, code string) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).Where("code = ?", code).Take(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link %s: %w", code, err)
	}
	return &link, nil
}

// ListLinks récupère tous les liens, les plus récents en premier.
func (r *GormLinkRepository) ListLinks(ctx context.Context) ([]models.Link, error) {
	links := []models.Link{}
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve all links: %w", err)
	}
	return links, nil
}

// DeleteLink supprime un lien par son code.
func (r *GormLinkRepository) DeleteLink(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).Where("code = ?", code).Delete(&models.Link{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete link %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return customerrors.ErrLinkNotFound
	}
	return nil
}

// IncrementClick bumps clicks and last_clicked_at in one UPDATE statement so
// concurrent increments never read-modify-write the counter.
func (r *GormLinkRepository) IncrementClick(ctx context.Context, code string) error {
	res := r.db.WithContext(ctx).
		Model(&models.Link{}).
		Where("code = ?", code).
		UpdateColumns(map[string]any{
			"clicks":          gorm.Expr("clicks + ?", 1),
			"last_clicked_at": r.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to increment clicks for %s: %w", code, res.Error)
	}
	if res.RowsAffected == 0 {
		return customerrors.ErrLinkNotFound
	}
	return nil
}

// Ping vérifie que la base de données répond.
func (r *GormLinkRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// Drivers without error translation still report the constraint in the message.
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}
