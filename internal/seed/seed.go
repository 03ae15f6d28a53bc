// Package seed fills the database with demo authors and posts.
// It is intended for development only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultPassword is shared by every seeded account.
const DefaultPassword = "password123"

// Options controls how much demo data is created.
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// MaxDays spreads post timestamps over this many days back.
	MaxDays int
	// Password overrides DefaultPassword.
	Password string
	// BcryptCost overrides bcrypt.DefaultCost.
	BcryptCost int
}

// Factory builds demo entities and persists them.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	hash string
}

// NewFactory hashes the shared password once and seeds the fake-data generator.
func NewFactory(db *gorm.DB, opts Options) (*Factory, error) {
	if opts.Password == "" {
		opts.Password = DefaultPassword
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	cost := opts.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), cost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	seed := time.Now().UnixNano()
	gofakeit.Seed(seed)
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), hash: string(hash)}, nil
}

// BuildUser returns an unsaved user with a unique-looking username and email.
func (f *Factory) BuildUser(n int) *models.User {
	base := strings.ToLower(gofakeit.Username())
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return -1
	}, base)
	suffix := fmt.Sprintf("%d", n)
	if limit := validation.MaxUsernameLength - len(suffix); len(base) > limit {
		base = base[:limit]
	}
	// A base ending in digits could collide with another base plus its counter.
	base = strings.TrimRight(base, "0123456789")
	if len(base) < validation.MinUsernameLength {
		base = "author"
	}
	username := base + suffix

	return &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: f.hash,
		Bio:          truncate(gofakeit.Sentence(8), validation.MaxBioLength),
	}
}

// BuildPost returns an unsaved post by author, dated somewhere in the last MaxDays.
func (f *Factory) BuildPost(author *models.User) *models.Post {
	back := time.Duration(f.rng.Intn(f.opts.MaxDays*24*60)) * time.Minute
	return &models.Post{
		Title:     truncate(strings.TrimSuffix(gofakeit.Sentence(5), "."), validation.MaxTitleLength),
		Body:      gofakeit.Paragraph(2, 4, 12, "\n\n"),
		UserID:    author.ID,
		CreatedAt: time.Now().UTC().Add(-back),
	}
}

// CreateUser persists a built user.
func (f *Factory) CreateUser(n int) (*models.User, error) {
	user := f.BuildUser(n)
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// CreatePostsBatch inserts posts in batches.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	return f.db.Omit("Author").CreateInBatches(posts, 100).Error
}

// Seed populates the database with demo authors and posts.
func Seed(db *gorm.DB, opts Options) ([]*models.User, error) {
	log.Printf("🌱 Seeding %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := ClearAll(db); err != nil {
			return nil, err
		}
	}

	f, err := NewFactory(db, opts)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, opts.NumUsers)
	for i := 1; i <= opts.NumUsers; i++ {
		user, err := f.CreateUser(i)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	log.Printf("✓ %d users created", len(users))

	if len(users) == 0 {
		return users, nil
	}

	posts := make([]*models.Post, 0, opts.NumPosts)
	for i := 0; i < opts.NumPosts; i++ {
		posts = append(posts, f.BuildPost(users[f.rng.Intn(len(users))]))
	}
	if err := f.CreatePostsBatch(posts); err != nil {
		return nil, fmt.Errorf("create posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))

	return users, nil
}

// ClearAll removes every post and user.
func ClearAll(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Post{}).Error; err != nil {
			return fmt.Errorf("clear posts: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&models.User{}).Error; err != nil {
			return fmt.Errorf("clear users: %w", err)
		}
		return nil
	})
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
