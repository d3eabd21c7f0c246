package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ripplefeed/backend/internal/logger"
	"github.com/ripplefeed/backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Seeder fills the database with development data
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// SeedDev seeds the development database with realistic data
func (s *Seeder) SeedDev() error {
	logger.Log.Info("Creating users...")
	users, err := s.seedUsers(50)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}

	logger.Log.Info("Creating posts...")
	posts, err := s.seedPosts(users, 200)
	if err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	logger.Log.Info("Creating comments...")
	if err := s.seedComments(users, posts, 600); err != nil {
		return fmt.Errorf("failed to seed comments: %w", err)
	}

	logger.Log.Info("Creating ratings...")
	if err := s.seedRatings(users, posts); err != nil {
		return fmt.Errorf("failed to seed ratings: %w", err)
	}

	logger.Log.Info("Seeding complete",
		zap.Int("users", len(users)),
		zap.Int("posts", len(posts)),
	)
	return nil
}

// SeedTest seeds a minimal fixture set
func (s *Seeder) SeedTest() error {
	users, err := s.seedUsers(3)
	if err != nil {
		return err
	}
	posts, err := s.seedPosts(users, 5)
	if err != nil {
		return err
	}
	return s.seedComments(users, posts, 10)
}

// Clean removes everything the seeder can create. Destructive.
func (s *Seeder) Clean() error {
	for _, model := range []interface{}{
		&models.PostRating{}, &models.Comment{}, &models.Post{},
		&models.Session{}, &models.User{},
	} {
		if err := s.db.Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedUsers(count int) ([]models.User, error) {
	// MinCost keeps seeding fast; these are throwaway dev credentials
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, count)
	for i := 0; i < count; i++ {
		email := gofakeit.Email()
		user := models.User{
			Username:     fmt.Sprintf("%s%d", gofakeit.Username(), i),
			FirstName:    gofakeit.FirstName(),
			LastName:     gofakeit.LastName(),
			Email:        &email,
			PasswordHash: string(hashed),
			AvatarURL:    gofakeit.ImageURL(200, 200),
		}
		if err := s.db.Create(&user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedPosts(users []models.User, count int) ([]models.Post, error) {
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[rand.Intn(len(users))]
		post := models.Post{
			AuthorID: author.ID,
			Content:  gofakeit.Sentence(12),
			Views:    int64(rand.Intn(5000)),
		}
		if err := s.db.Create(&post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

func (s *Seeder) seedComments(users []models.User, posts []models.Post, count int) error {
	for i := 0; i < count; i++ {
		comment := models.Comment{
			PostID:   posts[rand.Intn(len(posts))].ID,
			AuthorID: users[rand.Intn(len(users))].ID,
			Content:  gofakeit.Sentence(8),
		}
		if err := s.db.Create(&comment).Error; err != nil {
			return err
		}
	}
	return nil
}

// seedRatings gives each post a random slice of raters. One rating per
// user per post, matching the unique index.
func (s *Seeder) seedRatings(users []models.User, posts []models.Post) error {
	for _, post := range posts {
		raters := rand.Intn(len(users))
		perm := rand.Perm(len(users))
		for i := 0; i < raters; i++ {
			ratingType := models.RatingLike
			if rand.Intn(4) == 0 {
				ratingType = models.RatingDislike
			}
			rating := models.PostRating{
				PostID: post.ID,
				UserID: users[perm[i]].ID,
				Type:   ratingType,
			}
			if err := s.db.Create(&rating).Error; err != nil {
				return err
			}
		}
	}
	return nil
}
