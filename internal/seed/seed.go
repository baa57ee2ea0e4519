package seed

import (
	"errors"
	"fmt"
	"log"
	"math"

	"amor/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers  int
	NumGroups int
	// ApprovedRatio is the share of seeded groups that start approved.
	ApprovedRatio float64
	MaxDays       int
	SkipBcrypt    bool
	DryRun        bool
	RandSeed      int64
}

// Summary reports what a seeding run created.
type Summary struct {
	Users    int
	Groups   int
	Approved int
}

// Seeder populates the database with demo users and groups.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	opts    Options
}

// NewSeeder returns a Seeder writing to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.ApprovedRatio < 0 || opts.ApprovedRatio > 1 {
		opts.ApprovedRatio = 0.75
	}
	return &Seeder{db: db, factory: NewFactory(db, opts), opts: opts}
}

// ClearAll removes notifications, images, groups and users.
func (s *Seeder) ClearAll() error {
	log.Println("🗑️  Clearing existing data...")
	if s.opts.DryRun {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.Notification{}, &models.Image{}, &models.Group{}, &models.User{}} {
			if err := all.Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedUsers creates n regular users.
func (s *Seeder) SeedUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		u, err := s.factory.CreateUser()
		if err != nil {
			return users, fmt.Errorf("create user %d: %w", i, err)
		}
		users = append(users, u)
	}
	return users, nil
}

// SeedGroups creates n groups spread across owners. The first
// round(n*ApprovedRatio) groups are approved, the rest stay pending.
func (s *Seeder) SeedGroups(owners []*models.User, n int) (Summary, error) {
	var sum Summary
	if len(owners) == 0 {
		return sum, errors.New("at least one owner is required")
	}
	approved := int(math.Round(float64(n) * s.opts.ApprovedRatio))
	for i := 0; i < n; i++ {
		owner := owners[i%len(owners)]
		if _, err := s.factory.CreateGroup(owner, i < approved); err != nil {
			return sum, fmt.Errorf("create group %d: %w", i, err)
		}
		sum.Groups++
		if i < approved {
			sum.Approved++
		}
	}
	return sum, nil
}

// Run seeds NumUsers users and NumGroups groups.
func (s *Seeder) Run() (Summary, error) {
	log.Printf("🌱 Starting database seeding with %d users and %d groups...", s.opts.NumUsers, s.opts.NumGroups)

	users, err := s.SeedUsers(s.opts.NumUsers)
	if err != nil {
		return Summary{}, err
	}
	log.Printf("✓ %d users created", len(users))

	sum, err := s.SeedGroups(users, s.opts.NumGroups)
	sum.Users = len(users)
	if err != nil {
		return sum, err
	}
	log.Printf("✓ %d groups created (%d approved)", sum.Groups, sum.Approved)
	return sum, nil
}

// Demo seeds a small data set when the database holds no groups yet.
// It is safe to call on every start.
func Demo(db *gorm.DB) (Summary, error) {
	var count int64
	if err := db.Model(&models.Group{}).Count(&count).Error; err != nil {
		return Summary{}, err
	}
	if count > 0 {
		return Summary{}, nil
	}
	return NewSeeder(db, Options{NumUsers: 4, NumGroups: 12, ApprovedRatio: 0.75}).Run()
}
