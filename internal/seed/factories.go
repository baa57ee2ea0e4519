// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"amor/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "Password123!"

var demoTags = []string{
	"cute", "couple", "anime", "friends", "matching", "aesthetic",
	"pastel", "retro", "duo", "trio", "cats", "sunset",
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db   *gorm.DB
	opts Options
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	//nolint:gosec // Weak random number generator is fine for seeding
	return &Factory{db: db, opts: opts, rng: rand.New(rand.NewSource(seed)), nextID: 1000}
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Name:  gofakeit.FirstName() + " " + gofakeit.LastName(),
		Email: strings.ToLower(fmt.Sprintf("%s.%d@example.com", gofakeit.Username(), gofakeit.Number(100, 999999))),
		Image: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Role:  models.RoleUser,
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = DemoPassword
	} else {
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s <%s>", user.Name, user.Email)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildGroup constructs a group with 2 to 4 placeholder images without persisting it.
// Image keys follow the object-store key format so a later denial can purge them.
func (f *Factory) BuildGroup(owner *models.User, approved bool, overrides ...func(*models.Group)) *models.Group {
	group := &models.Group{
		Name:   gofakeit.AdjectiveDescriptive() + " " + gofakeit.NounAbstract(),
		Tags:   f.pickTags(1 + f.rng.Intn(3)),
		UserID: owner.ID,
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	group.CreatedAt = time.Now().UTC().Add(-time.Duration(daysBack)*24*time.Hour - time.Duration(hoursBack)*time.Hour)

	if approved {
		at := group.CreatedAt.Add(time.Duration(1+f.rng.Intn(48)) * time.Hour)
		group.ApprovedAt = &at
		group.LastReviewedAt = &at
	}

	n := models.MinGroupImages + f.rng.Intn(models.MaxGroupImages-models.MinGroupImages+1)
	style := gofakeit.UUID()
	for i := 0; i < n; i++ {
		key := gofakeit.UUID() + ".jpg"
		group.Images = append(group.Images, models.Image{
			ID:  key,
			URL: fmt.Sprintf("https://picsum.photos/seed/%s-%d/600/600", style, i),
		})
	}

	for _, override := range overrides {
		override(group)
	}
	return group
}

// CreateGroup builds and persists a group together with its images.
func (f *Factory) CreateGroup(owner *models.User, approved bool, overrides ...func(*models.Group)) (*models.Group, error) {
	group := f.BuildGroup(owner, approved, overrides...)

	if f.opts.DryRun {
		f.nextID++
		group.ID = f.nextID
		log.Printf("[dry-run] CreateGroup: %q with %d images", group.Name, len(group.Images))
		return group, nil
	}

	if err := f.db.Omit("User").Create(group).Error; err != nil {
		return nil, err
	}
	return group, nil
}

func (f *Factory) pickTags(n int) []string {
	perm := f.rng.Perm(len(demoTags))
	tags := make([]string, 0, n)
	for _, i := range perm[:n] {
		tags = append(tags, demoTags[i])
	}
	return tags
}
