package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/tastetrack/db"
	"github.com/xenking/tastetrack/internal/domain/apperr"
	"github.com/xenking/tastetrack/internal/domain/auth"
	"github.com/xenking/tastetrack/internal/domain/catalog"
	"github.com/xenking/tastetrack/internal/domain/user"
	"github.com/xenking/tastetrack/internal/storage/postgres"
)

type menuItemJSON struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	IsVeg       bool            `json:"isVeg"`
	Rating      float64         `json:"rating"`
}

type restaurantJSON struct {
	Name         string          `json:"name"`
	Cuisine      string          `json:"cuisine"`
	Rating       float64         `json:"rating"`
	DeliveryTime string          `json:"deliveryTime"`
	MinOrder     decimal.Decimal `json:"minOrder"`
	Image        string          `json:"image"`
	Address      string          `json:"address"`
	IsOpen       bool            `json:"isOpen"`
	Menu         []menuItemJSON  `json:"menu"`
}

type fixtures struct {
	Restaurants []restaurantJSON `json:"restaurants"`
}

type seeder struct {
	users       *postgres.UserRepository
	restaurants *postgres.RestaurantRepository
	menu        *postgres.MenuRepository
	tx          *postgres.Transactor
}

func main() {
	var (
		databaseURL   string
		fixturesFile  string
		adminEmail    string
		adminPassword string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&fixturesFile, "fixtures-file", "", "path to restaurants/menu JSON file (defaults to the embedded demo catalog)")
	flag.StringVar(&adminEmail, "admin-email", "admin@tastetrack.local", "admin account email (or TASTETRACK_ADMIN_EMAIL env)")
	flag.StringVar(&adminPassword, "admin-password", "", "admin account password (or TASTETRACK_ADMIN_PASSWORD env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if v := os.Getenv("TASTETRACK_ADMIN_EMAIL"); v != "" {
		adminEmail = v
	}
	if adminPassword == "" {
		adminPassword = os.Getenv("TASTETRACK_ADMIN_PASSWORD")
	}
	if len(adminPassword) < auth.MinPasswordLength {
		slog.Error("admin password is required: set --admin-password or TASTETRACK_ADMIN_PASSWORD",
			slog.Int("min_length", auth.MinPasswordLength))
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, fixturesFile, adminEmail, adminPassword); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, fixturesFile, adminEmail, adminPassword string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	s := &seeder{
		users:       postgres.NewUserRepository(pool),
		restaurants: postgres.NewRestaurantRepository(pool),
		menu:        postgres.NewMenuRepository(pool),
		tx:          postgres.NewTransactor(pool),
	}

	if err := s.seedAdmin(ctx, adminEmail, adminPassword); err != nil {
		return errors.Wrap(err, "seed admin")
	}

	if err := s.seedCatalog(ctx, fixturesFile); err != nil {
		return errors.Wrap(err, "seed catalog")
	}

	return nil
}

// seedAdmin creates the admin account, or resets its password and role when
// it already exists.
func (s *seeder) seedAdmin(ctx context.Context, email, password string) error {
	email = user.NormalizeEmail(email)
	slog.Info("seeding admin account", slog.String("email", email))

	hash, err := auth.NewBcryptHasher(bcrypt.DefaultCost).Hash(password)
	if err != nil {
		return err
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		existing.PasswordHash = hash
		existing.Role = user.RoleAdmin
		existing.Enabled = true
		if err := s.users.Update(ctx, existing); err != nil {
			return errors.Wrap(err, "update admin")
		}
		slog.Info("admin account already exists, password reset", slog.Int64("id", existing.ID))
		return nil
	case errors.Is(err, apperr.ErrNotFound):
	default:
		return errors.Wrap(err, "get admin")
	}

	admin := &user.User{
		FirstName:    "Admin",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleAdmin,
		Enabled:      true,
	}
	if err := s.users.Create(ctx, admin); err != nil {
		return errors.Wrap(err, "create admin")
	}
	slog.Info("created admin account", slog.Int64("id", admin.ID))
	return nil
}

// seedCatalog inserts the fixture restaurants that do not exist yet, matched
// by name, each with its menu in one transaction.
func (s *seeder) seedCatalog(ctx context.Context, path string) error {
	data := db.Fixtures
	if path != "" {
		slog.Info("reading fixtures file", slog.String("path", path))

		var err error
		if data, err = os.ReadFile(path); err != nil {
			return errors.Wrap(err, "read fixtures file")
		}
	}

	var fx fixtures
	if err := json.Unmarshal(data, &fx); err != nil {
		return errors.Wrap(err, "parse fixtures JSON")
	}

	existing, err := s.restaurants.List(ctx)
	if err != nil {
		return errors.Wrap(err, "list restaurants")
	}
	known := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		known[strings.ToLower(r.Name)] = struct{}{}
	}

	for _, fr := range fx.Restaurants {
		if _, ok := known[strings.ToLower(fr.Name)]; ok {
			slog.Info("restaurant already present, skipping", slog.String("name", fr.Name))
			continue
		}

		var id int64
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			r := &catalog.Restaurant{
				Name:         fr.Name,
				Cuisine:      fr.Cuisine,
				Rating:       fr.Rating,
				DeliveryTime: fr.DeliveryTime,
				MinOrder:     fr.MinOrder,
				Image:        fr.Image,
				Address:      fr.Address,
				IsOpen:       fr.IsOpen,
			}
			if err := s.restaurants.Create(ctx, r); err != nil {
				return errors.Wrap(err, "create restaurant")
			}
			for _, fm := range fr.Menu {
				if err := s.menu.Create(ctx, &catalog.MenuItem{
					RestaurantID: r.ID,
					Name:         fm.Name,
					Description:  fm.Description,
					Price:        fm.Price,
					Image:        fm.Image,
					Category:     fm.Category,
					IsVeg:        fm.IsVeg,
					Rating:       fm.Rating,
				}); err != nil {
					return errors.Wrapf(err, "create menu item %q", fm.Name)
				}
			}
			id = r.ID
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "seed restaurant %q", fr.Name)
		}

		slog.Info("seeded restaurant",
			slog.Int64("id", id),
			slog.String("name", fr.Name),
			slog.Int("menu_items", len(fr.Menu)),
		)
	}

	return nil
}
