package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/eduviet/eduviet-server/config"
	"github.com/eduviet/eduviet-server/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "admin@eduviet.vn"
	password := "admin12345"
	hash, err := helpers.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var adminID string
	err = db.QueryRow(`
		INSERT INTO users (fullname, username, email, password, slug, role, status, account_package, is_verified)
		VALUES ('EduViet Admin', 'admin', $1, $2, 'eduviet-admin', 'admin', 'active', 'premium', TRUE)
		ON CONFLICT (email) DO UPDATE SET updated_at = now()
		RETURNING id
	`, email, hash).Scan(&adminID)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: id=%s email=%s password=%s\n", adminID, email, password)

	// Package catalog
	pkgs := []struct {
		name  string
		ptype string
		days  int
		price int64
	}{
		{"Free", "free", 36500, 0},
		{"Basic", "basic", 30, 99000},
		{"Basic Annual", "basic", 365, 990000},
		{"Premium", "premium", 30, 199000},
		{"Premium Annual", "premium", 365, 1990000},
	}
	for _, p := range pkgs {
		if _, err := db.Exec(`
			INSERT INTO packages (name, type, duration_days, price, currency)
			VALUES ($1, $2, $3, $4, 'VND')
			ON CONFLICT (name) DO UPDATE SET price = EXCLUDED.price, updated_at = now()
		`, p.name, p.ptype, p.days, p.price); err != nil {
			log.Fatalf("failed to seed package %s: %v", p.name, err)
		}
	}
	fmt.Printf("seeded %d packages\n", len(pkgs))

	// System invitation code for onboarding campaigns
	code, err := helpers.GenInvitationCode("welcome", adminID)
	if err != nil {
		log.Fatalf("failed to generate invitation code: %v", err)
	}
	var inviteID string
	err = db.QueryRow(`
		INSERT INTO invitation_codes (code, event, description, type, total_uses, uses_left, started_at, is_system, created_by)
		SELECT $1, 'welcome', 'System onboarding code', 'special', 10000, 10000, now(), TRUE, $2
		WHERE NOT EXISTS (SELECT 1 FROM invitation_codes WHERE is_system AND event = 'welcome')
		RETURNING id
	`, code, adminID).Scan(&inviteID)
	if err == sql.ErrNoRows {
		fmt.Println("system invitation code already present")
		return
	}
	if err != nil {
		log.Fatalf("failed to seed invitation code: %v", err)
	}
	fmt.Printf("seeded system invitation code: id=%s code=%s\n", inviteID, code)
}
