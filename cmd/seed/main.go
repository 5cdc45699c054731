package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/oksasatya/go-realtime-relay/config"
)

// Seeds a couple of demo users and a short conversation for local
// development. Login still goes through the OTP flow.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	users := []struct {
		firstname, lastname, username, email string
	}{
		{"Oksa", "Satya", "oksasatya", "oksasatyaa@gmail.com"},
		{"Demo", "User", "demouser", "demo@example.com"},
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		var id string
		err := db.QueryRow(`
			INSERT INTO users (firstname, lastname, username, email)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (email) DO UPDATE SET firstname=EXCLUDED.firstname, lastname=EXCLUDED.lastname
			RETURNING id
		`, u.firstname, u.lastname, u.username, u.email).Scan(&id)
		if err != nil {
			log.Fatalf("failed to seed user %s: %v", u.email, err)
		}
		fmt.Printf("seeded user: id=%s email=%s\n", id, u.email)
		ids = append(ids, id)
	}

	messages := []struct {
		userIdx int
		body    string
	}{
		{0, "hey, is this thing on?"},
		{1, "loud and clear"},
		{0, "nice, history replay should pick these up"},
	}
	for _, m := range messages {
		if _, err := db.Exec(`
			INSERT INTO messages (user_id, body) VALUES ($1, $2)
		`, ids[m.userIdx], m.body); err != nil {
			log.Fatalf("failed to seed message: %v", err)
		}
	}
	fmt.Printf("seeded %d messages\n", len(messages))
}
