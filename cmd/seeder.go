package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/learning-platform/internal/auth"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample learners, programs and free enrollments for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			if _, err := db.Exec("TRUNCATE payment_orders, enrollments, programs, learners RESTART IDENTITY CASCADE"); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared existing data")
		}

		hash, err := auth.HashPassword("password", cfg.Security.BCryptCost)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}

		learners := []struct {
			Email string
			Name  string
			Phone string
		}{
			{"asha@mail.com", "Asha Verma", "9876543210"},
			{"ravi@mail.com", "Ravi Kumar", "9123456780"},
		}

		for _, l := range learners {
			res, err := db.Exec(
				`INSERT INTO learners (email, name, phone, password_hash, is_active, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, true, now(), now()) ON CONFLICT (email) DO NOTHING`,
				l.Email, l.Name, l.Phone, hash)
			if err != nil {
				log.Fatalf("failed to insert learner %s: %v", l.Email, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				fmt.Println("Seeded learner:", l.Email)
			} else {
				fmt.Println("learner already exists:", l.Email)
			}
		}

		programs := []struct {
			Slug  string
			Title string
			Desc  string
			Price string
		}{
			{"go-foundations", "Go Foundations", "Types, interfaces and the standard library", "1499.00"},
			{"distributed-systems", "Distributed Systems in Practice", "Consensus, queues and failure handling", "2999.50"},
			{"intro-sql", "Intro to SQL", "Free primer on relational databases", "0"},
		}

		for _, p := range programs {
			if _, err := db.Exec(
				`INSERT INTO programs (slug, title, description, price, currency, is_active, created_at, updated_at)
				 VALUES ($1, $2, $3, $4, $5, true, now(), now()) ON CONFLICT (slug) DO NOTHING`,
				p.Slug, p.Title, p.Desc, p.Price, cfg.Payment.Currency); err != nil {
				log.Fatalf("failed to insert program %s: %v", p.Slug, err)
			}
			fmt.Printf("Seeded program: %s\n", p.Slug)
		}

		// Every seeded learner starts on a free enrollment for each program.
		if _, err := db.Exec(
			`INSERT INTO enrollments (learner_id, program_id, type, created_at, updated_at)
			 SELECT l.id, p.id, 'FREE', now(), now() FROM learners l CROSS JOIN programs p
			 ON CONFLICT (learner_id, program_id) DO NOTHING`); err != nil {
			log.Fatalf("failed to seed enrollments: %v", err)
		}
		fmt.Println("Free enrollments seeded successfully")

		var learnerID int64
		if err := db.Get(&learnerID, "SELECT id FROM learners WHERE email = $1", learners[0].Email); err != nil {
			log.Fatalf("failed to lookup learner id: %v", err)
		}

		tokens := auth.NewJWTTokenGenerator(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.AccessTokenDuration)
		token, err := tokens.GenerateAccessToken(learnerID, learners[0].Email)
		if err != nil {
			log.Fatalf("failed to issue development token: %v", err)
		}
		fmt.Printf("Development token for %s (password: password):\n%s\n", learners[0].Email, token)
	},
}
