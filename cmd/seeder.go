package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample entities, contracts and pending payments for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, err := bootstrap()
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			if _, err := db.Exec(`TRUNCATE audit_logs, notifications, users, payments, custom_negotiations, contracts, contracting_entities RESTART IDENTITY CASCADE`); err != nil {
				log.Fatalf("failed to clear data: %v", err)
			}
			fmt.Println("Cleared billing tables")
		}

		seeds := []struct {
			Type          string
			Name          string
			Registration  string
			PersonID      string
			PersonName    string
			PersonEmail   string
			Employees     int
			Total         string
			WithContract  bool
			Negotiation   bool
			PaymentMethod string
		}{
			{"entity", "Metalurgica Alfa", "11.222.333/0001-81", "529.982.247-25", "Carla Dias", "carla@alfa.example", 40, "1200.00", true, false, "pix"},
			{"clinic", "Clinica Boa Saude", "45.723.174/0001-10", "111.444.777-35", "Rui Martins", "rui@boasaude.example", 0, "300.00", true, false, "boleto"},
			{"entity", "Construtora Beta", "04.252.011/0001-10", "390.533.447-05", "Ana Souza", "ana@beta.example", 250, "7500.00", false, true, "credit_card"},
		}

		for _, s := range seeds {
			entityID, created, err := ensureEntity(db, s.Type, s.Name, s.Registration, s.PersonID, s.PersonName, s.PersonEmail)
			if err != nil {
				log.Fatalf("failed to seed entity %s: %v", s.Name, err)
			}
			if !created {
				fmt.Printf("Entity %s already exists; skipping\n", s.Name)
				continue
			}

			var contractID sql.NullInt64
			if s.WithContract {
				var id int64
				err := db.QueryRowx(`INSERT INTO contracts (entity_id, employee_count, total_value, status, created_at, updated_at)
					VALUES ($1, $2, $3, 'pending', now(), now()) RETURNING id`, entityID, s.Employees, s.Total).Scan(&id)
				if err != nil {
					log.Fatalf("failed to insert contract for %s: %v", s.Name, err)
				}
				contractID = sql.NullInt64{Int64: id, Valid: true}
			}

			if s.Negotiation {
				if _, err := db.Exec(`INSERT INTO custom_negotiations (entity_id, status, estimated_total, estimated_employees, created_at, updated_at)
					VALUES ($1, 'awaiting_payment', $2, $3, now(), now())`, entityID, s.Total, s.Employees); err != nil {
					log.Fatalf("failed to insert negotiation for %s: %v", s.Name, err)
				}
			}

			var paymentID int64
			err = db.QueryRowx(`INSERT INTO payments (entity_id, contract_id, amount, status, payment_method, installment_count, created_at, updated_at)
				VALUES ($1, $2, $3, 'pending', $4, 1, now(), now()) RETURNING id`, entityID, contractID, s.Total, s.PaymentMethod).Scan(&paymentID)
			if err != nil {
				log.Fatalf("failed to insert payment for %s: %v", s.Name, err)
			}

			fmt.Printf("Seeded %s %s with pending payment %d\n", s.Type, s.Name, paymentID)
		}

		fmt.Println("Billing sample data seeded successfully")
	},
}

func ensureEntity(db *sqlx.DB, kind, name, registration, personID, personName, personEmail string) (int64, bool, error) {
	var id int64
	err := db.QueryRowx(`SELECT id FROM contracting_entities WHERE registration_number = $1`, registration).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	err = db.QueryRowx(`INSERT INTO contracting_entities
			(type, name, registration_number, status, responsible_person_id, responsible_name, responsible_email, created_at, updated_at)
		VALUES ($1, $2, $3, 'awaiting_payment', $4, $5, $6, now(), now()) RETURNING id`,
		kind, name, registration, personID, personName, personEmail).Scan(&id)
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
