package cmd

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with departments, users and services for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer db.Close()

		if clearData {
			for _, table := range []string{
				"credential_versions", "credentials", "access_requests",
				"department_shares", "service_accesses", "audit_logs",
				"services", "users", "departments",
			} {
				if _, err := db.Exec("DELETE FROM " + table); err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)

		departments := []struct {
			Name      string
			SortOrder int
		}{
			{"Infrastructure", 1},
			{"Data", 2},
			{"Security", 3},
		}
		for _, d := range departments {
			seedDepartment(db, d.Name, d.SortOrder)
		}

		users := []struct {
			PortalLogin string
			FullName    string
			Email       string
			Role        string
			Department  string
			IsSuperuser bool
		}{
			{"root", "Root Admin", "root@corp.local", "head", "", true},
			{"infra.head", "Ines Fradera", "ines@corp.local", "head", "Infrastructure", false},
			{"data.head", "Dana Harmaja", "dana@corp.local", "head", "Data", false},
			{"infra.emp", "Ivo Prasetyo", "ivo@corp.local", "employee", "Infrastructure", false},
			{"data.emp", "Dewi Larasati", "dewi@corp.local", "employee", "Data", false},
		}
		for _, u := range users {
			seedUser(db, u.PortalLogin, u.FullName, u.Email, u.Role, u.Department, u.IsSuperuser, string(hash))
		}

		services := []struct {
			Name       string
			URL        string
			Department string
		}{
			{"Grafana", "https://grafana.corp.local", "Infrastructure"},
			{"Bastion", "ssh://bastion.corp.local", "Infrastructure"},
			{"Warehouse", "https://warehouse.corp.local", "Data"},
		}
		for _, s := range services {
			seedService(db, s.Name, s.URL, s.Department)
		}

		fmt.Println("Seed completed")
	},
}

func seedDepartment(db *sqlx.DB, name string, sortOrder int) {
	var exists int
	if err := db.QueryRow("SELECT 1 FROM departments WHERE name = $1", name).Scan(&exists); err == nil {
		return
	}
	if _, err := db.Exec(
		"INSERT INTO departments (name, sort_order, is_active, created_at) VALUES ($1, $2, true, now())",
		name, sortOrder,
	); err != nil {
		log.Fatalf("failed to insert department %s: %v", name, err)
	}
	fmt.Println("Seeded department:", name)
}

func seedUser(db *sqlx.DB, portalLogin, fullName, email, role, department string, isSuperuser bool, passwordHash string) {
	var exists int
	if err := db.QueryRow("SELECT 1 FROM users WHERE portal_login = $1", portalLogin).Scan(&exists); err == nil {
		return
	}

	var departmentID *int64
	if department != "" {
		var id int64
		if err := db.QueryRow("SELECT id FROM departments WHERE name = $1", department).Scan(&id); err != nil {
			log.Fatalf("department not found for user %s: %v", portalLogin, err)
		}
		departmentID = &id
	}

	if _, err := db.Exec(
		`INSERT INTO users (portal_login, full_name, email, role, department_id, is_superuser, is_active, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, true, $7, now(), now())`,
		portalLogin, fullName, email, role, departmentID, isSuperuser, passwordHash,
	); err != nil {
		log.Fatalf("failed to insert user %s: %v", portalLogin, err)
	}
	fmt.Println("Seeded user:", portalLogin)
}

func seedService(db *sqlx.DB, name, url, department string) {
	var exists int
	if err := db.QueryRow("SELECT 1 FROM services WHERE name = $1", name).Scan(&exists); err == nil {
		return
	}

	var departmentID int64
	if err := db.QueryRow("SELECT id FROM departments WHERE name = $1", department).Scan(&departmentID); err != nil {
		log.Fatalf("department not found for service %s: %v", name, err)
	}

	if _, err := db.Exec(
		"INSERT INTO services (name, url, department_id, is_active, created_at) VALUES ($1, $2, $3, true, now())",
		name, url, departmentID,
	); err != nil {
		log.Fatalf("failed to insert service %s: %v", name, err)
	}
	fmt.Println("Seeded service:", name)
}
