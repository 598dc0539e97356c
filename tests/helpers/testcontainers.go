// Helpers for running integration tests against a containerized database.
// Expects environment variables to be loaded from .env files when customized.

package helpers

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	_ "github.com/go-sql-driver/mysql"
	"github.com/openshelf/openshelf-server/internal/config"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	dbName     = "openshelf_test"
	dbUser     = "openshelf"
	dbPassword = "openshelf_test_pw"
)

// MariaDBContainer wraps a throwaway MariaDB instance for integration tests.
type MariaDBContainer struct {
	Container testcontainers.Container
	Config    *config.Config
}

func (m *MariaDBContainer) Terminate(t *testing.T) {
	t.Helper()
	if m.Container == nil {
		return
	}
	if err := m.Container.Terminate(context.Background()); err != nil {
		t.Logf("Failed to terminate MariaDB container: %v", err)
	}
}

// StartMariaDB launches a MariaDB container and returns a Config pointing at
// it. The image can be overridden with DB_IMAGE.
func StartMariaDB(t *testing.T) *MariaDBContainer {
	t.Helper()
	ctx := context.Background()

	image := os.Getenv("DB_IMAGE")
	if image == "" {
		image = "mariadb:11"
	}

	tcpPort, err := nat.NewPort("tcp", "3306")
	if err != nil {
		t.Fatalf("Failed to create port: %v", err)
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{string(tcpPort)},
			Env: map[string]string{
				"MARIADB_ROOT_PASSWORD": "rootpass",
				"MARIADB_DATABASE":      dbName,
				"MARIADB_USER":          dbUser,
				"MARIADB_PASSWORD":      dbPassword,
			},
			WaitingFor: wait.ForSQL(tcpPort, "mysql", func(host string, port nat.Port) string {
				return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", dbUser, dbPassword, host, port.Port(), dbName)
			}).WithStartupTimeout(120 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start MariaDB container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, tcpPort)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("Failed to get container port: %v", err)
	}

	cfg := &config.Config{
		Port:                "3000",
		DBType:              "mysql",
		DBHost:              host,
		DBPort:              port.Port(),
		DBDatabase:          dbName,
		DBUser:              dbUser,
		DBPassword:          dbPassword,
		DBConnectionLimit:   10,
		JWTSecret:           "integration-test-secret",
		TokenExpiryMinutes:  30,
		LoanPeriodDays:      14,
		MaxLoansPerUser:     3,
		OverdueSweepMinutes: 60,
		PreviewPageCount:    5,
	}

	return &MariaDBContainer{Container: container, Config: cfg}
}

// PingDatabase verifies direct SQL connectivity outside of GORM.
func PingDatabase(t *testing.T, cfg *config.Config) {
	t.Helper()
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBDatabase)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}
}
