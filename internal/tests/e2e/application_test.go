//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sidukcapil/apiserver/config"
	"github.com/sidukcapil/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

func TestApplicationLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	suffix := time.Now().UnixNano()

	citizenToken, err := registerUser(t, baseURL, fmt.Sprintf("warga_%d", suffix))
	if err != nil {
		t.Fatalf("register citizen: %v", err)
	}

	staffUsername := fmt.Sprintf("petugas_%d", suffix)
	staffToken, err := registerUser(t, baseURL, staffUsername)
	if err != nil {
		t.Fatalf("register staff: %v", err)
	}
	if err := promoteUser(staffUsername, "PETUGAS"); err != nil {
		t.Fatalf("promote staff: %v", err)
	}

	populationID, err := createPopulation(t, baseURL, staffToken, fmt.Sprintf("%016d", suffix%10000000000000000))
	if err != nil {
		t.Fatalf("create population: %v", err)
	}

	app, err := createApplication(t, baseURL, citizenToken, populationID)
	if err != nil {
		t.Fatalf("create application: %v", err)
	}
	if app.Status != "DRAFT" {
		t.Fatalf("expected DRAFT, got %s", app.Status)
	}
	if !strings.HasPrefix(app.ApplicationNumber, "APP") {
		t.Fatalf("unexpected application number %q", app.ApplicationNumber)
	}

	submitted, err := submitApplication(t, baseURL, citizenToken, app.ID)
	if err != nil {
		t.Fatalf("submit application: %v", err)
	}
	if submitted.Status != "SUBMITTED" {
		t.Fatalf("expected SUBMITTED, got %s", submitted.Status)
	}

	// Staff cannot jump SUBMITTED straight to APPROVED.
	if _, err := updateStatus(t, baseURL, staffToken, app.ID, "APPROVED", http.StatusConflict); err != nil {
		t.Fatalf("expected conflict on SUBMITTED->APPROVED: %v", err)
	}

	processing, err := updateStatus(t, baseURL, staffToken, app.ID, "PROCESSING", http.StatusOK)
	if err != nil {
		t.Fatalf("to PROCESSING: %v", err)
	}
	if processing.Status != "PROCESSING" {
		t.Fatalf("expected PROCESSING, got %s", processing.Status)
	}

	approved, err := updateStatus(t, baseURL, staffToken, app.ID, "APPROVED", http.StatusOK)
	if err != nil {
		t.Fatalf("to APPROVED: %v", err)
	}
	if approved.Status != "APPROVED" {
		t.Fatalf("expected APPROVED, got %s", approved.Status)
	}
	if approved.ProcessedBy == nil {
		t.Fatalf("expected processed_by to be stamped")
	}

	// Citizens cannot change status even on their own application.
	if _, err := updateStatus(t, baseURL, citizenToken, app.ID, "REJECTED", http.StatusForbidden); err != nil {
		t.Fatalf("expected forbidden for citizen status change: %v", err)
	}
}

type applicationResponse struct {
	ID                int    `json:"id"`
	ApplicationNumber string `json:"application_number"`
	Status            string `json:"status"`
	ProcessedBy       *int   `json:"processed_by"`
}

type authResponse struct {
	Token string `json:"token"`
}

func registerUser(t *testing.T, baseURL, username string) (string, error) {
	t.Helper()

	payload := map[string]string{
		"username": username,
		"email":    fmt.Sprintf("%s@example.com", username),
		"password": "testpass123!",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	resp, err := http.Post(baseURL+"/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("register status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed authResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if parsed.Token == "" {
		return "", fmt.Errorf("missing token in register response")
	}
	return parsed.Token, nil
}

func promoteUser(username, role string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = db.ExecContext(ctx, "UPDATE users SET role = $1, updated_at = NOW() WHERE username = $2", role, username)
	return err
}

func createPopulation(t *testing.T, baseURL, token, nik string) (int, error) {
	t.Helper()

	payload := map[string]any{
		"nik":               nik,
		"nama_lengkap":      "Budi Santoso",
		"tempat_lahir":      "Bandung",
		"tanggal_lahir":     "1990-01-15",
		"jenis_kelamin":     "LAKI_LAKI",
		"agama":             "ISLAM",
		"status_perkawinan": "KAWIN",
		"pekerjaan":         "Wiraswasta",
		"kewarganegaraan":   "WNI",
		"alamat":            "Jl. Merdeka No. 1",
		"rt":                "001",
		"rw":                "002",
		"kelurahan":         "Cihapit",
		"kecamatan":         "Bandung Wetan",
		"kabupaten":         "Kota Bandung",
		"provinsi":          "Jawa Barat",
		"kode_pos":          "40114",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/population", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("create population status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, err
	}
	return parsed.ID, nil
}

func createApplication(t *testing.T, baseURL, token string, populationID int) (applicationResponse, error) {
	t.Helper()

	payload := map[string]any{
		"application_type": "KTP_BARU",
		"population_id":    populationID,
		"application_data": map[string]string{"reason": "first issuance"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return applicationResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+"/applications", bytes.NewReader(body))
	if err != nil {
		return applicationResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return applicationResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return applicationResponse{}, fmt.Errorf("create application status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed applicationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return applicationResponse{}, err
	}
	return parsed, nil
}

func submitApplication(t *testing.T, baseURL, token string, id int) (applicationResponse, error) {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/applications/%d/submit", baseURL, id), nil)
	if err != nil {
		return applicationResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return applicationResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return applicationResponse{}, fmt.Errorf("submit status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var parsed applicationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return applicationResponse{}, err
	}
	return parsed, nil
}

func updateStatus(t *testing.T, baseURL, token string, id int, status string, wantStatus int) (applicationResponse, error) {
	t.Helper()

	payload := map[string]string{"status": status}
	body, err := json.Marshal(payload)
	if err != nil {
		return applicationResponse{}, err
	}

	req, err := http.NewRequest(http.MethodPut, fmt.Sprintf("%s/applications/%d/status", baseURL, id), bytes.NewReader(body))
	if err != nil {
		return applicationResponse{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return applicationResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(resp.Body)
		return applicationResponse{}, fmt.Errorf("update status got %d want %d: %s", resp.StatusCode, wantStatus, strings.TrimSpace(string(msg)))
	}
	if wantStatus != http.StatusOK {
		return applicationResponse{}, nil
	}

	var parsed applicationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return applicationResponse{}, err
	}
	return parsed, nil
}

func waitForPostgres(ctx context.Context) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	cfg := config.LoadConfig()
	dsn := buildPostgresURL(cfg)
	migrationsPath := filepath.Join(root, "internal", "db", "migrations")
	migrationsURL := "file://" + migrationsPath

	migrator, err := migrate.New(migrationsURL, dsn)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func buildPostgresURL(cfg config.Config) string {
	sslmode := "disable"
	if cfg.Database.UseSSL {
		sslmode = "require"
	}
	host := fmt.Sprintf("%s:%d", cfg.Database.Host, cfg.Database.Port)
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		host,
		cfg.Database.DBName,
		sslmode,
	)
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "sidukcapil")
	_ = os.Setenv("DB_PASSWORD", "sidukcapil")
	_ = os.Setenv("DB_NAME", "sidukcapil")
	_ = os.Setenv("DB_USE_SSL", "false")
	_ = os.Setenv("MINIO_ACCESS_KEY", "minioadmin")
	_ = os.Setenv("MINIO_SECRET_KEY", "minioadmin")
	_ = os.Setenv("MINIO_BUCKET", "documents")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg)
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}
