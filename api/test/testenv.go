package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/jmoiron/sqlx"
	"github.com/klarvik/webshop/api"
	"github.com/klarvik/webshop/api/background"
	"github.com/klarvik/webshop/config"
	"github.com/klarvik/webshop/core/auth"
	"github.com/klarvik/webshop/core/claims"
	"github.com/klarvik/webshop/database"
	"github.com/klarvik/webshop/validate"
	"github.com/ory/dockertest/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// TestEnv runs the whole API against a disposable Postgres container.
type TestEnv struct {
	DB     *sqlx.DB
	Server *httptest.Server
	URL    string

	UserID    string
	UserEmail string
	UserPass  string

	AdminID    string
	AdminEmail string
	AdminPass  string

	client *http.Client
}

func NewTestEnv(t *testing.T, name string) (*TestEnv, error) {
	t.Helper()

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("skipping: cannot create docker pool: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("skipping: docker not available: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "15-alpine",
		Env: []string{
			"POSTGRES_USER=postgres",
			"POSTGRES_PASSWORD=postgres",
			"POSTGRES_DB=" + name,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("starting postgres container: %w", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	var db *sqlx.DB
	err = pool.Retry(func() error {
		db, err = database.Open(config.DB{
			User:         "postgres",
			Password:     "postgres",
			Host:         resource.GetHostPort("5432/tcp"),
			Name:         name,
			MaxIdleConns: 2,
			MaxOpenConns: 10,
			DisableTLS:   true,
		})
		if err != nil {
			return err
		}
		return db.Ping()
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrating: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	session := scs.New()
	session.Lifetime = time.Hour

	bg := background.New(logger)

	srv := httptest.NewServer(api.APIMux(api.APIConfig{
		Log:          logger,
		DB:           db,
		Session:      session,
		TokenTimeout: time.Hour,
		Background:   bg,
	}))
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}

	env := &TestEnv{
		DB:     db,
		Server: srv,
		URL:    srv.URL,

		UserEmail: "user@test.com",
		UserPass:  "userpassword",

		AdminEmail: "admin@test.com",
		AdminPass:  "adminpassword",

		client: &http.Client{Jar: jar},
	}

	if env.UserID, err = env.createUser(env.UserEmail, env.UserPass, claims.RoleUser); err != nil {
		return nil, err
	}
	if env.AdminID, err = env.createUser(env.AdminEmail, env.AdminPass, claims.RoleAdmin); err != nil {
		return nil, err
	}

	return env, nil
}

func (te *TestEnv) Client() *http.Client {
	return te.client
}

// createUser inserts directly: signup cannot mint admins.
func (te *TestEnv) createUser(email string, pass string, role string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pass), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}

	now := time.Now().UTC()
	user := auth.User{
		ID:           validate.GenerateID(),
		Email:        email,
		Username:     "test-" + role,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := auth.CreateUser(context.Background(), te.DB, user); err != nil {
		return "", fmt.Errorf("creating %s user: %w", role, err)
	}

	return user.ID, nil
}

// Login exchanges credentials for a bearer token.
func (te *TestEnv) Login(email string, pass string) (string, error) {
	body, err := json.Marshal(map[string]string{"email": email, "password": pass})
	if err != nil {
		return "", err
	}

	w, err := te.client.Post(te.URL+"/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed: status code %s", w.Status)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		return "", err
	}

	return out.Token, nil
}

// Do issues a JSON request, optionally with a bearer token, and decodes the
// response body into out when out is non-nil.
func (te *TestEnv) Do(method string, path string, token string, in any, out any) (int, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(raw)
	}

	r, err := http.NewRequest(method, te.URL+path, body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		r.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}

	w, err := te.client.Do(r)
	if err != nil {
		return 0, err
	}
	defer w.Body.Close()

	if out != nil {
		if err := json.NewDecoder(w.Body).Decode(out); err != nil && err != io.EOF {
			return w.StatusCode, fmt.Errorf("decoding response: %w", err)
		}
	}

	return w.StatusCode, nil
}
