package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zenga/cms/internal/models"
	"github.com/zenga/cms/internal/server/storage/sqlite"
)

// fakeConsole отдает заготовленные ответы и копит вывод
type fakeConsole struct {
	out       bytes.Buffer
	passwords []string
	prompts   []string
}

func (f *fakeConsole) Println(a ...any) {}

func (f *fakeConsole) Printf(format string, a ...any) {
	fmt.Fprintf(&f.out, format, a...)
}

func (f *fakeConsole) ReadInput(prompt string) (string, error) {
	return f.ReadPassword(prompt)
}

func (f *fakeConsole) ReadPassword(prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if len(f.passwords) == 0 {
		return "", errors.New("no input")
	}
	p := f.passwords[0]
	f.passwords = f.passwords[1:]
	return p, nil
}

func run(t *testing.T, console *fakeConsole, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand(BuildInfo{Version: "1.2.3", BuildDate: "2026-01-01", GitCommit: "abc123"}, console)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func setupDatabaseEnv(t *testing.T) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "zenga.db")
	t.Setenv("DATABASE_PATH", dbPath)
	t.Setenv("BCRYPT_COST", "4")
	return dbPath
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, &fakeConsole{}, "version")
	require.NoError(t, err)

	assert.Contains(t, out, "Version:    1.2.3")
	assert.Contains(t, out, "Build Date: 2026-01-01")
	assert.Contains(t, out, "Git Commit: abc123")
}

func TestCreateAdmin_PasswordArgument(t *testing.T) {
	dbPath := setupDatabaseEnv(t)
	console := &fakeConsole{}

	_, err := run(t, console, "create-admin", "Boss@Zenga.com", "secret-pass", "--name", "Boss")
	require.NoError(t, err)
	assert.Empty(t, console.prompts)
	assert.Contains(t, console.out.String(), "Administrator created")

	store, err := sqlite.New(context.Background(), dbPath)
	require.NoError(t, err)
	defer store.Close()

	user, err := store.GetUserByEmail(context.Background(), "boss@zenga.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.Equal(t, "Boss", user.Name)
	assert.Nil(t, user.OpenID)
}

func TestCreateAdmin_NameDefaultsToEmailLocalPart(t *testing.T) {
	dbPath := setupDatabaseEnv(t)

	_, err := run(t, &fakeConsole{}, "create-admin", "Selin.Kaya@Zenga.com", "secret-pass")
	require.NoError(t, err)

	store, err := sqlite.New(context.Background(), dbPath)
	require.NoError(t, err)
	defer store.Close()

	user, err := store.GetUserByEmail(context.Background(), "selin.kaya@zenga.com")
	require.NoError(t, err)
	assert.Equal(t, "selin.kaya", user.Name)
}

func TestCreateAdmin_RejectsExistingEmail(t *testing.T) {
	setupDatabaseEnv(t)

	_, err := run(t, &fakeConsole{}, "create-admin", "boss@zenga.com", "secret-pass")
	require.NoError(t, err)

	_, err = run(t, &fakeConsole{}, "create-admin", "boss@zenga.com", "other-pass")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestCreateAdmin_PromptsForPassword(t *testing.T) {
	setupDatabaseEnv(t)

	tests := []struct {
		name      string
		passwords []string
		wantErr   string
	}{
		{name: "confirmed", passwords: []string{"secret-pass", "secret-pass"}},
		{name: "mismatch", passwords: []string{"secret-pass", "other-pass"}, wantErr: "passwords do not match"},
		{name: "no input", passwords: nil, wantErr: "failed to read password"},
		{name: "too short", passwords: []string{"123", "123"}, wantErr: "password"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			console := &fakeConsole{passwords: tt.passwords}
			email := "admin" + string(rune('a'+i)) + "@zenga.com"

			_, err := run(t, console, "create-admin", email)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"Password: ", "Confirm password: "}, console.prompts)
		})
	}
}

func TestCreateAdmin_InvalidEmail(t *testing.T) {
	setupDatabaseEnv(t)

	_, err := run(t, &fakeConsole{}, "create-admin", "not-an-email", "secret-pass")
	assert.Error(t, err)
}

func TestCreateAdmin_Args(t *testing.T) {
	_, err := run(t, &fakeConsole{}, "create-admin")
	assert.Error(t, err)

	_, err = run(t, &fakeConsole{}, "create-admin", "a@b.com", "pass", "extra")
	assert.Error(t, err)
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")

	_, err := run(t, &fakeConsole{}, "serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
