package database

import (
	"io/fs"
	"regexp"
	"testing"
)

func TestGenerateUsernameBase(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Ana María", "anamara"},
		{"J. R. R. Tolkien", "jrrtolkien"},
		{"!!!", "user"},
		{"Bartholomew Fitzgerald", "bartholomewf"},
	}
	for _, tt := range tests {
		if got := generateUsernameBase(tt.name); got != tt.want {
			t.Errorf("generateUsernameBase(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestGenerateUsername(t *testing.T) {
	pattern := regexp.MustCompile(`^sam\d{4}$`)
	for i := 0; i < 20; i++ {
		if got := GenerateUsername("Sam"); !pattern.MatchString(got) {
			t.Fatalf("GenerateUsername(%q) = %q", "Sam", got)
		}
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, name := range []string{"migrations/0001_init.up.sql", "migrations/0001_init.down.sql"} {
		data, err := fs.ReadFile(migrations, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if len(data) == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}
