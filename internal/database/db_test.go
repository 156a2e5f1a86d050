package database

import "testing"

func TestMigrationName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "plain path", path: "storage.db", want: "storage.db"},
		{name: "memory", path: ":memory:", want: ":memory:"},
		{name: "file scheme", path: "file:storage.db", want: "storage.db"},
		{name: "connection options", path: "storage.db?_busy_timeout=5000", want: "storage.db"},
		{name: "scheme and options", path: "file:data/bot.db?mode=rwc", want: "data/bot.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := migrationName(tt.path); got != tt.want {
				t.Errorf("migrationName(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
