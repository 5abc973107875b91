package ident

import "testing"

func TestValid(t *testing.T) {
	t.Parallel()

	valid := []string{"users", "Users", "user_accounts", "t1", "_private", "UPPER_CASE_99"}
	for _, name := range valid {
		if !Valid(name) {
			t.Errorf("expected %q to be valid", name)
		}
	}

	invalid := []string{
		"",
		"user accounts",
		"users;",
		"users--",
		"`users`",
		"users.accounts",
		"ユーザー",
		"users\n",
		"drop table users",
	}
	for _, name := range invalid {
		if Valid(name) {
			t.Errorf("expected %q to be invalid", name)
		}
	}
}

func TestQuote(t *testing.T) {
	t.Parallel()
	if got := Quote("users"); got != "`users`" {
		t.Errorf("expected `users`, got %s", got)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()
	if err := Check("table", "users"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := Check("table", "users; drop"); err == nil {
		t.Error("expected error for invalid identifier")
	}
	if err := Check("column", ""); err == nil {
		t.Error("expected error for empty identifier")
	}
}
