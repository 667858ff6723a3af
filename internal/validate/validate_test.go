package validate

import (
	"testing"

	"github.com/me/patrimoine/pkg/catalogue"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		email string
		want  string
	}{
		{"anne@example.org", ""},
		{"  anne@example.org  ", ""},
		{"", "field.required"},
		{"anne", "field.email.invalid"},
		{"anne@localhost", "field.email.invalid"},
		{"Anne <anne@example.org>", "field.email.invalid"},
	}
	for _, tt := range tests {
		if got := Email(tt.email); got != tt.want {
			t.Errorf("Email(%q) = %q, want %q", tt.email, got, tt.want)
		}
	}
}

func TestSignup(t *testing.T) {
	good := catalogue.SignupRequest{
		FirstName: "Anne",
		LastName:  "Martin",
		Email:     "anne@example.org",
		Password:  "Abcdef1!",
	}
	if errs := Signup(good, "Abcdef1!"); !errs.OK() {
		t.Fatalf("expected valid signup, got %v", errs)
	}

	bad := good
	bad.FirstName = " "
	bad.Password = "abc"
	errs := Signup(bad, "abd")
	if errs["firstname"] != "field.required" {
		t.Errorf("firstname = %q", errs["firstname"])
	}
	if errs["password"] != "password.rule.length" {
		t.Errorf("password = %q", errs["password"])
	}
	if errs["confirm"] != "field.password.mismatch" {
		t.Errorf("confirm = %q", errs["confirm"])
	}
}

func TestProfile_EmptyPasswordKeepsCurrent(t *testing.T) {
	upd := catalogue.ProfileUpdate{FirstName: "A", LastName: "B", Email: "a@b.fr"}
	if errs := Profile(upd, ""); !errs.OK() {
		t.Errorf("expected valid update, got %v", errs)
	}
	upd.Password = "short"
	if errs := Profile(upd, "short"); errs["password"] == "" {
		t.Error("weak new password should fail")
	}
}

func TestLoginAndReset(t *testing.T) {
	if errs := Login("a@b.fr", "x"); !errs.OK() {
		t.Errorf("Login = %v", errs)
	}
	if errs := Login("", ""); len(errs) != 2 {
		t.Errorf("expected 2 field errors, got %v", errs)
	}
	if errs := ResetPassword("Abcdef1!", "Abcdef1!"); !errs.OK() {
		t.Errorf("ResetPassword = %v", errs)
	}
	if errs := ResetPassword("", ""); errs["password"] != "field.required" {
		t.Errorf("ResetPassword empty = %v", errs)
	}
}

func TestContribution(t *testing.T) {
	c := catalogue.Contribution{Category: catalogue.CategoryMonumentsLieux, Title: "Abbaye", Description: "XIe siècle"}
	if errs := Contribution(c); !errs.OK() {
		t.Errorf("Contribution = %v", errs)
	}
	c.Category = "tableaux"
	c.Title = ""
	errs := Contribution(c)
	if errs["category"] == "" || errs["title"] == "" {
		t.Errorf("expected category and title errors, got %v", errs)
	}
}
