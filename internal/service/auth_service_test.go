package service

import (
	"alcyxob/weight-tracker/internal/domain"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newAuthFixture() (*goalFixture, AuthService) {
	f := newGoalFixture()
	return f, NewAuthService(f.users, f.svc, testSecret, time.Hour)
}

func validRegisterInput() RegisterInput {
	return RegisterInput{
		Name:            "Margaret",
		Email:           "Margaret@Example.com",
		Mobile:          "5551234567",
		Password:        "s3cret!",
		ConfirmPassword: "s3cret!",
		Gender:          domain.GenderFemale,
		Height:          165,
		CurrentWeight:   70,
		TargetWeight:    64,
		TargetDate:      time.Now().UTC().AddDate(0, 2, 0),
	}
}

func TestRegisterCreatesProfileWithGoal(t *testing.T) {
	f, auth := newAuthFixture()
	f.svc.now = func() time.Time { return time.Now().UTC() }

	user, err := auth.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.PasswordHash != "" {
		t.Error("password hash leaked to caller")
	}
	if user.Email != "margaret@example.com" {
		t.Errorf("email = %q, want lowercased", user.Email)
	}
	if user.GoalStatus != domain.GoalStatusActive {
		t.Errorf("goalStatus = %s, want active", user.GoalStatus)
	}

	stored := f.users.stored(user.ID)
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret!")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	if len(f.dispatcher.enqueued()) != 1 {
		t.Error("registration should queue the goal start seed")
	}
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(in *RegisterInput)
		field string
	}{
		{name: "password mismatch", edit: func(in *RegisterInput) { in.ConfirmPassword = "other" }, field: "confirmPassword"},
		{name: "short password", edit: func(in *RegisterInput) { in.Password, in.ConfirmPassword = "abc", "abc" }, field: "password"},
		{name: "bad email", edit: func(in *RegisterInput) { in.Email = "not-an-email" }, field: "email"},
		{name: "mobile with letters", edit: func(in *RegisterInput) { in.Mobile = "55512abc90" }, field: "mobile"},
		{name: "short mobile", edit: func(in *RegisterInput) { in.Mobile = "12345" }, field: "mobile"},
		{name: "target date today", edit: func(in *RegisterInput) { in.TargetDate = time.Now().UTC() }, field: "targetDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, auth := newAuthFixture()
			in := validRegisterInput()
			tt.edit(&in)

			_, err := auth.Register(context.Background(), in)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if _, ok := verr.Fields[tt.field]; !ok {
				t.Errorf("field %q not reported: %v", tt.field, verr.Fields)
			}
		})
	}
}

func TestRegisterDuplicateMobile(t *testing.T) {
	f, auth := newAuthFixture()
	f.svc.now = func() time.Time { return time.Now().UTC() }
	f.users.put(&domain.User{Name: "Other", Email: "other@example.com", Mobile: "5551234567"})

	_, err := auth.Register(context.Background(), validRegisterInput())
	if !errors.Is(err, ErrConflictingIdentity) {
		t.Fatalf("expected ErrConflictingIdentity, got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f, auth := newAuthFixture()
	f.svc.now = func() time.Time { return time.Now().UTC() }
	registered, err := auth.Register(context.Background(), validRegisterInput())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		token, user, err := auth.Login(context.Background(), " MARGARET@example.com", "s3cret!")
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if user.ID != registered.ID || user.PasswordHash != "" {
			t.Errorf("unexpected user %+v", user)
		}

		claims := &jwtClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
			return []byte(testSecret), nil
		})
		if err != nil || !parsed.Valid {
			t.Fatalf("token invalid: %v", err)
		}
		if claims.UserID != registered.ID.Hex() || claims.Issuer != "weight-tracker" {
			t.Errorf("unexpected claims %+v", claims)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := auth.Login(context.Background(), "margaret@example.com", "nope")
		if !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := auth.Login(context.Background(), "ghost@example.com", "s3cret!")
		if !errors.Is(err, ErrAuthenticationFailed) {
			t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
		}
	})
}

func TestLoginProfileWithoutCredentials(t *testing.T) {
	f, auth := newAuthFixture()
	f.users.put(&domain.User{Name: "No Password", Email: "plain@example.com"})

	_, _, err := auth.Login(context.Background(), "plain@example.com", "anything")
	if !errors.Is(err, ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}
