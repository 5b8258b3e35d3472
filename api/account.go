package api

import "context"

// UserProfile is the authoritative server-side profile. It supplements the
// claims-derived identity.User with fields that never make it into the
// identity token.
type UserProfile struct {
	ID            string `json:"id"`
	UserName      string `json:"userName"`
	Email         string `json:"email"`
	FullName      string `json:"fullName"`
	JobTitle      string `json:"jobTitle,omitempty"`
	PhoneNumber   string `json:"phoneNumber,omitempty"`
	Configuration string `json:"configuration,omitempty"`
	IsEnabled     bool   `json:"isEnabled"`
}

// ChangePasswordRequest is the change-password endpoint's body.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// AccountService calls the account endpoints.
type AccountService struct {
	client *Client
}

// Me fetches the authenticated user's profile.
func (s *AccountService) Me(ctx context.Context) (*UserProfile, error) {
	var profile UserProfile
	if err := s.client.get(ctx, "/api/account/users/me", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// ChangePassword updates the authenticated user's password.
func (s *AccountService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	body := ChangePasswordRequest{
		CurrentPassword: currentPassword,
		NewPassword:     newPassword,
	}
	return s.client.post(ctx, "/api/account/users/change-password", body, nil)
}
