package api

type SearchUsersRequest struct {
	// Query matches a substring of the full name or email.
	Query string `json:"query"`
	// Limit defaults to 10.
	Limit int `json:"limit,omitempty"`
}

type SearchUsersResponse struct {
	Users []*User `json:"users"`
}

type GetUserProfileRequest struct {
	// UserID defaults to the caller.
	UserID string `json:"userId,omitempty"`
}

type GetUserProfileResponse struct {
	User *User `json:"user"`
}
