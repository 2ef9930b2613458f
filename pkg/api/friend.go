package api

type AddFriendRequest struct {
	Email string `json:"email"`
}

type AddFriendResponse struct {
	Friend *User `json:"friend"`
}

type RemoveFriendRequest struct {
	FriendID string `json:"friendId"`
}

type RemoveFriendResponse struct{}

type ListFriendsRequest struct{}

type ListFriendsResponse struct {
	Friends []*User `json:"friends"`
}
