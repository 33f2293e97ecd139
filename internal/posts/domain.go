package posts

import "time"

// Post is a piece of shared content owned by one account.
type Post struct {
	ID        int64     `json:"id"`
	AuthorID  int64     `json:"author_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// CreatePostInput carries the client-supplied fields of a new post.
type CreatePostInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

// PostView is a post with its like state for the requesting account.
type PostView struct {
	Post
	LikeCount int64 `json:"like_count"`
	UserLiked *bool `json:"user_liked,omitempty"`
}

// LikeResult reports the state after a like toggle.
type LikeResult struct {
	Liked     bool  `json:"user_liked"`
	LikeCount int64 `json:"like_count"`
}
