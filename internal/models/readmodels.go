package models

import "time"

// CommentView is one row of the paginated comment feed for a video.
type CommentView struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentPage combines a page slice with the total comment count for the video.
type CommentPage struct {
	Comments   []CommentView `json:"comments"`
	TotalCount int64         `json:"totalCount"`
}

// VideoSummary is the owner-joined projection used by listings and playlists.
type VideoSummary struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	ThumbnailURL string       `json:"thumbnail"`
	MediaURL     string       `json:"videoFile,omitempty"`
	Duration     float64      `json:"duration"`
	Views        int64        `json:"views"`
	IsPublished  bool         `json:"isPublished"`
	CreatedAt    time.Time    `json:"createdAt"`
	Owner        OwnerSummary `json:"owner"`
}

// VideoPage is a paginated video listing together with its total count.
type VideoPage struct {
	Videos     []VideoSummary `json:"videos"`
	TotalCount int64          `json:"totalCount"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
}

// ChannelStats aggregates a channel's footprint across videos, likes, and
// subscriptions. Subscribers are always counted live from the subscriptions
// table.
type ChannelStats struct {
	TotalVideos      int64 `json:"totalVideos"`
	TotalViews       int64 `json:"totalViews"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalSubscribers int64 `json:"totalSubscribers"`
}

// ChannelProfile is the public channel page for a user, including whether the
// requesting viewer is subscribed.
type ChannelProfile struct {
	PublicUser
	SubscriberCount int64 `json:"subscriberCount"`
	FollowingCount  int64 `json:"channelsSubscribedTo"`
	IsSubscribed    bool  `json:"isSubscribed"`
}

// WatchHistoryItem is one resolved entry of a user's watch history.
type WatchHistoryItem struct {
	Video     VideoSummary `json:"video"`
	WatchedAt time.Time    `json:"watchedAt"`
}

// PlaylistView is a playlist with its videos resolved to owner-joined summaries.
type PlaylistView struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       string         `json:"owner"`
	Videos      []VideoSummary `json:"videos"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// SubscriberView is one subscriber of a channel.
type SubscriberView struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
}

// ChannelView is one channel a user is subscribed to.
type ChannelView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatar"`
}

// TweetView is one tweet row with its author's public fields inline.
type TweetView struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar"`
	CreatedAt time.Time `json:"createdAt"`
}

// TweetPage is a paginated slice of a user's tweets with the total count.
type TweetPage struct {
	Tweets     []TweetView `json:"tweets"`
	TotalCount int64       `json:"totalCount"`
}
