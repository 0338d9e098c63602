package handlers

import (
	"context"
	"io"

	"github.com/cliphub/backend/internal/media"
	"github.com/cliphub/backend/internal/models"
	"github.com/cliphub/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, identifier string) (models.User, error)
	UpdateProfile(ctx context.Context, id, fullName, email string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAvatar(ctx context.Context, id, avatarURL string) error
	UpdateCoverImage(ctx context.Context, id, coverImageURL string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
	ChannelStats(ctx context.Context, userID string) (models.ChannelStats, error)
	AddToWatchHistory(ctx context.Context, userID, videoID string) error
	WatchHistory(ctx context.Context, userID string) ([]models.WatchHistoryItem, error)
}

// SessionManager issues, rotates, and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
	RevokeUser(ctx context.Context, userID string) error
}

// VideoStore captures persistence for video workflows.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	List(ctx context.Context, params repositories.ListParams) (models.VideoPage, error)
	ListForChannel(ctx context.Context, ownerID string) ([]models.VideoSummary, error)
	UpdateOwned(ctx context.Context, id, ownerID, title, description string) error
	DeleteOwned(ctx context.Context, id, ownerID string) error
	TogglePublish(ctx context.Context, id, ownerID string) (bool, error)
	IncrementViews(ctx context.Context, id string) error
}

// CommentStore captures persistence for comment workflows.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	PageForVideo(ctx context.Context, videoID string, page repositories.PageParams) (models.CommentPage, error)
	UpdateOwned(ctx context.Context, id, ownerID, content string) error
	DeleteOwned(ctx context.Context, id, ownerID string) error
}

// LikeStore captures the toggle and read-model operations for likes.
type LikeStore interface {
	ToggleVideo(ctx context.Context, videoID, userID string) (bool, error)
	ToggleComment(ctx context.Context, commentID, userID string) (bool, error)
	ToggleTweet(ctx context.Context, tweetID, userID string) (bool, error)
	LikedVideos(ctx context.Context, userID string) ([]models.VideoSummary, error)
}

// PlaylistStore captures persistence for playlist workflows.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	ListForUser(ctx context.Context, userID string) ([]models.PlaylistView, error)
	FindByID(ctx context.Context, id string) (models.PlaylistView, error)
	UpdateOwned(ctx context.Context, id, ownerID, name, description string) error
	DeleteOwned(ctx context.Context, id, ownerID string) error
	AddVideo(ctx context.Context, playlistID, ownerID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, ownerID, videoID string) error
}

// SubscriptionStore captures the toggle and listing operations for subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (bool, error)
	Subscribers(ctx context.Context, channelID string) ([]models.SubscriberView, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.ChannelView, error)
}

// TweetStore captures persistence for tweet workflows.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	PageForUser(ctx context.Context, userID string, page repositories.PageParams) (models.TweetPage, error)
	UpdateOwned(ctx context.Context, id, ownerID, content string) error
	DeleteOwned(ctx context.Context, id, ownerID string) error
}

// MediaStorage persists profile images synchronously.
type MediaStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// MediaIngestor schedules background persistence of staged video files.
type MediaIngestor interface {
	Enqueue(ctx context.Context, upload media.Upload) error
}
